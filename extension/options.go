package extension

import (
	settle "github.com/campuskit/settle"
	"github.com/campuskit/settle/plugin"
	"github.com/campuskit/settle/store"
)

// Option configures the Settle Forge extension.
type Option func(*Extension)

// WithStore sets the store for the settlement engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithEngineOption passes a settle.Option through to the underlying engine.
func WithEngineOption(opt settle.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers an engine plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, settle.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithCurrency sets the deployment settlement currency.
func WithCurrency(currency string) Option {
	return func(e *Extension) { e.config.Currency = currency }
}

// WithSequenceRetries sets the registration allocation retry budget.
func WithSequenceRetries(n int) Option {
	return func(e *Extension) { e.config.SequenceRetries = n }
}

// WithShares overrides the split rates for one revenue source type.
func WithShares(sourceType string, s SharesConfig) Option {
	return func(e *Extension) {
		if e.config.Shares == nil {
			e.config.Shares = make(map[string]SharesConfig)
		}
		e.config.Shares[sourceType] = s
	}
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
