package extension

// SharesConfig is the YAML shape of a basis-point split for one revenue
// source type.
type SharesConfig struct {
	CompanyBps   int64 `json:"company_bps" mapstructure:"company_bps" yaml:"company_bps"`
	TaxBps       int64 `json:"tax_bps" mapstructure:"tax_bps" yaml:"tax_bps"`
	FranchiseBps int64 `json:"franchise_bps" mapstructure:"franchise_bps" yaml:"franchise_bps"`
}

// Config holds the Settle extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.settle" or "settle" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// Currency is the ISO 4217 code the deployment settles in (default: "inr").
	Currency string `json:"currency" mapstructure:"currency" yaml:"currency"`

	// SequenceRetries is the retry budget for registration allocation when a
	// concurrent writer wins the counter race (default: 5).
	SequenceRetries int `json:"sequence_retries" mapstructure:"sequence_retries" yaml:"sequence_retries"`

	// Shares overrides the split rates per revenue source type, keyed by
	// source type name ("enrollment", "franchise_fee"). Sources absent from
	// the map keep the default rates.
	Shares map[string]SharesConfig `json:"shares" mapstructure:"shares" yaml:"shares"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Currency:        "inr",
		SequenceRetries: 5,
	}
}
