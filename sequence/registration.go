package sequence

import (
	"fmt"
	"strconv"
	"strings"
)

// RegistrationNumber is the externally quoted student identifier minted at
// registration time. Once issued it is immutable: student-facing systems
// parse and store the formatted string.
type RegistrationNumber struct {
	TenantCode string `json:"tenant_code"`
	Period     string `json:"period"`
	Sequence   int64  `json:"sequence"`
}

// Format renders the stable external form "{tenant_code}_{period}_{seq:03d}",
// e.g. "BR1_24_001". Sequences past 999 widen naturally and still parse.
func (r RegistrationNumber) Format() string {
	return fmt.Sprintf("%s_%s_%03d", r.TenantCode, r.Period, r.Sequence)
}

// String implements fmt.Stringer.
func (r RegistrationNumber) String() string { return r.Format() }

// ParseRegistrationNumber recovers the (tenant_code, period, sequence)
// tuple from a formatted identifier. Tenant codes may themselves contain
// underscores, so the period and sequence are taken from the right.
func ParseRegistrationNumber(s string) (RegistrationNumber, error) {
	parts := strings.Split(s, "_")
	if len(parts) < 3 {
		return RegistrationNumber{}, fmt.Errorf("sequence: malformed registration number %q", s)
	}

	seqPart := parts[len(parts)-1]
	periodPart := parts[len(parts)-2]
	tenantCode := strings.Join(parts[:len(parts)-2], "_")

	if tenantCode == "" || periodPart == "" {
		return RegistrationNumber{}, fmt.Errorf("sequence: malformed registration number %q", s)
	}

	seq, err := strconv.ParseInt(seqPart, 10, 64)
	if err != nil || seq < 1 {
		return RegistrationNumber{}, fmt.Errorf("sequence: bad sequence in registration number %q", s)
	}

	return RegistrationNumber{
		TenantCode: tenantCode,
		Period:     periodPart,
		Sequence:   seq,
	}, nil
}
