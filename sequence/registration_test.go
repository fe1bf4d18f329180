package sequence

import "testing"

func TestRegistrationNumberFormat(t *testing.T) {
	tests := []struct {
		name     string
		reg      RegistrationNumber
		expected string
	}{
		{"basic", RegistrationNumber{TenantCode: "BR1", Period: "24", Sequence: 1}, "BR1_24_001"},
		{"two digits", RegistrationNumber{TenantCode: "BR1", Period: "24", Sequence: 42}, "BR1_24_042"},
		{"three digits", RegistrationNumber{TenantCode: "BR1", Period: "24", Sequence: 999}, "BR1_24_999"},
		{"widens past 999", RegistrationNumber{TenantCode: "BR1", Period: "24", Sequence: 1234}, "BR1_24_1234"},
		{"underscored tenant code", RegistrationNumber{TenantCode: "FR_SOUTH", Period: "25", Sequence: 7}, "FR_SOUTH_25_007"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.reg.Format(); got != tt.expected {
				t.Errorf("Format: got %q, want %q", got, tt.expected)
			}
			if got := tt.reg.String(); got != tt.expected {
				t.Errorf("String: got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestParseRegistrationNumber(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    RegistrationNumber
		wantErr bool
	}{
		{
			name:  "basic",
			input: "BR1_24_001",
			want:  RegistrationNumber{TenantCode: "BR1", Period: "24", Sequence: 1},
		},
		{
			name:  "wide sequence",
			input: "BR1_24_1234",
			want:  RegistrationNumber{TenantCode: "BR1", Period: "24", Sequence: 1234},
		},
		{
			name:  "underscored tenant code parses from the right",
			input: "FR_SOUTH_25_007",
			want:  RegistrationNumber{TenantCode: "FR_SOUTH", Period: "25", Sequence: 7},
		},
		{name: "too few parts", input: "BR1_24", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "non-numeric sequence", input: "BR1_24_abc", wantErr: true},
		{name: "zero sequence", input: "BR1_24_000", wantErr: true},
		{name: "negative sequence", input: "BR1_24_-01", wantErr: true},
		{name: "empty tenant code", input: "_24_001", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRegistrationNumber(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %+v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRegistrationRoundTrip(t *testing.T) {
	regs := []RegistrationNumber{
		{TenantCode: "BR1", Period: "24", Sequence: 1},
		{TenantCode: "FR_NORTH_2", Period: "99", Sequence: 1500},
	}

	for _, reg := range regs {
		t.Run(reg.Format(), func(t *testing.T) {
			parsed, err := ParseRegistrationNumber(reg.Format())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed != reg {
				t.Errorf("round-trip mismatch: %+v != %+v", parsed, reg)
			}
		})
	}
}

func TestScopeKey(t *testing.T) {
	s := Scope{TenantCode: "BR1", Period: "24"}
	if got := s.Key(); got != "BR1:24" {
		t.Errorf("Key: got %q, want %q", got, "BR1:24")
	}

	// Distinct periods of the same tenant are distinct scopes.
	s2 := Scope{TenantCode: "BR1", Period: "25"}
	if s.Key() == s2.Key() {
		t.Error("different periods must produce different keys")
	}
}
