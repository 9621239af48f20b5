package nodeconfig

import (
	"strings"
	"testing"

	"github.com/lxdmxwifi/espdmx/internal/protocol"
)

func strPtr(s string) *string { return &s }

// TestValidateSSID tests SSID rules for both modes
func TestValidateSSID(t *testing.T) {
	tests := []struct {
		name    string
		ssid    string
		mode    protocol.WiFiMode
		wantErr bool
	}{
		{"Valid: station with SSID", "StageNet", protocol.ModeStation, false},
		{"Valid: AP with SSID", "ESP-DMX-WiFi", protocol.ModeAccessPoint, false},
		{"Valid: AP with empty SSID", "", protocol.ModeAccessPoint, false},
		{"Invalid: station with empty SSID", "", protocol.ModeStation, true},
		{"Invalid: too long", strings.Repeat("a", 33), protocol.ModeStation, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSSID(tt.ssid, tt.mode)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSSID(%q, %s) error = %v, wantErr %v", tt.ssid, tt.mode, err, tt.wantErr)
			}
			if err != nil && !IsValidationError(err) {
				t.Errorf("Expected validation error, got %T", err)
			}
		})
	}
}

// TestValidatePassword tests password rules, including the masked placeholder
func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		mode     protocol.WiFiMode
		wantErr  bool
	}{
		{"Valid: station with password", "secret123", protocol.ModeStation, false},
		{"Valid: AP with empty password", "", protocol.ModeAccessPoint, false},
		{"Valid: AP with masked password", "*****", protocol.ModeAccessPoint, false},
		{"Valid: stars later in password", "ab****", protocol.ModeStation, false},
		{"Invalid: station with empty password", "", protocol.ModeStation, true},
		{"Invalid: station with exact mask", "****", protocol.ModeStation, true},
		{"Invalid: station with longer mask", "********", protocol.ModeStation, true},
		{"Invalid: too long", strings.Repeat("p", 64), protocol.ModeAccessPoint, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password, tt.mode)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePassword(%q, %s) error = %v, wantErr %v", tt.password, tt.mode, err, tt.wantErr)
			}
		})
	}
}

// TestValidateFields tests complete field validation
func TestValidateFields(t *testing.T) {
	valid := func() *Fields {
		f := DefaultFields()
		f.Mode = ModeStation
		f.SSID = "StageNet"
		f.Password = "secret123"
		return &f
	}

	tests := []struct {
		name      string
		modify    func(f *Fields)
		wantCount int
		wantField string
	}{
		{"Valid: station", func(f *Fields) {}, 0, ""},
		{"Valid: empty node name", func(f *Fields) { f.NodeName = strPtr("") }, 0, ""},
		{"Invalid: missing node name", func(f *Fields) { f.NodeName = nil }, 1, "node_name"},
		{"Invalid: unknown mode", func(f *Fields) { f.Mode = "mesh" }, 1, "mode"},
		{"Invalid: artnet net", func(f *Fields) { f.ArtNetNet = 128 }, 1, "artnet_net"},
		{"Invalid: artnet subnet", func(f *Fields) { f.ArtNetSubnet = 16 }, 1, "artnet_subnet"},
		{"Invalid: artnet universe", func(f *Fields) { f.ArtNetUniverse = -1 }, 1, "artnet_universe"},
		{"Invalid: sacn universe", func(f *Fields) { f.SACNUniverse = 70000 }, 1, "sacn_universe"},
		{"Invalid: device address", func(f *Fields) { f.DeviceAddress = 513 }, 1, "device_address"},
		{"Invalid: several", func(f *Fields) {
			f.SSID = ""
			f.Password = "****"
			f.NodeName = nil
		}, 3, "ssid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := valid()
			tt.modify(f)
			errs := ValidateFields(f)
			if len(errs) != tt.wantCount {
				t.Fatalf("ValidateFields() returned %d errors, want %d: %v", len(errs), tt.wantCount, errs)
			}
			if tt.wantField != "" {
				nodeErr, ok := errs[0].(*NodeError)
				if !ok {
					t.Fatalf("Expected *NodeError, got %T", errs[0])
				}
				if nodeErr.Field != tt.wantField {
					t.Errorf("Field = %q, want %q", nodeErr.Field, tt.wantField)
				}
			}
		})
	}
}

func TestValidationErrorsGiveReason(t *testing.T) {
	tests := []struct {
		name   string
		modify func(f *Fields)
		verify func(t *testing.T, e *NodeError)
	}{
		{
			name:   "SSID over the 802.11 limit",
			modify: func(f *Fields) { f.SSID = strings.Repeat("s", 40) },
			verify: func(t *testing.T, e *NodeError) {
				if e.Field != "ssid" {
					t.Errorf("Field = %q, want ssid", e.Field)
				}
				if !strings.Contains(e.Message, "802.11") || !strings.Contains(e.Message, "32") {
					t.Errorf("Message = %q, want the 802.11 limit of 32", e.Message)
				}
			},
		},
		{
			name:   "device address past the last DMX slot",
			modify: func(f *Fields) { f.DeviceAddress = 600 },
			verify: func(t *testing.T, e *NodeError) {
				if e.Field != "device_address" {
					t.Errorf("Field = %q, want device_address", e.Field)
				}
				if !strings.Contains(e.Message, "DMX512") || !strings.Contains(e.Message, "got 600") {
					t.Errorf("Message = %q, want the DMX512 slot count and the value", e.Message)
				}
			},
		},
		{
			name:   "other ranges keep the plain message",
			modify: func(f *Fields) { f.ArtNetSubnet = 16 },
			verify: func(t *testing.T, e *NodeError) {
				if e.Message != "artnet_subnet must be 0-15, got 16" {
					t.Errorf("Message = %q", e.Message)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := DefaultFields()
			f.Mode = ModeStation
			f.SSID = "StageNet"
			f.Password = "secret123"
			tt.modify(&f)
			errs := ValidateFields(&f)
			if len(errs) != 1 {
				t.Fatalf("ValidateFields() returned %d errors, want 1: %v", len(errs), errs)
			}
			e, ok := errs[0].(*NodeError)
			if !ok {
				t.Fatalf("Expected *NodeError, got %T", errs[0])
			}
			tt.verify(t, e)
		})
	}
}

func TestFormatValidationErrors(t *testing.T) {
	if got := FormatValidationErrors(nil); got != "No validation errors" {
		t.Errorf("FormatValidationErrors(nil) = %q", got)
	}

	errs := []error{
		NewValidationError("ssid", "SSID is required in station mode"),
		NewValidationError("password", "password is required in station mode"),
	}
	got := FormatValidationErrors(errs)
	if !strings.Contains(got, "2 error(s)") {
		t.Errorf("Expected error count in %q", got)
	}
	if !strings.Contains(got, "  2. Validation Error: password is required") {
		t.Errorf("Expected numbered entry in %q", got)
	}
}
