package nodeconfig

import (
	"fmt"
	"strings"

	"github.com/lxdmxwifi/espdmx/internal/protocol"
)

// MaskedPasswordPrefix is how a stored password is displayed. A password
// starting with it was never edited and must not be uploaded.
const MaskedPasswordPrefix = "****"

// maxSSIDLength and maxDeviceAddress are tighter than the packet fields
// allow. 802.11 caps an SSID at 32 octets and a DMX512 universe has 512 slots,
// so larger values would upload but never work.
const (
	maxSSIDLength     = 32
	maxPasswordLength = protocol.PasswordFieldSize - 1
	maxArtNetNet      = 127
	maxNibble         = 15
	maxSACNUniverse   = 65535
	maxDeviceAddress  = 512
)

// ValidateSSID validates the network name for the given mode.
// Station mode needs a network to join; access point mode falls back to
// DefaultAccessPointSSID.
func ValidateSSID(ssid string, mode protocol.WiFiMode) error {
	if ssid == "" && mode == protocol.ModeStation {
		return NewValidationError("ssid", "SSID is required in station mode")
	}
	if len(ssid) > maxSSIDLength {
		return NewValidationError("ssid", fmt.Sprintf("SSID too long (802.11 allows at most %d chars): %d chars", maxSSIDLength, len(ssid)))
	}
	return nil
}

// ValidatePassword validates the network password for the given mode.
func ValidatePassword(password string, mode protocol.WiFiMode) error {
	if mode == protocol.ModeStation {
		if password == "" {
			return NewValidationError("password", "password is required in station mode")
		}
		if strings.HasPrefix(password, MaskedPasswordPrefix) {
			return NewValidationError("password", "password is still masked, enter the network password")
		}
	}
	if len(password) > maxPasswordLength {
		return NewValidationError("password", fmt.Sprintf("password too long (max %d chars): %d chars", maxPasswordLength, len(password)))
	}
	return nil
}

// ValidateNodeName checks that a node name is present. Empty names are
// allowed; long names are truncated on upload.
func ValidateNodeName(name *string) error {
	if name == nil {
		return NewValidationError("node_name", "node name is required")
	}
	return nil
}

// ValidateRange validates that value lies within [min, max].
func ValidateRange(field string, value, min, max int) error {
	if value < min || value > max {
		return NewValidationError(field, fmt.Sprintf("%s must be %d-%d, got %d", field, min, max, value))
	}
	return nil
}

// ValidateFields validates every field and returns all problems found.
// Address text is checked later, when the packet is built.
func ValidateFields(f *Fields) []error {
	var errors []error

	mode, err := ParseMode(f.Mode)
	if err != nil {
		errors = append(errors, err)
	} else {
		if err := ValidateSSID(f.SSID, mode); err != nil {
			errors = append(errors, err)
		}
		if err := ValidatePassword(f.Password, mode); err != nil {
			errors = append(errors, err)
		}
	}

	if err := ValidateNodeName(f.NodeName); err != nil {
		errors = append(errors, err)
	}

	ranges := []struct {
		field string
		value int
		max   int
		note  string
	}{
		{"sacn_universe", f.SACNUniverse, maxSACNUniverse, ""},
		{"artnet_net", f.ArtNetNet, maxArtNetNet, ""},
		{"artnet_subnet", f.ArtNetSubnet, maxNibble, ""},
		{"artnet_universe", f.ArtNetUniverse, maxNibble, ""},
		{"device_address", f.DeviceAddress, maxDeviceAddress, "a DMX512 universe has 512 slots"},
	}
	for _, r := range ranges {
		if err := ValidateRange(r.field, r.value, 0, r.max); err != nil {
			if r.note != "" {
				err = NewValidationError(r.field, fmt.Sprintf("%s must be 0-%d (%s), got %d", r.field, r.max, r.note, r.value))
			}
			errors = append(errors, err)
		}
	}

	return errors
}

// FormatValidationErrors formats a slice of validation errors into a user-friendly message.
func FormatValidationErrors(errors []error) string {
	if len(errors) == 0 {
		return "No validation errors"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Configuration validation failed with %d error(s):\n", len(errors)))

	for i, err := range errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}

	return sb.String()
}
