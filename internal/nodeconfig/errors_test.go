package nodeconfig

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"testing"

	"github.com/lxdmxwifi/espdmx/internal/discovery"
	"github.com/lxdmxwifi/espdmx/internal/protocol"
)

func TestClassify(t *testing.T) {
	_, addrErr := protocol.ParseAddress("10.0.0")

	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"validation", NewValidationError("ssid", "required"), ErrTypeValidation},
		{"wrapped validation", fmt.Errorf("upload: %w", NewValidationError("ssid", "required")), ErrTypeValidation},
		{"address", addrErr, ErrTypeAddress},
		{"bind", &discovery.SocketBindError{Spec: discovery.BindSpec{Interface: "wlan9"}, Err: errors.New("no address")}, ErrTypeBind},
		{"send", &discovery.SendError{Dest: netip.MustParseAddrPort("10.0.0.1:6454"), Attempts: 1, Err: errors.New("unreachable")}, ErrTypeSend},
		{"not running", fmt.Errorf("submit: %w", discovery.ErrEngineNotRunning), ErrTypeEngine},
		{"submit timeout", discovery.ErrSubmitTimeout, ErrTypeEngine},
		{"unknown", errors.New("boom"), ErrTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if got == nil {
				t.Fatal("Expected NodeError, got nil")
			}
			if got.Type != tt.want {
				t.Errorf("Classify() type = %v, want %v", got.Type, tt.want)
			}
		})
	}

	if Classify(nil) != nil {
		t.Error("Classify(nil) should be nil")
	}
}

func TestSendErrorTarget(t *testing.T) {
	err := &discovery.SendError{Dest: netip.MustParseAddrPort("10.0.0.1:6454"), Err: errors.New("unreachable")}
	if got := Classify(err).Target; got != "10.0.0.1" {
		t.Errorf("Target = %q, want 10.0.0.1", got)
	}
}

func TestNewAddressError(t *testing.T) {
	_, cause := protocol.ParseAddress("300.1.1.1")
	err := NewAddressError("ap_gateway", cause)

	if err.Field != "ap_gateway" {
		t.Errorf("Field = %q", err.Field)
	}
	if !strings.Contains(err.Message, `"300.1.1.1"`) {
		t.Errorf("Message = %q, want the rejected text", err.Message)
	}
	var addrErr *protocol.AddressError
	if !errors.As(err, &addrErr) {
		t.Error("Expected the AddressError to be unwrappable")
	}
	if !IsAddressError(err) || IsValidationError(err) {
		t.Error("Address errors must classify as address, not validation")
	}
}

func TestGetTroubleshootingHint(t *testing.T) {
	bindErr := &discovery.SocketBindError{
		Spec:      discovery.BindSpec{Interface: "en0"},
		Suggested: "wlan0",
		Err:       errors.New("interface not found"),
	}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"bind suggests interface", bindErr, "--interface wlan0"},
		{"send", &discovery.SendError{Err: errors.New("x")}, "node's network"},
		{"address", NewAddressError("target", errors.New("x")), "dotted quads"},
		{"validation", NewValidationError("ssid", "x"), "configuration values"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetTroubleshootingHint(tt.err); !strings.Contains(got, tt.want) {
				t.Errorf("GetTroubleshootingHint() = %q, want it to contain %q", got, tt.want)
			}
		})
	}

	if GetTroubleshootingHint(nil) != "" {
		t.Error("Expected empty hint for nil error")
	}
}

func TestGetShortErrorMessage(t *testing.T) {
	if got := GetShortErrorMessage(discovery.ErrEngineNotRunning); got != "Discovery engine not ready" {
		t.Errorf("GetShortErrorMessage() = %q", got)
	}
	if got := GetShortErrorMessage(NewValidationError("ssid", "SSID is required")); got != "SSID is required" {
		t.Errorf("GetShortErrorMessage() = %q", got)
	}
}
