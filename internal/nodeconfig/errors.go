package nodeconfig

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lxdmxwifi/espdmx/internal/discovery"
	"github.com/lxdmxwifi/espdmx/internal/protocol"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeValidation indicates invalid field values
	ErrTypeValidation ErrorType = iota
	// ErrTypeAddress indicates text that could not be resolved to an IPv4 address
	ErrTypeAddress
	// ErrTypeBind indicates the discovery socket could not be opened
	ErrTypeBind
	// ErrTypeSend indicates a datagram could not be sent
	ErrTypeSend
	// ErrTypeEngine indicates the engine refused or timed out a submission
	ErrTypeEngine
	// ErrTypeUnknown indicates an unknown or unexpected error
	ErrTypeUnknown
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeValidation:
		return "Validation Error"
	case ErrTypeAddress:
		return "Address Error"
	case ErrTypeBind:
		return "Bind Error"
	case ErrTypeSend:
		return "Send Error"
	case ErrTypeEngine:
		return "Engine Error"
	case ErrTypeUnknown:
		return "Unknown Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// NodeError represents an error while configuring a node
type NodeError struct {
	Type    ErrorType // Category of error
	Message string    // Human-readable error message
	Field   string    // Field name for validation and address errors
	Target  string    // Node address (for context)
	Err     error     // Underlying error (if any)
}

// Error implements the error interface
func (e *NodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *NodeError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a validation error for a field
func NewValidationError(field, message string) *NodeError {
	return &NodeError{
		Type:    ErrTypeValidation,
		Field:   field,
		Message: message,
	}
}

// NewAddressError wraps a failed address conversion for a field
func NewAddressError(field string, err error) *NodeError {
	input := ""
	var addrErr *protocol.AddressError
	if errors.As(err, &addrErr) {
		input = addrErr.Input
	}
	return &NodeError{
		Type:    ErrTypeAddress,
		Field:   field,
		Message: fmt.Sprintf("%s: %q is not an IPv4 address", field, input),
		Err:     err,
	}
}

// Classify maps an error from this module onto a NodeError.
func Classify(err error) *NodeError {
	if err == nil {
		return nil
	}

	var nodeErr *NodeError
	if errors.As(err, &nodeErr) {
		return nodeErr
	}

	var addrErr *protocol.AddressError
	if errors.As(err, &addrErr) {
		return &NodeError{Type: ErrTypeAddress, Message: addrErr.Error(), Target: addrErr.Input, Err: err}
	}

	var bindErr *discovery.SocketBindError
	if errors.As(err, &bindErr) {
		return &NodeError{Type: ErrTypeBind, Message: "cannot open discovery socket", Err: err}
	}

	var sendErr *discovery.SendError
	if errors.As(err, &sendErr) {
		return &NodeError{Type: ErrTypeSend, Message: "packet failed to send", Target: sendErr.Dest.Addr().String(), Err: err}
	}

	if errors.Is(err, discovery.ErrEngineNotRunning) || errors.Is(err, discovery.ErrSubmitTimeout) {
		return &NodeError{Type: ErrTypeEngine, Message: "packet was not queued", Err: err}
	}

	return &NodeError{Type: ErrTypeUnknown, Message: err.Error(), Err: err}
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var nodeErr *NodeError
	return errors.As(err, &nodeErr) && nodeErr.Type == ErrTypeValidation
}

// IsAddressError checks if an error is an address resolution error
func IsAddressError(err error) bool {
	return Classify(err).typeIs(ErrTypeAddress)
}

func (e *NodeError) typeIs(t ErrorType) bool {
	return e != nil && e.Type == t
}

// GetTroubleshootingHint returns user-friendly troubleshooting advice for an error
func GetTroubleshootingHint(err error) string {
	nodeErr := Classify(err)
	if nodeErr == nil {
		return ""
	}

	switch nodeErr.Type {
	case ErrTypeBind:
		hint := []string{
			"The discovery socket could not be opened.",
			"Troubleshooting:",
			"  • Another program may hold the port without address reuse",
			"  • Check the --interface and --bind values",
			"  • Use --bind any to listen on all addresses",
		}
		var bindErr *discovery.SocketBindError
		if errors.As(err, &bindErr) && bindErr.Suggested != "" {
			hint = append(hint, "  • Try --interface "+bindErr.Suggested)
		}
		return strings.Join(hint, "\n")

	case ErrTypeSend:
		return strings.Join([]string{
			"The packet could not be sent.",
			"Troubleshooting:",
			"  • Verify your computer is on the node's network",
			"  • Join the node's access point (ESP-DMX-WiFi, 10.110.115.10) if it is in AP mode",
			"  • Broadcast addresses may need a matching interface address",
		}, "\n")

	case ErrTypeAddress:
		return "Enter addresses as dotted quads, for example 10.110.115.10."

	case ErrTypeEngine:
		return "The discovery engine is busy or stopped. Try again."

	case ErrTypeValidation:
		return "The configuration values are invalid. Check the error message for details."

	default:
		return "An error occurred. Please check the error message for details."
	}
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	nodeErr := Classify(err)
	if nodeErr == nil {
		return ""
	}

	switch nodeErr.Type {
	case ErrTypeBind:
		return "Cannot open discovery socket - check interface and port"
	case ErrTypeSend:
		return "Packet failed to send - check network connection"
	case ErrTypeEngine:
		return "Discovery engine not ready"
	default:
		return nodeErr.Message
	}
}
