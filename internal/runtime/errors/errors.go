package errors

import (
	sterrors "errors"
	"fmt"
)

var (
	ErrUnknownLevel        = sterrors.New("notiflow: unknown level")
	ErrComponentNotFound   = sterrors.New("notiflow: component not found")
	ErrConfigInvalid       = sterrors.New("notiflow: invalid configuration")
	ErrJobNotFound         = sterrors.New("notiflow: job not found")
	ErrSourceNotFound      = sterrors.New("notiflow: source not found")
	ErrDestinationNotFound = sterrors.New("notiflow: destination not found")
	ErrGroupNotFound       = sterrors.New("notiflow: message group not found")
	ErrTargetNotFound      = sterrors.New("notiflow: send target matches neither a message group nor a destination")
	ErrInvalidSourceOutput = sterrors.New("notiflow: invalid source output")
	ErrDeliveryFailed      = sterrors.New("notiflow: delivery failed")
	ErrInvalidParam        = sterrors.New("notiflow: invalid parameter")
	ErrConfigRequired      = sterrors.New("notiflow: configuration is required")
	ErrRegistryRequired    = sterrors.New("notiflow: plugin registry is required")
)

// UnknownLevelError reports a severity value that is neither a known name nor a whole number.
type UnknownLevelError struct {
	Value any
}

func (e UnknownLevelError) Error() string {
	return fmt.Sprintf("%s: %v", ErrUnknownLevel, e.Value)
}

func (e UnknownLevelError) Unwrap() error { return ErrUnknownLevel }

// ComponentNotFoundError reports a plugin name that resolves neither as given nor under the
// built-in namespace.
type ComponentNotFoundError struct {
	Capability string
	Name       string
}

func (e ComponentNotFoundError) Error() string {
	return fmt.Sprintf("%s: %s %q", ErrComponentNotFound, e.Capability, e.Name)
}

func (e ComponentNotFoundError) Unwrap() error { return ErrComponentNotFound }

// ConfigValidationError wraps the reasons a configuration document was rejected.
type ConfigValidationError struct {
	Err error
}

func (e ConfigValidationError) Error() string {
	return fmt.Sprintf("%s: %v", ErrConfigInvalid, e.Err)
}

// Unwrap exposes both the sentinel and the underlying reasons to errors.Is.
func (e ConfigValidationError) Unwrap() []error {
	return []error{ErrConfigInvalid, e.Err}
}

// NewConfigValidationError wraps err, returning nil when err is nil.
func NewConfigValidationError(err error) error {
	if err == nil {
		return nil
	}
	return ConfigValidationError{Err: err}
}

// NotFoundError reports a name that is missing from one of the configuration maps.
type NotFoundError struct {
	Kind error
	Name string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s: %q", e.Kind, e.Name)
}

func (e NotFoundError) Unwrap() error { return e.Kind }

func JobNotFound(name string) error         { return NotFoundError{Kind: ErrJobNotFound, Name: name} }
func SourceNotFound(name string) error      { return NotFoundError{Kind: ErrSourceNotFound, Name: name} }
func DestinationNotFound(name string) error { return NotFoundError{Kind: ErrDestinationNotFound, Name: name} }
func GroupNotFound(name string) error       { return NotFoundError{Kind: ErrGroupNotFound, Name: name} }
func TargetNotFound(name string) error      { return NotFoundError{Kind: ErrTargetNotFound, Name: name} }

// InvalidSourceOutputError reports source data that cannot be converted into messages.
type InvalidSourceOutputError struct {
	Source string
	Reason string
}

func (e InvalidSourceOutputError) Error() string {
	return fmt.Sprintf("%s: source %q: %s", ErrInvalidSourceOutput, e.Source, e.Reason)
}

func (e InvalidSourceOutputError) Unwrap() error { return ErrInvalidSourceOutput }

// DeliveryError tags a transport failure with the destination that raised it.
type DeliveryError struct {
	Destination string
	Err         error
}

func (e DeliveryError) Error() string {
	return fmt.Sprintf("%s: destination %q: %v", ErrDeliveryFailed, e.Destination, e.Err)
}

func (e DeliveryError) Unwrap() []error {
	return []error{ErrDeliveryFailed, e.Err}
}

// NewDeliveryError wraps err for destination, returning nil when err is nil. Errors that are
// already tagged are returned unchanged.
func NewDeliveryError(destination string, err error) error {
	if err == nil {
		return nil
	}
	var de DeliveryError
	if sterrors.As(err, &de) {
		return err
	}
	return DeliveryError{Destination: destination, Err: err}
}

// InvalidParamError reports a plugin parameter that is missing or has the wrong type.
type InvalidParamError struct {
	Component string
	Param     string
	Reason    string
}

func (e InvalidParamError) Error() string {
	if e.Component == "" {
		return fmt.Sprintf("%s: %s: %s", ErrInvalidParam, e.Param, e.Reason)
	}
	return fmt.Sprintf("%s: %s.%s: %s", ErrInvalidParam, e.Component, e.Param, e.Reason)
}

func (e InvalidParamError) Unwrap() error { return ErrInvalidParam }
