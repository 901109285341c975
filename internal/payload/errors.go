package payload

import (
	"errors"
	"fmt"
)

// UnsupportedVersionError is returned when a document was produced by a newer
// format revision than this build supports. It is always raised before any
// mutation.
type UnsupportedVersionError struct {
	Version   int
	Supported int
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported payload version %d (supported <= %d)", e.Version, e.Supported)
}

// MalformedError is returned when a document is empty, cannot be decoded, or
// violates the payload invariants.
type MalformedError struct {
	Reason string
	Err    error
}

func (e *MalformedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed payload: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed payload: %s", e.Reason)
}

func (e *MalformedError) Unwrap() error {
	return e.Err
}

// IsUnsupportedVersion reports whether err is an UnsupportedVersionError.
// Uses errors.As to handle wrapped errors.
func IsUnsupportedVersion(err error) bool {
	var ve *UnsupportedVersionError
	return errors.As(err, &ve)
}

// IsMalformed reports whether err is a MalformedError.
func IsMalformed(err error) bool {
	var me *MalformedError
	return errors.As(err, &me)
}

// CheckVersion refuses versions newer than FormatVersion and non-positive
// versions.
func CheckVersion(version int) error {
	if version > FormatVersion {
		return &UnsupportedVersionError{Version: version, Supported: FormatVersion}
	}
	if version < 1 {
		return &MalformedError{Reason: fmt.Sprintf("version must be positive, got %d", version)}
	}
	return nil
}
