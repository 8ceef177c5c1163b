package credentials

import (
	"errors"
	"fmt"
)

const (
	sourceUnreadableMessageConstant    = "credential export unreadable"
	missingColumnMessageConstant       = "required column missing"
	missingFieldMessageConstant        = "required field empty"
	malformedRowMessageConstant        = "malformed row"
	loadErrorTemplateConstant          = "load %s: %s"
	loadErrorColumnTemplateConstant    = "load %s: %s %q"
	loadErrorRowTemplateConstant       = "load %s: row %d: %s"
	loadErrorRowColumnTemplateConstant = "load %s: row %d: %s %q"
	loadErrorCauseTemplateConstant     = "%s: %v"
)

var (
	// ErrSourceUnreadable indicates the export could not be opened or read.
	ErrSourceUnreadable = errors.New(sourceUnreadableMessageConstant)
	// ErrMissingColumn indicates the header lacks a required column.
	ErrMissingColumn = errors.New(missingColumnMessageConstant)
	// ErrMissingField indicates a row carries an empty secret value.
	ErrMissingField = errors.New(missingFieldMessageConstant)
	// ErrMalformedRow indicates the CSV structure of a row could not be parsed.
	ErrMalformedRow = errors.New(malformedRowMessageConstant)
)

// LoadError describes why a credential export could not be loaded.
// Row is the one-based data row number, or zero when the failure is not row specific.
type LoadError struct {
	Path   string
	Column string
	Row    int
	Kind   error
	Cause  error
}

// Error describes the load failure.
func (loadError LoadError) Error() string {
	var message string
	switch {
	case loadError.Row > 0 && len(loadError.Column) > 0:
		message = fmt.Sprintf(loadErrorRowColumnTemplateConstant, loadError.Path, loadError.Row, loadError.Kind, loadError.Column)
	case loadError.Row > 0:
		message = fmt.Sprintf(loadErrorRowTemplateConstant, loadError.Path, loadError.Row, loadError.Kind)
	case len(loadError.Column) > 0:
		message = fmt.Sprintf(loadErrorColumnTemplateConstant, loadError.Path, loadError.Kind, loadError.Column)
	default:
		message = fmt.Sprintf(loadErrorTemplateConstant, loadError.Path, loadError.Kind)
	}
	if loadError.Cause != nil {
		return fmt.Sprintf(loadErrorCauseTemplateConstant, message, loadError.Cause)
	}
	return message
}

// Is reports whether target matches the failure kind.
func (loadError LoadError) Is(target error) bool {
	return loadError.Kind != nil && target == loadError.Kind
}

// Unwrap exposes the underlying cause.
func (loadError LoadError) Unwrap() error {
	return loadError.Cause
}
