package cloudpath

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	emptyTokenMessageConstant                 = "token response did not include a token"
	invalidConfigurationMessageConstant       = "invalid client configuration"
	unexpectedStatusTemplateConstant          = "unexpected status %d"
	authErrorTemplateConstant                 = "authentication failed: %v"
	authErrorStatusTemplateConstant           = "authentication failed (status %d): %v"
	submitErrorTemplateConstant               = "credential creation failed: %v"
	submitErrorStatusTemplateConstant         = "credential creation failed (status %d): %v"
	invalidConfigurationErrorTemplateConstant = "%s: %s is required"
)

var (
	// ErrEmptyToken indicates the token endpoint answered without a usable token.
	ErrEmptyToken = errors.New(emptyTokenMessageConstant)
	// ErrInvalidConfiguration indicates a required client setting was not provided.
	ErrInvalidConfiguration = errors.New(invalidConfigurationMessageConstant)
)

// ConfigurationError names the missing client setting.
type ConfigurationError struct {
	Field string
}

// Error describes the missing setting.
func (configurationError ConfigurationError) Error() string {
	return fmt.Sprintf(invalidConfigurationErrorTemplateConstant, ErrInvalidConfiguration, configurationError.Field)
}

// Is matches ErrInvalidConfiguration.
func (configurationError ConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

// AuthError reports a failed token request. StatusCode is zero when no response was received.
type AuthError struct {
	StatusCode int
	Cause      error
}

// Error describes the authentication failure.
func (authError AuthError) Error() string {
	if authError.StatusCode > 0 {
		return fmt.Sprintf(authErrorStatusTemplateConstant, authError.StatusCode, authError.Cause)
	}
	return fmt.Sprintf(authErrorTemplateConstant, authError.Cause)
}

// Unwrap exposes the underlying cause.
func (authError AuthError) Unwrap() error {
	return authError.Cause
}

// SubmitError reports a failed credential creation call. StatusCode is zero when no response was received.
type SubmitError struct {
	StatusCode int
	Body       string
	Cause      error
}

// Error describes the submission failure.
func (submitError SubmitError) Error() string {
	if submitError.StatusCode > 0 {
		return fmt.Sprintf(submitErrorStatusTemplateConstant, submitError.StatusCode, submitError.Cause)
	}
	return fmt.Sprintf(submitErrorTemplateConstant, submitError.Cause)
}

// Unwrap exposes the underlying cause.
func (submitError SubmitError) Unwrap() error {
	return submitError.Cause
}

// Unauthorized reports whether the target rejected the session token.
func (submitError SubmitError) Unauthorized() bool {
	return submitError.StatusCode == http.StatusUnauthorized || submitError.StatusCode == http.StatusForbidden
}

func unexpectedStatusError(statusCode int) error {
	return fmt.Errorf(unexpectedStatusTemplateConstant, statusCode)
}
