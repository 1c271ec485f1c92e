// Package suberrors defines the error taxonomy shared by the subtitle
// data model and the translation pipeline. Each kind is a distinct
// type so callers can classify failures with errors.As instead of
// string matching, mirroring the base/derived exception hierarchy the
// Python original uses.
package suberrors

import "fmt"

// SubtitleError is the base of all subtitle data-model failures.
type SubtitleError struct {
	Msg string
	Err error
}

func (e *SubtitleError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *SubtitleError) Unwrap() error { return e.Err }

// SubtitleParseError is a fatal format/parse failure for a file.
type SubtitleParseError struct {
	SubtitleError
}

func NewSubtitleParseError(msg string, err error) *SubtitleParseError {
	return &SubtitleParseError{SubtitleError{Msg: msg, Err: err}}
}

// SettingsError signals an ambiguous or invalid settings coercion.
type SettingsError struct {
	SubtitleError
}

func NewSettingsError(msg string) *SettingsError {
	return &SettingsError{SubtitleError{Msg: msg}}
}

// TranslationError is the base of all translation-pipeline failures.
type TranslationError struct {
	Msg       string
	Err       error
	Retryable bool
}

func (e *TranslationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *TranslationError) Unwrap() error { return e.Err }

// TranslationImpossibleError is terminal: abort the run.
type TranslationImpossibleError struct{ TranslationError }

func NewTranslationImpossibleError(msg string, err error) *TranslationImpossibleError {
	return &TranslationImpossibleError{TranslationError{Msg: msg, Err: err}}
}

// ProviderConfigurationError is terminal: the user must fix settings.
type ProviderConfigurationError struct{ TranslationError }

func NewProviderConfigurationError(msg string) *ProviderConfigurationError {
	return &ProviderConfigurationError{TranslationError{Msg: msg}}
}

// TranslationAbortedError signals cooperative cancellation.
type TranslationAbortedError struct{ TranslationError }

func NewTranslationAbortedError() *TranslationAbortedError {
	return &TranslationAbortedError{TranslationError{Msg: "translation aborted"}}
}

// TranslationResponseError is a bad/empty response; retryable.
type TranslationResponseError struct{ TranslationError }

func NewTranslationResponseError(msg string, err error) *TranslationResponseError {
	return &TranslationResponseError{TranslationError{Msg: msg, Err: err, Retryable: true}}
}

// ClientResponseError is an HTTP 4xx from a client; non-retryable.
type ClientResponseError struct {
	TranslationError
	StatusCode int
}

func NewClientResponseError(statusCode int, msg string) *ClientResponseError {
	return &ClientResponseError{
		TranslationError: TranslationError{Msg: msg, Retryable: false},
		StatusCode:       statusCode,
	}
}

// ServerResponseError is an HTTP 5xx / timeout / transport error; retryable.
type ServerResponseError struct {
	TranslationError
	StatusCode int
}

func NewServerResponseError(statusCode int, msg string, err error) *ServerResponseError {
	return &ServerResponseError{
		TranslationError: TranslationError{Msg: msg, Err: err, Retryable: true},
		StatusCode:       statusCode,
	}
}

// Validation errors: attached to a batch, may trigger reparse/retry.

type UnmatchedLinesError struct{ TranslationError }

func NewUnmatchedLinesError(msg string) *UnmatchedLinesError {
	return &UnmatchedLinesError{TranslationError{Msg: msg, Retryable: true}}
}

type EmptyLinesError struct{ TranslationError }

func NewEmptyLinesError(msg string) *EmptyLinesError {
	return &EmptyLinesError{TranslationError{Msg: msg, Retryable: true}}
}

type LineTooLongError struct{ TranslationError }

func NewLineTooLongError(msg string) *LineTooLongError {
	return &LineTooLongError{TranslationError{Msg: msg, Retryable: true}}
}

type TooManyNewlinesError struct{ TranslationError }

func NewTooManyNewlinesError(msg string) *TooManyNewlinesError {
	return &TooManyNewlinesError{TranslationError{Msg: msg, Retryable: true}}
}

type UntranslatedLinesError struct{ TranslationError }

func NewUntranslatedLinesError(msg string) *UntranslatedLinesError {
	return &UntranslatedLinesError{TranslationError{Msg: msg, Retryable: true}}
}

// IsRetryable reports whether err carries a Retryable=true TranslationError.
func IsRetryable(err error) bool {
	switch v := err.(type) {
	case *TranslationResponseError:
		return v.Retryable
	case *ServerResponseError:
		return v.Retryable
	case *UnmatchedLinesError:
		return v.Retryable
	case *EmptyLinesError:
		return v.Retryable
	case *LineTooLongError:
		return v.Retryable
	case *TooManyNewlinesError:
		return v.Retryable
	case *UntranslatedLinesError:
		return v.Retryable
	case *ClientResponseError:
		return v.Retryable
	case *TranslationImpossibleError:
		return v.Retryable
	case *ProviderConfigurationError:
		return v.Retryable
	case *TranslationAbortedError:
		return v.Retryable
	default:
		return false
	}
}
