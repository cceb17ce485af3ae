package helpers

import (
	"errors"
	"fmt"
	"sync/atomic"

	"dex-datafeed/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type DatafeedError struct {
	Message string
	Cause   error
}

func (e *DatafeedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *DatafeedError) Unwrap() error {
	return e.Cause
}

// Distinct error types for errors.As checks
type MalformedSymbolError struct{ DatafeedError }
type UnknownSymbolError struct{ DatafeedError }
type UpstreamQueryError struct{ DatafeedError }
type ReferenceUnavailableError struct{ DatafeedError }
type TransportError struct{ DatafeedError }
type ConfigurationError struct{ DatafeedError }
type StorageError struct{ DatafeedError }

// RateLimitHint is appended to upstream query errors reported by the quote provider.
const RateLimitHint = "error in quote provider API, it generally happens due to their rate limit, retry in some time"

// -----------------------------------------------------------------------------

func NewMalformedSymbolError(symbol string) error {
	return &MalformedSymbolError{DatafeedError{
		Message: fmt.Sprintf("malformed symbol %q: expected <exchange>:<token>", symbol),
	}}
}

func NewUnknownSymbolError(symbol string) error {
	return &UnknownSymbolError{DatafeedError{
		Message: fmt.Sprintf("unknown symbol %q: no trades found", symbol),
	}}
}

func NewUpstreamQueryError(message string, cause error) error {
	return &UpstreamQueryError{DatafeedError{Message: message, Cause: cause}}
}

func NewReferenceUnavailableError(cause error) error {
	return &ReferenceUnavailableError{DatafeedError{Message: "reference price unavailable", Cause: cause}}
}

func NewTransportError(message string, cause error) error {
	return &TransportError{DatafeedError{Message: message, Cause: cause}}
}

func NewStorageError(message string, cause error) error {
	return &StorageError{DatafeedError{Message: message, Cause: cause}}
}

func NewConfigurationError(message string) error {
	return &ConfigurationError{DatafeedError{Message: message}}
}

// -----------------------------------------------------------------------------
// Predicates
// -----------------------------------------------------------------------------

func IsMalformedSymbol(err error) bool {
	var target *MalformedSymbolError
	return errors.As(err, &target)
}

func IsUnknownSymbol(err error) bool {
	var target *UnknownSymbolError
	return errors.As(err, &target)
}

func IsUpstreamQuery(err error) bool {
	var target *UpstreamQueryError
	return errors.As(err, &target)
}

func IsReferenceUnavailable(err error) bool {
	var target *ReferenceUnavailableError
	return errors.As(err, &target)
}

func IsTransport(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}

func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

func IsStorage(err error) bool {
	var target *StorageError
	return errors.As(err, &target)
}

// -----------------------------------------------------------------------------
// Error Handler
// -----------------------------------------------------------------------------

// ErrorHandler logs and counts failures that must not stop a running loop.
type ErrorHandler struct {
	Logger     *logger.Logger
	errorCount atomic.Int64
}

func NewErrorHandler(log *logger.Logger) *ErrorHandler {
	if log == nil {
		log = logger.NewLogger(nil, "ErrorHandler")
	}
	return &ErrorHandler{Logger: log}
}

// -----------------------------------------------------------------------------

func (e *ErrorHandler) ResetErrorCount() {
	e.errorCount.Store(0)
}

// -----------------------------------------------------------------------------

func (e *ErrorHandler) ErrorCount() int64 {
	return e.errorCount.Load()
}

// -----------------------------------------------------------------------------

// Handle logs err under context and reports whether there was one.
func (e *ErrorHandler) Handle(err error, context string) bool {
	if err == nil {
		return false
	}
	e.errorCount.Add(1)
	e.Logger.Error("Error in %s: %v", context, err)
	return true
}

// -----------------------------------------------------------------------------

// Warn is Handle at warning level, for expected conditions such as a missing seed bar.
func (e *ErrorHandler) Warn(err error, context string) bool {
	if err == nil {
		return false
	}
	e.errorCount.Add(1)
	e.Logger.Warning("%s: %v", context, err)
	return true
}
