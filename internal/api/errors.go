package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/abi"
	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/engine"
	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/games"
	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/replay"
	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/scan"
)

// ErrorBuilder helps construct structured errors with context
type ErrorBuilder struct {
	errType   string
	message   string
	context   map[string]interface{}
	requestID string
}

// NewError creates a new error builder
func NewError(errType, message string) *ErrorBuilder {
	return &ErrorBuilder{
		errType: errType,
		message: message,
		context: make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (eb *ErrorBuilder) WithContext(key string, value interface{}) *ErrorBuilder {
	eb.context[key] = value
	return eb
}

// WithRequestID adds request ID to the error
func (eb *ErrorBuilder) WithRequestID(requestID string) *ErrorBuilder {
	eb.requestID = requestID
	return eb
}

// WithCause adds the underlying cause error
func (eb *ErrorBuilder) WithCause(err error) *ErrorBuilder {
	if err != nil {
		eb.context["cause"] = err.Error()
	}
	return eb
}

// Build creates the final EngineError
func (eb *ErrorBuilder) Build() EngineError {
	return EngineError{
		Type:      eb.errType,
		Message:   eb.message,
		Context:   eb.context,
		RequestID: eb.requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// classify maps engine errors to an error type and HTTP status.
func classify(err error) (string, int) {
	var engineErr EngineError
	switch {
	case errors.As(err, &engineErr):
		return engineErr.Type, http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTypeTimeout, http.StatusGatewayTimeout
	case errors.Is(err, scan.ErrUnknownMetric):
		return ErrTypeMetricNotFound, http.StatusNotFound
	case errors.Is(err, scan.ErrInvalidRange), errors.Is(err, scan.ErrInvalidTarget), errors.Is(err, scan.ErrInvalidParams), errors.Is(err, replay.ErrNilSeed):
		return ErrTypeInvalidParams, http.StatusBadRequest
	case errors.Is(err, games.ErrInvalidMove):
		return ErrTypeRevert, http.StatusUnprocessableEntity
	case errors.Is(err, abi.ErrUnknownSelector):
		return ErrTypeUnknownSelector, http.StatusNotFound
	case errors.Is(err, abi.ErrShortCalldata), errors.Is(err, abi.ErrArgumentCount), errors.Is(err, abi.ErrBadOffset):
		return ErrTypeInvalidCalldata, http.StatusBadRequest
	case errors.Is(err, engine.ErrEmptyWord), errors.Is(err, engine.ErrInvalidWord), errors.Is(err, engine.ErrWordOverflow):
		return ErrTypeInvalidWord, http.StatusBadRequest
	default:
		return ErrTypeInternal, http.StatusInternalServerError
	}
}

// ErrorHandler provides centralized error handling with logging
type ErrorHandler struct {
	logger logrus.FieldLogger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger logrus.FieldLogger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleError classifies err and writes the matching structured response.
func (eh *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	errType, status := classify(err)

	var engineErr EngineError
	if !errors.As(err, &engineErr) {
		message := err.Error()
		if status == http.StatusInternalServerError {
			message = "Internal server error"
		}
		engineErr = NewError(errType, message).
			WithCause(err).
			Build()
	}
	engineErr.RequestID = middleware.GetReqID(r.Context())
	if engineErr.Context == nil {
		engineErr.Context = make(map[string]interface{})
	}
	engineErr.Context["path"] = r.URL.Path
	engineErr.Context["method"] = r.Method

	eh.logError(r, engineErr, status)
	eh.writeErrorResponse(w, status, engineErr)
}

// HandleValidationError reports every problem in err, which may be a
// multierr aggregate.
func (eh *ErrorHandler) HandleValidationError(w http.ResponseWriter, r *http.Request, err error) {
	problems := multierr.Errors(err)
	messages := make([]string, len(problems))
	for i, p := range problems {
		messages[i] = p.Error()
	}

	engineErr := NewError(ErrTypeValidation, fmt.Sprintf("Validation failed: %v", err)).
		WithRequestID(middleware.GetReqID(r.Context())).
		WithContext("errors", messages).
		WithContext("path", r.URL.Path).
		WithContext("method", r.Method).
		Build()

	eh.logError(r, engineErr, http.StatusBadRequest)
	eh.writeErrorResponse(w, http.StatusBadRequest, engineErr)
}

// logError logs the error with appropriate level and context
func (eh *ErrorHandler) logError(r *http.Request, engineErr EngineError, status int) {
	category := GetErrorCategory(engineErr.Type)

	fields := logrus.Fields{
		"type":       engineErr.Type,
		"category":   category,
		"status":     status,
		"request_id": engineErr.RequestID,
		"method":     r.Method,
		"path":       r.URL.Path,
		"remote_ip":  r.RemoteAddr,
	}
	if cause, ok := engineErr.Context["cause"]; ok {
		fields["cause"] = cause
	}

	entry := eh.logger.WithFields(fields)
	if status >= http.StatusInternalServerError {
		entry.Error("error_occurred: " + engineErr.Message)
		return
	}
	entry.Warn("error_occurred: " + engineErr.Message)
}

// writeErrorResponse writes the error response as JSON
func (eh *ErrorHandler) writeErrorResponse(w http.ResponseWriter, status int, engineErr EngineError) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Engine-Version", EngineVersion)
	w.Header().Set("X-Error-Type", engineErr.Type)
	w.Header().Set("X-Error-Category", string(GetErrorCategory(engineErr.Type)))
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(engineErr); err != nil {
		eh.logger.WithError(err).Error("error_response_encode_failed")
	}
}

// RecoveryHandler provides panic recovery with structured error logging
func (eh *ErrorHandler) RecoveryHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				requestID := middleware.GetReqID(r.Context())

				eh.logger.WithFields(logrus.Fields{
					"request_id": requestID,
					"path":       r.URL.Path,
					"method":     r.Method,
					"panic":      fmt.Sprintf("%v", rvr),
				}).Error("panic_recovered")

				engineErr := NewError(ErrTypeInternal, "Internal server error").
					WithRequestID(requestID).
					WithContext("path", r.URL.Path).
					WithContext("method", r.Method).
					Build()

				eh.writeErrorResponse(w, http.StatusInternalServerError, engineErr)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
