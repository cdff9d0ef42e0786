package services

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrTransient     = errors.New("transient failure")
	ErrPermanent     = errors.New("permanent failure")
	ErrPostprocess   = errors.New("postprocessing failure")
	ErrIntegrity     = errors.New("integrity failure")
	ErrBinding       = errors.New("binding failure")
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrCancelled     = errors.New("cancelled")
)

// ErrorKind is the stable, log-friendly name of a marker.
type ErrorKind string

const (
	KindTransient     ErrorKind = "transient"
	KindPermanent     ErrorKind = "permanent"
	KindPostprocess   ErrorKind = "postprocess"
	KindIntegrity     ErrorKind = "integrity"
	KindBinding       ErrorKind = "binding"
	KindExternalTool  ErrorKind = "external_tool"
	KindValidation    ErrorKind = "validation"
	KindConfiguration ErrorKind = "configuration"
	KindNotFound      ErrorKind = "not_found"
	KindTimeout       ErrorKind = "timeout"
	KindCancelled     ErrorKind = "cancelled"
	KindUnknown       ErrorKind = "unknown"
)

var markerKinds = []struct {
	marker error
	kind   ErrorKind
}{
	{ErrCancelled, KindCancelled},
	{ErrPostprocess, KindPostprocess},
	{ErrIntegrity, KindIntegrity},
	{ErrPermanent, KindPermanent},
	{ErrBinding, KindBinding},
	{ErrValidation, KindValidation},
	{ErrConfiguration, KindConfiguration},
	{ErrNotFound, KindNotFound},
	{ErrTimeout, KindTimeout},
	{ErrTransient, KindTransient},
	{ErrExternalTool, KindExternalTool},
}

// Error carries a marker plus the stage context that produced it. Reason is a
// short code from a closed set (for example "drm_protected") when one applies.
type Error struct {
	Marker    error
	Stage     string
	Operation string
	Reason    string
	Message   string
	Cause     error
}

func (e *Error) Error() string {
	parts := make([]string, 0, 4)
	if e.Marker != nil {
		parts = append(parts, e.Marker.Error())
	}
	parts = append(parts, buildDetail(e.Stage, e.Operation, e.Message))
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Marker != nil {
		out = append(out, e.Marker)
	}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

// Wrap builds an error that includes stage context while tagging it with the
// provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &Error{
		Marker:    marker,
		Stage:     strings.TrimSpace(stage),
		Operation: strings.TrimSpace(operation),
		Message:   strings.TrimSpace(message),
		Cause:     err,
	}
}

// WrapReason is Wrap with a closed-set reason code attached.
func WrapReason(marker error, stage, operation, reason, message string, err error) error {
	wrapped := Wrap(marker, stage, operation, message, err).(*Error)
	wrapped.Reason = strings.TrimSpace(reason)
	return wrapped
}

// ErrorDetails is the flattened view of an error used for logging and for
// the job's last_error column.
type ErrorDetails struct {
	Kind      ErrorKind
	Stage     string
	Operation string
	Reason    string
	Message   string
	Cause     error
}

// Details extracts the outermost Error in the chain. Plain errors report
// KindUnknown with their text as the message.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	details := ErrorDetails{Kind: KindOf(err)}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		details.Stage = svcErr.Stage
		details.Operation = svcErr.Operation
		details.Reason = svcErr.Reason
		details.Message = svcErr.Message
		details.Cause = svcErr.Cause
	}
	if details.Message == "" {
		details.Message = strings.TrimSpace(err.Error())
	}
	return details
}

// KindOf reports the marker kind carried by err.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	for _, mk := range markerKinds {
		if errors.Is(err, mk.marker) {
			return mk.kind
		}
	}
	return KindUnknown
}

// Disposition is the worker's decision after a failed attempt.
type Disposition string

const (
	DispositionRetry     Disposition = "retry"
	DispositionTerminal  Disposition = "terminal"
	DispositionCancelled Disposition = "cancelled"
)

// FailureClass maps an execution error to retry or terminal handling.
// Postprocessing and integrity failures are never retried.
func FailureClass(err error) Disposition {
	switch KindOf(err) {
	case KindCancelled:
		return DispositionCancelled
	case KindTransient, KindTimeout:
		return DispositionRetry
	default:
		return DispositionTerminal
	}
}

// Summary renders a human-readable failure string drawn from the error's
// kind and reason, suitable for persisting as last_error.
func Summary(err error) string {
	if err == nil {
		return ""
	}
	details := Details(err)
	var b strings.Builder
	b.WriteString(string(details.Kind))
	if details.Reason != "" {
		b.WriteString(" (")
		b.WriteString(details.Reason)
		b.WriteString(")")
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	}
	return b.String()
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
