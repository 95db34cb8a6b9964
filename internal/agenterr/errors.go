package agenterr

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnavailable   = errors.New("collaborator unavailable")
	ErrInvalidParams = errors.New("invalid action params")
	ErrNotFound      = errors.New("not found")
)

// Category classifies a failure for rendering. It never reaches the user as-is.
type Category string

const (
	CategoryInvalidParams      Category = "invalid_params"
	CategoryPlatform           Category = "platform"
	CategoryNetwork            Category = "network"
	CategoryUnexpectedResponse Category = "unexpected_response"
	CategoryNotFound           Category = "not_found"
	CategoryAccess             Category = "access"
	CategoryUnavailable        Category = "unavailable"
)

// Failure is the structured error returned by the fetcher and the action
// plugins. Op names the operation (an action name or a fetch kind) and
// Detail keeps the diagnostic text for logs.
type Failure struct {
	Op       string
	Category Category
	Detail   string
	Err      error
}

func (f *Failure) Error() string {
	parts := []string{f.Op, string(f.Category)}
	if detail := strings.TrimSpace(f.Detail); detail != "" {
		parts = append(parts, detail)
	}
	message := strings.Join(parts, ": ")
	if f.Err != nil && f.Err.Error() != f.Detail {
		message += ": " + f.Err.Error()
	}
	return message
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func New(op string, category Category, detail string) *Failure {
	return &Failure{Op: op, Category: category, Detail: detail}
}

func Wrap(op string, category Category, err error) *Failure {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return &Failure{Op: op, Category: category, Detail: detail, Err: err}
}

// APIError is a non-zero code reported by the platform's open API.
type APIError struct {
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("platform error %d: %s", e.Code, e.Msg)
}

// Classify turns a collaborator error into a Failure for op. Existing
// failures are returned unchanged.
func Classify(op string, err error) *Failure {
	if err == nil {
		return nil
	}
	var failure *Failure
	if errors.As(err, &failure) {
		return failure
	}
	var apiErr *APIError
	switch {
	case errors.Is(err, ErrNotFound):
		return Wrap(op, CategoryNotFound, err)
	case errors.As(err, &apiErr):
		return &Failure{Op: op, Category: CategoryPlatform, Detail: strings.TrimSpace(apiErr.Msg), Err: err}
	case errors.Is(err, ErrInvalidParams):
		return Wrap(op, CategoryInvalidParams, err)
	case errors.Is(err, ErrUnavailable):
		return Wrap(op, CategoryUnavailable, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return &Failure{Op: op, Category: CategoryNetwork, Detail: "timeout", Err: err}
	default:
		return Wrap(op, CategoryNetwork, err)
	}
}

// As extracts the Failure carried by err, if any.
func As(err error) (*Failure, bool) {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure, true
	}
	return nil, false
}

// WithOp classifies err and reports it under op, leaving the original
// failure untouched.
func WithOp(op string, err error) *Failure {
	failure := Classify(op, err)
	if failure == nil || failure.Op == op {
		return failure
	}
	copied := *failure
	copied.Op = op
	return &copied
}
