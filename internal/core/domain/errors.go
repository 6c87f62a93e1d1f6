package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrInvalidState     = errors.New("invalid order state")
	ErrValidation       = errors.New("validation error")
	ErrGateway          = errors.New("payment gateway error")
)

var (
	ErrEventNotFound      = fmt.Errorf("event %w", ErrNotFound)
	ErrPriceClassNotFound = fmt.Errorf("price class %w", ErrNotFound)
	ErrTicketNotFound     = fmt.Errorf("ticket %w", ErrNotFound)
	ErrOrderNotFound      = fmt.Errorf("order %w", ErrNotFound)
	ErrSessionRetired     = fmt.Errorf("session retired, start a new order: %w", ErrNotFound)
	ErrVariantNotFound    = fmt.Errorf("payment variant %w", ErrNotFound)
)

var (
	ErrOrderExpired     = fmt.Errorf("order has expired: %w", ErrInvalidState)
	ErrOrderChanged     = fmt.Errorf("order changed during payment: %w", ErrInvalidState)
	ErrEventClosed      = errors.New("event is not open for sale")
	ErrSessionKeyFormat = errors.New("malformed session key")
)

type CapacityError struct {
	EventID   uuid.UUID
	Requested int
	Available int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("requested %d tickets but only %d seats are available", e.Requested, e.Available)
}

func (e *CapacityError) Is(target error) bool {
	return target == ErrCapacityExceeded
}

type StateError struct {
	OrderID uuid.UUID
	Status  PaymentStatus
	Op      string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s order %s in status %s", e.Op, e.OrderID, e.Status)
}

func (e *StateError) Is(target error) bool {
	return target == ErrInvalidState
}

// ValidationError carries one message per offending field.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = msg
}

func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// GatewayError wraps a failed gateway call. Error() never includes the
// underlying message, which may carry provider detail; Unwrap exposes it
// for logging.
type GatewayError struct {
	Variant string
	Op      string
	Err     error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment %s via %s failed", e.Op, e.Variant)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

func (e *GatewayError) Is(target error) bool {
	return target == ErrGateway
}
