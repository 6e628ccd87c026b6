package service

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrReservationNotFound = errors.New("reservation not found")
	ErrValidation          = errors.New("validation failed")
	ErrMissingID           = errors.New("reservation id is required")
)

// Field keys reported in a ValidationError. They match the JSON names of
// the reservation form so the UI can attach each message to its input.
const (
	FieldPartySize  = "partySize"
	FieldWhiteboard = "whiteboard"
	FieldProjector  = "projector"
	FieldComputer   = "computer"
	FieldEndAt      = "endAt"
)

// ValidationError carries per-field messages. errors.Is(err, ErrValidation)
// holds for every ValidationError.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "validation failed: " + strings.Join(keys, ", ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
