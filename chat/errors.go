package chat

import (
	"errors"
	"fmt"
)

// ErrNoActiveForm is returned when a form value is set with no form open.
var ErrNoActiveForm = errors.New("no hay ningún formulario activo")

// FieldError rejects a value typed into the active form.
type FieldError struct {
	Name   string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("campo %q: %s", e.Name, e.Reason)
}
