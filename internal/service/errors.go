package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Error kinds. Handlers map them to HTTP status with errors.Is; anything else
// coming out of a service is a persistence failure.
var (
	ErrValidacion   = errors.New("validacion")
	ErrNoEncontrado = errors.New("no encontrado")
	ErrConflicto    = errors.New("conflicto")
)

// Error carries a client-facing message plus its kind.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func validacion(format string, args ...any) error {
	return &Error{Kind: ErrValidacion, Msg: fmt.Sprintf(format, args...)}
}

func noEncontrado(format string, args ...any) error {
	return &Error{Kind: ErrNoEncontrado, Msg: fmt.Sprintf(format, args...)}
}

func conflicto(format string, args ...any) error {
	return &Error{Kind: ErrConflicto, Msg: fmt.Sprintf(format, args...)}
}

// EsErrorDeDominio reports whether err is a client-side error (validation,
// not found, conflict) rather than a persistence failure. Retrying it is pointless.
func EsErrorDeDominio(err error) bool {
	return errors.Is(err, ErrValidacion) || errors.Is(err, ErrNoEncontrado) || errors.Is(err, ErrConflicto)
}

// siNoExiste turns gorm.ErrRecordNotFound into a NotFound error with msg and
// passes any other error through untouched.
func siNoExiste(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return noEncontrado("%s", msg)
	}
	return err
}
