package registry

import (
	"errors"
	"fmt"
)

var (
	ErrNilEvent       = errors.New("nil event")
	ErrNilCallback    = errors.New("nil callback")
	ErrNegativeBudget = errors.New("negative drain budget")
)

// ContractViolation is the panic value raised by a broker built WithStrictContracts.
type ContractViolation struct {
	Op  string
	Err error
}

func (e *ContractViolation) Error() string {
	return fmt.Sprintf("registry: contract violation in %s: %v", e.Op, e.Err)
}

func (e *ContractViolation) Unwrap() error { return e.Err }

// ListenerPanic wraps a value recovered from a listener callback.
type ListenerPanic struct {
	Value any
	Stack []byte
}

func (e *ListenerPanic) Error() string {
	return fmt.Sprintf("registry: listener panicked: %v", e.Value)
}
