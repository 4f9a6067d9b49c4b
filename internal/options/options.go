// Package options implements the functional-option pattern shared by the
// parser, writer, spool and processor configuration types.
package options

import (
	"errors"
	"fmt"

	"github.com/arloliu/mddup/errs"
)

// Option configures a target of type T.
type Option[T any] interface {
	apply(T) error
}

// Func wraps a configuration function as an Option.
type Func[T any] struct {
	name string
	fn   func(T) error
}

func (f *Func[T]) apply(target T) error {
	return f.fn(target)
}

// New creates an option that may reject its value.
// The name identifies the option in error messages.
func New[T any](name string, fn func(T) error) *Func[T] {
	return &Func[T]{name: name, fn: fn}
}

// NoError creates an option that always succeeds.
func NoError[T any](name string, fn func(T)) *Func[T] {
	return &Func[T]{
		name: name,
		fn: func(target T) error {
			fn(target)
			return nil
		},
	}
}

// Apply applies opts to target in order and stops at the first failure.
// Failures are reported as errs.ErrInvalidOption.
func Apply[T any](target T, opts ...Option[T]) error {
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.apply(target); err != nil {
			name := "option"
			if f, ok := opt.(*Func[T]); ok && f.name != "" {
				name = f.name
			}
			if errors.Is(err, errs.ErrInvalidOption) {
				return fmt.Errorf("%s: %w", name, err)
			}

			return fmt.Errorf("%s: %w: %w", name, errs.ErrInvalidOption, err)
		}
	}

	return nil
}

// Positive returns an error unless n >= 1.
func Positive(n int) error {
	if n < 1 {
		return fmt.Errorf("must be positive, got %d", n)
	}

	return nil
}
