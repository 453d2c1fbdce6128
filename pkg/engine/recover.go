package engine

import "fmt"

// guard calls fn and returns a panic raised inside it as an error, so a
// misbehaving trigger, condition or action fails its run like any other error.
func guard[T any](fn func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T

			result = zero
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return fn()
}
