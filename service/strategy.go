package service

import (
	"context"
	"errors"
	"fmt"
)

// Attempt is one named way of producing a result.
type Attempt[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

var errEmptyResult = errors.New("empty result")

// FirstSuccess runs attempts in order and returns the first result that
// accept allows, with the name of the attempt that produced it. When every
// attempt fails the returned error joins all failures. A cancelled context
// stops the iteration.
func FirstSuccess[T any](ctx context.Context, attempts []Attempt[T], accept func(T) bool) (T, string, error) {
	var zero T
	var errs []error
	for _, attempt := range attempts {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		result, err := attempt.Run(ctx)
		if err == nil && accept != nil && !accept(result) {
			err = errEmptyResult
		}
		if err == nil {
			return result, attempt.Name, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", attempt.Name, err))
	}
	if len(errs) == 0 {
		return zero, "", errors.New("no strategies configured")
	}
	return zero, "", errors.Join(errs...)
}
