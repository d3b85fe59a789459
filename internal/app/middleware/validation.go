package middleware

import (
	"context"
	"reflect"

	"github.com/go-playground/validator/v10"

	"stayfinder/internal/app/bus"
)

type Validator interface {
	Validate(ctx context.Context, message any) error
}

func Validation(v Validator) bus.Middleware {
	if v == nil {
		panic("middleware: validator required")
	}
	return func(next bus.Dispatcher) bus.Dispatcher {
		return bus.DispatchFunc(func(ctx context.Context, msg bus.Message) (any, error) {
			if err := v.Validate(ctx, msg); err != nil {
				return nil, err
			}
			return next.Dispatch(ctx, msg)
		})
	}
}

// StructValidator runs `validate` struct tags on messages.
type StructValidator struct {
	validate *validator.Validate
}

func NewStructValidator() *StructValidator {
	return &StructValidator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

func (v *StructValidator) Validate(ctx context.Context, message any) error {
	if message == nil {
		return nil
	}
	kind := reflect.Indirect(reflect.ValueOf(message)).Kind()
	if kind != reflect.Struct {
		return nil
	}
	return v.validate.StructCtx(ctx, message)
}
