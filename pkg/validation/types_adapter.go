package validation

import (
	"reflect"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/go-playground/validator/v10"

	"github.com/geniusappsio/tramita/pkg/types"
)

type validationValuer interface {
	ValidationValue() interface{}
}

// registerNullTypes lets struct tags see inside null.* values. Invalid values report nil so omitempty skips them.
func registerNullTypes(v *validator.Validate) {
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if val, ok := field.Interface().(null.String); ok && val.Valid {
			return val.String
		}
		return nil
	}, null.String{})

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if val, ok := field.Interface().(null.Int); ok && val.Valid {
			return val.Int
		}
		return nil
	}, null.Int{})

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if val, ok := field.Interface().(null.Time); ok && val.Valid {
			return val.Time
		}
		return nil
	}, null.Time{})
}

// registerPatchFields unwraps types.Field[T] used by partial-update DTOs.
func registerPatchFields(v *validator.Validate) {
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if val, ok := field.Interface().(validationValuer); ok {
			return val.ValidationValue()
		}
		return nil
	},
		types.Field[string]{},
		types.Field[int]{},
		types.Field[bool]{},
		types.Field[time.Time]{},
		types.Field[[]uint64]{},
		types.Field[map[string]interface{}]{},
		types.Field[[]interface{}]{},
		types.Field[null.String]{},
		types.Field[null.Int]{},
		types.Field[null.Time]{},
		types.Field[null.Uint64]{},
	)
}
