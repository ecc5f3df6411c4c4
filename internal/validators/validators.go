// Package validators builds the request validator shared by services.
package validators

import (
	"reflect"
	"strings"

	"kogma/internal/cnpj"
	"kogma/models"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// New returns a validator that knows the order enums, decimal quantities and
// CNPJ values. Field names in errors follow the json tags.
func New(strictCNPJ bool) *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(f reflect.Value) any {
		d, _ := f.Interface().(decimal.Decimal)
		return d.InexactFloat64()
	}, decimal.Decimal{})

	// fl.Field() holds the float64 from the custom type func; the scale
	// check needs the decimal itself
	must(v.RegisterValidation("qty", func(fl validator.FieldLevel) bool {
		f := reflect.Indirect(fl.Parent()).FieldByName(fl.StructFieldName())
		d, ok := f.Interface().(decimal.Decimal)
		return ok && models.ValidQty(d)
	}))
	must(v.RegisterValidation("order_unit", func(fl validator.FieldLevel) bool {
		return models.Unit(fl.Field().String()).Valid()
	}))
	must(v.RegisterValidation("material_unit", func(fl validator.FieldLevel) bool {
		return models.MaterialUnit(fl.Field().String()).Valid()
	}))
	must(v.RegisterValidation("order_status", func(fl validator.FieldLevel) bool {
		return models.OrderStatus(fl.Field().String()).Valid()
	}))
	must(v.RegisterValidation("process_name", func(fl validator.FieldLevel) bool {
		return models.ProcessName(fl.Field().String()).Valid()
	}))
	must(v.RegisterValidation("cnpj", func(fl validator.FieldLevel) bool {
		_, err := cnpj.ForStorage(fl.Field().String(), strictCNPJ)
		return err == nil
	}))
	return v
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
