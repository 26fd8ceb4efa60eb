package middleware

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	validate := validator.New()

	commonTags := []string{
		"json",
		"param",
		"query",
	}

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range commonTags {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return ""
	})

	// gateway chat identifiers: "<id>@s.whatsapp.net" or "<id>@g.us"
	validate.RegisterValidation("chatid", func(fl validator.FieldLevel) bool {
		id, ok := fl.Field().Interface().(string)
		if !ok || id == "" {
			return false
		}
		return strings.HasSuffix(id, "@s.whatsapp.net") || strings.HasSuffix(id, "@g.us")
	})

	return &Validator{
		validate: validate,
	}
}

func (v *Validator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}
