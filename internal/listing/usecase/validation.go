package usecase

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jlmsdev/webCarros/internal/listing/domain"
)

var whatsappPattern = regexp.MustCompile(`^\d{11,12}$`)

var fieldMessages = map[string]string{
	"name":        "car name is required",
	"model":       "car model is required",
	"year":        "car year is required",
	"km":          "mileage is required",
	"price":       "price is required",
	"city":        "city is required",
	"whatsapp":    "contact phone is required",
	"description": "description is required",
}

const invalidPhoneMessage = "invalid phone number"

// DraftValidator checks draft fields against the listing form schema.
type DraftValidator struct {
	validate *validator.Validate
}

func NewDraftValidator() *DraftValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("whatsapp", func(fl validator.FieldLevel) bool {
		return whatsappPattern.MatchString(fl.Field().String())
	})
	return &DraftValidator{validate: v}
}

// Validate returns nil or a *domain.ValidationError with one message per failing field.
func (dv *DraftValidator) Validate(fields domain.DraftFields) *domain.ValidationError {
	err := dv.validate.Struct(fields)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &domain.ValidationError{Fields: map[string]string{"_": err.Error()}}
	}
	out := &domain.ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		msg := fieldMessages[fe.Field()]
		if fe.Tag() == "whatsapp" {
			msg = invalidPhoneMessage
		}
		if msg == "" {
			msg = fe.Error()
		}
		out.Fields[fe.Field()] = msg
	}
	return out
}
