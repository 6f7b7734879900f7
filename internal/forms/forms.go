package forms

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"taxclient/internal/apperr"
	"taxclient/internal/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

var itrMessages = map[string]string{
	"formType":                     "Please select ITR form type",
	"assessmentYear":               "Assessment year is required",
	"financialYear":                "Financial year is required",
	"formData.personalInfo.pan":    "Valid PAN is required",
	"formData.personalInfo.mobile": "Valid mobile number is required",
	"formData.personalInfo.email":  "Valid email is required",
}

var gstMessages = map[string]string{
	"gstin":      "Valid GSTIN is required",
	"returnType": "Please select return type",
	"period":     "Period is required",
}

var tdsMessages = map[string]string{
	"tan":           "Valid TAN is required",
	"quarter":       "Please select quarter",
	"financialYear": "Financial year is required",
	"formType":      "Please select form type",
}

var consultationMessages = map[string]string{
	"expertId":      "Please select an expert",
	"serviceType":   "Please select service type",
	"scheduledDate": "Please select date and time",
}

// ValidateItrForm checks an ITR form before it is sent anywhere.
func ValidateItrForm(input model.ItrFormInput) (model.ItrFormInput, error) {
	if err := check(input, itrMessages); err != nil {
		return model.ItrFormInput{}, err
	}
	return input, nil
}

func ValidateGstReturn(input model.GstReturnInput) (model.GstReturnInput, error) {
	if err := check(input, gstMessages); err != nil {
		return model.GstReturnInput{}, err
	}
	return input, nil
}

func ValidateTdsReturn(input model.TdsReturnInput) (model.TdsReturnInput, error) {
	if err := check(input, tdsMessages); err != nil {
		return model.TdsReturnInput{}, err
	}
	return input, nil
}

// ValidateConsultation checks a booking and rewrites scheduledDate as a
// UTC timestamp.
func ValidateConsultation(input model.ConsultationInput) (model.ConsultationInput, error) {
	if err := check(input, consultationMessages); err != nil {
		return model.ConsultationInput{}, err
	}
	scheduled, err := NormalizeScheduledDate(input.ScheduledDate)
	if err != nil {
		return model.ConsultationInput{}, &apperr.ValidationError{Fields: []apperr.FieldError{{
			Field:   "scheduledDate",
			Tag:     "datetime",
			Message: "Invalid date",
		}}}
	}
	input.ScheduledDate = scheduled
	return input, nil
}

// check runs the struct rules and collects every failing field.
func check(input any, messages map[string]string) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	result := &apperr.ValidationError{Fields: make([]apperr.FieldError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		path := fieldPath(fe.Namespace())
		result.Fields = append(result.Fields, apperr.FieldError{
			Field:   path,
			Tag:     fe.Tag(),
			Message: message(path, fe, messages),
		})
	}
	return result
}

// fieldPath drops the struct name validator puts in front of the
// namespace.
func fieldPath(namespace string) string {
	_, rest, ok := strings.Cut(namespace, ".")
	if !ok {
		return namespace
	}
	return rest
}

func message(path string, fe validator.FieldError, messages map[string]string) string {
	if msg, ok := messages[path]; ok {
		return msg
	}
	switch fe.Tag() {
	case "gte":
		return "Number must be greater than or equal to " + fe.Param()
	case "required":
		return "Required"
	case "email":
		return "Invalid email"
	case "min":
		return "Must contain at least " + fe.Param() + " character(s)"
	default:
		return "Invalid value"
	}
}
