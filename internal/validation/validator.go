// Package validation enforces ticket field rules before anything reaches the store.
package validation

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/ticket-triage/internal/domain"
	apperrors "github.com/spec-kit/ticket-triage/pkg/util"
)

// Validator checks ticket input against the domain rules.
type Validator struct {
	validate *validator.Validate
}

// New registers the ticket specific tags and returns a ready Validator.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	mustRegister(v, "nonblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	// trimmax bounds the rune length of the value as stored, after trimming.
	mustRegister(v, "trimmax", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return utf8.RuneCountInString(strings.TrimSpace(fl.Field().String())) <= limit
	})
	mustRegister(v, "category", func(fl validator.FieldLevel) bool {
		return domain.TicketCategory(fl.Field().String()).IsValid()
	})
	mustRegister(v, "priority", func(fl validator.FieldLevel) bool {
		return domain.TicketPriority(fl.Field().String()).IsValid()
	})
	mustRegister(v, "status", func(fl validator.FieldLevel) bool {
		return domain.TicketStatus(fl.Field().String()).IsValid()
	})
	return &Validator{validate: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// ValidateCreate checks a new ticket and returns it normalized: text trimmed
// and status defaulted to open. ID and CreatedAt are left for the caller.
func (v *Validator) ValidateCreate(fields domain.TicketFields) (domain.Ticket, error) {
	if err := v.check(fields); err != nil {
		return domain.Ticket{}, err
	}
	status := fields.Status
	if status == "" {
		status = domain.TicketStatusOpen
	}
	return domain.Ticket{
		Title:       strings.TrimSpace(fields.Title),
		Description: strings.TrimSpace(fields.Description),
		Category:    fields.Category,
		Priority:    fields.Priority,
		Status:      status,
	}, nil
}

// ValidatePatch checks only the fields present in patch and returns a copy
// with the text fields trimmed.
func (v *Validator) ValidatePatch(patch domain.TicketPatch) (domain.TicketPatch, error) {
	if err := v.check(patch); err != nil {
		return domain.TicketPatch{}, err
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		patch.Title = &title
	}
	if patch.Description != nil {
		description := strings.TrimSpace(*patch.Description)
		patch.Description = &description
	}
	return patch, nil
}

// ValidateDescription checks the classification input.
func (v *Validator) ValidateDescription(description string) error {
	if strings.TrimSpace(description) == "" {
		return apperrors.NewValidationError("invalid payload", map[string]any{
			"description": "This field is required.",
		})
	}
	return nil
}

func (v *Validator) check(input any) error {
	err := v.validate.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewInternalError(err)
	}
	details := make(map[string]any, len(fieldErrs))
	for _, fe := range fieldErrs {
		if _, seen := details[fe.Field()]; seen {
			continue
		}
		details[fe.Field()] = reason(fe)
	}
	return apperrors.NewValidationError("invalid payload", details)
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "nonblank":
		return "This field may not be blank."
	case "max", "trimmax":
		return "Ensure this field has no more than " + fe.Param() + " characters."
	case "category", "priority", "status":
		return "\"" + valueString(fe.Value()) + "\" is not a valid choice."
	default:
		return "Invalid value."
	}
}

func valueString(value any) string {
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return ""
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.String {
		return rv.String()
	}
	return ""
}
