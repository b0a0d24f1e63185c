package grievance

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

// Submission is a candidate grievance as supplied by a submitter.
type Submission struct {
	Category    models.GrievanceCategory
	SubCategory string
	Title       string
	Description string
	Details     map[string]string
}

// ValidatedSubmission is a submission that satisfied its schema. Details hold
// only schema-declared keys.
type ValidatedSubmission struct {
	Category    models.GrievanceCategory
	SubCategory string
	Title       string
	Description string
	Details     models.Details
}

// Validator checks submissions against a taxonomy registry.
type Validator struct {
	registry *Registry
	validate *validator.Validate
}

// NewValidator builds a Validator. Nil arguments fall back to defaults.
func NewValidator(registry *Registry, validate *validator.Validate) *Validator {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &Validator{registry: registry, validate: validate}
}

// Validate checks the submission fail-fast: category, sub-category, title and
// description, then each schema field in declaration order.
func (v *Validator) Validate(sub Submission) (*ValidatedSubmission, error) {
	if !v.registry.IsCategory(sub.Category) {
		return nil, appErrors.WithField(appErrors.ErrUnknownCategory, "category", fmt.Sprintf("unknown category %q", sub.Category))
	}
	schema, err := v.registry.SchemaFor(sub.Category, sub.SubCategory)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(sub.Title)
	if title == "" {
		return nil, missingField("title")
	}
	description := strings.TrimSpace(sub.Description)
	if description == "" {
		return nil, missingField("description")
	}

	details := make(models.Details, len(schema.Fields))
	for _, field := range schema.Fields {
		value := strings.TrimSpace(sub.Details[field.Key])
		if value == "" {
			if field.Required {
				return nil, missingField(field.Key)
			}
			continue
		}
		if err := v.checkValue(field, value); err != nil {
			return nil, err
		}
		details[field.Key] = value
	}

	return &ValidatedSubmission{
		Category:    sub.Category,
		SubCategory: sub.SubCategory,
		Title:       title,
		Description: description,
		Details:     details,
	}, nil
}

func (v *Validator) checkValue(field FieldDescriptor, value string) error {
	switch field.Kind {
	case KindEnum:
		if !contains(field.EnumValues, value) {
			return invalidField(field.Key, fmt.Sprintf("%s must be one of: %s", field.Key, strings.Join(field.EnumValues, ", ")))
		}
	case KindDate:
		if err := v.validate.Var(value, "datetime="+DateLayout); err != nil {
			return invalidField(field.Key, fmt.Sprintf("%s must be a date in YYYY-MM-DD format", field.Key))
		}
	}
	if field.Rule != "" {
		if err := v.validate.Var(value, field.Rule); err != nil {
			return invalidField(field.Key, fmt.Sprintf("%s violates rule %s", field.Key, field.Rule))
		}
	}
	return nil
}

func missingField(key string) error {
	return appErrors.WithField(appErrors.ErrMissingRequiredField, key, fmt.Sprintf("%s is required", key))
}

func invalidField(key, message string) error {
	return appErrors.WithField(appErrors.ErrInvalidFieldValue, key, message)
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
