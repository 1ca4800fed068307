// Package validation checks library input before it reaches storage.
//
// Schemas describe the fields of a record as a map of FieldValidators. The
// service layer validates templates, banks and saved selections against the
// built-in schemas, and ValidationResult.ToAppError turns failures into the
// shared AppError format used by the CLI, the API and the TUI.
package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	apperrors "github.com/dpshade/spark-prompt/internal/errors"
)

// Validation failure codes
const (
	CodeRequired      = "REQUIRED_FIELD_MISSING"
	CodeMinLength     = "MIN_LENGTH_VIOLATION"
	CodeMaxLength     = "MAX_LENGTH_VIOLATION"
	CodePattern       = "PATTERN_MISMATCH"
	CodeOption        = "INVALID_OPTION"
	CodeCustom        = "CUSTOM_VALIDATION_FAILED"
	CodeRule          = "SCHEMA_RULE_VIOLATION"
	CodeUnknownSchema = "SCHEMA_NOT_FOUND"
)

// FieldValidator holds the rules for one string field. Lengths count runes.
type FieldValidator struct {
	Required  bool
	MinLength int
	MaxLength int
	Pattern   *regexp.Regexp
	Options   []string
	Custom    func(string) error
}

// Schema is a named set of field rules plus record-level rules
type Schema struct {
	Name   string
	Fields map[string]FieldValidator
	Rules  []func(map[string]string) error
}

// ValidationError describes one failed rule
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult is the outcome of validating a record
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

func (r *ValidationResult) fail(field, code, message string) {
	r.Valid = false
	r.Errors = append(r.Errors, ValidationError{Field: field, Code: code, Message: message})
}

// Validator validates records against registered schemas
type Validator struct {
	schemas map[string]*Schema
}

// NewValidator returns a validator with the built-in schemas registered
func NewValidator() *Validator {
	v := &Validator{schemas: make(map[string]*Schema)}
	v.registerBuiltinSchemas()
	return v
}

// RegisterSchema adds or replaces a schema
func (v *Validator) RegisterSchema(schema *Schema) {
	v.schemas[schema.Name] = schema
}

// Validate checks data against the named schema. Fields are checked in name
// order so the reported errors are stable.
func (v *Validator) Validate(schemaName string, data map[string]string) *ValidationResult {
	schema, ok := v.schemas[schemaName]
	if !ok {
		result := &ValidationResult{}
		result.fail("schema", CodeUnknownSchema, fmt.Sprintf("validation schema '%s' not found", schemaName))
		return result
	}

	result := &ValidationResult{Valid: true}
	names := make([]string, 0, len(schema.Fields))
	for name := range schema.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		validateField(name, schema.Fields[name], data, result)
	}

	for _, rule := range schema.Rules {
		if err := rule(data); err != nil {
			result.fail("schema", CodeRule, err.Error())
		}
	}
	return result
}

func validateField(name string, fv FieldValidator, data map[string]string, result *ValidationResult) {
	value, present := data[name]
	if strings.TrimSpace(value) == "" {
		if fv.Required {
			result.fail(name, CodeRequired, fmt.Sprintf("%s is required", name))
		}
		if !present || value == "" {
			return
		}
	}

	n := utf8.RuneCountInString(value)
	if fv.MinLength > 0 && n < fv.MinLength {
		result.fail(name, CodeMinLength, fmt.Sprintf("%s must be at least %d characters long", name, fv.MinLength))
	}
	if fv.MaxLength > 0 && n > fv.MaxLength {
		result.fail(name, CodeMaxLength, fmt.Sprintf("%s must be at most %d characters long", name, fv.MaxLength))
	}
	if fv.Pattern != nil && !fv.Pattern.MatchString(value) {
		result.fail(name, CodePattern, fmt.Sprintf("%s has an invalid format", name))
	}
	if len(fv.Options) > 0 && !contains(fv.Options, value) {
		result.fail(name, CodeOption, fmt.Sprintf("%s must be one of: %s", name, strings.Join(fv.Options, ", ")))
	}
	if fv.Custom != nil {
		if err := fv.Custom(value); err != nil {
			result.fail(name, CodeCustom, fmt.Sprintf("%s %s", name, err.Error()))
		}
	}
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// ToAppError converts a failed result to an AppError. A missing required
// field maps to ErrCodeMissingField, anything else to ErrCodeValidation.
func (r *ValidationResult) ToAppError() *apperrors.AppError {
	if r.Valid {
		return nil
	}
	if len(r.Errors) == 0 {
		return apperrors.ValidationError("validation failed")
	}

	first := r.Errors[0]
	code := apperrors.ErrCodeValidation
	if first.Code == CodeRequired {
		code = apperrors.ErrCodeMissingField
	}
	appErr := apperrors.NewAppError(code, first.Message)

	if len(r.Errors) > 1 {
		details := make([]string, 0, len(r.Errors))
		for _, e := range r.Errors {
			details = append(details, fmt.Sprintf("%s: %s", e.Field, e.Message))
		}
		appErr.WithDetails(strings.Join(details, "; "))
	}
	return appErr.WithContext("validation_errors", r.Errors)
}

// Err returns the result as an error, or nil when it is valid
func (r *ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return r.ToAppError()
}
