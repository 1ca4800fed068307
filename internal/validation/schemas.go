package validation

import (
	"errors"
	"regexp"
	"strings"

	"github.com/dpshade/spark-prompt/internal/models"
)

// Built-in schema names
const (
	SchemaTemplate  = "template"
	SchemaBank      = "bank"
	SchemaSelection = "selection"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func (v *Validator) registerBuiltinSchemas() {
	v.RegisterSchema(&Schema{
		Name: SchemaTemplate,
		Fields: map[string]FieldValidator{
			"id":      {Required: true, MaxLength: 200, Pattern: identifierPattern},
			"content": {Required: true},
			"author":  {MaxLength: 200},
		},
	})

	v.RegisterSchema(&Schema{
		Name: SchemaBank,
		Fields: map[string]FieldValidator{
			"key": {Required: true, MaxLength: 100, Custom: func(s string) error {
				if strings.ContainsAny(s, "{}\n") {
					return errors.New("cannot contain braces or newlines")
				}
				return nil
			}},
		},
	})

	v.RegisterSchema(&Schema{
		Name: SchemaSelection,
		Fields: map[string]FieldValidator{
			"name":       {Required: true, MaxLength: 100},
			"templateId": {Required: true},
		},
	})
}

var defaultValidator = NewValidator()

// Template validates a template before it is stored. Content is present
// when any locale has a non-blank source.
func Template(t models.Template) error {
	content := ""
	for _, text := range t.Content {
		if strings.TrimSpace(text) != "" {
			content = text
			break
		}
	}
	return defaultValidator.Validate(SchemaTemplate, map[string]string{
		"id":      t.ID,
		"content": content,
		"author":  t.Author,
	}).Err()
}

// BankKey validates a placeholder key for a bank
func BankKey(key string) error {
	return defaultValidator.Validate(SchemaBank, map[string]string{"key": key}).Err()
}

// CategoryID validates a category id; it follows the bank key rules
func CategoryID(id string) error {
	return defaultValidator.Validate(SchemaBank, map[string]string{"key": id}).Err()
}

// Selection validates the name and template of a saved selection
func Selection(templateID, name string) error {
	return defaultValidator.Validate(SchemaSelection, map[string]string{
		"name":       name,
		"templateId": templateID,
	}).Err()
}

// SanitizeString drops NUL and control characters other than newlines and
// tabs, then trims surrounding space.
func SanitizeString(input string) string {
	var b strings.Builder
	for _, r := range input {
		if r == '\n' || r == '\t' || r == '\r' || r >= 32 {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
