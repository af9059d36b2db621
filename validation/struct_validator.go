package validation

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/flowrun/errors"
)

// FieldError is one entry of the "fields" detail on a validation error.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var instance = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(tagName)
	return v
})

// tagName reports a field under its json name, then its mapstructure
// name, then its snake_cased Go name. "-" hides the field.
func tagName(f reflect.StructField) string {
	for _, key := range []string{"json", "mapstructure"} {
		switch name, _, _ := strings.Cut(f.Tag.Get(key), ","); name {
		case "":
			continue
		case "-":
			return ""
		default:
			return name
		}
	}
	return toSnakeCase(f.Name)
}

// Validate checks the `validate` tags of s. Failures come back as a
// single INVALID_INPUT error whose message joins every field problem and
// whose "fields" detail lists them.
func Validate(s any) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}
	var failed validator.ValidationErrors
	if !stderrors.As(err, &failed) {
		return errors.Validation("validation failed").WithCause(err)
	}

	fields := make([]FieldError, len(failed))
	lines := make([]string, len(failed))
	for i, fe := range failed {
		fields[i] = FieldError{Field: path(fe), Message: describe(fe)}
		lines[i] = fields[i].Field + " " + fields[i].Message
	}
	return errors.Validation(strings.Join(lines, "; ")).WithDetail("fields", fields)
}

// path strips the root type: "Graph.nodes[0].id" becomes "nodes[0].id".
func path(fe validator.FieldError) string {
	if _, rest, ok := strings.Cut(fe.Namespace(), "."); ok {
		return rest
	}
	return fe.Field()
}

var messages = map[string]string{
	"required": "is required",
	"max":      "must be at most %s",
	"gt":       "must be greater than %s",
	"gte":      "must be at least %s",
	"url":      "must be a valid URL",
	"http_url": "must be a valid URL",
	"uuid":     "must be a valid UUID",
	"oneof":    "must be one of: %s",
}

func describe(fe validator.FieldError) string {
	if fe.Tag() == "min" {
		if k := fe.Kind(); k == reflect.Slice || k == reflect.Map {
			return "must contain at least " + fe.Param() + " item(s)"
		}
		return "must be at least " + fe.Param()
	}
	msg, ok := messages[fe.Tag()]
	if !ok {
		return "is invalid"
	}
	if strings.Contains(msg, "%s") {
		return fmt.Sprintf(msg, fe.Param())
	}
	return msg
}

func toSnakeCase(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
