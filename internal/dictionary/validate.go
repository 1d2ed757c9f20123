package dictionary

import (
	"fmt"
	"strings"

	"github.com/roach88/datastore/internal/ir"
)

// ValidationError is one problem found in a dictionary.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks a dictionary and returns every problem found.
func Validate(d ir.DataDictionary) []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(d.ID) == "" {
		errs = append(errs, ValidationError{Field: "id", Message: "id is required"})
	}
	if len(d.Fields) == 0 {
		errs = append(errs, ValidationError{Field: "fields", Message: "at least one field is required"})
	}

	seen := make(map[string]bool, len(d.Fields))
	for i, f := range d.Fields {
		path := fmt.Sprintf("fields[%d]", i)
		if strings.TrimSpace(f.Name) == "" {
			errs = append(errs, ValidationError{Field: path + ".name", Message: "name is required"})
		} else if seen[f.Name] {
			errs = append(errs, ValidationError{Field: path + ".name", Message: fmt.Sprintf("duplicate field %q", f.Name)})
		}
		seen[f.Name] = true

		if !ir.ValidDictionaryTypes[f.Type] {
			errs = append(errs, ValidationError{Field: path + ".type", Message: fmt.Sprintf("unsupported type %q", f.Type)})
		}
		if f.Format != "" && !hasFormat(f.Type) {
			errs = append(errs, ValidationError{Field: path + ".format", Message: fmt.Sprintf("format is not allowed for type %q", f.Type)})
		}
	}
	return errs
}

func hasFormat(fieldType string) bool {
	switch fieldType {
	case "date", "datetime", "time":
		return true
	}
	return false
}
