package review

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Schema checks decoded model output against the strict output schema.
type Schema struct {
	maxComments int
	validate    *validator.Validate
}

// NewSchema returns a schema enforcing at most maxComments comments.
// A non-positive maxComments disables the cap.
func NewSchema(maxComments int) *Schema {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Schema{maxComments: maxComments, validate: v}
}

// MaxComments returns the comment cap.
func (s *Schema) MaxComments() int {
	return s.maxComments
}

// Parse decodes text as a single JSON object and validates it. Unknown keys
// are ignored; numeric fields must be integers.
func (s *Schema) Parse(text string) (Output, error) {
	var out Output
	dec := json.NewDecoder(bytes.NewReader([]byte(strings.TrimSpace(text))))
	if err := dec.Decode(&out); err != nil {
		return Output{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if dec.More() {
		return Output{}, errors.New("invalid JSON: trailing data after object")
	}
	if err := s.Check(out); err != nil {
		return Output{}, err
	}
	return out, nil
}

// Check validates an already decoded output.
func (s *Schema) Check(out Output) error {
	if err := s.validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fieldError(fe))
			}
			return fmt.Errorf("schema: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("schema: %w", err)
	}
	if s.maxComments > 0 && len(out.Comments) > s.maxComments {
		return fmt.Errorf("schema: comments has %d entries, cap is %d", len(out.Comments), s.maxComments)
	}
	return nil
}

func fieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	if fe.Tag() == "required" {
		return field + " is required"
	}
	return fmt.Sprintf("%s failed %q", field, fe.Tag())
}
