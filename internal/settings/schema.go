package settings

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaCUE string

// ErrSchemaViolation is the code of every settings ValidationError.
const ErrSchemaViolation = "E301"

// ValidationError is one schema violation.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidationErrors collects every violation found in one document.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return "invalid settings: " + strings.Join(msgs, "; ")
}

// Validate checks s against the #Settings schema. It returns nil or a
// ValidationErrors listing every violation.
func Validate(s *Settings) error {
	if s == nil {
		return ValidationErrors{{Field: "settings", Message: "settings are required", Code: ErrSchemaViolation}}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile settings schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Settings"))

	value := ctx.Encode(s)
	if err := value.Err(); err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	err := def.Unify(value).Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	var out ValidationErrors
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		field := strings.Join(e.Path(), ".")
		if field == "" {
			field = "settings"
		}
		out = append(out, ValidationError{
			Field:   field,
			Message: fmt.Sprintf(format, args...),
			Code:    ErrSchemaViolation,
		})
	}
	if len(out) == 0 {
		return ValidationErrors{{Field: "settings", Message: err.Error(), Code: ErrSchemaViolation}}
	}
	return out
}
