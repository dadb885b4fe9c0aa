package jobfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/fulmenhq/gofulmen/schema"

	schemasassets "github.com/3leaps/bucketwalk/internal/assets/schemas"
	"github.com/3leaps/bucketwalk/pkg/match"
	"github.com/3leaps/bucketwalk/pkg/provider"
	"github.com/3leaps/bucketwalk/pkg/walker"
)

var (
	// ErrSchemaNotFound indicates the embedded job schema is missing.
	ErrSchemaNotFound = errors.New("job schema not found")

	// ErrValidationFailed is wrapped by every ValidationErrors value.
	ErrValidationFailed = errors.New("job validation failed")
)

// MaxConcurrency bounds walk.concurrency. The embedded schema carries the
// same limit.
const MaxConcurrency = 256

// Compiled once from the embedded schema.
var (
	validatorOnce sync.Once
	validator     *schema.Validator
	validatorErr  error
)

// ValidationError is a single validation issue.
type ValidationError struct {
	// Path is the dotted field path (e.g., "connection.bucket").
	Path    string
	Message string
}

func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return e.Path + ": " + e.Message
}

// ValidationErrors collects every issue found in a job.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	switch len(e) {
	case 0:
		return "validation failed"
	case 1:
		return e[0].Error()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "job validation failed with %d errors:", len(e))
	for _, err := range e {
		b.WriteString("\n  - ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e ValidationErrors) Unwrap() error {
	return ErrValidationFailed
}

// Validate checks the job against the embedded JSON schema, then applies the
// rules a schema cannot express: provider-specific connection fields,
// duration syntax and glob compilation.
func (j *Job) Validate() error {
	errs, err := j.schemaErrors()
	if err != nil {
		return err
	}

	add := func(path, format string, args ...any) {
		errs = append(errs, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	c := j.Connection
	if pt, ok := provider.ParseProviderType(c.Provider); ok {
		if pt == provider.ProviderFile && c.RootDir == "" {
			add("connection.root_dir", "is required for the file provider")
		}
		if pt == provider.ProviderMinio && c.Endpoint == "" {
			add("connection.endpoint", "is required for the minio provider")
		}
	}

	if _, err := j.WalkerConfig(walker.DefaultConfig()); err != nil {
		add("", "%v", err)
	}

	if _, err := match.New(j.MatcherConfig()); err != nil {
		add("match", "%v", err)
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// schemaErrors validates the JSON form of the job. Only error-severity
// diagnostics are reported.
func (j *Job) schemaErrors() (ValidationErrors, error) {
	v, err := getValidator()
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(j)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize job for validation: %w", err)
	}

	diags, err := v.ValidateJSON(data)
	if err != nil {
		return nil, fmt.Errorf("schema validation error: %w", err)
	}

	var errs ValidationErrors
	for _, d := range diags {
		if d.Severity == schema.SeverityError {
			errs = append(errs, ValidationError{Path: pointerPath(d.Pointer), Message: d.Message})
		}
	}
	return errs, nil
}

// pointerPath turns a JSON pointer ("/walk/concurrency") into a dotted path.
func pointerPath(pointer string) string {
	p := strings.TrimPrefix(pointer, "#")
	p = strings.TrimPrefix(p, "/")
	p = strings.ReplaceAll(p, "/", ".")
	return strings.NewReplacer("~1", "/", "~0", "~").Replace(p)
}

func getValidator() (*schema.Validator, error) {
	validatorOnce.Do(func() {
		if len(schemasassets.JobSchema) == 0 {
			validatorErr = fmt.Errorf("%w: embedded job schema is empty", ErrSchemaNotFound)
			return
		}
		validator, validatorErr = schema.NewValidator(schemasassets.JobSchema)
		if validatorErr != nil {
			validatorErr = fmt.Errorf("failed to compile job schema: %w", validatorErr)
		}
	})
	return validator, validatorErr
}
