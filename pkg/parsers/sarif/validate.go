package sarif

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Validator errors.
var (
	ErrEmptyInput  = errors.New("empty SARIF input")
	ErrInvalidJSON = errors.New("invalid SARIF JSON")
	ErrSchema      = errors.New("SARIF schema validation failed")
)

// RootPath is the field path reported when the violation is at the
// document root.
const RootPath = "<root>"

// FieldError describes a single schema violation at a dot-joined field path.
type FieldError struct {
	Path       string `json:"path"`
	Constraint string `json:"constraint"`
}

func (e FieldError) String() string {
	return e.Path + ": " + e.Constraint
}

// SchemaError aggregates every schema violation found in a document.
// Validation is all-or-nothing: when a SchemaError is returned, no
// partial document is.
type SchemaError struct {
	Fields []FieldError
}

// Error joins all failing field paths into one human-readable message.
func (e *SchemaError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.String())
	}
	return "SARIF schema validation failed: " + strings.Join(msgs, "; ")
}

// Unwrap allows errors.Is(err, ErrSchema).
func (e *SchemaError) Unwrap() error { return ErrSchema }

func (e *SchemaError) add(path, constraint string) {
	e.Fields = append(e.Fields, FieldError{Path: path, Constraint: constraint})
}

// Validate checks that raw conforms to the permissive SARIF schema and
// returns the parsed document. The input may be UTF-8 JSON text (string,
// []byte, json.RawMessage), an already-parsed Document, or any value that
// marshals to a SARIF-shaped JSON object.
//
// Validation is structural: only version, runs, tool.driver.name per run
// and message per result are required; everything else is optional and
// unknown fields are preserved in property bags. Validate is pure and
// safe for concurrent use.
func Validate(raw any) (*Document, error) {
	switch v := raw.(type) {
	case nil:
		return nil, ErrEmptyInput
	case string:
		return ValidateBytes([]byte(v))
	case []byte:
		return ValidateBytes(v)
	case json.RawMessage:
		return ValidateBytes(v)
	case *Document:
		if v == nil {
			return nil, ErrEmptyInput
		}
		return validateDocument(v)
	case Document:
		return validateDocument(&v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
		return ValidateBytes(data)
	}
}

// ValidateBytes validates a raw JSON payload.
func ValidateBytes(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyInput
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, decodeError(err)
	}

	if err := checkRequired(data); err != nil {
		return nil, err
	}

	return &doc, nil
}

// decodeError classifies a json.Unmarshal failure: type mismatches are
// schema errors carrying the offending field path, everything else is a
// deserialization error carrying the parser's complaint.
func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		path := typeErr.Field
		if path == "" {
			path = RootPath
		}
		schemaErr := &SchemaError{}
		schemaErr.add(path, fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value))
		return schemaErr
	}
	return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
}

// presence shadows decode only the required fields as pointers so that an
// absent property can be told apart from its zero value.
type presenceDoc struct {
	Version *string       `json:"version"`
	Runs    *[]presenceRun `json:"runs"`
}

type presenceRun struct {
	Tool    *presenceTool     `json:"tool"`
	Results *[]presenceResult `json:"results"`
}

type presenceTool struct {
	Driver *presenceDriver `json:"driver"`
}

type presenceDriver struct {
	Name *string `json:"name"`
}

type presenceResult struct {
	Message *json.RawMessage `json:"message"`
}

// checkRequired enumerates every required-field violation in the payload.
func checkRequired(data []byte) error {
	var shadow presenceDoc
	if err := json.Unmarshal(data, &shadow); err != nil {
		// Type mismatches on required fields were already surfaced by the
		// typed decode; anything left is a deserialization problem.
		return decodeError(err)
	}

	schemaErr := &SchemaError{}

	if shadow.Version == nil {
		schemaErr.add("version", "required property is missing or not a string")
	}
	if shadow.Runs == nil {
		schemaErr.add("runs", "required property is missing or not an array")
	} else {
		for i, run := range *shadow.Runs {
			checkRun(schemaErr, i, run)
		}
	}

	if len(schemaErr.Fields) > 0 {
		return schemaErr
	}
	return nil
}

func checkRun(schemaErr *SchemaError, i int, run presenceRun) {
	runPath := "runs." + strconv.Itoa(i)

	switch {
	case run.Tool == nil:
		schemaErr.add(runPath+".tool", "required property is missing")
	case run.Tool.Driver == nil:
		schemaErr.add(runPath+".tool.driver", "required property is missing")
	case run.Tool.Driver.Name == nil:
		schemaErr.add(runPath+".tool.driver.name", "required property is missing or not a string")
	}

	if run.Results == nil {
		return // results defaults to empty
	}
	for j, res := range *run.Results {
		if res.Message == nil || string(*res.Message) == "null" {
			schemaErr.add(runPath+".results."+strconv.Itoa(j)+".message", "required property is missing")
		}
	}
}

// validateDocument validates an already-parsed document without a JSON
// round trip. Absence is inferred from zero values: a nil runs slice
// means the property was never set.
func validateDocument(doc *Document) (*Document, error) {
	schemaErr := &SchemaError{}

	if doc.Version == "" {
		schemaErr.add("version", "required property is missing or not a string")
	}
	if doc.Runs == nil {
		schemaErr.add("runs", "required property is missing or not an array")
	}
	for i, run := range doc.Runs {
		runPath := "runs." + strconv.Itoa(i)
		if run.Tool.Driver.Name == "" {
			schemaErr.add(runPath+".tool.driver.name", "required property is missing or not a string")
		}
		for j, res := range run.Results {
			if res.Message == nil {
				schemaErr.add(runPath+".results."+strconv.Itoa(j)+".message", "required property is missing")
			}
		}
	}

	if len(schemaErr.Fields) > 0 {
		return nil, schemaErr
	}
	return doc, nil
}
