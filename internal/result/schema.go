package result

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sync"

	"codeberg.org/mutker/threadstone/internal/errors"
	"codeberg.org/mutker/threadstone/internal/workload"
	"github.com/invopop/jsonschema"
	validator "github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	schemaResource = "threadstone-result.schema.json"
	// relTolerance bounds float drift between the stored statistics and
	// the ones recomputed from values.
	relTolerance = 1e-9
)

// JSONSchemaExtend fills in the parts of the schema that are not visible
// from struct tags.
func (Record) JSONSchemaExtend(s *jsonschema.Schema) {
	s.Title = "threadstone result record"
	s.Description = "Throughput samples and summary statistics of one benchmark run."

	if prop, ok := s.Properties.Get("workload"); ok {
		for _, id := range workload.IDs() {
			prop.Enum = append(prop.Enum, string(id))
		}
	}
	if prop, ok := s.Properties.Get("sig"); ok {
		prop.Description = "Detached Ed25519 signature over the canonical form, base64url without padding."
	}
}

// Schema returns the JSON Schema document describing Record. It is
// reflected from the Record type so the two cannot drift apart.
func Schema() ([]byte, error) {
	r := &jsonschema.Reflector{
		Anonymous:      true,
		ExpandedStruct: true,
		DoNotReference: true,
	}

	data, err := json.MarshalIndent(r.Reflect(&Record{}), "", "  ")
	if err != nil {
		return nil, errors.New().Wrap(errors.ErrSchemaGeneration, err)
	}

	return data, nil
}

var (
	compileOnce sync.Once
	compiled    *validator.Schema
	compileErr  error
)

func compiledSchema() (*validator.Schema, error) {
	compileOnce.Do(func() {
		doc, err := Schema()
		if err != nil {
			compileErr = err
			return
		}

		c := validator.NewCompiler()
		c.Draft = validator.Draft2020
		if err := c.AddResource(schemaResource, bytes.NewReader(doc)); err != nil {
			compileErr = errors.New().Wrap(errors.ErrSchemaGeneration, err)
			return
		}

		compiled, compileErr = c.Compile(schemaResource)
		if compileErr != nil {
			compileErr = errors.New().Wrap(errors.ErrSchemaGeneration, compileErr)
		}
	})

	return compiled, compileErr
}

// Violation is one failed constraint. Path is a JSON pointer into the
// validated document; the empty path denotes the document root.
type Violation struct {
	Path    string `json:"path"`
	Keyword string `json:"keyword,omitempty"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	path := v.Path
	if path == "" {
		path = "/"
	}

	return fmt.Sprintf("%s: %s", path, v.Message)
}

// Validate checks an arbitrary JSON document against the record schema
// and against the cross-field invariants JSON Schema cannot express. An
// empty result means the document is a valid record.
func Validate(data []byte) []Violation {
	var doc any
	if err := decodeDocument(data, &doc, true); err != nil {
		return []Violation{{Message: fmt.Sprintf("invalid JSON: %v", err)}}
	}

	sch, err := compiledSchema()
	if err != nil {
		return []Violation{{Message: err.Error()}}
	}

	var violations []Violation
	if err := sch.Validate(doc); err != nil {
		var ve *validator.ValidationError
		if !errors.As(err, &ve) {
			return []Violation{{Message: err.Error()}}
		}
		violations = appendLeaves(violations, ve)
	}

	return append(violations, checkInvariants(doc)...)
}

// ValidationError wraps violations as a coded error.
func ValidationError(violations []Violation) error {
	if len(violations) == 0 {
		return nil
	}

	return errors.New().WithData(errors.ErrSchemaViolation, violations)
}

func appendLeaves(out []Violation, ve *validator.ValidationError) []Violation {
	if len(ve.Causes) == 0 {
		return append(out, Violation{
			Path:    ve.InstanceLocation,
			Keyword: ve.KeywordLocation,
			Message: ve.Message,
		})
	}
	for _, cause := range ve.Causes {
		out = appendLeaves(out, cause)
	}

	return out
}

// checkInvariants verifies sample count and statistics against values.
// Fields with the wrong type are skipped; the schema pass reports them.
func checkInvariants(doc any) []Violation {
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil
	}

	rawValues, ok := obj["values"].([]any)
	if !ok {
		return nil
	}

	var violations []Violation

	if samples, ok := number(obj["samples"]); ok && samples != float64(len(rawValues)) {
		violations = append(violations, Violation{
			Path:    "/values",
			Keyword: "samples",
			Message: fmt.Sprintf("length %d does not match samples %v", len(rawValues), samples),
		})
	}

	values := make([]float64, 0, len(rawValues))
	for _, raw := range rawValues {
		v, ok := number(raw)
		if !ok {
			return violations
		}
		values = append(values, v)
	}

	stats, err := Summarize(values)
	if err != nil {
		return violations
	}

	for _, field := range []struct {
		name string
		want float64
	}{
		{"average", stats.Average},
		{"min", stats.Min},
		{"max", stats.Max},
	} {
		got, ok := number(obj[field.name])
		if !ok || approxEqual(got, field.want) {
			continue
		}
		violations = append(violations, Violation{
			Path:    "/" + field.name,
			Keyword: field.name,
			Message: fmt.Sprintf("%v does not match %v computed from values", got, field.want),
		})
	}

	return violations
}

func number(v any) (float64, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil {
		return 0, false
	}

	return f, true
}

func approxEqual(a, b float64) bool {
	if a == b {
		return true
	}
	scale := math.Max(math.Abs(a), math.Abs(b))

	return math.Abs(a-b) <= relTolerance*scale
}
