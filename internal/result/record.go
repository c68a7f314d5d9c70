// Package result holds the benchmark result record, its summary
// statistics, its canonical serialization and its JSON Schema.
package result

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"io"
	"math"

	"codeberg.org/mutker/threadstone/internal/errors"
	"codeberg.org/mutker/threadstone/internal/workload"
)

// Record is the unit of exchange and persistence for one benchmark run.
// Sig is absent until the record is signed and is omitted from the
// encoding when absent.
type Record struct {
	Workload            workload.ID `json:"workload" jsonschema:"title=Workload kernel identifier"`
	Threads             uint        `json:"threads" jsonschema:"minimum=1"`
	Samples             uint        `json:"samples" jsonschema:"minimum=1"`
	IterationsPerSample uint64      `json:"iterations_per_sample" jsonschema:"minimum=0"`
	Values              []float64   `json:"values" jsonschema:"minItems=1"`
	Average             float64     `json:"average"`
	Min                 float64     `json:"min"`
	Max                 float64     `json:"max"`
	Sig                 *string     `json:"sig,omitempty" jsonschema:"pattern=^[A-Za-z0-9_-]{86}$"`
}

// New builds an unsigned record from a complete sample set.
func New(id workload.ID, threads uint, budget uint64, values []float64) (Record, error) {
	stats, err := Summarize(values)
	if err != nil {
		return Record{}, err
	}

	return Record{
		Workload:            id,
		Threads:             threads,
		Samples:             uint(len(values)),
		IterationsPerSample: budget,
		Values:              append([]float64(nil), values...),
		Average:             stats.Average,
		Min:                 stats.Min,
		Max:                 stats.Max,
	}, nil
}

// Signed reports whether the record carries a signature.
func (r Record) Signed() bool {
	return r.Sig != nil
}

// Unsigned returns a copy of r without a signature.
func (r Record) Unsigned() Record {
	r.Sig = nil
	r.Values = append([]float64(nil), r.Values...)
	return r
}

// WithSignature returns a copy of r carrying sig. The receiver is not
// modified.
func (r Record) WithSignature(sig string) Record {
	out := r.Unsigned()
	out.Sig = &sig
	return out
}

// Canonical returns the bytes that are signed and verified: the compact
// JSON encoding of the record with the signature removed.
func Canonical(r Record) ([]byte, error) {
	data, err := json.Marshal(r.Unsigned())
	if err != nil {
		return nil, errors.New().Wrap(errors.ErrSerialization, err)
	}

	return data, nil
}

// Encode serializes r, signature included when present.
func Encode(r Record, pretty bool) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(r, "", "  ")
	} else {
		data, err = json.Marshal(r)
	}
	if err != nil {
		return nil, errors.New().Wrap(errors.ErrSerialization, err)
	}

	return data, nil
}

// Decode parses a record document. It does not validate it; see Validate.
func Decode(data []byte) (Record, error) {
	var r Record
	if err := decodeDocument(data, &r, false); err != nil {
		return Record{}, errors.New().Wrap(errors.ErrSerialization, err)
	}

	return r, nil
}

var errTrailingData = stderrors.New("unexpected data after JSON document")

// decodeDocument decodes exactly one JSON value from data. Anything but
// whitespace after that value is an error.
func decodeDocument(data []byte, v any, useNumber bool) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if useNumber {
		dec.UseNumber()
	}
	if err := dec.Decode(v); err != nil {
		return err
	}

	if _, err := dec.Token(); !stderrors.Is(err, io.EOF) {
		return errTrailingData
	}

	return nil
}

// Stats summarizes a sample set.
type Stats struct {
	Average float64
	Min     float64
	Max     float64
}

// Summarize computes statistics over a complete sample set. An empty set
// or a non-finite sample is an error; no NaN statistic is ever produced.
func Summarize(values []float64) (Stats, error) {
	errFactory := errors.New()

	if len(values) == 0 {
		return Stats{}, errFactory.New(errors.ErrStatsUndefined)
	}

	stats := Stats{Min: math.Inf(1), Max: math.Inf(-1)}
	var sum float64
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Stats{}, errFactory.WithData(errors.ErrInvalidSample, i)
		}
		sum += v
		stats.Min = math.Min(stats.Min, v)
		stats.Max = math.Max(stats.Max, v)
	}
	stats.Average = sum / float64(len(values))

	// Rounding can push the mean a hair outside the extrema.
	stats.Average = math.Max(stats.Min, math.Min(stats.Max, stats.Average))

	return stats, nil
}
