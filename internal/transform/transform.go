// internal/transform/transform.go

// Package transform flattens nested scorer output into tidy rows: one row
// per (variant, track, assay). Anything malformed in the response fails the
// whole batch; a scoring mismatch is a data-integrity bug, not something to
// coerce quietly.
package transform

import (
	"fmt"
	"strings"

	"synthator-core/batch"
	"synthator-core/genome"
	"synthator/internal/scorer"
)

// Error marks a batch-level transform failure.
type Error struct {
	BatchID int
	Reason  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("transform batch %d: %s", e.BatchID, e.Reason)
}

func errf(batchID int, format string, a ...any) *Error {
	return &Error{BatchID: batchID, Reason: fmt.Sprintf(format, a...)}
}

// TrackID is the parsed form of a composite track identifier.
type TrackID struct {
	Assay  string
	Track  string
	Strand string
}

// ParseTrackID parses "ASSAY:TRACK" or "ASSAY:TRACK:STRAND". Fields are
// colon-delimited and non-empty; underscores are ordinary characters inside
// a field. Strand defaults to "." when absent.
func ParseTrackID(s string) (TrackID, error) {
	f := strings.Split(s, ":")
	if len(f) < 2 || len(f) > 3 {
		return TrackID{}, fmt.Errorf("track id %q: want 2 or 3 ':'-separated fields, got %d", s, len(f))
	}
	for i, part := range f {
		if part == "" {
			return TrackID{}, fmt.Errorf("track id %q: empty field %d", s, i)
		}
	}
	id := TrackID{Assay: f[0], Track: f[1], Strand: "."}
	if len(f) == 3 {
		id.Strand = f[2]
	}
	return id, nil
}

// Row is one tidy output record. Column order is the field order here and
// is part of the output contract.
type Row struct {
	VariantID         string  `parquet:"variantId"`
	Chromosome        string  `parquet:"chromosome"`
	Position          int64   `parquet:"position"`
	ReferenceAllele   string  `parquet:"referenceAllele"`
	AlternateAllele   string  `parquet:"alternateAllele"`
	Assay             string  `parquet:"assay"`
	Track             string  `parquet:"track"`
	Strand            string  `parquet:"strand"`
	RawScore          float64 `parquet:"rawScore"`
	QuantileScore     float64 `parquet:"quantileScore"`
	ContextChromosome string  `parquet:"contextChromosome"`
	ContextStart      int64   `parquet:"contextStart"`
	ContextEnd        int64   `parquet:"contextEnd"`
	BatchID           int64   `parquet:"batchId"`
}

// Batch flattens one scoring result. Row order is batch member order, then
// response track order within each variant. Guarantees on success:
// len(rows) == len(b.Items) * tracks, every member present exactly once,
// uniform track count across members.
func Batch(res *scorer.Result, b batch.Batch) ([]Row, error) {
	if res.BatchID != b.ID {
		return nil, errf(b.ID, "result carries batch id %d", res.BatchID)
	}
	if len(res.Scores) != len(b.Items) {
		return nil, errf(b.ID, "scored %d variants, batch has %d", len(res.Scores), len(b.Items))
	}

	tracks := -1
	rows := make([]Row, 0, len(b.Items))
	for _, cv := range b.Items {
		v := cv.Variant
		id := v.ID()
		scores, ok := res.Scores[id]
		if !ok {
			return nil, errf(b.ID, "variant %s missing from response", id)
		}
		if tracks == -1 {
			tracks = len(scores)
		} else if len(scores) != tracks {
			return nil, errf(b.ID, "variant %s has %d tracks, expected %d", id, len(scores), tracks)
		}
		if len(scores) == 0 {
			return nil, errf(b.ID, "variant %s has no track scores", id)
		}

		// Round-trip the id to catch scorer/request mismatches.
		parsed, err := genome.ParseVariantID(id)
		if err != nil {
			return nil, errf(b.ID, "%v", err)
		}
		if parsed != v {
			return nil, errf(b.ID, "variant id %s does not match batch member %s", id, v.ID())
		}

		for _, ts := range scores {
			tid, err := ParseTrackID(ts.Name)
			if err != nil {
				return nil, errf(b.ID, "%v", err)
			}
			rows = append(rows, Row{
				VariantID:         id,
				Chromosome:        v.Chromosome,
				Position:          v.Position,
				ReferenceAllele:   v.ReferenceAllele,
				AlternateAllele:   v.AlternateAllele,
				Assay:             tid.Assay,
				Track:             tid.Track,
				Strand:            tid.Strand,
				RawScore:          ts.RawScore,
				QuantileScore:     ts.QuantileScore,
				ContextChromosome: cv.Context.Chromosome,
				ContextStart:      cv.Context.Start,
				ContextEnd:        cv.Context.End,
				BatchID:           int64(b.ID),
			})
		}
	}
	return rows, nil
}
