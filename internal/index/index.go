// internal/index/index.go

// Package index reads the variant index: a parquet table with one row per
// normalized variant, sorted by (chromosome, position). Extra columns are
// ignored; missing required columns fail the run before any batch work.
package index

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"

	"synthator-core/genome"
	"synthator/internal/storage"
)

// Required column names, matching the upstream variant index schema.
const (
	ColChromosome      = "chromosome"
	ColPosition        = "position"
	ColReferenceAllele = "referenceAllele"
	ColAlternateAllele = "alternateAllele"
	ColVariantID       = "variantId"
)

// SchemaError reports required columns absent from the input index.
type SchemaError struct {
	Path    string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("index %s: missing required column(s): %s", e.Path, strings.Join(e.Missing, ", "))
}

// record mirrors the required index columns. Unknown file columns are
// skipped by the generic reader.
type record struct {
	Chromosome      string `parquet:"chromosome"`
	Position        int64  `parquet:"position"`
	ReferenceAllele string `parquet:"referenceAllele"`
	AlternateAllele string `parquet:"alternateAllele"`
	VariantID       string `parquet:"variantId"`
}

// ValidateSchema checks that every required column is present.
func ValidateSchema(path string, schema *parquet.Schema) error {
	present := map[string]bool{}
	for _, f := range schema.Fields() {
		present[f.Name()] = true
	}
	var missing []string
	for _, col := range []string{ColChromosome, ColPosition, ColReferenceAllele, ColAlternateAllele, ColVariantID} {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &SchemaError{Path: path, Missing: missing}
	}
	return nil
}

// Reader streams variants from a parquet index, one page buffer at a time.
// It implements batch.Source.
type Reader struct {
	path   string
	rows   *parquet.GenericReader[record]
	closer io.Closer // backing file for local indexes
	buf    []record
	i      int
	n      int
}

// Open opens the index at path (local or s3://), validates its schema, and
// returns a streaming Reader. Local files are read in place so memory stays
// bounded by the reader's row buffer; s3 objects are fetched once and read
// from memory.
func Open(store *storage.Store, path string) (*Reader, error) {
	var (
		src    io.ReaderAt
		size   int64
		closer io.Closer
	)
	if storage.IsS3URI(path) {
		data, err := store.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "index: read %s", path)
		}
		src, size = bytes.NewReader(data), int64(len(data))
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "index: open %s", path)
		}
		st, err := f.Stat()
		if err != nil {
			_ = f.Close()
			return nil, errors.Wrapf(err, "index: stat %s", path)
		}
		src, size, closer = f, st.Size(), f
	}
	file, err := parquet.OpenFile(src, size)
	if err != nil {
		closeQuietly(closer)
		return nil, errors.Wrapf(err, "index: parse %s", path)
	}
	if err := ValidateSchema(path, file.Schema()); err != nil {
		closeQuietly(closer)
		return nil, err
	}
	return &Reader{
		path:   path,
		rows:   parquet.NewGenericReader[record](src),
		closer: closer,
		buf:    make([]record, 256),
	}, nil
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}

// Next returns the next variant in file order. ok=false at end of input.
func (r *Reader) Next() (genome.Variant, bool, error) {
	if r.i >= r.n {
		n, err := r.rows.Read(r.buf)
		if n == 0 {
			if err == io.EOF || err == nil {
				return genome.Variant{}, false, nil
			}
			return genome.Variant{}, false, errors.Wrapf(err, "index: read %s", r.path)
		}
		// A short read with io.EOF still carries rows; surface them first.
		r.i, r.n = 0, n
	}
	rec := r.buf[r.i]
	r.i++
	return genome.Variant{
		Chromosome:      rec.Chromosome,
		Position:        rec.Position,
		ReferenceAllele: rec.ReferenceAllele,
		AlternateAllele: rec.AlternateAllele,
	}, true, nil
}

// Close releases the parquet reader and the backing file, if any.
func (r *Reader) Close() error {
	err := r.rows.Close()
	if r.closer != nil {
		if cerr := r.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
