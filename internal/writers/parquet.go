// internal/writers/parquet.go

// Package writers persists tidy batches as parquet files under the output
// root. File naming is a fixed, deterministic rule so the resume probe of a
// later run finds exactly the files an earlier run wrote.
package writers

import (
	"fmt"

	"github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"

	"synthator/internal/storage"
	"synthator/internal/transform"
)

// BatchPath names the output file for a batch id: {output}/batch_{id}.parquet.
// No zero padding; the rule must never change within a resumable run family.
func BatchPath(output string, id int) string {
	return storage.Join(output, fmt.Sprintf("batch_%d.parquet", id))
}

// ParquetWriter writes one file per batch through a storage.Store.
type ParquetWriter struct {
	store  *storage.Store
	output string
}

// NewParquetWriter returns a writer rooted at output (local or s3://).
func NewParquetWriter(store *storage.Store, output string) *ParquetWriter {
	return &ParquetWriter{store: store, output: output}
}

// Exists reports whether the output for batch id is already present.
func (w *ParquetWriter) Exists(id int) (bool, error) {
	return w.store.Exists(BatchPath(w.output, id))
}

// Write persists the rows for batch id and returns the destination path.
// The file becomes visible under its final name only if the whole write
// succeeds.
func (w *ParquetWriter) Write(id int, rows []transform.Row) (string, error) {
	dest := BatchPath(w.output, id)
	out, err := w.store.NewWriter(dest)
	if err != nil {
		return "", errors.Wrapf(err, "write batch %d", id)
	}

	pw := parquet.NewGenericWriter[transform.Row](out)
	if _, err := pw.Write(rows); err != nil {
		_ = out.Discard()
		return "", errors.Wrapf(err, "write batch %d", id)
	}
	if err := pw.Close(); err != nil {
		_ = out.Discard()
		return "", errors.Wrapf(err, "write batch %d", id)
	}
	if err := out.Close(); err != nil {
		return "", errors.Wrapf(err, "write batch %d", id)
	}
	return dest, nil
}
