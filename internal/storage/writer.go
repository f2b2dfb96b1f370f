// internal/storage/writer.go
package storage

import (
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/pkg/errors"
)

// localWriter stages output in a temp file next to the destination and
// renames it into place on Close. Rename within one directory is atomic on
// POSIX filesystems, so the final name never exposes a partial file.
type localWriter struct {
	f    *os.File
	dest string
	done bool
}

func newLocalWriter(dest string) (*localWriter, error) {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "storage: mkdir %s", dir)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".tmp-")
	if err != nil {
		return nil, errors.Wrap(err, "storage: create temp")
	}
	return &localWriter{f: f, dest: dest}, nil
}

func (w *localWriter) Write(p []byte) (int, error) { return w.f.Write(p) }

func (w *localWriter) Name() string { return w.dest }

func (w *localWriter) Close() error {
	if w.done {
		return nil
	}
	w.done = true
	if err := w.f.Close(); err != nil {
		_ = os.Remove(w.f.Name())
		return errors.Wrapf(err, "storage: close %s", w.dest)
	}
	if err := os.Rename(w.f.Name(), w.dest); err != nil {
		_ = os.Remove(w.f.Name())
		return errors.Wrapf(err, "storage: rename %s", w.dest)
	}
	return nil
}

func (w *localWriter) Discard() error {
	if w.done {
		return nil
	}
	w.done = true
	_ = w.f.Close()
	return os.Remove(w.f.Name())
}

// s3Writer buffers to a local temp file and uploads the object on Close.
// S3 PUTs are atomic, so the key appears fully written or not at all.
type s3Writer struct {
	st   *Store
	f    *os.File
	uri  string
	done bool
}

func (st *Store) newS3Writer(uri string) (*s3Writer, error) {
	if _, _, err := splitS3URI(uri); err != nil {
		return nil, err
	}
	f, err := os.CreateTemp("", "synthator-s3-")
	if err != nil {
		return nil, errors.Wrap(err, "storage: create temp")
	}
	return &s3Writer{st: st, f: f, uri: uri}, nil
}

func (w *s3Writer) Write(p []byte) (int, error) { return w.f.Write(p) }

func (w *s3Writer) Name() string { return w.uri }

func (w *s3Writer) Close() error {
	if w.done {
		return nil
	}
	w.done = true
	defer func() {
		name := w.f.Name()
		_ = w.f.Close()
		_ = os.Remove(name)
	}()

	if _, err := w.f.Seek(0, 0); err != nil {
		return errors.Wrap(err, "storage: rewind temp")
	}
	bucket, key, err := splitS3URI(w.uri)
	if err != nil {
		return err
	}
	cl, err := w.st.client()
	if err != nil {
		return err
	}
	if _, err := cl.PutObject(&s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   w.f,
	}); err != nil {
		return errors.Wrapf(err, "storage: put %s", w.uri)
	}
	return nil
}

func (w *s3Writer) Discard() error {
	if w.done {
		return nil
	}
	w.done = true
	name := w.f.Name()
	_ = w.f.Close()
	return os.Remove(name)
}
