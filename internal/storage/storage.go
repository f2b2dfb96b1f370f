// internal/storage/storage.go

// Package storage reads and writes blobs under local paths or s3:// prefixes.
// Writes are atomic from the reader's point of view: local files are staged
// to a temp file and renamed on Close, S3 objects appear only once the PUT
// completes. This is what makes the pipeline's resume probe trustworthy.
package storage

import (
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/pkg/errors"
)

// IsS3URI reports whether path names an S3 object ("s3://bucket/key").
func IsS3URI(path string) bool { return strings.HasPrefix(path, "s3://") }

// Join joins path elements below a local or s3:// root.
func Join(root string, elem ...string) string {
	if IsS3URI(root) {
		parts := append([]string{strings.TrimSuffix(root, "/")}, elem...)
		return strings.Join(parts, "/")
	}
	return filepath.Join(append([]string{root}, elem...)...)
}

// NamedWriteCloser extends io.WriteCloser with the destination name and an
// abort path for partially written outputs.
type NamedWriteCloser interface {
	io.WriteCloser
	Name() string
	// Discard abandons the write, cleaning up any staged temp file.
	// Safe to call after Close, where it is a no-op.
	Discard() error
}

// Store is the blob capability handed to the writer and the resume check.
// The S3 client is created on first use and reused for the run.
type Store struct {
	region string

	mu sync.Mutex
	s3 *s3.S3
}

// NewStore returns a Store. region may be empty, in which case AWS_REGION
// and the shared config chain decide.
func NewStore(region string) *Store { return &Store{region: region} }

func (st *Store) client() (*s3.S3, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.s3 != nil {
		return st.s3, nil
	}
	sess, err := session.NewSessionWithOptions(session.Options{SharedConfigState: session.SharedConfigEnable})
	if err != nil {
		return nil, errors.Wrap(err, "storage: aws session")
	}
	cfg := aws.NewConfig()
	if st.region != "" {
		cfg = cfg.WithRegion(st.region)
	}
	st.s3 = s3.New(sess, cfg)
	return st.s3, nil
}

func splitS3URI(uri string) (bucket, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "s3" || u.Host == "" {
		return "", "", errors.Errorf("storage: invalid s3 uri %q", uri)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

// NewReader opens a local or remote path for reading.
func (st *Store) NewReader(path string) (io.ReadCloser, error) {
	if !IsS3URI(path) {
		return os.Open(path)
	}
	bucket, key, err := splitS3URI(path)
	if err != nil {
		return nil, err
	}
	cl, err := st.client()
	if err != nil {
		return nil, err
	}
	out, err := cl.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "storage: get %s", path)
	}
	return out.Body, nil
}

// ReadFile reads the full contents of a local or remote path.
func (st *Store) ReadFile(path string) ([]byte, error) {
	r, err := st.NewReader(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()
	return io.ReadAll(r)
}

// NewWriter opens a local or remote path for writing. The destination name
// becomes visible only on a successful Close.
func (st *Store) NewWriter(path string) (NamedWriteCloser, error) {
	if !IsS3URI(path) {
		return newLocalWriter(path)
	}
	return st.newS3Writer(path)
}

// Exists reports whether the path names an existing file or object.
func (st *Store) Exists(path string) (bool, error) {
	if !IsS3URI(path) {
		_, err := os.Stat(path)
		if os.IsNotExist(err) {
			return false, nil
		}
		if err != nil {
			return false, errors.Wrapf(err, "storage: stat %s", path)
		}
		return true, nil
	}
	bucket, key, err := splitS3URI(path)
	if err != nil {
		return false, err
	}
	cl, err := st.client()
	if err != nil {
		return false, err
	}
	_, err = cl.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var ae awserr.RequestFailure
		if errors.As(err, &ae) && (ae.StatusCode() == 404 || ae.Code() == "NotFound") {
			return false, nil
		}
		return false, errors.Wrapf(err, "storage: head %s", path)
	}
	return true, nil
}
