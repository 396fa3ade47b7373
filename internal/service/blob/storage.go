package blob

import (
	"context"
	"io"
)

// Object is a stored blob opened for reading.
type Object interface {
	io.ReadCloser
	ContentLength() int64
	ContentType() string
}

type object struct {
	io.ReadCloser
	contentLength int64
	contentType   string
}

func (o *object) ContentLength() int64 { return o.contentLength }
func (o *object) ContentType() string  { return o.contentType }

// Storage is the content store behind the metadata tree. Blobs are addressed
// by generated opaque keys unrelated to the logical tree path. Delete of a
// key that is already gone succeeds.
type Storage interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Copy(ctx context.Context, srcKey, dstKey string) error
	Delete(ctx context.Context, key string) error
	Get(ctx context.Context, key string) (Object, error)
	Exists(ctx context.Context, key string) (bool, error)
}
