package storage

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned by StatObject and GetObject when the key is absent.
var ErrNotFound = errors.New("storage: object not found")

// IsNotFound reports whether err means the key does not exist.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// ObjectInfo represents metadata for a remote file/object.
type ObjectInfo struct {
	Key         string
	Size        int64
	ContentType string
	// Metadata holds user metadata with lower-cased keys.
	Metadata map[string]string
}

// MetadataValue looks up a user metadata entry case-insensitively.
func (o ObjectInfo) MetadataValue(name string) string {
	if v, ok := o.Metadata[strings.ToLower(name)]; ok {
		return v
	}
	for k, v := range o.Metadata {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// PutOptions travel with the payload in the same write.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// ObjectStorage captures the minimal S3-compatible operations the ingest and
// report jobs need.
type ObjectStorage interface {
	// StatObject is a metadata-only lookup; it does not transfer the payload.
	StatObject(ctx context.Context, key string) (ObjectInfo, error)
	GetObject(ctx context.Context, key string) ([]byte, ObjectInfo, error)
	// PutObject writes data, content type and metadata in a single request.
	PutObject(ctx context.Context, key string, data []byte, opts PutOptions) error
}

func normalizeMetadata(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[strings.ToLower(k)] = v
	}
	return out
}
