// Package storage stores uploaded assets (avatars, cover images,
// thumbnails) and hands back the URL they are served from. The rest of the
// system only ever sees the URL.
package storage

import (
	"context"
	"io"

	"github.com/rs/xid"
)

// ObjectStorage saves a stream under a generated key and returns the public
// URL of the stored object.
type ObjectStorage interface {
	Save(ctx context.Context, r io.Reader, filename, contentType string) (string, error)
}

// objectKey derives a unique storage key, keeping the original extension so
// content negotiation by suffix keeps working.
func objectKey(ext string) string {
	return xid.New().String() + ext
}
