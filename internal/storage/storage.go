// Package storage provides presigned access to the attachment object store.
package storage

import "context"

// ObjectStore issues short-lived presigned URLs for attachment uploads and
// downloads. Content-type and size validation happens before a presign is
// requested.
type ObjectStore interface {
	PresignPut(ctx context.Context, key string) (string, error)
	PresignGet(ctx context.Context, key string) (string, error)
}
