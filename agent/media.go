package agent

import "context"

// MediaStore persists generated images and returns a stable URL for them.
// Implementations must accept concurrent writes of distinct files.
type MediaStore interface {
	SaveFromURL(ctx context.Context, url, filename, userID, tag string) (string, error)
	SaveFromBase64(ctx context.Context, b64, filename, userID, tag string) (string, error)
}

// MediaLoader is implemented by media stores that can read back what they
// saved. Overlay agents use it to send source images inline.
type MediaLoader interface {
	Load(ctx context.Context, url string) (data []byte, mimeType string, err error)
}
