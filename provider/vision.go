package provider

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"carousel/model"
)

const maxImageBytes = 20 << 20

var imageHTTPClient = &http.Client{Timeout: 60 * time.Second}

// fetchImage loads the bytes behind an image reference. data: URLs are
// decoded locally; http(s) URLs are downloaded.
func fetchImage(ctx context.Context, ref model.ImageRef) ([]byte, string, error) {
	if len(ref.Data) > 0 {
		return ref.Data, mimeOrDefault(ref.MIMEType, ref.Data), nil
	}
	if strings.HasPrefix(ref.URL, "data:") {
		return decodeDataURL(ref.URL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.URL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("invalid image URL: %w", err)
	}
	resp, err := imageHTTPClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", &httpStatusError{StatusCode: resp.StatusCode, URL: ref.URL}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, "", fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}

	mime := resp.Header.Get("Content-Type")
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	return data, mimeOrDefault(mime, data), nil
}

// decodeDataURL parses "data:<mime>;base64,<payload>".
func decodeDataURL(u string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(u, "data:")
	if !ok {
		return nil, "", fmt.Errorf("not a data URL")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("malformed data URL")
	}
	mime, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return nil, "", fmt.Errorf("data URL must be base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("invalid base64 in data URL: %w", err)
	}
	return data, mimeOrDefault(mime, data), nil
}

func mimeOrDefault(mime string, data []byte) string {
	if strings.HasPrefix(mime, "image/") {
		return mime
	}
	detected := http.DetectContentType(data)
	if strings.HasPrefix(detected, "image/") {
		return detected
	}
	return "image/png"
}

// imageFormat returns the short format name ("png", "jpeg") for a MIME type.
func imageFormat(mime string) string {
	f := strings.TrimPrefix(mime, "image/")
	if f == "" || f == mime {
		return "png"
	}
	return f
}
