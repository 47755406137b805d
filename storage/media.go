package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"carousel/config"
)

// maxDownloadBytes caps images fetched from provider URLs.
const maxDownloadBytes = 32 << 20

// MediaStore writes generated images under a directory and serves them
// back by URL. URLs use PublicURL as prefix when set and file:// otherwise.
type MediaStore struct {
	dir       string
	publicURL string
	client    *http.Client
}

func NewMediaStore(dir, publicURL string) (*MediaStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &MediaStore{
		dir:       abs,
		publicURL: strings.TrimRight(publicURL, "/"),
		client:    &http.Client{Timeout: 2 * time.Minute},
	}, nil
}

// SaveFromURL downloads an image and stores it.
func (m *MediaStore) SaveFromURL(ctx context.Context, rawURL, filename, userID, tag string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("invalid image url: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > maxDownloadBytes {
		return "", fmt.Errorf("image exceeds %d bytes", maxDownloadBytes)
	}
	return m.write(data, filename, userID, tag)
}

// SaveFromBase64 decodes and stores an image.
func (m *MediaStore) SaveFromBase64(_ context.Context, b64, filename, userID, tag string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", fmt.Errorf("invalid base64 image: %w", err)
	}
	return m.write(data, filename, userID, tag)
}

func (m *MediaStore) write(data []byte, filename, userID, tag string) (string, error) {
	name := filepath.Base(filename)
	if name == "." || name == string(filepath.Separator) {
		return "", fmt.Errorf("invalid media filename %q", filename)
	}
	owner := safeSegment(userID)

	dir := filepath.Join(m.dir, owner)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create media directory: %w", err)
	}

	// write-then-rename so readers never observe a partial file
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create media file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write media file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	dest := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to store media file: %w", err)
	}

	if config.Debug {
		config.DebugLog.Printf("[Storage] saved %s media %s (%d bytes)", tag, dest, len(data))
	}
	return m.urlFor(owner, name), nil
}

func (m *MediaStore) urlFor(owner, name string) string {
	if m.publicURL != "" {
		return m.publicURL + "/" + url.PathEscape(owner) + "/" + url.PathEscape(name)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(filepath.Join(m.dir, owner, name))}).String()
}

// Load reads back a file previously returned by this store.
func (m *MediaStore) Load(_ context.Context, rawURL string) ([]byte, string, error) {
	path, ok := m.localPath(rawURL)
	if !ok {
		return nil, "", fmt.Errorf("url %q is not managed by this media store", rawURL)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", fmt.Errorf("media %s: %w", rawURL, ErrNotFound)
		}
		return nil, "", err
	}
	return data, http.DetectContentType(data), nil
}

func (m *MediaStore) localPath(rawURL string) (string, bool) {
	var rel string
	switch {
	case m.publicURL != "" && strings.HasPrefix(rawURL, m.publicURL+"/"):
		escaped := strings.TrimPrefix(rawURL, m.publicURL+"/")
		unescaped, err := url.PathUnescape(escaped)
		if err != nil {
			return "", false
		}
		rel = unescaped
	case strings.HasPrefix(rawURL, "file://"):
		u, err := url.Parse(rawURL)
		if err != nil {
			return "", false
		}
		r, err := filepath.Rel(m.dir, filepath.FromSlash(u.Path))
		if err != nil {
			return "", false
		}
		rel = r
	default:
		return "", false
	}

	clean := filepath.Clean(filepath.FromSlash(rel))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", false
	}
	return filepath.Join(m.dir, clean), true
}

func safeSegment(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "anonymous"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
