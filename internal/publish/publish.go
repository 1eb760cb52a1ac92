// Package publish stores generated images and returns their public URLs.
package publish

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kiranshivaraju/scenegen/internal/config"
)

// ErrUploadFailed wraps every backend failure.
var ErrUploadFailed = errors.New("upload failed")

// Publisher uploads a local file under remoteName and returns its public URL.
type Publisher interface {
	Upload(ctx context.Context, localPath, remoteName string) (string, error)
}

// New constructs the publisher selected by cfg.Backend.
func New(cfg config.PublishConfig) (Publisher, error) {
	switch cfg.Backend {
	case "sftp":
		return NewSFTPPublisher(cfg.SFTP)
	case "minio":
		return NewMinIOPublisher(cfg.MinIO)
	case "local":
		return NewLocalPublisher(cfg.Local), nil
	default:
		return nil, fmt.Errorf("unknown publish backend %q: must be one of sftp, minio, local", cfg.Backend)
	}
}

// WriteImage writes data to dir/name, creating dir if needed. name is
// sanitised to a single path element. Returns the written path.
func WriteImage(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}
	p := filepath.Join(dir, SanitizeName(name))
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("writing image: %w", err)
	}
	return p, nil
}

// SanitizeName maps name to a safe file name: characters outside
// [A-Za-z0-9._-] become '_', and leading dots are dropped. When that
// rewrites anything, the first 8 hex digits of the name's SHA-256 are
// inserted before the extension so distinct names stay distinct.
// Clean names are returned unchanged, which makes the mapping idempotent.
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	s := strings.Map(func(r rune) rune {
		if safeRune(r) || r == '.' {
			return r
		}
		return '_'
	}, name)
	s = strings.TrimLeft(s, ".")
	if s == "" {
		return "_"
	}
	if s == name {
		return s
	}
	sum := sha256.Sum256([]byte(name))
	ext := filepath.Ext(s)
	if !isSimpleExt(strings.TrimPrefix(ext, ".")) {
		ext = ""
	}
	base := strings.TrimSuffix(s, ext)
	return base + "-" + hex.EncodeToString(sum[:4]) + ext
}

func safeRune(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '-'
}

func isSimpleExt(ext string) bool {
	if ext == "" || len(ext) > 5 {
		return false
	}
	for _, r := range ext {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// JoinURL appends name to base with exactly one separating slash.
func JoinURL(base, name string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(name, "/")
}
