package publish

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kiranshivaraju/scenegen/internal/config"
)

// LocalPublisher copies files into a directory, typically one served by a
// web server at BaseURL. Without BaseURL a file:// URL is returned.
type LocalPublisher struct {
	dir     string
	baseURL string
}

func NewLocalPublisher(cfg config.LocalConfig) *LocalPublisher {
	return &LocalPublisher{dir: cfg.Dir, baseURL: cfg.BaseURL}
}

func (p *LocalPublisher) Upload(ctx context.Context, localPath, remoteName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := SanitizeName(remoteName)
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	dst := filepath.Join(p.dir, name)
	if err := copyFile(localPath, dst); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	if p.baseURL != "" {
		return JoinURL(p.baseURL, name), nil
	}
	abs, err := filepath.Abs(dst)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	return "file://" + filepath.ToSlash(abs), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Compile-time check that LocalPublisher implements Publisher.
var _ Publisher = (*LocalPublisher)(nil)
