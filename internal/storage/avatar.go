package storage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrFileTooLarge    = errors.New("file is too large")
	ErrUnsupportedType = errors.New("unsupported file type")
)

var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// AvatarStore writes uploaded avatars to a local directory served under publicPrefix.
type AvatarStore struct {
	dir          string
	publicPrefix string
	maxBytes     int64
	allowed      map[string]bool
}

func NewAvatarStore(dir, publicPrefix string, maxSizeKB int, allowedTypes []string) *AvatarStore {
	allowed := make(map[string]bool, len(allowedTypes))
	for _, t := range allowedTypes {
		allowed[t] = true
	}
	return &AvatarStore{
		dir:          dir,
		publicPrefix: publicPrefix,
		maxBytes:     int64(maxSizeKB) * 1024,
		allowed:      allowed,
	}
}

func (s *AvatarStore) Dir() string { return s.dir }

func (s *AvatarStore) PublicPrefix() string { return s.publicPrefix }

// Save sniffs the content type instead of trusting the client header, then
// stores the file under a random name and returns its public URL.
func (s *AvatarStore) Save(file *multipart.FileHeader) (string, error) {
	if s.maxBytes > 0 && file.Size > s.maxBytes {
		return "", fmt.Errorf("%w: max %d KB", ErrFileTooLarge, s.maxBytes/1024)
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open upload failed: %w", err)
	}
	defer src.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(src, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload failed: %w", err)
	}
	head = head[:n]

	contentType := http.DetectContentType(head)
	ext, known := extensions[contentType]
	if !known || !s.allowed[contentType] {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir failed: %w", err)
	}

	name := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("create avatar file failed: %w", err)
	}
	defer dst.Close()

	if _, err := dst.Write(head); err != nil {
		return "", fmt.Errorf("write avatar failed: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("write avatar failed: %w", err)
	}
	return path.Join(s.publicPrefix, name), nil
}

// Remove deletes the file behind a URL returned by Save. URLs outside the public
// prefix, such as provider avatars, are left alone.
func (s *AvatarStore) Remove(url string) error {
	prefix := strings.TrimSuffix(s.publicPrefix, "/") + "/"
	if !strings.HasPrefix(url, prefix) {
		return nil
	}
	name := strings.TrimPrefix(url, prefix)
	if name == "" || strings.ContainsAny(name, `/\`) || name == ".." {
		return nil
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove avatar failed: %w", err)
	}
	return nil
}
