// Package storage keeps uploaded receipt files on the local filesystem.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gen2brain/go-fitz"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garyjia/club-expenses/internal/application/port"
)

// DefaultMaxReceiptSize caps an upload at 10 MiB
const DefaultMaxReceiptSize = 10 << 20

var (
	extensions = map[string]string{
		"application/pdf": ".pdf",
		"image/jpeg":      ".jpg",
		"image/png":       ".png",
	}
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)
)

// ReceiptStorage implements port.ReceiptStorage under a base directory.
// Receipts are grouped in one folder per month of upload.
type ReceiptStorage struct {
	baseDir   string
	urlPrefix string
	maxSize   int
	logger    *zap.Logger
	now       func() time.Time
}

var _ port.ReceiptStorage = (*ReceiptStorage)(nil)

// NewReceiptStorage creates a receipt store. urlPrefix is the public path
// the HTTP layer serves receipts under.
func NewReceiptStorage(baseDir, urlPrefix string, maxSize int, logger *zap.Logger) *ReceiptStorage {
	if maxSize <= 0 {
		maxSize = DefaultMaxReceiptSize
	}
	return &ReceiptStorage{
		baseDir:   baseDir,
		urlPrefix: strings.TrimSuffix(urlPrefix, "/"),
		maxSize:   maxSize,
		logger:    logger,
		now:       time.Now,
	}
}

// Save validates content as a PDF, JPEG or PNG and stores it under a new name
func (s *ReceiptStorage) Save(ctx context.Context, originalName string, content []byte) (*port.StoredReceipt, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: empty file", port.ErrUnsupportedReceipt)
	}
	if len(content) > s.maxSize {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", port.ErrUnsupportedReceipt, s.maxSize)
	}

	detected := mimetype.Detect(content)
	contentType, ext := "", ""
	for candidate, candidateExt := range extensions {
		if detected.Is(candidate) {
			contentType, ext = candidate, candidateExt
			break
		}
	}
	if contentType == "" {
		return nil, fmt.Errorf("%w: %s", port.ErrUnsupportedReceipt, detected.String())
	}

	pages := 1
	if contentType == "application/pdf" {
		n, err := countPages(content)
		if err != nil {
			s.logger.Info("Rejected unreadable PDF receipt",
				zap.String("original_name", originalName),
				zap.Error(err))
			return nil, fmt.Errorf("%w: %v", port.ErrUnsupportedReceipt, err)
		}
		pages = n
	} else if _, _, err := image.DecodeConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("%w: unreadable image: %v", port.ErrUnsupportedReceipt, err)
	}

	name := path.Join(s.now().UTC().Format("2006-01"), uuid.NewString()+ext)
	fullPath, err := s.resolve(name)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		s.logger.Error("Failed to create receipt folder",
			zap.String("path", filepath.Dir(fullPath)),
			zap.Error(err))
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		s.logger.Error("Failed to write receipt",
			zap.String("path", fullPath),
			zap.Error(err))
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	s.logger.Info("Receipt stored",
		zap.String("name", name),
		zap.String("original_name", SanitizeName(originalName)),
		zap.String("content_type", contentType),
		zap.Int("size", len(content)),
		zap.Int("pages", pages))

	return &port.StoredReceipt{
		Name:        name,
		URL:         s.urlPrefix + "/" + name,
		ContentType: contentType,
		Size:        int64(len(content)),
		Pages:       pages,
	}, nil
}

// Open returns the filesystem path of a stored receipt
func (s *ReceiptStorage) Open(ctx context.Context, name string) (string, error) {
	fullPath, err := s.resolve(name)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(fullPath)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("receipt %s: %w", name, port.ErrNotFound)
	}
	return fullPath, nil
}

// resolve maps a receipt name to a path that must stay inside baseDir
func (s *ReceiptStorage) resolve(name string) (string, error) {
	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base path: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(absBase, filepath.FromSlash(name)))
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("receipt %s: %w", name, port.ErrNotFound)
	}
	return absPath, nil
}

func countPages(content []byte) (int, error) {
	doc, err := fitz.NewFromMemory(content)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	n := doc.NumPage()
	if n < 1 {
		return 0, fmt.Errorf("PDF has no pages")
	}
	return n, nil
}

// SanitizeName returns a filesystem-safe version of name for logging and
// download headers
func SanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "")
	return unsafeChars.ReplaceAllString(name, "")
}
