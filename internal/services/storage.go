package services

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// StorageService keeps uploads in a scoped temporary location until the
// extractor is done with them.
type StorageService interface {
	SaveUpload(file *multipart.FileHeader) (string, error)
	SaveBytes(filename string, data []byte) (string, error)
	DeleteFile(filePath string) error
	EnsureUploadDir() error
}

type storageService struct {
	uploadPath string
}

func NewStorageService(uploadPath string) StorageService {
	return &storageService{
		uploadPath: uploadPath,
	}
}

func (s *storageService) EnsureUploadDir() error {
	if err := os.MkdirAll(s.uploadPath, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	return nil
}

func (s *storageService) SaveUpload(file *multipart.FileHeader) (string, error) {
	filePath, err := s.reserve(file.Filename)
	if err != nil {
		return "", err
	}

	// Open source file
	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	// Create destination file
	dst, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	// Copy file
	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(filePath)
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return filePath, nil
}

func (s *storageService) SaveBytes(filename string, data []byte) (string, error) {
	filePath, err := s.reserve(filename)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(filePath, data, 0600); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return filePath, nil
}

func (s *storageService) DeleteFile(filePath string) error {
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// reserve validates the extension and returns a unique path under the upload dir.
func (s *storageService) reserve(filename string) (string, error) {
	if DetectDocumentKind(filename) == DocumentUnknown {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFile, strings.ToLower(filepath.Ext(filename)))
	}

	ext := strings.ToLower(filepath.Ext(filename))
	uniqueFilename := fmt.Sprintf("upload_%s%s", uuid.New().String(), ext)
	return filepath.Join(s.uploadPath, uniqueFilename), nil
}
