package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Storage handles task attachment files on local disk.
type Storage struct {
	basePath string
}

// NewStorage creates a new storage instance
func NewStorage(basePath string) (*Storage, error) {
	if err := os.MkdirAll(filepath.Join(basePath, "attachments"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &Storage{basePath: basePath}, nil
}

// SaveAttachment stores an uploaded attachment and returns its ID, SHA256
// hash and size. Files are laid out by upload date.
func (s *Storage) SaveAttachment(reader io.Reader) (attachmentID, hash string, size int64, err error) {
	attachmentID = uuid.New().String()

	datePath := time.Now().Format("2006/01/02")
	dirPath := filepath.Join(s.basePath, "attachments", datePath)
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return "", "", 0, fmt.Errorf("failed to create directory: %w", err)
	}

	filePath := filepath.Join(dirPath, attachmentID)
	file, err := os.Create(filePath)
	if err != nil {
		return "", "", 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	hasher := sha256.New()
	size, err = io.Copy(io.MultiWriter(file, hasher), reader)
	if err != nil {
		os.Remove(filePath)
		return "", "", 0, fmt.Errorf("failed to write file: %w", err)
	}

	return attachmentID, hex.EncodeToString(hasher.Sum(nil)), size, nil
}

// GetAttachment returns a reader for a stored attachment.
func (s *Storage) GetAttachment(attachmentID string) (io.ReadCloser, error) {
	path, err := s.find(attachmentID)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// DeleteAttachment removes an attachment from disk.
func (s *Storage) DeleteAttachment(attachmentID string) error {
	path, err := s.find(attachmentID)
	if err != nil {
		return err
	}
	return os.Remove(path)
}

// find walks the date-based layout for the file with the given id.
func (s *Storage) find(attachmentID string) (string, error) {
	baseDir := filepath.Join(s.basePath, "attachments")

	var found string
	err := filepath.Walk(baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Base(path) == attachmentID {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil || found == "" {
		return "", fmt.Errorf("attachment not found: %s", attachmentID)
	}
	return found, nil
}
