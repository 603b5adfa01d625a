package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"mt_trader/internal/models"
)

// FS - локальное файловое хранилище документов
type FS struct {
	baseDir string
	logger  *slog.Logger
}

// NewFS создаёт файловое хранилище с корнем baseDir
func NewFS(baseDir string, logger *slog.Logger) (*FS, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data dir: %w", err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	return &FS{baseDir: abs, logger: logger}, nil
}

func (s *FS) abs(rel string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(rel))
}

func (s *FS) Write(_ context.Context, path string, doc models.Document) error {
	abs := s.abs(path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("failed to create dir for %s: %w", path, err)
	}

	raw, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}

	if err := os.WriteFile(abs, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

func (s *FS) Read(_ context.Context, path string) (models.Document, error) {
	raw, err := os.ReadFile(s.abs(path))
	if err != nil {
		// Отсутствующий документ - это пустой документ, не ошибка
		if errors.Is(err, os.ErrNotExist) {
			return models.Document{}, nil
		}

		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var doc models.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		s.logger.Warn("Malformed document, treating as empty", slog.String("path", path))
		return models.Document{}, nil
	}

	return doc, nil
}

func (s *FS) List(_ context.Context, dir string) ([]string, error) {
	entries, err := os.ReadDir(s.abs(dir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}

	return names, nil
}

func (s *FS) Delete(_ context.Context, path string) error {
	err := os.Remove(s.abs(path))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}

	return nil
}
