package store

import (
	"context"
	"log/slog"

	"mt_trader/internal/models"
)

// Mirrored - локальное хранилище с зеркалированием в GitHub.
// Запись идёт всегда локально и дублируется в GitHub; чтение
// предпочитает GitHub, чтобы stateless деплой видел общее состояние.
type Mirrored struct {
	local  *FS
	remote *GitHub
	logger *slog.Logger
}

func NewMirrored(local *FS, remote *GitHub, logger *slog.Logger) *Mirrored {
	return &Mirrored{local: local, remote: remote, logger: logger}
}

func (s *Mirrored) Write(ctx context.Context, path string, doc models.Document) error {
	if err := s.local.Write(ctx, path, doc); err != nil {
		return err
	}

	if err := s.remote.Write(ctx, path, doc); err != nil {
		// Зеркало не должно блокировать работу: локальная копия уже записана
		s.logger.Warn("GitHub mirror write failed", slog.String("path", path), slog.Any("error", err))
	}

	return nil
}

func (s *Mirrored) Read(ctx context.Context, path string) (models.Document, error) {
	doc, err := s.remote.Read(ctx, path)
	if err == nil && len(doc) > 0 {
		return doc, nil
	}
	if err != nil {
		s.logger.Warn("GitHub mirror read failed, falling back to local", slog.String("path", path), slog.Any("error", err))
	}

	return s.local.Read(ctx, path)
}

func (s *Mirrored) List(ctx context.Context, dir string) ([]string, error) {
	names, err := s.remote.List(ctx, dir)
	if err == nil && len(names) > 0 {
		return names, nil
	}
	if err != nil {
		s.logger.Warn("GitHub mirror list failed, falling back to local", slog.String("dir", dir), slog.Any("error", err))
	}

	return s.local.List(ctx, dir)
}

func (s *Mirrored) Delete(ctx context.Context, path string) error {
	if err := s.local.Delete(ctx, path); err != nil {
		return err
	}

	if err := s.remote.Delete(ctx, path); err != nil {
		s.logger.Warn("GitHub mirror delete failed", slog.String("path", path), slog.Any("error", err))
	}

	return nil
}
