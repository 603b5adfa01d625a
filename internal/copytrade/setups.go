// Package copytrade хранит copy-trading сетапы (master -> дети с
// множителями) и зеркалирует заявки мастера на детей, пока сетап
// включён.
package copytrade

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mt_trader/internal/models"
	"mt_trader/internal/store"
)

// Setups - CRUD поверх Account Store
type Setups struct {
	store  store.DocStore
	logger *slog.Logger
}

func NewSetups(docStore store.DocStore, logger *slog.Logger) *Setups {
	return &Setups{store: docStore, logger: logger}
}

// Save создаёт сетап. setup_id = нормализованное имя + таймстамп
// создания: быстрые пересоздания под одним именем не конфликтуют.
func (s *Setups) Save(ctx context.Context, user string, setup models.CopySetup) (string, error) {
	if setup.Name == "" {
		return "", fmt.Errorf("setup name is required")
	}
	if setup.Master == "" {
		return "", fmt.Errorf("setup master account is required")
	}

	setup.SetupID = store.Sanitize(setup.Name) + "_" + time.Now().UTC().Format("20060102150405")
	setup.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	if err := s.store.Write(ctx, store.CopySetupPath(user, setup.SetupID), setupDoc(setup)); err != nil {
		return "", fmt.Errorf("failed to save copy setup: %w", err)
	}

	s.logger.Info("✅ Copy setup saved",
		slog.String("user", user),
		slog.String("setup", setup.SetupID))

	return setup.SetupID, nil
}

// Get возвращает сетап по id; отсутствие - не ошибка
func (s *Setups) Get(ctx context.Context, user, setupID string) (models.CopySetup, bool, error) {
	doc, err := s.store.Read(ctx, store.CopySetupPath(user, setupID))
	if err != nil {
		return models.CopySetup{}, false, fmt.Errorf("failed to read copy setup: %w", err)
	}
	if len(doc) == 0 {
		return models.CopySetup{}, false, nil
	}

	var setup models.CopySetup
	if err := doc.Decode(&setup); err != nil {
		return models.CopySetup{}, false, fmt.Errorf("copy setup %s malformed: %w", setupID, err)
	}

	return setup, true, nil
}

// List возвращает все сетапы пользователя
func (s *Setups) List(ctx context.Context, user string) ([]models.CopySetup, error) {
	names, err := s.store.List(ctx, store.CopySetupsDir(user))
	if err != nil {
		return nil, fmt.Errorf("failed to list copy setups: %w", err)
	}

	setups := make([]models.CopySetup, 0, len(names))
	for _, name := range names {
		setup, ok, err := s.Get(ctx, user, trimJSON(name))
		if err != nil || !ok {
			continue
		}
		setups = append(setups, setup)
	}

	return setups, nil
}

// Active возвращает только включённые сетапы
func (s *Setups) Active(ctx context.Context, user string) ([]models.CopySetup, error) {
	all, err := s.List(ctx, user)
	if err != nil {
		return nil, err
	}

	active := make([]models.CopySetup, 0, len(all))
	for _, setup := range all {
		if setup.Enabled {
			active = append(active, setup)
		}
	}

	return active, nil
}

// SetEnabled переключает сетап. Идемпотентно, запись в хранилище
// происходит сразу; children/multipliers не трогаются.
func (s *Setups) SetEnabled(ctx context.Context, user, setupID string, enabled bool) (models.CopySetup, error) {
	path := store.CopySetupPath(user, setupID)

	doc, err := s.store.Read(ctx, path)
	if err != nil {
		return models.CopySetup{}, fmt.Errorf("failed to read copy setup: %w", err)
	}
	if len(doc) == 0 {
		return models.CopySetup{}, fmt.Errorf("setup not found: %s", setupID)
	}

	doc["enabled"] = enabled
	doc["updated_at"] = time.Now().UTC().Format(time.RFC3339)

	if err := s.store.Write(ctx, path, doc); err != nil {
		return models.CopySetup{}, fmt.Errorf("failed to update copy setup: %w", err)
	}

	var setup models.CopySetup
	if err := doc.Decode(&setup); err != nil {
		return models.CopySetup{}, fmt.Errorf("copy setup %s malformed: %w", setupID, err)
	}

	return setup, nil
}

// Delete удаляет сетап
func (s *Setups) Delete(ctx context.Context, user, setupID string) error {
	if err := s.store.Delete(ctx, store.CopySetupPath(user, setupID)); err != nil {
		return fmt.Errorf("failed to delete copy setup: %w", err)
	}

	return nil
}

func setupDoc(setup models.CopySetup) models.Document {
	doc := models.Document{
		"setup_id":   setup.SetupID,
		"name":       setup.Name,
		"master":     setup.Master,
		"children":   setup.Children,
		"enabled":    setup.Enabled,
		"updated_at": setup.UpdatedAt,
	}
	if len(setup.Multipliers) > 0 {
		doc["multipliers"] = setup.Multipliers
	}

	return doc
}

func trimJSON(name string) string {
	if len(name) > 5 && name[len(name)-5:] == ".json" {
		return name[:len(name)-5]
	}

	return name
}
