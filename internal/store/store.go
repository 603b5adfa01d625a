// Package store реализует Account Store - документное хранилище
// JSON файлов, адресуемых путями вида users/<user>/clients/motilal/<id>.json.
package store

import (
	"context"
	"strings"

	"mt_trader/internal/models"
)

// DocStore - контракт документного хранилища.
// Read отсутствующего документа возвращает пустой Document и nil ошибку:
// вызывающий код использует пустоту как признак отсутствия.
type DocStore interface {
	Write(ctx context.Context, path string, doc models.Document) error
	Read(ctx context.Context, path string) (models.Document, error)
	List(ctx context.Context, dir string) ([]string, error)
	Delete(ctx context.Context, path string) error
}

// Sanitize приводит сегмент пути к безопасному виду (как имя файла)
func Sanitize(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "_")

	var b strings.Builder
	for _, ch := range s {
		if ch == '_' || ch == '-' ||
			(ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') {
			b.WriteRune(ch)
		}
	}

	return b.String()
}

// Пути документов. Broker в пути зафиксирован: motilal.

func ClientsDir(user string) string {
	return "users/" + Sanitize(user) + "/clients/motilal"
}

func ClientPath(user, accountID string) string {
	return ClientsDir(user) + "/" + Sanitize(accountID) + ".json"
}

func GroupsDir(user string) string {
	return "users/" + Sanitize(user) + "/groups"
}

func GroupPath(user, name string) string {
	return GroupsDir(user) + "/" + Sanitize(name) + ".json"
}

func CopySetupsDir(user string) string {
	return "users/" + Sanitize(user) + "/copy_setups"
}

func CopySetupPath(user, setupID string) string {
	return CopySetupsDir(user) + "/" + Sanitize(setupID) + ".json"
}

func ProfilePath(user string) string {
	return "users/" + Sanitize(user) + "/profile.json"
}
