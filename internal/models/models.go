package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Document - документ Account Store в сыром виде.
// Хранилище оперирует JSON объектами без жёсткой схемы, поэтому
// merge-запись (login обновляет session_active, не затирая чужие поля)
// делается прямо на map.
type Document map[string]any

// Str возвращает первое непустое строковое значение по списку ключей
func (d Document) Str(keys ...string) string {
	for _, k := range keys {
		v, ok := d[k]
		if !ok || v == nil {
			continue
		}
		s := strings.TrimSpace(toString(v))
		if s != "" {
			return s
		}
	}

	return ""
}

// Float возвращает первое ненулевое числовое значение по списку ключей
func (d Document) Float(keys ...string) float64 {
	for _, k := range keys {
		v, ok := d[k]
		if !ok || v == nil {
			continue
		}
		if f := toFloat(v); f != 0 {
			return f
		}
	}

	return 0
}

// Bool возвращает булево значение ключа (отсутствие = false)
func (d Document) Bool(key string) bool {
	v, ok := d[key]
	if !ok {
		return false
	}

	b, _ := v.(bool)

	return b
}

// StrList возвращает первый непустой список строк по списку ключей
func (d Document) StrList(keys ...string) []string {
	for _, k := range keys {
		raw, ok := d[k].([]any)
		if !ok || len(raw) == 0 {
			continue
		}

		out := make([]string, 0, len(raw))
		for _, v := range raw {
			out = append(out, toString(v))
		}

		return out
	}

	return nil
}

// Merge накладывает поля other поверх документа
func (d Document) Merge(other Document) {
	for k, v := range other {
		d[k] = v
	}
}

// Decode декодирует документ в типизированную структуру
func (d Document) Decode(dst any) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}

	return json.Unmarshal(raw, dst)
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// Group - именованная группа аккаунтов с общим множителем количества
type Group struct {
	ID         string   `json:"id"`
	GroupName  string   `json:"group_name"`
	Members    []string `json:"members"`
	Multiplier int      `json:"multiplier"`
	UpdatedAt  string   `json:"updated_at,omitempty"`
}

// CopySetup - настройка copy trading: master аккаунт и дочерние
// аккаунты с индивидуальными множителями
type CopySetup struct {
	SetupID     string             `json:"setup_id"`
	Name        string             `json:"name"`
	Master      string             `json:"master"`
	Children    []string           `json:"children"`
	Multipliers map[string]float64 `json:"multipliers,omitempty"`
	Enabled     bool               `json:"enabled"`
	UpdatedAt   string             `json:"updated_at,omitempty"`
}

// ChildMultiplier возвращает множитель дочернего аккаунта (по умолчанию 1)
func (s *CopySetup) ChildMultiplier(accountID string) float64 {
	if s.Multipliers == nil {
		return 1
	}

	m, ok := s.Multipliers[accountID]
	if !ok || m <= 0 {
		return 1
	}

	return m
}

// UserProfile - учётные данные пользователя платформы
type UserProfile struct {
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
	CreatedAt    string `json:"created_at,omitempty"`
}
