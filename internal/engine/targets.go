package engine

import (
	"context"
	"fmt"
	"log/slog"

	"mt_trader/internal/models"
	"mt_trader/internal/store"
)

// Политики выбора количества
const (
	QtyAuto = "auto"
)

// PlaceRequest - одна логическая торговая инструкция до разворачивания
// в цели. Поля количества интерпретируются политикой:
// QtySelection=="auto" - от капитала, DiffQty - пер-группа/пер-клиент
// из PerGroupQty/PerClientQty, Multiplier - базовый лот на множитель
// группы, иначе базовый лот как есть.
type PlaceRequest struct {
	Symbol            string         `json:"symbol"`
	GroupAcc          bool           `json:"groupacc"`
	Groups            []string       `json:"groups"`
	Clients           []string       `json:"clients"`
	DiffQty           bool           `json:"diffQty"`
	Multiplier        bool           `json:"multiplier"`
	QtySelection      string         `json:"qtySelection"`
	QuantityInLot     int            `json:"quantityinlot"`
	PerClientQty      map[string]int `json:"perClientQty"`
	PerGroupQty       map[string]int `json:"perGroupQty"`
	Action            string         `json:"action"`
	OrderType         string         `json:"ordertype"`
	ProductType       string         `json:"producttype"`
	OrderDuration     string         `json:"orderduration"`
	Exchange          string         `json:"exchange"`
	Price             float64        `json:"price"`
	TriggerPrice      float64        `json:"triggerprice"`
	DisclosedQuantity int            `json:"disclosedquantity"`
	AMOOrder          string         `json:"amoorder"`
}

// Target - одна цель fanout: аккаунт, количество и тег источника
// (имя группы или сетапа). Живёт только в пределах запроса.
type Target struct {
	Tag       string
	AccountID string
	Quantity  int
}

// Key - ключ цели в итоговой карте результатов. Коллизии
// (два разных тега, дающие одинаковую строку) молча перезаписывают
// один результат - известный краевой случай, не ошибка.
func (t Target) Key() string {
	if t.Tag != "" {
		return t.Tag + ":" + t.AccountID
	}

	return t.AccountID
}

// resolveTargets разворачивает запрос в список целей. Отсутствующая
// группа не прерывает запрос: для неё пишется запись об ошибке на
// уровне группы, остальные группы обрабатываются дальше.
func (e *Engine) resolveTargets(ctx context.Context, user string, req PlaceRequest) ([]Target, map[string]any) {
	groupErrors := make(map[string]any)

	if !req.GroupAcc {
		targets := make([]Target, 0, len(req.Clients))
		for _, accountID := range req.Clients {
			targets = append(targets, Target{
				AccountID: accountID,
				Quantity:  e.clientQuantity(ctx, user, accountID, req),
			})
		}

		return targets, groupErrors
	}

	var targets []Target
	for _, groupName := range req.Groups {
		doc, err := e.store.Read(ctx, store.GroupPath(user, groupName))
		if err != nil || len(doc) == 0 {
			if err != nil {
				e.logger.Error("Failed to read group doc",
					slog.String("user", user),
					slog.String("group", groupName),
					slog.Any("error", err))
			}
			groupErrors[groupName] = Outcome{
				Status:  StatusError,
				Message: fmt.Sprintf("Group not found: %s", groupName),
			}
			continue
		}

		var group models.Group
		if err := doc.Decode(&group); err != nil {
			groupErrors[groupName] = Outcome{
				Status:  StatusError,
				Message: fmt.Sprintf("Group malformed: %s", groupName),
			}
			continue
		}

		multiplier := group.Multiplier
		if multiplier <= 0 {
			multiplier = 1
		}

		// Члены группы не дедуплицируются намеренно
		for _, accountID := range group.Members {
			qty := req.QuantityInLot
			switch {
			case req.QtySelection == QtyAuto:
				qty = e.hub.AutoQuantity(ctx, user, accountID, req.Price)
			case req.DiffQty:
				qty = req.PerGroupQty[groupName]
			case req.Multiplier:
				qty = req.QuantityInLot * multiplier
			}

			targets = append(targets, Target{Tag: groupName, AccountID: accountID, Quantity: qty})
		}
	}

	return targets, groupErrors
}

func (e *Engine) clientQuantity(ctx context.Context, user, accountID string, req PlaceRequest) int {
	switch {
	case req.QtySelection == QtyAuto:
		return e.hub.AutoQuantity(ctx, user, accountID, req.Price)
	case req.DiffQty:
		return req.PerClientQty[accountID]
	default:
		return req.QuantityInLot
	}
}
