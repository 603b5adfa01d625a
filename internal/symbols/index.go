// Package symbols - поисковый индекс инструментов. Строится из CSV
// со списком бумаг и отвечает на два вопроса: подбор тикера для
// фронтенда и минимальный лот инструмента для close.
package symbols

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"mt_trader/internal/httpmiddleware"
)

const searchLimit = 20

// Match - найденный инструмент
type Match struct {
	Exchange string `json:"exchange"`
	Symbol   string `json:"symbol"`
	Token    string `json:"token"`
}

// ID возвращает тройку exchange|symbol|token, которую принимают
// торговые операции
func (m Match) ID() string {
	return m.Exchange + "|" + m.Symbol + "|" + m.Token
}

// Index - индекс бумаг в sqlite
type Index struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open открывает (или создаёт) базу индекса
func Open(dbPath string, logger *slog.Logger) (*Index, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open symbols db: %w", err)
	}

	idx := &Index{db: db, logger: logger}
	if err := idx.init(); err != nil {
		return nil, err
	}

	return idx, nil
}

func (i *Index) init() error {
	_, err := i.db.Exec(`
CREATE TABLE if NOT EXISTS symbols (
    exchange TEXT NOT NULL,
    symbol   TEXT NOT NULL,
    token    TEXT NOT NULL,
    min_qty  INTEGER DEFAULT 1
);

CREATE INDEX if NOT EXISTS idx_symbols_symbol ON symbols(symbol);
CREATE INDEX if NOT EXISTS idx_symbols_token ON symbols(token);
`)
	if err != nil {
		return fmt.Errorf("failed to initialize symbols db: %w", err)
	}

	return nil
}

// Rebuild перезаливает индекс из CSV (колонки: Exchange, Stock Symbol,
// Security ID, Min Qty). Старое содержимое выбрасывается целиком.
func (i *Index) Rebuild(ctx context.Context, csvURL string) error {
	httpClient := &http.Client{
		Timeout: 30 * time.Second,
		Transport: httpmiddleware.Wrap(
			httpmiddleware.BaseTransport(),
			httpmiddleware.Retry(i.logger, 3, time.Second),
			httpmiddleware.Logger(i.logger, 0),
		),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, csvURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build csv request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download symbols csv: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("symbols csv download: status %d", resp.StatusCode)
	}

	return i.load(ctx, resp.Body)
}

func (i *Index) load(ctx context.Context, r io.Reader) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read csv header: %w", err)
	}

	col := func(name string) int {
		for idx, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return idx
			}
		}
		return -1
	}

	exchangeCol := col("Exchange")
	symbolCol := col("Stock Symbol")
	tokenCol := col("Security ID")
	minQtyCol := col("Min Qty")

	if exchangeCol < 0 || symbolCol < 0 || tokenCol < 0 {
		return fmt.Errorf("symbols csv: required columns missing in header %v", header)
	}

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin symbols tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM symbols"); err != nil {
		return fmt.Errorf("failed to clear symbols: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO symbols (exchange, symbol, token, min_qty) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Битые строки пропускаем, индекс полезен и частичным
			continue
		}

		field := func(idx int) string {
			if idx < 0 || idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}

		token := field(tokenCol)
		if token == "" {
			continue
		}

		minQty := 1
		if v, err := strconv.Atoi(field(minQtyCol)); err == nil && v > 0 {
			minQty = v
		}

		if _, err := stmt.Exec(field(exchangeCol), field(symbolCol), token, minQty); err != nil {
			continue
		}
		rows++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit symbols: %w", err)
	}

	i.logger.Info("✅ Symbols index rebuilt", slog.Int("rows", rows))

	return nil
}

// Search ищет инструменты по словам запроса (каждое слово - подстрока
// символа), с необязательным фильтром по бирже. До 20 результатов,
// отсортированных по символу.
func (i *Index) Search(ctx context.Context, query, exchange string) ([]Match, error) {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(query)))
	if len(words) == 0 {
		return nil, nil
	}

	var (
		clauses []string
		args    []any
	)
	for _, w := range words {
		clauses = append(clauses, "LOWER(symbol) LIKE ?")
		args = append(args, "%"+w+"%")
	}

	sqlQuery := "SELECT exchange, symbol, token FROM symbols WHERE " + strings.Join(clauses, " AND ")
	if exchange = strings.ToUpper(strings.TrimSpace(exchange)); exchange != "" {
		sqlQuery += " AND UPPER(exchange) = ?"
		args = append(args, exchange)
	}
	sqlQuery += " ORDER BY symbol LIMIT ?"
	args = append(args, searchLimit)

	rows, err := i.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("symbols search failed: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.Exchange, &m.Symbol, &m.Token); err != nil {
			continue
		}
		matches = append(matches, m)
	}

	return matches, rows.Err()
}

// MinLot возвращает минимальный лот инструмента по токену.
// Неизвестный токен или ошибка запроса - лот 1.
func (i *Index) MinLot(ctx context.Context, token string) int {
	var minQty int
	err := i.db.QueryRowContext(ctx, "SELECT min_qty FROM symbols WHERE token = ? LIMIT 1", token).Scan(&minQty)
	if err != nil || minQty <= 0 {
		return 1
	}

	return minQty
}

// Close закрывает базу индекса
func (i *Index) Close() error {
	return i.db.Close()
}
