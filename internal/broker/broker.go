// Package broker определяет контракт брокерского подключения.
// Всё, что лежит за пределами status/message/data, передаётся
// сквозь без интерпретации.
package broker

import "context"

// StatusSuccess - статус успешного ответа брокера
const StatusSuccess = "SUCCESS"

// Capability - аутентифицированное подключение одного брокерского
// аккаунта, способное выполнять торговые операции
type Capability interface {
	Login(ctx context.Context, req LoginRequest) (LoginResponse, error)
	PlaceOrder(ctx context.Context, req OrderRequest) (OrderResponse, error)
	CancelOrder(ctx context.Context, orderID, accountID string) (CancelResponse, error)
	OrderBook(ctx context.Context, req OrderBookRequest) (OrderBookResponse, error)
	Positions(ctx context.Context) (PositionsResponse, error)
	Holdings(ctx context.Context, accountID string) (HoldingsResponse, error)
	LTP(ctx context.Context, req LTPRequest) (LTPResponse, error)
	ConvertPosition(ctx context.Context, req ConvertRequest) (ConvertResponse, error)
	MarginSummary(ctx context.Context, accountID string) (MarginSummaryResponse, error)
}

// Factory создаёт новое подключение под api ключ аккаунта
type Factory func(apiKey string) Capability

type LoginRequest struct {
	UserID     string `json:"userid"`
	Password   string `json:"password"`
	PAN        string `json:"2FA"`
	TOTP       string `json:"totp,omitempty"`
	ClientCode string `json:"clientcode,omitempty"`
}

type LoginResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	AuthToken string `json:"AuthToken,omitempty"`
}

// OrderRequest - нормализованная заявка в формате брокера
type OrderRequest struct {
	ClientCode        string  `json:"clientcode"`
	Exchange          string  `json:"exchange"`
	SymbolToken       int     `json:"symboltoken"`
	BuyOrSell         string  `json:"buyorsell"`
	OrderType         string  `json:"ordertype"`
	ProductType       string  `json:"producttype"`
	OrderDuration     string  `json:"orderduration"`
	Price             float64 `json:"price"`
	TriggerPrice      float64 `json:"triggerprice"`
	QuantityInLot     int     `json:"quantityinlot"`
	DisclosedQuantity int     `json:"disclosedquantity"`
	AMOOrder          string  `json:"amoorder"`
	AlgoID            string  `json:"algoid"`
	GoodTillDate      string  `json:"goodtilldate"`
	Tag               string  `json:"tag"`
}

type OrderResponse struct {
	Status        string `json:"status"`
	Message       string `json:"message,omitempty"`
	UniqueOrderID string `json:"uniqueorderid,omitempty"`
}

type CancelResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type OrderBookRequest struct {
	ClientCode    string `json:"clientcode"`
	DateTimeStamp string `json:"datetimestamp"`
}

// Order - строка книги заявок
type Order struct {
	UniqueOrderID string  `json:"uniqueorderid"`
	Symbol        string  `json:"symbol"`
	Exchange      string  `json:"exchange"`
	SymbolToken   int     `json:"symboltoken"`
	BuyOrSell     string  `json:"buyorsell"`
	OrderType     string  `json:"ordertype"`
	ProductType   string  `json:"producttype"`
	OrderDuration string  `json:"orderduration"`
	OrderQty      int     `json:"orderqty"`
	Price         float64 `json:"price"`
	TriggerPrice  float64 `json:"triggerprice"`
	OrderStatus   string  `json:"orderstatus"`
}

type OrderBookResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message,omitempty"`
	Data    []Order `json:"data"`
}

// Position - строка отчёта по позициям
type Position struct {
	Symbol           string  `json:"symbol"`
	Exchange         string  `json:"exchange"`
	SymbolToken      int     `json:"symboltoken"`
	ProductName      string  `json:"productname"`
	BuyQuantity      int     `json:"buyquantity"`
	SellQuantity     int     `json:"sellquantity"`
	BuyAmount        float64 `json:"buyamount"`
	SellAmount       float64 `json:"sellamount"`
	BookedProfitLoss float64 `json:"bookedprofitloss"`
	LTP              float64 `json:"LTP"`
}

// NetQuantity - чистая позиция (куплено минус продано)
func (p Position) NetQuantity() int {
	return p.BuyQuantity - p.SellQuantity
}

type PositionsResponse struct {
	Status  string     `json:"status"`
	Message string     `json:"message,omitempty"`
	Data    []Position `json:"data"`
}

// Holding - строка DP холдингов
type Holding struct {
	ScripName      string  `json:"scripname"`
	DPQuantity     float64 `json:"dpquantity"`
	BuyAvgPrice    float64 `json:"buyavgprice"`
	NSESymbolToken int     `json:"nsesymboltoken"`
}

type HoldingsResponse struct {
	Status  string    `json:"status"`
	Message string    `json:"message,omitempty"`
	Data    []Holding `json:"data"`
}

type LTPRequest struct {
	ClientCode string `json:"clientcode"`
	Exchange   string `json:"exchange"`
	ScripCode  int    `json:"scripcode"`
}

type LTPResponse struct {
	Status string `json:"status"`
	Data   struct {
		LTP float64 `json:"ltp"`
	} `json:"data"`
}

type ConvertRequest struct {
	ClientCode string `json:"clientcode"`
	Exchange   string `json:"exchange"`
	ScripCode  int    `json:"scripcode"`
	Quantity   int    `json:"quantity"`
	OldProduct string `json:"oldproduct"`
	NewProduct string `json:"newproduct"`
}

type ConvertResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// MarginRow - строка отчёта по марже
type MarginRow struct {
	Particulars string  `json:"particulars"`
	Amount      float64 `json:"amount"`
}

type MarginSummaryResponse struct {
	Status string      `json:"status"`
	Data   []MarginRow `json:"data"`
}
