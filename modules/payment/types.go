package payment

import "github.com/shopspring/decimal"

type CreateIntentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	OrderID     string          `json:"order_id,omitempty"`
	Description string          `json:"description,omitempty"`
}

type IntentResponse struct {
	ID           string          `json:"id"`
	ClientSecret string          `json:"client_secret,omitempty"`
	Status       string          `json:"status"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	OrderID      string          `json:"order_id,omitempty"`
}

type GetIntentRequest struct {
	ID string `json:"id"`
}

type RefundRequest struct {
	OrderID  string `json:"order_id"`
	IntentID string `json:"intent_id"`
	// Amount is optional; nil refunds the full charge.
	Amount *decimal.Decimal `json:"amount,omitempty"`
	Reason string           `json:"reason,omitempty"`
}

type RefundResponse struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Amount decimal.Decimal `json:"amount"`
}
