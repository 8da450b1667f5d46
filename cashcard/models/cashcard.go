package models

import "github.com/shopspring/decimal"

func init() {
	// amounts go over the wire as JSON numbers, not quoted strings
	decimal.MarshalJSONWithoutQuotes = true
}

// CashCard is a single monetary record attributed to the principal
// that created it. The owner is never serialized in API responses.
type CashCard struct {
	ID     int64           `json:"id"`
	Amount decimal.Decimal `json:"amount"`
	Owner  string          `json:"-"`
}

// CashCardResponse is the API shape of a cash card.
type CashCardResponse struct {
	ID     int64           `json:"id"`
	Amount decimal.Decimal `json:"amount"`
}

// CashCardRequest carries the amount for create and update requests.
// Amount is a pointer so a missing field can be told apart from zero.
type CashCardRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

// Validate returns a field -> message map, empty when the request is valid.
func (r CashCardRequest) Validate() map[string]string {
	errs := map[string]string{}
	if r.Amount == nil {
		errs["amount"] = "Amount cannot be null"
	} else if !r.Amount.IsPositive() {
		errs["amount"] = "Amount must be positive"
	}
	return errs
}

// BulkUpdateRequest is one entry of a bulk update payload.
type BulkUpdateRequest struct {
	ID     *int64           `json:"id"`
	Amount *decimal.Decimal `json:"amount"`
}

// Validate returns a field -> message map, empty when the entry is valid.
func (r BulkUpdateRequest) Validate() map[string]string {
	errs := map[string]string{}
	switch {
	case r.ID == nil:
		errs["id"] = "ID cannot be null"
	case *r.ID <= 0:
		errs["id"] = "ID must be positive"
	}
	switch {
	case r.Amount == nil:
		errs["amount"] = "Amount cannot be null"
	case !r.Amount.IsPositive():
		errs["amount"] = "Amount must be positive"
	}
	return errs
}

// BulkUpdateItem is a validated bulk update entry handed to the service.
type BulkUpdateItem struct {
	ID     int64
	Amount decimal.Decimal
}
