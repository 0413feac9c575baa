package main

import (
	"bytes"
	"encoding/json"

	"github.com/bakery-platform/inventory/internal/domain"
)

// quantity accepts a JSON number, a numeric string or null
type quantity float64

func (q *quantity) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	f, err := domain.ParseQuantity(raw)
	if err != nil {
		return err
	}
	*q = quantity(f)
	return nil
}

type ledgerRequest struct {
	OpeningStock quantity `json:"openingStock" binding:"qty"`
	Received     quantity `json:"received" binding:"qty"`
	Consumed     quantity `json:"consumed" binding:"qty"`
	Received2    quantity `json:"received2" binding:"qty"`
	Consumed2    quantity `json:"consumed2" binding:"qty"`

	OpeningStockPrimary   quantity `json:"openingStockPrimary" binding:"qty"`
	OpeningStockSecondary quantity `json:"openingStockSecondary" binding:"qty"`
	ReceivedPrimary       quantity `json:"receivedPrimary" binding:"qty"`
	ReceivedSecondary     quantity `json:"receivedSecondary" binding:"qty"`
	ConsumedPrimary       quantity `json:"consumedPrimary" binding:"qty"`
	ConsumedSecondary     quantity `json:"consumedSecondary" binding:"qty"`
	Received2Primary      quantity `json:"received2Primary" binding:"qty"`
	Received2Secondary    quantity `json:"received2Secondary" binding:"qty"`
	Consumed2Primary      quantity `json:"consumed2Primary" binding:"qty"`
	Consumed2Secondary    quantity `json:"consumed2Secondary" binding:"qty"`
}

func (r *ledgerRequest) toDomain() *domain.LedgerInputs {
	if r == nil {
		return nil
	}
	return &domain.LedgerInputs{
		OpeningStock:          float64(r.OpeningStock),
		Received:              float64(r.Received),
		Consumed:              float64(r.Consumed),
		Received2:             float64(r.Received2),
		Consumed2:             float64(r.Consumed2),
		OpeningStockPrimary:   float64(r.OpeningStockPrimary),
		OpeningStockSecondary: float64(r.OpeningStockSecondary),
		ReceivedPrimary:       float64(r.ReceivedPrimary),
		ReceivedSecondary:     float64(r.ReceivedSecondary),
		ConsumedPrimary:       float64(r.ConsumedPrimary),
		ConsumedSecondary:     float64(r.ConsumedSecondary),
		Received2Primary:      float64(r.Received2Primary),
		Received2Secondary:    float64(r.Received2Secondary),
		Consumed2Primary:      float64(r.Consumed2Primary),
		Consumed2Secondary:    float64(r.Consumed2Secondary),
	}
}

// itemRequest is the body of item create and update. On update a missing
// ledger means an empty one, since PUT replaces the item.
type itemRequest struct {
	Name                     string         `json:"name" binding:"required"`
	PrimaryUnit              string         `json:"primaryUnit" binding:"required,primary_unit"`
	CustomPrimaryUnit        string         `json:"customPrimaryUnit" binding:"required_if=PrimaryUnit custom"`
	SecondaryUnit            string         `json:"secondaryUnit" binding:"secondary_unit"`
	QuantityPerSecondaryUnit quantity       `json:"quantityPerSecondaryUnit" binding:"qty"`
	MinimumQuantity          quantity       `json:"minimumQuantity" binding:"qty"`
	Ledger                   *ledgerRequest `json:"ledger"`
}

func (r itemRequest) primaryUnit() domain.PrimaryUnit {
	return domain.ParsePrimaryUnit(r.PrimaryUnit)
}

func (r itemRequest) secondaryUnit() domain.SecondaryUnit {
	return domain.ParseSecondaryUnit(r.SecondaryUnit)
}

// orderRequest applies a production order. Recipe may be an inline recipe
// document in any accepted shape.
type orderRequest struct {
	OrderID  string         `json:"orderId"`
	RecipeID string         `json:"recipeId"`
	Recipe   map[string]any `json:"recipe"`
	OrderQty quantity       `json:"orderQty" binding:"qty"`
}

type recordRequest struct {
	Date   string         `json:"date" binding:"required,iso_date"`
	ItemID int64          `json:"itemId" binding:"required,gt=0"`
	Ledger *ledgerRequest `json:"ledger"`
}

type snapshotRequest struct {
	Date      string `json:"date" binding:"required,iso_date"`
	Overwrite bool   `json:"overwrite"`
}

type recordsQuery struct {
	From string `form:"from" binding:"omitempty,iso_date"`
	To   string `form:"to" binding:"omitempty,iso_date"`
}

type overwriteQuery struct {
	Overwrite bool `form:"overwrite"`
}
