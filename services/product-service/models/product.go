package models

import "github.com/shopspring/decimal"

// Product is keyed by a server-assigned uuid. Clients never choose ids.
type Product struct {
	ID          string           `json:"id" dynamodbav:"id"`
	Name        string           `json:"name" dynamodbav:"name"`
	Description string           `json:"description,omitempty" dynamodbav:"description,omitempty"`
	ImageFile   string           `json:"imageFile,omitempty" dynamodbav:"imageFile,omitempty"`
	Category    string           `json:"category,omitempty" dynamodbav:"category,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty" dynamodbav:"price,omitempty"`
}

// ProductUpdate carries the partial fields of an update; nil means leave
// the stored value alone.
type ProductUpdate struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	ImageFile   *string          `json:"imageFile,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
}
