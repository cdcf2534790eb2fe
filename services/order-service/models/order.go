package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// OrderItem is one line item carried over from the checked-out basket.
type OrderItem struct {
	ProductID string           `json:"productId"`
	Quantity  int              `json:"quantity,omitempty"`
	Price     *decimal.Decimal `json:"price,omitempty"`
}

// Order is keyed by (userName, orderDate). OrderDate is stamped by the
// consumer from the routed event's time, never taken from the payload, so a
// redelivered event lands on the same key instead of forking a duplicate.
// EventID records which routed event produced the row.
type Order struct {
	UserName   string
	OrderDate  string
	Items      []OrderItem
	TotalPrice decimal.Decimal
	EventID    string
	Extra      map[string]json.RawMessage
}

func (o *Order) UnmarshalJSON(data []byte) error {
	var fields struct {
		UserName   string          `json:"userName"`
		OrderDate  string          `json:"orderDate"`
		Items      []OrderItem     `json:"items"`
		TotalPrice decimal.Decimal `json:"totalPrice"`
		EventID    string          `json:"eventId"`
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	delete(raw, "userName")
	delete(raw, "orderDate")
	delete(raw, "items")
	delete(raw, "totalPrice")
	delete(raw, "eventId")

	o.UserName = fields.UserName
	o.OrderDate = fields.OrderDate
	o.Items = fields.Items
	o.TotalPrice = fields.TotalPrice
	o.EventID = fields.EventID
	o.Extra = nil
	if len(raw) > 0 {
		o.Extra = raw
	}
	return nil
}

func (o Order) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(o.Extra)+5)
	for k, v := range o.Extra {
		out[k] = v
	}
	out["userName"] = o.UserName
	out["orderDate"] = o.OrderDate
	out["items"] = o.Items
	out["totalPrice"] = o.TotalPrice
	if o.EventID != "" {
		out["eventId"] = o.EventID
	}
	return json.Marshal(out)
}
