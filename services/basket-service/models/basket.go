package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// BasketItem is one line item. Price is a pointer so a missing price can be
// told apart from zero; checkout rejects items without one.
type BasketItem struct {
	ProductID string           `json:"productId"`
	Quantity  int              `json:"quantity,omitempty"`
	Price     *decimal.Decimal `json:"price,omitempty"`
}

// Basket is keyed by userName. Fields the services act on are typed; any
// other attribute in the payload rides along in Extra untouched.
type Basket struct {
	UserName string
	Items    []BasketItem
	Extra    map[string]json.RawMessage
}

type basketFields struct {
	UserName string       `json:"userName"`
	Items    []BasketItem `json:"items"`
}

func (b *Basket) UnmarshalJSON(data []byte) error {
	var fields basketFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	delete(raw, "userName")
	delete(raw, "items")

	b.UserName = fields.UserName
	b.Items = fields.Items
	b.Extra = nil
	if len(raw) > 0 {
		b.Extra = raw
	}
	return nil
}

func (b Basket) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(b.Extra)+2)
	for k, v := range b.Extra {
		out[k] = v
	}
	// Typed fields win over the escape hatch.
	out["userName"] = b.UserName
	out["items"] = b.Items
	return json.Marshal(out)
}

// CheckoutRequest is the client payload of POST /basket/checkout. Anything
// beyond userName (a shipping address, say) lands in Extra and is overlaid
// onto the order payload.
type CheckoutRequest struct {
	UserName string
	Extra    map[string]json.RawMessage
}

func (r *CheckoutRequest) UnmarshalJSON(data []byte) error {
	var fields struct {
		UserName string `json:"userName"`
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	delete(raw, "userName")

	r.UserName = fields.UserName
	r.Extra = nil
	if len(raw) > 0 {
		r.Extra = raw
	}
	return nil
}

func (r CheckoutRequest) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Extra)+1)
	for k, v := range r.Extra {
		out[k] = v
	}
	out["userName"] = r.UserName
	return json.Marshal(out)
}

// OrderPayload is the merged detail published on checkout: the basket
// snapshot, the checkout-time fields, and the computed total.
type OrderPayload struct {
	UserName   string
	Items      []BasketItem
	TotalPrice decimal.Decimal
	Extra      map[string]json.RawMessage
}

func (p OrderPayload) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Extra)+3)
	for k, v := range p.Extra {
		out[k] = v
	}
	out["userName"] = p.UserName
	out["items"] = p.Items
	out["totalPrice"] = p.TotalPrice
	return json.Marshal(out)
}

func (p *OrderPayload) UnmarshalJSON(data []byte) error {
	var fields struct {
		UserName   string          `json:"userName"`
		Items      []BasketItem    `json:"items"`
		TotalPrice decimal.Decimal `json:"totalPrice"`
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	delete(raw, "userName")
	delete(raw, "items")
	delete(raw, "totalPrice")

	p.UserName = fields.UserName
	p.Items = fields.Items
	p.TotalPrice = fields.TotalPrice
	p.Extra = nil
	if len(raw) > 0 {
		p.Extra = raw
	}
	return nil
}
