package state

import (
	"encoding/json"
	"fmt"
)

// LineItem is one row of a user's cart. Meta carries store-provided fields the
// agent does not interpret; on the wire they sit beside item and amount.
type LineItem struct {
	Item   string         `json:"item"`
	Amount int            `json:"amount"`
	Meta   map[string]any `json:"-"`
}

func (li LineItem) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(li.Meta)+2)
	for k, v := range li.Meta {
		out[k] = v
	}
	out["item"] = li.Item
	out["amount"] = li.Amount
	return json.Marshal(out)
}

// UnmarshalJSON keeps every key other than item and amount in Meta.
func (li *LineItem) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var out LineItem
	for k, v := range raw {
		switch k {
		case "item":
			if err := json.Unmarshal(v, &out.Item); err != nil {
				return fmt.Errorf("line item %q: %w", k, err)
			}
		case "amount":
			if err := json.Unmarshal(v, &out.Amount); err != nil {
				return fmt.Errorf("line item %q: %w", k, err)
			}
		default:
			var val any
			if err := json.Unmarshal(v, &val); err != nil {
				return fmt.Errorf("line item %q: %w", k, err)
			}
			if out.Meta == nil {
				out.Meta = map[string]any{}
			}
			out.Meta[k] = val
		}
	}
	*li = out
	return nil
}

// Cart is a snapshot of a user's cart as reported by the memory service.
// The store guarantees at most one line per item name.
type Cart struct {
	Contents []LineItem `json:"contents"`
}

func NewCart(items ...LineItem) Cart {
	return Cart{Contents: items}.Clone()
}

func (c Cart) IsEmpty() bool {
	return len(c.Contents) == 0
}

// ItemCount is the sum of amounts over all lines.
func (c Cart) ItemCount() int {
	total := 0
	for _, li := range c.Contents {
		total += li.Amount
	}
	return total
}

// Items returns the distinct item names in cart order.
func (c Cart) Items() []string {
	seen := make(map[string]struct{}, len(c.Contents))
	names := make([]string, 0, len(c.Contents))
	for _, li := range c.Contents {
		if _, ok := seen[li.Item]; ok {
			continue
		}
		seen[li.Item] = struct{}{}
		names = append(names, li.Item)
	}
	return names
}

// Clone deep-copies the cart so the result shares no slices or maps with c.
func (c Cart) Clone() Cart {
	if c.Contents == nil {
		return Cart{Contents: []LineItem{}}
	}
	out := make([]LineItem, len(c.Contents))
	for i, li := range c.Contents {
		out[i] = LineItem{Item: li.Item, Amount: li.Amount, Meta: cloneMap(li.Meta)}
	}
	return Cart{Contents: out}
}

func cloneMap[V any](in map[string]V) map[string]V {
	if in == nil {
		return nil
	}
	out := make(map[string]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
