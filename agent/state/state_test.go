package state

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestCartItemCountSumsAmounts(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cart Cart
		want int
	}{
		{name: "empty", cart: Cart{}, want: 0},
		{name: "single", cart: NewCart(LineItem{Item: "apple", Amount: 2}), want: 2},
		{
			name: "several",
			cart: NewCart(
				LineItem{Item: "apple", Amount: 2},
				LineItem{Item: "pear", Amount: 5},
				LineItem{Item: "milk", Amount: 1},
			),
			want: 8,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.cart.ItemCount(); got != tc.want {
				t.Fatalf("ItemCount() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestCartItemsKeepsOrder(t *testing.T) {
	t.Parallel()

	c := NewCart(
		LineItem{Item: "pear", Amount: 1},
		LineItem{Item: "apple", Amount: 1},
	)
	got := c.Items()
	want := []string{"pear", "apple"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Items() = %v, want %v", got, want)
	}
	if c.IsEmpty() {
		t.Fatal("IsEmpty() = true, want false")
	}
}

func TestStateValidate(t *testing.T) {
	t.Parallel()

	if err := New(0, "add milk").Validate(); !errors.Is(err, ErrInvalidUser) {
		t.Fatalf("Validate() error = %v, want ErrInvalidUser", err)
	}
	if err := New(1, "   ").Validate(); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("Validate() error = %v, want ErrEmptyQuery", err)
	}
	if err := New(1, "add milk").WithTiming("cart", -1).Validate(); !errors.Is(err, ErrNegativeTime) {
		t.Fatalf("Validate() error = %v, want ErrNegativeTime", err)
	}
	if err := New(1, "add milk").Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestStateUpdatesDoNotAlias(t *testing.T) {
	t.Parallel()

	base := New(7, "show my cart")
	base.Timings["planner"] = 0.5
	base.Cart = NewCart(LineItem{Item: "apple", Amount: 1, Meta: map[string]any{"sku": "a1"}})

	next := base.WithTiming("cart", 0.25).WithResponse("ok")
	next.Cart.Contents[0].Amount = 9
	next.Cart.Contents[0].Meta["sku"] = "changed"

	if _, ok := base.Timings["cart"]; ok {
		t.Fatal("base timings mutated by WithTiming")
	}
	if base.Response != "" {
		t.Fatalf("base response = %q, want empty", base.Response)
	}
	if base.Cart.Contents[0].Amount != 1 {
		t.Fatalf("base cart amount = %d, want 1", base.Cart.Contents[0].Amount)
	}
	if base.Cart.Contents[0].Meta["sku"] != "a1" {
		t.Fatalf("base cart meta = %v, want a1", base.Cart.Contents[0].Meta["sku"])
	}
}

func TestMergeTimingsUnion(t *testing.T) {
	t.Parallel()

	s := New(1, "q").
		MergeTimings(map[string]float64{"planner": 0.1, "retriever": 0.2}).
		MergeTimings(map[string]float64{"cart": 0.3, "retriever": 0.4})

	want := map[string]float64{"planner": 0.1, "retriever": 0.4, "cart": 0.3}
	if !reflect.DeepEqual(s.Timings, want) {
		t.Fatalf("Timings = %v, want %v", s.Timings, want)
	}
	if got := s.TotalTime(); got < 0.79 || got > 0.81 {
		t.Fatalf("TotalTime() = %v, want 0.8", got)
	}
}

func TestWithContextAppendedKeepsPrefix(t *testing.T) {
	t.Parallel()

	s := New(1, "q")
	s.Context = "USER: hi"
	next := s.WithContextAppended("\nAgent Response: hello")

	if next.Context != "USER: hi\nAgent Response: hello" {
		t.Fatalf("Context = %q", next.Context)
	}
	if s.Context != "USER: hi" {
		t.Fatalf("original context mutated: %q", s.Context)
	}
}

func TestHasImage(t *testing.T) {
	t.Parallel()

	s := New(1, "q")
	if s.HasImage() {
		t.Fatal("HasImage() = true for empty image")
	}
	s.Image = "aGVsbG8="
	if !s.HasImage() {
		t.Fatal("HasImage() = false for non-empty image")
	}
}

func TestLineItemKeepsExtraFields(t *testing.T) {
	t.Parallel()

	var li LineItem
	if err := json.Unmarshal([]byte(`{"item":"Whole Milk","amount":2,"id":17,"user_id":4}`), &li); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if li.Item != "Whole Milk" || li.Amount != 2 {
		t.Fatalf("line item = %+v", li)
	}
	want := map[string]any{"id": float64(17), "user_id": float64(4)}
	if !reflect.DeepEqual(li.Meta, want) {
		t.Fatalf("Meta = %v, want %v", li.Meta, want)
	}

	raw, err := json.Marshal(li)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var flat map[string]any
	if err := json.Unmarshal(raw, &flat); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if flat["id"] != float64(17) || flat["item"] != "Whole Milk" || flat["amount"] != float64(2) {
		t.Fatalf("marshalled line item = %s", raw)
	}

	var bare LineItem
	if err := json.Unmarshal([]byte(`{"item":"Apple","amount":1}`), &bare); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if bare.Meta != nil {
		t.Fatalf("Meta = %v, want nil", bare.Meta)
	}
}
