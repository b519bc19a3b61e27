package cartstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	contractx "github.com/johnson2500/retail-shopping-assistant/agent/contract"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{URL: server.URL + "/"}, WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestNewClientRejectsEmptyURL(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{URL: "  "}); err == nil {
		t.Fatal("expected error for empty url")
	}
	if _, err := NewClient(Config{URL: "not a url"}); err == nil {
		t.Fatal("expected error for invalid url")
	}
}

func TestGetCartFetched(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/user/42/cart" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		fmt.Fprint(w, `{"user_id":42,"cart":[{"item":"Apple","amount":2},{"item":"Milk","amount":1}]}`)
	})

	got := client.GetCart(context.Background(), 42)
	if got.Status != contractx.CartFetched {
		t.Fatalf("Status = %q, want %q", got.Status, contractx.CartFetched)
	}
	if got.Cart.ItemCount() != 3 {
		t.Fatalf("ItemCount() = %d, want 3", got.Cart.ItemCount())
	}
	if got.Cart.Contents[0].Item != "Apple" {
		t.Fatalf("first item = %q, want Apple", got.Cart.Contents[0].Item)
	}
}

func TestGetCartUnavailable(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"detail":"boom"}`)
	})

	got := client.GetCart(context.Background(), 1)
	if got.Status != contractx.CartEmptyOrUnavailable {
		t.Fatalf("Status = %q, want %q", got.Status, contractx.CartEmptyOrUnavailable)
	}
	if !got.Cart.IsEmpty() {
		t.Fatalf("cart = %+v, want empty", got.Cart)
	}
}

func TestAddItemSendsBody(t *testing.T) {
	t.Parallel()

	var body itemRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/user/3/cart/add" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		fmt.Fprint(w, `{"user_id":3,"message":"added"}`)
	})

	msg, err := client.AddItem(context.Background(), 3, "Green Apple", 4)
	if err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}
	if msg != "added" {
		t.Fatalf("AddItem() = %q, want added", msg)
	}
	if body.Item != "Green Apple" || body.Amount != 4 {
		t.Fatalf("body = %+v", body)
	}
}

func TestRemoveItemNotFound(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"detail":"Item not found in cart"}`)
	})

	_, err := client.RemoveItem(context.Background(), 3, "Apple", 1)
	if !errors.Is(err, contractx.ErrNotFound) {
		t.Fatalf("RemoveItem() error = %v, want ErrNotFound", err)
	}
}

func TestStatusMapsToStoreUnavailable(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	if _, err := client.ClearCart(context.Background(), 3); !errors.Is(err, contractx.ErrStoreUnavailable) {
		t.Fatalf("ClearCart() error = %v, want ErrStoreUnavailable", err)
	}
	if _, err := client.GetContext(context.Background(), 3); !errors.Is(err, contractx.ErrStoreUnavailable) {
		t.Fatalf("GetContext() error = %v, want ErrStoreUnavailable", err)
	}
}

func TestAppendContextSwallowsFailure(t *testing.T) {
	t.Parallel()

	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/user/9/context/add" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	client.AppendContext(context.Background(), 9, "USER QUERY:hi\nRESPONSE:hello")
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestTransportErrorIsStoreUnavailable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	client, err := NewClient(Config{URL: url})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if _, err := client.ClearUser(context.Background(), 1); !errors.Is(err, contractx.ErrStoreUnavailable) {
		t.Fatalf("ClearUser() error = %v, want ErrStoreUnavailable", err)
	}
	if got := client.GetCart(context.Background(), 1); got.Status != contractx.CartEmptyOrUnavailable {
		t.Fatalf("Status = %q, want %q", got.Status, contractx.CartEmptyOrUnavailable)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"healthy","timestamp":1700000000.5,"version":"1.0.0"}`)
	})

	got, err := client.Health(context.Background())
	if err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	if got.Status != "healthy" || got.Version != "1.0.0" {
		t.Fatalf("Health() = %+v", got)
	}
}
