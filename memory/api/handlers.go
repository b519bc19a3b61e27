package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/johnson2500/retail-shopping-assistant/memory/store"
)

const maxBodyBytes = 1 << 20

type itemUpdate struct {
	Item   *string `json:"item"`
	Amount *int    `json:"amount"`
}

type contextUpdate struct {
	NewContext *string `json:"new_context"`
}

type cartResponse struct {
	UserID int64            `json:"user_id"`
	Cart   []store.LineItem `json:"cart"`
}

type contextResponse struct {
	UserID  int64  `json:"user_id"`
	Context string `json:"context"`
}

type userResponse struct {
	ID      int64            `json:"id"`
	Context string           `json:"context"`
	Cart    []store.LineItem `json:"cart"`
}

type messageResponse struct {
	UserID  int64  `json:"user_id"`
	Message string `json:"message"`
}

type healthResponse struct {
	Status    string  `json:"status"`
	Timestamp float64 `json:"timestamp"`
	Version   string  `json:"version"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: float64(now.UnixNano()) / 1e9,
		Version:   Version,
	})
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	text, exists, err := s.repo.Context(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "User not found")
		return
	}
	if !exists {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}
	items, err := s.repo.Cart(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "User not found")
		return
	}

	writeJSON(w, http.StatusOK, userResponse{ID: id, Context: text, Cart: items})
}

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	items, err := s.repo.Cart(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Cart not found")
		return
	}
	if items == nil {
		items = []store.LineItem{}
	}
	writeJSON(w, http.StatusOK, cartResponse{UserID: id, Cart: items})
}

func (s *Server) getContext(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	text, _, err := s.repo.Context(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, contextResponse{UserID: id, Context: text})
}

func (s *Server) addToCart(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	item, amount, ok := decodeItemUpdate(w, r)
	if !ok {
		return
	}

	if err := s.repo.AddItem(r.Context(), id, item, amount); err != nil {
		writeStoreError(w, err, "Item not in cart")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{
		UserID:  id,
		Message: fmt.Sprintf("In response to the user's request, I have added %d of '%s' to their cart.", amount, item),
	})
}

func (s *Server) removeFromCart(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	item, amount, ok := decodeItemUpdate(w, r)
	if !ok {
		return
	}
	if amount <= 0 {
		writeDetail(w, http.StatusUnprocessableEntity, "amount must be positive")
		return
	}

	if err := s.repo.RemoveItem(r.Context(), id, item, amount); err != nil {
		writeStoreError(w, err, "Item not in cart")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{
		UserID:  id,
		Message: fmt.Sprintf("In response to the user's request, I have removed %d of '%s' from cart.", amount, item),
	})
}

func (s *Server) clearCart(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	if err := s.repo.ClearCart(r.Context(), id); err != nil {
		writeStoreError(w, err, "No items found in cart")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{
		UserID:  id,
		Message: fmt.Sprintf("In response to the user's request, the cart for user %d has been deleted.", id),
	})
}

func (s *Server) addContext(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	text, ok := decodeContextUpdate(w, r)
	if !ok {
		return
	}

	if err := s.repo.AppendContext(r.Context(), id, text); err != nil {
		writeStoreError(w, err, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{UserID: id, Message: "Context updated successfully"})
}

func (s *Server) replaceContext(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	text, ok := decodeContextUpdate(w, r)
	if !ok {
		return
	}

	if err := s.repo.ReplaceContext(r.Context(), id, text); err != nil {
		writeStoreError(w, err, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{UserID: id, Message: "Context updated successfully"})
}

func (s *Server) clearContext(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	if err := s.repo.ClearContext(r.Context(), id); err != nil {
		writeStoreError(w, err, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{
		UserID:  id,
		Message: fmt.Sprintf("In response to the user's request, context for user %d has been deleted.", id),
	})
}

func (s *Server) clearUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	if err := s.repo.ClearUser(r.Context(), id); err != nil {
		writeStoreError(w, err, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{
		UserID:  id,
		Message: fmt.Sprintf("In response to the user's request, deleted cart and context for user %d", id),
	})
}

func decodeItemUpdate(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	var body itemUpdate
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body: "+err.Error())
		return "", 0, false
	}
	if body.Item == nil || strings.TrimSpace(*body.Item) == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "item is required")
		return "", 0, false
	}
	if body.Amount == nil {
		writeDetail(w, http.StatusUnprocessableEntity, "amount is required")
		return "", 0, false
	}
	return *body.Item, *body.Amount, true
}

func decodeContextUpdate(w http.ResponseWriter, r *http.Request) (string, bool) {
	var body contextUpdate
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body: "+err.Error())
		return "", false
	}
	if body.NewContext == nil {
		writeDetail(w, http.StatusUnprocessableEntity, "new_context is required")
		return "", false
	}
	return *body.NewContext, true
}
