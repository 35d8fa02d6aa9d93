package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"courier-driver-agent/internal/apperr"
	"courier-driver-agent/internal/domain"
)

type staticTokens string

func (s staticTokens) Token() (string, error) { return string(s), nil }

type failingTokens struct{}

func (failingTokens) Token() (string, error) { return "", errors.New("no token") }

func TestHTTPGateway_MyDeliveries(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/drivers/my-deliveries" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("unexpected auth header: %q", got)
		}
		_ = json.NewEncoder(w).Encode([]domain.Order{
			{ID: 1, Status: domain.StatusAssigned},
			{ID: 2, Status: domain.StatusDelivered},
		})
	}))
	defer srv.Close()

	g := NewHTTPGateway(srv.URL, srv.Client(), staticTokens("tok-1"))
	orders, err := g.MyDeliveries(context.Background())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(orders) != 2 || orders[0].ID != 1 || orders[1].Status != domain.StatusDelivered {
		t.Fatalf("unexpected orders: %#v", orders)
	}
}

func TestHTTPGateway_Accept_ConflictMapsToApperr(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/drivers/accept-order/42" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"detail":"order already taken"}`))
	}))
	defer srv.Close()

	g := NewHTTPGateway(srv.URL, srv.Client(), staticTokens("tok"))
	_, err := g.Accept(context.Background(), 42)
	if !errors.Is(err, apperr.Conflict) {
		t.Fatalf("expected Conflict, got %v", err)
	}
	var st *StatusError
	if !errors.As(err, &st) || st.Detail != "order already taken" {
		t.Fatalf("expected detail preserved, got %v", err)
	}
	if !IsBusiness(err) {
		t.Fatalf("conflict must be a business error")
	}
}

func TestHTTPGateway_UpdateStatus_SendsNewStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/drivers/delivery-status/7" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body struct {
			NewStatus string `json:"new_status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.NewStatus != "picked_up" {
			t.Errorf("unexpected body: %+v err=%v", body, err)
		}
		_ = json.NewEncoder(w).Encode(domain.Order{ID: 7, Status: domain.StatusPickedUp})
	}))
	defer srv.Close()

	g := NewHTTPGateway(srv.URL, srv.Client(), staticTokens("tok"))
	order, err := g.UpdateStatus(context.Background(), 7, domain.StatusPickedUp)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if order.ID != 7 || order.Status != domain.StatusPickedUp {
		t.Fatalf("unexpected order: %#v", order)
	}
}

func TestHTTPGateway_History_DefaultLimit(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("limit"); got != "20" {
			t.Errorf("expected default limit 20, got %q", got)
		}
		_ = json.NewEncoder(w).Encode([]domain.Order{})
	}))
	defer srv.Close()

	g := NewHTTPGateway(srv.URL, srv.Client(), staticTokens("tok"))
	if _, err := g.History(context.Background(), 0); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
}

func TestHTTPGateway_Unauthorized(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	g := NewHTTPGateway(srv.URL, srv.Client(), staticTokens("expired"))
	_, err := g.Available(context.Background())
	if !errors.Is(err, apperr.Unauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
}

func TestHTTPGateway_TokenSourceFailure(t *testing.T) {
	t.Parallel()

	g := NewHTTPGateway("http://127.0.0.1:0", http.DefaultClient, failingTokens{})
	_, err := g.MyDeliveries(context.Background())
	if !errors.Is(err, apperr.Unauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
}

func TestNewHTTPGateway_NilTokens(t *testing.T) {
	t.Parallel()

	if g := NewHTTPGateway("http://x", nil, nil); g != nil {
		t.Fatalf("expected nil gateway without token source")
	}
}
