package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"courier-driver-agent/internal/apperr"
	"courier-driver-agent/internal/domain"
)

// TokenSource supplies the current bearer token. It is re-read on every
// request so a refreshed token is honored without restarting the gateway.
type TokenSource interface {
	Token() (string, error)
}

// StatusError carries an HTTP failure from the dispatch backend.
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("dispatch: http %d", e.Code)
	}
	return fmt.Sprintf("dispatch: http %d: %s", e.Code, e.Detail)
}

// Unwrap maps well-known status codes to apperr sentinels.
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperr.Unauthorized
	case http.StatusNotFound:
		return apperr.NotFound
	case http.StatusConflict:
		return apperr.Conflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apperr.Invalid
	default:
		return nil
	}
}

// HTTPGateway is a dispatch gateway backed by the backend's driver REST API.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
	tokens  TokenSource
}

// NewHTTPGateway creates a dispatch gateway over the given base URL.
func NewHTTPGateway(baseURL string, client *http.Client, tokens TokenSource) *HTTPGateway {
	if tokens == nil {
		return nil
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPGateway{baseURL: strings.TrimRight(baseURL, "/"), client: client, tokens: tokens}
}

// MyDeliveries fetches the courier's full delivery list, active and past.
func (g *HTTPGateway) MyDeliveries(ctx context.Context) ([]domain.Order, error) {
	var orders []domain.Order
	if err := g.do(ctx, http.MethodGet, "/drivers/my-deliveries", nil, &orders); err != nil {
		return nil, fmt.Errorf("dispatch gateway: MyDeliveries: %w", err)
	}
	return orders, nil
}

// Available fetches orders open for any courier to claim.
func (g *HTTPGateway) Available(ctx context.Context) ([]domain.Order, error) {
	var orders []domain.Order
	if err := g.do(ctx, http.MethodGet, "/drivers/available-orders", nil, &orders); err != nil {
		return nil, fmt.Errorf("dispatch gateway: Available: %w", err)
	}
	return orders, nil
}

// History fetches completed deliveries, newest first.
func (g *HTTPGateway) History(ctx context.Context, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 20
	}
	var orders []domain.Order
	path := fmt.Sprintf("/drivers/history?limit=%d", limit)
	if err := g.do(ctx, http.MethodGet, path, nil, &orders); err != nil {
		return nil, fmt.Errorf("dispatch gateway: History: %w", err)
	}
	return orders, nil
}

// Accept claims an order for this courier. The backend answers 409 when
// another courier got there first.
func (g *HTTPGateway) Accept(ctx context.Context, id int64) (*domain.Order, error) {
	var order domain.Order
	path := fmt.Sprintf("/drivers/accept-order/%d", id)
	if err := g.do(ctx, http.MethodPost, path, nil, &order); err != nil {
		return nil, fmt.Errorf("dispatch gateway: Accept: %w", err)
	}
	return &order, nil
}

// UpdateStatus asks the backend to move an order to next and returns the
// confirmed server representation.
func (g *HTTPGateway) UpdateStatus(ctx context.Context, id int64, next domain.OrderStatus) (*domain.Order, error) {
	body := struct {
		NewStatus domain.OrderStatus `json:"new_status"`
	}{NewStatus: next}
	var order domain.Order
	path := fmt.Sprintf("/drivers/delivery-status/%d", id)
	if err := g.do(ctx, http.MethodPatch, path, body, &order); err != nil {
		return nil, fmt.Errorf("dispatch gateway: UpdateStatus: %w", err)
	}
	return &order, nil
}

func (g *HTTPGateway) do(ctx context.Context, method, path string, body, out any) error {
	token, err := g.tokens.Token()
	if err != nil {
		return fmt.Errorf("%w: %w", apperr.Unauthorized, err)
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Detail: readDetail(resp.Body)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// readDetail extracts the backend's {"detail": "..."} message, falling back
// to the raw body trimmed to a sane length.
func readDetail(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 2048))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var payload struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Detail != "" {
		return payload.Detail
	}
	return strings.TrimSpace(string(raw))
}

// IsBusiness reports whether err is a business rejection that must be
// surfaced to the courier rather than retried.
func IsBusiness(err error) bool {
	return errors.Is(err, apperr.Conflict) ||
		errors.Is(err, apperr.NotFound) ||
		errors.Is(err, apperr.Invalid)
}
