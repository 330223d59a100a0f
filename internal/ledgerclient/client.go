// Package ledgerclient is the HTTP client other services use to mutate
// accounts they do not own locally, through the account API's internal
// endpoints.
package ledgerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cicerogomeslima/bankmore/internal/domain"
)

// MovementRequest is the wire payload of the internal movement call.
type MovementRequest struct {
	RequestID string              `json:"requestId"`
	Amount    decimal.Decimal     `json:"amount"`
	Kind      domain.MovementKind `json:"kind"`
}

// MovementResult carries the remote status and body verbatim, so a
// caller finalizing an idempotent outcome can forward them unchanged.
type MovementResult struct {
	Status int
	Body   []byte
}

func (r MovementResult) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

type Client struct {
	baseURL     string
	internalKey string
	http        *http.Client
}

func New(baseURL, internalKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:     baseURL,
		internalKey: internalKey,
		http:        &http.Client{Timeout: timeout},
	}
}

// ResolveAccountID translates an account number to its internal id via
// the account registry endpoint.
func (c *Client) ResolveAccountID(ctx context.Context, number string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/internal/accounts/%s/id", c.baseURL, number), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("X-Internal-Api-Key", c.internalKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("account resolve call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("account resolve: status %d", resp.StatusCode)
	}

	var out struct {
		AccountID string `json:"accountId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("account resolve decode: %w", err)
	}
	return out.AccountID, nil
}

// PostMovement issues one idempotent movement against an account. A
// non-nil error means the call itself failed (network, timeout); any
// HTTP response, success or not, comes back as a MovementResult.
func (c *Client) PostMovement(ctx context.Context, accountID, idempotencyKey string, m MovementRequest) (MovementResult, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return MovementResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/internal/accounts/%s/movements", c.baseURL, accountID),
		bytes.NewReader(payload))
	if err != nil {
		return MovementResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Internal-Api-Key", c.internalKey)
	req.Header.Set("Idempotency-Key", idempotencyKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return MovementResult{}, fmt.Errorf("movement call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return MovementResult{}, fmt.Errorf("movement response read: %w", err)
	}
	return MovementResult{Status: resp.StatusCode, Body: body}, nil
}
