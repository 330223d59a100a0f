package ledgerclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cicerogomeslima/bankmore/internal/domain"
)

func TestResolveAccountID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/internal/accounts/11111111/id", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-Internal-Api-Key"))
		json.NewEncoder(w).Encode(map[string]string{"accountId": "acc-1"})
	}))
	defer srv.Close()

	c := New(srv.URL, "secret", time.Second)
	id, err := c.ResolveAccountID(context.Background(), "11111111")
	require.NoError(t, err)
	assert.Equal(t, "acc-1", id)
}

func TestResolveAccountID_NonOKStatusIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New(srv.URL, "secret", time.Second)
	_, err := c.ResolveAccountID(context.Background(), "00000000")
	require.Error(t, err)
}

func TestPostMovement_SendsHeadersAndPayload(t *testing.T) {
	var got MovementRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/internal/accounts/acc-1/movements", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "secret", r.Header.Get("X-Internal-Api-Key"))
		assert.Equal(t, "k1/debit", r.Header.Get("Idempotency-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(srv.URL, "secret", time.Second)
	res, err := c.PostMovement(context.Background(), "acc-1", "k1/debit", MovementRequest{
		RequestID: "req-1",
		Amount:    decimal.RequireFromString("10.00"),
		Kind:      domain.Debit,
	})
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, domain.Debit, got.Kind)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("10.00")))
}

func TestPostMovement_RejectionComesBackVerbatim(t *testing.T) {
	failure := domain.InactiveAccount()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(failure.Status)
		w.Write(failure.Body())
	}))
	defer srv.Close()

	c := New(srv.URL, "secret", time.Second)
	res, err := c.PostMovement(context.Background(), "acc-1", "k1", MovementRequest{
		RequestID: "req-1",
		Amount:    decimal.RequireFromString("10.00"),
		Kind:      domain.Credit,
	})
	require.NoError(t, err, "an HTTP response is a result, not a transport error")
	assert.False(t, res.OK())
	assert.Equal(t, failure.Status, res.Status)
	assert.Equal(t, failure.Body(), res.Body)
}

func TestPostMovement_TransportFailureIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // no listener

	c := New(srv.URL, "secret", time.Second)
	_, err := c.PostMovement(context.Background(), "acc-1", "k1", MovementRequest{
		RequestID: "req-1",
		Amount:    decimal.RequireFromString("10.00"),
		Kind:      domain.Credit,
	})
	require.Error(t, err)
}
