package domain

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// FailureKind is the machine-readable discriminator every failure
// payload carries.
type FailureKind string

const (
	FailureInvalidAccount         FailureKind = "INVALID_ACCOUNT"
	FailureInactiveAccount        FailureKind = "INACTIVE_ACCOUNT"
	FailureInvalidAmount          FailureKind = "INVALID_AMOUNT"
	FailureInvalidType            FailureKind = "INVALID_TYPE"
	FailureIdempotencyKeyConflict FailureKind = "IDEMPOTENCY_KEY_CONFLICT"
	FailureRequestInProgress      FailureKind = "REQUEST_IN_PROGRESS"
	FailureUnauthorized           FailureKind = "USER_UNAUTHORIZED"
	FailureUpstream               FailureKind = "UPSTREAM_FAILURE"
	FailureCompensation           FailureKind = "COMPENSATION_FAILURE"
)

// Failure is the structured error payload returned to callers and
// forwarded verbatim between services. It implements error so service
// layers can return it directly and handlers can surface it unchanged.
type Failure struct {
	Kind    FailureKind `json:"failureKind"`
	Message string      `json:"message"`
	// Status is the HTTP status the failure travels with. Not serialized;
	// replays restore it from the idempotency record instead.
	Status int `json:"-"`
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Body returns the serialized payload exactly as a client sees it.
func (f *Failure) Body() []byte {
	b, _ := json.Marshal(f)
	return b
}

func NewFailure(kind FailureKind, status int, message string) *Failure {
	return &Failure{Kind: kind, Message: message, Status: status}
}

// Canonical failures shared by the services. Kept as constructors, not
// singletons, because callers sometimes attach request-specific messages.
func InvalidAccount() *Failure {
	return NewFailure(FailureInvalidAccount, http.StatusBadRequest, "account is invalid")
}

func InactiveAccount() *Failure {
	return NewFailure(FailureInactiveAccount, http.StatusBadRequest, "account is inactive")
}

func InvalidAmount() *Failure {
	return NewFailure(FailureInvalidAmount, http.StatusBadRequest, "amount must be greater than zero")
}

func InvalidType(message string) *Failure {
	return NewFailure(FailureInvalidType, http.StatusBadRequest, message)
}

func KeyConflict() *Failure {
	return NewFailure(FailureIdempotencyKeyConflict, http.StatusConflict, "idempotency key reused with a different payload")
}

// InProgress is the concurrent-duplicate answer: same key, same
// payload, outcome not finalized yet. Distinct from KeyConflict, which
// is a payload mismatch.
func InProgress() *Failure {
	return NewFailure(FailureRequestInProgress, http.StatusConflict, "a request with this key is still in progress")
}

func Unauthorized() *Failure {
	return NewFailure(FailureUnauthorized, http.StatusForbidden, "caller identity missing or invalid")
}

func Upstream(message string) *Failure {
	return NewFailure(FailureUpstream, http.StatusBadGateway, message)
}
