package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementKind discriminates the two ledger entry directions.
type MovementKind string

const (
	Credit MovementKind = "C"
	Debit  MovementKind = "D"
)

// Valid reports whether k is one of the two known kinds.
func (k MovementKind) Valid() bool {
	return k == Credit || k == Debit
}

// Account is a checking account as the ledger sees it. The registration
// service owns the active flag; the ledger only reads it to reject
// movements against deactivated accounts.
type Account struct {
	ID     string `json:"id"`
	Number string `json:"number"`
	Active bool   `json:"active"`
}

// Movement is one append-only ledger entry. Balance is always
// sum(credits) - sum(debits); movements are never updated or deleted.
type Movement struct {
	ID        string          `json:"id"`
	AccountID string          `json:"accountId"`
	At        time.Time       `json:"at"`
	Kind      MovementKind    `json:"kind"`
	Amount    decimal.Decimal `json:"amount"`
}

// Transfer is the immutable record of a completed saga. It exists only
// after both ledger legs succeeded.
type Transfer struct {
	ID            string          `json:"id"`
	OriginID      string          `json:"originId"`
	DestinationID string          `json:"destinationId"`
	Amount        decimal.Decimal `json:"amount"`
	At            time.Time       `json:"at"`
}

// TransferCompletedEvent is published at-least-once after a Transfer is
// persisted. Consumers must tolerate redelivery.
type TransferCompletedEvent struct {
	TransferID    string          `json:"transferId"`
	OriginID      string          `json:"originId"`
	DestinationID string          `json:"destinationId"`
	Amount        decimal.Decimal `json:"amount"`
	At            time.Time       `json:"at"`
}

// FeeRecord is one flat fee charged against a transfer's origin account.
type FeeRecord struct {
	ID        string          `json:"id"`
	AccountID string          `json:"accountId"`
	At        time.Time       `json:"at"`
	Amount    decimal.Decimal `json:"amount"`
}

// BalanceResponse is the read-boundary envelope. Balance is rounded to
// two decimal places here only; the ledger keeps full precision.
type BalanceResponse struct {
	AccountNumber string          `json:"accountNumber"`
	HolderName    string          `json:"holderName"`
	AsOf          time.Time       `json:"asOf"`
	Balance       decimal.Decimal `json:"balance"`
}
