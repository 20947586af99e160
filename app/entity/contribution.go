package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ContributionStatusPending   int32 = 1
	ContributionStatusCompleted int32 = 2
	ContributionStatusFailed    int32 = 3
)

// Contribution is one billing attempt under a plan. PlanID is nil for a
// contribution created before its plan existed (the signup charge).
// InvoiceRef is unique among non-Failed contributions; the gateway only
// sees its first 16 characters.
type Contribution struct {
	ID uint64

	PlanID    *uint64
	ContactID uint64

	InvoiceRef string

	Amount   decimal.Decimal
	Currency string

	Status int32

	// TrxnID is gateway-assigned, set only on a successful charge.
	TrxnID *string

	ReceiveDate *time.Time

	Source          *string
	FinancialTypeID *int32
	PageID          *int32
	InstrumentID    *int32
	AddressID       *uint64

	CreatedAt time.Time
	UpdatedAt time.Time
}
