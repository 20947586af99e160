package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PlanStatusPending    int32 = 1
	PlanStatusInProgress int32 = 2
	PlanStatusCompleted  int32 = 3
	PlanStatusCancelled  int32 = 4
)

const (
	FrequencyUnitDay   = "day"
	FrequencyUnitWeek  = "week"
	FrequencyUnitMonth = "month"
	FrequencyUnitYear  = "year"
)

// RecurringPlan is an ongoing subscription billed against a gateway token.
// NextSchedDate is non-nil exactly while the plan is in progress; it is
// cleared when the plan completes or is cancelled, and unset before the
// first charge.
type RecurringPlan struct {
	ID uint64

	ContactID uint64
	DomainID  int32

	Amount   decimal.Decimal
	Currency string

	FrequencyInterval int32
	FrequencyUnit     string

	// Installments 0 means open-ended billing.
	Installments int32

	FailureCount int32
	Status       int32

	// ProcessorToken is the gateway-issued managed customer id, stored
	// once enrollment succeeds.
	ProcessorToken *string
	ProcessorID    int32

	FinancialTypeID *int32

	NextSchedDate *time.Time
	StartDate     *time.Time
	EndDate       *time.Time
	CancelDate    *time.Time

	CreatedAt  time.Time
	ModifiedAt time.Time
}
