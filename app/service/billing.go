package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-billing/app/entity"
	"github.com/vibast-solutions/ms-go-billing/app/gateway"
	"github.com/vibast-solutions/ms-go-billing/config"
)

type planRepository interface {
	FindByID(ctx context.Context, id uint64) (*entity.RecurringPlan, error)
	Update(ctx context.Context, plan *entity.RecurringPlan) error
	ListPending(ctx context.Context, domainID int32) ([]*entity.RecurringPlan, error)
	ListDue(ctx context.Context, asOf time.Time, domainID int32, planID uint64) ([]*entity.RecurringPlan, error)
}

type contributionRepository interface {
	Create(ctx context.Context, contribution *entity.Contribution) error
	Update(ctx context.Context, contribution *entity.Contribution) error
	FindByID(ctx context.Context, id uint64) (*entity.Contribution, error)
	FindEarliestByPlan(ctx context.Context, planID uint64) (*entity.Contribution, error)
	CountByPlan(ctx context.Context, planID uint64) (int32, error)
	ExistsOtherWithInvoiceRef(ctx context.Context, invoiceRef string, excludeID uint64) (bool, error)
}

type BillingService struct {
	planRepo    planRepository
	contribRepo contributionRepository
	clients     *gateway.Registry
	billingCfg  config.BillingConfig
}

func NewBillingService(
	planRepo planRepository,
	contribRepo contributionRepository,
	clients *gateway.Registry,
	billingCfg config.BillingConfig,
) *BillingService {
	if billingCfg.InvoiceRefMaxLen <= 0 {
		billingCfg.InvoiceRefMaxLen = 16
	}
	if billingCfg.DefaultSourceText == "" {
		billingCfg.DefaultSourceText = "Recurring payment"
	}

	return &BillingService{
		planRepo:    planRepo,
		contribRepo: contribRepo,
		clients:     clients,
		billingCfg:  billingCfg,
	}
}

type cycleKind int

const (
	// firstCycle charges a contribution that already exists, created at
	// signup and still awaiting reconciliation.
	firstCycle cycleKind = iota
	// repeatCycle charges a contribution synthesized for a scheduled
	// billing date.
	repeatCycle
)

func (k cycleKind) String() string {
	if k == firstCycle {
		return "pending"
	}
	return "scheduled"
}

type billingCycle struct {
	kind         cycleKind
	plan         *entity.RecurringPlan
	contribution *entity.Contribution
}

// RunBilling is the batch entry point. It charges every pending plan,
// then every plan whose schedule is due, strictly one at a time, and
// returns a human-readable trace of what happened. A single plan's
// billing failure never aborts the run; only plan-store failures do.
func (s *BillingService) RunBilling(ctx context.Context, domainID int32, planID uint64) ([]string, error) {
	now := time.Now().UTC()
	today := startOfDay(now)

	trace := make([]string, 0, 16)

	pending, err := s.collectPendingCycles(ctx, domainID, planID)
	if err != nil {
		return nil, err
	}
	trace = append(trace, fmt.Sprintf("Processing %d pending plans", len(pending)))
	for _, cycle := range pending {
		trace = append(trace, s.processCycle(ctx, cycle, now, today)...)
	}

	scheduled, err := s.collectDueCycles(ctx, domainID, planID, today, now)
	if err != nil {
		return nil, err
	}
	trace = append(trace, fmt.Sprintf("Processing %d scheduled plans", len(scheduled)))
	for _, cycle := range scheduled {
		trace = append(trace, s.processCycle(ctx, cycle, now, today)...)
	}

	return trace, nil
}

// processCycle runs one full billing cycle for a plan: duplicate guard,
// charge, contribution settlement, failure tracking, schedule update.
func (s *BillingService) processCycle(ctx context.Context, cycle *billingCycle, now, today time.Time) []string {
	plan := cycle.plan
	trace := []string{fmt.Sprintf("Processing payment for %s contribution of plan ID %d", cycle.kind, plan.ID)}

	if cycle.contribution.ID != 0 {
		// Reload so a plan discovered twice in one run, or settled by an
		// overlapping run, is not charged again.
		fresh, err := s.contribRepo.FindByID(ctx, cycle.contribution.ID)
		if err != nil {
			return append(trace, fmt.Sprintf("ERROR: could not reload contribution ID %d: %v", cycle.contribution.ID, err))
		}
		if fresh == nil {
			return append(trace, fmt.Sprintf("Contribution ID %d no longer exists, skipping", cycle.contribution.ID))
		}
		if fresh.Status != entity.ContributionStatusPending {
			return append(trace, fmt.Sprintf("Contribution ID %d is already settled, skipping", fresh.ID))
		}
		cycle.contribution = fresh
	}

	if plan.ProcessorToken == nil {
		return append(trace, fmt.Sprintf("Plan ID %d has no processor token, skipping", plan.ID))
	}

	client, err := s.clients.Get(plan.ProcessorID)
	if err != nil {
		return append(trace, fmt.Sprintf("ERROR: no gateway client for processor %d: %v", plan.ProcessorID, err))
	}

	plan.Status = entity.PlanStatusInProgress

	// The guard runs immediately before the charge RPC so nothing can
	// sneak a duplicate invoice reference in between.
	duplicate, err := s.contribRepo.ExistsOtherWithInvoiceRef(ctx, cycle.contribution.InvoiceRef, cycle.contribution.ID)
	if err != nil {
		return append(trace, fmt.Sprintf("ERROR: duplicate check failed for plan ID %d: %v", plan.ID, err))
	}
	if duplicate {
		return append(trace, fmt.Sprintf("Duplicate invoice reference %q, charge aborted for plan ID %d", cycle.contribution.InvoiceRef, plan.ID))
	}

	result, err := client.Charge(ctx,
		*plan.ProcessorToken,
		amountToCents(cycle.contribution.Amount),
		s.gatewayInvoiceRef(cycle.contribution.InvoiceRef),
		s.chargeDescription(cycle.contribution),
	)
	if err != nil {
		trace = append(trace,
			fmt.Sprintf("ERROR: failed to process payment for %s contribution of plan ID %d", cycle.kind, plan.ID),
			fmt.Sprintf("Gateway customer: %s", *plan.ProcessorToken),
			fmt.Sprintf("Gateway response: %v", err),
			"Marking contribution as failed",
		)
		if applyErr := s.applyChargeResult(ctx, cycle, entity.ContributionStatusFailed, nil, now); applyErr != nil {
			trace = append(trace, fmt.Sprintf("ERROR: could not mark contribution as failed: %v", applyErr))
		}
		trace = append(trace, s.trackFailure(ctx, client, plan, now, today)...)
	} else {
		trace = append(trace,
			fmt.Sprintf("Successfully processed payment for %s contribution of plan ID %d", cycle.kind, plan.ID),
			"Marking contribution as complete",
		)
		trxnID := result.TrxnID
		if applyErr := s.applyChargeResult(ctx, cycle, entity.ContributionStatusCompleted, &trxnID, now); applyErr != nil {
			trace = append(trace, fmt.Sprintf("ERROR: could not mark contribution as complete: %v", applyErr))
		}
		plan.FailureCount = 0
	}

	trace = append(trace, "Updating recurring plan")
	if err := s.updateSchedule(ctx, plan, today, now); err != nil {
		trace = append(trace, fmt.Sprintf("ERROR: could not update plan ID %d: %v", plan.ID, err))
	}

	return append(trace, fmt.Sprintf("Finished processing plan ID %d", plan.ID))
}

// applyChargeResult settles a contribution after a charge attempt. It
// is the single mutation path for both first and repeat cycles: first
// cycles update the signup record, repeat cycles persist the record
// synthesized by the scheduler.
func (s *BillingService) applyChargeResult(ctx context.Context, cycle *billingCycle, status int32, trxnID *string, now time.Time) error {
	contribution := cycle.contribution
	contribution.Status = status
	contribution.TrxnID = trxnID
	contribution.ReceiveDate = &now
	contribution.UpdatedAt = now

	if cycle.kind == repeatCycle && contribution.ID == 0 {
		contribution.CreatedAt = now
		return s.contribRepo.Create(ctx, contribution)
	}
	return s.contribRepo.Update(ctx, contribution)
}

// trackFailure bumps the failure counter and cancels the plan when the
// stored token has expired. An inconclusive token query never cancels:
// the plan stays in progress for a future retry.
func (s *BillingService) trackFailure(ctx context.Context, client gateway.Client, plan *entity.RecurringPlan, now, today time.Time) []string {
	plan.FailureCount++

	info, err := client.QueryToken(ctx, *plan.ProcessorToken)
	if err != nil {
		return []string{fmt.Sprintf("Token status for plan ID %d is inconclusive, leaving plan in progress: %v", plan.ID, err)}
	}

	expiry := info.ExpiryDate()
	if expiry.Before(today) {
		plan.Status = entity.PlanStatusCancelled
		plan.CancelDate = &now
		plan.EndDate = &now
		return []string{fmt.Sprintf("Token for plan ID %d expired %s, cancelling plan", plan.ID, expiry.Format("2006-01-02"))}
	}

	return []string{fmt.Sprintf("Token for plan ID %d is valid until %s", plan.ID, expiry.Format("2006-01-02"))}
}

func (s *BillingService) gatewayInvoiceRef(invoiceRef string) string {
	if len(invoiceRef) > s.billingCfg.InvoiceRefMaxLen {
		return invoiceRef[:s.billingCfg.InvoiceRefMaxLen]
	}
	return invoiceRef
}

func (s *BillingService) chargeDescription(contribution *entity.Contribution) string {
	if contribution.Source != nil && *contribution.Source != "" {
		return *contribution.Source
	}
	return s.billingCfg.DefaultSourceText
}

func amountToCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
