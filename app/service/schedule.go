package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vibast-solutions/ms-go-billing/app/entity"
)

// collectPendingCycles finds plans still waiting for their first charge
// and pairs each one with its unreconciled signup contribution.
func (s *BillingService) collectPendingCycles(ctx context.Context, domainID int32, planID uint64) ([]*billingCycle, error) {
	plans, err := s.planRepo.ListPending(ctx, domainID)
	if err != nil {
		return nil, err
	}

	cycles := make([]*billingCycle, 0, len(plans))
	for _, plan := range plans {
		if planID > 0 && plan.ID != planID {
			continue
		}

		contribution, err := s.contribRepo.FindEarliestByPlan(ctx, plan.ID)
		if err != nil {
			return nil, err
		}
		if contribution == nil || contribution.Status != entity.ContributionStatusPending {
			continue
		}

		cycles = append(cycles, &billingCycle{
			kind:         firstCycle,
			plan:         plan,
			contribution: contribution,
		})
	}

	return cycles, nil
}

// collectDueCycles finds in-progress plans whose next scheduled date has
// arrived and synthesizes a fresh contribution for each.
func (s *BillingService) collectDueCycles(ctx context.Context, domainID int32, planID uint64, today, now time.Time) ([]*billingCycle, error) {
	plans, err := s.planRepo.ListDue(ctx, today, domainID, planID)
	if err != nil {
		return nil, err
	}

	cycles := make([]*billingCycle, 0, len(plans))
	for _, plan := range plans {
		template, err := s.contribRepo.FindEarliestByPlan(ctx, plan.ID)
		if err != nil {
			return nil, err
		}

		cycles = append(cycles, &billingCycle{
			kind:         repeatCycle,
			plan:         plan,
			contribution: s.synthesizeContribution(plan, template, now),
		})
	}

	return cycles, nil
}

// synthesizeContribution builds the contribution record for a scheduled
// cycle. Amount and currency always come from the plan; page, payment
// instrument, source and address carry over from the plan's earliest
// contribution when one exists.
func (s *BillingService) synthesizeContribution(plan *entity.RecurringPlan, template *entity.Contribution, now time.Time) *entity.Contribution {
	planID := plan.ID
	contribution := &entity.Contribution{
		PlanID:          &planID,
		ContactID:       plan.ContactID,
		InvoiceRef:      newInvoiceRef(),
		Amount:          plan.Amount,
		Currency:        plan.Currency,
		Status:          entity.ContributionStatusPending,
		FinancialTypeID: plan.FinancialTypeID,
		ReceiveDate:     &now,
	}

	if template != nil {
		contribution.Source = template.Source
		contribution.PageID = template.PageID
		contribution.InstrumentID = template.InstrumentID
		contribution.AddressID = template.AddressID
		if template.FinancialTypeID != nil {
			contribution.FinancialTypeID = template.FinancialTypeID
		}
	}

	return contribution
}

// updateSchedule persists the plan's post-cycle state. Cancelled plans
// lose their schedule; everything else advances to the next billing
// date, unless the installment quota is now met, which completes the
// plan instead.
func (s *BillingService) updateSchedule(ctx context.Context, plan *entity.RecurringPlan, today, now time.Time) error {
	plan.ModifiedAt = now

	if plan.Status == entity.PlanStatusCancelled {
		plan.NextSchedDate = nil
		return s.planRepo.Update(ctx, plan)
	}

	next := nextScheduleDate(plan, today)
	plan.NextSchedDate = &next

	if plan.Installments > 0 {
		count, err := s.contribRepo.CountByPlan(ctx, plan.ID)
		if err != nil {
			return err
		}
		if count >= plan.Installments {
			plan.Status = entity.PlanStatusCompleted
			plan.NextSchedDate = nil
			plan.EndDate = &today
		}
	}

	return s.planRepo.Update(ctx, plan)
}

// nextScheduleDate advances one billing interval. When the plan already
// has a scheduled date the new one is computed from it, so a job that
// runs late does not drift the whole schedule; first cycles anchor on
// today.
func nextScheduleDate(plan *entity.RecurringPlan, today time.Time) time.Time {
	base := today
	if plan.NextSchedDate != nil {
		base = startOfDay(plan.NextSchedDate.UTC())
	}

	interval := int(plan.FrequencyInterval)
	if interval <= 0 {
		interval = 1
	}

	switch plan.FrequencyUnit {
	case entity.FrequencyUnitDay:
		return base.AddDate(0, 0, interval)
	case entity.FrequencyUnitWeek:
		return base.AddDate(0, 0, 7*interval)
	case entity.FrequencyUnitYear:
		return base.AddDate(interval, 0, 0)
	default:
		return base.AddDate(0, interval, 0)
	}
}

// newInvoiceRef mints a 32-character hex reference unique per charge
// attempt.
func newInvoiceRef() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
