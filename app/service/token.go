package service

import (
	"context"
	"fmt"
	"time"

	"github.com/vibast-solutions/ms-go-billing/app/entity"
	"github.com/vibast-solutions/ms-go-billing/app/gateway"
)

// ChargeToken performs a one-off charge against a stored gateway token,
// outside of any plan's schedule.
func (s *BillingService) ChargeToken(ctx context.Context, processorID int32, tokenID string, amountCents int64, invoiceRef, description string) (string, error) {
	client, err := s.clients.Get(processorID)
	if err != nil {
		return "", ErrProcessorUnsupported
	}

	if description == "" {
		description = s.billingCfg.DefaultSourceText
	}

	result, err := client.Charge(ctx, tokenID, amountCents, s.gatewayInvoiceRef(invoiceRef), description)
	if err != nil {
		return "", err
	}
	return result.TrxnID, nil
}

// QueryToken fetches the gateway's view of a stored token.
func (s *BillingService) QueryToken(ctx context.Context, processorID int32, tokenID string) (*gateway.TokenInfo, error) {
	client, err := s.clients.Get(processorID)
	if err != nil {
		return nil, ErrProcessorUnsupported
	}
	return client.QueryToken(ctx, tokenID)
}

// QueryPlanToken resolves a plan's stored token and fetches its gateway
// state.
func (s *BillingService) QueryPlanToken(ctx context.Context, planID uint64) (*gateway.TokenInfo, error) {
	plan, err := s.planRepo.FindByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, ErrPlanNotFound
	}
	if plan.ProcessorToken == nil {
		return nil, ErrPlanNotEnrolled
	}

	client, err := s.clients.Get(plan.ProcessorID)
	if err != nil {
		return nil, ErrProcessorUnsupported
	}
	return client.QueryToken(ctx, *plan.ProcessorToken)
}

// EnrollPlan registers the customer's billing details with the gateway,
// stores the resulting token on the plan, and immediately attempts the
// plan's first charge. A failed first charge does not fail enrollment:
// the plan keeps its token and the billing job retries on its next
// scheduled date.
func (s *BillingService) EnrollPlan(ctx context.Context, planID uint64, profile *gateway.CustomerProfile) (*entity.RecurringPlan, []string, error) {
	plan, err := s.planRepo.FindByID(ctx, planID)
	if err != nil {
		return nil, nil, err
	}
	if plan == nil {
		return nil, nil, ErrPlanNotFound
	}
	if plan.ProcessorToken != nil {
		return nil, nil, ErrPlanAlreadyEnrolled
	}
	if plan.Status != entity.PlanStatusPending {
		return nil, nil, ErrInvalidPlanStatus
	}

	client, err := s.clients.Get(plan.ProcessorID)
	if err != nil {
		return nil, nil, ErrProcessorUnsupported
	}

	token, err := client.CreateToken(ctx, profile)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	today := startOfDay(now)

	plan.ProcessorToken = &token
	if plan.StartDate == nil {
		plan.StartDate = &today
	}
	plan.ModifiedAt = now
	if err := s.planRepo.Update(ctx, plan); err != nil {
		return nil, nil, err
	}

	trace := []string{fmt.Sprintf("Enrolled plan ID %d with gateway customer %s", plan.ID, token)}

	contribution, err := s.contribRepo.FindEarliestByPlan(ctx, plan.ID)
	if err != nil {
		return nil, nil, err
	}
	if contribution == nil || contribution.Status != entity.ContributionStatusPending {
		trace = append(trace, fmt.Sprintf("Plan ID %d has no pending contribution, first charge deferred to the billing job", plan.ID))
		return plan, trace, nil
	}

	cycle := &billingCycle{
		kind:         firstCycle,
		plan:         plan,
		contribution: contribution,
	}
	trace = append(trace, s.processCycle(ctx, cycle, now, today)...)

	return plan, trace, nil
}
