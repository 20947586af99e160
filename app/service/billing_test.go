package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-billing/app/entity"
	"github.com/vibast-solutions/ms-go-billing/app/gateway"
	"github.com/vibast-solutions/ms-go-billing/config"
)

type servicePlanRepo struct {
	plans map[uint64]*entity.RecurringPlan
}

func newServicePlanRepo(plans ...*entity.RecurringPlan) *servicePlanRepo {
	repo := &servicePlanRepo{plans: map[uint64]*entity.RecurringPlan{}}
	for _, plan := range plans {
		copyItem := *plan
		repo.plans[plan.ID] = &copyItem
	}
	return repo
}

func (r *servicePlanRepo) FindByID(_ context.Context, id uint64) (*entity.RecurringPlan, error) {
	item, ok := r.plans[id]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (r *servicePlanRepo) Update(_ context.Context, plan *entity.RecurringPlan) error {
	if _, ok := r.plans[plan.ID]; !ok {
		return errors.New("plan not found")
	}
	copyItem := *plan
	r.plans[plan.ID] = &copyItem
	return nil
}

func (r *servicePlanRepo) ListPending(_ context.Context, domainID int32) ([]*entity.RecurringPlan, error) {
	items := make([]*entity.RecurringPlan, 0)
	for _, item := range r.plans {
		if item.Status != entity.PlanStatusPending || item.ProcessorToken == nil {
			continue
		}
		if domainID > 0 && item.DomainID != domainID {
			continue
		}
		copyItem := *item
		items = append(items, &copyItem)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (r *servicePlanRepo) ListDue(_ context.Context, asOf time.Time, domainID int32, planID uint64) ([]*entity.RecurringPlan, error) {
	items := make([]*entity.RecurringPlan, 0)
	for _, item := range r.plans {
		if item.Status != entity.PlanStatusInProgress || item.NextSchedDate == nil {
			continue
		}
		if item.NextSchedDate.After(asOf) {
			continue
		}
		if domainID > 0 && item.DomainID != domainID {
			continue
		}
		if planID > 0 && item.ID != planID {
			continue
		}
		copyItem := *item
		items = append(items, &copyItem)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

type serviceContribRepo struct {
	contributions map[uint64]*entity.Contribution
	nextID        uint64
}

func newServiceContribRepo(contributions ...*entity.Contribution) *serviceContribRepo {
	repo := &serviceContribRepo{
		contributions: map[uint64]*entity.Contribution{},
		nextID:        1,
	}
	for _, contribution := range contributions {
		copyItem := *contribution
		repo.contributions[contribution.ID] = &copyItem
		if contribution.ID >= repo.nextID {
			repo.nextID = contribution.ID + 1
		}
	}
	return repo
}

func (r *serviceContribRepo) Create(_ context.Context, contribution *entity.Contribution) error {
	id := r.nextID
	r.nextID++
	copyItem := *contribution
	copyItem.ID = id
	r.contributions[id] = &copyItem
	contribution.ID = id
	return nil
}

func (r *serviceContribRepo) Update(_ context.Context, contribution *entity.Contribution) error {
	if _, ok := r.contributions[contribution.ID]; !ok {
		return errors.New("contribution not found")
	}
	copyItem := *contribution
	r.contributions[contribution.ID] = &copyItem
	return nil
}

func (r *serviceContribRepo) FindByID(_ context.Context, id uint64) (*entity.Contribution, error) {
	item, ok := r.contributions[id]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (r *serviceContribRepo) FindEarliestByPlan(_ context.Context, planID uint64) (*entity.Contribution, error) {
	var earliest *entity.Contribution
	for _, item := range r.contributions {
		if item.PlanID == nil || *item.PlanID != planID {
			continue
		}
		if earliest == nil || item.ID < earliest.ID {
			earliest = item
		}
	}
	if earliest == nil {
		return nil, nil
	}
	copyItem := *earliest
	return &copyItem, nil
}

func (r *serviceContribRepo) CountByPlan(_ context.Context, planID uint64) (int32, error) {
	var count int32
	for _, item := range r.contributions {
		if item.PlanID != nil && *item.PlanID == planID {
			count++
		}
	}
	return count, nil
}

func (r *serviceContribRepo) ExistsOtherWithInvoiceRef(_ context.Context, invoiceRef string, excludeID uint64) (bool, error) {
	for _, item := range r.contributions {
		if item.ID == excludeID || item.Status == entity.ContributionStatusFailed {
			continue
		}
		if item.InvoiceRef == invoiceRef {
			return true, nil
		}
	}
	return false, nil
}

type chargeCall struct {
	tokenID     string
	amountCents int64
	invoiceRef  string
	description string
}

type fakeGatewayClient struct {
	processorID   int32
	chargeErr     error
	trxnID        string
	tokenInfo     *gateway.TokenInfo
	queryTokenErr error
	createdToken  string
	createErr     error
	charges       []chargeCall
}

func (c *fakeGatewayClient) ProcessorID() int32 {
	if c.processorID == 0 {
		return 1
	}
	return c.processorID
}

func (c *fakeGatewayClient) CreateToken(_ context.Context, _ *gateway.CustomerProfile) (string, error) {
	if c.createErr != nil {
		return "", c.createErr
	}
	return c.createdToken, nil
}

func (c *fakeGatewayClient) Charge(_ context.Context, tokenID string, amountCents int64, invoiceRef, description string) (*gateway.ChargeResult, error) {
	c.charges = append(c.charges, chargeCall{
		tokenID:     tokenID,
		amountCents: amountCents,
		invoiceRef:  invoiceRef,
		description: description,
	})
	if c.chargeErr != nil {
		return nil, c.chargeErr
	}
	trxnID := c.trxnID
	if trxnID == "" {
		trxnID = "trxn-1"
	}
	return &gateway.ChargeResult{TrxnID: trxnID}, nil
}

func (c *fakeGatewayClient) QueryToken(_ context.Context, _ string) (*gateway.TokenInfo, error) {
	if c.queryTokenErr != nil {
		return nil, c.queryTokenErr
	}
	if c.tokenInfo != nil {
		return c.tokenInfo, nil
	}
	future := time.Now().UTC().AddDate(1, 0, 0)
	return &gateway.TokenInfo{
		TokenID:     "9876543211000",
		ExpiryMonth: int(future.Month()),
		ExpiryYear:  future.Year(),
	}, nil
}

func newTestBillingService(planRepo *servicePlanRepo, contribRepo *serviceContribRepo, client gateway.Client) *BillingService {
	return NewBillingService(planRepo, contribRepo, gateway.NewRegistry(client), config.BillingConfig{
		InvoiceRefMaxLen:  16,
		DefaultSourceText: "Recurring payment",
	})
}

func strPtr(v string) *string { return &v }

func uint64Ptr(v uint64) *uint64 { return &v }

func timePtr(v time.Time) *time.Time { return &v }

func testPlan(id uint64, status int32) *entity.RecurringPlan {
	now := time.Now().UTC()
	return &entity.RecurringPlan{
		ID:                id,
		ContactID:         42,
		DomainID:          1,
		Amount:            decimal.RequireFromString("25.50"),
		Currency:          "AUD",
		FrequencyInterval: 1,
		FrequencyUnit:     entity.FrequencyUnitMonth,
		Status:            status,
		ProcessorToken:    strPtr("9876543211000"),
		ProcessorID:       1,
		StartDate:         timePtr(now.AddDate(0, -1, 0)),
		CreatedAt:         now,
		ModifiedAt:        now,
	}
}

func testContribution(id, planID uint64, status int32) *entity.Contribution {
	now := time.Now().UTC()
	return &entity.Contribution{
		ID:         id,
		PlanID:     uint64Ptr(planID),
		ContactID:  42,
		InvoiceRef: fmt.Sprintf("%032d", id),
		Amount:     decimal.RequireFromString("25.50"),
		Currency:   "AUD",
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func traceContains(trace []string, needle string) bool {
	for _, line := range trace {
		if strings.Contains(line, needle) {
			return true
		}
	}
	return false
}

func TestRunBillingChargesPendingPlanImmediately(t *testing.T) {
	planRepo := newServicePlanRepo(testPlan(1, entity.PlanStatusPending))
	contribRepo := newServiceContribRepo(testContribution(10, 1, entity.ContributionStatusPending))
	client := &fakeGatewayClient{trxnID: "TX-100"}
	svc := newTestBillingService(planRepo, contribRepo, client)

	trace, err := svc.RunBilling(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.charges) != 1 {
		t.Fatalf("expected 1 charge, got %d", len(client.charges))
	}
	if client.charges[0].amountCents != 2550 {
		t.Errorf("expected 2550 cents, got %d", client.charges[0].amountCents)
	}
	if len(client.charges[0].invoiceRef) != 16 {
		t.Errorf("expected 16-char gateway invoice ref, got %q", client.charges[0].invoiceRef)
	}

	contribution, _ := contribRepo.FindByID(context.Background(), 10)
	if contribution.Status != entity.ContributionStatusCompleted {
		t.Errorf("expected completed contribution, got status %d", contribution.Status)
	}
	if contribution.TrxnID == nil || *contribution.TrxnID != "TX-100" {
		t.Errorf("expected trxn id TX-100, got %v", contribution.TrxnID)
	}

	plan, _ := planRepo.FindByID(context.Background(), 1)
	if plan.Status != entity.PlanStatusInProgress {
		t.Errorf("expected plan in progress, got status %d", plan.Status)
	}
	if plan.FailureCount != 0 {
		t.Errorf("expected failure count 0, got %d", plan.FailureCount)
	}

	today := startOfDay(time.Now().UTC())
	if plan.NextSchedDate == nil || !plan.NextSchedDate.Equal(today.AddDate(0, 1, 0)) {
		t.Errorf("expected next sched date one month from today, got %v", plan.NextSchedDate)
	}
	if !traceContains(trace, "Successfully processed payment") {
		t.Errorf("expected success trace, got %v", trace)
	}
}

func TestRunBillingSchedulesDuePlan(t *testing.T) {
	yesterday := startOfDay(time.Now().UTC()).AddDate(0, 0, -1)
	plan := testPlan(1, entity.PlanStatusInProgress)
	plan.NextSchedDate = timePtr(yesterday)

	template := testContribution(10, 1, entity.ContributionStatusCompleted)
	template.Source = strPtr("Annual appeal")
	pageID := int32(7)
	instrumentID := int32(3)
	template.PageID = &pageID
	template.InstrumentID = &instrumentID
	template.AddressID = uint64Ptr(99)

	planRepo := newServicePlanRepo(plan)
	contribRepo := newServiceContribRepo(template)
	client := &fakeGatewayClient{}
	svc := newTestBillingService(planRepo, contribRepo, client)

	if _, err := svc.RunBilling(context.Background(), 0, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.charges) != 1 {
		t.Fatalf("expected 1 charge, got %d", len(client.charges))
	}
	if client.charges[0].description != "Annual appeal" {
		t.Errorf("expected cloned source as description, got %q", client.charges[0].description)
	}

	count, _ := contribRepo.CountByPlan(context.Background(), 1)
	if count != 2 {
		t.Fatalf("expected a second contribution, got %d", count)
	}

	created, _ := contribRepo.FindByID(context.Background(), 11)
	if created == nil {
		t.Fatal("expected created contribution with ID 11")
	}
	if created.Status != entity.ContributionStatusCompleted {
		t.Errorf("expected completed contribution, got status %d", created.Status)
	}
	if created.InvoiceRef == template.InvoiceRef {
		t.Error("expected a fresh invoice ref for the repeat cycle")
	}
	if len(created.InvoiceRef) != 32 {
		t.Errorf("expected 32-char invoice ref, got %q", created.InvoiceRef)
	}
	if created.PageID == nil || *created.PageID != 7 {
		t.Errorf("expected cloned page id, got %v", created.PageID)
	}
	if created.InstrumentID == nil || *created.InstrumentID != 3 {
		t.Errorf("expected cloned instrument id, got %v", created.InstrumentID)
	}
	if created.AddressID == nil || *created.AddressID != 99 {
		t.Errorf("expected cloned address id, got %v", created.AddressID)
	}

	updated, _ := planRepo.FindByID(context.Background(), 1)
	expectedNext := yesterday.AddDate(0, 1, 0)
	if updated.NextSchedDate == nil || !updated.NextSchedDate.Equal(expectedNext) {
		t.Errorf("expected next sched date %v, got %v", expectedNext, updated.NextSchedDate)
	}
}

func TestRunBillingFailureIncrementsFailureCount(t *testing.T) {
	plan := testPlan(1, entity.PlanStatusPending)
	plan.FailureCount = 1
	planRepo := newServicePlanRepo(plan)
	contribRepo := newServiceContribRepo(testContribution(10, 1, entity.ContributionStatusPending))
	client := &fakeGatewayClient{chargeErr: fmt.Errorf("%w: card declined", gateway.ErrGatewayFault)}
	svc := newTestBillingService(planRepo, contribRepo, client)

	trace, err := svc.RunBilling(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	contribution, _ := contribRepo.FindByID(context.Background(), 10)
	if contribution.Status != entity.ContributionStatusFailed {
		t.Errorf("expected failed contribution, got status %d", contribution.Status)
	}
	if contribution.TrxnID != nil {
		t.Errorf("expected no trxn id on failure, got %v", contribution.TrxnID)
	}

	updated, _ := planRepo.FindByID(context.Background(), 1)
	if updated.FailureCount != 2 {
		t.Errorf("expected failure count 2, got %d", updated.FailureCount)
	}
	if updated.Status != entity.PlanStatusInProgress {
		t.Errorf("expected plan to stay in progress, got status %d", updated.Status)
	}
	if updated.NextSchedDate == nil {
		t.Error("expected schedule to advance after a failed charge")
	}
	if !traceContains(trace, "card declined") {
		t.Errorf("expected gateway error in trace, got %v", trace)
	}
}

func TestRunBillingSuccessResetsFailureCount(t *testing.T) {
	plan := testPlan(1, entity.PlanStatusPending)
	plan.FailureCount = 3
	planRepo := newServicePlanRepo(plan)
	contribRepo := newServiceContribRepo(testContribution(10, 1, entity.ContributionStatusPending))
	svc := newTestBillingService(planRepo, contribRepo, &fakeGatewayClient{})

	if _, err := svc.RunBilling(context.Background(), 0, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, _ := planRepo.FindByID(context.Background(), 1)
	if updated.FailureCount != 0 {
		t.Errorf("expected failure count reset to 0, got %d", updated.FailureCount)
	}
}

func TestRunBillingCancelsPlanWhenTokenExpired(t *testing.T) {
	planRepo := newServicePlanRepo(testPlan(1, entity.PlanStatusPending))
	contribRepo := newServiceContribRepo(testContribution(10, 1, entity.ContributionStatusPending))
	lastMonth := time.Now().UTC().AddDate(0, -2, 0)
	client := &fakeGatewayClient{
		chargeErr: fmt.Errorf("%w: expired card", gateway.ErrGatewayFault),
		tokenInfo: &gateway.TokenInfo{
			TokenID:     "9876543211000",
			ExpiryMonth: int(lastMonth.Month()),
			ExpiryYear:  lastMonth.Year(),
		},
	}
	svc := newTestBillingService(planRepo, contribRepo, client)

	trace, err := svc.RunBilling(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, _ := planRepo.FindByID(context.Background(), 1)
	if updated.Status != entity.PlanStatusCancelled {
		t.Errorf("expected cancelled plan, got status %d", updated.Status)
	}
	if updated.CancelDate == nil {
		t.Error("expected cancel date to be set")
	}
	if updated.NextSchedDate != nil {
		t.Errorf("expected cleared schedule, got %v", updated.NextSchedDate)
	}
	if !traceContains(trace, "cancelling plan") {
		t.Errorf("expected cancellation trace, got %v", trace)
	}
}

func TestRunBillingInconclusiveTokenQueryLeavesPlanInProgress(t *testing.T) {
	planRepo := newServicePlanRepo(testPlan(1, entity.PlanStatusPending))
	contribRepo := newServiceContribRepo(testContribution(10, 1, entity.ContributionStatusPending))
	client := &fakeGatewayClient{
		chargeErr:     fmt.Errorf("%w: timeout", gateway.ErrNoResponse),
		queryTokenErr: fmt.Errorf("%w: timeout", gateway.ErrNoResponse),
	}
	svc := newTestBillingService(planRepo, contribRepo, client)

	trace, err := svc.RunBilling(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, _ := planRepo.FindByID(context.Background(), 1)
	if updated.Status != entity.PlanStatusInProgress {
		t.Errorf("expected plan to stay in progress, got status %d", updated.Status)
	}
	if updated.FailureCount != 1 {
		t.Errorf("expected failure count 1, got %d", updated.FailureCount)
	}
	if !traceContains(trace, "inconclusive") {
		t.Errorf("expected inconclusive trace, got %v", trace)
	}
}

func TestRunBillingCompletesPlanAtInstallmentQuota(t *testing.T) {
	yesterday := startOfDay(time.Now().UTC()).AddDate(0, 0, -1)
	plan := testPlan(1, entity.PlanStatusInProgress)
	plan.Installments = 2
	plan.NextSchedDate = timePtr(yesterday)

	planRepo := newServicePlanRepo(plan)
	contribRepo := newServiceContribRepo(testContribution(10, 1, entity.ContributionStatusCompleted))
	svc := newTestBillingService(planRepo, contribRepo, &fakeGatewayClient{})

	if _, err := svc.RunBilling(context.Background(), 0, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, _ := planRepo.FindByID(context.Background(), 1)
	if updated.Status != entity.PlanStatusCompleted {
		t.Errorf("expected completed plan, got status %d", updated.Status)
	}
	if updated.NextSchedDate != nil {
		t.Errorf("expected cleared schedule, got %v", updated.NextSchedDate)
	}
	today := startOfDay(time.Now().UTC())
	if updated.EndDate == nil || !updated.EndDate.Equal(today) {
		t.Errorf("expected end date today, got %v", updated.EndDate)
	}
}

func TestRunBillingAbortsOnDuplicateInvoiceRef(t *testing.T) {
	planRepo := newServicePlanRepo(testPlan(1, entity.PlanStatusPending))

	pending := testContribution(10, 1, entity.ContributionStatusPending)
	settled := testContribution(11, 2, entity.ContributionStatusCompleted)
	settled.InvoiceRef = pending.InvoiceRef
	contribRepo := newServiceContribRepo(pending, settled)

	client := &fakeGatewayClient{}
	svc := newTestBillingService(planRepo, contribRepo, client)

	trace, err := svc.RunBilling(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.charges) != 0 {
		t.Fatalf("expected no charge on duplicate invoice ref, got %d", len(client.charges))
	}
	if !traceContains(trace, "charge aborted") {
		t.Errorf("expected duplicate abort trace, got %v", trace)
	}

	contribution, _ := contribRepo.FindByID(context.Background(), 10)
	if contribution.Status != entity.ContributionStatusPending {
		t.Errorf("expected contribution untouched, got status %d", contribution.Status)
	}
}

func TestPendingPlanDiscoveredTwiceChargesOnce(t *testing.T) {
	planRepo := newServicePlanRepo(testPlan(1, entity.PlanStatusPending))
	contribRepo := newServiceContribRepo(testContribution(10, 1, entity.ContributionStatusPending))
	client := &fakeGatewayClient{}
	svc := newTestBillingService(planRepo, contribRepo, client)

	now := time.Now().UTC()
	today := startOfDay(now)
	plan, _ := planRepo.FindByID(context.Background(), 1)
	contribution, _ := contribRepo.FindByID(context.Background(), 10)

	// Both cycles reference the same contribution, as a duplicate scan
	// within one run would produce.
	first := &billingCycle{kind: firstCycle, plan: plan, contribution: contribution}
	second := &billingCycle{kind: firstCycle, plan: plan, contribution: contribution}

	svc.processCycle(context.Background(), first, now, today)
	trace := svc.processCycle(context.Background(), second, now, today)

	if len(client.charges) != 1 {
		t.Fatalf("expected exactly one charge, got %d", len(client.charges))
	}
	if !traceContains(trace, "already settled") {
		t.Errorf("expected the second pass to skip the settled contribution, got %v", trace)
	}

	settled, _ := contribRepo.FindByID(context.Background(), 10)
	if settled.Status != entity.ContributionStatusCompleted {
		t.Errorf("expected completed contribution, got status %d", settled.Status)
	}
}

func TestRunBillingIgnoresFailedContributionInDuplicateCheck(t *testing.T) {
	planRepo := newServicePlanRepo(testPlan(1, entity.PlanStatusPending))

	pending := testContribution(10, 1, entity.ContributionStatusPending)
	failed := testContribution(11, 2, entity.ContributionStatusFailed)
	failed.InvoiceRef = pending.InvoiceRef
	contribRepo := newServiceContribRepo(pending, failed)

	client := &fakeGatewayClient{}
	svc := newTestBillingService(planRepo, contribRepo, client)

	if _, err := svc.RunBilling(context.Background(), 0, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.charges) != 1 {
		t.Fatalf("expected failed duplicate to be ignored, got %d charges", len(client.charges))
	}
}

func TestRunBillingSkipsDuePlanWithoutToken(t *testing.T) {
	yesterday := startOfDay(time.Now().UTC()).AddDate(0, 0, -1)
	plan := testPlan(1, entity.PlanStatusInProgress)
	plan.ProcessorToken = nil
	plan.NextSchedDate = timePtr(yesterday)

	planRepo := newServicePlanRepo(plan)
	contribRepo := newServiceContribRepo()
	client := &fakeGatewayClient{}
	svc := newTestBillingService(planRepo, contribRepo, client)

	trace, err := svc.RunBilling(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.charges) != 0 {
		t.Fatalf("expected no charge, got %d", len(client.charges))
	}
	if !traceContains(trace, "no processor token") {
		t.Errorf("expected missing token trace, got %v", trace)
	}
}

func TestRunBillingFiltersByPlanID(t *testing.T) {
	planRepo := newServicePlanRepo(
		testPlan(1, entity.PlanStatusPending),
		testPlan(2, entity.PlanStatusPending),
	)
	contribRepo := newServiceContribRepo(
		testContribution(10, 1, entity.ContributionStatusPending),
		testContribution(11, 2, entity.ContributionStatusPending),
	)
	client := &fakeGatewayClient{}
	svc := newTestBillingService(planRepo, contribRepo, client)

	if _, err := svc.RunBilling(context.Background(), 0, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.charges) != 1 {
		t.Fatalf("expected 1 charge, got %d", len(client.charges))
	}

	untouched, _ := contribRepo.FindByID(context.Background(), 10)
	if untouched.Status != entity.ContributionStatusPending {
		t.Errorf("expected plan 1 contribution untouched, got status %d", untouched.Status)
	}
}

func TestRunBillingFiltersByDomain(t *testing.T) {
	first := testPlan(1, entity.PlanStatusPending)
	second := testPlan(2, entity.PlanStatusPending)
	second.DomainID = 2

	planRepo := newServicePlanRepo(first, second)
	contribRepo := newServiceContribRepo(
		testContribution(10, 1, entity.ContributionStatusPending),
		testContribution(11, 2, entity.ContributionStatusPending),
	)
	client := &fakeGatewayClient{}
	svc := newTestBillingService(planRepo, contribRepo, client)

	if _, err := svc.RunBilling(context.Background(), 2, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.charges) != 1 {
		t.Fatalf("expected 1 charge, got %d", len(client.charges))
	}

	charged, _ := contribRepo.FindByID(context.Background(), 11)
	if charged.Status != entity.ContributionStatusCompleted {
		t.Errorf("expected domain 2 contribution charged, got status %d", charged.Status)
	}
	untouched, _ := contribRepo.FindByID(context.Background(), 10)
	if untouched.Status != entity.ContributionStatusPending {
		t.Errorf("expected domain 1 contribution untouched, got status %d", untouched.Status)
	}
}

func TestNextScheduleDateUnits(t *testing.T) {
	today := startOfDay(time.Now().UTC())

	cases := []struct {
		unit     string
		interval int32
		expected time.Time
	}{
		{entity.FrequencyUnitDay, 3, today.AddDate(0, 0, 3)},
		{entity.FrequencyUnitWeek, 2, today.AddDate(0, 0, 14)},
		{entity.FrequencyUnitMonth, 1, today.AddDate(0, 1, 0)},
		{entity.FrequencyUnitYear, 1, today.AddDate(1, 0, 0)},
	}

	for _, tc := range cases {
		plan := &entity.RecurringPlan{FrequencyUnit: tc.unit, FrequencyInterval: tc.interval}
		got := nextScheduleDate(plan, today)
		if !got.Equal(tc.expected) {
			t.Errorf("unit %s interval %d: expected %v, got %v", tc.unit, tc.interval, tc.expected, got)
		}
	}
}

func TestNextScheduleDateAnchorsOnPriorDate(t *testing.T) {
	today := startOfDay(time.Now().UTC())
	prior := today.AddDate(0, 0, -10)
	plan := &entity.RecurringPlan{
		FrequencyUnit:     entity.FrequencyUnitMonth,
		FrequencyInterval: 1,
		NextSchedDate:     timePtr(prior),
	}

	got := nextScheduleDate(plan, today)
	if !got.Equal(prior.AddDate(0, 1, 0)) {
		t.Errorf("expected schedule anchored on prior date, got %v", got)
	}
}

func TestAmountToCents(t *testing.T) {
	cases := []struct {
		amount   string
		expected int64
	}{
		{"25.50", 2550},
		{"0.01", 1},
		{"100", 10000},
		{"19.999", 2000},
	}

	for _, tc := range cases {
		got := amountToCents(decimal.RequireFromString(tc.amount))
		if got != tc.expected {
			t.Errorf("amount %s: expected %d cents, got %d", tc.amount, tc.expected, got)
		}
	}
}
