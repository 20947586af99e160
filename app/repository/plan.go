package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-billing/app/entity"
)

var ErrPlanNotFound = errors.New("recurring plan not found")

const planColumns = `id, contact_id, domain_id, amount, currency,
		frequency_interval, frequency_unit, installments, failure_count, status,
		processor_token, processor_id, financial_type_id,
		next_sched_date, start_date, end_date, cancel_date,
		created_at, modified_at`

type PlanRepository struct {
	db DBTX
}

func NewPlanRepository(db DBTX) *PlanRepository {
	return &PlanRepository{db: db}
}

func (r *PlanRepository) FindByID(ctx context.Context, id uint64) (*entity.RecurringPlan, error) {
	query := `
		SELECT ` + planColumns + `
		FROM recurring_plans
		WHERE id = ?
	`

	plan := &entity.RecurringPlan{}
	if err := scanPlan(r.db.QueryRowContext(ctx, query, id), plan); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return plan, nil
}

func (r *PlanRepository) Update(ctx context.Context, plan *entity.RecurringPlan) error {
	query := `
		UPDATE recurring_plans SET
			contact_id = ?,
			domain_id = ?,
			amount = ?,
			currency = ?,
			frequency_interval = ?,
			frequency_unit = ?,
			installments = ?,
			failure_count = ?,
			status = ?,
			processor_token = ?,
			processor_id = ?,
			financial_type_id = ?,
			next_sched_date = ?,
			start_date = ?,
			end_date = ?,
			cancel_date = ?,
			modified_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		plan.ContactID,
		plan.DomainID,
		plan.Amount,
		plan.Currency,
		plan.FrequencyInterval,
		plan.FrequencyUnit,
		plan.Installments,
		plan.FailureCount,
		plan.Status,
		nullableStringValue(plan.ProcessorToken),
		plan.ProcessorID,
		nullableInt32Value(plan.FinancialTypeID),
		nullableTimeValue(plan.NextSchedDate),
		nullableTimeValue(plan.StartDate),
		nullableTimeValue(plan.EndDate),
		nullableTimeValue(plan.CancelDate),
		plan.ModifiedAt,
		plan.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrPlanNotFound
	}

	return nil
}

// ListPending returns plans still awaiting their first charge. These are
// billed immediately, regardless of schedule.
func (r *PlanRepository) ListPending(ctx context.Context, domainID int32) ([]*entity.RecurringPlan, error) {
	query := `
		SELECT ` + planColumns + `
		FROM recurring_plans
		WHERE status = ?
		  AND processor_token IS NOT NULL
	`
	args := []interface{}{entity.PlanStatusPending}

	if domainID > 0 {
		query += " AND domain_id = ?"
		args = append(args, domainID)
	}
	query += " ORDER BY id ASC"

	return r.listPlans(ctx, query, args...)
}

// ListDue returns in-progress plans whose next scheduled date has
// arrived. A non-zero planID narrows the scan to a single plan.
func (r *PlanRepository) ListDue(ctx context.Context, asOf time.Time, domainID int32, planID uint64) ([]*entity.RecurringPlan, error) {
	query := `
		SELECT ` + planColumns + `
		FROM recurring_plans
		WHERE status = ?
		  AND next_sched_date IS NOT NULL
		  AND next_sched_date <= ?
	`
	args := []interface{}{entity.PlanStatusInProgress, asOf}

	if domainID > 0 {
		query += " AND domain_id = ?"
		args = append(args, domainID)
	}
	if planID > 0 {
		query += " AND id = ?"
		args = append(args, planID)
	}
	query += " ORDER BY next_sched_date ASC, id ASC"

	return r.listPlans(ctx, query, args...)
}

func (r *PlanRepository) listPlans(ctx context.Context, query string, args ...interface{}) ([]*entity.RecurringPlan, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := make([]*entity.RecurringPlan, 0)
	for rows.Next() {
		item := &entity.RecurringPlan{}
		if err := scanPlan(rows, item); err != nil {
			return nil, err
		}
		plans = append(plans, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return plans, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPlan(scan rowScanner, plan *entity.RecurringPlan) error {
	var processorToken sql.NullString
	var financialTypeID sql.NullInt32
	var nextSchedDate sql.NullTime
	var startDate sql.NullTime
	var endDate sql.NullTime
	var cancelDate sql.NullTime

	err := scan.Scan(
		&plan.ID,
		&plan.ContactID,
		&plan.DomainID,
		&plan.Amount,
		&plan.Currency,
		&plan.FrequencyInterval,
		&plan.FrequencyUnit,
		&plan.Installments,
		&plan.FailureCount,
		&plan.Status,
		&processorToken,
		&plan.ProcessorID,
		&financialTypeID,
		&nextSchedDate,
		&startDate,
		&endDate,
		&cancelDate,
		&plan.CreatedAt,
		&plan.ModifiedAt,
	)
	if err != nil {
		return err
	}

	plan.ProcessorToken = stringPtrFromNull(processorToken)
	plan.FinancialTypeID = int32PtrFromNull(financialTypeID)
	plan.NextSchedDate = timePtrFromNull(nextSchedDate)
	plan.StartDate = timePtrFromNull(startDate)
	plan.EndDate = timePtrFromNull(endDate)
	plan.CancelDate = timePtrFromNull(cancelDate)

	return nil
}
