package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vibast-solutions/ms-go-billing/app/entity"
)

var (
	ErrContributionNotFound      = errors.New("contribution not found")
	ErrContributionAlreadyExists = errors.New("contribution already exists")
)

const contributionColumns = `id, plan_id, contact_id, invoice_ref, amount, currency,
		status, trxn_id, receive_date, source, financial_type_id,
		page_id, instrument_id, address_id, created_at, updated_at`

type ContributionRepository struct {
	db DBTX
}

func NewContributionRepository(db DBTX) *ContributionRepository {
	return &ContributionRepository{db: db}
}

func (r *ContributionRepository) Create(ctx context.Context, contribution *entity.Contribution) error {
	query := `
		INSERT INTO contributions (
			plan_id, contact_id, invoice_ref, amount, currency,
			status, trxn_id, receive_date, source, financial_type_id,
			page_id, instrument_id, address_id, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		nullableUint64Value(contribution.PlanID),
		contribution.ContactID,
		contribution.InvoiceRef,
		contribution.Amount,
		contribution.Currency,
		contribution.Status,
		nullableStringValue(contribution.TrxnID),
		nullableTimeValue(contribution.ReceiveDate),
		nullableStringValue(contribution.Source),
		nullableInt32Value(contribution.FinancialTypeID),
		nullableInt32Value(contribution.PageID),
		nullableInt32Value(contribution.InstrumentID),
		nullableUint64Value(contribution.AddressID),
		contribution.CreatedAt,
		contribution.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrContributionAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	contribution.ID = uint64(id)
	return nil
}

func (r *ContributionRepository) Update(ctx context.Context, contribution *entity.Contribution) error {
	query := `
		UPDATE contributions SET
			plan_id = ?,
			contact_id = ?,
			invoice_ref = ?,
			amount = ?,
			currency = ?,
			status = ?,
			trxn_id = ?,
			receive_date = ?,
			source = ?,
			financial_type_id = ?,
			page_id = ?,
			instrument_id = ?,
			address_id = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		nullableUint64Value(contribution.PlanID),
		contribution.ContactID,
		contribution.InvoiceRef,
		contribution.Amount,
		contribution.Currency,
		contribution.Status,
		nullableStringValue(contribution.TrxnID),
		nullableTimeValue(contribution.ReceiveDate),
		nullableStringValue(contribution.Source),
		nullableInt32Value(contribution.FinancialTypeID),
		nullableInt32Value(contribution.PageID),
		nullableInt32Value(contribution.InstrumentID),
		nullableUint64Value(contribution.AddressID),
		contribution.UpdatedAt,
		contribution.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrContributionNotFound
	}

	return nil
}

func (r *ContributionRepository) FindByID(ctx context.Context, id uint64) (*entity.Contribution, error) {
	query := `
		SELECT ` + contributionColumns + `
		FROM contributions
		WHERE id = ?
	`

	contribution := &entity.Contribution{}
	if err := scanContribution(r.db.QueryRowContext(ctx, query, id), contribution); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return contribution, nil
}

// FindEarliestByPlan returns the oldest contribution under a plan. It is
// both the unreconciled signup charge for pending plans and the clone
// source for freshly scheduled cycles.
func (r *ContributionRepository) FindEarliestByPlan(ctx context.Context, planID uint64) (*entity.Contribution, error) {
	query := `
		SELECT ` + contributionColumns + `
		FROM contributions
		WHERE plan_id = ?
		ORDER BY id ASC
		LIMIT 1
	`

	contribution := &entity.Contribution{}
	if err := scanContribution(r.db.QueryRowContext(ctx, query, planID), contribution); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return contribution, nil
}

func (r *ContributionRepository) CountByPlan(ctx context.Context, planID uint64) (int32, error) {
	query := `SELECT COUNT(*) FROM contributions WHERE plan_id = ?`

	var count int32
	if err := r.db.QueryRowContext(ctx, query, planID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsOtherWithInvoiceRef reports whether any non-failed contribution
// other than excludeID carries the given invoice reference.
func (r *ContributionRepository) ExistsOtherWithInvoiceRef(ctx context.Context, invoiceRef string, excludeID uint64) (bool, error) {
	query := `
		SELECT COUNT(*)
		FROM contributions
		WHERE invoice_ref = ?
		  AND status != ?
		  AND id != ?
	`

	var count int32
	if err := r.db.QueryRowContext(ctx, query, invoiceRef, entity.ContributionStatusFailed, excludeID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanContribution(scan rowScanner, contribution *entity.Contribution) error {
	var planID sql.NullInt64
	var trxnID sql.NullString
	var receiveDate sql.NullTime
	var source sql.NullString
	var financialTypeID sql.NullInt32
	var pageID sql.NullInt32
	var instrumentID sql.NullInt32
	var addressID sql.NullInt64

	err := scan.Scan(
		&contribution.ID,
		&planID,
		&contribution.ContactID,
		&contribution.InvoiceRef,
		&contribution.Amount,
		&contribution.Currency,
		&contribution.Status,
		&trxnID,
		&receiveDate,
		&source,
		&financialTypeID,
		&pageID,
		&instrumentID,
		&addressID,
		&contribution.CreatedAt,
		&contribution.UpdatedAt,
	)
	if err != nil {
		return err
	}

	contribution.PlanID = uint64PtrFromNull(planID)
	contribution.TrxnID = stringPtrFromNull(trxnID)
	contribution.ReceiveDate = timePtrFromNull(receiveDate)
	contribution.Source = stringPtrFromNull(source)
	contribution.FinancialTypeID = int32PtrFromNull(financialTypeID)
	contribution.PageID = int32PtrFromNull(pageID)
	contribution.InstrumentID = int32PtrFromNull(instrumentID)
	contribution.AddressID = uint64PtrFromNull(addressID)

	return nil
}
