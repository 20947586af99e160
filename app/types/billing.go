package types

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type RunBillingRequest struct {
	DomainID int32  `json:"domain_id"`
	PlanID   uint64 `json:"plan_id"`
}

type RunBillingResponse struct {
	Results []string `json:"results"`
}

type ChargeTokenRequest struct {
	ProcessorID int32  `json:"processor_id"`
	TokenID     string `json:"token_id"`
	AmountCents int64  `json:"amount_cents"`
	InvoiceRef  string `json:"invoice_ref"`
	Description string `json:"description"`
}

type ChargeTokenResponse struct {
	TrxnID string `json:"trxn_id"`
}

type GetTokenRequest struct {
	ProcessorID int32
	TokenID     string
}

type TokenInfoResponse struct {
	TokenID     string `json:"token_id"`
	CardNumber  string `json:"card_number"`
	Email       string `json:"email"`
	ExpiryMonth int    `json:"expiry_month"`
	ExpiryYear  int    `json:"expiry_year"`
	ExpiryDate  string `json:"expiry_date"`
}

type GetPlanRequest struct {
	ID uint64
}

type EnrollPlanRequest struct {
	ID        uint64 `json:"-"`
	Title     string `json:"title"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	PostCode  string `json:"post_code"`
	Country   string `json:"country"`
	Email     string `json:"email"`
}

type RecurringPlan struct {
	ID                uint64 `json:"id"`
	ContactID         uint64 `json:"contact_id"`
	DomainID          int32  `json:"domain_id"`
	Amount            string `json:"amount"`
	Currency          string `json:"currency"`
	FrequencyInterval int32  `json:"frequency_interval"`
	FrequencyUnit     string `json:"frequency_unit"`
	Installments      int32  `json:"installments"`
	FailureCount      int32  `json:"failure_count"`
	Status            int32  `json:"status"`
	ProcessorToken    string `json:"processor_token"`
	ProcessorID       int32  `json:"processor_id"`
	FinancialTypeID   int32  `json:"financial_type_id"`
	NextSchedDate     string `json:"next_sched_date"`
	StartDate         string `json:"start_date"`
	EndDate           string `json:"end_date"`
	CancelDate        string `json:"cancel_date"`
	CreatedAt         string `json:"created_at"`
	ModifiedAt        string `json:"modified_at"`
}

type PlanEnvelopeResponse struct {
	Plan *RecurringPlan `json:"plan"`
}

type EnrollPlanResponse struct {
	Plan    *RecurringPlan `json:"plan"`
	Results []string       `json:"results"`
}

func NewRunBillingRequestFromContext(ctx echo.Context) (*RunBillingRequest, error) {
	var body RunBillingRequest
	if err := ctx.Bind(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &body, nil
}

func (r *RunBillingRequest) Validate() error {
	if r.DomainID < 0 {
		return errors.New("domain_id must be >= 0")
	}
	return nil
}

func NewChargeTokenRequestFromContext(ctx echo.Context) (*ChargeTokenRequest, error) {
	var body ChargeTokenRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.TokenID = strings.TrimSpace(body.TokenID)
	body.InvoiceRef = strings.TrimSpace(body.InvoiceRef)
	body.Description = strings.TrimSpace(body.Description)

	return &body, nil
}

func (r *ChargeTokenRequest) Validate() error {
	if strings.TrimSpace(r.TokenID) == "" {
		return errors.New("token_id is required")
	}
	if r.AmountCents <= 0 {
		return errors.New("amount_cents must be > 0")
	}
	if strings.TrimSpace(r.InvoiceRef) == "" {
		return errors.New("invoice_ref is required")
	}
	return nil
}

func NewGetTokenRequestFromContext(ctx echo.Context) (*GetTokenRequest, error) {
	req := &GetTokenRequest{
		TokenID: strings.TrimSpace(ctx.Param("id")),
	}

	if raw := strings.TrimSpace(ctx.QueryParam("processor_id")); raw != "" {
		processorID, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.ProcessorID = int32(processorID)
	}

	return req, nil
}

func (r *GetTokenRequest) Validate() error {
	if r.TokenID == "" {
		return errors.New("token id is required")
	}
	return nil
}

func NewGetPlanRequestFromContext(ctx echo.Context) (*GetPlanRequest, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, err
	}
	return &GetPlanRequest{ID: id}, nil
}

func (r *GetPlanRequest) Validate() error {
	if r.ID == 0 {
		return errors.New("invalid plan id")
	}
	return nil
}

func NewEnrollPlanRequestFromContext(ctx echo.Context) (*EnrollPlanRequest, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, err
	}

	var body EnrollPlanRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.ID = id

	body.Title = strings.TrimSpace(body.Title)
	body.FirstName = strings.TrimSpace(body.FirstName)
	body.LastName = strings.TrimSpace(body.LastName)
	body.Address = strings.TrimSpace(body.Address)
	body.City = strings.TrimSpace(body.City)
	body.State = strings.TrimSpace(body.State)
	body.PostCode = strings.TrimSpace(body.PostCode)
	body.Country = strings.ToLower(strings.TrimSpace(body.Country))
	body.Email = strings.TrimSpace(body.Email)

	return &body, nil
}

func (r *EnrollPlanRequest) Validate() error {
	if r.ID == 0 {
		return errors.New("invalid plan id")
	}
	if r.FirstName == "" {
		return errors.New("first_name is required")
	}
	if r.LastName == "" {
		return errors.New("last_name is required")
	}
	if len(r.Country) != 2 {
		return errors.New("country must be a 2-letter code")
	}
	return nil
}
