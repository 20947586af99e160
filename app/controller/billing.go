package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-billing/app/factory"
	"github.com/vibast-solutions/ms-go-billing/app/gateway"
	"github.com/vibast-solutions/ms-go-billing/app/mapper"
	"github.com/vibast-solutions/ms-go-billing/app/service"
	"github.com/vibast-solutions/ms-go-billing/app/types"
)

type BillingController struct {
	billingService     *service.BillingService
	defaultDomainID    int32
	defaultProcessorID int32
	logger             logrus.FieldLogger
}

func NewBillingController(billingService *service.BillingService, defaultDomainID, defaultProcessorID int32) *BillingController {
	return &BillingController{
		billingService:     billingService,
		defaultDomainID:    defaultDomainID,
		defaultProcessorID: defaultProcessorID,
		logger:             factory.NewModuleLogger("billing-controller"),
	}
}

func (c *BillingController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *BillingController) RunBilling(ctx echo.Context) error {
	req, err := types.NewRunBillingRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}
	if req.DomainID == 0 {
		req.DomainID = c.defaultDomainID
	}

	results, err := c.billingService.RunBilling(ctx.Request().Context(), req.DomainID, req.PlanID)
	if err != nil {
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Billing run failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.RunBillingResponse{Results: results})
}

func (c *BillingController) ChargeToken(ctx echo.Context) error {
	req, err := types.NewChargeTokenRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}
	if req.ProcessorID == 0 {
		req.ProcessorID = c.defaultProcessorID
	}

	trxnID, err := c.billingService.ChargeToken(ctx.Request().Context(),
		req.ProcessorID, req.TokenID, req.AmountCents, req.InvoiceRef, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProcessorUnsupported):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case isGatewayError(err):
			return c.writeError(ctx, http.StatusBadGateway, err.Error())
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Charge token failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.ChargeTokenResponse{TrxnID: trxnID})
}

func (c *BillingController) GetToken(ctx echo.Context) error {
	req, err := types.NewGetTokenRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}
	if req.ProcessorID == 0 {
		req.ProcessorID = c.defaultProcessorID
	}

	info, err := c.billingService.QueryToken(ctx.Request().Context(), req.ProcessorID, req.TokenID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProcessorUnsupported):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case isGatewayError(err):
			return c.writeError(ctx, http.StatusBadGateway, err.Error())
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Get token failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, mapper.TokenInfoToResponse(info))
}

func (c *BillingController) GetPlan(ctx echo.Context) error {
	req, err := types.NewGetPlanRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.billingService.GetPlan(ctx.Request().Context(), req.ID)
	if err != nil {
		if errors.Is(err, service.ErrPlanNotFound) {
			return c.writeError(ctx, http.StatusNotFound, "plan not found")
		}
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Get plan failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.PlanEnvelopeResponse{Plan: mapper.PlanToResponse(item)})
}

func (c *BillingController) GetPlanToken(ctx echo.Context) error {
	req, err := types.NewGetPlanRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	info, err := c.billingService.QueryPlanToken(ctx.Request().Context(), req.ID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPlanNotFound):
			return c.writeError(ctx, http.StatusNotFound, "plan not found")
		case errors.Is(err, service.ErrPlanNotEnrolled), errors.Is(err, service.ErrProcessorUnsupported):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case isGatewayError(err):
			return c.writeError(ctx, http.StatusBadGateway, err.Error())
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Get plan token failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, mapper.TokenInfoToResponse(info))
}

func (c *BillingController) EnrollPlan(ctx echo.Context) error {
	req, err := types.NewEnrollPlanRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	profile := &gateway.CustomerProfile{
		Title:     req.Title,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Address:   req.Address,
		City:      req.City,
		State:     req.State,
		PostCode:  req.PostCode,
		Country:   req.Country,
		Email:     req.Email,
	}

	plan, results, err := c.billingService.EnrollPlan(ctx.Request().Context(), req.ID, profile)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPlanNotFound):
			return c.writeError(ctx, http.StatusNotFound, "plan not found")
		case errors.Is(err, service.ErrPlanAlreadyEnrolled):
			return c.writeError(ctx, http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrInvalidPlanStatus), errors.Is(err, service.ErrProcessorUnsupported):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case isGatewayError(err):
			return c.writeError(ctx, http.StatusBadGateway, err.Error())
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Enroll plan failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.EnrollPlanResponse{
		Plan:    mapper.PlanToResponse(plan),
		Results: results,
	})
}

func isGatewayError(err error) bool {
	return errors.Is(err, gateway.ErrGatewayFault) ||
		errors.Is(err, gateway.ErrNoResponse) ||
		errors.Is(err, gateway.ErrInvalidResponse)
}

func (c *BillingController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
