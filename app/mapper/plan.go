package mapper

import (
	"time"

	"github.com/vibast-solutions/ms-go-billing/app/entity"
	"github.com/vibast-solutions/ms-go-billing/app/gateway"
	"github.com/vibast-solutions/ms-go-billing/app/types"
)

func PlanToResponse(item *entity.RecurringPlan) *types.RecurringPlan {
	if item == nil {
		return nil
	}

	return &types.RecurringPlan{
		ID:                item.ID,
		ContactID:         item.ContactID,
		DomainID:          item.DomainID,
		Amount:            item.Amount.StringFixed(2),
		Currency:          item.Currency,
		FrequencyInterval: item.FrequencyInterval,
		FrequencyUnit:     item.FrequencyUnit,
		Installments:      item.Installments,
		FailureCount:      item.FailureCount,
		Status:            item.Status,
		ProcessorToken:    derefString(item.ProcessorToken),
		ProcessorID:       item.ProcessorID,
		FinancialTypeID:   derefInt32(item.FinancialTypeID),
		NextSchedDate:     formatDate(item.NextSchedDate),
		StartDate:         formatDate(item.StartDate),
		EndDate:           formatDate(item.EndDate),
		CancelDate:        formatDate(item.CancelDate),
		CreatedAt:         item.CreatedAt.UTC().Format(time.RFC3339),
		ModifiedAt:        item.ModifiedAt.UTC().Format(time.RFC3339),
	}
}

func TokenInfoToResponse(item *gateway.TokenInfo) *types.TokenInfoResponse {
	if item == nil {
		return nil
	}

	return &types.TokenInfoResponse{
		TokenID:     item.TokenID,
		CardNumber:  item.CardNumber,
		Email:       item.Email,
		ExpiryMonth: item.ExpiryMonth,
		ExpiryYear:  item.ExpiryYear,
		ExpiryDate:  item.ExpiryDate().Format("2006-01-02"),
	}
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefInt32(v *int32) int32 {
	if v == nil {
		return 0
	}
	return *v
}

func formatDate(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.UTC().Format("2006-01-02")
}
