package service

import (
	"context"

	"github.com/vibast-solutions/ms-go-billing/app/entity"
)

func (s *BillingService) GetPlan(ctx context.Context, id uint64) (*entity.RecurringPlan, error) {
	plan, err := s.planRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, ErrPlanNotFound
	}
	return plan, nil
}
