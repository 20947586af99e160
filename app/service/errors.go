package service

import "errors"

var (
	ErrPlanNotFound         = errors.New("recurring plan not found")
	ErrPlanNotEnrolled      = errors.New("recurring plan has no processor token")
	ErrPlanAlreadyEnrolled  = errors.New("recurring plan is already enrolled")
	ErrInvalidPlanStatus    = errors.New("invalid plan status")
	ErrProcessorUnsupported = errors.New("payment processor is not supported")
)
