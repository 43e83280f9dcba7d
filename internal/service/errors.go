package service

import "errors"

var (
	ErrPaymentNotFound = errors.New("payment not found")
	ErrInvalidRequest  = errors.New("invalid request")
)
