package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrAccountNotFound    = errors.New("account not found")
	ErrProductNotFound    = errors.New("product not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrResetTokenInvalid  = errors.New("reset token is invalid or expired")
	ErrNilAccount         = errors.New("account is nil")
	ErrNilOrder           = errors.New("order is nil")
	ErrInvalidOrderStatus = errors.New("invalid order status")
	ErrGateway            = errors.New("payment gateway error")
	ErrInternal           = fmt.Errorf("internal error")

	// Webhook rejections. Everything else on the notification path is acknowledged.
	ErrMalformedNotification = errors.New("malformed gateway notification")
	ErrInvalidSignature      = errors.New("invalid gateway notification signature")
)
