package service

import "errors"

var (
	ErrTokenEmpty               = errors.New("token is empty")
	ErrTokenInvalid             = errors.New("invalid token")
	ErrTokenUnexpectedSignature = errors.New("unexpected signing method")
	ErrTokenInvalidClaims       = errors.New("invalid token claims")

	ErrProcessorRunning    = errors.New("expiry processor is already running")
	ErrProcessorNotRunning = errors.New("expiry processor is not running")
)
