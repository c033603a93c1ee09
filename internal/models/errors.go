package models

import "github.com/pkg/errors"

var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrMalformedInput  = errors.New("malformed input")
	ErrUnauthenticated = errors.New("login required")
	ErrForbidden       = errors.New("forbidden")
	ErrNoFees          = errors.New("no outstanding fees")
	ErrAlreadyPaid     = errors.New("fees already paid")
	ErrNotVerifiable   = errors.New("payment is not awaiting verification")
	ErrRateLimited     = errors.New("too many messages")
)
