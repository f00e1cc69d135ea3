package service

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrNotClient           = errors.New("only a client can pay for a job")
	ErrTargetNotClient     = errors.New("deposit target is not a client")
	ErrNotParty            = errors.New("not a party to this contract")
	ErrInsufficientBalance = errors.New("balance is below the job price")
	ErrAmountRequired      = errors.New("a positive amount is required")
	ErrDepositCapExceeded  = errors.New("amount exceeds the deposit cap")
	ErrJobNotPaid          = errors.New("job has not been paid")
	ErrInvalidInput        = errors.New("invalid input")
)
