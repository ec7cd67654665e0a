package executive

import (
	"errors"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance for transfer")
	ErrInvalidNonce        = errors.New("invalid nonce")
	ErrIntrinsicGas        = errors.New("intrinsic gas too low")
	ErrGasLimitExceeded    = errors.New("gas limit exceeds block gas limit")
	ErrTipAboveFeeCap      = errors.New("max priority fee per gas higher than max fee per gas")
	ErrFeeCapTooLow        = errors.New("max fee per gas less than block base fee")
)

// ValidationError is returned when a pre-flight check rejects a call. The store is
// left untouched.
type ValidationError struct {
	Err error
}

func (self *ValidationError) Error() string {
	return "validation: " + self.Err.Error()
}

func (self *ValidationError) Unwrap() error {
	return self.Err
}
