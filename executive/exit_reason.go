package executive

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/core/vm"
)

type ExitKind uint8

const (
	ExitSucceed ExitKind = iota
	ExitRevert
	ExitError
	ExitFatal
)

func (self ExitKind) String() string {
	switch self {
	case ExitSucceed:
		return "Succeed"
	case ExitRevert:
		return "Revert"
	case ExitError:
		return "Error"
	case ExitFatal:
		return "Fatal"
	}
	return fmt.Sprintf("ExitKind(%d)", uint8(self))
}

// ExitReason is how an execution ended. It is data, not a failure of the call.
type ExitReason struct {
	Kind   ExitKind
	Reason string
	Err    error
}

func (self ExitReason) IsSucceed() bool { return self.Kind == ExitSucceed }

func (self ExitReason) String() string {
	if self.Err != nil {
		return fmt.Sprintf("%s(%s): %v", self.Kind, self.Reason, self.Err)
	}
	return fmt.Sprintf("%s(%s)", self.Kind, self.Reason)
}

func Succeed(reason string) ExitReason { return ExitReason{Kind: ExitSucceed, Reason: reason} }
func Fatal(err error) ExitReason       { return ExitReason{Kind: ExitFatal, Reason: "Other", Err: err} }

var vm_error_reasons = []struct {
	err    error
	reason string
}{
	{vm.ErrOutOfGas, "OutOfGas"},
	{vm.ErrCodeStoreOutOfGas, "OutOfGas"},
	{vm.ErrGasUintOverflow, "OutOfGas"},
	{vm.ErrInsufficientBalance, "OutOfFund"},
	{vm.ErrDepth, "CallTooDeep"},
	{vm.ErrContractAddressCollision, "CreateCollision"},
	{vm.ErrMaxCodeSizeExceeded, "CreateContractLimit"},
	{vm.ErrInvalidJump, "InvalidJump"},
	{vm.ErrReturnDataOutOfBounds, "OutOfOffset"},
	{vm.ErrWriteProtection, "WriteProtection"},
	{vm.ErrInvalidCode, "InvalidCode"},
}

// exit_reason classifies the error returned by the interpreter. succeed_reason is used
// when there is no error.
func exit_reason(err error, succeed_reason string) ExitReason {
	if err == nil {
		return Succeed(succeed_reason)
	}
	if errors.Is(err, vm.ErrExecutionReverted) {
		return ExitReason{Kind: ExitRevert, Reason: "Reverted", Err: err}
	}
	for _, r := range vm_error_reasons {
		if errors.Is(err, r.err) {
			return ExitReason{Kind: ExitError, Reason: r.reason, Err: err}
		}
	}
	var (
		underflow *vm.ErrStackUnderflow
		overflow  *vm.ErrStackOverflow
		invalid   *vm.ErrInvalidOpCode
	)
	switch {
	case errors.As(err, &underflow):
		return ExitReason{Kind: ExitError, Reason: "StackUnderflow", Err: err}
	case errors.As(err, &overflow):
		return ExitReason{Kind: ExitError, Reason: "StackOverflow", Err: err}
	case errors.As(err, &invalid):
		return ExitReason{Kind: ExitError, Reason: "InvalidOpcode", Err: err}
	}
	return ExitReason{Kind: ExitError, Reason: "Other", Err: err}
}
