package executive

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/stretchr/testify/assert"
)

func TestExitReason(t *testing.T) {
	assert := assert.New(t)
	for _, tc := range []struct {
		err    error
		kind   ExitKind
		reason string
	}{
		{nil, ExitSucceed, "Stopped"},
		{vm.ErrExecutionReverted, ExitRevert, "Reverted"},
		{vm.ErrOutOfGas, ExitError, "OutOfGas"},
		{fmt.Errorf("wrapped: %w", vm.ErrCodeStoreOutOfGas), ExitError, "OutOfGas"},
		{vm.ErrInsufficientBalance, ExitError, "OutOfFund"},
		{vm.ErrDepth, ExitError, "CallTooDeep"},
		{vm.ErrContractAddressCollision, ExitError, "CreateCollision"},
		{vm.ErrInvalidJump, ExitError, "InvalidJump"},
		{&vm.ErrStackUnderflow{}, ExitError, "StackUnderflow"},
		{&vm.ErrStackOverflow{}, ExitError, "StackOverflow"},
		{&vm.ErrInvalidOpCode{}, ExitError, "InvalidOpcode"},
		{errors.New("odd"), ExitError, "Other"},
	} {
		got := exit_reason(tc.err, "Stopped")
		assert.Equal(tc.kind, got.Kind, "%v", tc.err)
		assert.Equal(tc.reason, got.Reason, "%v", tc.err)
		assert.Equal(tc.err, got.Err)
	}
}

func TestExitReasonString(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("Succeed(Returned)", Succeed("Returned").String())
	assert.Equal("Fatal(Other): boom", Fatal(errors.New("boom")).String())
	assert.Equal("ExitKind(9)", ExitKind(9).String())
	assert.False(Fatal(nil).IsSucceed())
}
