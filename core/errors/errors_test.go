package errors

import (
	"fmt"
	"testing"
)

func TestKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("%w: zero", ErrInvalidAmount), "invalid_amount"},
		{fmt.Errorf("%w: %w", ErrTransferFailed, ErrInsufficientAllowance), "insufficient_allowance"},
		{fmt.Errorf("%w: %w", ErrFlashCreditFailed, ErrNotLiquidatable), "flash_credit_failed"},
		{ErrTransferFailed, "transfer_failed"},
		{fmt.Errorf("disk on fire"), "internal"},
	}
	for _, tc := range cases {
		if got := Kind(tc.err); got != tc.want {
			t.Fatalf("Kind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
