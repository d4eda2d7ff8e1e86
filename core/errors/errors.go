package errors

import stderrors "errors"

// Failure kinds shared by every venue component. Components wrap these with
// fmt.Errorf("%w: ...") so callers can classify failures with errors.Is.
var (
	ErrInvalidAmount         = stderrors.New("invalid amount")
	ErrInsufficientBalance   = stderrors.New("insufficient balance")
	ErrInsufficientAllowance = stderrors.New("insufficient allowance")
	ErrTransferFailed        = stderrors.New("transfer failed")
	ErrUnsafePositionRatio   = stderrors.New("unsafe position ratio")
	ErrNotLiquidatable       = stderrors.New("position not liquidatable")
	ErrFlashCreditFailed     = stderrors.New("flash credit failed")

	ErrInsufficientLiquidity = stderrors.New("insufficient liquidity")
	ErrPoolNotInitialized    = stderrors.New("pool not initialised")
	ErrPoolInitialized       = stderrors.New("pool already initialised")
	ErrSlippageExceeded      = stderrors.New("slippage exceeded")
	ErrUnauthorized          = stderrors.New("unauthorized")
	ErrLoopLimitExceeded     = stderrors.New("loop limit exceeded")
	ErrInvariantViolated     = stderrors.New("invariant violated")
	ErrModulePaused          = stderrors.New("module paused")
)

// kinds is ordered from most to least specific. A flash credit failure wraps
// its cause, so the outer kind is checked first.
var kinds = []struct {
	err  error
	name string
}{
	{ErrFlashCreditFailed, "flash_credit_failed"},
	{ErrInvalidAmount, "invalid_amount"},
	{ErrInsufficientAllowance, "insufficient_allowance"},
	{ErrInsufficientBalance, "insufficient_balance"},
	{ErrUnsafePositionRatio, "unsafe_position_ratio"},
	{ErrNotLiquidatable, "not_liquidatable"},
	{ErrInsufficientLiquidity, "insufficient_liquidity"},
	{ErrPoolNotInitialized, "pool_not_initialized"},
	{ErrPoolInitialized, "pool_initialized"},
	{ErrSlippageExceeded, "slippage_exceeded"},
	{ErrUnauthorized, "unauthorized"},
	{ErrLoopLimitExceeded, "loop_limit_exceeded"},
	{ErrInvariantViolated, "invariant_violated"},
	{ErrModulePaused, "module_paused"},
	{ErrTransferFailed, "transfer_failed"},
}

// Kind returns a stable label for the failure kind carried by err. Unknown
// errors map to "internal"; nil maps to "".
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if stderrors.Is(err, k.err) {
			return k.name
		}
	}
	return "internal"
}
