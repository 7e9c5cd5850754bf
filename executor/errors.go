package executor

import "fmt"

// InsufficientBalanceError reports that the intent's input amount exceeds the
// sender's pre-checked balance. Amounts are in smallest units.
type InsufficientBalanceError struct {
	Symbol    string
	Requested string
	Available string
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s balance: requested %s, have %s", e.Symbol, e.Requested, e.Available)
}

// ApprovalFailedError reports that the allowance-increase operation failed
// on chain, carrying the chain's failure reason.
type ApprovalFailedError struct {
	OperationID string
	Reason      string
}

func (e *ApprovalFailedError) Error() string {
	return fmt.Sprintf("approval operation %s failed: %s", e.OperationID, e.Reason)
}

// SwapExecutionFailedError reports that the swap operation failed on chain,
// carrying the chain's failure reason.
type SwapExecutionFailedError struct {
	OperationID string
	Reason      string
}

func (e *SwapExecutionFailedError) Error() string {
	return fmt.Sprintf("swap operation %s failed: %s", e.OperationID, e.Reason)
}

// ConfirmationTimeoutError reports that an operation did not reach finality
// within the polling window. It is surfaced only under the strict finality
// policy; the optimistic policy reports success instead.
type ConfirmationTimeoutError struct {
	OperationID string
}

func (e *ConfirmationTimeoutError) Error() string {
	return fmt.Sprintf("operation %s not final within the confirmation window", e.OperationID)
}

// StaleQuoteError reports that the supplied quote was resolved for a
// different pair or amount than the intent being executed.
type StaleQuoteError struct {
	From string
	To   string
}

func (e *StaleQuoteError) Error() string {
	return fmt.Sprintf("quote does not match intent %s -> %s", e.From, e.To)
}
