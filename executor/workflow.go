// Package executor drives a resolved swap quote through its on-chain
// lifecycle: classify the trade, increase the router allowance when the
// source is a token, submit the trade operation and poll it to finality.
package executor

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/osprey-wallet/massa-swap/abi"
	"github.com/osprey-wallet/massa-swap/massa"
	"github.com/osprey-wallet/massa-swap/router"
	"github.com/osprey-wallet/massa-swap/tokens"
)

var execLog zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	execLog = zerolog.New(out).With().Timestamp().Str("component", "executor").Logger()
}

// FinalityPolicy decides what a confirmation timeout means.
type FinalityPolicy string

const (
	// PolicyOptimistic reports success when the confirmation window elapses
	// without finality, assuming the operation was accepted by the network.
	PolicyOptimistic FinalityPolicy = "optimistic"
	// PolicyStrict reports a ConfirmationTimeoutError instead.
	PolicyStrict FinalityPolicy = "strict"
)

// Step is a workflow state. Transitions are strictly forward.
type Step string

const (
	StepClassify Step = "classify"
	StepApprove  Step = "approve"
	StepSubmit   Step = "submit"
	StepConfirm  Step = "confirm"
	StepDone     Step = "done"
)

// Node is the slice of the node client the executor needs.
type Node interface {
	ExecuteReadOnlyCall(ctx context.Context, p massa.ReadOnlyCallParams) ([]byte, error)
	SubmitCall(ctx context.Context, p massa.CallParams, signer massa.Signer) (string, error)
	GetOperationStatus(ctx context.Context, opID string) (massa.OperationStatus, error)
	GetBalance(ctx context.Context, address string) (*uint256.Int, error)
	GetCurrentPeriod(ctx context.Context) (uint64, error)
}

// Config holds the contract bindings and operation defaults for execution.
type Config struct {
	// RouterAddress is the swap router contract.
	RouterAddress string
	// Fee is the operation fee in smallest native units.
	Fee uint64
	// MaxGas is the gas ceiling for submitted operations.
	MaxGas uint64
	// Expiry is how many periods past the chain's current period a submitted
	// operation stays valid. The absolute expiry period is computed at
	// submission time.
	Expiry uint64
	// PollInterval is the confirmation polling cadence.
	PollInterval time.Duration
	// ConfirmTimeout bounds the confirmation wait per operation.
	ConfirmTimeout time.Duration
	// Finality decides how a confirmation timeout is reported.
	Finality FinalityPolicy
}

// DefaultConfig returns execution defaults for the given router contract.
func DefaultConfig(routerAddress string) Config {
	return Config{
		RouterAddress:  routerAddress,
		Fee:            10_000_000,
		MaxGas:         500_000_000,
		Expiry:         9,
		PollInterval:   time.Second,
		ConfirmTimeout: 45 * time.Second,
		Finality:       PolicyOptimistic,
	}
}

// Intent is one swap request as the caller stated it.
type Intent struct {
	FromSymbol string
	ToSymbol   string
	// AmountIn is in the source token's smallest unit.
	AmountIn *uint256.Int
	// Slippage is a fraction in [0, 1), e.g. 0.005 for 0.5%.
	Slippage decimal.Decimal
	// Deadline is when the swap stops being acceptable on chain.
	Deadline time.Time
	// Recipient defaults to the signer's address when empty.
	Recipient string
}

// Result reports a finished execution.
type Result struct {
	Kind TradeKind
	// ApprovalOperationID is set for token-sourced trades.
	ApprovalOperationID string
	OperationID         string
	// MinAmountOut is the slippage-adjusted floor submitted on chain.
	MinAmountOut *uint256.Int
	// Optimistic marks a success reported without observed finality.
	Optimistic bool
}

// Workflow carries one intent through the executor's state machine. It is
// single use and never executes two dependent operations concurrently.
type Workflow struct {
	intent     Intent
	quote      *router.Quote
	signer     massa.Signer
	kind       TradeKind
	step       Step
	minOut     *uint256.Int
	deadlineMs uint64
}

func (w *Workflow) recipient() string {
	if w.intent.Recipient != "" {
		return w.intent.Recipient
	}
	return w.signer.Address()
}

// Step returns the workflow's current state.
func (w *Workflow) Step() Step { return w.step }

// Executor submits classified trades and waits for their confirmation.
type Executor struct {
	node     Node
	registry *tokens.Registry
	config   Config
}

// New creates an executor over the given node and token registry.
func New(node Node, registry *tokens.Registry, config Config) *Executor {
	if config.PollInterval <= 0 {
		config.PollInterval = time.Second
	}
	if config.ConfirmTimeout <= 0 {
		config.ConfirmTimeout = 45 * time.Second
	}
	if config.Finality == "" {
		config.Finality = PolicyOptimistic
	}
	return &Executor{node: node, registry: registry, config: config}
}

// Execute runs the full saga for one intent: balance pre-check, approval for
// token-sourced trades, trade submission and confirmation polling. The quote
// must have been resolved for exactly this intent. Once an operation is
// submitted it is never retried or rolled back; failures surface as typed
// errors.
func (e *Executor) Execute(ctx context.Context, intent Intent, quote *router.Quote, signer massa.Signer) (*Result, error) {
	if !quote.Matches(intent.FromSymbol, intent.ToSymbol, intent.AmountIn) {
		return nil, &StaleQuoteError{From: intent.FromSymbol, To: intent.ToSymbol}
	}

	from, err := e.registry.Resolve(intent.FromSymbol)
	if err != nil {
		return nil, err
	}
	to, err := e.registry.Resolve(intent.ToSymbol)
	if err != nil {
		return nil, err
	}

	w := &Workflow{intent: intent, quote: quote, signer: signer, step: StepClassify}
	if err := w.bindDeadline(intent.Deadline); err != nil {
		return nil, err
	}

	w.kind = Classify(from, to)
	w.quote = e.normalizeQuote(w.kind, quote)

	execLog.Info().
		Str("kind", string(w.kind)).
		Str("from", from.Symbol).
		Str("to", to.Symbol).
		Str("amountIn", intent.AmountIn.Dec()).
		Msg("Executing trade")

	if err := e.checkBalance(ctx, from, intent.AmountIn, signer.Address()); err != nil {
		return nil, err
	}

	result := &Result{Kind: w.kind}

	if w.kind.NeedsApproval() {
		w.step = StepApprove
		approvalID, err := e.approve(ctx, from, signer)
		if err != nil {
			return nil, err
		}
		result.ApprovalOperationID = approvalID
	}

	w.step = StepSubmit
	expiry, err := e.operationExpiry(ctx)
	if err != nil {
		return nil, err
	}
	call, err := e.buildTradeCall(w.kind, w, expiry)
	if err != nil {
		return nil, err
	}
	result.MinAmountOut = w.minOut

	opID, err := e.node.SubmitCall(ctx, call, signer)
	if err != nil {
		return nil, err
	}
	result.OperationID = opID

	w.step = StepConfirm
	status, timedOut, err := e.pollConfirm(ctx, opID)
	if err != nil {
		return nil, err
	}
	w.step = StepDone

	switch {
	case timedOut && e.config.Finality == PolicyStrict:
		return nil, &ConfirmationTimeoutError{OperationID: opID}
	case timedOut:
		execLog.Warn().
			Str("operation", opID).
			Msg("Confirmation window elapsed, reporting optimistic success")
		result.Optimistic = true
		return result, nil
	case status.Succeeded != nil && !*status.Succeeded:
		return nil, &SwapExecutionFailedError{OperationID: opID, Reason: chainReason(status)}
	default:
		execLog.Info().Str("operation", opID).Msg("Trade confirmed")
		return result, nil
	}
}

// bindDeadline converts the intent deadline into the on-chain millisecond
// timestamp. An already-expired deadline is refused before any submission.
func (w *Workflow) bindDeadline(deadline time.Time) error {
	if deadline.IsZero() {
		deadline = time.Now().Add(20 * time.Minute)
	}
	if !deadline.After(time.Now()) {
		return fmt.Errorf("swap deadline %s already passed", deadline.Format(time.RFC3339))
	}
	w.deadlineMs = uint64(deadline.UnixMilli())
	return nil
}

// checkBalance verifies the sender can cover the input amount. Native
// balances come from the node's address info; token balances from the token
// contract's balanceOf.
func (e *Executor) checkBalance(ctx context.Context, from tokens.Token, amountIn *uint256.Int, sender string) error {
	var available *uint256.Int
	var err error
	if from.IsNative() {
		available, err = e.node.GetBalance(ctx, sender)
	} else {
		available, err = e.tokenBalance(ctx, from.Address, sender)
	}
	if err != nil {
		return err
	}
	if available.Lt(amountIn) {
		return &InsufficientBalanceError{
			Symbol:    from.Symbol,
			Requested: amountIn.Dec(),
			Available: available.Dec(),
		}
	}
	return nil
}

// tokenBalance reads a token contract's balanceOf for the owner.
func (e *Executor) tokenBalance(ctx context.Context, tokenAddress, owner string) (*uint256.Int, error) {
	out, err := e.node.ExecuteReadOnlyCall(ctx, massa.ReadOnlyCallParams{
		Target:    tokenAddress,
		Function:  "balanceOf",
		Parameter: abi.NewArgs().String(owner).Bytes(),
		MaxGas:    e.config.MaxGas,
		Caller:    owner,
	})
	if err != nil {
		return nil, err
	}
	return abi.NewReader(out).U256()
}

// approve submits the allowance increase and waits for its finality. The
// trade is never submitted unless the approval reached final success; a
// timeout here aborts regardless of the finality policy.
func (e *Executor) approve(ctx context.Context, from tokens.Token, signer massa.Signer) (string, error) {
	expiry, err := e.operationExpiry(ctx)
	if err != nil {
		return "", err
	}
	call := e.buildApprovalCall(from.Address, expiry)
	opID, err := e.node.SubmitCall(ctx, call, signer)
	if err != nil {
		return "", err
	}
	execLog.Info().
		Str("operation", opID).
		Str("token", from.Symbol).
		Msg("Approval submitted, waiting for finality")

	status, timedOut, err := e.pollConfirm(ctx, opID)
	if err != nil {
		return "", err
	}
	if timedOut {
		return "", &ApprovalFailedError{OperationID: opID, Reason: "confirmation timed out before finality"}
	}
	if status.Succeeded == nil || !*status.Succeeded {
		return "", &ApprovalFailedError{OperationID: opID, Reason: chainReason(status)}
	}
	execLog.Info().Str("operation", opID).Msg("Approval confirmed")
	return opID, nil
}

// operationExpiry computes the absolute expiry period for an operation
// submitted now.
func (e *Executor) operationExpiry(ctx context.Context) (uint64, error) {
	period, err := e.node.GetCurrentPeriod(ctx)
	if err != nil {
		return 0, err
	}
	return period + e.config.Expiry, nil
}

// pollConfirm polls the operation until it is final or the confirmation
// window elapses. timedOut is reported instead of an error so the caller can
// apply its finality policy.
func (e *Executor) pollConfirm(ctx context.Context, opID string) (massa.OperationStatus, bool, error) {
	ticker := time.NewTicker(e.config.PollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(e.config.ConfirmTimeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return massa.OperationStatus{}, false, ctx.Err()
		case <-deadline.C:
			return massa.OperationStatus{}, true, nil
		case <-ticker.C:
			status, err := e.node.GetOperationStatus(ctx, opID)
			if err != nil {
				// Transient status failures just wait for the next tick.
				execLog.Debug().Err(err).Str("operation", opID).Msg("Status poll failed")
				continue
			}
			if status.IsFinal {
				return status, false, nil
			}
		}
	}
}

func chainReason(status massa.OperationStatus) string {
	if status.Error != "" {
		return status.Error
	}
	return "execution failed on chain"
}
