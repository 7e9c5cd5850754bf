package massa

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// nativeDecimals is the precision of the chain's native asset.
const nativeDecimals = 9

type readOnlyCallRequest struct {
	MaxGas         uint64    `json:"max_gas"`
	TargetAddress  string    `json:"target_address"`
	TargetFunction string    `json:"target_function"`
	Parameter      byteArray `json:"parameter"`
	CallerAddress  string    `json:"caller_address,omitempty"`
}

type readOnlyCallResult struct {
	Result struct {
		Ok    byteArray `json:"Ok,omitempty"`
		Error *string   `json:"Error,omitempty"`
	} `json:"result"`
}

// ExecuteReadOnlyCall runs a contract call without submitting an operation
// and returns the raw ABI-encoded return value.
func (c *Client) ExecuteReadOnlyCall(ctx context.Context, p ReadOnlyCallParams) ([]byte, error) {
	req := readOnlyCallRequest{
		MaxGas:         p.MaxGas,
		TargetAddress:  p.Target,
		TargetFunction: p.Function,
		Parameter:      byteArray(p.Parameter),
		CallerAddress:  p.Caller,
	}

	var results []readOnlyCallResult
	if err := c.call(ctx, "execute_read_only_call", [][]readOnlyCallRequest{{req}}, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, &NetworkError{Op: "execute_read_only_call", Err: fmt.Errorf("empty result set")}
	}
	if results[0].Result.Error != nil {
		return nil, &NetworkError{Op: "execute_read_only_call", Err: fmt.Errorf("execution failed: %s", *results[0].Result.Error)}
	}
	return []byte(results[0].Result.Ok), nil
}

type submitOperationRequest struct {
	SerializedContent byteArray `json:"serialized_content"`
	CreatorPublicKey  string    `json:"creator_public_key"`
	Signature         string    `json:"signature"`
}

// SubmitCall serializes, signs and submits a call operation and returns the
// chain-assigned operation identifier. Submission is attempted once; a failed
// submission surfaces immediately and is never retried here.
func (c *Client) SubmitCall(ctx context.Context, p CallParams, signer Signer) (string, error) {
	content, err := serializeCallOperation(p, signer.Address())
	if err != nil {
		return "", fmt.Errorf("failed to serialize operation: %w", err)
	}
	signature, err := signer.Sign(content)
	if err != nil {
		return "", fmt.Errorf("failed to sign operation: %w", err)
	}

	req := submitOperationRequest{
		SerializedContent: content,
		CreatorPublicKey:  signer.PublicKey(),
		Signature:         encodeSignature(signature),
	}

	var opIDs []string
	if err := c.callOnce(ctx, "send_operations", [][]submitOperationRequest{{req}}, &opIDs); err != nil {
		return "", err
	}
	if len(opIDs) == 0 {
		return "", &NetworkError{Op: "send_operations", Err: fmt.Errorf("node returned no operation id")}
	}

	log.Info().
		Str("operation", opIDs[0]).
		Str("target", p.Target).
		Str("function", p.Function).
		Msg("Operation submitted")
	return opIDs[0], nil
}

type operationInfo struct {
	ID               string  `json:"id"`
	IsOperationFinal *bool   `json:"is_operation_final"`
	OpExecStatus     *bool   `json:"op_exec_status"`
	ExecutionError   *string `json:"execution_error,omitempty"`
}

// GetOperationStatus queries the chain for a submitted operation's lifecycle
// state.
func (c *Client) GetOperationStatus(ctx context.Context, opID string) (OperationStatus, error) {
	var infos []operationInfo
	if err := c.call(ctx, "get_operations", [][]string{{opID}}, &infos); err != nil {
		return OperationStatus{}, err
	}
	if len(infos) == 0 {
		return OperationStatus{}, &NetworkError{Op: "get_operations", Err: fmt.Errorf("operation %s not found", opID)}
	}

	info := infos[0]
	status := OperationStatus{
		ID:        info.ID,
		IsFinal:   info.IsOperationFinal != nil && *info.IsOperationFinal,
		Succeeded: info.OpExecStatus,
	}
	if info.ExecutionError != nil {
		status.Error = *info.ExecutionError
	}
	return status, nil
}

type addressInfo struct {
	Address      string `json:"address"`
	FinalBalance string `json:"final_balance"`
}

// GetBalance returns an address's final native balance in smallest units.
func (c *Client) GetBalance(ctx context.Context, address string) (*uint256.Int, error) {
	var infos []addressInfo
	if err := c.call(ctx, "get_addresses", [][]string{{address}}, &infos); err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return nil, &NetworkError{Op: "get_addresses", Err: fmt.Errorf("address %s not found", address)}
	}

	// The node reports balances as decimal strings in whole native units.
	d, err := decimal.NewFromString(infos[0].FinalBalance)
	if err != nil {
		return nil, &NetworkError{Op: "get_addresses", Err: fmt.Errorf("invalid balance %q: %w", infos[0].FinalBalance, err)}
	}
	raw, overflow := uint256.FromBig(d.Shift(nativeDecimals).Floor().BigInt())
	if overflow {
		return nil, &NetworkError{Op: "get_addresses", Err: fmt.Errorf("balance %q overflows u256", infos[0].FinalBalance)}
	}
	return raw, nil
}

type nodeStatus struct {
	LastSlot struct {
		Period uint64 `json:"period"`
		Thread uint8  `json:"thread"`
	} `json:"last_slot"`
}

// GetCurrentPeriod returns the period of the node's latest slot. Operation
// expiries are absolute periods, so submitters add their offset to this.
func (c *Client) GetCurrentPeriod(ctx context.Context) (uint64, error) {
	var status nodeStatus
	if err := c.call(ctx, "get_status", []any{}, &status); err != nil {
		return 0, err
	}
	return status.LastSlot.Period, nil
}
