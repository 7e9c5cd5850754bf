package massa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zeebo/assert"
)

type fakeNode struct {
	t       *testing.T
	handler func(method string, params json.RawMessage) (any, *rpcError)
}

func (f *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
		ID     uint64          `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		f.t.Fatalf("bad request body: %v", err)
	}
	result, rpcErr := f.handler(req.Method, req.Params)
	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	if rpcErr != nil {
		resp["error"] = map[string]any{"code": rpcErr.Code, "message": rpcErr.Message}
	} else {
		resp["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func newTestClient(t *testing.T, handler func(method string, params json.RawMessage) (any, *rpcError)) *Client {
	srv := httptest.NewServer(&fakeNode{t: t, handler: handler})
	t.Cleanup(srv.Close)

	cfg := DefaultClientConfig()
	cfg.MaxRetries = 0
	cfg.RetryDelay = time.Millisecond
	client, err := NewClient(srv.URL, nil, cfg)
	assert.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func TestExecuteReadOnlyCall(t *testing.T) {
	client := newTestClient(t, func(method string, params json.RawMessage) (any, *rpcError) {
		assert.Equal(t, "execute_read_only_call", method)

		var batch [][]map[string]any
		assert.NoError(t, json.Unmarshal(params, &batch))
		call := batch[0][0]
		assert.Equal(t, "AS1target", call["target_address"])
		assert.Equal(t, "getPrice", call["target_function"])

		return []map[string]any{
			{"result": map[string]any{"Ok": []int{1, 0, 0, 0}}},
		}, nil
	})

	out, err := client.ExecuteReadOnlyCall(context.Background(), ReadOnlyCallParams{
		Target:    "AS1target",
		Function:  "getPrice",
		Parameter: []byte{0xaa},
		MaxGas:    100_000_000,
	})
	assert.NoError(t, err)
	assert.DeepEqual(t, []byte{1, 0, 0, 0}, out)
}

func TestExecuteReadOnlyCallExecutionError(t *testing.T) {
	client := newTestClient(t, func(method string, params json.RawMessage) (any, *rpcError) {
		return []map[string]any{
			{"result": map[string]any{"Error": "out of gas"}},
		}, nil
	})

	_, err := client.ExecuteReadOnlyCall(context.Background(), ReadOnlyCallParams{
		Target: "AS1target", Function: "getPrice",
	})
	assert.Error(t, err)
	var netErr *NetworkError
	assert.True(t, errors.As(err, &netErr))
	assert.Equal(t, "execute_read_only_call", netErr.Op)
}

func TestRPCErrorWrappedAsNetworkError(t *testing.T) {
	client := newTestClient(t, func(method string, params json.RawMessage) (any, *rpcError) {
		return nil, &rpcError{Code: -32000, Message: "node overloaded"}
	})

	_, err := client.GetOperationStatus(context.Background(), "O1abc")
	var netErr *NetworkError
	assert.True(t, errors.As(err, &netErr))
}

type stubSigner struct{}

func (stubSigner) Address() string               { return "AU1sender" }
func (stubSigner) PublicKey() string             { return "P1pubkey" }
func (stubSigner) Sign(_ []byte) ([]byte, error) { return []byte{9, 9, 9}, nil }

func TestSubmitCall(t *testing.T) {
	var sawContent atomic.Bool
	client := newTestClient(t, func(method string, params json.RawMessage) (any, *rpcError) {
		assert.Equal(t, "send_operations", method)

		var batch [][]map[string]any
		assert.NoError(t, json.Unmarshal(params, &batch))
		op := batch[0][0]
		assert.Equal(t, "P1pubkey", op["creator_public_key"])
		content, ok := op["serialized_content"].([]any)
		assert.True(t, ok)
		assert.True(t, len(content) > 0)
		sawContent.Store(true)

		return []string{"O1opid"}, nil
	})

	opID, err := client.SubmitCall(context.Background(), CallParams{
		Target:    "AS1router",
		Function:  "swapExactMASForTokens",
		Parameter: []byte{1, 2, 3},
		Coins:     10_000_000_000,
		Fee:       10_000_000,
		MaxGas:    500_000_000,
		Expiry:    120,
	}, stubSigner{})
	assert.NoError(t, err)
	assert.Equal(t, "O1opid", opID)
	assert.True(t, sawContent.Load())
}

func TestSubmitCallNeverResent(t *testing.T) {
	// A node that fails the first submission and would accept a second one.
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"jsonrpc":"2.0","id":1,"result":["O1opid"]}`)
	}))
	t.Cleanup(srv.Close)

	cfg := DefaultClientConfig()
	cfg.MaxRetries = 3
	cfg.RetryDelay = time.Millisecond
	cfg.HealthCheckInterval = time.Hour
	client, err := NewClient(srv.URL, nil, cfg)
	assert.NoError(t, err)
	t.Cleanup(client.Close)

	// The failure must surface instead of the operation being re-sent.
	_, err = client.SubmitCall(context.Background(), CallParams{
		Target: "AS1router", Function: "deposit",
	}, stubSigner{})
	assert.Error(t, err)
	var netErr *NetworkError
	assert.True(t, errors.As(err, &netErr))
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetOperationStatus(t *testing.T) {
	final := true
	succeeded := true
	client := newTestClient(t, func(method string, params json.RawMessage) (any, *rpcError) {
		assert.Equal(t, "get_operations", method)
		return []map[string]any{
			{"id": "O1opid", "is_operation_final": final, "op_exec_status": succeeded},
		}, nil
	})

	status, err := client.GetOperationStatus(context.Background(), "O1opid")
	assert.NoError(t, err)
	assert.True(t, status.IsFinal)
	assert.NotNil(t, status.Succeeded)
	assert.True(t, *status.Succeeded)
}

func TestGetBalance(t *testing.T) {
	client := newTestClient(t, func(method string, params json.RawMessage) (any, *rpcError) {
		assert.Equal(t, "get_addresses", method)
		return []map[string]any{
			{"address": "AU1sender", "final_balance": "12.5"},
		}, nil
	})

	bal, err := client.GetBalance(context.Background(), "AU1sender")
	assert.NoError(t, err)
	assert.Equal(t, "12500000000", bal.Dec())
}

func TestGetCurrentPeriod(t *testing.T) {
	client := newTestClient(t, func(method string, params json.RawMessage) (any, *rpcError) {
		assert.Equal(t, "get_status", method)
		return map[string]any{
			"last_slot": map[string]any{"period": 123456, "thread": 7},
		}, nil
	})

	period, err := client.GetCurrentPeriod(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, uint64(123456), period)
}

func TestFailoverToBackup(t *testing.T) {
	backend := &fakeNode{t: t, handler: func(method string, params json.RawMessage) (any, *rpcError) {
		if method == "get_status" {
			return map[string]any{"version": "TEST.1.0"}, nil
		}
		return []map[string]any{
			{"address": "AU1sender", "final_balance": "1"},
		}, nil
	}}
	backup := httptest.NewServer(backend)
	t.Cleanup(backup.Close)

	// Primary that is immediately unreachable.
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close()

	cfg := DefaultClientConfig()
	cfg.MaxRetries = 0
	cfg.RetryDelay = time.Millisecond
	cfg.HealthCheckInterval = time.Hour
	client, err := NewClient(dead.URL, []string{backup.URL}, cfg)
	assert.NoError(t, err)
	t.Cleanup(client.Close)

	bal, err := client.GetBalance(context.Background(), "AU1sender")
	assert.NoError(t, err)
	assert.Equal(t, "1000000000", bal.Dec())
	assert.Equal(t, backup.URL, client.getCurrentURL())
}

func TestContextCancellationStopsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "boom")
	}))
	t.Cleanup(srv.Close)

	cfg := DefaultClientConfig()
	cfg.MaxRetries = 5
	cfg.RetryDelay = 50 * time.Millisecond
	client, err := NewClient(srv.URL, nil, cfg)
	assert.NoError(t, err)
	t.Cleanup(client.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	_, err = client.GetBalance(ctx, "AU1sender")
	assert.Error(t, err)
	assert.True(t, calls.Load() < 5)
}

func TestSerializeCallOperationLayout(t *testing.T) {
	content, err := serializeCallOperation(CallParams{
		Target:    "AS1router",
		Function:  "deposit",
		Parameter: []byte{0xde, 0xad},
		Coins:     7,
		Fee:       1,
		MaxGas:    2,
		Expiry:    3,
	}, "AU1sender")
	assert.NoError(t, err)

	// fee u64 LE.
	assert.DeepEqual(t, []byte{1, 0, 0, 0, 0, 0, 0, 0}, content[0:8])
	// expiry u64 LE.
	assert.DeepEqual(t, []byte{3, 0, 0, 0, 0, 0, 0, 0}, content[8:16])
	// op type u32 LE.
	assert.DeepEqual(t, []byte{4, 0, 0, 0}, content[16:20])

	_, err = serializeCallOperation(CallParams{Function: "deposit"}, "AU1sender")
	assert.Error(t, err)
	_, err = serializeCallOperation(CallParams{Target: "AS1router"}, "AU1sender")
	assert.Error(t, err)
}
