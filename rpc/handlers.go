package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/osprey-wallet/massa-swap/abi"
	"github.com/osprey-wallet/massa-swap/executor"
	"github.com/osprey-wallet/massa-swap/massa"
	"github.com/osprey-wallet/massa-swap/router"
	"github.com/osprey-wallet/massa-swap/tokens"
)

// defaultSlippage is applied when a swap request does not state one.
var defaultSlippage = decimal.RequireFromString("0.005")

// Quoter resolves quotes; implemented by router.Resolver.
type Quoter interface {
	Resolve(ctx context.Context, fromSymbol, toSymbol string, amountIn *uint256.Int) (*router.Quote, error)
}

// Swapper executes resolved quotes; implemented by executor.Executor.
type Swapper interface {
	Execute(ctx context.Context, intent executor.Intent, quote *router.Quote, signer massa.Signer) (*executor.Result, error)
}

// NodeReader is the read-only node access the handlers need.
type NodeReader interface {
	GetOperationStatus(ctx context.Context, opID string) (massa.OperationStatus, error)
	GetBalance(ctx context.Context, address string) (*uint256.Int, error)
}

// SwapHandler serves the wallet's swap JSON API. It caches the most recently
// resolved quote so an execution request can reuse it; the cache is scoped to
// one intent and replaced whenever the pair or amount changes.
type SwapHandler struct {
	quoter   Quoter
	swapper  Swapper
	node     NodeReader
	registry *tokens.Registry
	signer   massa.Signer

	mu     sync.Mutex
	cached *router.Quote
}

// NewSwapHandler wires the handler over its collaborators.
func NewSwapHandler(quoter Quoter, swapper Swapper, node NodeReader, registry *tokens.Registry, signer massa.Signer) *SwapHandler {
	return &SwapHandler{
		quoter:   quoter,
		swapper:  swapper,
		node:     node,
		registry: registry,
		signer:   signer,
	}
}

// Routes mounts the v1 API.
func (h *SwapHandler) Routes(mux *chi.Mux) {
	mux.Route("/v1", func(r chi.Router) {
		r.Use(noCacheMiddleware)
		r.Get("/tokens", h.handleTokens)
		r.Get("/balance/{address}", h.handleBalance)
		r.Post("/quote", h.handleQuote)
		r.Post("/swap", h.handleSwap)
		r.Get("/operation/{id}", h.handleOperation)
	})
}

type quoteRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	// Amount is in human units of the source token.
	Amount string `json:"amount"`
}

type quoteResponse struct {
	From           string   `json:"from"`
	To             string   `json:"to"`
	AmountIn       string   `json:"amount_in"`
	AmountOut      string   `json:"amount_out"`
	Rate           string   `json:"rate"`
	PriceImpactPct string   `json:"price_impact_pct"`
	Route          []string `json:"route"`
	BinSteps       []uint64 `json:"bin_steps,omitempty"`
	Wrap           bool     `json:"wrap,omitempty"`
}

func (h *SwapHandler) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	from, to, amountIn, ok := h.parsePair(w, req.From, req.To, req.Amount)
	if !ok {
		return
	}

	quote, err := h.quoter.Resolve(r.Context(), req.From, req.To, amountIn)
	if err != nil {
		quotesFailed.Inc()
		writeTypedError(w, err)
		return
	}
	quotesResolved.Inc()

	h.mu.Lock()
	h.cached = quote
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, quoteResponse{
		From:           quote.FromSymbol,
		To:             quote.ToSymbol,
		AmountIn:       tokens.FormatAmount(quote.AmountIn, from.Decimals),
		AmountOut:      tokens.FormatAmount(quote.AmountOut, to.Decimals),
		Rate:           quote.Rate.String(),
		PriceImpactPct: quote.PriceImpact.String(),
		Route:          quote.Route,
		BinSteps:       quote.BinSteps,
		Wrap:           quote.Wrap,
	})
}

type swapRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
	// Slippage is a fraction, e.g. "0.005". Defaults to 0.5%.
	Slippage string `json:"slippage,omitempty"`
	// Recipient defaults to the signer's address.
	Recipient string `json:"recipient,omitempty"`
	// DeadlineMs is a unix millisecond timestamp.
	DeadlineMs uint64 `json:"deadline_ms,omitempty"`
}

type swapResponse struct {
	Kind                string `json:"kind"`
	OperationID         string `json:"operation_id"`
	ApprovalOperationID string `json:"approval_operation_id,omitempty"`
	MinAmountOut        string `json:"min_amount_out,omitempty"`
	Optimistic          bool   `json:"optimistic,omitempty"`
}

func (h *SwapHandler) handleSwap(w http.ResponseWriter, r *http.Request) {
	var req swapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	_, to, amountIn, ok := h.parsePair(w, req.From, req.To, req.Amount)
	if !ok {
		return
	}

	slippage := defaultSlippage
	if req.Slippage != "" {
		var err error
		slippage, err = decimal.NewFromString(req.Slippage)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid slippage")
			return
		}
	}
	if req.Recipient != "" {
		if err := tokens.ValidateAddress(req.Recipient); err != nil {
			writeError(w, http.StatusBadRequest, "invalid recipient address")
			return
		}
	}

	// Reuse the cached quote when it still matches this intent; otherwise
	// resolve a fresh one.
	h.mu.Lock()
	quote := h.cached
	h.mu.Unlock()
	if quote == nil || !quote.Matches(req.From, req.To, amountIn) {
		var err error
		quote, err = h.quoter.Resolve(r.Context(), req.From, req.To, amountIn)
		if err != nil {
			swapsFailed.Inc()
			writeTypedError(w, err)
			return
		}
	}

	intent := executor.Intent{
		FromSymbol: req.From,
		ToSymbol:   req.To,
		AmountIn:   amountIn,
		Slippage:   slippage,
		Recipient:  req.Recipient,
	}
	if req.DeadlineMs > 0 {
		intent.Deadline = time.UnixMilli(int64(req.DeadlineMs))
	}

	result, err := h.swapper.Execute(r.Context(), intent, quote, h.signer)
	if err != nil {
		swapsFailed.Inc()
		writeTypedError(w, err)
		return
	}
	swapsSubmitted.Inc()

	// The quote is consumed by execution.
	h.mu.Lock()
	h.cached = nil
	h.mu.Unlock()

	resp := swapResponse{
		Kind:                string(result.Kind),
		OperationID:         result.OperationID,
		ApprovalOperationID: result.ApprovalOperationID,
		Optimistic:          result.Optimistic,
	}
	if result.MinAmountOut != nil {
		resp.MinAmountOut = tokens.FormatAmount(result.MinAmountOut, to.Decimals)
	}
	writeJSON(w, http.StatusOK, resp)
}

type operationResponse struct {
	ID        string `json:"id"`
	IsFinal   bool   `json:"is_final"`
	Succeeded *bool  `json:"succeeded"`
	Error     string `json:"error,omitempty"`
}

func (h *SwapHandler) handleOperation(w http.ResponseWriter, r *http.Request) {
	opID := chi.URLParam(r, "id")
	status, err := h.node.GetOperationStatus(r.Context(), opID)
	if err != nil {
		writeTypedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, operationResponse{
		ID:        status.ID,
		IsFinal:   status.IsFinal,
		Succeeded: status.Succeeded,
		Error:     status.Error,
	})
}

type tokenResponse struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Address  string `json:"address,omitempty"`
	Decimals uint32 `json:"decimals"`
	Kind     string `json:"kind"`
}

func (h *SwapHandler) handleTokens(w http.ResponseWriter, r *http.Request) {
	all := h.registry.All()
	out := make([]tokenResponse, 0, len(all))
	for _, t := range all {
		out = append(out, tokenResponse{
			Symbol:   t.Symbol,
			Name:     t.Name,
			Address:  t.Address,
			Decimals: t.Decimals,
			Kind:     string(t.Kind),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type balanceResponse struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
	Symbol  string `json:"symbol"`
}

func (h *SwapHandler) handleBalance(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if err := tokens.ValidateAddress(address); err != nil {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	balance, err := h.node.GetBalance(r.Context(), address)
	if err != nil {
		writeTypedError(w, err)
		return
	}
	native := h.registry.Native()
	writeJSON(w, http.StatusOK, balanceResponse{
		Address: address,
		Balance: tokens.FormatAmount(balance, native.Decimals),
		Symbol:  native.Symbol,
	})
}

// parsePair resolves both symbols and the human amount, writing the error
// response itself on failure.
func (h *SwapHandler) parsePair(w http.ResponseWriter, fromSymbol, toSymbol, amount string) (tokens.Token, tokens.Token, *uint256.Int, bool) {
	from, err := h.registry.Resolve(fromSymbol)
	if err != nil {
		writeTypedError(w, err)
		return tokens.Token{}, tokens.Token{}, nil, false
	}
	to, err := h.registry.Resolve(toSymbol)
	if err != nil {
		writeTypedError(w, err)
		return tokens.Token{}, tokens.Token{}, nil, false
	}
	amountIn, err := tokens.ParseAmount(amount, from.Decimals)
	if err != nil || amountIn.IsZero() {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return tokens.Token{}, tokens.Token{}, nil, false
	}
	return from, to, amountIn, true
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeTypedError maps domain errors to HTTP statuses with short messages.
// Internal diagnostics such as codec offsets are never sent to clients.
func writeTypedError(w http.ResponseWriter, err error) {
	var (
		unknownToken *tokens.UnknownTokenError
		noRoute      *router.NoRouteError
		insufficient *executor.InsufficientBalanceError
		stale        *executor.StaleQuoteError
		approval     *executor.ApprovalFailedError
		swapFailed   *executor.SwapExecutionFailedError
		timeout      *executor.ConfirmationTimeoutError
		codec        *abi.CodecError
		network      *massa.NetworkError
	)
	switch {
	case errors.As(err, &unknownToken):
		writeError(w, http.StatusBadRequest, unknownToken.Error())
	case errors.As(err, &noRoute):
		writeError(w, http.StatusNotFound, noRoute.Error())
	case errors.As(err, &insufficient):
		writeError(w, http.StatusBadRequest, insufficient.Error())
	case errors.As(err, &stale):
		writeError(w, http.StatusConflict, stale.Error())
	case errors.As(err, &approval):
		writeError(w, http.StatusBadGateway, approval.Error())
	case errors.As(err, &swapFailed):
		writeError(w, http.StatusBadGateway, swapFailed.Error())
	case errors.As(err, &timeout):
		writeError(w, http.StatusGatewayTimeout, timeout.Error())
	case errors.As(err, &codec):
		Logger.Error().Err(err).Msg("Codec failure")
		writeError(w, http.StatusBadGateway, "malformed response from chain")
	case errors.As(err, &network):
		Logger.Error().Err(err).Msg("Node failure")
		writeError(w, http.StatusBadGateway, "node request failed")
	default:
		Logger.Error().Err(err).Msg("Unhandled error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
