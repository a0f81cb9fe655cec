package rpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"lendledger/core"
	"lendledger/core/types"
	"lendledger/observability/metrics"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20

	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
)

// Server exposes the ledger over JSON-RPC with a websocket event stream.
type Server struct {
	node      *core.Node
	logger    *slog.Logger
	jwtSecret []byte
	tracer    trace.Tracer

	limMu    sync.Mutex
	limiters map[string]*rate.Limiter
	perMin   int
}

// Config carries the server's listener-independent settings.
type Config struct {
	JWTSecret          string
	RateLimitPerMinute int
}

// NewServer constructs an RPC server around a node.
func NewServer(node *core.Node, logger *slog.Logger, cfg Config) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		node:      node,
		logger:    logger,
		jwtSecret: []byte(cfg.JWTSecret),
		tracer:    otel.Tracer("lendledger/rpc"),
		limiters:  make(map[string]*rate.Limiter),
		perMin:    cfg.RateLimitPerMinute,
	}
}

// Router assembles the HTTP surface: JSON-RPC at /, health and metrics
// endpoints, and the websocket event stream.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","height":%d}`, s.node.Height())
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/ws/events", s.handleWebsocket)
	r.Post("/", s.handleRPC)
	return otelhttp.NewHandler(r, "rpc")
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if limErr := s.checkRateLimit(r); limErr != nil {
		writeError(w, http.StatusTooManyRequests, nil, limErr.Code, limErr.Message, limErr.Data)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		status := http.StatusBadRequest
		message := "unable to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	handler, ok := s.routes()[req.Method]
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method not found", req.Method)
		return
	}
	if handler.authenticated {
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
	}

	_, span := s.tracer.Start(r.Context(), req.Method,
		trace.WithAttributes(attribute.String("rpc.method", req.Method)))
	defer span.End()
	handler.fn(w, req)
}

type route struct {
	authenticated bool
	fn            func(http.ResponseWriter, *RPCRequest)
}

func (s *Server) routes() map[string]route {
	mutating := func(fn func(http.ResponseWriter, *RPCRequest)) route {
		return route{authenticated: true, fn: fn}
	}
	readonly := func(fn func(http.ResponseWriter, *RPCRequest)) route {
		return route{fn: fn}
	}
	return map[string]route{
		"lending_createLoan":                   mutating(s.handleCreateLoan),
		"lending_fundLoan":                     mutating(s.handleFundLoan),
		"lending_repayLoan":                    mutating(s.handleRepayLoan),
		"lending_earlyRepayLoan":               mutating(s.handleEarlyRepayLoan),
		"lending_partialRepayLoan":             mutating(s.handlePartialRepayLoan),
		"lending_extendLoan":                   mutating(s.handleExtendLoan),
		"lending_applyLateFees":                mutating(s.handleApplyLateFees),
		"lending_markDefault":                  mutating(s.handleMarkDefault),
		"lending_liquidate":                    mutating(s.handleLiquidate),
		"lending_adjustInterestRate":           mutating(s.handleAdjustInterestRate),
		"lending_updateRiskMultiplier":         mutating(s.handleUpdateRiskMultiplier),
		"lending_convertToVariableRate":        mutating(s.handleConvertToVariableRate),
		"lending_convertToCompoundInterest":    mutating(s.handleConvertToCompoundInterest),
		"lending_compoundInterest":             mutating(s.handleCompoundInterest),
		"lending_setInterestOnlyPeriods":       mutating(s.handleSetInterestOnlyPeriods),
		"lending_makeInterestOnlyPayment":      mutating(s.handleMakeInterestOnlyPayment),
		"lending_switchToPrincipalAndInterest": mutating(s.handleSwitchToPrincipalAndInterest),
		"lending_grantGracePeriod":             mutating(s.handleGrantGracePeriod),
		"lending_setCustomGracePeriod":         mutating(s.handleSetCustomGracePeriod),
		"lending_refinanceLoan":                mutating(s.handleRefinanceLoan),
		"lending_getLoan":                      readonly(s.handleGetLoan),
		"lending_getAccruedInterest":           readonly(s.handleGetAccruedInterest),
		"lending_getTotalOwed":                 readonly(s.handleGetTotalOwed),
		"lending_getEarlyRepaymentDiscount":    readonly(s.handleGetEarlyRepaymentDiscount),
		"lending_previewLateFees":              readonly(s.handlePreviewLateFees),
		"lending_getExtensionInfo":             readonly(s.handleGetExtensionInfo),
		"lending_getGraceInfo":                 readonly(s.handleGetGraceInfo),
		"lending_getRefinanceInfo":             readonly(s.handleGetRefinanceInfo),
		"lending_getProfile":                   readonly(s.handleGetProfile),
		"lending_getProtocolFees":              readonly(s.handleGetProtocolFees),

		"liquidity_createPool":                mutating(s.handleCreatePool),
		"liquidity_provide":                   mutating(s.handleProvideLiquidity),
		"liquidity_withdraw":                  mutating(s.handleWithdrawLiquidity),
		"liquidity_claimRewards":              mutating(s.handleClaimPoolRewards),
		"liquidity_rebalancePool":             mutating(s.handleRebalancePool),
		"liquidity_setAutoRebalancing":        mutating(s.handleSetAutoRebalancing),
		"liquidity_setRebalancingParameters":  mutating(s.handleSetRebalancingParameters),
		"liquidity_enableYieldFarming":        mutating(s.handleEnableYieldFarming),
		"liquidity_stake":                     mutating(s.handleStakeTokens),
		"liquidity_unstake":                   mutating(s.handleUnstakeTokens),
		"liquidity_claimYield":                mutating(s.handleClaimYieldRewards),
		"liquidity_needsRebalancing":          readonly(s.handleNeedsRebalancing),
		"liquidity_getRebalancingInfo":        readonly(s.handleGetRebalancingInfo),
		"liquidity_getPool":                   readonly(s.handleGetPool),
		"liquidity_getProvider":               readonly(s.handleGetProvider),
		"liquidity_pendingRewards":            readonly(s.handlePendingRewards),
		"liquidity_getStake":                  readonly(s.handleGetStake),
		"liquidity_getStakingTiers":           readonly(s.handleGetStakingTiers),
	}
}

// --- auth ---

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if len(s.jwtSecret) == 0 {
		return &RPCError{Code: codeUnauthorized, Message: "mutations disabled: no auth secret configured"}
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing Authorization header"}
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return &RPCError{Code: codeUnauthorized, Message: "Authorization header must use Bearer scheme"}
	}
	parsed, err := jwt.Parse(strings.TrimSpace(token), func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil || !parsed.Valid {
		return &RPCError{Code: codeUnauthorized, Message: "invalid bearer token"}
	}
	return nil
}

// --- rate limiting ---

func (s *Server) checkRateLimit(r *http.Request) *RPCError {
	if s.perMin <= 0 {
		return nil
	}
	source, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		source = r.RemoteAddr
	}
	s.limMu.Lock()
	limiter, ok := s.limiters[source]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(float64(s.perMin)/60.0), s.perMin)
		s.limiters[source] = limiter
	}
	s.limMu.Unlock()
	if !limiter.Allow() {
		return &RPCError{Code: codeServerError, Message: "rate limit exceeded", Data: time.Minute.String()}
	}
	return nil
}

// --- params helpers ---

func parseParams(req *RPCRequest, out any) *RPCError {
	if len(req.Params) != 1 {
		return &RPCError{Code: codeInvalidParams, Message: "expected a single params object"}
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		return &RPCError{Code: codeInvalidParams, Message: "malformed params", Data: err.Error()}
	}
	return nil
}

func parseAmount(raw string) (*big.Int, *RPCError) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, &RPCError{Code: codeInvalidParams, Message: "amount required"}
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || value.Sign() < 0 {
		return nil, &RPCError{Code: codeInvalidParams, Message: "amount must be a non-negative decimal string", Data: raw}
	}
	return value, nil
}

func parseAccount(raw string) (types.AccountID, *RPCError) {
	account, err := types.DecodeAccountID(strings.TrimSpace(raw))
	if err != nil {
		return types.AccountID{}, &RPCError{Code: codeInvalidParams, Message: "invalid account", Data: err.Error()}
	}
	return account, nil
}
