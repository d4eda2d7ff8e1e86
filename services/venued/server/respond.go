package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strings"

	"github.com/holiman/uint256"

	"corndex/core"
	coreerrors "corndex/core/errors"
	"corndex/crypto"
	"corndex/observability/logging"
)

var errBadRequest = errors.New("bad request")

// request is the shared POST body. Each handler reads the fields it needs.
type request struct {
	Caller  string `json:"caller"`
	Account string `json:"account,omitempty"`
	Spender string `json:"spender,omitempty"`
	To      string `json:"to,omitempty"`
	Side    string `json:"side,omitempty"`
	Amount  string `json:"amount,omitempty"`
	MinOut  string `json:"min_out,omitempty"`
	Shares  string `json:"shares,omitempty"`
	Reserve string `json:"reserve,omitempty"`
}

func decodeRequest(r *http.Request) (request, error) {
	var req request
	body, err := io.ReadAll(io.LimitReader(r.Body, requestLimit+1))
	if err != nil {
		return req, fmt.Errorf("%w: read body: %v", errBadRequest, err)
	}
	if len(body) > requestLimit {
		return req, fmt.Errorf("%w: request body too large", errBadRequest)
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("%w: invalid payload: %v", errBadRequest, err)
	}
	return req, nil
}

func parseAddress(field, raw string) (crypto.Address, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return crypto.Address{}, fmt.Errorf("%w: %s required", errBadRequest, field)
	}
	addr, err := crypto.DecodeAddress(raw)
	if err != nil {
		return crypto.Address{}, fmt.Errorf("%w: %s: %v", errBadRequest, field, err)
	}
	if addr.Prefix() != crypto.AccountPrefix {
		return crypto.Address{}, fmt.Errorf("%w: %s must use the %s prefix", errBadRequest, field, crypto.AccountPrefix)
	}
	return addr, nil
}

// parseAmount decodes an unsigned base-unit decimal that fits in 256 bits.
func parseAmount(field, raw string) (*big.Int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: %s required", errBadRequest, field)
	}
	v, err := uint256.FromDecimal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errBadRequest, field, err)
	}
	return v.ToBig(), nil
}

func optionalAmount(field, raw string) (*big.Int, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	return parseAmount(field, raw)
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func receiptBody(receipt core.Receipt, fields map[string]any) map[string]any {
	body := map[string]any{"receipt": receipt.ID, "events": receipt.Events}
	for k, v := range fields {
		body[k] = v
	}
	return body
}

// statusFor maps a failure kind to the HTTP status returned to clients.
func statusFor(err error) (int, string) {
	if errors.Is(err, errBadRequest) {
		return http.StatusBadRequest, "bad_request"
	}
	kind := coreerrors.Kind(err)
	switch kind {
	case "invalid_amount":
		return http.StatusBadRequest, kind
	case "insufficient_balance", "insufficient_allowance", "transfer_failed":
		return http.StatusPaymentRequired, kind
	case "unauthorized":
		return http.StatusForbidden, kind
	case "pool_initialized", "module_paused", "loop_limit_exceeded":
		return http.StatusConflict, kind
	case "unsafe_position_ratio", "not_liquidatable", "flash_credit_failed",
		"insufficient_liquidity", "pool_not_initialized", "slippage_exceeded":
		return http.StatusUnprocessableEntity, kind
	default:
		return http.StatusInternalServerError, kind
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, caller string, err error) {
	status, kind := statusFor(err)
	level := slog.LevelInfo
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(r.Context(), level, "venued request failed",
		slog.String("path", r.URL.Path),
		logging.MaskAccount("caller", caller),
		slog.Int("status", status),
		slog.String("kind", kind),
		slog.Any("error", err))
	message := err.Error()
	if status >= http.StatusInternalServerError {
		message = http.StatusText(status)
	}
	writeJSON(w, status, map[string]string{"error": message, "kind": kind})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
