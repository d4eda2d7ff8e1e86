package server

import (
	"net/http"

	"corndex/native/amm"
)

func (s *Server) getPool(w http.ResponseWriter, r *http.Request) {
	pool, err := s.venue.Pool()
	if err != nil {
		s.fail(w, r, "", err)
		return
	}
	body := map[string]any{
		"address":      s.venue.PoolAddress().String(),
		"base":         amountString(pool.Base),
		"quoted":       amountString(pool.Quoted),
		"total_shares": amountString(pool.TotalShares),
		"price":        nil,
	}
	if pool.Price != nil {
		body["price"] = pool.Price.String()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) getQuote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	side, err := amm.ParseSide(q.Get("side"))
	if err != nil {
		s.fail(w, r, "", err)
		return
	}
	amount, err := parseAmount("amount", q.Get("amount"))
	if err != nil {
		s.fail(w, r, "", err)
		return
	}
	out, err := s.venue.Quote(side, amount)
	if err != nil {
		s.fail(w, r, "", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"side": string(side), "amount_in": amount.String(), "amount_out": out.String()})
}

func (s *Server) swap(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(r)
	if err != nil {
		s.fail(w, r, "", err)
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		s.fail(w, r, req.Caller, err)
		return
	}
	side, err := amm.ParseSide(req.Side)
	if err != nil {
		s.fail(w, r, req.Caller, err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		s.fail(w, r, req.Caller, err)
		return
	}
	minOut, err := optionalAmount("min_out", req.MinOut)
	if err != nil {
		s.fail(w, r, req.Caller, err)
		return
	}
	out, receipt, err := s.venue.Swap(r.Context(), caller, side, amount, minOut)
	if err != nil {
		s.fail(w, r, req.Caller, err)
		return
	}
	writeJSON(w, http.StatusOK, receiptBody(receipt, map[string]any{"amount_out": out.String()}))
}

func (s *Server) addLiquidity(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(r)
	if err != nil {
		s.fail(w, r, "", err)
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		s.fail(w, r, req.Caller, err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		s.fail(w, r, req.Caller, err)
		return
	}
	shares, quoted, receipt, err := s.venue.AddLiquidity(r.Context(), caller, amount)
	if err != nil {
		s.fail(w, r, req.Caller, err)
		return
	}
	writeJSON(w, http.StatusOK, receiptBody(receipt, map[string]any{
		"shares":    shares.String(),
		"quoted_in": quoted.String(),
	}))
}

func (s *Server) removeLiquidity(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(r)
	if err != nil {
		s.fail(w, r, "", err)
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		s.fail(w, r, req.Caller, err)
		return
	}
	shares, err := parseAmount("shares", req.Shares)
	if err != nil {
		s.fail(w, r, req.Caller, err)
		return
	}
	base, quoted, receipt, err := s.venue.RemoveLiquidity(r.Context(), caller, shares)
	if err != nil {
		s.fail(w, r, req.Caller, err)
		return
	}
	writeJSON(w, http.StatusOK, receiptBody(receipt, map[string]any{
		"base_out":   base.String(),
		"quoted_out": quoted.String(),
	}))
}
