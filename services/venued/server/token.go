package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"corndex/core"
	"corndex/crypto"
)

func (s *Server) approve(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	s.amountCall(w, r, func(caller crypto.Address, req request) (core.Receipt, error) {
		spender, err := parseAddress("spender", req.Spender)
		if err != nil {
			return core.Receipt{}, err
		}
		amount, err := parseAmount("amount", req.Amount)
		if err != nil {
			return core.Receipt{}, err
		}
		return s.venue.Approve(r.Context(), symbol, caller, spender, amount)
	})
}

func (s *Server) transfer(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	s.amountCall(w, r, func(caller crypto.Address, req request) (core.Receipt, error) {
		to, err := parseAddress("to", req.To)
		if err != nil {
			return core.Receipt{}, err
		}
		amount, err := parseAmount("amount", req.Amount)
		if err != nil {
			return core.Receipt{}, err
		}
		return s.venue.Transfer(r.Context(), symbol, caller, to, amount)
	})
}

func (s *Server) getBalance(w http.ResponseWriter, r *http.Request) {
	account, err := parseAddress("address", chi.URLParam(r, "address"))
	if err != nil {
		s.fail(w, r, "", err)
		return
	}
	symbol := chi.URLParam(r, "symbol")
	balance, err := s.venue.Balance(symbol, account)
	if err != nil {
		s.fail(w, r, "", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"address": account.String(),
		"asset":   symbol,
		"balance": balance.String(),
	})
}
