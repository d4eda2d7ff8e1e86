package server

import (
	"net/http"

	"corndex/core"
	"corndex/crypto"
)

func (s *Server) getLeverager(w http.ResponseWriter, r *http.Request) {
	owner, claimed, err := s.venue.LeverageOwner()
	if err != nil {
		s.fail(w, r, "", err)
		return
	}
	body := map[string]any{"address": s.venue.LeveragerAddress().String(), "claimed": claimed}
	if claimed {
		body["owner"] = owner.String()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) claimLeverager(w http.ResponseWriter, r *http.Request) {
	s.amountCall(w, r, func(caller crypto.Address, _ request) (core.Receipt, error) {
		return s.venue.ClaimLeverager(r.Context(), caller)
	})
}

func (s *Server) fundLeverager(w http.ResponseWriter, r *http.Request) {
	s.amountCall(w, r, func(caller crypto.Address, req request) (core.Receipt, error) {
		amount, err := parseAmount("amount", req.Amount)
		if err != nil {
			return core.Receipt{}, err
		}
		return s.venue.FundLeverager(r.Context(), caller, amount)
	})
}

func (s *Server) openLeverage(w http.ResponseWriter, r *http.Request) {
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
	reserve, err := optionalAmount("reserve", req.Reserve)
	if err != nil {
		s.fail(w, r, req.Caller, err)
		return
	}
	loops, receipt, err := s.venue.OpenLeverage(r.Context(), caller, reserve)
	if err != nil {
		s.fail(w, r, req.Caller, err)
		return
	}
	writeJSON(w, http.StatusOK, receiptBody(receipt, map[string]any{"loops": loops}))
}

func (s *Server) closeLeverage(w http.ResponseWriter, r *http.Request) {
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
	loops, receipt, err := s.venue.CloseLeverage(r.Context(), caller)
	if err != nil {
		s.fail(w, r, req.Caller, err)
		return
	}
	writeJSON(w, http.StatusOK, receiptBody(receipt, map[string]any{"loops": loops}))
}

func (s *Server) withdrawLeverager(w http.ResponseWriter, r *http.Request) {
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
	native, corn, receipt, err := s.venue.WithdrawLeverager(r.Context(), caller)
	if err != nil {
		s.fail(w, r, req.Caller, err)
		return
	}
	writeJSON(w, http.StatusOK, receiptBody(receipt, map[string]any{
		"native": native.String(),
		"corn":   corn.String(),
	}))
}
