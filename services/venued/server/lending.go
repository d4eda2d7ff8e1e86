package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"corndex/core"
	"corndex/crypto"
	"corndex/native/lending"
)

type positionBody struct {
	Account         string `json:"account"`
	Collateral      string `json:"collateral"`
	Debt            string `json:"debt"`
	Ratio           string `json:"ratio,omitempty"`
	Liquidatable    bool   `json:"liquidatable"`
	MaxWithdrawable string `json:"max_withdrawable,omitempty"`
}

func renderPosition(p *lending.Position) positionBody {
	return positionBody{Account: p.Account.String(), Collateral: amountString(p.Collateral), Debt: amountString(p.Debt)}
}

func (s *Server) getPosition(w http.ResponseWriter, r *http.Request) {
	account, err := parseAddress("address", chi.URLParam(r, "address"))
	if err != nil {
		s.fail(w, r, "", err)
		return
	}
	view, err := s.venue.Position(account)
	if err != nil {
		s.fail(w, r, "", err)
		return
	}
	body := renderPosition(view.Position)
	body.Account = account.String()
	body.Liquidatable = view.Liquidatable
	body.MaxWithdrawable = amountString(view.MaxWithdrawable)
	if view.Position.Debt.Sign() > 0 {
		body.Ratio = view.Ratio.String()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) listPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := s.venue.Positions()
	if err != nil {
		s.fail(w, r, "", err)
		return
	}
	out := make([]positionBody, 0, len(positions))
	for _, p := range positions {
		out = append(out, renderPosition(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"positions": out})
}

// amountCall decodes caller and amount and runs a venue unit with them.
func (s *Server) amountCall(w http.ResponseWriter, r *http.Request, run func(caller crypto.Address, req request) (core.Receipt, error)) {
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
	receipt, err := run(caller, req)
	if err != nil {
		s.fail(w, r, req.Caller, err)
		return
	}
	writeJSON(w, http.StatusOK, receiptBody(receipt, nil))
}

func (s *Server) addCollateral(w http.ResponseWriter, r *http.Request) {
	s.amountCall(w, r, func(caller crypto.Address, req request) (core.Receipt, error) {
		amount, err := parseAmount("amount", req.Amount)
		if err != nil {
			return core.Receipt{}, err
		}
		return s.venue.AddCollateral(r.Context(), caller, amount)
	})
}

func (s *Server) withdrawCollateral(w http.ResponseWriter, r *http.Request) {
	s.amountCall(w, r, func(caller crypto.Address, req request) (core.Receipt, error) {
		amount, err := parseAmount("amount", req.Amount)
		if err != nil {
			return core.Receipt{}, err
		}
		return s.venue.WithdrawCollateral(r.Context(), caller, amount)
	})
}

func (s *Server) borrow(w http.ResponseWriter, r *http.Request) {
	s.amountCall(w, r, func(caller crypto.Address, req request) (core.Receipt, error) {
		amount, err := parseAmount("amount", req.Amount)
		if err != nil {
			return core.Receipt{}, err
		}
		return s.venue.Borrow(r.Context(), caller, amount)
	})
}

func (s *Server) repay(w http.ResponseWriter, r *http.Request) {
	s.amountCall(w, r, func(caller crypto.Address, req request) (core.Receipt, error) {
		amount, err := parseAmount("amount", req.Amount)
		if err != nil {
			return core.Receipt{}, err
		}
		return s.venue.Repay(r.Context(), caller, amount)
	})
}

func (s *Server) liquidate(w http.ResponseWriter, r *http.Request) {
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
	account, err := parseAddress("account", req.Account)
	if err != nil {
		s.fail(w, r, req.Caller, err)
		return
	}
	repaid, payout, receipt, err := s.venue.Liquidate(r.Context(), caller, account)
	if err != nil {
		s.fail(w, r, req.Caller, err)
		return
	}
	writeJSON(w, http.StatusOK, receiptBody(receipt, map[string]any{
		"repaid": repaid.String(),
		"payout": payout.String(),
	}))
}

func (s *Server) executeLiquidation(w http.ResponseWriter, r *http.Request) {
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
	target, err := parseAddress("account", req.Account)
	if err != nil {
		s.fail(w, r, req.Caller, err)
		return
	}
	profit, receipt, err := s.venue.ExecuteLiquidation(r.Context(), caller, target)
	if err != nil {
		s.fail(w, r, req.Caller, err)
		return
	}
	writeJSON(w, http.StatusOK, receiptBody(receipt, map[string]any{"profit": amountString(profit)}))
}
