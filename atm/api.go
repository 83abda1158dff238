package atm

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/alovak/cardflow-atm/atm/models"
	"github.com/alovak/cardflow-atm/internal/cardnum"
	"github.com/go-chi/chi/v5"
)

// API is a HTTP API for the atm service
type API struct {
	atm *Service
}

func NewAPI(atm *Service) *API {
	return &API{
		atm: atm,
	}
}

func (a *API) AppendRoutes(r chi.Router) {
	r.Route("/accounts", func(r chi.Router) {
		r.Post("/", a.createAccount)
		r.Route("/{accountID}", func(r chi.Router) {
			r.Get("/", a.getAccount)
			r.Post("/cards", a.issueCard)
		})
	})
	r.Route("/cards/{cardID}", func(r chi.Router) {
		r.Post("/block", a.blockCard)
		r.Post("/unblock", a.unblockCard)
	})
	r.Route("/terminals", func(r chi.Router) {
		r.Post("/", a.openTerminal)
		r.Route("/{terminalID}", func(r chi.Router) {
			r.Post("/session", a.insertCard)
			r.Get("/reserve", a.getReserve)
			r.Get("/balance", a.getBalance)
			r.Post("/withdrawals", a.withdraw)
		})
	})
}

func (a *API) createAccount(w http.ResponseWriter, r *http.Request) {
	create := models.CreateAccount{}
	if err := json.NewDecoder(r.Body).Decode(&create); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	account, err := a.atm.CreateAccount(create)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, account)
}

func (a *API) getAccount(w http.ResponseWriter, r *http.Request) {
	account, err := a.atm.GetAccount(chi.URLParam(r, "accountID"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, account)
}

func (a *API) issueCard(w http.ResponseWriter, r *http.Request) {
	req := models.IssueCard{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	card, err := a.atm.IssueCard(chi.URLParam(r, "accountID"), req)
	if err != nil {
		writeError(w, err)
		return
	}

	// the full PAN is returned once, alongside the masked face
	writeJSON(w, http.StatusCreated, struct {
		*models.Card
		MaskedNumber string `json:"masked_number"`
	}{card, cardnum.Mask(card.Number)})
}

func (a *API) blockCard(w http.ResponseWriter, r *http.Request) {
	if err := a.atm.BlockCard(chi.URLParam(r, "cardID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) unblockCard(w http.ResponseWriter, r *http.Request) {
	if err := a.atm.UnblockCard(chi.URLParam(r, "cardID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) openTerminal(w http.ResponseWriter, r *http.Request) {
	req := models.OpenTerminal{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	info, err := a.atm.OpenTerminal(req.Reserve)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, info)
}

// insertCard answers 200 for both outcomes; a rejected card is not an error.
func (a *API) insertCard(w http.ResponseWriter, r *http.Request) {
	req := models.InsertCard{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	accepted, err := a.atm.InsertCard(chi.URLParam(r, "terminalID"), req.PAN, req.PIN)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.SessionResult{Accepted: accepted})
}

func (a *API) getReserve(w http.ResponseWriter, r *http.Request) {
	reserve, err := a.atm.Reserve(chi.URLParam(r, "terminalID"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.Reserve{Reserve: reserve})
}

func (a *API) getBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := a.atm.Balance(chi.URLParam(r, "terminalID"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.Balance{Balance: balance})
}

func (a *API) withdraw(w http.ResponseWriter, r *http.Request) {
	req := models.Withdrawal{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	balance, err := a.atm.Withdraw(chi.URLParam(r, "terminalID"), req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.Balance{Balance: balance})
}

// StatusFor maps service errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNoSession):
		return http.StatusPreconditionFailed
	case errors.Is(err, ErrInsufficientAccountFunds),
		errors.Is(err, ErrInsufficientReserve),
		errors.Is(err, models.ErrInsufficientFunds),
		errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), StatusFor(err))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
