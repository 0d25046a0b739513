package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gridstake/gridstake/pkg/api/middleware"
	"github.com/gridstake/gridstake/pkg/log"
	"github.com/gridstake/gridstake/pkg/service"
)

type RegisterAvailabilityRequest struct {
	Token    string `json:"token"`
	Deposit  uint64 `json:"deposit"`
	Opponent string `json:"opponent,omitempty"`
	Referrer string `json:"referrer,omitempty"`
}

func HandleListAvailability(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		availability, err := svc.ListAvailablePlayers(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, availability)
	}
}

func HandleRegisterAvailability(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := middleware.Account(r)
		if !ok {
			log.Error("failed to get account from context")
			http.Error(w, "Failed to get account from context", http.StatusInternalServerError)
			return
		}

		var req RegisterAvailabilityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Failed to decode request body", http.StatusBadRequest)
			return
		}

		if err := svc.RegisterAvailability(r.Context(), account, req.Token, req.Deposit, req.Opponent, req.Referrer); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}
}

func HandleCancelAvailability(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := middleware.Account(r)
		if !ok {
			log.Error("failed to get account from context")
			http.Error(w, "Failed to get account from context", http.StatusInternalServerError)
			return
		}

		if err := svc.CancelAvailability(r.Context(), account); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
