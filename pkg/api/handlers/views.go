package handlers

import (
	"net/http"

	"github.com/gridstake/gridstake/pkg/service"
)

func HandleGetStats(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account := r.PathValue("account")
		if account == "" {
			http.Error(w, "Missing account", http.StatusBadRequest)
			return
		}

		stats, err := svc.GetStats(r.Context(), account)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, stats)
	}
}

func HandleListPenalties(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accounts, err := svc.ListPenalizedAccounts(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, accounts)
	}
}

func HandleListTokens(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokens, err := svc.ListTokens(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, tokens)
	}
}

func HandleListArchive(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		archive, err := svc.ListArchivedGames(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, archive)
	}
}

func HandleGetParams(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.Params())
	}
}

func HandleGetTotals(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		totals, err := svc.GetTotals(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, totals)
	}
}
