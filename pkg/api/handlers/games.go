package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gridstake/gridstake/pkg/api/middleware"
	"github.com/gridstake/gridstake/pkg/log"
	"github.com/gridstake/gridstake/pkg/service"
)

type StartGameRequest struct {
	Opponent string `json:"opponent"`
}

type StartGameResponse struct {
	GameID uint64 `json:"game_id"`
}

type SubmitMoveRequest struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func HandleListGames(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		games, err := svc.ListActiveGames(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, games)
	}
}

func HandleStartGame(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := middleware.Account(r)
		if !ok {
			log.Error("failed to get account from context")
			http.Error(w, "Failed to get account from context", http.StatusInternalServerError)
			return
		}

		var req StartGameRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Failed to decode request body", http.StatusBadRequest)
			return
		}

		gameID, err := svc.StartGame(r.Context(), account, req.Opponent)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, &StartGameResponse{GameID: gameID})
	}
}

func HandleGetGame(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID, err := parseGameID(r)
		if err != nil {
			http.Error(w, "Failed to parse gameID", http.StatusBadRequest)
			return
		}

		g, err := svc.GetGame(r.Context(), gameID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, g)
	}
}

func HandleSubmitMove(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := middleware.Account(r)
		if !ok {
			log.Error("failed to get account from context")
			http.Error(w, "Failed to get account from context", http.StatusInternalServerError)
			return
		}

		gameID, err := parseGameID(r)
		if err != nil {
			http.Error(w, "Failed to parse gameID", http.StatusBadRequest)
			return
		}

		var req SubmitMoveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Failed to decode request body", http.StatusBadRequest)
			return
		}

		g, err := svc.SubmitMove(r.Context(), account, gameID, req.Row, req.Col)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, g)
	}
}

func HandleResign(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := middleware.Account(r)
		if !ok {
			log.Error("failed to get account from context")
			http.Error(w, "Failed to get account from context", http.StatusInternalServerError)
			return
		}

		gameID, err := parseGameID(r)
		if err != nil {
			http.Error(w, "Failed to parse gameID", http.StatusBadRequest)
			return
		}

		if err := svc.Resign(r.Context(), account, gameID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func HandleForceStop(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := middleware.Account(r)
		if !ok {
			log.Error("failed to get account from context")
			http.Error(w, "Failed to get account from context", http.StatusInternalServerError)
			return
		}

		gameID, err := parseGameID(r)
		if err != nil {
			http.Error(w, "Failed to parse gameID", http.StatusBadRequest)
			return
		}

		if err := svc.ForceStop(r.Context(), account, gameID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func parseGameID(r *http.Request) (uint64, error) {
	return strconv.ParseUint(r.PathValue("gameID"), 10, 64)
}
