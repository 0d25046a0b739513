package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gridstake/gridstake/pkg/board"
	"github.com/gridstake/gridstake/pkg/game"
	"github.com/gridstake/gridstake/pkg/log"
	"github.com/gridstake/gridstake/pkg/repositories"
	"github.com/gridstake/gridstake/pkg/service"
)

// statusFromError maps the service error taxonomy onto HTTP status codes.
func statusFromError(err error) int {
	switch {
	case service.IsValidation(err),
		service.IsArithmetic(err),
		board.IsInvalidPosition(err),
		board.IsCellOccupied(err):
		return http.StatusBadRequest
	case service.IsState(err),
		game.IsAlreadyFinished(err):
		return http.StatusConflict
	case service.IsAuthorization(err),
		game.IsNotCurrentMover(err),
		game.IsNotParticipant(err):
		return http.StatusForbidden
	case repositories.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFromError(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed: %v", err)
		http.Error(w, "Internal server error", status)
		return
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to encode response: %v", err)
	}
}
