package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wonny/gedash/internal/validation"
	"github.com/wonny/gedash/pkg/logger"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondLoadError maps a failed load of the validation relation to a status
func respondLoadError(w http.ResponseWriter, log *logger.Logger, err error) {
	var connErr *validation.ConnectionError
	var formatErr *validation.DataFormatError

	switch {
	case errors.As(err, &connErr):
		log.WithError(err).Error("Validation store unavailable")
		respondError(w, http.StatusServiceUnavailable, "Validation store unavailable")
	case errors.As(err, &formatErr):
		log.WithError(err).Error("Validation data is malformed")
		respondError(w, http.StatusInternalServerError, "Validation data is malformed: "+formatErr.Error())
	default:
		log.WithError(err).Error("Failed to load validations")
		respondError(w, http.StatusInternalServerError, "Failed to load validations")
	}
}
