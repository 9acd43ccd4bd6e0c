package controllers

import (
	"encoding/json"
	"net/http"
)

// errorResponse is the JSON envelope for handler-level failures (bad input,
// unknown routes). Pipeline failures travel inside the InsightResult instead.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message, kind string) {
	respondJSON(w, status, errorResponse{Error: message, Kind: kind})
}
