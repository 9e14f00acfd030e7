package server

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
)

var txCounter atomic.Uint32

type baseResponse struct {
	ServerTransactionID uint32 `json:"ServerTransactionID"`
	ErrorNumber         int    `json:"ErrorNumber"`
	ErrorMessage        string `json:"ErrorMessage"`
	Value               any    `json:"Value,omitempty"`
}

func handleResponse(w http.ResponseWriter, value any) {
	writeEnvelope(w, http.StatusOK, baseResponse{
		ServerTransactionID: txCounter.Add(1),
		Value:               value,
	})
}

// handleError answers with status; the same code is reported as ErrorNumber.
func handleError(w http.ResponseWriter, status int, message string) {
	writeEnvelope(w, status, baseResponse{
		ServerTransactionID: txCounter.Add(1),
		ErrorNumber:         status,
		ErrorMessage:        message,
	})
}

func writeEnvelope(w http.ResponseWriter, status int, resp baseResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
