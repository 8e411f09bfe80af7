package utils

import (
	"encoding/json"
	"net/http"
)

// Message is the {success, message} envelope used for status replies.
type Message struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteMessage writes a {success, message} body; success follows the status class.
func WriteMessage(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, Message{Success: status < http.StatusBadRequest, Message: msg})
}

// WriteError writes err's status with msg as the message.
func WriteError(w http.ResponseWriter, err error, msg string) {
	WriteMessage(w, StatusFor(err), msg)
}
