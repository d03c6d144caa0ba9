package responses

import (
	"encoding/json/v2"
	"log"
	"net/http"
	"strings"
)

// EncodeWriteJSON Encode & Write Payload as JSON Stream to the Response
func EncodeWriteJSON(w http.ResponseWriter, HTTPStatusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(HTTPStatusCode) // Response Header Sent & Frozen
	if err := json.MarshalWrite(w, payload); err != nil {
		log.Printf("[ERROR] failed to write JSON Stream to Response: %v", err)
	}
}

// WriteErrorJSON writes a Message with an explicit code
func WriteErrorJSON(w http.ResponseWriter, HTTPStatusCode int, code string, msg string) {
	EncodeWriteJSON(w, HTTPStatusCode, Message{Type: "error", Code: code, Message: msg})
}

// WriteSimpleErrorJSON is WriteErrorJSON with the code derived from the status,
// e.g. 429 -> "too_many_requests"
func WriteSimpleErrorJSON(w http.ResponseWriter, HTTPStatusCode int, msg string) {
	WriteErrorJSON(w, HTTPStatusCode, StatusCode(HTTPStatusCode), msg)
}

// StatusCode is the snake_case form of http.StatusText
func StatusCode(HTTPStatusCode int) string {
	text := http.StatusText(HTTPStatusCode)
	if text == "" {
		return "error"
	}
	text = strings.ToLower(strings.NewReplacer("-", " ", "'", "").Replace(text))
	return strings.Join(strings.Fields(text), "_")
}
