package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/carecover/carecover/internal/models"
)

// fallbackErrorResponse is pre-marshaled at startup so that a marshal
// failure at request time can still produce a valid JSON body.
var fallbackErrorResponse []byte

func init() {
	var err error
	fallbackErrorResponse, err = json.Marshal(models.Error("Internal server error"))
	if err != nil {
		panic("failed to marshal fallback error response: " + err.Error())
	}
}

// writeJSONResponse writes the response as JSON with the given status code.
func writeJSONResponse(w http.ResponseWriter, statusCode int, response models.APIResponse) {
	body, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal API response", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write(fallbackErrorResponse)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(body)
}
