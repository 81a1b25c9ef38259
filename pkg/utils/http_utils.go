package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/danielmoisemontezima/zw-storefront-service/internal/apperr"
)

const maxJSONBody = 1 << 20

type ErrorResponse struct {
	Success *bool  `json:"success,omitempty"`
	Error   string `json:"error"`
	Detail  string `json:"detail,omitempty"`
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorResponse{Error: message})
}

// RespondWithAppError maps err through the apperr taxonomy. Only the short
// message and the provider detail are written, never the wrapped cause.
func RespondWithAppError(w http.ResponseWriter, err error) {
	RespondWithJSON(w, apperr.HTTPStatus(err), ErrorResponse{
		Error:  apperr.Message(err),
		Detail: apperr.Detail(err),
	})
}

// RespondWithFailure is RespondWithAppError for endpoints whose success
// bodies carry a success flag.
func RespondWithFailure(w http.ResponseWriter, code int, message, detail string) {
	failed := false
	RespondWithJSON(w, code, ErrorResponse{Success: &failed, Error: message, Detail: detail})
}

// DecodeJSON reads a size-limited JSON body into dst. Malformed input is a
// validation error.
func DecodeJSON(r *http.Request, dst interface{}) error {
	body := io.LimitReader(r.Body, maxJSONBody)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is required")
		}
		return apperr.Validation(fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}

func GetHeader(headers map[string][]string, key string) string {
	for k, v := range headers {
		if strings.EqualFold(k, key) && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}
