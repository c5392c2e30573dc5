// Package respond holds the JSON writers shared by every handler. All
// responses here are per-user, so nothing is publicly cacheable.
package respond

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Detail  string `json:"detail,omitempty"`
	} `json:"error"`
}

// MessageResponse is the body of simple acknowledgements.
type MessageResponse struct {
	Message string `json:"message"`
}

// WriteJSON writes a cached, pre-encoded body with its ETag. The cache is
// keyed per user, so Vary includes Authorization.
func WriteJSON(w http.ResponseWriter, data []byte, etag string, ttl time.Duration, cacheHit bool) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("ETag", etag)
	h.Set("Vary", "Authorization, Accept-Encoding")
	h.Set("Cache-Control", "private, max-age="+strconv.Itoa(int(ttl.Seconds())))
	h.Set("X-Cache", cacheLabel(cacheHit))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func cacheLabel(hit bool) string {
	if hit {
		return "HIT"
	}
	return "MISS"
}

// WriteNotModified answers a conditional GET whose ETag still matches.
func WriteNotModified(w http.ResponseWriter, etag string) {
	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusNotModified)
}

// WriteError writes an ErrorResponse without detail.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteErrorDetail(w, status, code, message, "")
}

// WriteErrorDetail writes an ErrorResponse. detail is omitted when empty.
func WriteErrorDetail(w http.ResponseWriter, status int, code, message, detail string) {
	var resp ErrorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.Detail = detail
	encode(w, status, resp)
}

// WriteMessage writes {"message": msg}.
func WriteMessage(w http.ResponseWriter, status int, msg string) {
	encode(w, status, MessageResponse{Message: msg})
}

// WriteJSONObject encodes v as an uncached JSON body.
func WriteJSONObject(w http.ResponseWriter, status int, v interface{}) {
	encode(w, status, v)
}

func encode(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
