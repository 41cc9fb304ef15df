// Package middleware holds HTTP middleware shared by the demand API.
package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"

	"github.com/rezkam/demand/internal/infrastructure/http/response"
)

// CodePayloadTooLarge is the error code of a rejected oversized body.
const CodePayloadTooLarge = "PAYLOAD_TOO_LARGE"

// MaxBodyBytes rejects request bodies larger than maxBytes with 413.
//
// A declared Content-Length above the limit is rejected before reading.
// Otherwise the body is read through http.MaxBytesReader, which also covers
// chunked bodies and lying Content-Length headers.
func MaxBodyBytes(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				tooLarge(w)
				return
			}
			if r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}

			buf, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
			if err != nil {
				slog.WarnContext(r.Context(), "Request body rejected",
					"method", r.Method,
					"path", r.URL.Path,
					"limit", maxBytes,
					"error", err)
				tooLarge(w)
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(buf))
			next.ServeHTTP(w, r)
		})
	}
}

func tooLarge(w http.ResponseWriter) {
	response.Error(w, CodePayloadTooLarge, "request body exceeds size limit", http.StatusRequestEntityTooLarge)
}
