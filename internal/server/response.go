package server

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	goahttp "goa.design/goa/v3/http"
	goa "goa.design/goa/v3/pkg"

	"algoforce/internal/domain"
	"algoforce/internal/services"
)

const maxBodyBytes = 64 << 10

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type verifyResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ContactID string `json:"contactId"`
	Name      string `json:"name"`
}

type listResponse struct {
	Success bool             `json:"success"`
	Count   int              `json:"count"`
	Data    []domain.Contact `json:"data"`
}

type contactResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    *domain.Contact `json:"data"`
}

type loginResponse struct {
	Success bool                  `json:"success"`
	Data    *services.LoginResult `json:"data"`
}

// writeJSON encodes body with the goa response encoder
func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	enc := goahttp.ResponseEncoder(ctx, w)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := enc.Encode(body); err != nil {
		log.Printf("[HTTP] Failed to encode response: %v", err)
	}
}

// writeError renders err as {success:false, message}
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	appErr := services.AsAppError(err)
	status := appErr.HTTPStatus()
	if status >= http.StatusInternalServerError {
		log.Printf("[ERROR] %v", err)
	}
	writeJSON(ctx, w, status, messageResponse{Success: false, Message: appErr.Message})
}

// decodeBody decodes a JSON body of at most maxBodyBytes into v
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := goahttp.RequestDecoder(r).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return goa.DecodePayloadError("missing request body")
		case errors.As(err, &tooLarge):
			return goa.DecodePayloadError("request body too large")
		default:
			return goa.DecodePayloadError("invalid JSON body: " + err.Error())
		}
	}
	return nil
}
