package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/MrEthical07/tokenlife"
)

var errMalformedBody = errors.New("malformed request body")

type errorBody struct {
	Error string `json:"error"`
}

// clientErrors are reported by their own message; anything else is internal.
var clientErrors = []error{
	tokenlife.ErrInvalidToken,
	tokenlife.ErrRefreshTokenUnavailable,
	tokenlife.ErrTokenNotExpired,
	tokenlife.ErrTokenMismatch,
	tokenlife.ErrNotFound,
	tokenlife.ErrInvalidCredentials,
	tokenlife.ErrInvalidRegistration,
	errMalformedBody,
}

// toHTTP maps err to a status code and a safe message.
func toHTTP(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, "internal error"
	case errors.Is(err, tokenlife.ErrInvalidRegistration), errors.Is(err, errMalformedBody):
		return http.StatusBadRequest, clientMessage(err)
	case tokenlife.IsAuthFailure(err):
		return http.StatusUnauthorized, clientMessage(err)
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func clientMessage(err error) string {
	// registration messages name the failing field
	if errors.Is(err, tokenlife.ErrInvalidRegistration) {
		return err.Error()
	}
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return "internal error"
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := toHTTP(err)
	if status == http.StatusInternalServerError {
		tokenlife.LoggerFrom(r.Context()).Error("request_failed",
			slog.String("path", r.URL.Path),
			slog.Any("err", err),
		)
	}
	writeJSON(w, status, errorBody{Error: msg})
}
