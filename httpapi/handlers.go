package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/MrEthical07/tokenlife"
	"github.com/MrEthical07/tokenlife/middleware"
)

type handlers struct {
	engine Engine
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
	UserName     string `json:"userName,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict rejects unknown fields and trailing data.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(value); err != nil {
		return errMalformedBody
	}
	if dec.More() {
		return errMalformedBody
	}
	return nil
}

func bearer(r *http.Request) (string, error) {
	token, ok := tokenlife.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		return "", tokenlife.ErrInvalidToken
	}
	return token, nil
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var in tokenlife.Credentials
	if err := decodeStrict(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	resp, err := h.engine.Login(r.Context(), in.Identifier, in.Secret)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	token, err := bearer(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var in tokenlife.RegistrationPayload
	if err := decodeStrict(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	resp, err := h.engine.CompleteRegistration(r.Context(), token, in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (h *handlers) refresh(w http.ResponseWriter, r *http.Request) {
	token, err := bearer(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var in refreshRequest
	if err := decodeStrict(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if in.RefreshToken == "" {
		writeError(w, r, tokenlife.ErrRefreshTokenUnavailable)
		return
	}

	resp, err := h.engine.Refresh(r.Context(), token, in.RefreshToken, in.UserName)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	token, err := bearer(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.engine.Logout(r.Context(), token); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, struct{}{})
}

func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	token, err := bearer(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp, err := h.engine.Upgrade(r.Context(), token)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) principal(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, tokenlife.ErrInvalidToken)
		return
	}

	writeJSON(w, http.StatusOK, p)
}
