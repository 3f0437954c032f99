package handler

import (
	"net/http"

	"github.com/go-faster/jx"
)

type credentials struct {
	name     string
	email    string
	password string
}

func readCredentials(w http.ResponseWriter, r *http.Request) (credentials, error) {
	var c credentials
	err := readObject(w, r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			c.name, err = d.Str()
		case "email":
			c.email, err = d.Str()
		case "password":
			c.password, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return c, err
}

// Register creates a user account and returns a session token.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	c, err := readCredentials(w, r)
	if err != nil {
		writeError(w, r, scopeDefault, err)
		return
	}
	s, err := h.accounts.Register(r.Context(), c.name, c.email, c.password)
	if err != nil {
		writeError(w, r, scopeDefault, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeSession(e, s) })
}

// Login exchanges credentials for a session token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	c, err := readCredentials(w, r)
	if err != nil {
		writeError(w, r, scopeDefault, err)
		return
	}
	s, err := h.accounts.Login(r.Context(), c.email, c.password)
	if err != nil {
		writeError(w, r, scopeDefault, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeSession(e, s) })
}
