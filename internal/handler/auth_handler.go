package handler

import (
	"encoding/base64"
	"net/http"

	"fedchat/internal/service"
	"fedchat/pkg/fault"

	"github.com/gorilla/sessions"
)

const sessionName = "fedchat-session"

type registerFields struct {
	Name       string `json:"name"`
	Password   string `json:"password"`
	PublicKey  string `json:"public-key"`
	PrivateKey string `json:"private-key"`
}

type signInFields struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type AuthHandler struct {
	authService service.AuthService
	cookieStore *sessions.CookieStore
}

func NewAuthHandler(authService service.AuthService, cookieStore *sessions.CookieStore) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookieStore: cookieStore,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var request registerFields
	if !decodeBody(w, r, &request) {
		return
	}

	publicKey, err := base64.StdEncoding.DecodeString(request.PublicKey)
	if err != nil {
		writeError(w, fault.InvalidArg("public-key is not valid base64"))
		return
	}
	privateKey, err := base64.StdEncoding.DecodeString(request.PrivateKey)
	if err != nil {
		writeError(w, fault.InvalidArg("private-key is not valid base64"))
		return
	}

	user, err := h.authService.Register(r.Context(), request.Name, request.Password, publicKey, privateKey)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var request signInFields
	if !decodeBody(w, r, &request) {
		return
	}

	user, err := h.authService.SignIn(r.Context(), request.Name, request.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	session, _ := h.cookieStore.Get(r, sessionName)
	session.Values["name"] = user.Name
	if err := sessions.Save(r, w); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Keys returns the signed-in user's stored keypair so any client of theirs
// can sign messages. Requires a session from SignIn.
func (h *AuthHandler) Keys(w http.ResponseWriter, r *http.Request) {
	session, _ := h.cookieStore.Get(r, sessionName)
	name, ok := session.Values["name"].(string)
	if !ok || name == "" {
		writeError(w, fault.Unauthenticated("sign in first"))
		return
	}

	publicKey, privateKey, err := h.authService.Keypair(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"public-key":  base64.StdEncoding.EncodeToString(publicKey),
		"private-key": base64.StdEncoding.EncodeToString(privateKey),
	})
}
