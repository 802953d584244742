package handler

import (
	"encoding/base64"
	"net/http"

	"fedchat/internal/service"
	"fedchat/pkg/fault"
)

// DirectoryHandler serves the cross-host public key lookup. Remote hosts'
// key directories call this to verify signatures from users registered here.
type DirectoryHandler struct {
	localHost   string
	authService service.AuthService
}

func NewDirectoryHandler(localHost string, authService service.AuthService) *DirectoryHandler {
	return &DirectoryHandler{localHost: localHost, authService: authService}
}

func (h *DirectoryHandler) GetKey(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, fault.InvalidArg("name is required"))
		return
	}
	// A lookup addressed to another host must fail, not silently answer with
	// a same-named local user's key.
	if host := r.URL.Query().Get("host"); host != "" && host != h.localHost {
		writeError(w, fault.NotFound("identity "+name+"@"+host+" is not registered on this host"))
		return
	}

	key, err := h.authService.PublicKeyFor(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"public-key": base64.StdEncoding.EncodeToString(key),
	})
}
