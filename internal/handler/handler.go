package handler

import (
	"net/http"

	"fedchat/internal/service"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

// NewRouter wires the full HTTP surface: account endpoints, the federation
// key directory, group/channel/message management and the websocket streams.
func NewRouter(chatService service.ChannelService, authService service.AuthService, cookieStore *sessions.CookieStore, localHost string, logger *zap.Logger) *mux.Router {
	auth := NewAuthHandler(authService, cookieStore)
	directory := NewDirectoryHandler(localHost, authService)
	chat := NewChatHandler(chatService)
	stream := NewStreamHandler(chatService, logger)

	r := mux.NewRouter()
	v1 := r.PathPrefix("/v1").Subrouter()

	v1.HandleFunc("/auth/register", auth.Register).Methods(http.MethodPost)
	v1.HandleFunc("/auth/sign-in", auth.SignIn).Methods(http.MethodPost)
	v1.HandleFunc("/auth/keys", auth.Keys).Methods(http.MethodGet)

	v1.HandleFunc("/directory/key", directory.GetKey).Methods(http.MethodGet)

	v1.HandleFunc("/users", chat.AddUser).Methods(http.MethodPost)

	v1.HandleFunc("/groups", chat.CreateGroup).Methods(http.MethodPost)
	v1.HandleFunc("/groups/{name}", chat.GroupByName).Methods(http.MethodGet)
	v1.HandleFunc("/groups/{id}/channels", chat.CreateChannel).Methods(http.MethodPost)
	v1.HandleFunc("/groups/{id}/channels", chat.GroupChannels).Methods(http.MethodGet)
	v1.HandleFunc("/groups/{id}/presence", chat.SetPresence).Methods(http.MethodPost)
	v1.HandleFunc("/groups/{id}/presence/stream", stream.Presence).Methods(http.MethodGet)

	v1.HandleFunc("/channels/{id}/messages", chat.SendMessage).Methods(http.MethodPost)
	v1.HandleFunc("/channels/{id}/messages", chat.MessageRange).Methods(http.MethodGet)
	v1.HandleFunc("/channels/{id}/stream", stream.Messages).Methods(http.MethodGet)

	return r
}
