package handler

import (
	"encoding/base64"
	"net/http"
	"strconv"
	"time"

	"fedchat/internal/entity"
	"fedchat/internal/service"
	"fedchat/pkg/fault"

	"github.com/gorilla/mux"
)

const (
	defaultRangeCount = 50
	maxRangeCount     = 200
)

type addUserFields struct {
	Name string `json:"name"`
	Host string `json:"host"`
}

type createGroupFields struct {
	Name string `json:"name"`
}

type createChannelFields struct {
	Name string `json:"name"`
}

type sendMessageFields struct {
	Body      string        `json:"body"`
	Sender    addUserFields `json:"sender"`
	SentAt    int64         `json:"sent-at"`
	Signature string        `json:"signature"`
}

type setPresenceFields struct {
	User   addUserFields `json:"user"`
	State  string        `json:"state"`
	Custom string        `json:"custom"`
}

type ChatHandler struct {
	chatService service.ChannelService
}

func NewChatHandler(chatService service.ChannelService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) AddUser(w http.ResponseWriter, r *http.Request) {
	var request addUserFields
	if !decodeBody(w, r, &request) {
		return
	}
	if request.Name == "" || request.Host == "" {
		writeError(w, fault.InvalidArg("name and host are required"))
		return
	}

	user, err := h.chatService.AddUser(r.Context(), request.Name, request.Host)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *ChatHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var request createGroupFields
	if !decodeBody(w, r, &request) {
		return
	}
	if request.Name == "" {
		writeError(w, fault.InvalidArg("name is required"))
		return
	}

	group, err := h.chatService.CreateGroup(r.Context(), request.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, group)
}

func (h *ChatHandler) GroupByName(w http.ResponseWriter, r *http.Request) {
	group, err := h.chatService.GroupByName(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

func (h *ChatHandler) CreateChannel(w http.ResponseWriter, r *http.Request) {
	var request createChannelFields
	if !decodeBody(w, r, &request) {
		return
	}
	if request.Name == "" {
		writeError(w, fault.InvalidArg("name is required"))
		return
	}

	channel, err := h.chatService.CreateChannel(r.Context(), mux.Vars(r)["id"], request.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, channel)
}

func (h *ChatHandler) GroupChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := h.chatService.GroupChannels(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, channels)
}

func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var request sendMessageFields
	if !decodeBody(w, r, &request) {
		return
	}
	if request.Sender.Name == "" || request.Sender.Host == "" {
		writeError(w, fault.InvalidArg("sender name and host are required"))
		return
	}

	var sig []byte
	if request.Signature != "" {
		decoded, err := base64.StdEncoding.DecodeString(request.Signature)
		if err != nil {
			writeError(w, fault.InvalidArg("signature is not valid base64"))
			return
		}
		sig = decoded
	}

	sender := entity.Identity{Name: request.Sender.Name, Host: request.Sender.Host}
	sentAt := time.UnixMilli(request.SentAt)

	message, err := h.chatService.SendMessage(r.Context(), mux.Vars(r)["id"], request.Body, sender, sentAt, sig)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, message)
}

// MessageRange pages backwards through a channel's history, newest first.
// from counts already-fetched messages, count caps the page size.
func (h *ChatHandler) MessageRange(w http.ResponseWriter, r *http.Request) {
	from, err := queryInt(r, "from", 0)
	if err != nil {
		writeError(w, fault.InvalidArg("from must be a non-negative integer"))
		return
	}
	count, err := queryInt(r, "count", defaultRangeCount)
	if err != nil || count <= 0 {
		writeError(w, fault.InvalidArg("count must be a positive integer"))
		return
	}
	if count > maxRangeCount {
		count = maxRangeCount
	}

	messages, err := h.chatService.MessageRange(r.Context(), mux.Vars(r)["id"], from, count)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (h *ChatHandler) SetPresence(w http.ResponseWriter, r *http.Request) {
	var request setPresenceFields
	if !decodeBody(w, r, &request) {
		return
	}
	if request.User.Name == "" || request.User.Host == "" {
		writeError(w, fault.InvalidArg("user name and host are required"))
		return
	}

	state := entity.PresenceState(request.State)
	if request.Custom == "" && !state.UserSettable() {
		writeError(w, fault.InvalidArg("state must be one of online, away, dnd"))
		return
	}

	user := entity.Identity{Name: request.User.Name, Host: request.User.Host}
	record, err := h.chatService.SetPresence(r.Context(), mux.Vars(r)["id"], user, state, request.Custom)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, fault.InvalidArg(name + " must be a non-negative integer")
	}
	return value, nil
}
