package handler

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fedchat/internal/entity"
	"fedchat/internal/keyring"
	"fedchat/internal/relay"
	"fedchat/internal/repository"
	"fedchat/internal/service"
	"fedchat/internal/signature"
	"fedchat/pkg/fault"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testHost = "hostA"

type noRemote struct{}

func (noRemote) Resolve(context.Context, entity.Identity) (ed25519.PublicKey, error) {
	return nil, errors.New("remote host unreachable")
}

type testServer struct {
	server  *httptest.Server
	client  *http.Client
	storage *repository.Storage
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	storage, err := repository.NewStorage(db)
	require.NoError(t, err)

	logger := zap.NewNop()
	broker := relay.NewInprocBroker(logger)
	t.Cleanup(func() { broker.Close() })

	keys, err := keyring.NewDirectory(testHost,
		keyring.NewLocalResolver(storage.Credentials()), noRemote{}, 16, logger)
	require.NoError(t, err)

	auth := service.NewAuthService(testHost, storage, logger)
	chat := service.NewChannelService(storage, broker, keys, false, logger)
	cookieStore := sessions.NewCookieStore([]byte("test-session-secret"))

	server := httptest.NewServer(NewRouter(chat, auth, cookieStore, testHost, logger))
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testServer{
		server:  server,
		client:  &http.Client{Jar: jar},
		storage: storage,
	}
}

func (ts *testServer) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := ts.client.Post(ts.server.URL+path, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func (ts *testServer) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := ts.client.Get(ts.server.URL + path)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func registerOverHTTP(t *testing.T, ts *testServer, name string) ed25519.PrivateKey {
	t.Helper()
	priv, pub, err := signature.GenerateKeypair()
	require.NoError(t, err)

	resp := ts.post(t, "/v1/auth/register", map[string]string{
		"name":        name,
		"password":    "hunter2",
		"public-key":  base64.StdEncoding.EncodeToString(signature.PublicKeyToBytes(pub)),
		"private-key": base64.StdEncoding.EncodeToString(signature.PrivateKeyToBytes(priv)),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
	return priv
}

func createGroupOverHTTP(t *testing.T, ts *testServer, name string) entity.Group {
	t.Helper()
	resp := ts.post(t, "/v1/groups", map[string]string{"name": name})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[entity.Group](t, resp)
}

func TestRegisterSignInAndKeys(t *testing.T) {
	ts := newTestServer(t)
	priv := registerOverHTTP(t, ts, "alice")

	// Keys before sign-in has no session cookie.
	resp := ts.get(t, "/v1/auth/keys")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = ts.post(t, "/v1/auth/sign-in", map[string]string{"name": "alice", "password": "hunter2"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	user := decode[entity.User](t, resp)
	assert.Equal(t, "alice", user.Name)
	assert.Equal(t, testHost, user.Host)

	resp = ts.get(t, "/v1/auth/keys")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	keys := decode[map[string]string](t, resp)
	gotPriv, err := base64.StdEncoding.DecodeString(keys["private-key"])
	require.NoError(t, err)
	assert.Equal(t, signature.PrivateKeyToBytes(priv), gotPriv)
}

func TestSignInWrongPassword(t *testing.T) {
	ts := newTestServer(t)
	registerOverHTTP(t, ts, "alice")

	resp := ts.post(t, "/v1/auth/sign-in", map[string]string{"name": "alice", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, string(fault.CodeUnauthenticated), body["code"])
}

func TestDirectoryKeyLookup(t *testing.T) {
	ts := newTestServer(t)
	priv := registerOverHTTP(t, ts, "alice")

	resp := ts.get(t, "/v1/directory/key?name=alice&host="+testHost)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]string](t, resp)

	raw, err := base64.StdEncoding.DecodeString(body["public-key"])
	require.NoError(t, err)
	pub, err := signature.PublicKeyFromBytes(raw)
	require.NoError(t, err)

	sig, err := signature.Sign(priv, []byte("probe"))
	require.NoError(t, err)
	assert.True(t, signature.Verify(pub, sig, []byte("probe")))

	resp = ts.get(t, "/v1/directory/key?name=nobody")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// A lookup addressed to some other host must not answer with the local
	// alice's key.
	resp = ts.get(t, "/v1/directory/key?name=alice&host=hostB")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestGroupAndChannelLifecycle(t *testing.T) {
	ts := newTestServer(t)
	group := createGroupOverHTTP(t, ts, "team")
	require.Len(t, group.Channels, 1)
	assert.Equal(t, entity.DefaultChannelName, group.Channels[0].Name)

	resp := ts.post(t, "/v1/groups", map[string]string{"name": "team"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = ts.post(t, "/v1/groups/"+group.UUID+"/channels", map[string]string{"name": "random"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = ts.get(t, "/v1/groups/"+group.UUID+"/channels")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	channels := decode[[]entity.Channel](t, resp)
	assert.Len(t, channels, 2)

	resp = ts.get(t, "/v1/groups/team")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	byName := decode[entity.Group](t, resp)
	assert.Equal(t, group.UUID, byName.UUID)

	resp = ts.get(t, "/v1/groups/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestSendAndRangeMessages(t *testing.T) {
	ts := newTestServer(t)
	priv := registerOverHTTP(t, ts, "alice")
	group := createGroupOverHTTP(t, ts, "team")
	general := group.Channels[0]

	sentAt := time.Now().UnixMilli()
	draft := &entity.Message{
		Body: "hello", SenderName: "alice", SenderHost: testHost,
		ChannelUUID: general.UUID, SentAt: time.UnixMilli(sentAt),
	}
	sig, err := signature.Sign(priv, draft.SigningParts()...)
	require.NoError(t, err)

	resp := ts.post(t, "/v1/channels/"+general.UUID+"/messages", map[string]any{
		"body":      "hello",
		"sender":    map[string]string{"name": "alice", "host": testHost},
		"sent-at":   sentAt,
		"signature": base64.StdEncoding.EncodeToString(sig),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	sent := decode[entity.Message](t, resp)
	assert.NotZero(t, sent.ID)

	resp = ts.get(t, "/v1/channels/"+general.UUID+"/messages?from=0&count=10")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decode[[]entity.Message](t, resp)
	require.Len(t, page, 1)
	assert.Equal(t, "hello", page[0].Body)

	resp = ts.get(t, "/v1/channels/"+general.UUID+"/messages?from=bad")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestSendMessageForgedSignatureRejected(t *testing.T) {
	ts := newTestServer(t)
	registerOverHTTP(t, ts, "alice")
	mallory := registerOverHTTP(t, ts, "mallory")
	group := createGroupOverHTTP(t, ts, "team")
	general := group.Channels[0]

	sentAt := time.Now().UnixMilli()
	draft := &entity.Message{
		Body: "hello", SenderName: "alice", SenderHost: testHost,
		ChannelUUID: general.UUID, SentAt: time.UnixMilli(sentAt),
	}
	sig, err := signature.Sign(mallory, draft.SigningParts()...)
	require.NoError(t, err)

	resp := ts.post(t, "/v1/channels/"+general.UUID+"/messages", map[string]any{
		"body":      "hello",
		"sender":    map[string]string{"name": "alice", "host": testHost},
		"sent-at":   sentAt,
		"signature": base64.StdEncoding.EncodeToString(sig),
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, string(fault.CodeSignatureInvalid), body["code"])
}

func TestSendMessageUnknownSender(t *testing.T) {
	ts := newTestServer(t)
	group := createGroupOverHTTP(t, ts, "team")
	general := group.Channels[0]

	resp := ts.post(t, "/v1/channels/"+general.UUID+"/messages", map[string]any{
		"body":    "boo",
		"sender":  map[string]string{"name": "ghost", "host": "hostB"},
		"sent-at": time.Now().UnixMilli(),
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()
}

func TestSetPresenceValidation(t *testing.T) {
	ts := newTestServer(t)
	group := createGroupOverHTTP(t, ts, "team")

	resp := ts.post(t, "/v1/groups/"+group.UUID+"/presence", map[string]any{
		"user":  map[string]string{"name": "alice", "host": testHost},
		"state": "online",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	record := decode[entity.PresenceRecord](t, resp)
	assert.Equal(t, entity.PresenceOnline, record.State)

	// offline is reserved for disconnects
	resp = ts.post(t, "/v1/groups/"+group.UUID+"/presence", map[string]any{
		"user":  map[string]string{"name": "alice", "host": testHost},
		"state": "offline",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = ts.post(t, "/v1/groups/"+group.UUID+"/presence", map[string]any{
		"user":   map[string]string{"name": "alice", "host": testHost},
		"custom": "gone fishing",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	record = decode[entity.PresenceRecord](t, resp)
	assert.Equal(t, "gone fishing", record.Custom)
}

func wsURL(httpURL, path string) string {
	return strings.Replace(httpURL, "http://", "ws://", 1) + path
}

func TestMessageStreamOverWebsocket(t *testing.T) {
	ts := newTestServer(t)
	priv := registerOverHTTP(t, ts, "alice")
	group := createGroupOverHTTP(t, ts, "team")
	general := group.Channels[0]

	conn, _, err := websocket.DefaultDialer.Dial(
		wsURL(ts.server.URL, "/v1/channels/"+general.UUID+"/stream"), nil)
	require.NoError(t, err)
	defer conn.Close()

	sentAt := time.Now().UnixMilli()
	draft := &entity.Message{
		Body: "hello", SenderName: "alice", SenderHost: testHost,
		ChannelUUID: general.UUID, SentAt: time.UnixMilli(sentAt),
	}
	sig, err := signature.Sign(priv, draft.SigningParts()...)
	require.NoError(t, err)

	resp := ts.post(t, "/v1/channels/"+general.UUID+"/messages", map[string]any{
		"body":      "hello",
		"sender":    map[string]string{"name": "alice", "host": testHost},
		"sent-at":   sentAt,
		"signature": base64.StdEncoding.EncodeToString(sig),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var got entity.Message
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, "hello", got.Body)
	assert.Equal(t, "alice", got.SenderName)
}

func TestPresenceStreamSnapshotThenDisconnect(t *testing.T) {
	ts := newTestServer(t)
	group := createGroupOverHTTP(t, ts, "team")

	resp := ts.post(t, "/v1/groups/"+group.UUID+"/presence", map[string]any{
		"user":  map[string]string{"name": "alice", "host": testHost},
		"state": "online",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	conn, _, err := websocket.DefaultDialer.Dial(
		wsURL(ts.server.URL, "/v1/groups/"+group.UUID+"/presence/stream?name=bob&host=hostB"), nil)
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var snapshot entity.PresenceRecord
	require.NoError(t, json.Unmarshal(payload, &snapshot))
	assert.Equal(t, "alice", snapshot.UserName)
	assert.Equal(t, entity.PresenceOnline, snapshot.State)

	// Dropping the socket records bob as offline.
	conn.Close()
	assert.Eventually(t, func() bool {
		current, err := ts.storage.Presence().Current(group.UUID)
		if err != nil {
			return false
		}
		for _, rec := range current {
			if rec.UserName == "bob" && rec.State == entity.PresenceOffline {
				return true
			}
		}
		return false
	}, 2*time.Second, 20*time.Millisecond)
}

func TestMalformedBodyIsBadRequest(t *testing.T) {
	ts := newTestServer(t)
	resp, err := ts.client.Post(ts.server.URL+"/v1/groups", "application/json",
		strings.NewReader("{not json"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}
