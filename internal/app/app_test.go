package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meno/internal/config"
	"meno/internal/media"
	"meno/internal/models"
	"meno/internal/repositories/repotest"
	"meno/internal/utils"
)

type testEnv struct {
	srv    *httptest.Server
	store  *repotest.Store
	tokens *utils.Tokens
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := &config.Config{
		Server:    config.ServerConfig{Mode: "test", CORSOrigins: []string{"*"}},
		Auth:      config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour},
		Media:     config.MediaConfig{ImageDir: t.TempDir(), URLPrefix: "/media/images"},
		RateLimit: config.RateLimitConfig{PerSecond: 1000, Burst: 1000},
	}
	images, err := media.NewStore(cfg.Media.ImageDir, cfg.Media.URLPrefix, 1080, 75)
	require.NoError(t, err)

	store := repotest.NewStore()
	repos := Repositories{
		Users:         store.Users(),
		Chats:         store.Chats(),
		Contents:      store.Contents(),
		Reels:         store.Reels(),
		Notifications: store.Notifications(),
		Stories:       store.Stories(),
		Comments:      store.Comments(),
	}
	a := New(cfg, repos, images)
	t.Cleanup(a.limiter.Stop)

	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, store: store, tokens: utils.NewTokens(cfg.Auth.JWTSecret, time.Hour)}
}

func (e *testEnv) token(t *testing.T, userID int) string {
	t.Helper()
	tok, err := e.tokens.Issue(userID)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path string, userID int, body any) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, r)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != 0 {
		req.Header.Set("Authorization", "Bearer "+e.token(t, userID))
	}
	return send(t, req)
}

func send(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (e *testEnv) dial(t *testing.T, path string, userID int) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.srv.URL, "http") + path + "?token=" + e.token(t, userID)
	c, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Cleanup(func() { _ = c.Close() })
	}
	return c, resp, err
}

func readFrame(t *testing.T, c *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := c.ReadMessage()
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func createChat(t *testing.T, e *testEnv, requester int, participants ...int) int {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/chats", requester, jsonBody{"participants": participants})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var chat struct{ ID int }
	require.NoError(t, json.Unmarshal(body, &chat))
	return chat.ID
}

type jsonBody map[string]any

func TestRegisterLoginAndProfile(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.do(t, http.MethodPost, "/auth/register", 0,
		models.RegisterRequest{Username: "ann", Email: "ann@example.com", Password: "hunter22"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = e.do(t, http.MethodPost, "/auth/login", 0, models.LoginRequest{Username: "ann", Password: "hunter22"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var login struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(body, &login))
	claims, err := e.tokens.Parse(login.AccessToken)
	require.NoError(t, err)

	resp, body = e.do(t, http.MethodGet, fmt.Sprintf("/users/%d", claims.UserID), claims.UserID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"username":"ann"`)

	resp, _ = e.do(t, http.MethodPost, "/auth/login", 0, models.LoginRequest{Username: "ann", Password: "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = e.do(t, http.MethodGet, "/chats", 0, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRealtimeFrameScenario(t *testing.T) {
	e := newTestEnv(t)
	a, b, outsider := e.store.AddUser("ann"), e.store.AddUser("bob"), e.store.AddUser("eve")
	chatID := createChat(t, e, a.ID, b.ID)

	connA, _, err := e.dial(t, fmt.Sprintf("/ws/chats/%d", chatID), a.ID)
	require.NoError(t, err)
	connB, _, err := e.dial(t, fmt.Sprintf("/ws/chats/%d", chatID), b.ID)
	require.NoError(t, err)

	_, resp, err := e.dial(t, fmt.Sprintf("/ws/chats/%d", chatID), outsider.ID)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Give both sessions time to register before sending.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, connA.WriteMessage(websocket.TextMessage, []byte(`{"text":"hi"}`)))

	want := map[string]any{"text": "hi", "author": "Unknown", "profile_photo": nil}
	assert.Equal(t, want, readFrame(t, connA))
	assert.Equal(t, want, readFrame(t, connB))
}

func TestSendMessageByOutsiderIsForbidden(t *testing.T) {
	e := newTestEnv(t)
	a, b, outsider := e.store.AddUser("ann"), e.store.AddUser("bob"), e.store.AddUser("eve")
	chatID := createChat(t, e, a.ID, b.ID)

	connB, _, err := e.dial(t, fmt.Sprintf("/ws/chats/%d", chatID), b.ID)
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	form := strings.NewReader("message=hello")
	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/chats/%d/messages", e.srv.URL, chatID), form)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+e.token(t, outsider.ID))
	resp, _ := send(t, req)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Zero(t, e.store.MessageCount(chatID))

	require.NoError(t, connB.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err = connB.ReadMessage()
	assert.Error(t, err, "no broadcast for a rejected message")
}

func TestSendMessageWithImageBroadcastsPersistedRecord(t *testing.T) {
	e := newTestEnv(t)
	a, b := e.store.AddUser("ann"), e.store.AddUser("bob")
	chatID := createChat(t, e, a.ID, b.ID)

	connA, _, err := e.dial(t, fmt.Sprintf("/ws/chats/%d", chatID), a.ID)
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("message", "look at this"))
	fw, err := mw.CreateFormFile("img_file", "pic.png")
	require.NoError(t, err)
	require.NoError(t, png.Encode(fw, image.NewRGBA(image.Rect(0, 0, 20, 10))))
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/chats/%d/messages", e.srv.URL, chatID), &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+e.token(t, b.ID))
	resp, body := send(t, req)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	frame := readFrame(t, connA)
	assert.Equal(t, "look at this", frame["content"])
	assert.Equal(t, "bob", frame["author"])
	assert.EqualValues(t, b.ID, frame["author_id"])
	img, _ := frame["img_file"].(string)
	assert.True(t, strings.HasPrefix(img, "/media/images/"))
	assert.Equal(t, 1, e.store.MessageCount(chatID))
}

func TestLikePushesNotification(t *testing.T) {
	e := newTestEnv(t)
	author, fan := e.store.AddUser("ann"), e.store.AddUser("bob")
	post := &models.Content{Title: "sunset", Photo: "p.jpg", Audience: "for-any", AuthorID: author.ID}
	require.NoError(t, e.store.Contents().Create(context.Background(), post))

	conn, _, err := e.dial(t, "/ws/notifications", author.ID)
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	resp, body := e.do(t, http.MethodPost, fmt.Sprintf("/contents/%d/like", post.ID), fan.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.JSONEq(t, `{"liked":true}`, string(body))

	n := readFrame(t, conn)
	assert.Equal(t, "like", n["type"])
	sender, _ := n["sender"].(map[string]any)
	assert.Equal(t, "bob", sender["username"])

	resp, body = e.do(t, http.MethodGet, "/notifications", author.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)

	resp, _ = e.do(t, http.MethodPost, fmt.Sprintf("/notifications/%v/read", list[0]["id"]), fan.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = e.do(t, http.MethodPost, fmt.Sprintf("/notifications/%v/read", list[0]["id"]), author.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestCommentPushesNotificationAndPostCleanup(t *testing.T) {
	e := newTestEnv(t)
	author, fan := e.store.AddUser("ann"), e.store.AddUser("bob")
	post := &models.Content{Title: "sunset", Photo: "p.jpg", Audience: "for-any", AuthorID: author.ID}
	require.NoError(t, e.store.Contents().Create(context.Background(), post))

	conn, _, err := e.dial(t, "/ws/notifications", author.ID)
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	resp, body := e.do(t, http.MethodPost, fmt.Sprintf("/contents/%d/comments", post.ID), fan.ID, jsonBody{"title": " lovely "})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var comment struct {
		ID    int    `json:"id"`
		Title string `json:"title"`
		User  string `json:"user"`
	}
	require.NoError(t, json.Unmarshal(body, &comment))
	assert.Equal(t, "lovely", comment.Title)
	assert.Equal(t, "bob", comment.User)

	n := readFrame(t, conn)
	assert.Equal(t, "comment", n["type"])
	content, _ := n["content"].(map[string]any)
	assert.Equal(t, "sunset", content["content_title"])

	resp, body = e.do(t, http.MethodGet, fmt.Sprintf("/contents/%d/comments", post.ID), author.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)

	resp, body = e.do(t, http.MethodGet, fmt.Sprintf("/users/%d/contents", author.ID), fan.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var posts []struct {
		ID           int `json:"id"`
		CommentCount int `json:"commentarion_count"`
	}
	require.NoError(t, json.Unmarshal(body, &posts))
	require.Len(t, posts, 1)
	assert.Equal(t, 1, posts[0].CommentCount)

	resp, _ = e.do(t, http.MethodDelete, fmt.Sprintf("/comments/%d", comment.ID), author.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "only the writer deletes a comment")
	resp, _ = e.do(t, http.MethodDelete, fmt.Sprintf("/contents/%d", post.ID), fan.ID, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = e.do(t, http.MethodDelete, fmt.Sprintf("/contents/%d", post.ID), author.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = e.do(t, http.MethodGet, fmt.Sprintf("/contents/%d/comments", post.ID), author.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Zero(t, e.store.NotificationCount(author.ID))
}

func TestFollowMissingUserIsNotFound(t *testing.T) {
	e := newTestEnv(t)
	u := e.store.AddUser("ann")
	resp, _ := e.do(t, http.MethodPost, "/users/999/follow", u.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestChatLifecycleOverHTTP(t *testing.T) {
	e := newTestEnv(t)
	a, b, c := e.store.AddUser("ann"), e.store.AddUser("bob"), e.store.AddUser("cat")
	chatID := createChat(t, e, a.ID, b.ID)

	resp, _ := e.do(t, http.MethodPost, "/chats", c.ID, jsonBody{"participants": []int{b.ID}})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body := e.do(t, http.MethodPost, fmt.Sprintf("/chats/%d/share/user", chatID), a.ID, jsonBody{"user_id": c.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = e.do(t, http.MethodGet, fmt.Sprintf("/chats/%d", chatID), b.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var detail struct {
		Participants []any `json:"participants"`
		Users        []any `json:"users"`
	}
	require.NoError(t, json.Unmarshal(body, &detail))
	assert.Len(t, detail.Participants, 2)
	assert.Len(t, detail.Users, 1)

	resp, _ = e.do(t, http.MethodGet, fmt.Sprintf("/chats/%d", chatID), c.ID, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = e.do(t, http.MethodGet, "/chats/abc", a.ID, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = e.do(t, http.MethodDelete, fmt.Sprintf("/chats/%d", chatID), a.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = e.do(t, http.MethodGet, fmt.Sprintf("/chats/%d", chatID), a.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Zero(t, e.store.ShareCount(chatID))
}

func TestHealthAndMetrics(t *testing.T) {
	e := newTestEnv(t)
	resp, body := e.do(t, http.MethodGet, "/healthz", 0, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	resp, body = e.do(t, http.MethodGet, "/metrics", 0, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "http_requests_total")
}
