package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dkeye/Huddle/internal/adapters/signal"
	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/app/orch"
	"github.com/dkeye/Huddle/internal/config"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T) (*gin.Engine, *orch.Orchestrator) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Mode:       "test",
		StaticPath: t.TempDir(),
		Secret:     "test-secret",
		ICEServers: []config.ICEServer{{URLs: []string{"stun:stun.example:3478"}}},
	}
	hub := signal.NewHub(app.SimplePolicy{MaxDrops: 4})
	o := orch.New(hub, nil, nil)
	ctrl := signal.NewSignalWSController(o, hub, nil, signal.Options{})
	return SetupRouter(context.Background(), cfg, o, ctrl), o
}

func get(t *testing.T, r *gin.Engine, path string) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]json.RawMessage
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func TestRouter_ReadOnlyAPI(t *testing.T) {
	req := require.New(t)
	r, o := newRouter(t)

	// Given
	_, err := o.Directory.Register("alice", "Alice", "c1")
	req.NoError(err)
	room, err := o.Rooms.Create("general", "", "alice")
	req.NoError(err)
	_, err = o.Messages.Append(room.ID, "alice", "hello")
	req.NoError(err)

	// Then
	w, body := get(t, r, "/healthz")
	req.Equal(http.StatusOK, w.Code)
	req.JSONEq(`"ok"`, string(body["status"]))

	w, body = get(t, r, "/api/users")
	req.Equal(http.StatusOK, w.Code)
	var users []domain.User
	req.NoError(json.Unmarshal(body["users"], &users))
	req.Len(users, 1)

	w, body = get(t, r, "/api/rooms")
	req.Equal(http.StatusOK, w.Code)
	var rooms []app.RoomSummary
	req.NoError(json.Unmarshal(body["rooms"], &rooms))
	req.Len(rooms, 1)
	req.Equal(1, rooms[0].MessageCount)

	w, body = get(t, r, "/api/rooms/"+string(room.ID)+"/messages")
	req.Equal(http.StatusOK, w.Code)
	var msgs []domain.Message
	req.NoError(json.Unmarshal(body["messages"], &msgs))
	req.Equal("hello", msgs[0].Message)

	w, body = get(t, r, "/api/ice-servers")
	req.Equal(http.StatusOK, w.Code)
	req.Contains(string(body["iceServers"]), "stun:stun.example:3478")

	w, _ = get(t, r, "/api/quizzes")
	req.Equal(http.StatusOK, w.Code)
}

func TestRouter_NotFound(t *testing.T) {
	req := require.New(t)
	r, _ := newRouter(t)

	w, body := get(t, r, "/api/rooms/nope/messages")
	req.Equal(http.StatusNotFound, w.Code)
	req.JSONEq(`"Room not found!"`, string(body["error"]))

	w, _ = get(t, r, "/api/quizzes/nope/leaderboard")
	req.Equal(http.StatusNotFound, w.Code)
}

func TestRouter_ClientToken(t *testing.T) {
	req := require.New(t)
	r, _ := newRouter(t)

	w, _ := get(t, r, "/healthz")

	var found bool
	for _, c := range w.Result().Cookies() {
		if c.Name == "ct" {
			found = c.Value != "" && c.HttpOnly
		}
	}
	req.True(found)
}

func TestErrorStatus(t *testing.T) {
	req := require.New(t)
	req.Equal(http.StatusNotFound, errorStatus(domain.ErrQuizNotFound))
	req.Equal(http.StatusForbidden, errorStatus(domain.ErrNotHost))
	req.Equal(http.StatusBadRequest, errorStatus(domain.ErrMissingFields))
	req.Equal(http.StatusInternalServerError, errorStatus(domain.ErrPersistence))
}
