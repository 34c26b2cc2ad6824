package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"agora/internal/featureflags"
	"agora/internal/forum"
	"agora/internal/messaging"
	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/reactions"
	"agora/internal/store"
	livesync "agora/internal/sync"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

// newTestServer builds a Server over a fresh in-memory store, the way the
// bootstrap layer would, minus HTTP middleware.
func newTestServer() *Server {
	st := store.NewMemoryStore()
	hub := livesync.NewHub()
	return &Server{
		store:        st,
		hub:          hub,
		featureFlags: featureflags.NewManager("message_edit=on,conversation_repair=on"),
		forum:        forum.NewService(st, hub, nil),
		messaging:    messaging.NewService(st, hub, nil),
		reactions:    reactions.NewService(st, nil),
	}
}

// newTestApp returns an app whose requests all run as the given identity.
func newTestApp(id models.Identity) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(middleware.IdentityLocal, id)
		return c.Next()
	})
	return app
}

func jsonRequest(t *testing.T, app *fiber.App, method, target string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}
