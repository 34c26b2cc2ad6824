package server

import (
	"net/http"
	"testing"

	"agora/internal/forum"
	"agora/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testUser  = models.Identity{UID: "alice", DisplayName: "Alice", Handle: "alice"}
	testAdmin = models.Identity{UID: "root", DisplayName: "Root", IsAdmin: true}
)

func registerForumRoutes(app *fiber.App, s *Server) {
	app.Post("/api/themata", s.CreateThema)
	app.Get("/api/themata", s.GetThemata)
	app.Delete("/api/themata/:themaId", s.AdminRequired(), s.DeleteThema)
	app.Post("/api/themata/:themaId/threads", s.CreateThread)
	app.Get("/api/themata/:themaId/threads", s.GetThreads)
	app.Delete("/api/themata/:themaId/threads/:threadId", s.DeleteThread)
	app.Post("/api/themata/:themaId/threads/:threadId/reactions", s.ToggleThreadReaction)
	app.Post("/api/themata/:themaId/threads/:threadId/comments", s.CreateComment)
	app.Get("/api/themata/:themaId/threads/:threadId/comments", s.GetComments)
	app.Put("/api/themata/:themaId/threads/:threadId/comments/:commentId", s.UpdateComment)
	app.Delete("/api/themata/:themaId/threads/:threadId/comments/:commentId", s.DeleteComment)
}

func TestCreateThema(t *testing.T) {
	s := newTestServer()
	app := newTestApp(testUser)
	registerForumRoutes(app, s)

	tests := []struct {
		name           string
		body           map[string]string
		expectedStatus int
	}{
		{
			name:           "Success",
			body:           map[string]string{"name": "general", "description": "Anything goes"},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "MissingName",
			body:           map[string]string{"description": "no name"},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := jsonRequest(t, app, http.MethodPost, "/api/themata", tt.body)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusCreated {
				var thema models.Thema
				decodeBody(t, resp, &thema)
				assert.Equal(t, "general", thema.Name)
				assert.Equal(t, testUser.UID, thema.CreatedBy)
				assert.NotEmpty(t, thema.ID)
			}
		})
	}
}

func TestThreadAndCommentFlow(t *testing.T) {
	s := newTestServer()
	app := newTestApp(testUser)
	registerForumRoutes(app, s)

	resp := jsonRequest(t, app, http.MethodPost, "/api/themata",
		map[string]string{"name": "general"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var thema models.Thema
	decodeBody(t, resp, &thema)

	resp = jsonRequest(t, app, http.MethodPost, "/api/themata/"+thema.ID+"/threads",
		map[string]string{"title": "First thread", "initialComment": "hello"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var thread models.Thread
	decodeBody(t, resp, &thread)
	require.NotEmpty(t, thread.ID)

	base := "/api/themata/" + thema.ID + "/threads/" + thread.ID + "/comments"

	resp = jsonRequest(t, app, http.MethodPost, base, map[string]string{"content": "top level"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var root models.Comment
	decodeBody(t, resp, &root)

	resp = jsonRequest(t, app, http.MethodPost, base,
		map[string]string{"content": "a reply", "parentId": root.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = jsonRequest(t, app, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var views []forum.CommentView
	decodeBody(t, resp, &views)
	require.Len(t, views, 2)
	assert.Equal(t, 0, views[0].Depth)
	assert.Equal(t, 1, views[1].Depth)
	assert.Equal(t, root.ID, views[1].Comment.ParentID)

	// Thread list reflects the comment count rewrite.
	resp = jsonRequest(t, app, http.MethodGet, "/api/themata/"+thema.ID+"/threads", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var threads []forum.ThreadView
	decodeBody(t, resp, &threads)
	require.Len(t, threads, 1)
	assert.Equal(t, 2, threads[0].Thread.CommentCount)
}

func TestCreateThreadMissingThema(t *testing.T) {
	s := newTestServer()
	app := newTestApp(testUser)
	registerForumRoutes(app, s)

	resp := jsonRequest(t, app, http.MethodPost, "/api/themata/nope/threads",
		map[string]string{"title": "orphan"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteThemaRequiresAdmin(t *testing.T) {
	s := newTestServer()

	userApp := newTestApp(testUser)
	registerForumRoutes(userApp, s)

	resp := jsonRequest(t, userApp, http.MethodPost, "/api/themata",
		map[string]string{"name": "doomed"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var thema models.Thema
	decodeBody(t, resp, &thema)

	resp = jsonRequest(t, userApp, http.MethodDelete, "/api/themata/"+thema.ID, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	adminApp := newTestApp(testAdmin)
	registerForumRoutes(adminApp, s)

	resp = jsonRequest(t, adminApp, http.MethodDelete, "/api/themata/"+thema.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = jsonRequest(t, userApp, http.MethodGet, "/api/themata", nil)
	var themata []models.Thema
	decodeBody(t, resp, &themata)
	assert.Empty(t, themata)
}

func TestToggleThreadReaction(t *testing.T) {
	s := newTestServer()
	app := newTestApp(testUser)
	registerForumRoutes(app, s)

	resp := jsonRequest(t, app, http.MethodPost, "/api/themata", map[string]string{"name": "general"})
	var thema models.Thema
	decodeBody(t, resp, &thema)
	resp = jsonRequest(t, app, http.MethodPost, "/api/themata/"+thema.ID+"/threads",
		map[string]string{"title": "reactive"})
	var thread models.Thread
	decodeBody(t, resp, &thread)

	target := "/api/themata/" + thema.ID + "/threads/" + thread.ID + "/reactions"

	resp = jsonRequest(t, app, http.MethodPost, target, map[string]string{"kind": "👍"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result struct {
		Action  string `json:"action"`
		Summary struct {
			Counts         map[string]int `json:"counts"`
			ViewerReaction string         `json:"viewerReaction"`
		} `json:"summary"`
	}
	decodeBody(t, resp, &result)
	assert.Equal(t, "set", result.Action)
	assert.Equal(t, 1, result.Summary.Counts["👍"])
	assert.Equal(t, "👍", result.Summary.ViewerReaction)

	// Tapping the same kind again clears it.
	resp = jsonRequest(t, app, http.MethodPost, target, map[string]string{"kind": "👍"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	// viewerReaction is omitempty on the wire; clear the stale value before
	// decoding into the reused struct so an omitted field reads as empty.
	result.Summary.ViewerReaction = ""
	decodeBody(t, resp, &result)
	assert.Equal(t, "removed", result.Action)
	assert.Equal(t, 0, result.Summary.Counts["👍"])
	assert.Empty(t, result.Summary.ViewerReaction)
}
