package server

import (
	"context"
	"encoding/json"
	"sync"

	"agora/internal/forum"
	"agora/internal/messaging"
	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// liveFrame is one client request on the live socket.
type liveFrame struct {
	Type           string `json:"type"` // "watch" or "unwatch"
	View           string `json:"view"` // threads | comments | mailbox | messages
	Scope          string `json:"scope,omitempty"`
	ThemaID        string `json:"themaId,omitempty"`
	ThreadID       string `json:"threadId,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
}

// wsSession serializes writes to one connection; snapshot callbacks arrive on
// the store's delivery goroutine while acks come from the read loop.
type wsSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *wsSession) send(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.WriteMessage(websocket.TextMessage, payload)
}

func (s *wsSession) sendError(message string) {
	s.send(fiber.Map{"type": "error", "message": message})
}

// WebSocketLiveHandler serves the live result-set socket. A client opens one
// connection, then watches any number of scopes; every change to a watched
// scope pushes the full recomputed view. Re-watching a scope replaces the
// previous subscription, and closing the connection cancels them all.
func (s *Server) WebSocketLiveHandler() fiber.Handler {
	wsLog := observability.NewWSLogger("live")
	return websocket.New(func(conn *websocket.Conn) {
		observability.WebSocketConnectionsTotal.Inc()
		defer observability.WebSocketConnectionsTotal.Dec()

		idVal := conn.Locals(middleware.IdentityLocal)
		viewer, ok := idVal.(models.Identity)
		if !ok || viewer.UID == "" {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","message":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// One registry per connection: at most one live subscription per
		// scope, all torn down together on disconnect.
		registry := s.newRegistry()
		defer s.hub.Detach(registry)

		forumWatch := forum.NewWatcher(registry, s.logger)
		messagingWatch := messaging.NewWatcher(registry, s.logger)
		session := &wsSession{conn: conn}

		wsLog.LogConnect(ctx, viewer.UID)

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				wsLog.LogDisconnect(ctx, viewer.UID, err.Error())
				return
			}

			var frame liveFrame
			if err := json.Unmarshal(raw, &frame); err != nil {
				wsLog.LogError(ctx, viewer.UID, err, "decode")
				session.sendError("invalid frame")
				continue
			}
			observability.WebSocketEventsTotal.WithLabelValues(frame.Type).Inc()
			wsLog.LogMessage(ctx, viewer.UID, frame.Type)

			switch frame.Type {
			case "watch":
				scope, err := s.openWatch(ctx, frame, viewer, forumWatch, messagingWatch, session)
				if err != nil {
					wsLog.LogError(ctx, viewer.UID, err, "watch")
					session.sendError(err.Error())
					continue
				}
				session.send(fiber.Map{"type": "watching", "view": frame.View, "scope": scope})

			case "unwatch":
				if frame.Scope == "" {
					session.sendError("scope is required")
					continue
				}
				registry.UnsubscribeScope(frame.Scope)
				session.send(fiber.Map{"type": "unwatched", "scope": frame.Scope})

			default:
				session.sendError("unknown frame type")
			}
		}
	})
}

// openWatch starts the subscription a watch frame asks for and returns its
// scope key. Each snapshot is pushed as a frame carrying the full view.
func (s *Server) openWatch(ctx context.Context, frame liveFrame, viewer models.Identity,
	forumWatch *forum.Watcher, messagingWatch *messaging.Watcher, session *wsSession) (string, error) {

	push := func(scope string, data any) {
		session.send(fiber.Map{"type": "snapshot", "view": frame.View, "scope": scope, "data": data})
	}

	switch frame.View {
	case "threads":
		if frame.ThemaID == "" {
			return "", models.NewValidationError("themaId is required")
		}
		scope := models.ThreadsCollection(frame.ThemaID)
		return forumWatch.WatchThreads(ctx, viewer, frame.ThemaID, func(views []forum.ThreadView) {
			push(scope, views)
		})

	case "comments":
		if frame.ThemaID == "" || frame.ThreadID == "" {
			return "", models.NewValidationError("themaId and threadId are required")
		}
		scope := models.CommentsCollection(frame.ThemaID, frame.ThreadID)
		return forumWatch.WatchComments(ctx, viewer, frame.ThemaID, frame.ThreadID, func(views []forum.CommentView) {
			push(scope, views)
		})

	case "mailbox":
		scope := models.MailboxCollection(viewer.UID)
		return messagingWatch.WatchMailbox(ctx, viewer, func(views []*models.ConversationSummary) {
			push(scope, views)
		})

	case "messages":
		if frame.ConversationID == "" {
			return "", models.NewValidationError("conversationId is required")
		}
		scope := models.MessagesCollection(viewer.UID, frame.ConversationID)
		return messagingWatch.WatchMessages(ctx, viewer, frame.ConversationID, func(views []*models.Message) {
			push(scope, views)
		})

	default:
		return "", models.NewValidationError("unknown view")
	}
}
