package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"kasir/internal/core"
	applog "kasir/internal/log"
)

const (
	streamBuffer    = 16
	streamKeepAlive = 25 * time.Second
)

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	ns, err := s.svc.Notifications.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newNotificationViews(ns))
}

type createNotificationRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// handleCreateNotification broadcasts a notification to every subscriber.
func (s *Server) handleCreateNotification(w http.ResponseWriter, r *http.Request) {
	if _, err := userID(r); err != nil {
		writeError(w, r, err)
		return
	}
	var req createNotificationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	n, err := s.svc.Notifications.Create(r.Context(), sanitizeInput(req.Title), sanitizeInput(req.Description))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newNotificationView(n))
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Notifications.MarkAsRead(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.Notifications.MarkAllAsRead(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": n})
}

// handleNotificationStream pushes inserted notifications as server-sent
// events until the client goes away. A client too slow to drain its buffer
// misses events rather than stalling the feed.
func (s *Server) handleNotificationStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)
	rc := http.NewResponseController(w)

	events := make(chan core.Notification, streamBuffer)
	sub, err := s.svc.Notifications.Subscribe(ctx, func(n core.Notification) {
		select {
		case events <- n:
		default:
			logger.WarnContext(ctx, "Notification stream buffer full, dropping event", "notification_id", n.ID)
		}
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer sub.Close()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		logger.WarnContext(ctx, "Streaming unsupported by response writer", "error", err)
		return
	}
	logger.InfoContext(ctx, "Notification stream opened")

	ticker := time.NewTicker(streamKeepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.InfoContext(ctx, "Notification stream closed")
			return
		case n := <-events:
			data, err := json.Marshal(newNotificationView(n))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to encode notification", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: notification\ndata: %s\n\n", n.ID, data); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

type registerPushTokenRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

func (s *Server) handleRegisterPushToken(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req registerPushTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.svc.PushTokens.Register(r.Context(), uid, req.Token, req.Platform)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pushTokenView{UserID: t.UserID, Token: t.Token, Platform: t.Platform, Timestamp: t.Timestamp})
}

func (s *Server) handleGetPushToken(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.svc.PushTokens.Get(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pushTokenView{UserID: t.UserID, Token: t.Token, Platform: t.Platform, Timestamp: t.Timestamp})
}
