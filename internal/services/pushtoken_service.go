package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"kasir/internal/core"
	"kasir/internal/ports"
)

type PushTokenService struct {
	store ports.PushTokenStore
	now   func() time.Time
}

func NewPushTokenService(store ports.PushTokenStore) *PushTokenService {
	return &PushTokenService{store: store, now: time.Now}
}

// Register merges the device token into the user's document.
func (s *PushTokenService) Register(ctx context.Context, userID, token, platform string) (core.PushToken, error) {
	t := core.PushToken{
		UserID:    strings.TrimSpace(userID),
		Token:     strings.TrimSpace(token),
		Platform:  strings.TrimSpace(platform),
		Timestamp: s.now().UTC(),
	}
	if err := t.Validate(); err != nil {
		return core.PushToken{}, err
	}
	if err := s.store.UpsertPushToken(ctx, t); err != nil {
		return core.PushToken{}, fmt.Errorf("save push token: %w", err)
	}
	slog.InfoContext(ctx, "Push token registered", "user_id", t.UserID, "platform", t.Platform)
	return t, nil
}

func (s *PushTokenService) Get(ctx context.Context, userID string) (core.PushToken, error) {
	return s.store.GetPushToken(ctx, userID)
}
