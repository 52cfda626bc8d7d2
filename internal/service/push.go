package service

import (
	"context"
	"fmt"

	"rentchain-backend/internal/config"
	"rentchain-backend/internal/domain"
	"rentchain-backend/internal/logger"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// messageSender is the subset of *messaging.Client used for push delivery.
type messageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

type pushService struct {
	sender messageSender
}

// NewPushService delivers notifications through Firebase Cloud Messaging. Each
// user's devices subscribe to the topic "user-<id>". Without credentials
// pushes are skipped.
func NewPushService(ctx context.Context, cfg config.PushConfig) (PushService, error) {
	if cfg.CredentialsFile == "" {
		logger.Warn("Firebase credentials not set, push notifications disabled")
		return &pushService{}, nil
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase messaging: %w", err)
	}
	return &pushService{sender: client}, nil
}

func pushTopic(userID string) string {
	return "user-" + userID
}

func (s *pushService) Push(ctx context.Context, note *domain.Notification) error {
	if s.sender == nil {
		return nil
	}
	data := make(map[string]string, len(note.Attributes)+1)
	for k, v := range note.Attributes {
		data[k] = v
	}
	data["notification_id"] = note.ID

	logger.ExternalServiceCall("FCM", "Send", "userID", note.UserID, "title", note.Title)
	id, err := s.sender.Send(ctx, &messaging.Message{
		Topic: pushTopic(note.UserID),
		Notification: &messaging.Notification{
			Title: note.Title,
			Body:  note.Message,
		},
		Data: data,
	})
	logger.ExternalServiceResult("FCM", "Send", err, "messageID", id)
	return err
}
