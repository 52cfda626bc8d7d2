package service

import (
	"context"

	"rentchain-backend/internal/domain"
	"rentchain-backend/internal/logger"
	"rentchain-backend/internal/repository"
)

const maxPageSize = 100

type notificationService struct {
	noteRepo repository.NotificationRepository
	pusher   PushService
}

func NewNotificationService(noteRepo repository.NotificationRepository, pusher PushService) NotificationService {
	return &notificationService{noteRepo: noteRepo, pusher: pusher}
}

func (s *notificationService) Notify(ctx context.Context, note *domain.Notification) error {
	if err := s.noteRepo.Create(ctx, note); err != nil {
		logger.Error("Failed to store notification", "userID", note.UserID, "title", note.Title, "error", err)
		return err
	}
	if s.pusher != nil {
		if err := s.pusher.Push(ctx, note); err != nil {
			logger.Warn("Push delivery failed", "userID", note.UserID, "notificationID", note.ID, "error", err)
		}
	}
	return nil
}

func (s *notificationService) GetNotifications(ctx context.Context, actor domain.Actor, page, pageSize int32) ([]domain.Notification, int32, error) {
	if !actor.Authenticated() {
		return nil, 0, domain.NewError(domain.KindUnauthorized, "authentication required")
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = 20
	}
	offset := (page - 1) * pageSize
	return s.noteRepo.List(ctx, actor.ID, pageSize, offset)
}

func (s *notificationService) MarkAsRead(ctx context.Context, actor domain.Actor, notificationID string) error {
	if !actor.Authenticated() {
		return domain.NewError(domain.KindUnauthorized, "authentication required")
	}
	return s.noteRepo.MarkAsRead(ctx, notificationID, actor.ID)
}
