package service

import (
	"context"

	"ultra_signals/internal/models"
)

// Store - хранилище подписок. Get/List отдают копии; Update атомарен
// относительно других Update того же подписчика.
type Store interface {
	Get(ctx context.Context, subscriberID int64) (*models.Subscription, error)
	Save(ctx context.Context, sub *models.Subscription) error
	Update(ctx context.Context, subscriberID int64, fn func(sub *models.Subscription) error) (*models.Subscription, error)
	Delete(ctx context.Context, subscriberID int64) error
	List(ctx context.Context) ([]*models.Subscription, error)
}
