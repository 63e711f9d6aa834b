package pg

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"

	"ultra_signals/internal/models"
	"ultra_signals/pkg/db"
)

//go:embed schema.sql
var schemaSQL string

const (
	selectColumns = `SELECT subscriber_id, name, settings, created_at, updated_at FROM subscriptions`

	upsertSQL = `
INSERT INTO subscriptions (subscriber_id, name, settings, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (subscriber_id) DO UPDATE
SET name = EXCLUDED.name, settings = EXCLUDED.settings, updated_at = EXCLUDED.updated_at`
)

// Subscriptions - подписки в postgres, настройки лежат JSONB-колонкой.
type Subscriptions struct {
	db *db.PgTxManager
}

func NewSubscriptions(m *db.PgTxManager) *Subscriptions {
	return &Subscriptions{db: m}
}

// EnsureSchema создаёт таблицу, если её нет.
func (s *Subscriptions) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Conn().Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("pg.EnsureSchema: %w", err)
	}
	return nil
}

func (s *Subscriptions) Get(ctx context.Context, id int64) (sub *models.Subscription, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Get: %w", err)
		}
	}()

	row := s.db.Conn().QueryRow(ctx, selectColumns+` WHERE subscriber_id = $1`, id)
	return scanSubscription(row)
}

func (s *Subscriptions) Save(ctx context.Context, sub *models.Subscription) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Save: %w", err)
		}
	}()
	if err = sub.Settings.Validate(); err != nil {
		return err
	}

	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		return upsert(ctxTx, tx, sub)
	})
}

// Update: SELECT ... FOR UPDATE, fn, валидация, запись - в одной транзакции.
func (s *Subscriptions) Update(
	ctx context.Context,
	id int64,
	fn func(sub *models.Subscription) error,
) (out *models.Subscription, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Update: %w", err)
		}
	}()

	err = s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		cur, err := scanSubscription(tx.QueryRow(ctxTx, selectColumns+` WHERE subscriber_id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		if err := fn(cur); err != nil {
			return err
		}
		if err := cur.Settings.Validate(); err != nil {
			return err
		}
		cur.SubscriberID = id
		cur.UpdatedAt = time.Now().UTC()
		if err := upsert(ctxTx, tx, cur); err != nil {
			return err
		}
		out = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out.Clone(), nil
}

func (s *Subscriptions) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.Conn().Exec(ctx, `DELETE FROM subscriptions WHERE subscriber_id = $1`, id); err != nil {
		return fmt.Errorf("pg.Delete: %w", err)
	}
	return nil
}

func (s *Subscriptions) List(ctx context.Context) (out []*models.Subscription, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.List: %w", err)
		}
	}()

	rows, err := s.db.Conn().Query(ctx, selectColumns+` ORDER BY subscriber_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func upsert(ctx context.Context, tx pgx.Tx, sub *models.Subscription) error {
	data, err := sonic.Marshal(sub.Settings)
	if err != nil {
		return err
	}
	created := sub.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	updated := sub.UpdatedAt
	if updated.IsZero() {
		updated = created
	}
	_, err = tx.Exec(ctx, upsertSQL, sub.SubscriberID, sub.Name, data, created, updated)
	return err
}

func scanSubscription(row pgx.Row) (*models.Subscription, error) {
	var (
		sub  models.Subscription
		data []byte
	)
	if err := row.Scan(&sub.SubscriberID, &sub.Name, &data, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	if err := sonic.Unmarshal(data, &sub.Settings); err != nil {
		return nil, fmt.Errorf("decode settings of %d: %w", sub.SubscriberID, err)
	}
	return &sub, nil
}
