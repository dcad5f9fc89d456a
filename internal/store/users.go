package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"uk.co.dudmesh.agora/internal/model"
)

func (s *Store) FetchUser(ctx context.Context, id model.UserID) (*model.User, error) {
	return s.fetchUser(ctx, `select * from users where id = ?`, id)
}

func (s *Store) FetchUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.fetchUser(ctx, `select * from users where lower(email) = lower(?)`, email)
}

func (s *Store) fetchUser(ctx context.Context, query string, arg interface{}) (*model.User, error) {
	user := &model.User{}
	err := s.db.GetContext(ctx, user, query, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrorUserNotFound
		}
		return nil, fmt.Errorf("fetching user: %w", err)
	}
	return user, nil
}

func (s *Store) UpdateSignIn(ctx context.Context, id model.UserID, ip string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `update users set current_sign_in_ip = ?, current_sign_in_at = ?, updated_at = ? where id = ?`,
		ip, at, at, id)
	if err != nil {
		return fmt.Errorf("updating sign in: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return model.ErrorUserNotFound
	}
	return nil
}
