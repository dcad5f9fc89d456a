package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"uk.co.dudmesh.agora/internal/filter"
	"uk.co.dudmesh.agora/internal/model"
)

// CreateAccount inserts account and, when user is not nil, its user and an
// empty stats row in the same transaction. Usernames are unique per domain and
// emails are unique, both ignoring case.
func (s *Store) CreateAccount(ctx context.Context, account *model.Account, user *model.User) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.NamedExecContext(ctx, `insert into accounts
		(id, username, domain, display_name, note, suspended, silenced, spam_flag, is_pro, is_investor, is_donor, is_verified, created_at)
		values(:id, :username, :domain, :display_name, :note, :suspended, :silenced, :spam_flag, :is_pro, :is_investor, :is_donor, :is_verified, :created_at)`, account)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrorUsernameTaken
		}
		return fmt.Errorf("inserting account: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `insert into account_stats (account_id) values(?)`, account.ID); err != nil {
		return fmt.Errorf("inserting account stats: %w", err)
	}

	if user != nil {
		user.AccountID = account.ID
		res, err := tx.NamedExecContext(ctx, `insert into users
			(id, account_id, created_at, email, password, confirmed, approved, admin, moderator, current_sign_in_ip, current_sign_in_at)
			values(:id, :account_id, :created_at, :email, :password, :confirmed, :approved, :admin, :moderator, :current_sign_in_ip, :current_sign_in_at)`, user)
		if err != nil {
			if isUniqueViolation(err) {
				return model.ErrorEmailTaken
			}
			return fmt.Errorf("inserting user: %w", err)
		}
		if err := expectOneRow(res); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing account: %w", err)
	}
	return nil
}

func (s *Store) FetchAccount(ctx context.Context, id model.AccountID) (*model.Account, error) {
	account := &model.Account{}
	err := s.db.GetContext(ctx, account, `select * from accounts where id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrorAccountNotFound
		}
		return nil, fmt.Errorf("fetching account: %w", err)
	}
	return account, nil
}

func (s *Store) SetStatusesCount(ctx context.Context, id model.AccountID, count int64) error {
	_, err := s.db.ExecContext(ctx, `insert into account_stats (account_id, statuses_count) values(?, ?)
		on conflict(account_id) do update set statuses_count = excluded.statuses_count`, id, count)
	if err != nil {
		return fmt.Errorf("updating account stats: %w", err)
	}
	return nil
}

// FilterAccounts runs a composed account scope and loads the user of every
// local account in the page.
func (s *Store) FilterAccounts(ctx context.Context, scope filter.Scope, page filter.Page) ([]*model.AccountWithUser, error) {
	if scope.IsNone() {
		return []*model.AccountWithUser{}, nil
	}

	query, args := filter.SQL(scope, page)
	accounts := []model.Account{}
	if err := s.db.SelectContext(ctx, &accounts, query, args...); err != nil {
		return nil, fmt.Errorf("filtering accounts: %w", err)
	}

	results := make([]*model.AccountWithUser, len(accounts))
	ids := make([]model.AccountID, len(accounts))
	for i := range accounts {
		results[i] = &model.AccountWithUser{Account: accounts[i]}
		ids[i] = accounts[i].ID
	}
	if len(ids) == 0 {
		return results, nil
	}

	query, args, err := sqlx.In(`select * from users where account_id in (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("building user query: %w", err)
	}
	users := []model.User{}
	if err := s.db.SelectContext(ctx, &users, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("loading users: %w", err)
	}

	byAccount := make(map[model.AccountID]*model.User, len(users))
	for i := range users {
		byAccount[users[i].AccountID] = &users[i]
	}
	for _, result := range results {
		result.User = byAccount[result.ID]
	}

	return results, nil
}
