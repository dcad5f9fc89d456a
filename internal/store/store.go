package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

const driverName = "sqlite3_agora"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("inet_contains", inetContains, true)
		},
	})
}

type Store struct {
	db *sqlx.DB
}

// Open connects to the sqlite database at dsn and creates any missing tables.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Connect(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	store := &Store{db}
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) createTables() error {
	statements := []struct {
		name string
		sql  string
	}{
		{"accounts", `create table if not exists accounts(
			id           text not null primary key,
			username     text not null,
			domain       text null,
			display_name text not null default '',
			note         text not null default '',
			suspended    boolean not null default 0,
			silenced     boolean not null default 0,
			spam_flag    tinyint not null default 0,
			is_pro       boolean not null default 0,
			is_investor  boolean not null default 0,
			is_donor     boolean not null default 0,
			is_verified  boolean not null default 0,
			created_at   datetime not null
		)`},
		{"accounts username index", `create unique index if not exists index_accounts_on_username_and_domain
			on accounts(lower(username), coalesce(domain, ''))`},
		{"account_stats", `create table if not exists account_stats(
			account_id     text not null primary key references accounts(id) on delete cascade,
			statuses_count integer not null default 0
		)`},
		{"users", `create table if not exists users(
			id                 text not null primary key,
			account_id         text not null unique references accounts(id) on delete cascade,
			created_at         datetime not null,
			updated_at         datetime null,
			email              text not null,
			password           text not null default '',
			confirmed          boolean not null default 0,
			approved           boolean not null default 1,
			admin              boolean not null default 0,
			moderator          boolean not null default 0,
			current_sign_in_ip text null,
			current_sign_in_at datetime null
		)`},
		{"users email index", `create unique index if not exists index_users_on_email
			on users(lower(email))`},
		{"backups", `create table if not exists backups(
			id             text not null primary key,
			user_id        text not null references users(id) on delete cascade,
			status         tinyint not null default 0,
			dump_file      text not null default '',
			dump_file_size integer not null default 0,
			error_message  text not null default '',
			created_at     datetime not null,
			processed_at   datetime null
		)`},
		{"backups user index", `create index if not exists index_backups_on_user_id_and_created_at
			on backups(user_id, created_at)`},
		{"email_domain_blocks", `create table if not exists email_domain_blocks(
			id         text not null primary key,
			domain     text not null unique,
			created_at datetime not null
		)`},
	}

	for _, statement := range statements {
		if _, err := s.db.Exec(statement.sql); err != nil {
			return fmt.Errorf("creating %s: %w", statement.name, err)
		}
	}
	return nil
}

func expectOneRow(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rows != 1 {
		return fmt.Errorf("expected 1 row to be affected, got %d", rows)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
