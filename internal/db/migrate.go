package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		full_name TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		skills TEXT[] NOT NULL DEFAULT '{}',
		experience TEXT NOT NULL DEFAULT '',
		timezone TEXT NOT NULL DEFAULT '',
		account_status TEXT NOT NULL DEFAULT 'pending',
		balance_cents BIGINT NOT NULL DEFAULT 0 CHECK (balance_cents >= 0),
		payout_provider TEXT,
		payout_reference TEXT,
		payout_verified BOOLEAN NOT NULL DEFAULT FALSE,
		knowledge_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		demo_task_completed BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id UUID PRIMARY KEY,
		created_by UUID NOT NULL REFERENCES users(id),
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL,
		skills TEXT[] NOT NULL DEFAULT '{}',
		weekly_payout_cents BIGINT NOT NULL CHECK (weekly_payout_cents > 0),
		deadline DATE NOT NULL,
		status TEXT NOT NULL DEFAULT 'available',
		assigned_to UUID REFERENCES users(id),
		submission_url TEXT NOT NULL DEFAULT '',
		feedback TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		completed_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id),
		amount_cents BIGINT NOT NULL CHECK (amount_cents > 0),
		type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		task_id UUID REFERENCES tasks(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		completed_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_assigned_to ON tasks (assigned_to)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks (status)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_user_id ON payments (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_task_id ON payments (task_id)`,
}

// Migrate creates the application tables if they do not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
