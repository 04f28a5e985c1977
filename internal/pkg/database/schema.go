package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// schemaStatements hold the DDL for every table this service owns.
// Statements are idempotent so startup can run them on every boot;
// deployments with managed migrations see them as no-ops.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id uuid PRIMARY KEY,
		email text NOT NULL UNIQUE,
		paid boolean NOT NULL DEFAULT false,
		referer_id uuid REFERENCES accounts(id),
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS students (
		id uuid PRIMARY KEY,
		account_id uuid NOT NULL REFERENCES accounts(id),
		full_name text NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS courses (
		id uuid PRIMARY KEY,
		title text NOT NULL,
		level int NOT NULL DEFAULT 1,
		is_trial boolean NOT NULL DEFAULT false,
		is_regular boolean NOT NULL DEFAULT true,
		price_cents bigint NOT NULL DEFAULT 0,
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS classes (
		id uuid PRIMARY KEY,
		course_id uuid NOT NULL REFERENCES courses(id),
		starts_at timestamptz NOT NULL,
		ends_at timestamptz NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS promotions (
		id uuid PRIMARY KEY,
		code text NOT NULL UNIQUE,
		amount_off_cents bigint NOT NULL DEFAULT 0,
		percent_off int NOT NULL DEFAULT 0,
		max_uses int NOT NULL DEFAULT 0,
		counts int NOT NULL DEFAULT 0,
		course_id uuid REFERENCES courses(id),
		first_purchase_only boolean NOT NULL DEFAULT false,
		expires_at timestamptz,
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS credits (
		id uuid PRIMARY KEY,
		account_id uuid NOT NULL REFERENCES accounts(id),
		amount_cents bigint NOT NULL,
		type text NOT NULL,
		student_id uuid REFERENCES students(id),
		class_id uuid REFERENCES classes(id),
		note text NOT NULL DEFAULT '',
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_credits_account_id ON credits(account_id)`,
	`CREATE TABLE IF NOT EXISTS payment_transactions (
		id uuid PRIMARY KEY,
		account_id uuid NOT NULL REFERENCES accounts(id),
		amount_cents bigint NOT NULL,
		gateway text NOT NULL,
		gateway_txn_id text NOT NULL,
		status text NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS enrollments (
		id uuid PRIMARY KEY,
		student_id uuid NOT NULL REFERENCES students(id),
		class_id uuid NOT NULL REFERENCES classes(id),
		source text NOT NULL DEFAULT '',
		campaign text NOT NULL DEFAULT '',
		promotion_id uuid REFERENCES promotions(id),
		credit_id uuid REFERENCES credits(id),
		payment_transaction_id uuid REFERENCES payment_transactions(id),
		created_at timestamptz NOT NULL DEFAULT now(),
		UNIQUE (student_id, class_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_enrollments_student_id ON enrollments(student_id)`,
	`CREATE TABLE IF NOT EXISTS payment_reconciliations (
		id uuid PRIMARY KEY,
		gateway_txn_id text NOT NULL,
		amount_cents bigint NOT NULL,
		reason text NOT NULL DEFAULT '',
		status text NOT NULL DEFAULT 'pending',
		retry_count int NOT NULL DEFAULT 0,
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,
}

// EnsureSchema creates any missing tables owned by this service.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	log.Info().Msg("Database schema verified")
	return nil
}
