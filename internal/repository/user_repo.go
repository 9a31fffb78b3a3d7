package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cehpoint/backend/internal/models"
)

const userColumns = `id, email, password_hash, role, full_name, phone, skills, experience, timezone,
	account_status, balance_cents, payout_provider, payout_reference, payout_verified,
	knowledge_score, demo_task_completed, created_at, updated_at`

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	var payoutProvider, payoutReference *string
	var payoutVerified bool
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.FullName, &u.Phone, &u.Skills,
		&u.Experience, &u.Timezone, &u.AccountStatus, &u.BalanceCents,
		&payoutProvider, &payoutReference, &payoutVerified,
		&u.KnowledgeScore, &u.DemoTaskCompleted, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if payoutProvider != nil {
		u.PayoutAccount = &models.PayoutAccount{
			Provider:  *payoutProvider,
			Reference: derefString(payoutReference),
			Verified:  payoutVerified,
		}
	}
	return &u, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func payoutFields(u *models.User) (provider, reference *string, verified bool) {
	if u.PayoutAccount == nil {
		return nil, nil, false
	}
	return &u.PayoutAccount.Provider, &u.PayoutAccount.Reference, u.PayoutAccount.Verified
}

func (r *UserRepo) Create(ctx context.Context, u *models.User) error {
	provider, reference, verified := payoutFields(u)
	return r.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, password_hash, role, full_name, phone, skills, experience, timezone,
			account_status, balance_cents, payout_provider, payout_reference, payout_verified,
			knowledge_score, demo_task_completed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING created_at, updated_at
	`, u.ID, u.Email, u.PasswordHash, u.Role, u.FullName, u.Phone, u.Skills, u.Experience, u.Timezone,
		u.AccountStatus, u.BalanceCents, provider, reference, verified,
		u.KnowledgeScore, u.DemoTaskCompleted).Scan(&u.CreatedAt, &u.UpdatedAt)
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *UserRepo) Update(ctx context.Context, u *models.User) error {
	provider, reference, verified := payoutFields(u)
	_, err := r.pool.Exec(ctx, `
		UPDATE users SET email = $2, password_hash = $3, role = $4, full_name = $5, phone = $6,
			skills = $7, experience = $8, timezone = $9, account_status = $10, balance_cents = $11,
			payout_provider = $12, payout_reference = $13, payout_verified = $14,
			knowledge_score = $15, demo_task_completed = $16, updated_at = now()
		WHERE id = $1
	`, u.ID, u.Email, u.PasswordHash, u.Role, u.FullName, u.Phone, u.Skills, u.Experience, u.Timezone,
		u.AccountStatus, u.BalanceCents, provider, reference, verified,
		u.KnowledgeScore, u.DemoTaskCompleted)
	return err
}

// ListWorkers returns every worker account, newest first.
func (r *UserRepo) ListWorkers(ctx context.Context) ([]*models.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY created_at DESC
	`, models.RoleWorker)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// SetAccountStatus updates a worker's lifecycle status only when the current
// status is one of allowedFrom. Returns false when no row matched, which
// means the transition was not allowed (or the user does not exist).
func (r *UserRepo) SetAccountStatus(ctx context.Context, id uuid.UUID, status string, allowedFrom []string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET account_status = $2, updated_at = now()
		WHERE id = $1 AND role = $3 AND account_status = ANY($4)
	`, id, status, models.RoleWorker, allowedFrom)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SetDemoTaskCompleted raises the demo gate for a worker. It is never
// lowered again; a later failing attempt cannot revoke it.
func (r *UserRepo) SetDemoTaskCompleted(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users SET demo_task_completed = TRUE, updated_at = now()
		WHERE id = $1
	`, id)
	return err
}

// GetByIDForUpdate locks the user row for update. Call within a transaction.
func (r *UserRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.User, error) {
	return scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
}

// AddBalance credits amount to the user and returns the new balance.
func (r *UserRepo) AddBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (newBalance int64, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE users SET balance_cents = balance_cents + $1, updated_at = now()
		WHERE id = $2
		RETURNING balance_cents
	`, amount, id).Scan(&newBalance)
	return newBalance, err
}

// DeductBalance atomically debits amount if the balance covers it.
// Scanning fails with no rows when it does not.
func (r *UserRepo) DeductBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (newBalance int64, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE users SET balance_cents = balance_cents - $1, updated_at = now()
		WHERE id = $2 AND balance_cents >= $1
		RETURNING balance_cents
	`, amount, id).Scan(&newBalance)
	return newBalance, err
}
