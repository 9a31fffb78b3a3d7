package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/cehpoint/backend/internal/models"
)

// Withdraw debits the worker's balance and records a pending withdrawal
// payment. The payout account must be verified before any amount is checked.
func (s *Lifecycle) Withdraw(ctx context.Context, workerID uuid.UUID, amountCents int64) (*models.Payment, error) {
	if amountCents <= 0 {
		return nil, fmt.Errorf("%w: amount must be a positive number", ErrValidation)
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin withdraw tx: %w", err)
	}
	defer tx.Rollback(ctx)

	worker, err := s.UserRepo.GetByIDForUpdate(ctx, tx, workerID)
	if err != nil {
		return nil, fmt.Errorf("lock worker: %w", err)
	}
	if worker.PayoutAccount == nil || !worker.PayoutAccount.Verified {
		return nil, ErrUnverifiedAccount
	}
	if amountCents > worker.BalanceCents {
		return nil, ErrInsufficientFunds
	}

	newBalance, err := s.UserRepo.DeductBalance(ctx, tx, workerID, amountCents)
	if err != nil {
		return nil, fmt.Errorf("debit worker: %w", err)
	}

	payment := &models.Payment{
		ID:          uuid.New(),
		UserID:      workerID,
		AmountCents: amountCents,
		Type:        models.PaymentTypeWithdrawal,
		Status:      models.PaymentStatusPending,
	}
	if err := s.PaymentRepo.CreateTx(ctx, tx, payment); err != nil {
		return nil, fmt.Errorf("record withdrawal: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit withdraw tx: %w", err)
	}

	s.Logger.Info("withdrawal requested",
		"worker_id", workerID, "amount_cents", amountCents, "worker_balance_cents", newBalance)
	return payment, nil
}
