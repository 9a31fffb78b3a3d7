package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/cehpoint/backend/internal/models"
)

func payoutWorker(balance int64, verified bool) *models.User {
	return &models.User{
		ID:            uuid.New(),
		Role:          models.RoleWorker,
		AccountStatus: models.AccountStatusActive,
		BalanceCents:  balance,
		PayoutAccount: &models.PayoutAccount{Provider: "stripe", Reference: "acct_123", Verified: verified},
	}
}

func TestWithdraw(t *testing.T) {
	w := payoutWorker(50000, true)
	svc, _, ur, pr := newTestLifecycle(w)
	ctx := context.Background()

	p, err := svc.Withdraw(ctx, w.ID, 20000)
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if p.Type != models.PaymentTypeWithdrawal {
		t.Errorf("payment type: got %s, want withdrawal", p.Type)
	}
	if p.Status != models.PaymentStatusPending {
		t.Errorf("payment status: got %s, want pending", p.Status)
	}
	if p.AmountCents != 20000 {
		t.Errorf("payment amount: got %d, want 20000", p.AmountCents)
	}
	if got := ur.balance(w.ID); got != 30000 {
		t.Errorf("balance after withdrawal: got %d, want 30000", got)
	}
	if len(pr.byType(models.PaymentTypeWithdrawal)) != 1 {
		t.Errorf("withdrawal payments: got %d, want 1", len(pr.payments))
	}
}

func TestWithdraw_InsufficientFunds(t *testing.T) {
	w := payoutWorker(10000, true)
	svc, _, ur, pr := newTestLifecycle(w)
	ctx := context.Background()

	if _, err := svc.Withdraw(ctx, w.ID, 10001); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("overdraw: got %v, want ErrInsufficientFunds", err)
	}
	if got := ur.balance(w.ID); got != 10000 {
		t.Errorf("balance after failed withdrawal: got %d, want 10000", got)
	}
	if len(pr.payments) != 0 {
		t.Errorf("payments after failed withdrawal: got %d, want 0", len(pr.payments))
	}

	// Retrying with the same amount fails the same way.
	if _, err := svc.Withdraw(ctx, w.ID, 10001); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("repeat overdraw: got %v, want ErrInsufficientFunds", err)
	}
	if got := ur.balance(w.ID); got != 10000 {
		t.Errorf("balance must not drift on repeated failures: got %d", got)
	}
}

func TestWithdraw_UnverifiedAccount(t *testing.T) {
	ctx := context.Background()

	// Verification is checked before the balance, so a fully funded worker
	// with an unverified account is still refused.
	unverified := payoutWorker(100000, false)
	svc, _, ur, pr := newTestLifecycle(unverified)
	if _, err := svc.Withdraw(ctx, unverified.ID, 1000); !errors.Is(err, ErrUnverifiedAccount) {
		t.Fatalf("unverified account: got %v, want ErrUnverifiedAccount", err)
	}

	// No payout account at all.
	none := payoutWorker(100000, true)
	none.PayoutAccount = nil
	svc2, _, _, _ := newTestLifecycle(none)
	if _, err := svc2.Withdraw(ctx, none.ID, 1000); !errors.Is(err, ErrUnverifiedAccount) {
		t.Fatalf("missing payout account: got %v, want ErrUnverifiedAccount", err)
	}

	if got := ur.balance(unverified.ID); got != 100000 {
		t.Errorf("balance after refused withdrawal: got %d, want 100000", got)
	}
	if len(pr.payments) != 0 {
		t.Errorf("payments after refused withdrawal: got %d, want 0", len(pr.payments))
	}
}

func TestWithdraw_InvalidAmount(t *testing.T) {
	w := payoutWorker(50000, true)
	svc, _, _, pr := newTestLifecycle(w)
	ctx := context.Background()

	for _, amount := range []int64{0, -500} {
		if _, err := svc.Withdraw(ctx, w.ID, amount); !errors.Is(err, ErrValidation) {
			t.Errorf("withdraw %d: got %v, want ErrValidation", amount, err)
		}
	}
	if len(pr.payments) != 0 {
		t.Errorf("payments after invalid amounts: got %d, want 0", len(pr.payments))
	}
}
