package wallet

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"event_wallet/internal/apperr"
	"event_wallet/internal/domain"
)

// Withdrawals reserves payout funds at request time and settles them out of
// band. A rejected request is refunded with a compensating credit.
type Withdrawals struct {
	db     *gorm.DB
	wallet *Service
}

// WithdrawalInput is a user's payout request
type WithdrawalInput struct {
	UserID        uint
	TokenAmount   int64
	BankName      string
	AccountNumber string
	AccountName   string
}

// NewWithdrawals builds the withdrawal queue
func NewWithdrawals(db *gorm.DB, wallet *Service) *Withdrawals {
	return &Withdrawals{db: db, wallet: wallet}
}

// Request debits the wallet and queues the payout. The caller must have
// re-authenticated the user immediately before.
func (w *Withdrawals) Request(ctx context.Context, in WithdrawalInput) (*domain.WithdrawalRequest, *Result, error) {
	if in.TokenAmount < 1 {
		return nil, nil, apperr.ErrInvalidAmount
	}
	in.BankName = strings.TrimSpace(in.BankName)
	in.AccountNumber = strings.TrimSpace(in.AccountNumber)
	in.AccountName = strings.TrimSpace(in.AccountName)
	if in.BankName == "" || in.AccountNumber == "" || in.AccountName == "" {
		return nil, nil, apperr.WithMessage(apperr.ErrInvalidRequest, "bank details are required")
	}

	var (
		req domain.WithdrawalRequest
		res *Result
	)
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		res, err = w.wallet.debit(tx, DebitRequest{
			UserID:      in.UserID,
			TokenAmount: in.TokenAmount,
			Description: fmt.Sprintf("withdrawal to %s", in.BankName),
			Type:        domain.TypeWithdrawal,
			Pending:     true,
		})
		if err != nil {
			return err
		}
		req = domain.WithdrawalRequest{
			UserID:        in.UserID,
			TokenAmount:   in.TokenAmount,
			BankName:      in.BankName,
			AccountNumber: in.AccountNumber,
			AccountName:   in.AccountName,
			TransactionID: res.Transaction.ID,
		}
		return tx.Create(&req).Error
	})
	if err != nil {
		return nil, nil, apperr.Persistence(err)
	}
	w.wallet.committed(ctx, "Withdrawal requested", res)
	return &req, res, nil
}

// Approve flags a request as approved for payout
func (w *Withdrawals) Approve(ctx context.Context, id uint) (*domain.WithdrawalRequest, error) {
	db := w.db.WithContext(ctx)
	res := db.Model(&domain.WithdrawalRequest{}).
		Where("id = ? AND rejected = ?", id, false).
		Update("approved", true)
	if res.Error != nil {
		return nil, apperr.Persistence(res.Error)
	}
	req, err := w.get(db, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 && req.Rejected {
		return nil, apperr.WithMessage(apperr.ErrConflict, "withdrawal already rejected")
	}
	return req, nil
}

// MarkSent records the payout of an approved request and completes its
// pending ledger row.
func (w *Withdrawals) MarkSent(ctx context.Context, id uint, sentAmount int64) (*domain.WithdrawalRequest, error) {
	if sentAmount < 0 {
		return nil, apperr.ErrInvalidAmount
	}
	var req *domain.WithdrawalRequest
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := w.get(tx, id)
		if err != nil {
			return err
		}
		if sentAmount == 0 {
			sentAmount = current.TokenAmount
		}
		now := w.wallet.now()
		res := tx.Model(&domain.WithdrawalRequest{}).
			Where("id = ? AND approved = ? AND sent = ? AND rejected = ?", id, true, false, false).
			Updates(map[string]any{"sent": true, "sent_amount": sentAmount, "sent_time": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return settlementConflict(current)
		}
		if _, err := w.wallet.transition(tx, current.TransactionID, domain.StatusPending, domain.StatusCompleted); err != nil {
			return err
		}
		req, err = w.get(tx, id)
		return err
	})
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	logrus.WithFields(logrus.Fields{
		"withdrawal_id": id,
		"user_id":       req.UserID,
		"sent_amount":   req.SentAmount,
	}).Info("Withdrawal sent")
	return req, nil
}

// Reject cancels an unsent request, fails its ledger row and refunds the
// reserved tokens. The refund reference is derived from the request id, so
// repeating a rejection never refunds twice.
func (w *Withdrawals) Reject(ctx context.Context, id uint, reason string) (*domain.WithdrawalRequest, *Result, error) {
	var (
		req    *domain.WithdrawalRequest
		refund *Result
	)
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := w.get(tx, id)
		if err != nil {
			return err
		}
		res := tx.Model(&domain.WithdrawalRequest{}).
			Where("id = ? AND sent = ? AND rejected = ?", id, false, false).
			Updates(map[string]any{"rejected": true, "approved": false, "reject_reason": reason})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 && !current.Rejected {
			return settlementConflict(current)
		}
		if _, err := w.wallet.transition(tx, current.TransactionID, domain.StatusPending, domain.StatusFailed); err != nil {
			return err
		}
		refund, err = w.wallet.credit(tx, CreditRequest{
			UserID:      current.UserID,
			Reference:   withdrawalRefundPrefix + strconv.FormatUint(uint64(id), 10),
			TokenAmount: current.TokenAmount,
			Description: fmt.Sprintf("refund of rejected withdrawal #%d", id),
		})
		if err != nil {
			return err
		}
		req, err = w.get(tx, id)
		return err
	})
	if err != nil {
		return nil, nil, apperr.Persistence(err)
	}
	w.wallet.committed(ctx, "Withdrawal rejected and refunded", refund)
	return req, refund, nil
}

// ForUser lists a user's requests, newest first
func (w *Withdrawals) ForUser(ctx context.Context, userID uint) ([]domain.WithdrawalRequest, error) {
	var reqs []domain.WithdrawalRequest
	if err := w.db.WithContext(ctx).Where("user_id = ?", userID).Order("id desc").Find(&reqs).Error; err != nil {
		return nil, apperr.Persistence(err)
	}
	return reqs, nil
}

// Open lists requests that are neither sent nor rejected, oldest first
func (w *Withdrawals) Open(ctx context.Context) ([]domain.WithdrawalRequest, error) {
	var reqs []domain.WithdrawalRequest
	err := w.db.WithContext(ctx).
		Where("sent = ? AND rejected = ?", false, false).
		Order("id asc").
		Find(&reqs).Error
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	return reqs, nil
}

func (w *Withdrawals) get(db *gorm.DB, id uint) (*domain.WithdrawalRequest, error) {
	var req domain.WithdrawalRequest
	if err := db.First(&req, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.WithMessage(apperr.ErrNotFound, "withdrawal not found")
		}
		return nil, err
	}
	return &req, nil
}

func settlementConflict(req *domain.WithdrawalRequest) error {
	switch {
	case req.Rejected:
		return apperr.WithMessage(apperr.ErrConflict, "withdrawal already rejected")
	case req.Sent:
		return apperr.WithMessage(apperr.ErrConflict, "withdrawal already sent")
	case !req.Approved:
		return apperr.WithMessage(apperr.ErrConflict, "withdrawal not approved")
	default:
		return apperr.ErrConflict
	}
}
