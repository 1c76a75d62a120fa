// Package wallet is the only code that mutates token balances. Every balance
// change is written in one database transaction together with its ledger row,
// keyed by a unique reference so repeated callbacks never credit twice.
package wallet

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"event_wallet/internal/apperr"
	"event_wallet/internal/domain"
	"event_wallet/internal/utils"
)

// errReferenceTaken aborts a database transaction whose ledger insert lost a
// race on the unique reference index.
var errReferenceTaken = errors.New("reference taken")

// ContestTarget tags a ledger entry with the contest entry it affects
type ContestTarget struct {
	EventID     uint
	CandidateID uint
}

// CreditRequest describes a balance increase
type CreditRequest struct {
	UserID      uint
	Reference   string
	TokenAmount int64
	Description string
	Gift        *ContestTarget // Gift payments also raise the entry's gift total
}

// DebitRequest describes a balance decrease
type DebitRequest struct {
	UserID      uint
	TokenAmount int64
	Description string
	Type        string // domain.TypeWithdrawal or domain.TypeVote
	Reference   string // Generated from Type when empty
	Pending     bool   // Write the ledger row as pending (withdrawals)
	Target      *ContestTarget
}

// PendingRequest registers an expected payment before the provider confirms it
type PendingRequest struct {
	UserID      uint
	Reference   string
	TokenAmount int64
	Type        string
	Description string
	Target      *ContestTarget
}

// Result of a ledger operation. Duplicate is set when the reference had
// already been processed and nothing changed.
type Result struct {
	Transaction domain.Transaction `json:"transaction"`
	Balance     int64              `json:"balance"`
	Duplicate   bool               `json:"duplicate"`
}

// Service mutates wallets
type Service struct {
	db        *gorm.DB
	rdb       *redis.Client
	unitPrice int64
	now       func() time.Time
}

// NewService wires the ledger to its store. rdb may be nil.
func NewService(db *gorm.DB, rdb *redis.Client, unitPrice int64) *Service {
	return &Service{db: db, rdb: rdb, unitPrice: unitPrice, now: time.Now}
}

// FiatAmount converts tokens to local currency
func (s *Service) FiatAmount(tokens int64) int64 {
	return tokens * s.unitPrice
}

// MinorPerToken is what the card processor charges for one token, in minor
// units of the local currency
func (s *Service) MinorPerToken() int64 {
	return MinorUnits(s.unitPrice)
}

// Credit adds tokens to a wallet exactly once per reference
func (s *Service) Credit(ctx context.Context, req CreditRequest) (*Result, error) {
	if err := validateReference(req.Reference); err != nil {
		return nil, err
	}
	if req.TokenAmount <= 0 {
		return nil, apperr.ErrInvalidAmount
	}

	var res *Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		res, err = s.credit(tx, req)
		return err
	})
	if errors.Is(err, errReferenceTaken) {
		return s.replay(ctx, req.UserID, req.Reference, domain.StatusCompleted, creditType(req))
	}
	if err != nil {
		s.logFailure("Credit failed", req.UserID, req.Reference, req.TokenAmount, err)
		return nil, apperr.Persistence(err)
	}
	s.committed(ctx, "Credit transaction", res)
	return res, nil
}

// Debit removes tokens from a wallet. It fails with InsufficientBalance and
// changes nothing when the balance is lower than the amount.
func (s *Service) Debit(ctx context.Context, req DebitRequest) (*Result, error) {
	if req.TokenAmount <= 0 {
		return nil, apperr.ErrInvalidAmount
	}
	req = debitDefaults(req)
	var res *Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		res, err = s.debit(tx, req)
		return err
	})
	if errors.Is(err, errReferenceTaken) {
		return s.replay(ctx, req.UserID, req.Reference, debitStatus(req.Pending), req.Type)
	}
	if err != nil {
		if !errors.Is(err, apperr.ErrInsufficientBalance) {
			s.logFailure("Debit failed", req.UserID, req.Reference, req.TokenAmount, err)
		}
		return nil, apperr.Persistence(err)
	}
	s.committed(ctx, "Debit transaction", res)
	return res, nil
}

// RecordPending writes a pending ledger row that moves no balance. It is
// completed or failed once the provider has answered.
func (s *Service) RecordPending(ctx context.Context, req PendingRequest) (*domain.Transaction, error) {
	if err := validateReference(req.Reference); err != nil {
		return nil, err
	}
	if req.TokenAmount <= 0 {
		return nil, apperr.ErrInvalidAmount
	}
	t := s.newTransaction(req.UserID, req.Reference, req.TokenAmount, req.Type, domain.StatusPending, req.Description, req.Target)
	if err := s.db.WithContext(ctx).Create(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.WithMessage(apperr.ErrConflict, "reference already in use")
		}
		return nil, apperr.Persistence(err)
	}
	return &t, nil
}

// TransactionByReference loads a ledger row by reference
func (s *Service) TransactionByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	var t domain.Transaction
	err := s.db.WithContext(ctx).Where("reference = ?", reference).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.WithMessage(apperr.ErrNotFound, "transaction not found")
	}
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	return &t, nil
}

// CompletePending moves a pending row to completed and queues its contest
// effect. Completing an already completed row is an idempotent no-op.
func (s *Service) CompletePending(ctx context.Context, reference string) (*Result, error) {
	var res *Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t domain.Transaction
		if err := tx.Where("reference = ?", reference).First(&t).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.WithMessage(apperr.ErrNotFound, "transaction not found")
			}
			return err
		}
		switch t.Status {
		case domain.StatusCompleted:
			res = &Result{Transaction: t, Duplicate: true}
			return nil
		case domain.StatusFailed:
			return apperr.WithMessage(apperr.ErrPaymentNotSuccessful, "payment already marked failed")
		}
		moved, err := s.transition(tx, t.ID, domain.StatusPending, domain.StatusCompleted)
		if err != nil {
			return err
		}
		if !moved {
			return errReferenceTaken
		}
		t.Status = domain.StatusCompleted
		if t.EventID != nil && t.CandidateID != nil {
			if err := s.enqueueEffect(tx, t, effectKind(t.Type)); err != nil {
				return err
			}
		}
		res = &Result{Transaction: t}
		return nil
	})
	if errors.Is(err, errReferenceTaken) {
		t, loadErr := s.TransactionByReference(ctx, reference)
		if loadErr != nil {
			return nil, loadErr
		}
		if t.Status == domain.StatusFailed {
			return nil, apperr.WithMessage(apperr.ErrPaymentNotSuccessful, "payment already marked failed")
		}
		return &Result{Transaction: *t, Duplicate: true}, nil
	}
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	if !res.Duplicate {
		logrus.WithFields(logrus.Fields{
			"user_id":   res.Transaction.UserID,
			"reference": reference,
			"type":      res.Transaction.Type,
			"amount":    res.Transaction.TokenAmount,
		}).Info("Pending transaction completed")
	}
	return res, nil
}

// FailPending marks a pending row failed. Rows that already left pending are
// returned unchanged.
func (s *Service) FailPending(ctx context.Context, reference string) (*domain.Transaction, error) {
	t, err := s.TransactionByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	moved, err := s.transition(s.db.WithContext(ctx), t.ID, domain.StatusPending, domain.StatusFailed)
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	if moved {
		t.Status = domain.StatusFailed
		logrus.WithFields(logrus.Fields{"reference": reference, "user_id": t.UserID}).Warn("Pending transaction failed")
		return t, nil
	}
	return s.TransactionByReference(ctx, reference)
}

// Wallet returns the user's wallet, creating an empty one on first access
func (s *Service) Wallet(ctx context.Context, userID uint) (*domain.Wallet, error) {
	tx := s.db.WithContext(ctx)
	if err := ensureWallet(tx, userID); err != nil {
		return nil, apperr.Persistence(err)
	}
	var w domain.Wallet
	if err := tx.Where("user_id = ?", userID).First(&w).Error; err != nil {
		return nil, apperr.Persistence(err)
	}
	return &w, nil
}

// Transactions returns one page of a user's ledger, newest first
func (s *Service) Transactions(ctx context.Context, userID uint, page, pageSize int) ([]domain.Transaction, int64, error) {
	query := s.db.WithContext(ctx).Model(&domain.Transaction{}).Where("user_id = ?", userID)
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperr.Persistence(err)
	}
	var txs []domain.Transaction
	if err := query.Order("created_at desc").Offset((page - 1) * pageSize).Limit(pageSize).Find(&txs).Error; err != nil {
		return nil, 0, apperr.Persistence(err)
	}
	return txs, total, nil
}

// credit runs inside tx: probe the reference, insert the ledger row, then
// move the balance. The unique index on reference turns a concurrent second
// credit into errReferenceTaken instead of a double credit.
func (s *Service) credit(tx *gorm.DB, req CreditRequest) (*Result, error) {
	txType := creditType(req)
	if existing, err := s.probe(tx, req.UserID, req.Reference, domain.StatusCompleted, txType); err != nil || existing != nil {
		return existing, err
	}

	t := s.newTransaction(req.UserID, req.Reference, req.TokenAmount, txType, domain.StatusCompleted, req.Description, req.Gift)
	if err := insertTransaction(tx, &t); err != nil {
		return nil, err
	}

	w := domain.Wallet{UserID: req.UserID, Balance: req.TokenAmount, LastAction: req.Description}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"balance":     gorm.Expr("balance + ?", req.TokenAmount),
			"last_action": req.Description,
			"updated_at":  s.now(),
		}),
	}).Create(&w).Error
	if err != nil {
		return nil, err
	}

	if req.Gift != nil {
		if err := s.enqueueEffect(tx, t, domain.EffectGift); err != nil {
			return nil, err
		}
	}
	balance, err := balanceOf(tx, req.UserID)
	if err != nil {
		return nil, err
	}
	return &Result{Transaction: t, Balance: balance}, nil
}

// debit runs inside tx. The conditional update keeps the balance non-negative
// even when two debits race.
func (s *Service) debit(tx *gorm.DB, req DebitRequest) (*Result, error) {
	req = debitDefaults(req)
	status := debitStatus(req.Pending)
	if existing, err := s.probe(tx, req.UserID, req.Reference, status, req.Type); err != nil || existing != nil {
		return existing, err
	}
	t := s.newTransaction(req.UserID, req.Reference, req.TokenAmount, req.Type, status, req.Description, req.Target)
	if err := insertTransaction(tx, &t); err != nil {
		return nil, err
	}

	if err := ensureWallet(tx, req.UserID); err != nil {
		return nil, err
	}
	update := tx.Model(&domain.Wallet{}).
		Where("user_id = ? AND balance >= ?", req.UserID, req.TokenAmount).
		Updates(map[string]any{
			"balance":     gorm.Expr("balance - ?", req.TokenAmount),
			"last_action": req.Description,
			"updated_at":  s.now(),
		})
	if update.Error != nil {
		return nil, update.Error
	}
	if update.RowsAffected == 0 {
		return nil, apperr.ErrInsufficientBalance
	}

	if req.Target != nil && req.Type == domain.TypeVote {
		if err := s.enqueueEffect(tx, t, domain.EffectVote); err != nil {
			return nil, err
		}
	}
	balance, err := balanceOf(tx, req.UserID)
	if err != nil {
		return nil, err
	}
	return &Result{Transaction: t, Balance: balance}, nil
}

// probe returns the earlier result when reference was already written by this
// user with the expected status and type, and a conflict otherwise.
func (s *Service) probe(tx *gorm.DB, userID uint, reference, status, txType string) (*Result, error) {
	var existing domain.Transaction
	found := tx.Where("reference = ?", reference).Limit(1).Find(&existing)
	if found.Error != nil {
		return nil, found.Error
	}
	if found.RowsAffected == 0 {
		return nil, nil
	}
	return duplicateOf(tx, userID, existing, status, txType)
}

// replay answers a request whose reference was taken by a concurrent writer
func (s *Service) replay(ctx context.Context, userID uint, reference, status, txType string) (*Result, error) {
	tx := s.db.WithContext(ctx)
	var existing domain.Transaction
	if err := tx.Where("reference = ?", reference).First(&existing).Error; err != nil {
		return nil, apperr.Persistence(err)
	}
	res, err := duplicateOf(tx, userID, existing, status, txType)
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	s.committed(ctx, "", res)
	return res, nil
}

func duplicateOf(tx *gorm.DB, userID uint, existing domain.Transaction, status, txType string) (*Result, error) {
	if existing.UserID != userID {
		return nil, apperr.WithMessage(apperr.ErrConflict, "reference belongs to another wallet")
	}
	if existing.Type != txType {
		return nil, apperr.WithMessage(apperr.ErrConflict, "reference already used for a "+existing.Type)
	}
	if existing.Status != status {
		return nil, apperr.WithMessage(apperr.ErrConflict, "reference already in use")
	}
	balance, err := balanceOf(tx, userID)
	if err != nil {
		return nil, err
	}
	return &Result{Transaction: existing, Balance: balance, Duplicate: true}, nil
}

func (s *Service) transition(tx *gorm.DB, id, from, to string) (bool, error) {
	res := tx.Model(&domain.Transaction{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": s.now()})
	return res.RowsAffected > 0, res.Error
}

func (s *Service) enqueueEffect(tx *gorm.DB, t domain.Transaction, kind string) error {
	if t.EventID == nil || t.CandidateID == nil {
		return nil
	}
	return tx.Create(&domain.ContestEffect{
		TransactionID: t.ID,
		Kind:          kind,
		EventID:       *t.EventID,
		CandidateID:   *t.CandidateID,
		Amount:        t.TokenAmount,
	}).Error
}

func (s *Service) newTransaction(userID uint, reference string, tokens int64, txType, status, description string, target *ContestTarget) domain.Transaction {
	now := s.now()
	t := domain.Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Reference:   reference,
		TokenAmount: tokens,
		FiatAmount:  s.FiatAmount(tokens),
		Status:      status,
		Type:        txType,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if target != nil {
		eventID, candidateID := target.EventID, target.CandidateID
		t.EventID, t.CandidateID = &eventID, &candidateID
	}
	return t
}

// committed invalidates display caches and logs a successful mutation
func (s *Service) committed(ctx context.Context, msg string, res *Result) {
	if res.Duplicate {
		logrus.WithFields(logrus.Fields{
			"user_id":   res.Transaction.UserID,
			"reference": res.Transaction.Reference,
		}).Info("Duplicate reference ignored")
		return
	}
	if err := utils.InvalidateUser(ctx, s.rdb, res.Transaction.UserID); err != nil {
		logrus.WithError(err).WithField("user_id", res.Transaction.UserID).Warn("Failed to invalidate wallet cache")
	}
	logrus.WithFields(logrus.Fields{
		"user_id":   res.Transaction.UserID,
		"reference": res.Transaction.Reference,
		"amount":    res.Transaction.TokenAmount,
		"type":      res.Transaction.Type,
		"status":    res.Transaction.Status,
		"balance":   res.Balance,
	}).Info(msg)
}

func (s *Service) logFailure(msg string, userID uint, reference string, amount int64, err error) {
	logrus.WithFields(logrus.Fields{
		"user_id":   userID,
		"reference": reference,
		"amount":    amount,
		"error":     err.Error(),
	}).Error(msg)
}

func insertTransaction(tx *gorm.DB, t *domain.Transaction) error {
	if err := tx.Create(t).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errReferenceTaken
		}
		return err
	}
	return nil
}

func ensureWallet(tx *gorm.DB, userID uint) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&domain.Wallet{UserID: userID}).Error
}

func balanceOf(tx *gorm.DB, userID uint) (int64, error) {
	var w domain.Wallet
	if err := tx.Where("user_id = ?", userID).First(&w).Error; err != nil {
		return 0, err
	}
	return w.Balance, nil
}

func creditType(req CreditRequest) string {
	if req.Gift != nil {
		return domain.TypeGift
	}
	return domain.TypeDeposit
}

// debitDefaults fills in the type and a fresh reference when left empty
func debitDefaults(req DebitRequest) DebitRequest {
	if req.Type == "" {
		req.Type = domain.TypeWithdrawal
	}
	if req.Reference == "" {
		req.Reference = req.Type + ":" + uuid.NewString()
	}
	return req
}

func debitStatus(pending bool) string {
	if pending {
		return domain.StatusPending
	}
	return domain.StatusCompleted
}

func effectKind(txType string) string {
	if txType == domain.TypeGift {
		return domain.EffectGift
	}
	return domain.EffectVote
}

func validateReference(reference string) error {
	if strings.TrimSpace(reference) == "" {
		return apperr.WithMessage(apperr.ErrInvalidRequest, "reference is required")
	}
	return nil
}
