package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"event_wallet/internal/apperr"
	"event_wallet/internal/domain"
)

const maxErrorLen = 500

var errEffectTaken = errors.New("effect already processed")

// EffectProcessor applies queued contest effects (gift and vote totals) to
// contest entries. It runs separately from the credit that queued them: a
// failure here is recorded on the effect and retried, never rolled back into
// the ledger.
type EffectProcessor struct {
	db  *gorm.DB
	now func() time.Time
}

// NewEffectProcessor builds a processor over the outbox table
func NewEffectProcessor(db *gorm.DB) *EffectProcessor {
	return &EffectProcessor{db: db, now: time.Now}
}

// ProcessPending applies up to limit unprocessed effects, oldest first, and
// returns how many were applied.
func (p *EffectProcessor) ProcessPending(ctx context.Context, limit int) (int, error) {
	var effects []domain.ContestEffect
	err := p.db.WithContext(ctx).
		Where("processed_at IS NULL").
		Order("id asc").
		Limit(limit).
		Find(&effects).Error
	if err != nil {
		return 0, apperr.Persistence(err)
	}

	applied := 0
	for i := range effects {
		if ctx.Err() != nil {
			break
		}
		effect := &effects[i]
		err := p.apply(ctx, effect)
		if errors.Is(err, errEffectTaken) {
			continue
		}
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"effect_id":      effect.ID,
				"transaction_id": effect.TransactionID,
				"kind":           effect.Kind,
				"attempts":       effect.Attempts + 1,
				"error":          err.Error(),
			}).Error("Contest effect failed")
			p.recordFailure(ctx, effect, err)
			continue
		}
		applied++
	}
	return applied, nil
}

// apply claims the effect and updates the entry in one database transaction
func (p *EffectProcessor) apply(ctx context.Context, effect *domain.ContestEffect) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := p.now()
		claimed := tx.Model(&domain.ContestEffect{}).
			Where("id = ? AND processed_at IS NULL", effect.ID).
			Update("processed_at", now)
		if claimed.Error != nil {
			return claimed.Error
		}
		if claimed.RowsAffected == 0 {
			return errEffectTaken
		}

		column := "gifts"
		entry := domain.ContestEntry{EventID: effect.EventID, CandidateID: effect.CandidateID, Gifts: effect.Amount}
		if effect.Kind == domain.EffectVote {
			column = "votes"
			entry = domain.ContestEntry{EventID: effect.EventID, CandidateID: effect.CandidateID, Votes: effect.Amount}
		}
		entry.Points = domain.ComputePoints(entry.Votes, entry.Gifts)
		entry.UpdatedAt = now
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "event_id"}, {Name: "candidate_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				column:       gorm.Expr(column+" + ?", effect.Amount),
				"updated_at": now,
			}),
		}).Create(&entry).Error
		if err != nil {
			return err
		}

		var current domain.ContestEntry
		if err := tx.Where("event_id = ? AND candidate_id = ?", effect.EventID, effect.CandidateID).First(&current).Error; err != nil {
			return err
		}
		points := domain.ComputePoints(current.Votes, current.Gifts)
		if err := tx.Model(&domain.ContestEntry{}).Where("id = ?", current.ID).Update("points", points).Error; err != nil {
			return err
		}

		logrus.WithFields(logrus.Fields{
			"event_id":     effect.EventID,
			"candidate_id": effect.CandidateID,
			"kind":         effect.Kind,
			"amount":       effect.Amount,
			"points":       points.String(),
		}).Info("Contest entry updated")
		return nil
	})
}

func (p *EffectProcessor) recordFailure(ctx context.Context, effect *domain.ContestEffect, cause error) {
	msg := cause.Error()
	if len(msg) > maxErrorLen {
		msg = msg[:maxErrorLen]
	}
	err := p.db.WithContext(ctx).Model(&domain.ContestEffect{}).
		Where("id = ?", effect.ID).
		Updates(map[string]any{"attempts": gorm.Expr("attempts + 1"), "last_error": msg}).Error
	if err != nil {
		logrus.WithError(err).WithField("effect_id", effect.ID).Error("Failed to record contest effect failure")
	}
}
