// Package ledger owns the payment record lifecycle and its append-only
// audit trail. All mutations go through Service; records are never deleted.
package ledger

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/abel4moyo/zimnat-api-sub003/internal/domain"
	"github.com/abel4moyo/zimnat-api-sub003/internal/errs"
)

// errNoop signals from an apply func that the transition is a duplicate of
// an already-applied terminal transition: commit nothing, return the record
// unchanged.
var errNoop = errors.New("transition already applied")

// applyFunc inspects and mutates a payment record under the store's
// exclusive lock. It returns the log entry to append, or errNoop for a
// duplicate delivery.
type applyFunc func(rec *domain.PaymentRecord) (*domain.PaymentStatusLog, error)

// Repository is the persistence surface of the ledger. Transition must be
// atomic: the record update and its log entry become visible together or
// not at all.
type Repository interface {
	Create(ctx context.Context, rec *domain.PaymentRecord) error
	GetByReference(ctx context.Context, reference string) (*domain.PaymentRecord, error)
	ListByPolicy(ctx context.Context, policyNumber string) ([]domain.PaymentRecord, error)
	StatusLog(ctx context.Context, reference string) ([]domain.PaymentStatusLog, error)

	// Transition locks the record for reference, runs apply, and persists
	// the mutated record together with the returned log entry in one
	// transaction.
	Transition(ctx context.Context, reference string, apply applyFunc) (*domain.PaymentRecord, error)
}

// GormRepository is the GORM implementation of Repository.
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Create(ctx context.Context, rec *domain.PaymentRecord) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.PaymentRecord{}).
			Where("payment_reference = ?", rec.PaymentReference).
			Count(&count).Error; err != nil {
			return errs.Wrap(err, errs.KindStorage, "check payment reference %s", rec.PaymentReference)
		}
		if count > 0 {
			return errs.New(errs.KindDuplicateReference, "payment reference %s already exists", rec.PaymentReference)
		}
		if err := tx.Create(rec).Error; err != nil {
			// unique index race: a concurrent create won
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errs.New(errs.KindDuplicateReference, "payment reference %s already exists", rec.PaymentReference)
			}
			return errs.Wrap(err, errs.KindStorage, "create payment %s", rec.PaymentReference)
		}
		return nil
	})
	return err
}

func (r *GormRepository) GetByReference(ctx context.Context, reference string) (*domain.PaymentRecord, error) {
	var rec domain.PaymentRecord
	err := r.db.WithContext(ctx).Where("payment_reference = ?", reference).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.New(errs.KindPaymentNotFound, "payment %s not found", reference)
		}
		return nil, errs.Wrap(err, errs.KindStorage, "query payment %s", reference)
	}
	return &rec, nil
}

func (r *GormRepository) ListByPolicy(ctx context.Context, policyNumber string) ([]domain.PaymentRecord, error) {
	var recs []domain.PaymentRecord
	err := r.db.WithContext(ctx).
		Where("policy_number = ?", policyNumber).
		Order("initiated_at DESC").
		Find(&recs).Error
	if err != nil {
		return nil, errs.Wrap(err, errs.KindStorage, "list payments of policy %s", policyNumber)
	}
	return recs, nil
}

func (r *GormRepository) StatusLog(ctx context.Context, reference string) ([]domain.PaymentStatusLog, error) {
	var entries []domain.PaymentStatusLog
	err := r.db.WithContext(ctx).
		Where("payment_reference = ?", reference).
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, errs.Wrap(err, errs.KindStorage, "query status log of %s", reference)
	}
	return entries, nil
}

func (r *GormRepository) Transition(ctx context.Context, reference string, apply applyFunc) (*domain.PaymentRecord, error) {
	var out *domain.PaymentRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec domain.PaymentRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("payment_reference = ?", reference).
			First(&rec).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.New(errs.KindPaymentNotFound, "payment %s not found", reference)
			}
			return errs.Wrap(err, errs.KindStorage, "lock payment %s", reference)
		}

		entry, err := apply(&rec)
		if err != nil {
			if errors.Is(err, errNoop) {
				out = &rec
				return nil
			}
			return err
		}

		if err := tx.Save(&rec).Error; err != nil {
			return errs.Wrap(err, errs.KindStorage, "update payment %s", reference)
		}
		if err := tx.Create(entry).Error; err != nil {
			return errs.Wrap(err, errs.KindStorage, "append status log for %s", reference)
		}
		out = &rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
