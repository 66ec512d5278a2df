package number

import (
	"context"
	"strconv"
	"strings"

	"github.com/smallbiznis/quotar/internal/clock"
	"gorm.io/gorm"
)

// Store reads the latest allocated number for a prefix. Implementations
// used during document creation must be bound to the same transaction
// that inserts the document.
type Store interface {
	LatestNumber(ctx context.Context, prefix string) (string, error)
}

// Allocator hands out the next quotation number for the current day.
// It never blocks on allocation; the unique index on quotation_number
// converts a concurrent race into a duplicate-key error the caller
// retries.
type Allocator struct {
	template string
	clock    clock.Clock
}

func NewAllocator(template string, clk clock.Clock) *Allocator {
	if template == "" {
		template = DefaultTemplate
	}
	return &Allocator{template: template, clock: clk}
}

// Next returns the next number for today. The allocation date always
// comes from the allocator's clock, never from caller input.
func (a *Allocator) Next(ctx context.Context, store Store) (string, error) {
	at := a.clock.Now().UTC()

	prefix, err := DatePrefix(a.template, at)
	if err != nil {
		return "", err
	}

	latest, err := store.LatestNumber(ctx, prefix)
	if err != nil {
		return "", err
	}

	seq := int64(1)
	if latest != "" {
		if n, ok := parseSequence(latest); ok {
			seq = n + 1
		}
		// An unparseable suffix restarts the sequence at 1. The unique
		// index turns any resulting collision into a retried conflict.
	}

	return Format(a.template, at, seq)
}

func parseSequence(number string) (int64, bool) {
	idx := strings.LastIndex(number, "-")
	if idx < 0 || idx == len(number)-1 {
		return 0, false
	}
	n, err := strconv.ParseInt(number[idx+1:], 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

type gormStore struct {
	db *gorm.DB
}

// NewGormStore binds a Store to db, typically an open transaction.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// LatestNumber orders by length before value so zero-padded suffixes
// that outgrew the template width still sort numerically.
func (s *gormStore) LatestNumber(ctx context.Context, prefix string) (string, error) {
	var latest string
	err := s.db.WithContext(ctx).Raw(
		`SELECT quotation_number
		 FROM quotations
		 WHERE quotation_number LIKE ?
		 ORDER BY LENGTH(quotation_number) DESC, quotation_number DESC
		 LIMIT 1`,
		prefix+"%",
	).Scan(&latest).Error
	if err != nil {
		return "", err
	}
	return latest, nil
}
