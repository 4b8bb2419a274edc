// Package ledger owns every balance change. A posting appends one entry and
// moves users.balance with a compare-and-swap on users.ledger_version, so
// two writers that raced past their locks cannot both succeed.
package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/joefazee/marketcore/internal/clock"
	"github.com/joefazee/marketcore/models"
)

// Posting describes one balance change.
type Posting struct {
	Delta    decimal.Decimal
	Reason   models.LedgerReason
	BetID    *uuid.UUID
	MarketID *uuid.UUID
	Note     string
}

// Book posts entries and audits balances.
type Book struct {
	repo  Repository
	clock clock.Clock
}

func NewBook(repo Repository, clk clock.Clock) *Book {
	return &Book{repo: repo, clock: clk}
}

// WithTx returns a Book bound to tx.
func (b *Book) WithTx(tx *gorm.DB) *Book {
	return &Book{repo: b.repo.WithTx(tx), clock: b.clock}
}

// User loads the account row a posting will be applied to.
func (b *Book) User(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return b.repo.GetUser(ctx, id)
}

// Post applies p to user, which must be the row as loaded in the current
// transaction. Counter changes already made on user are persisted with it.
// On success user reflects the new balance and version.
func (b *Book) Post(ctx context.Context, user *models.User, p Posting) (*models.LedgerEntry, error) {
	now := b.clock.Now()
	expected := user.LedgerVersion

	entry := &models.LedgerEntry{
		UserID:        user.ID,
		Sequence:      expected + 1,
		AmountDelta:   p.Delta.Round(2),
		BalanceBefore: user.Balance,
		BalanceAfter:  user.Balance.Add(p.Delta.Round(2)),
		ReasonKind:    p.Reason,
		BetID:         p.BetID,
		MarketID:      p.MarketID,
		Note:          p.Note,
		CreatedAt:     now,
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}

	next := *user
	next.Balance = entry.BalanceAfter
	next.LedgerVersion = entry.Sequence
	next.UpdatedAt = now

	swapped, err := b.repo.CompareAndSwapUser(ctx, &next, expected)
	if err != nil {
		return nil, err
	}
	if !swapped {
		return nil, ErrStaleVersion(user.ID, expected)
	}

	if err := b.repo.CreateEntry(ctx, entry); err != nil {
		return nil, err
	}

	*user = next
	return entry, nil
}

// ErrStaleVersion describes a lost compare-and-swap.
func ErrStaleVersion(userID uuid.UUID, expected int64) error {
	return fmt.Errorf("%w (user %s, expected version %d)", models.ErrConcurrentBalanceUpdate, userID, expected)
}

// History pages through a user's entries, newest first.
func (b *Book) History(ctx context.Context, userID uuid.UUID, filters *EntryFilters) ([]models.LedgerEntry, int64, error) {
	if _, err := b.repo.GetUser(ctx, userID); err != nil {
		return nil, 0, err
	}
	if filters == nil {
		filters = &EntryFilters{}
	}
	filters.Normalize()
	return b.repo.ListEntries(ctx, userID, filters)
}

// Audit replays the user's entries in sequence order and compares the
// result with the stored balance.
func (b *Book) Audit(ctx context.Context, userID uuid.UUID) (*AuditReport, error) {
	user, err := b.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	entries, err := b.repo.AllEntries(ctx, userID)
	if err != nil {
		return nil, err
	}

	report := Replay(entries)
	report.UserID = user.ID
	report.Username = user.Username
	report.StoredBalance = user.Balance
	report.LedgerVersion = user.LedgerVersion

	if !report.ReplayedBalance.Equal(user.Balance) {
		report.Problems = append(report.Problems,
			fmt.Sprintf("replayed balance %s differs from stored %s", report.ReplayedBalance, user.Balance))
	}
	if int64(report.Entries) != user.LedgerVersion {
		report.Problems = append(report.Problems,
			fmt.Sprintf("%d entries but ledger version %d", report.Entries, user.LedgerVersion))
	}
	report.Consistent = len(report.Problems) == 0
	return report, nil
}

// AuditAll audits every account.
func (b *Book) AuditAll(ctx context.Context) ([]*AuditReport, error) {
	ids, err := b.repo.ListUserIDs(ctx)
	if err != nil {
		return nil, err
	}
	reports := make([]*AuditReport, 0, len(ids))
	for _, id := range ids {
		r, err := b.Audit(ctx, id)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}

// Replay folds entries, which must be ordered by sequence, into a report.
// It checks line arithmetic, chaining and sequence contiguity.
func Replay(entries []models.LedgerEntry) *AuditReport {
	report := &AuditReport{ReplayedBalance: decimal.Zero, Entries: len(entries)}

	running := decimal.Zero
	for i := range entries {
		e := &entries[i]
		if e.Sequence != int64(i+1) {
			report.Problems = append(report.Problems, fmt.Sprintf("sequence gap at %d (found %d)", i+1, e.Sequence))
		}
		if !e.BalanceBefore.Equal(running) {
			report.Problems = append(report.Problems,
				fmt.Sprintf("entry %d starts at %s, expected %s", e.Sequence, e.BalanceBefore, running))
		}
		if !e.IsBalanceConsistent() {
			report.Problems = append(report.Problems, fmt.Sprintf("entry %d arithmetic mismatch", e.Sequence))
		}
		running = running.Add(e.AmountDelta)
	}

	report.ReplayedBalance = running
	report.Consistent = len(report.Problems) == 0
	return report
}
