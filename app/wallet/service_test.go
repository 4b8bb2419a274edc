package wallet

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/joefazee/marketcore/app/ledger"
	"github.com/joefazee/marketcore/internal/clock"
	"github.com/joefazee/marketcore/models"
	"github.com/joefazee/marketcore/tests/suites"
)

type WalletServiceTestSuite struct {
	suite.Suite
	db  *gorm.DB
	svc Service
	ctx context.Context
}

func (s *WalletServiceTestSuite) SetupTest() {
	s.db = suites.NewSQLite(s.T())
	s.ctx = context.Background()
	s.svc = NewService(ServiceOptions{
		DB:    s.db,
		Clock: clock.NewFake(time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)),
	})
}

func TestWalletServiceTestSuite(t *testing.T) {
	suite.Run(t, new(WalletServiceTestSuite))
}

func (s *WalletServiceTestSuite) open(username string, grant int64) *AccountView {
	res, err := s.svc.OpenAccount(s.ctx, &OpenAccountRequest{Username: username, Grant: grant})
	s.Require().NoError(err)
	return res.Account
}

func (s *WalletServiceTestSuite) TestOpenAccountPostsGrant() {
	res, err := s.svc.OpenAccount(s.ctx, &OpenAccountRequest{Username: "alice", Grant: 1000})
	s.Require().NoError(err)

	s.Equal("1000.00", res.Account.Balance.StringFixed(2))
	s.Equal(int64(1), res.Account.LedgerVersion)
	s.Equal(models.LedgerReasonGrant, res.Entry.ReasonKind)
	s.Equal(int64(1), res.Entry.Sequence)

	report, err := s.svc.Audit(s.ctx, res.Account.ID)
	s.Require().NoError(err)
	s.True(report.Consistent, "%v", report.Problems)
	s.Equal(1, report.Entries)
}

func (s *WalletServiceTestSuite) TestOpenAccountWithoutGrant() {
	account := s.open("bob", 0)
	s.True(account.Balance.IsZero())
	s.Equal(int64(1), account.LedgerVersion, "a zero grant is still recorded")
}

func (s *WalletServiceTestSuite) TestOpenAccountRejections() {
	s.open("carol", 10)

	_, err := s.svc.OpenAccount(s.ctx, &OpenAccountRequest{Username: "carol", Grant: 10})
	s.ErrorIs(err, models.ErrUsernameTaken)

	_, err = s.svc.OpenAccount(s.ctx, &OpenAccountRequest{Username: "dave", Grant: -1})
	s.ErrorIs(err, models.ErrInvalidGrantAmount)

	var count int64
	s.Require().NoError(s.db.Model(&models.User{}).Count(&count).Error)
	s.Equal(int64(1), count)
}

func (s *WalletServiceTestSuite) TestGetAccount() {
	account := s.open("erin", 25)

	got, err := s.svc.GetAccount(s.ctx, account.ID)
	s.Require().NoError(err)
	s.Equal("erin", got.Username)

	_, err = s.svc.GetAccount(s.ctx, uuid.New())
	s.ErrorIs(err, models.ErrRecordNotFound)
}

func (s *WalletServiceTestSuite) TestAdjustBalance() {
	account := s.open("frank", 100)

	res, err := s.svc.AdjustBalance(s.ctx, account.ID, &AdjustBalanceRequest{
		Amount: decimal.RequireFromString("-30.50"),
		Note:   "chargeback",
	})
	s.Require().NoError(err)
	s.Equal("69.50", res.Account.Balance.StringFixed(2))
	s.Equal(models.LedgerReasonAdjustment, res.Entry.ReasonKind)
	s.Equal("chargeback", res.Entry.Note)

	_, err = s.svc.AdjustBalance(s.ctx, account.ID, &AdjustBalanceRequest{Amount: decimal.NewFromInt(-70), Note: "too much"})
	s.ErrorIs(err, models.ErrInsufficientBalance)

	_, err = s.svc.AdjustBalance(s.ctx, account.ID, &AdjustBalanceRequest{Amount: decimal.Zero, Note: "noop"})
	s.ErrorIs(err, models.ErrInvalidAdjustment)

	_, err = s.svc.AdjustBalance(s.ctx, uuid.New(), &AdjustBalanceRequest{Amount: decimal.NewFromInt(1), Note: "ghost"})
	s.ErrorIs(err, models.ErrRecordNotFound)

	entries, total, err := s.svc.GetLedger(s.ctx, account.ID, &ledger.EntryFilters{Reason: models.LedgerReasonAdjustment})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Len(entries, 1)
}

func (s *WalletServiceTestSuite) TestConcurrentAdjustmentsSerialize() {
	account := s.open("gina", 0)

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.svc.AdjustBalance(s.ctx, account.ID, &AdjustBalanceRequest{Amount: decimal.NewFromInt(5), Note: "bonus"})
			s.NoError(err)
		}()
	}
	wg.Wait()

	got, err := s.svc.GetAccount(s.ctx, account.ID)
	s.Require().NoError(err)
	s.Equal("50.00", got.Balance.StringFixed(2))
	s.Equal(int64(n+1), got.LedgerVersion)

	reports, err := s.svc.AuditAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(reports, 1)
	s.True(reports[0].Consistent)
}

func (s *WalletServiceTestSuite) TestAuditDetectsTamperedBalance() {
	account := s.open("hank", 40)
	s.Require().NoError(s.db.Model(&models.User{}).Where("id = ?", account.ID).
		Update("balance", decimal.NewFromInt(41)).Error)

	report, err := s.svc.Audit(s.ctx, account.ID)
	s.Require().NoError(err)
	s.False(report.Consistent)
	s.NotEmpty(report.Problems)
}
