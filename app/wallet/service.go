package wallet

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/joefazee/marketcore/app/ledger"
	"github.com/joefazee/marketcore/internal/clock"
	"github.com/joefazee/marketcore/internal/coordinator"
	"github.com/joefazee/marketcore/internal/events"
	"github.com/joefazee/marketcore/internal/logger"
	"github.com/joefazee/marketcore/models"
)

type Service interface {
	OpenAccount(ctx context.Context, req *OpenAccountRequest) (*OperationResponse, error)
	GetAccount(ctx context.Context, userID uuid.UUID) (*AccountView, error)
	GetLedger(ctx context.Context, userID uuid.UUID, filters *ledger.EntryFilters) ([]models.LedgerEntry, int64, error)

	AdjustBalance(ctx context.Context, userID uuid.UUID, req *AdjustBalanceRequest) (*OperationResponse, error)

	Audit(ctx context.Context, userID uuid.UUID) (*ledger.AuditReport, error)
	AuditAll(ctx context.Context) ([]*ledger.AuditReport, error)
}

// ServiceOptions carries the wallet collaborators. Zero fields get defaults.
type ServiceOptions struct {
	DB          *gorm.DB
	Repo        Repository
	Book        *ledger.Book
	Coordinator *coordinator.Coordinator
	Events      events.Emitter
	Clock       clock.Clock
	Logger      logger.Logger
}

type service struct {
	db     *gorm.DB
	repo   Repository
	book   *ledger.Book
	coord  *coordinator.Coordinator
	events events.Emitter
	clock  clock.Clock
	log    logger.Logger
}

func NewService(opts ServiceOptions) Service {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Repo == nil {
		opts.Repo = NewRepository(opts.DB)
	}
	if opts.Book == nil {
		opts.Book = ledger.NewBook(ledger.NewRepository(opts.DB), opts.Clock)
	}
	if opts.Coordinator == nil {
		opts.Coordinator = coordinator.NewLocal()
	}
	if opts.Events == nil {
		opts.Events = events.Discard
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNullLogger()
	}
	return &service{
		db:     opts.DB,
		repo:   opts.Repo,
		book:   opts.Book,
		coord:  opts.Coordinator,
		events: opts.Events,
		clock:  opts.Clock,
		log:    opts.Logger,
	}
}

// OpenAccount creates the user and posts the opening grant as its first
// ledger entry, so a fresh account already replays to its balance.
func (s *service) OpenAccount(ctx context.Context, req *OpenAccountRequest) (*OperationResponse, error) {
	if req.Grant < 0 {
		return nil, models.ErrInvalidGrantAmount
	}

	if _, err := s.repo.GetUserByUsername(ctx, req.Username); err == nil {
		return nil, models.ErrUsernameTaken
	} else if !errors.Is(err, models.ErrRecordNotFound) {
		return nil, err
	}

	result, err := s.executeWalletTransaction(ctx, func(repo Repository, book *ledger.Book) (*OperationResponse, error) {
		now := s.clock.Now()
		user := &models.User{
			ID:        uuid.New(),
			Username:  req.Username,
			Balance:   decimal.Zero,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := repo.CreateUser(ctx, user); err != nil {
			return nil, err
		}

		entry, err := book.Post(ctx, user, ledger.Posting{
			Delta:  decimal.NewFromInt(req.Grant),
			Reason: models.LedgerReasonGrant,
			Note:   "opening grant",
		})
		if err != nil {
			return nil, err
		}
		return &OperationResponse{Account: ToAccountView(user), Entry: entry}, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("account opened", map[string]interface{}{
		"user_id":  result.Account.ID.String(),
		"username": result.Account.Username,
		"grant":    req.Grant,
	})
	s.emitBalance(result)
	return result, nil
}

func (s *service) GetAccount(ctx context.Context, userID uuid.UUID) (*AccountView, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ToAccountView(user), nil
}

func (s *service) GetLedger(ctx context.Context, userID uuid.UUID, filters *ledger.EntryFilters) ([]models.LedgerEntry, int64, error) {
	return s.book.History(ctx, userID, filters)
}

// AdjustBalance posts an operator correction under the user's lock. A
// negative adjustment may not take the balance below zero.
func (s *service) AdjustBalance(ctx context.Context, userID uuid.UUID, req *AdjustBalanceRequest) (*OperationResponse, error) {
	if req.Amount.IsZero() {
		return nil, models.ErrInvalidAdjustment
	}

	unlock, err := s.coord.LockUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	result, err := s.executeWalletTransaction(ctx, func(_ Repository, book *ledger.Book) (*OperationResponse, error) {
		user, err := book.User(ctx, userID)
		if err != nil {
			return nil, err
		}
		entry, err := book.Post(ctx, user, ledger.Posting{
			Delta:  req.Amount,
			Reason: models.LedgerReasonAdjustment,
			Note:   req.Note,
		})
		if err != nil {
			return nil, err
		}
		return &OperationResponse{Account: ToAccountView(user), Entry: entry}, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Warn("balance adjusted", map[string]interface{}{
		"user_id": userID.String(),
		"amount":  req.Amount.String(),
		"note":    req.Note,
	})
	s.emitBalance(result)
	return result, nil
}

func (s *service) Audit(ctx context.Context, userID uuid.UUID) (*ledger.AuditReport, error) {
	report, err := s.book.Audit(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !report.Consistent {
		s.log.Warn("ledger audit mismatch", map[string]interface{}{
			"user_id":  userID.String(),
			"problems": report.Problems,
		})
	}
	return report, nil
}

func (s *service) AuditAll(ctx context.Context) ([]*ledger.AuditReport, error) {
	return s.book.AuditAll(ctx)
}

func (s *service) emitBalance(result *OperationResponse) {
	s.events.Emit(events.Event{
		Kind:       events.KindBalanceChanged,
		UserID:     result.Account.ID,
		Payload:    result.Account.Balance,
		OccurredAt: s.clock.Now(),
	})
}

// executeWalletTransaction runs operation with repository and book bound to
// one database transaction.
func (s *service) executeWalletTransaction(ctx context.Context, operation func(Repository, *ledger.Book) (*OperationResponse, error)) (*OperationResponse, error) {
	var result *OperationResponse

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = operation(s.repo.WithTx(tx), s.book.WithTx(tx))
		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
