package invoice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/samber/lo"

	"facturier/internal/core/apperror"
	"facturier/internal/core/id"
	"facturier/internal/core/lock"
	"facturier/internal/core/numerator"
	"facturier/internal/core/tx"
	"facturier/pkg/logger"
)

const (
	// DefaultMaxRetries bounds regeneration after a number collision.
	DefaultMaxRetries = 3

	defaultListLimit = 50
	maxListLimit     = 500
)

// Numberer assigns and checks invoice numbers. Implemented by numbering.Service.
type Numberer interface {
	GenerateNext(ctx context.Context, userID string, format numerator.Format) (string, error)
	ValidateExplicit(ctx context.Context, userID, candidate string, format numerator.Format, invoiceID id.ID) error
}

// Service runs the invoice flows that touch invoice numbers.
//
// Number assignment is read-then-write, so Create and UpdateNumber hold the
// user's numbering lock for the whole "compute, validate, persist" section.
// Without a shared lock (several instances on the in-process locker) two
// requests may still compute the same number; the storage unique index then
// rejects one of them and auto-generated numbers are recomputed with backoff.
type Service struct {
	repo          Repository
	numbering     Numberer
	locker        lock.Locker
	txManager     tx.ReadOnlyManager
	defaultFormat numerator.Format
	maxRetries    int
	now           func() time.Time
}

// ServiceConfig configures the invoice service.
type ServiceConfig struct {
	Repo      Repository
	Numbering Numberer
	Locker    lock.Locker       // Optional, defaults to an in-process keyed mutex
	TxManager tx.ReadOnlyManager // Optional, defaults to tx.Nop

	DefaultFormat numerator.Format // Used when a request names no format
	MaxRetries    int
	Now           func() time.Time
}

// NewService creates the invoice service.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		repo:          cfg.Repo,
		numbering:     cfg.Numbering,
		locker:        cfg.Locker,
		txManager:     cfg.TxManager,
		defaultFormat: cfg.DefaultFormat,
		maxRetries:    cfg.MaxRetries,
		now:           cfg.Now,
	}
	if s.locker == nil {
		s.locker = lock.NewKeyedMutex()
	}
	if s.txManager == nil {
		s.txManager = tx.Nop{}
	}
	if !s.defaultFormat.Valid() {
		s.defaultFormat = numerator.FormatStandard
	}
	if s.maxRetries <= 0 {
		s.maxRetries = DefaultMaxRetries
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Create stores a new invoice. An empty inv.Number is generated, anything else
// is validated as an explicit number. Without a format, an explicit number's own
// grammar decides it and the default format applies otherwise. On success inv
// carries its id, number and timestamps.
func (s *Service) Create(ctx context.Context, inv *Invoice) error {
	if inv.NumberingFormat == "" {
		inv.NumberingFormat = s.formatFor(inv.Number)
	}
	if err := inv.Validate(ctx); err != nil {
		return err
	}
	ctx = logger.WithNumbering(ctx, inv.NumberingFormat.String(), inv.Number)

	unlock, err := s.locker.Lock(ctx, lock.NumberingKey(inv.UserID))
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("acquire numbering lock: %w", err))
	}
	defer unlock()

	now := s.now().UTC()
	inv.ID = id.New()
	inv.CreatedAt = now
	inv.UpdatedAt = now
	inv.Version = 1

	if inv.Number != "" {
		if err := s.numbering.ValidateExplicit(ctx, inv.UserID, inv.Number, inv.NumberingFormat, id.Nil()); err != nil {
			return err
		}
		if err := s.insert(ctx, inv); err != nil {
			if errors.Is(err, ErrNumberTaken) {
				return apperror.NewDuplicateInvoiceNumber(inv.Number)
			}
			return err
		}
		logger.Info(ctx, "invoice created", "invoice_id", inv.ID, "explicit", true)
		return nil
	}

	if err := s.createGenerated(ctx, inv); err != nil {
		return err
	}
	ctx = logger.WithNumbering(ctx, inv.NumberingFormat.String(), inv.Number)
	logger.Info(ctx, "invoice created", "invoice_id", inv.ID, "explicit", false)
	return nil
}

func (s *Service) formatFor(number string) numerator.Format {
	if f, ok := numerator.DetectFormat(number); ok {
		return f
	}
	return s.defaultFormat
}

// createGenerated computes a number and inserts inv, recomputing when another
// writer took the number in between.
func (s *Service) createGenerated(ctx context.Context, inv *Invoice) error {
	attempt := 0
	operation := func() error {
		attempt++
		number, err := s.numbering.GenerateNext(ctx, inv.UserID, inv.NumberingFormat)
		if err != nil {
			return backoff.Permanent(err)
		}
		inv.Number = number

		err = s.insert(ctx, inv)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, ErrNumberTaken):
			logger.Warn(ctx, "generated invoice number taken, retrying", "number", number, "attempt", attempt)
			return err
		default:
			return backoff.Permanent(err)
		}
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 10 * time.Millisecond
	policy.MaxInterval = 250 * time.Millisecond

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(s.maxRetries)), ctx))
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNumberTaken) {
		inv.Number = ""
		return apperror.NewConflict("Could not allocate a unique invoice number, please retry").
			WithDetail("attempts", attempt).
			WithCause(err)
	}
	return err
}

func (s *Service) insert(ctx context.Context, inv *Invoice) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, inv); err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}
		return nil
	})
}

// UpdateNumber renumbers an existing invoice. The new number goes through the
// same checks as an explicit number on create, ignoring the invoice itself.
// An empty format keeps the invoice's current format.
//
// A french invoice can only be renumbered while it is the last one of its year,
// otherwise its old number would become a hole in the series.
func (s *Service) UpdateNumber(ctx context.Context, userID string, invoiceID id.ID, number string, format numerator.Format) (*Invoice, error) {
	if number == "" {
		return nil, apperror.NewValidation("invoice number is required").WithDetail("field", "invoiceNumber")
	}
	if format != "" && !format.Valid() {
		return nil, apperror.NewValidation("unknown numbering format").WithDetail("format", format.String())
	}

	unlock, err := s.locker.Lock(ctx, lock.NumberingKey(userID))
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("acquire numbering lock: %w", err))
	}
	defer unlock()

	inv, err := s.repo.GetByID(ctx, userID, invoiceID)
	if err != nil {
		return nil, err
	}
	if format == "" {
		format = inv.NumberingFormat
	}
	ctx = logger.WithNumbering(ctx, format.String(), number)
	if number == inv.Number && format == inv.NumberingFormat {
		return inv, nil
	}

	if err := s.ensureLastOfSeries(ctx, inv); err != nil {
		return nil, err
	}
	if err := s.numbering.ValidateExplicit(ctx, userID, number, format, inv.ID); err != nil {
		return nil, err
	}

	previous := inv.Number
	inv.Number = number
	inv.NumberingFormat = format
	inv.UpdatedAt = s.now().UTC()

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.UpdateNumber(ctx, inv); err != nil {
			return fmt.Errorf("update invoice number: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNumberTaken) {
			return nil, apperror.NewDuplicateInvoiceNumber(number)
		}
		return nil, err
	}

	logger.Info(ctx, "invoice renumbered", "invoice_id", inv.ID, "from", previous, "to", number)
	return inv, nil
}

func (s *Service) ensureLastOfSeries(ctx context.Context, inv *Invoice) error {
	year, ok := numerator.NumberYear(inv.Number, numerator.FormatFrench)
	if !ok {
		return nil
	}
	current, _ := numerator.ParseSequence(inv.Number, numerator.FormatFrench)

	prefix := numerator.YearPrefix(year)
	series, err := s.repo.List(ctx, inv.UserID, ListFilter{Prefix: prefix})
	if err != nil {
		return apperror.NewNumberingFailure(apperror.CodeSequenceValidation, err)
	}

	numbers := lo.Map(series, func(i *Invoice, _ int) string { return i.Number })
	if last := numerator.MaxSequence(numbers, prefix, numerator.FormatFrench); last > current {
		return apperror.NewBusinessRule(apperror.CodeNonSequentialInvoiceNumber,
			"Only the last invoice of a french series can be renumbered").
			WithDetail("invoiceNumber", inv.Number).
			WithDetail("currentSequence", current).
			WithDetail("lastSequence", last)
	}
	return nil
}

// GetByID returns one of the user's invoices.
func (s *Service) GetByID(ctx context.Context, userID string, invoiceID id.ID) (*Invoice, error) {
	var inv *Invoice
	err := s.txManager.ReadOnly(ctx, func(ctx context.Context) error {
		var err error
		inv, err = s.repo.GetByID(ctx, userID, invoiceID)
		return err
	})
	return inv, err
}

// List returns the user's invoices, paginated.
func (s *Service) List(ctx context.Context, userID string, filter ListFilter) ([]*Invoice, error) {
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultListLimit
	case filter.Limit > maxListLimit:
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var items []*Invoice
	err := s.txManager.ReadOnly(ctx, func(ctx context.Context) error {
		var err error
		items, err = s.repo.List(ctx, userID, filter)
		return err
	})
	return items, err
}
