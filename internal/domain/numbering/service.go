package numbering

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"facturier/internal/core/apperror"
	"facturier/internal/core/id"
	"facturier/internal/core/numerator"
	"facturier/pkg/logger"
)

var tracer = otel.Tracer("facturier/numbering")

// CodeSequenceExhausted is returned when a scope has no sequence value left
// that fits the fixed width of its format.
const CodeSequenceExhausted = "INVOICE_SEQUENCE_EXHAUSTED"

// Service composes the numbering rules with the storage collaborator.
//
// It is stateless apart from its dependencies: every call reads a fresh snapshot.
// Generation is read-then-decide, so two concurrent calls for the same user and
// scope return the same number. Callers persisting the result must hold the user's
// lock (see core/lock) or retry on a storage uniqueness violation.
type Service struct {
	source     Source
	duplicates *DuplicateChecker
	continuity *ContinuityValidator
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock used to pick the current scope.
// Its readings are converted to UTC, the zone invoice dates are stored in.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a numbering service over source.
func NewService(source Source, opts ...Option) *Service {
	s := &Service{
		source:     source,
		duplicates: NewDuplicateChecker(source),
		continuity: NewContinuityValidator(source),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateNext returns the next number of format for userID in the current scope.
// An empty history yields sequence 1.
//
// Errors only come from the storage collaborator, or from a scope whose
// sequence space is used up: once the fixed-width counter is full (999999 for
// french, 9999 for standard) it returns INVOICE_SEQUENCE_EXHAUSTED rather than
// a number that would fail its own format check.
func (s *Service) GenerateNext(ctx context.Context, userID string, format numerator.Format) (string, error) {
	ctx, span := tracer.Start(ctx, "numbering.GenerateNext",
		trace.WithAttributes(attribute.String("numbering.format", format.String())))
	defer span.End()

	if !format.Valid() {
		return "", apperror.NewValidation("unknown numbering format").WithDetail("format", format.String())
	}

	now := s.now().UTC()
	prefix := numerator.ScopePrefix(format, now)

	records, err := s.source.ListInvoices(ctx, userID, Query{Prefix: prefix})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list invoices")
		logger.Error(ctx, "failed to read invoice history", "format", format, "error", err)
		return "", apperror.NewNumberingFailure(apperror.CodeSequenceValidation, err)
	}

	number := numerator.NextNumber(Numbers(records), format, now)
	if !numerator.IsValidFormat(number, format) {
		return "", apperror.NewBusinessRule(CodeSequenceExhausted, "No invoice number left in the current period").
			WithDetail("format", format.String()).
			WithDetail("scope", prefix)
	}

	span.SetAttributes(attribute.String("numbering.number", number))
	logger.Debug(ctx, "invoice number computed", "format", format, "number", number)

	return number, nil
}

// ValidateExplicit checks a client-supplied number. It returns nil when the number
// may be used, or an *apperror.AppError describing the first failed rule:
//
//  1. an empty candidate is accepted (auto-generation happens later);
//  2. DUPLICATE_INVOICE_NUMBER when the user already owns it;
//  3. INVALID_INVOICE_NUMBER_FORMAT when it does not match format;
//  4. NON_SEQUENTIAL_INVOICE_NUMBER when a french number leaves a gap.
//
// invoiceID, when not Nil, is the invoice being updated and is ignored by the
// duplicate and continuity checks.
func (s *Service) ValidateExplicit(ctx context.Context, userID, candidate string, format numerator.Format, invoiceID id.ID) error {
	if candidate == "" {
		return nil
	}

	ctx, span := tracer.Start(ctx, "numbering.ValidateExplicit",
		trace.WithAttributes(
			attribute.String("numbering.format", format.String()),
			attribute.String("numbering.number", candidate),
		))
	defer span.End()

	if !format.Valid() {
		return apperror.NewValidation("unknown numbering format").WithDetail("format", format.String())
	}

	exists, err := s.duplicates.Exists(ctx, candidate, userID, invoiceID)
	if err != nil {
		span.RecordError(err)
		logger.Error(ctx, "duplicate check failed", "number", candidate, "error", err)
		return apperror.NewNumberingFailure(apperror.CodeValidation, err)
	}
	if exists {
		logger.Warn(ctx, "invoice number rejected", "number", candidate, "reason", apperror.CodeDuplicateInvoiceNumber)
		return apperror.NewDuplicateInvoiceNumber(candidate)
	}

	if !numerator.IsValidFormat(candidate, format) {
		logger.Warn(ctx, "invoice number rejected", "number", candidate, "reason", apperror.CodeInvalidInvoiceNumberFormat)
		return apperror.NewInvalidInvoiceNumberFormat(candidate, format.String(), format.Example())
	}

	if format != numerator.FormatFrench {
		return nil
	}

	year, _ := numerator.NumberYear(candidate, format)
	result, err := s.continuity.Check(ctx, userID, candidate, year, invoiceID)
	if err != nil {
		span.RecordError(err)
		logger.Error(ctx, "continuity check failed", "number", candidate, "error", err)
		return apperror.NewNumberingFailure(apperror.CodeSequenceValidation, err)
	}
	if !result.OK {
		suggested := numerator.FormatNumber(numerator.FormatFrench, time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), result.Expected)
		logger.Warn(ctx, "invoice number rejected",
			"number", candidate,
			"reason", apperror.CodeNonSequentialInvoiceNumber,
			"expected_sequence", result.Expected,
			"current_sequence", result.Got)
		return apperror.NewNonSequentialInvoiceNumber(candidate, result.Expected, result.Got, suggested)
	}

	return nil
}
