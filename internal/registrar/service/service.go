package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"registrar/internal/audit"
	"registrar/internal/ledger"
	"registrar/internal/oracle"
	"registrar/internal/registrar/metrics"
	"registrar/internal/registrar/models"
	"registrar/internal/registrar/quote"
	"registrar/pkg/attrs"
	"registrar/pkg/domain"
	dErrors "registrar/pkg/domain-errors"
	"registrar/pkg/platform/sentinel"
	"registrar/pkg/requestcontext"
)

// Ledger is the slice of ledger.Store the service needs.
type Ledger interface {
	RunInTx(ctx context.Context, accounts []domain.Identity, fn func(tx ledger.Tx) error) error
	Account(ctx context.Context, addr domain.Identity) (*ledger.Account, error)
	Deposit(ctx context.Context, addr domain.Identity, lamports uint64) error
}

type PriceFeed interface {
	Latest(ctx context.Context, feedID string) (oracle.PriceReading, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Operation names, shared with the transport's dispatch table.
const (
	OpInitialize        = "initialize"
	OpUpdatePrice       = "update_price"
	OpUpdateGracePeriod = "update_grace_period"
	OpWithdrawFees      = "withdraw_fees"
	OpRegisterDomain    = "register_domain"
	OpRenewDomain       = "renew_domain"
	OpBuyDomain         = "buy_domain"
	OpUpdateAddresses   = "update_addresses"
	OpTransferDomain    = "transfer_domain"
)

// Service runs the registrar program: every mutating operation is one
// ledger transaction over the accounts it names.
type Service struct {
	program  domain.Identity
	ledger   Ledger
	feed     PriceFeed
	feedID   string
	resolver quote.Resolver

	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithResolver overrides the default quote thresholds.
func WithResolver(r quote.Resolver) Option {
	return func(s *Service) {
		s.resolver = r
	}
}

// WithFeedID sets the only price feed the program accepts.
func WithFeedID(feedID string) Option {
	return func(s *Service) {
		if feedID != "" {
			s.feedID = feedID
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// New constructs a Service for the program identity.
func New(program domain.Identity, store Ledger, feed PriceFeed, opts ...Option) *Service {
	s := &Service{
		program:  program,
		ledger:   store,
		feed:     feed,
		feedID:   oracle.DefaultFeedID,
		resolver: quote.NewResolver(0, quote.DefaultMaxConfidenceRatio),
		logger:   slog.Default(),
		tracer:   otel.Tracer("registrar/service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Program returns the identity that owns every registrar account.
func (s *Service) Program() domain.Identity {
	return s.program
}

func (s *Service) configAddress() domain.Identity {
	return domain.ConfigAddress(s.program)
}

func (s *Service) domainAddress(name string) domain.Identity {
	return domain.DomainAddress(s.program, name)
}

// startOp opens a span and returns a finisher that records duration,
// failure code and span status.
func (s *Service) startOp(ctx context.Context, op string, kv ...attribute.KeyValue) (context.Context, func(*error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "registrar."+op, trace.WithAttributes(kv...))
	return ctx, func(errp *error) {
		defer span.End()
		if s.metrics != nil {
			s.metrics.ObserveOperation(op, start)
		}
		if errp == nil || *errp == nil {
			return
		}
		err := *errp
		code := string(dErrors.CodeOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, code)
		if s.metrics != nil {
			s.metrics.IncrementOperationFailure(op, code)
		}
	}
}

// resolveAccount accepts a zero supplied address as "use the derived one" so
// HTTP clients may omit accounts the server can compute. A non-zero address is
// never substituted: it must equal the derivation or the operation fails.
func resolveAccount(supplied, derived domain.Identity, what string) (domain.Identity, error) {
	if supplied.IsNil() || supplied == derived {
		return derived, nil
	}
	return domain.Identity{}, dErrors.New(dErrors.CodeInvalidAccountAddress, what+" account does not match its derived address")
}

func checkRecordName(record *models.DomainRecord, name string) error {
	if record.DomainName != name {
		return dErrors.New(dErrors.CodeInvalidAccountAddress, "domain account holds a different name")
	}
	return nil
}

func requireSigner(ctx context.Context, id domain.Identity, role string) error {
	if id.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, role+" is required")
	}
	if !requestcontext.IsSigner(ctx, id) {
		return dErrors.New(dErrors.CodeMissingSignature, role+" must sign the operation")
	}
	return nil
}

// loadConfig reads and decodes the configuration account inside tx.
func (s *Service) loadConfig(ctx context.Context, tx ledger.Tx, addr domain.Identity) (*models.RegistryConfig, *ledger.Account, error) {
	acct, err := tx.Get(ctx, addr)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeNotInitialized, "registry is not initialized")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registry config")
	}
	if acct.Owner != s.program {
		return nil, nil, dErrors.New(dErrors.CodeInvalidAccountAddress, "config account is not owned by the program")
	}
	cfg, err := models.DecodeConfig(acct.Data)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to decode registry config")
	}
	return cfg, acct, nil
}

// loadDomain reads and decodes the record for name inside tx. Long names share
// the seed space with their 32-byte hash, so the stored name must match too.
func (s *Service) loadDomain(ctx context.Context, tx ledger.Tx, addr domain.Identity, name string) (*models.DomainRecord, *ledger.Account, error) {
	acct, err := tx.Get(ctx, addr)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeDomainNotFound, "domain not found")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load domain record")
	}
	if acct.Owner != s.program {
		return nil, nil, dErrors.New(dErrors.CodeInvalidAccountAddress, "domain account is not owned by the program")
	}
	record, err := models.DecodeDomainRecord(acct.Data)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to decode domain record")
	}
	if err := checkRecordName(record, name); err != nil {
		return nil, nil, err
	}
	return record, acct, nil
}

func (s *Service) storeConfig(ctx context.Context, tx ledger.Tx, acct *ledger.Account, cfg *models.RegistryConfig) error {
	acct.Data = models.EncodeConfig(cfg)
	if err := tx.Put(ctx, acct); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store registry config")
	}
	return nil
}

func (s *Service) storeDomain(ctx context.Context, tx ledger.Tx, acct *ledger.Account, record *models.DomainRecord) error {
	data, err := models.EncodeDomainRecord(record)
	if err != nil {
		return err
	}
	acct.Data = data
	if err := tx.Put(ctx, acct); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store domain record")
	}
	return nil
}

// pay moves lamports and translates ledger facts.
func pay(ctx context.Context, tx ledger.Tx, from, to domain.Identity, lamports uint64) error {
	if err := tx.Transfer(ctx, from, to, lamports); err != nil {
		if errors.Is(err, sentinel.ErrInsufficientFunds) {
			return dErrors.New(dErrors.CodeInsufficientFunds, "payer cannot cover the amount due")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to transfer funds")
	}
	return nil
}

// runTx executes fn in a ledger transaction. Coded errors from fn pass
// through; ledger-level failures are translated.
func (s *Service) runTx(ctx context.Context, accounts []domain.Identity, fn func(tx ledger.Tx) error) error {
	err := s.ledger.RunInTx(ctx, accounts, fn)
	if err == nil {
		return nil
	}
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "ledger temporarily unavailable")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "ledger transaction timed out")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "ledger transaction failed")
	}
}

// reading fetches the price for the configured feed. A caller may name the
// feed explicitly, but only the configured feed is accepted.
func (s *Service) reading(ctx context.Context, feedID string) (oracle.PriceReading, error) {
	if feedID != "" && feedID != s.feedID {
		s.incrementQuoteFailure(dErrors.CodeInvalidPriceFeed)
		return oracle.PriceReading{}, dErrors.New(dErrors.CodeInvalidPriceFeed, "price feed does not match the configured feed")
	}
	r, err := s.feed.Latest(ctx, s.feedID)
	if err != nil {
		code := dErrors.CodeInternal
		msg := "failed to read price feed"
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			code, msg = dErrors.CodeInvalidPriceFeed, "price feed not found"
		case errors.Is(err, sentinel.ErrUnavailable):
			code, msg = dErrors.CodeUnavailable, "price feed unavailable"
		}
		s.incrementQuoteFailure(code)
		return oracle.PriceReading{}, dErrors.Wrap(err, code, msg)
	}
	return r, nil
}

func (s *Service) quote(r oracle.PriceReading, baseUsdCents, years uint64, now time.Time) (uint64, error) {
	lamports, err := s.resolver.Quote(r, baseUsdCents, years, now)
	if err != nil {
		s.incrementQuoteFailure(dErrors.CodeOf(err))
		return 0, err
	}
	return lamports, nil
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", string(event), "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(event), args...)
	}
	if s.auditPublisher == nil {
		return
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		Action:    string(event),
		Domain:    attrs.ExtractString(attributes, "domain"),
		Actor:     attrs.ExtractString(attributes, "actor"),
		Payer:     attrs.ExtractString(attributes, "payer"),
		Owner:     attrs.ExtractString(attributes, "owner"),
		PrevOwner: attrs.ExtractString(attributes, "prev_owner"),
		Years:     attrs.ExtractUint64(attributes, "years"),
		Amount:    attrs.ExtractUint64(attributes, "amount"),
		OldExpiry: attrs.ExtractInt64(attributes, "old_expiry"),
		NewExpiry: attrs.ExtractInt64(attributes, "new_expiry"),
		RequestID: requestcontext.RequestID(ctx),
	})
	if err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "event", string(event), "error", err)
	}
}

func (s *Service) incrementQuoteFailure(code dErrors.Code) {
	if s.metrics != nil {
		s.metrics.IncrementQuoteFailure(string(code))
	}
}
