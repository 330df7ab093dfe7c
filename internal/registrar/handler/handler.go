package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"registrar/internal/envelope"
	"registrar/internal/registrar/models"
	"registrar/internal/registrar/service"
	"registrar/pkg/domain"
	dErrors "registrar/pkg/domain-errors"
	"registrar/pkg/platform/httputil"
	"registrar/pkg/requestcontext"
)

// Service is the registrar surface the transport drives.
type Service interface {
	Initialize(ctx context.Context, req *models.InitializeRequest) (*models.RegistryConfig, error)
	UpdatePrice(ctx context.Context, req *models.UpdatePriceRequest) (*models.RegistryConfig, error)
	UpdateGracePeriod(ctx context.Context, req *models.UpdateGracePeriodRequest) (*models.RegistryConfig, error)
	WithdrawFees(ctx context.Context, req *models.WithdrawRequest) (*models.WithdrawResult, error)
	RegisterDomain(ctx context.Context, req *models.RegisterRequest) (*models.PaymentReceipt, error)
	RenewDomain(ctx context.Context, req *models.RenewRequest) (*models.RenewReceipt, error)
	BuyDomain(ctx context.Context, req *models.BuyRequest) (*models.PaymentReceipt, error)
	UpdateAddresses(ctx context.Context, req *models.UpdateAddressesRequest) (*models.DomainRecord, error)
	TransferDomain(ctx context.Context, req *models.TransferRequest) (*models.DomainRecord, error)

	GetConfig(ctx context.Context) (*models.ConfigView, error)
	GetDomain(ctx context.Context, name string) (*models.DomainView, error)
	Quote(ctx context.Context, years uint64, feedID string) (*models.QuoteView, error)
	Addresses(name string) (*models.AccountAddresses, error)
	Balance(ctx context.Context, addr domain.Identity) (uint64, error)
	Airdrop(ctx context.Context, addr domain.Identity, lamports uint64) (uint64, error)
}

// Verifier turns an envelope's authorizations into the signer set.
type Verifier interface {
	Verify(ctx context.Context, env *envelope.Envelope) ([]domain.Identity, error)
}

// Handler wires registrar endpoints to the service.
type Handler struct {
	service  Service
	verifier Verifier
	logger   *slog.Logger
	devMode  bool
	dispatch map[string]operation
}

type operation func(ctx context.Context, args json.RawMessage) (any, error)

type Option func(*Handler)

// WithDevMode exposes the faucet endpoint.
func WithDevMode(enabled bool) Option {
	return func(h *Handler) {
		h.devMode = enabled
	}
}

// New constructs a registrar handler with its dependencies.
func New(svc Service, verifier Verifier, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{service: svc, verifier: verifier, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	h.dispatch = map[string]operation{
		service.OpInitialize:        bind(svc.Initialize),
		service.OpUpdatePrice:       bind(svc.UpdatePrice),
		service.OpUpdateGracePeriod: bind(svc.UpdateGracePeriod),
		service.OpWithdrawFees:      bind(svc.WithdrawFees),
		service.OpRegisterDomain:    bind(svc.RegisterDomain),
		service.OpRenewDomain:       bind(svc.RenewDomain),
		service.OpBuyDomain:         bind(svc.BuyDomain),
		service.OpUpdateAddresses:   bind(svc.UpdateAddresses),
		service.OpTransferDomain:    bind(svc.TransferDomain),
	}
	return h
}

// bind adapts a typed service call to the dispatch table.
func bind[Req any, Resp any](call func(context.Context, *Req) (*Resp, error)) operation {
	return func(ctx context.Context, args json.RawMessage) (any, error) {
		var req Req
		if len(args) == 0 {
			return nil, dErrors.New(dErrors.CodeBadRequest, "args are required")
		}
		if err := httputil.Decode(bytes.NewReader(args), &req); err != nil {
			return nil, err
		}
		return call(ctx, &req)
	}
}

// Register mounts registrar endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/v1", func(v1 chi.Router) {
		v1.Post("/operations", h.HandleOperation)
		v1.Get("/config", h.HandleGetConfig)
		v1.Get("/domains/{name}", h.HandleGetDomain)
		v1.Get("/quote", h.HandleQuote)
		v1.Get("/addresses", h.HandleAddresses)
		v1.Get("/addresses/{name}", h.HandleAddresses)
		v1.Get("/accounts/{address}", h.HandleBalance)
		if h.devMode {
			v1.Post("/airdrop", h.HandleAirdrop)
		}
	})
}

// HandleOperation handles POST /v1/operations.
func (h *Handler) HandleOperation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var env envelope.Envelope
	if err := httputil.Decode(r.Body, &env); err != nil {
		httputil.WriteError(w, err)
		return
	}
	op, ok := h.dispatch[env.Operation]
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unknown operation"))
		return
	}
	signers, err := h.verifier.Verify(ctx, &env)
	if err != nil {
		h.logger.WarnContext(ctx, "rejected authorizations",
			"request_id", requestID,
			"operation", env.Operation,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	ctx = requestcontext.WithSigners(ctx, signers...)

	result, err := op(ctx, env.Args)
	if err != nil {
		h.logFailure(ctx, env.Operation, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, operationResponse{Operation: env.Operation, Result: result})
}

type operationResponse struct {
	Operation string `json:"operation"`
	Result    any    `json:"result"`
}

// HandleGetConfig handles GET /v1/config.
func (h *Handler) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetConfig(r.Context())
	if err != nil {
		h.logFailure(r.Context(), "get_config", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

// HandleGetDomain handles GET /v1/domains/{name}.
func (h *Handler) HandleGetDomain(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetDomain(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.logFailure(r.Context(), "get_domain", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

// HandleQuote handles GET /v1/quote?years=N[&feed_id=...].
func (h *Handler) HandleQuote(w http.ResponseWriter, r *http.Request) {
	years, err := strconv.ParseUint(r.URL.Query().Get("years"), 10, 64)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidRegisterYears, "years must be a positive integer"))
		return
	}
	view, err := h.service.Quote(r.Context(), years, r.URL.Query().Get("feed_id"))
	if err != nil {
		h.logFailure(r.Context(), "quote", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

// HandleAddresses handles GET /v1/addresses[/{name}].
func (h *Handler) HandleAddresses(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Addresses(chi.URLParam(r, "name"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

type balanceResponse struct {
	Address  domain.Identity `json:"address"`
	Lamports uint64          `json:"lamports"`
}

// HandleBalance handles GET /v1/accounts/{address}.
func (h *Handler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	addr, err := domain.ParseIdentity(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid address"))
		return
	}
	lamports, err := h.service.Balance(r.Context(), addr)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, balanceResponse{Address: addr, Lamports: lamports})
}

type airdropRequest struct {
	Address  domain.Identity `json:"address"`
	Lamports uint64          `json:"lamports"`
}

// HandleAirdrop handles POST /v1/airdrop in dev mode.
func (h *Handler) HandleAirdrop(w http.ResponseWriter, r *http.Request) {
	var req airdropRequest
	if err := httputil.Decode(r.Body, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	lamports, err := h.service.Airdrop(r.Context(), req.Address, req.Lamports)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, balanceResponse{Address: req.Address, Lamports: lamports})
}

func (h *Handler) logFailure(ctx context.Context, op string, err error) {
	code := dErrors.CodeOf(err)
	args := []any{
		"request_id", requestcontext.RequestID(ctx),
		"operation", op,
		"code", string(code),
		"error", err,
	}
	if dErrors.ToHTTPStatus(code) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "registrar operation failed", args...)
		return
	}
	h.logger.WarnContext(ctx, "registrar operation rejected", args...)
}
