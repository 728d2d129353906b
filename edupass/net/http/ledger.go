package http

import (
	"context"
	"time"

	"github.com/edupass/edupass-ledger/edupass"
	constant "github.com/edupass/edupass-ledger/edupass/constants"
	"github.com/edupass/edupass-ledger/edupass/ledger"
	"github.com/edupass/edupass-ledger/edupass/log"
	"github.com/edupass/edupass-ledger/edupass/opentelemetry"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// healthProbeTimeout bounds the store ping issued by the health endpoint.
const healthProbeTimeout = 2 * time.Second

// LedgerHandler exposes the credit ledger operations over HTTP.
type LedgerHandler struct {
	engine *ledger.Engine
	store  ledger.Store
}

// NewLedgerHandler builds the HTTP handler for the given engine and store.
func NewLedgerHandler(engine *ledger.Engine, store ledger.Store) *LedgerHandler {
	return &LedgerHandler{engine: engine, store: store}
}

type initializeRequest struct {
	Admin string `json:"admin"`
}

type transferRequest struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Amount decimal.Decimal `json:"amount"`
}

type burnRequest struct {
	Account string          `json:"account"`
	Amount  decimal.Decimal `json:"amount"`
}

// invalidBody is the domain error for unparseable request payloads.
func invalidBody() error {
	return ledger.NewDomainError(ledger.ErrorInvalidInput, "body", "request body must be valid JSON")
}

// Initialize sets the ledger administrator. The first call wins; any later
// call is rejected.
func (h *LedgerHandler) Initialize(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req initializeRequest
	if err := c.BodyParser(&req); err != nil {
		return WithError(c, invalidBody(), constant.EntityLedger)
	}

	if err := h.engine.Initialize(ctx, ledger.AccountID(req.Admin)); err != nil {
		return WithError(c, err, constant.EntityLedger)
	}

	return Created(c, fiber.Map{"admin": req.Admin})
}

// IssueCredits mints credits to a beneficiary and records the allocation.
func (h *LedgerHandler) IssueCredits(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var input ledger.IssueInput
	if err := c.BodyParser(&input); err != nil {
		return WithError(c, invalidBody(), constant.EntityAllocation)
	}

	allocation, err := h.engine.IssueCredits(ctx, input)
	if err != nil {
		return WithError(c, err, constant.EntityAllocation)
	}

	return Created(c, allocation)
}

// Transfer moves credits between two accounts.
func (h *LedgerHandler) Transfer(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return WithError(c, invalidBody(), constant.EntityAccount)
	}

	err := h.engine.Transfer(ctx, ledger.AccountID(req.From), ledger.AccountID(req.To), req.Amount)
	if err != nil {
		return WithError(c, err, constant.EntityAccount)
	}

	return OK(c, fiber.Map{
		"from":   req.From,
		"to":     req.To,
		"amount": req.Amount,
	})
}

// Burn permanently removes credits from an account.
func (h *LedgerHandler) Burn(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req burnRequest
	if err := c.BodyParser(&req); err != nil {
		return WithError(c, invalidBody(), constant.EntityAccount)
	}

	if err := h.engine.Burn(ctx, ledger.AccountID(req.Account), req.Amount); err != nil {
		return WithError(c, err, constant.EntityAccount)
	}

	return OK(c, fiber.Map{
		"account": req.Account,
		"amount":  req.Amount,
	})
}

// Balance returns an account's current balance. Accounts never credited
// report zero.
func (h *LedgerHandler) Balance(c *fiber.Ctx) error {
	ctx := c.UserContext()
	account := ledger.AccountID(c.Params("account_id"))

	balance, err := h.engine.Balance(ctx, account)
	if err != nil {
		return WithError(c, err, constant.EntityAccount)
	}

	return OK(c, fiber.Map{
		"accountId": account,
		"balance":   balance,
	})
}

// Allocation returns the beneficiary's most recent allocation, or null when
// the beneficiary never received an issuance.
func (h *LedgerHandler) Allocation(c *fiber.Ctx) error {
	ctx := c.UserContext()
	beneficiary := ledger.AccountID(c.Params("account_id"))

	allocation, ok, err := h.engine.Allocation(ctx, beneficiary)
	if err != nil {
		return WithError(c, err, constant.EntityAllocation)
	}

	if !ok {
		return OK(c, fiber.Map{
			"beneficiary": beneficiary,
			"allocation":  nil,
		})
	}

	return OK(c, fiber.Map{
		"beneficiary": beneficiary,
		"allocation":  allocation,
	})
}

// TotalIssued returns the cumulative amount of credits ever issued.
func (h *LedgerHandler) TotalIssued(c *fiber.Ctx) error {
	ctx := c.UserContext()

	total, err := h.engine.TotalIssued(ctx)
	if err != nil {
		return WithError(c, err, constant.EntityLedger)
	}

	return OK(c, fiber.Map{"totalIssued": total})
}

// Admin returns the ledger administrator, or null before initialization.
func (h *LedgerHandler) Admin(c *fiber.Ctx) error {
	ctx := c.UserContext()

	admin, ok, err := h.engine.Admin(ctx)
	if err != nil {
		return WithError(c, err, constant.EntityLedger)
	}

	if !ok {
		return OK(c, fiber.Map{"admin": nil})
	}

	return OK(c, fiber.Map{"admin": admin})
}

// RegisterRoutes wires the ledger API onto the app.
func (h *LedgerHandler) RegisterRoutes(f *fiber.App) {
	v1 := f.Group("/v1")

	v1.Post("/ledger/initialize", h.Initialize)
	v1.Get("/ledger/total-issued", h.TotalIssued)
	v1.Get("/ledger/admin", h.Admin)

	v1.Post("/credits/issue", h.IssueCredits)
	v1.Post("/credits/transfer", h.Transfer)
	v1.Post("/credits/burn", h.Burn)

	v1.Get("/accounts/:account_id/balance", h.Balance)
	v1.Get("/accounts/:account_id/allocation", h.Allocation)
}

// NewRouter builds the service's fiber app with the full middleware chain
// and every route registered.
func NewRouter(logger log.Logger, tl *opentelemetry.Telemetry, engine *ledger.Engine, store ledger.Store) *fiber.App {
	f := fiber.New(fiber.Config{
		ErrorHandler:          FiberErrorHandler,
		DisableStartupMessage: true,
	})

	handler := NewLedgerHandler(engine, store)

	telemetryMiddleware := NewTelemetryMiddleware(tl)

	f.Use(telemetryMiddleware.WithTelemetry("/health", "/version", "/ping"))
	f.Use(WithHTTPLogging(WithCustomLogger(logger)))
	f.Use(WithTokenFromHeader())

	f.Get("/", Welcome("edupass-ledger", "Education credit ledger service"))
	f.Get("/health", HealthWithDependencies(DependencyCheck{
		Name: "store",
		HealthCheck: func() bool {
			ctx, cancel, err := edupass.WithTimeoutSafe(context.Background(), healthProbeTimeout)
			if err != nil {
				return false
			}
			defer cancel()

			return store.Ping(ctx) == nil
		},
	}))
	f.Get("/version", Version)
	f.Get("/ping", Ping)

	handler.RegisterRoutes(f)

	return f
}
