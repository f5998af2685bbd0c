// Package billing implements the billing platform API port over its REST
// interface.
package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"

	domainbilling "github.com/cassiomorais/gateway-reconciler/internal/domain/billing"
	apperrors "github.com/cassiomorais/gateway-reconciler/internal/domain/errors"
	"github.com/cassiomorais/gateway-reconciler/internal/infrastructure/config"
	"github.com/cassiomorais/gateway-reconciler/internal/infrastructure/observability"
	"github.com/cassiomorais/gateway-reconciler/pkg/retry"
)

const breakerName = "billing-platform"

// Client calls the billing platform REST API. All calls go through a shared
// circuit breaker; idempotent reads additionally retry with backoff.
type Client struct {
	http     *resty.Client
	breaker  *gobreaker.CircuitBreaker[*resty.Response]
	retryCfg retry.Config
	metrics  *observability.Metrics
	logger   zerolog.Logger
}

func NewClient(cfg config.BillingConfig, logger zerolog.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.RequestTimeout).
		SetHeader("Accept", "application/json").
		SetHeader("X-Api-Key", cfg.APIKey)

	threshold := cfg.CircuitBreakerThreshold
	if threshold == 0 {
		threshold = 10
	}

	retryCfg := retry.DefaultConfig()
	if cfg.RetryAttempts > 0 {
		retryCfg.MaxAttempts = cfg.RetryAttempts
	}
	if cfg.RetryDelay > 0 {
		retryCfg.InitialDelay = cfg.RetryDelay
	}

	c := &Client{
		http:     httpClient,
		retryCfg: retryCfg,
		logger:   logger.With().Str("component", "billing_client").Logger(),
	}
	c.breaker = gobreaker.NewCircuitBreaker[*resty.Response](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 10,
		Interval:    60 * time.Second,
		Timeout:     cfg.CircuitBreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= threshold && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
			if c.metrics != nil {
				c.metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
			}
		},
	})
	return c
}

// WithMetrics enables per-request instrumentation. metrics may be nil.
func (c *Client) WithMetrics(metrics *observability.Metrics) *Client {
	c.metrics = metrics
	return c
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 2
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 0
	}
}

type accountDTO struct {
	ID          uuid.UUID `json:"id"`
	TenantID    uuid.UUID `json:"tenant_id"`
	ExternalKey string    `json:"external_key"`
	Name        string    `json:"name"`
	Currency    string    `json:"currency"`
}

type transactionDTO struct {
	ID          uuid.UUID `json:"id"`
	ExternalKey string    `json:"external_key"`
	Type        string    `json:"type"`
	Amount      string    `json:"amount"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
}

type paymentDTO struct {
	ID           uuid.UUID        `json:"id"`
	AccountID    uuid.UUID        `json:"account_id"`
	ExternalKey  string           `json:"external_key"`
	Transactions []transactionDTO `json:"transactions"`
}

type paymentMethodDTO struct {
	ID         uuid.UUID `json:"id"`
	AccountID  uuid.UUID `json:"account_id"`
	PluginName string    `json:"plugin_name"`
	IsDefault  bool      `json:"is_default"`
}

type errorDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const errCodeTransactionNotPending = "transaction_not_pending"

func (c *Client) Account(ctx context.Context, accountID uuid.UUID, cctx domainbilling.CallContext) (*domainbilling.Account, error) {
	resp, err := retry.DoWithResult(ctx, c.retryCfg, func() (*resty.Response, error) {
		return c.get(ctx, cctx, "fetch_account", fmt.Sprintf("/api/v1/accounts/%s", accountID))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch account %s: %w", accountID, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, apperrors.ErrAccountNotFound
	}
	if resp.IsError() {
		return nil, unexpectedStatus("fetch account", resp)
	}

	var dto accountDTO
	if err := json.Unmarshal(resp.Body(), &dto); err != nil {
		return nil, fmt.Errorf("failed to decode account response: %w", err)
	}
	return dto.toDomain()
}

func (c *Client) NotifyTransactionStateChanged(ctx context.Context, account *domainbilling.Account, transactionID uuid.UUID, success bool, cctx domainbilling.CallContext) error {
	body := map[string]any{"success": success}
	path := fmt.Sprintf("/api/v1/accounts/%s/transactions/%s/state", account.ID, transactionID)

	resp, err := c.post(ctx, cctx, "notify_transaction_state", path, body)
	if err != nil {
		return fmt.Errorf("failed to notify transaction state: %w", err)
	}
	if resp.StatusCode() == http.StatusUnprocessableEntity && errorCode(resp) == errCodeTransactionNotPending {
		return apperrors.ErrTransactionNotPending
	}
	if resp.IsError() {
		return unexpectedStatus("notify transaction state", resp)
	}
	return nil
}

func (c *Client) CreatePurchase(ctx context.Context, req domainbilling.PurchaseRequest, cctx domainbilling.CallContext) (*domainbilling.Payment, error) {
	body := map[string]any{
		"payment_method_id":        req.PaymentMethodID,
		"amount":                   req.Amount.String(),
		"currency":                 string(req.Currency),
		"external_key":             req.ExternalKey,
		"transaction_external_key": req.TransactionExternalKey,
		"properties":               req.Properties,
	}
	path := fmt.Sprintf("/api/v1/accounts/%s/purchases", req.Account)

	resp, err := c.post(ctx, cctx, "create_purchase", path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create purchase: %w", err)
	}
	if resp.IsError() {
		return nil, unexpectedStatus("create purchase", resp)
	}
	return decodePayment(resp)
}

func (c *Client) CreateChargeback(ctx context.Context, account *domainbilling.Account, paymentID uuid.UUID, amount decimal.Decimal, currency domainbilling.Currency, reason string, cctx domainbilling.CallContext) (*domainbilling.Payment, error) {
	body := map[string]any{
		"amount":   amount.String(),
		"currency": string(currency),
		"reason":   reason,
	}
	path := fmt.Sprintf("/api/v1/payments/%s/chargebacks", paymentID)

	resp, err := c.post(ctx, cctx, "create_chargeback", path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create chargeback: %w", err)
	}
	if resp.IsError() {
		return nil, unexpectedStatus("create chargeback", resp)
	}
	return decodePayment(resp)
}

func (c *Client) AccountPaymentMethods(ctx context.Context, accountID uuid.UUID, cctx domainbilling.CallContext) ([]domainbilling.PaymentMethod, error) {
	resp, err := retry.DoWithResult(ctx, c.retryCfg, func() (*resty.Response, error) {
		return c.get(ctx, cctx, "list_payment_methods", fmt.Sprintf("/api/v1/accounts/%s/payment-methods", accountID))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list payment methods: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, apperrors.ErrAccountNotFound
	}
	if resp.IsError() {
		return nil, unexpectedStatus("list payment methods", resp)
	}

	var dtos []paymentMethodDTO
	if err := json.Unmarshal(resp.Body(), &dtos); err != nil {
		return nil, fmt.Errorf("failed to decode payment methods response: %w", err)
	}

	methods := make([]domainbilling.PaymentMethod, 0, len(dtos))
	for _, dto := range dtos {
		methods = append(methods, domainbilling.PaymentMethod{
			ID:         dto.ID,
			AccountID:  dto.AccountID,
			PluginName: dto.PluginName,
			IsDefault:  dto.IsDefault,
		})
	}
	return methods, nil
}

func (c *Client) get(ctx context.Context, cctx domainbilling.CallContext, op, path string) (*resty.Response, error) {
	return c.execute(op, func() (*resty.Response, error) {
		return c.request(ctx, cctx).Get(path)
	})
}

func (c *Client) post(ctx context.Context, cctx domainbilling.CallContext, op, path string, body any) (*resty.Response, error) {
	return c.execute(op, func() (*resty.Response, error) {
		return c.request(ctx, cctx).SetBody(body).Post(path)
	})
}

func (c *Client) execute(op string, call func() (*resty.Response, error)) (*resty.Response, error) {
	start := time.Now()
	resp, err := c.breaker.Execute(call)
	if c.metrics != nil {
		c.metrics.BillingRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		c.metrics.BillingRequestsTotal.WithLabelValues(op, statusLabel(resp, err)).Inc()
		result := "success"
		if err != nil {
			result = "failure"
		}
		c.metrics.CircuitBreakerRequests.WithLabelValues(breakerName, result).Inc()
	}
	return resp, err
}

func statusLabel(resp *resty.Response, err error) string {
	if err != nil {
		return "error"
	}
	return strconv.Itoa(resp.StatusCode())
}

func (c *Client) request(ctx context.Context, cctx domainbilling.CallContext) *resty.Request {
	return c.http.R().
		SetContext(ctx).
		SetHeader("X-Tenant-ID", cctx.TenantID.String()).
		SetHeader("X-Created-At", cctx.CreatedAt.UTC().Format(time.RFC3339))
}

func (dto accountDTO) toDomain() (*domainbilling.Account, error) {
	currency, err := domainbilling.ParseCurrency(dto.Currency)
	if err != nil {
		return nil, fmt.Errorf("account %s has unsupported currency: %w", dto.ID, err)
	}
	return &domainbilling.Account{
		ID:          dto.ID,
		TenantID:    dto.TenantID,
		ExternalKey: dto.ExternalKey,
		Name:        dto.Name,
		Currency:    currency,
	}, nil
}

func decodePayment(resp *resty.Response) (*domainbilling.Payment, error) {
	var dto paymentDTO
	if err := json.Unmarshal(resp.Body(), &dto); err != nil {
		return nil, fmt.Errorf("failed to decode payment response: %w", err)
	}

	payment := &domainbilling.Payment{
		ID:           dto.ID,
		AccountID:    dto.AccountID,
		ExternalKey:  dto.ExternalKey,
		Transactions: make([]domainbilling.PaymentTransaction, 0, len(dto.Transactions)),
	}
	for _, tx := range dto.Transactions {
		amount, err := decimal.NewFromString(tx.Amount)
		if err != nil {
			return nil, fmt.Errorf("transaction %s has malformed amount %q: %w", tx.ID, tx.Amount, err)
		}
		payment.Transactions = append(payment.Transactions, domainbilling.PaymentTransaction{
			ID:          tx.ID,
			ExternalKey: tx.ExternalKey,
			Type:        domainbilling.TransactionType(tx.Type),
			Amount:      amount,
			Currency:    domainbilling.Currency(tx.Currency),
			Status:      tx.Status,
		})
	}
	return payment, nil
}

func errorCode(resp *resty.Response) string {
	var dto errorDTO
	if err := json.Unmarshal(resp.Body(), &dto); err != nil {
		return ""
	}
	return dto.Code
}

func unexpectedStatus(op string, resp *resty.Response) error {
	return fmt.Errorf("%s returned status %d: %s", op, resp.StatusCode(), resp.String())
}
