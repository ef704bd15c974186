package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"casamento/internal/config"
	"casamento/internal/metrics"

	mpconfig "github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/mperror"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"go.uber.org/zap"
)

// Client talks to the payment gateway.
type Client interface {
	CreatePixPayment(ctx context.Context, req CreatePixRequest) (*Payment, error)
	GetPayment(ctx context.Context, id string) (*Payment, error)
}

type mercadoPagoClient struct {
	payments payment.Client
	metrics  metrics.Collector
	logger   *zap.Logger
}

// NewClient builds a Mercado Pago client on the official SDK.
func NewClient(cfg config.GatewayConfig, collector metrics.Collector, logger *zap.Logger) (Client, error) {
	if collector == nil {
		collector = metrics.Noop{}
	}

	req := &requester{http: &http.Client{Timeout: cfg.Timeout}}
	if cfg.BaseURL != "" && cfg.BaseURL != DefaultBaseURL {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("invalid gateway base url %q", cfg.BaseURL)
		}
		req.base = u
	}

	mpCfg, err := mpconfig.New(cfg.AccessToken, mpconfig.WithHTTPClient(req))
	if err != nil {
		return nil, fmt.Errorf("failed to configure gateway: %w", err)
	}

	return &mercadoPagoClient{
		payments: payment.NewClient(mpCfg),
		metrics:  collector,
		logger:   logger,
	}, nil
}

func (c *mercadoPagoClient) CreatePixPayment(ctx context.Context, req CreatePixRequest) (p *Payment, err error) {
	defer c.observe("create", time.Now(), &err)

	amount, _ := req.Amount.Round(2).Float64()
	body := payment.Request{
		TransactionAmount: amount,
		Description:       req.Description,
		PaymentMethodID:   PaymentMethodPix,
		Payer:             &payment.PayerRequest{Email: req.PayerEmail},
		ExternalReference: req.ExternalReference,
		NotificationURL:   req.NotificationURL,
	}
	if len(req.Metadata) > 0 {
		body.Metadata = make(map[string]any, len(req.Metadata))
		for k, v := range req.Metadata {
			body.Metadata[k] = v
		}
	}
	if !req.ExpiresAt.IsZero() {
		exp := req.ExpiresAt
		body.DateOfExpiration = &exp
	}

	resp, err := c.payments.Create(withIdempotencyKey(ctx, req.IdempotencyKey), body)
	if err != nil {
		return nil, c.translate("create", err)
	}
	return fromResponse(resp)
}

func (c *mercadoPagoClient) GetPayment(ctx context.Context, id string) (p *Payment, err error) {
	defer c.observe("get", time.Now(), &err)

	if id == "" {
		return nil, errors.New("payment id is required")
	}
	// gateway ids are numeric, anything else cannot exist there
	n, convErr := strconv.Atoi(id)
	if convErr != nil {
		return nil, &Error{StatusCode: http.StatusNotFound, Message: "payment " + id + " not found"}
	}

	resp, err := c.payments.Get(ctx, n)
	if err != nil {
		return nil, c.translate("get", err)
	}
	return fromResponse(resp)
}

func (c *mercadoPagoClient) observe(op string, start time.Time, err *error) {
	result := "ok"
	if *err != nil {
		result = "error"
	}
	c.metrics.RecordGatewayCall(op, result, time.Since(start))
}

// translate turns SDK response errors into *Error so callers can classify
// them by status code.
func (c *mercadoPagoClient) translate(op string, err error) error {
	var respErr *mperror.ResponseError
	if !errors.As(err, &respErr) {
		return fmt.Errorf("gateway request failed: %w", err)
	}

	var eb errorBody
	_ = json.Unmarshal([]byte(respErr.Message), &eb)
	msg := eb.text()
	if msg == "" {
		msg = http.StatusText(respErr.StatusCode)
	}
	c.logger.Warn("gateway returned error",
		zap.String("operation", op),
		zap.Int("status", respErr.StatusCode),
		zap.String("message", msg),
	)
	return &Error{StatusCode: respErr.StatusCode, Message: msg}
}

func fromResponse(resp *payment.Response) (*Payment, error) {
	p := &Payment{
		ID:                ID(strconv.Itoa(resp.ID)),
		Status:            resp.Status,
		StatusDetail:      resp.StatusDetail,
		TransactionAmount: resp.TransactionAmount,
		ExternalReference: resp.ExternalReference,
		Metadata:          resp.Metadata,
	}
	td := resp.PointOfInteraction.TransactionData
	if td.QRCode != "" || td.QRCodeBase64 != "" {
		p.PointOfInteraction = &PointOfInteraction{TransactionData: &TransactionData{
			QRCode:       td.QRCode,
			QRCodeBase64: td.QRCodeBase64,
		}}
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to encode gateway response: %w", err)
	}
	if err := json.Unmarshal(raw, &p.Raw); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}
	return p, nil
}

type idempotencyKeyCtx struct{}

func withIdempotencyKey(ctx context.Context, key string) context.Context {
	if key == "" {
		return ctx
	}
	return context.WithValue(ctx, idempotencyKeyCtx{}, key)
}

// requester is handed to the SDK as its HTTP client. It replaces the
// SDK's random idempotency key with the caller's and can point the SDK at
// another host.
type requester struct {
	http *http.Client
	base *url.URL
}

func (r *requester) Do(req *http.Request) (*http.Response, error) {
	if key, ok := req.Context().Value(idempotencyKeyCtx{}).(string); ok {
		req.Header.Set("X-Idempotency-Key", key)
	}
	if r.base != nil {
		req.URL.Scheme = r.base.Scheme
		req.URL.Host = r.base.Host
		req.Host = r.base.Host
	}
	return r.http.Do(req)
}
