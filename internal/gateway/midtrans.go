package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/infrastructure/observability"
	pkgerrors "github.com/DebiyaQugan28/vallblox-gaming-store/pkg/errors"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type Item struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Quantity int
}

type SessionRequest struct {
	OrderID     string
	GrossAmount decimal.Decimal
	Items       []Item
	// Customer holds Midtrans customer_details JSON.
	Customer json.RawMessage
}

type Session struct {
	Token       string
	RedirectURL string
}

type SessionCreator interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
}

// MidtransClient opens Snap payment sessions through the official SDK.
type MidtransClient struct {
	snap     snap.Client
	override *url.URL
	timeout  time.Duration
}

// NewMidtransClient targets the sandbox or production Snap host. A non-empty
// baseURL redirects every call to that scheme and host instead.
func NewMidtransClient(serverKey string, production bool, baseURL string, timeout time.Duration) (*MidtransClient, error) {
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}

	c := &MidtransClient{timeout: timeout}
	c.snap.New(serverKey, env)

	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid midtrans base url %q", baseURL)
		}
		c.override = u
	}
	return c, nil
}

// SnapURL is the host sessions are opened against.
func (c *MidtransClient) SnapURL() string {
	if c.override != nil {
		return c.override.Scheme + "://" + c.override.Host
	}
	return c.snap.Env.SnapURL()
}

// snapTransport binds the SDK's context-free requests to the caller's context
// and applies the base URL override.
type snapTransport struct {
	ctx      context.Context
	override *url.URL
	next     http.RoundTripper
}

func (t snapTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(t.ctx)
	if t.override != nil {
		out.URL.Scheme = t.override.Scheme
		out.URL.Host = t.override.Host
		out.Host = t.override.Host
	}
	return t.next.RoundTrip(out)
}

// client returns a per-call copy of the Snap client whose requests honour ctx.
func (c *MidtransClient) client(ctx context.Context) snap.Client {
	sc := c.snap
	hc := midtrans.GetHttpClient(sc.Env)
	hc.HttpClient = &http.Client{
		Timeout:   c.timeout,
		Transport: snapTransport{ctx: ctx, override: c.override, next: http.DefaultTransport},
	}
	hc.Logger = &midtrans.LoggerImplementation{LogLevel: midtrans.LogError}
	sc.HttpClient = hc
	return sc
}

func (c *MidtransClient) CreateSession(ctx context.Context, req SessionRequest) (_ *Session, err error) {
	ctx, span := otel.Tracer("midtrans-client").Start(ctx, "CreateSession")
	defer span.End()
	span.SetAttributes(attribute.String("order_id", req.OrderID))

	start := time.Now()
	status := "error"
	defer func() {
		observability.GatewayRequestDuration.WithLabelValues("create_session", status).Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	// Snap charges IDR in whole rupiah.
	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.OrderID,
			GrossAmt: req.GrossAmount.IntPart(),
		},
		CreditCard: &snap.CreditCardDetails{Secure: true},
	}
	if len(req.Items) > 0 {
		items := make([]midtrans.ItemDetails, 0, len(req.Items))
		for _, item := range req.Items {
			items = append(items, midtrans.ItemDetails{
				ID:    item.ID,
				Name:  item.Name,
				Price: item.Price.IntPart(),
				Qty:   int32(item.Quantity),
			})
		}
		snapReq.Items = &items
	}
	if len(req.Customer) > 0 {
		var customer midtrans.CustomerDetails
		if err := json.Unmarshal(req.Customer, &customer); err != nil {
			return nil, fmt.Errorf("%w: customer_details: %v", pkgerrors.ErrInvalidInput, err)
		}
		snapReq.CustomerDetail = &customer
	}

	resp, apiErr := c.client(ctx).CreateTransaction(snapReq)
	if apiErr != nil {
		if code := apiErr.GetStatusCode(); code != 0 {
			status = strconv.Itoa(code)
		}
		slog.Error("snap rejected transaction",
			"method", "CreateSession",
			"order_id", req.OrderID,
			"status", apiErr.GetStatusCode(),
			"error", apiErr.GetMessage())
		return nil, fmt.Errorf("%w: status %d: %s", pkgerrors.ErrGateway, apiErr.GetStatusCode(), apiErr.GetMessage())
	}
	status = "success"

	if resp == nil || resp.Token == "" {
		return nil, fmt.Errorf("%w: snap response has no token", pkgerrors.ErrGateway)
	}

	slog.Info("snap session created", "method", "CreateSession", "order_id", req.OrderID)
	return &Session{Token: resp.Token, RedirectURL: resp.RedirectURL}, nil
}
