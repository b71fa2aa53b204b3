package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/models"
	pkgerrors "github.com/DebiyaQugan28/vallblox-gaming-store/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const serverKey = "SB-Mid-server-test"

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw, fraud string
		want       models.OrderStatus
		ok         bool
	}{
		{"capture", "challenge", models.StatusPending, true},
		{"capture", "accept", models.StatusCompleted, true},
		{"capture", "", "", false},
		{"settlement", "", models.StatusCompleted, true},
		{"cancel", "", models.StatusFailed, true},
		{"deny", "", models.StatusFailed, true},
		{"expire", "", models.StatusFailed, true},
		{"pending", "", models.StatusPending, true},
		{"refund", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw+"/"+tt.fraud, func(t *testing.T) {
			got, ok := Normalize(tt.raw, tt.fraud)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNotification_VerifySignature(t *testing.T) {
	n := Notification{OrderID: "VALLBLOX-1-7", StatusCode: "200", GrossAmount: "450000.00"}

	t.Run("valid", func(t *testing.T) {
		n.SignatureKey = Signature(n.OrderID, n.StatusCode, n.GrossAmount, serverKey)
		assert.NoError(t, n.VerifySignature(serverKey))
	})

	t.Run("wrong key", func(t *testing.T) {
		n.SignatureKey = Signature(n.OrderID, n.StatusCode, n.GrossAmount, "other-key")
		assert.ErrorIs(t, n.VerifySignature(serverKey), pkgerrors.ErrInvalidSignature)
	})

	t.Run("tampered amount", func(t *testing.T) {
		n.SignatureKey = Signature(n.OrderID, n.StatusCode, "1.00", serverKey)
		assert.ErrorIs(t, n.VerifySignature(serverKey), pkgerrors.ErrInvalidSignature)
	})

	t.Run("missing", func(t *testing.T) {
		n.SignatureKey = ""
		assert.ErrorIs(t, n.VerifySignature(serverKey), pkgerrors.ErrInvalidSignature)
	})
}

func TestMidtransClient_CreateSession(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/snap/v1/transactions", r.URL.Path)
			user, pass, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, serverKey, user)
			assert.Empty(t, pass)

			var body struct {
				TransactionDetails struct {
					OrderID     string          `json:"order_id"`
					GrossAmount json.RawMessage `json:"gross_amount"`
				} `json:"transaction_details"`
				ItemDetails []struct {
					ID       string          `json:"id"`
					Name     string          `json:"name"`
					Price    json.RawMessage `json:"price"`
					Quantity int             `json:"quantity"`
				} `json:"item_details"`
				CustomerDetails map[string]interface{} `json:"customer_details"`
				CreditCard      struct {
					Secure bool `json:"secure"`
				} `json:"credit_card"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "VALLBLOX-1-7", body.TransactionDetails.OrderID)
			assert.Equal(t, "450000", string(body.TransactionDetails.GrossAmount))
			if assert.Len(t, body.ItemDetails, 1) {
				assert.Equal(t, "1", body.ItemDetails[0].ID)
				assert.Equal(t, "PERMANENT DRAGON", body.ItemDetails[0].Name)
				assert.Equal(t, "450000", string(body.ItemDetails[0].Price))
				assert.Equal(t, 1, body.ItemDetails[0].Quantity)
			}
			assert.Equal(t, "Budi", body.CustomerDetails["first_name"])
			assert.Equal(t, "budi@example.com", body.CustomerDetails["email"])
			assert.Equal(t, "0812", body.CustomerDetails["phone"])
			assert.True(t, body.CreditCard.Secure)

			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"token":"snap-token","redirect_url":"https://app.sandbox.midtrans.com/snap/v2/vtweb/snap-token"}`))
		}))
		defer srv.Close()

		client, err := NewMidtransClient(serverKey, false, srv.URL, time.Second)
		require.NoError(t, err)
		session, err := client.CreateSession(context.Background(), SessionRequest{
			OrderID:     "VALLBLOX-1-7",
			GrossAmount: decimal.NewFromInt(450000),
			Items:       []Item{{ID: "1", Name: "PERMANENT DRAGON", Price: decimal.NewFromInt(450000), Quantity: 1}},
			Customer:    json.RawMessage(`{"first_name":"Budi","email":"budi@example.com","phone":"0812"}`),
		})
		require.NoError(t, err)
		assert.Equal(t, "snap-token", session.Token)
		assert.NotEmpty(t, session.RedirectURL)
	})

	t.Run("provider rejects", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error_messages":["Access denied due to unauthorized transaction"]}`))
		}))
		defer srv.Close()

		client, err := NewMidtransClient(serverKey, false, srv.URL, time.Second)
		require.NoError(t, err)
		session, err := client.CreateSession(context.Background(), SessionRequest{OrderID: "VALLBLOX-1-7", GrossAmount: decimal.NewFromInt(1)})
		assert.Nil(t, session)
		assert.ErrorIs(t, err, pkgerrors.ErrGateway)
		assert.Contains(t, err.Error(), "Access denied")
	})

	t.Run("empty token", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		client, err := NewMidtransClient(serverKey, false, srv.URL, time.Second)
		require.NoError(t, err)
		_, err = client.CreateSession(context.Background(), SessionRequest{OrderID: "VALLBLOX-1-7", GrossAmount: decimal.NewFromInt(1)})
		assert.ErrorIs(t, err, pkgerrors.ErrGateway)
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := srv.URL
		srv.Close()

		client, err := NewMidtransClient(serverKey, false, url, time.Second)
		require.NoError(t, err)
		_, err = client.CreateSession(context.Background(), SessionRequest{OrderID: "VALLBLOX-1-7", GrossAmount: decimal.NewFromInt(1)})
		assert.ErrorIs(t, err, pkgerrors.ErrGateway)
	})

	t.Run("gross amount is whole rupiah", func(t *testing.T) {
		var grossAmount json.RawMessage
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				TransactionDetails struct {
					GrossAmount json.RawMessage `json:"gross_amount"`
				} `json:"transaction_details"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			grossAmount = body.TransactionDetails.GrossAmount
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"token":"snap-token"}`))
		}))
		defer srv.Close()

		client, err := NewMidtransClient(serverKey, false, srv.URL, time.Second)
		require.NoError(t, err)
		_, err = client.CreateSession(context.Background(), SessionRequest{OrderID: "VALLBLOX-1-7", GrossAmount: decimal.NewFromInt(25000)})
		require.NoError(t, err)
		assert.Equal(t, "25000", string(grossAmount))
	})

	t.Run("malformed customer details", func(t *testing.T) {
		client, err := NewMidtransClient(serverKey, false, "http://127.0.0.1:1", time.Second)
		require.NoError(t, err)
		_, err = client.CreateSession(context.Background(), SessionRequest{
			OrderID:     "VALLBLOX-1-7",
			GrossAmount: decimal.NewFromInt(1),
			Customer:    json.RawMessage(`["not","an","object"]`),
		})
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
	})

	t.Run("cancelled context", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"token":"snap-token"}`))
		}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		client, err := NewMidtransClient(serverKey, false, srv.URL, time.Second)
		require.NoError(t, err)
		_, err = client.CreateSession(ctx, SessionRequest{OrderID: "VALLBLOX-1-7", GrossAmount: decimal.NewFromInt(1)})
		assert.ErrorIs(t, err, pkgerrors.ErrGateway)
	})

	t.Run("host selection", func(t *testing.T) {
		sandbox, err := NewMidtransClient(serverKey, false, "", time.Second)
		require.NoError(t, err)
		assert.Equal(t, "https://app.sandbox.midtrans.com", sandbox.SnapURL())

		production, err := NewMidtransClient(serverKey, true, "", time.Second)
		require.NoError(t, err)
		assert.Equal(t, "https://app.midtrans.com", production.SnapURL())

		override, err := NewMidtransClient(serverKey, true, "http://localhost:9999/", time.Second)
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:9999", override.SnapURL())

		_, err = NewMidtransClient(serverKey, false, "localhost:9999", time.Second)
		assert.Error(t, err)
	})
}

type ledgerMock struct {
	mock.Mock
}

func (m *ledgerMock) ApplyGatewayEvent(ctx context.Context, event models.GatewayEvent) (*models.StatusChange, error) {
	args := m.Called(ctx, event)
	change, _ := args.Get(0).(*models.StatusChange)
	return change, args.Error(1)
}

func signedBody(t *testing.T, n Notification) []byte {
	t.Helper()
	n.SignatureKey = Signature(n.OrderID, n.StatusCode, n.GrossAmount, serverKey)
	body, err := json.Marshal(n)
	require.NoError(t, err)
	return body
}

func TestWebhookProcessor_Process(t *testing.T) {
	ctx := context.Background()
	settlement := Notification{
		OrderID:           "VALLBLOX-1-7",
		TransactionStatus: "settlement",
		TransactionID:     "tx-1",
		StatusCode:        "200",
		GrossAmount:       "450000.00",
		PaymentType:       "bank_transfer",
	}

	t.Run("malformed json", func(t *testing.T) {
		ledger := &ledgerMock{}
		err := NewWebhookProcessor(ledger, serverKey).Process(ctx, []byte(`{not json`))
		assert.ErrorIs(t, err, pkgerrors.ErrMalformedNotification)
		ledger.AssertNotCalled(t, "ApplyGatewayEvent", mock.Anything, mock.Anything)
	})

	t.Run("missing order id", func(t *testing.T) {
		ledger := &ledgerMock{}
		err := NewWebhookProcessor(ledger, serverKey).Process(ctx, []byte(`{"transaction_status":"settlement"}`))
		assert.ErrorIs(t, err, pkgerrors.ErrMalformedNotification)
	})

	t.Run("bad signature", func(t *testing.T) {
		ledger := &ledgerMock{}
		n := settlement
		n.SignatureKey = "deadbeef"
		body, _ := json.Marshal(n)

		err := NewWebhookProcessor(ledger, serverKey).Process(ctx, body)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidSignature)
		ledger.AssertNotCalled(t, "ApplyGatewayEvent", mock.Anything, mock.Anything)
	})

	t.Run("applied", func(t *testing.T) {
		ledger := &ledgerMock{}
		ledger.On("ApplyGatewayEvent", mock.Anything, models.GatewayEvent{
			OrderRef:      "VALLBLOX-1-7",
			RawStatus:     "settlement",
			TransactionID: "tx-1",
			PaymentType:   "bank_transfer",
		}).Return(&models.StatusChange{Applied: true}, nil)

		err := NewWebhookProcessor(ledger, serverKey).Process(ctx, signedBody(t, settlement))
		assert.NoError(t, err)
		ledger.AssertExpectations(t)
	})

	t.Run("ledger failure is acknowledged", func(t *testing.T) {
		ledger := &ledgerMock{}
		ledger.On("ApplyGatewayEvent", mock.Anything, mock.Anything).Return(nil, errors.New("database down"))

		err := NewWebhookProcessor(ledger, serverKey).Process(ctx, signedBody(t, settlement))
		assert.NoError(t, err)
		ledger.AssertExpectations(t)
	})
}
