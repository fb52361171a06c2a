package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/storefront/internal/authorization"
	cartdomain "github.com/smallbiznis/storefront/internal/cart/domain"
	cartservice "github.com/smallbiznis/storefront/internal/cart/service"
	catalogdomain "github.com/smallbiznis/storefront/internal/catalog/domain"
	catalogrepo "github.com/smallbiznis/storefront/internal/catalog/repository"
	catalogservice "github.com/smallbiznis/storefront/internal/catalog/service"
	checkoutdomain "github.com/smallbiznis/storefront/internal/checkout/domain"
	"github.com/smallbiznis/storefront/internal/clock"
	"github.com/smallbiznis/storefront/internal/config"
	fulfillmentdomain "github.com/smallbiznis/storefront/internal/fulfillment/domain"
	inventorydomain "github.com/smallbiznis/storefront/internal/inventory/domain"
	inventoryrepo "github.com/smallbiznis/storefront/internal/inventory/repository"
	inventoryservice "github.com/smallbiznis/storefront/internal/inventory/service"
	"github.com/smallbiznis/storefront/internal/notification"
	"github.com/smallbiznis/storefront/internal/observability"
	orderdomain "github.com/smallbiznis/storefront/internal/order/domain"
	orderrepo "github.com/smallbiznis/storefront/internal/order/repository"
	orderservice "github.com/smallbiznis/storefront/internal/order/service"
	paymentdomain "github.com/smallbiznis/storefront/internal/payment/domain"
	"github.com/smallbiznis/storefront/internal/providers/email"
	"github.com/smallbiznis/storefront/internal/providers/pdf"
	"github.com/smallbiznis/storefront/internal/testutil"
	"github.com/smallbiznis/storefront/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const adminKey = "sfk_ops_test"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type checkoutMock struct {
	mock.Mock
}

func (m *checkoutMock) Create(ctx context.Context, req checkoutdomain.Request) (*checkoutdomain.Session, error) {
	args := m.Called(ctx, req)
	session, _ := args.Get(0).(*checkoutdomain.Session)
	return session, args.Error(1)
}

type paymentMock struct {
	mock.Mock
}

func (m *paymentMock) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) (*paymentdomain.IngestResult, error) {
	args := m.Called(ctx, provider, payload, headers)
	result, _ := args.Get(0).(*paymentdomain.IngestResult)
	return result, args.Error(1)
}

type retriesMock struct {
	mock.Mock
}

func (m *retriesMock) ListRetries(ctx context.Context, req fulfillmentdomain.ListRetriesRequest) ([]fulfillmentdomain.Retry, error) {
	args := m.Called(ctx, req)
	retries, _ := args.Get(0).([]fulfillmentdomain.Retry)
	return retries, args.Error(1)
}

func (m *retriesMock) ProcessDue(ctx context.Context, limit int) (*fulfillmentdomain.RetryBatchResult, error) {
	args := m.Called(ctx, limit)
	result, _ := args.Get(0).(*fulfillmentdomain.RetryBatchResult)
	return result, args.Error(1)
}

type fixture struct {
	engine   *gin.Engine
	orders   orderdomain.Service
	checkout *checkoutMock
	payments *paymentMock
	retries  *retriesMock
	variant  *catalogdomain.Variant
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.OpenDB(t)
	node := testutil.Node(t, 11)
	fake := clock.NewFakeClock(time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	hash, err := authorization.HashKey(adminKey)
	require.NoError(t, err)
	cfg := config.Config{
		AppName: "Storefront",
		Admin:   config.AdminConfig{APIKeys: map[string]string{"ops": hash}},
	}

	enforcer, err := authorization.NewEnforcer(db)
	require.NoError(t, err)
	authz, err := authorization.NewService(authorization.Params{Log: log, Cfg: cfg, Enforcer: enforcer})
	require.NoError(t, err)

	catalog := catalogservice.New(catalogservice.Params{DB: db, Log: log, GenID: node, Repo: catalogrepo.Provide(), Clock: fake})
	inventory := inventoryservice.New(inventoryservice.Params{DB: db, Log: log, GenID: node, Repo: inventoryrepo.Provide(), Clock: fake, Catalog: catalog})
	orders := orderservice.New(orderservice.Params{DB: db, Log: log, GenID: node, Repo: orderrepo.Provide(), Clock: fake})
	carts := cartservice.New(cartservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: fake,
		Carts: repository.ProvideStore[cartdomain.Cart](db),
		Items: repository.ProvideStore[cartdomain.Item](db),
	})
	notifier := notification.New(notification.Params{Log: log, Cfg: cfg, Email: &email.NoOpProvider{}, PDF: pdf.New(), Catalog: catalog})

	f := &fixture{
		engine:   NewEngine(observability.Config{}, nil),
		orders:   orders,
		checkout: &checkoutMock{},
		payments: &paymentMock{},
		retries:  &retriesMock{},
	}
	NewServer(ServerParams{
		Gin:          f.engine,
		Cfg:          cfg,
		Log:          log,
		AuthzSvc:     authz,
		CatalogSvc:   catalog,
		InventorySvc: inventory,
		CartSvc:      carts,
		CheckoutSvc:  f.checkout,
		OrderSvc:     orders,
		PaymentSvc:   f.payments,
		RetrySvc:     f.retries,
		Notifier:     notifier,
	})

	ctx := context.Background()
	product, err := catalog.CreateProduct(ctx, catalogdomain.CreateProductRequest{Name: "Canvas Tote"})
	require.NoError(t, err)
	f.variant, err = catalog.AddVariant(ctx, catalogdomain.AddVariantRequest{ProductID: product.ID, Name: "Natural", SKU: "TOTE-NAT", UnitAmount: 2400})
	require.NoError(t, err)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any, key string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) inventoryPath(suffix string) string {
	return fmt.Sprintf("/admin/inventory/%d/%d%s", f.variant.ProductID, f.variant.ID, suffix)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminRoutesRequireKey(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/admin/inventory", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/admin/inventory", nil, "sfk_wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/admin/inventory", nil, adminKey)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminInventoryMutations(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPut, f.inventoryPath("/quantity"), gin.H{"quantity": 5, "reason": "cycle count"}, adminKey)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var set struct {
		Data inventorydomain.MutationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &set))
	assert.Equal(t, int64(5), set.Data.Row.OnHand)
	require.NotNil(t, set.Data.Entry.UserID)
	assert.Equal(t, "admin:ops", *set.Data.Entry.UserID)
	assert.Equal(t, inventorydomain.SourceAdminUI, set.Data.Entry.Source)

	rec = f.do(t, http.MethodPost, f.inventoryPath("/adjustments"), gin.H{"delta": -7}, adminKey)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "negative_stock", payload.Errors[0].Code)

	rec = f.do(t, http.MethodPost, f.inventoryPath("/adjustments"), gin.H{"delta": -2}, adminKey)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, f.inventoryPath("/history"), nil, adminKey)
	require.Equal(t, http.StatusOK, rec.Code)
	var history struct {
		Data []inventorydomain.LogEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history.Data, 2)
	assert.Equal(t, inventorydomain.ActionUpsert, history.Data[0].Action)
	assert.Equal(t, int64(3), history.Data[1].ToQty)

	rec = f.do(t, http.MethodGet, f.inventoryPath("/verify"), nil, adminKey)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"consistent":true`)
}

func TestAdminInventoryValidation(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPut, "/admin/inventory/abc/1/quantity", gin.H{"quantity": 1}, adminKey)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPut, f.inventoryPath("/quantity"), gin.H{}, adminKey)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPut, f.inventoryPath("/quantity"), gin.H{"quantity": 1, "source": "spreadsheet"}, adminKey)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, f.inventoryPath(""), nil, adminKey)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckoutFromStoredCart(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/carts/42/items", gin.H{
		"product_id":  fmt.Sprint(f.variant.ProductID),
		"variant_id":  fmt.Sprint(f.variant.ID),
		"title":       "Canvas Tote",
		"quantity":    2,
		"unit_amount": 2400,
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	f.checkout.On("Create", mock.Anything, mock.MatchedBy(func(req checkoutdomain.Request) bool {
		return req.CartID != nil && *req.CartID == 42 &&
			len(req.Lines) == 1 &&
			req.Lines[0].Quantity.String() == "2" &&
			req.Lines[0].VariantID.String() == fmt.Sprint(f.variant.ID)
	})).Return(&checkoutdomain.Session{ID: "cs_test_1", URL: "https://pay.example/cs_test_1"}, nil).Once()

	rec = f.do(t, http.MethodPost, "/api/checkout/sessions", gin.H{"cart_id": "42"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "https://pay.example/cs_test_1")
	f.checkout.AssertExpectations(t)
}

func TestCheckoutErrorMapping(t *testing.T) {
	f := newFixture(t)
	body := `{"lines":[{"productId":1,"quantity":1,"unitPriceMinorUnits":100}]}`

	f.checkout.On("Create", mock.Anything, mock.Anything).
		Return(nil, &checkoutdomain.LineItemError{Index: 0, Field: "quantity"}).Once()
	rec := f.do(t, http.MethodPost, "/api/checkout/sessions", body, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "lines[0].quantity", decodeError(t, rec).Errors[0].Field)

	f.checkout.On("Create", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: card declined", checkoutdomain.ErrProviderRejected)).Once()
	rec = f.do(t, http.MethodPost, "/api/checkout/sessions", body, "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/checkout/sessions", `{"cart_id":"-3"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPaymentWebhookStatuses(t *testing.T) {
	f := newFixture(t)

	f.payments.On("IngestWebhook", mock.Anything, "stripe", mock.Anything, mock.Anything).
		Return(nil, paymentdomain.ErrInvalidSignature).Once()
	rec := f.do(t, http.MethodPost, "/api/payments/webhooks/stripe", `{}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.payments.On("IngestWebhook", mock.Anything, "stripe", mock.Anything, mock.Anything).
		Return(&paymentdomain.IngestResult{EventID: "evt_1", Outcome: "fulfilled"}, nil).Once()
	rec = f.do(t, http.MethodPost, "/api/payments/webhooks/stripe", `{}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"outcome":"fulfilled"`)

	f.payments.On("IngestWebhook", mock.Anything, "stripe", mock.Anything, mock.Anything).
		Return(nil, errors.New("database is locked")).Once()
	rec = f.do(t, http.MethodPost, "/api/payments/webhooks/stripe", `{}`, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	// A line item the order cannot store is never going to succeed on redelivery.
	f.payments.On("IngestWebhook", mock.Anything, "stripe", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("materialize order: %w", orderdomain.ErrInvalidItem)).Once()
	rec = f.do(t, http.MethodPost, "/api/payments/webhooks/stripe", `{}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	oversized := `{"pad":"` + strings.Repeat("x", maxWebhookBody) + `"}`
	rec = f.do(t, http.MethodPost, "/api/payments/webhooks/stripe", oversized, "")
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), `"payload_too_large"`)

	f.payments.AssertExpectations(t)
	f.payments.AssertNumberOfCalls(t, "IngestWebhook", 4)
}

func TestOrderPollingAndPackingSlip(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/orders/cs_test_9", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	productID, variantID := f.variant.ProductID, f.variant.ID
	_, err := f.orders.Materialize(context.Background(), orderdomain.MaterializeRequest{
		SessionID:     "cs_test_9",
		CustomerEmail: "shopper@example.com",
		ShipName:      "Ada Shopper",
		ShipLine1:     "1 Market St",
		ShipCity:      "Springfield",
		ShipCountry:   "US",
		Currency:      "usd",
		TotalAmount:   2400,
		Items: []orderdomain.ItemInput{
			{Title: "Canvas Tote", Quantity: 1, UnitAmount: 2400, ProductID: &productID, VariantID: &variantID},
		},
	})
	require.NoError(t, err)

	rec = f.do(t, http.MethodGet, "/api/orders/cs_test_9", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"session_id":"cs_test_9"`)

	rec = f.do(t, http.MethodGet, "/admin/orders/cs_test_9/packing-slip", nil, adminKey)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestListFulfillmentRetries(t *testing.T) {
	f := newFixture(t)

	f.retries.On("ListRetries", mock.Anything, fulfillmentdomain.ListRetriesRequest{Status: fulfillmentdomain.RetryStatusDead, Limit: 20}).
		Return([]fulfillmentdomain.Retry{{ID: 7, SessionID: "cs_test_3", Status: fulfillmentdomain.RetryStatusDead}}, nil).Once()
	rec := f.do(t, http.MethodGet, "/admin/fulfillment/retries?status=dead&limit=20", nil, adminKey)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cs_test_3")

	f.retries.On("ListRetries", mock.Anything, fulfillmentdomain.ListRetriesRequest{Status: "stuck"}).
		Return(nil, fulfillmentdomain.ErrInvalidRetryStatus).Once()
	rec = f.do(t, http.MethodGet, "/admin/fulfillment/retries?status=stuck", nil, adminKey)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/admin/fulfillment/retries?limit=9000", nil, adminKey)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.retries.AssertExpectations(t)
}

func TestMapErrorStatuses(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{inventorydomain.ErrTransient, http.StatusServiceUnavailable},
		{fmt.Errorf("wrap: %w", inventorydomain.ErrRowNotFound), http.StatusNotFound},
		{checkoutdomain.ErrEmptyCart, http.StatusBadRequest},
		{checkoutdomain.ErrModeMismatch, http.StatusBadGateway},
		{checkoutdomain.ErrProviderMissing, http.StatusBadGateway},
		{catalogdomain.ErrDuplicateSKU, http.StatusConflict},
		{authorization.ErrForbidden, http.StatusForbidden},
		{ErrRateLimited, http.StatusTooManyRequests},
		{ErrPayloadTooLarge, http.StatusRequestEntityTooLarge},
		{paymentdomain.ErrProviderNotFound, http.StatusNotFound},
		{fmt.Errorf("materialize order: %w", orderdomain.ErrInvalidItem), http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		status, _ := mapError(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
	}

	_, payload := mapError(fmt.Errorf("create session: %w", checkoutdomain.ErrModeMismatch))
	assert.Equal(t, "payment mode does not match this site", payload.Message)
	_, payload = mapError(checkoutdomain.ErrProviderRejected)
	assert.Equal(t, "payment_provider_error", payload.Type)
	assert.Equal(t, "payment provider unavailable", payload.Message)

	errType, code := classifyErrorForLog(inventorydomain.ErrNegativeStock)
	assert.Equal(t, "validation_error", errType)
	assert.Equal(t, "negative_stock", code)
}
