package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	paymentdomain "github.com/smallbiznis/storefront/internal/payment/domain"
)

const (
	defaultAPIBaseURL = "https://api.stripe.com"
	defaultTolerance  = 5 * time.Minute

	metadataCartID    = "cart_id"
	metadataProductID = "product_id"
	metadataVariantID = "variant_id"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return "stripe"
}

func (f *Factory) NewAdapter(cfg paymentdomain.AdapterConfig) (paymentdomain.PaymentAdapter, error) {
	secret := strings.TrimSpace(cfg.WebhookSecret)
	if secret == "" {
		return nil, paymentdomain.ErrInvalidConfig
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	if baseURL == "" {
		baseURL = defaultAPIBaseURL
	}
	tolerance := cfg.WebhookTolerance
	if tolerance <= 0 {
		tolerance = defaultTolerance
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Adapter{
		webhookSecret: secret,
		tolerance:     tolerance,
		now:           now,
		api: &apiClient{
			baseURL:    baseURL,
			secretKey:  strings.TrimSpace(cfg.SecretKey),
			httpClient: httpClient,
		},
	}, nil
}

type Adapter struct {
	webhookSecret string
	tolerance     time.Duration
	now           func() time.Time
	api           *apiClient
}

func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	sigHeader := strings.TrimSpace(headers.Get("Stripe-Signature"))
	if sigHeader == "" {
		return paymentdomain.ErrInvalidSignature
	}

	timestamp, signatures, err := parseStripeSignature(sigHeader)
	if err != nil {
		return paymentdomain.ErrInvalidSignature
	}

	signedAt, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return paymentdomain.ErrInvalidSignature
	}
	age := a.now().Sub(time.Unix(signedAt, 0))
	if age > a.tolerance || age < -a.tolerance {
		return paymentdomain.ErrInvalidSignature
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	_, _ = mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}

	return paymentdomain.ErrInvalidSignature
}

func (a *Adapter) ParseCheckoutCompleted(ctx context.Context, payload []byte) (*paymentdomain.CheckoutCompleted, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	switch strings.TrimSpace(event.Type) {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
	default:
		return nil, paymentdomain.ErrEventIgnored
	}

	var session stripeCheckoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(session.ID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	completed := &paymentdomain.CheckoutCompleted{
		Provider:        "stripe",
		ProviderEventID: event.ID,
		EventType:       event.Type,
		SessionID:       session.ID,
		PaymentIntentID: session.PaymentIntent.ID,
		PaymentStatus:   strings.TrimSpace(session.PaymentStatus),
		CartID:          parseOptionalID(readMetadataValue(session.Metadata, metadataCartID)),
		AmountSubtotal:  session.AmountSubtotal,
		AmountDiscount:  session.TotalDetails.AmountDiscount,
		AmountShipping:  session.TotalDetails.AmountShipping,
		AmountTax:       session.TotalDetails.AmountTax,
		AmountTotal:     session.AmountTotal,
		Currency:        strings.ToUpper(strings.TrimSpace(session.Currency)),
		OccurredAt:      timestamp(session.Created, event.Created),
		RawPayload:      payload,
	}
	if details := session.CustomerDetails; details != nil {
		completed.CustomerEmail = strings.TrimSpace(details.Email)
		completed.CustomerName = strings.TrimSpace(details.Name)
		completed.CustomerPhone = strings.TrimSpace(details.Phone)
	}
	if completed.CustomerEmail == "" {
		completed.CustomerEmail = strings.TrimSpace(session.CustomerEmail)
	}
	if shipping := session.shippingDetails(); shipping != nil {
		completed.Shipping = shipping.toAddress()
	}

	if session.LineItems != nil && len(session.LineItems.Data) > 0 {
		completed.LineItems = convertLineItems(session.LineItems.Data)
		return completed, nil
	}

	// Session objects in webhook payloads omit line items unless expanded.
	items, err := a.ListLineItems(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	completed.LineItems = items
	return completed, nil
}

func (a *Adapter) CreateCheckoutSession(ctx context.Context, req paymentdomain.CheckoutSessionRequest) (*paymentdomain.CheckoutSession, error) {
	return a.api.createCheckoutSession(ctx, req)
}

func (a *Adapter) ListLineItems(ctx context.Context, sessionID string) ([]paymentdomain.CheckoutLineItem, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}
	items, err := a.api.listLineItems(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return convertLineItems(items), nil
}

type stripeEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    stripeEventData `json:"data"`
}

type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

type stripeCheckoutSession struct {
	ID             string              `json:"id"`
	URL            string              `json:"url"`
	Created        int64               `json:"created"`
	PaymentStatus  string              `json:"payment_status"`
	PaymentIntent  expandableID        `json:"payment_intent"`
	Metadata       map[string]any      `json:"metadata"`
	CustomerEmail  string              `json:"customer_email"`
	AmountSubtotal int64               `json:"amount_subtotal"`
	AmountTotal    int64               `json:"amount_total"`
	Currency       string              `json:"currency"`
	TotalDetails   stripeTotalDetails  `json:"total_details"`
	LineItems      *stripeLineItemList `json:"line_items"`

	CustomerDetails      *stripeCustomerDetails `json:"customer_details"`
	ShippingDetails      *stripeShippingDetails `json:"shipping_details"`
	CollectedInformation *struct {
		ShippingDetails *stripeShippingDetails `json:"shipping_details"`
	} `json:"collected_information"`
}

func (s stripeCheckoutSession) shippingDetails() *stripeShippingDetails {
	if s.CollectedInformation != nil && s.CollectedInformation.ShippingDetails != nil {
		return s.CollectedInformation.ShippingDetails
	}
	return s.ShippingDetails
}

type stripeTotalDetails struct {
	AmountDiscount int64 `json:"amount_discount"`
	AmountShipping int64 `json:"amount_shipping"`
	AmountTax      int64 `json:"amount_tax"`
}

type stripeCustomerDetails struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type stripeShippingDetails struct {
	Name    string        `json:"name"`
	Address stripeAddress `json:"address"`
}

func (d *stripeShippingDetails) toAddress() paymentdomain.Address {
	return paymentdomain.Address{
		Name:       strings.TrimSpace(d.Name),
		Line1:      strings.TrimSpace(d.Address.Line1),
		Line2:      strings.TrimSpace(d.Address.Line2),
		City:       strings.TrimSpace(d.Address.City),
		State:      strings.TrimSpace(d.Address.State),
		PostalCode: strings.TrimSpace(d.Address.PostalCode),
		Country:    strings.ToUpper(strings.TrimSpace(d.Address.Country)),
	}
}

type stripeAddress struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type stripeLineItemList struct {
	Data    []stripeLineItem `json:"data"`
	HasMore bool             `json:"has_more"`
}

type stripeLineItem struct {
	ID          string      `json:"id"`
	Description string      `json:"description"`
	Quantity    int64       `json:"quantity"`
	AmountTotal int64       `json:"amount_total"`
	Price       stripePrice `json:"price"`
}

type stripePrice struct {
	ID         string        `json:"id"`
	UnitAmount int64         `json:"unit_amount"`
	Product    stripeProduct `json:"product"`
}

// stripeProduct accepts both a bare product id and an expanded product.
type stripeProduct struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Metadata map[string]any `json:"metadata"`
}

func (p *stripeProduct) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		p.ID = id
		return nil
	}
	type alias stripeProduct
	var expanded alias
	if err := json.Unmarshal(data, &expanded); err != nil {
		return err
	}
	*p = stripeProduct(expanded)
	return nil
}

// expandableID accepts both an id string and an expanded object.
type expandableID struct {
	ID string
}

func (e *expandableID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		e.ID = id
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	e.ID = obj.ID
	return nil
}

func convertLineItems(items []stripeLineItem) []paymentdomain.CheckoutLineItem {
	out := make([]paymentdomain.CheckoutLineItem, 0, len(items))
	for _, item := range items {
		title := strings.TrimSpace(item.Description)
		if title == "" {
			title = strings.TrimSpace(item.Price.Product.Name)
		}
		unitAmount := item.Price.UnitAmount
		if unitAmount == 0 && item.Quantity > 0 {
			unitAmount = item.AmountTotal / item.Quantity
		}

		line := paymentdomain.CheckoutLineItem{
			Title:       title,
			Quantity:    item.Quantity,
			UnitAmount:  unitAmount,
			AmountTotal: item.AmountTotal,
		}
		if id := parseOptionalID(readMetadataValue(item.Price.Product.Metadata, metadataProductID)); id != nil {
			line.ProductID = *id
		}
		line.VariantID = parseOptionalID(readMetadataValue(item.Price.Product.Metadata, metadataVariantID))
		out = append(out, line)
	}
	return out
}

func parseStripeSignature(header string) (string, []string, error) {
	parts := strings.Split(header, ",")
	var timestamp string
	signatures := []string{}
	for _, part := range parts {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			timestamp = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid_signature")
	}
	return timestamp, signatures, nil
}

func timestamp(primary int64, fallback int64) time.Time {
	value := primary
	if value == 0 {
		value = fallback
	}
	if value == 0 {
		return time.Now().UTC()
	}
	return time.Unix(value, 0).UTC()
}

func parseOptionalID(raw string) *int64 {
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}

func readMetadataValue(metadata map[string]any, key string) string {
	if metadata == nil {
		return ""
	}
	value, ok := metadata[key]
	if !ok {
		return ""
	}
	switch cast := value.(type) {
	case string:
		return strings.TrimSpace(cast)
	case float64:
		if cast == 0 {
			return ""
		}
		return strconv.FormatInt(int64(cast), 10)
	case json.Number:
		return cast.String()
	case int64:
		return strconv.FormatInt(cast, 10)
	case int:
		return strconv.Itoa(cast)
	}
	return ""
}
