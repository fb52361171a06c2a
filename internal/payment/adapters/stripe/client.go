package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	paymentdomain "github.com/smallbiznis/storefront/internal/payment/domain"
)

type apiClient struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

type stripeError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *apiClient) createCheckoutSession(ctx context.Context, req paymentdomain.CheckoutSessionRequest) (*paymentdomain.CheckoutSession, error) {
	form := checkoutSessionForm(req)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}

	var session stripeCheckoutSession
	if err := c.do(httpReq, &session); err != nil {
		return nil, err
	}
	if session.ID == "" || session.URL == "" {
		return nil, fmt.Errorf("%w: checkout session response is missing id or url", paymentdomain.ErrProviderRequest)
	}
	return &paymentdomain.CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

func (c *apiClient) listLineItems(ctx context.Context, sessionID string) ([]stripeLineItem, error) {
	var items []stripeLineItem
	startingAfter := ""
	for {
		query := url.Values{}
		query.Set("limit", "100")
		query.Add("expand[]", "data.price.product")
		if startingAfter != "" {
			query.Set("starting_after", startingAfter)
		}
		endpoint := fmt.Sprintf("%s/v1/checkout/sessions/%s/line_items?%s", c.baseURL, url.PathEscape(sessionID), query.Encode())

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}

		var page stripeLineItemList
		if err := c.do(httpReq, &page); err != nil {
			return nil, err
		}
		items = append(items, page.Data...)
		if !page.HasMore || len(page.Data) == 0 {
			return items, nil
		}
		startingAfter = page.Data[len(page.Data)-1].ID
	}
}

func (c *apiClient) do(req *http.Request, out any) error {
	if c.secretKey == "" {
		return paymentdomain.ErrInvalidConfig
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", paymentdomain.ErrProviderRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: %v", paymentdomain.ErrProviderRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr stripeError
		_ = json.Unmarshal(body, &apiErr)
		message := strings.TrimSpace(apiErr.Error.Message)
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("%w: stripe returned %d: %s", paymentdomain.ErrProviderRequest, resp.StatusCode, message)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", paymentdomain.ErrProviderRequest, err)
	}
	return nil
}

func checkoutSessionForm(req paymentdomain.CheckoutSessionRequest) url.Values {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	if req.CustomerEmail != "" {
		form.Set("customer_email", req.CustomerEmail)
	}
	if req.AutomaticTax {
		form.Set("automatic_tax[enabled]", "true")
	}

	currency := strings.ToLower(req.Currency)
	for i, line := range req.Lines {
		prefix := fmt.Sprintf("line_items[%d]", i)
		form.Set(prefix+"[quantity]", strconv.FormatInt(line.Quantity, 10))
		form.Set(prefix+"[price_data][currency]", currency)
		form.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(line.UnitAmount, 10))
		form.Set(prefix+"[price_data][product_data][name]", line.Title)
		form.Set(prefix+"[price_data][product_data][metadata]["+metadataProductID+"]", strconv.FormatInt(line.ProductID, 10))
		if line.VariantID != nil {
			form.Set(prefix+"[price_data][product_data][metadata]["+metadataVariantID+"]", strconv.FormatInt(*line.VariantID, 10))
		}
	}

	for i, rateID := range req.ShippingRateIDs {
		form.Set(fmt.Sprintf("shipping_options[%d][shipping_rate]", i), rateID)
	}
	if len(req.ShippingRateIDs) > 0 {
		form.Set("shipping_address_collection[allowed_countries][0]", "US")
	}

	for key, value := range req.Metadata {
		form.Set("metadata["+key+"]", value)
		form.Set("payment_intent_data[metadata]["+key+"]", value)
	}
	return form
}
