package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/storefront/internal/authorization"
	cartdomain "github.com/smallbiznis/storefront/internal/cart/domain"
	catalogdomain "github.com/smallbiznis/storefront/internal/catalog/domain"
	checkoutdomain "github.com/smallbiznis/storefront/internal/checkout/domain"
	fulfillmentdomain "github.com/smallbiznis/storefront/internal/fulfillment/domain"
	inventorydomain "github.com/smallbiznis/storefront/internal/inventory/domain"
	orderdomain "github.com/smallbiznis/storefront/internal/order/domain"
	paymentdomain "github.com/smallbiznis/storefront/internal/payment/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
	ErrRateLimited        = errors.New("rate_limited")
	ErrPayloadTooLarge    = errors.New("payload_too_large")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

// errorClass maps a family of errors to one response. Classes are checked
// in order and the first match wins.
type errorClass struct {
	status  int
	kind    string
	message string
	match   func(error) bool
}

var errorClasses = []errorClass{
	{http.StatusUnauthorized, "unauthorized", "unauthorized", isAny(ErrUnauthorized, authorization.ErrUnauthenticated)},
	{http.StatusForbidden, "forbidden", "forbidden", isAny(ErrForbidden, authorization.ErrForbidden)},
	{http.StatusConflict, "conflict", "conflict", isAny(ErrConflict, catalogdomain.ErrDuplicateSlug, catalogdomain.ErrDuplicateSKU)},
	{http.StatusNotFound, "not_found", "not found", isNotFoundError},
	{http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", isAny(ErrPayloadTooLarge)},
	{http.StatusTooManyRequests, "rate_limited", "too many requests", isAny(ErrRateLimited)},
	{http.StatusBadGateway, "payment_provider_error", "payment mode does not match this site", isAny(checkoutdomain.ErrModeMismatch)},
	{http.StatusBadGateway, "payment_provider_error", "payment provider unavailable", checkoutdomain.IsProviderError},
	{http.StatusServiceUnavailable, "service_unavailable", "service unavailable, retry the request", isAny(ErrServiceUnavailable, inventorydomain.ErrTransient)},
}

func isAny(targets ...error) func(error) bool {
	return func(err error) bool {
		for _, target := range targets {
			if errors.Is(err, target) {
				return true
			}
		}
		return false
	}
}

var internalErrorPayload = errorPayload{Type: "internal_error", Message: "internal server error"}

func validationPayload(errs ...ValidationError) errorPayload {
	return errorPayload{Type: "validation_error", Message: "validation error", Errors: errs}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, internalErrorPayload
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, validationPayload(vErr.Errors...)
	}
	var lineErr *checkoutdomain.LineItemError
	if errors.As(err, &lineErr) {
		return http.StatusBadRequest, validationPayload(ValidationError{
			Field:   "lines[" + strconv.Itoa(lineErr.Index) + "]." + lineErr.Field,
			Code:    checkoutdomain.ErrInvalidLineItem.Error(),
			Message: lineErr.Error(),
		})
	}
	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, validationPayload(ValidationError{
			Field:   validationErrorField(code),
			Code:    code,
			Message: validationErrorMessage(code),
		})
	}

	for _, class := range errorClasses {
		if class.match(err) {
			return class.status, errorPayload{Type: class.kind, Message: class.message}
		}
	}
	return http.StatusInternalServerError, internalErrorPayload
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case inventorydomain.IsValidationError(err),
		isCatalogValidationError(err),
		isCheckoutValidationError(err),
		isCartValidationError(err),
		isPaymentValidationError(err),
		errors.Is(err, orderdomain.ErrInvalidSessionID),
		errors.Is(err, orderdomain.ErrInvalidItem),
		errors.Is(err, fulfillmentdomain.ErrInvalidRetryStatus),
		errors.Is(err, authorization.ErrInvalidActor),
		errors.Is(err, authorization.ErrInvalidObject),
		errors.Is(err, authorization.ErrInvalidAction):
		return true
	default:
		return false
	}
}

func isCatalogValidationError(err error) bool {
	return errors.Is(err, catalogdomain.ErrInvalidID) ||
		errors.Is(err, catalogdomain.ErrInvalidName) ||
		errors.Is(err, catalogdomain.ErrInvalidSKU) ||
		errors.Is(err, catalogdomain.ErrInvalidUnitAmount)
}

func isCheckoutValidationError(err error) bool {
	return errors.Is(err, checkoutdomain.ErrEmptyCart) ||
		errors.Is(err, checkoutdomain.ErrInvalidLineItem)
}

func isCartValidationError(err error) bool {
	return errors.Is(err, cartdomain.ErrInvalidCartID) ||
		errors.Is(err, cartdomain.ErrInvalidItem)
}

// Signature and payload failures answer 400 so the provider stops retrying a
// delivery that can never verify.
func isPaymentValidationError(err error) bool {
	return errors.Is(err, paymentdomain.ErrInvalidSignature) ||
		errors.Is(err, paymentdomain.ErrInvalidPayload) ||
		errors.Is(err, paymentdomain.ErrInvalidEvent) ||
		errors.Is(err, paymentdomain.ErrInvalidProvider)
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, inventorydomain.ErrRowNotFound),
		errors.Is(err, catalogdomain.ErrProductNotFound),
		errors.Is(err, catalogdomain.ErrVariantNotFound),
		errors.Is(err, cartdomain.ErrCartNotFound),
		errors.Is(err, orderdomain.ErrOrderNotFound),
		errors.Is(err, paymentdomain.ErrProviderNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, inventorydomain.ErrNegativeStock):
		return inventorydomain.ErrNegativeStock.Error()
	case errors.Is(err, checkoutdomain.ErrEmptyCart):
		return checkoutdomain.ErrEmptyCart.Error()
	case errors.Is(err, paymentdomain.ErrInvalidSignature):
		return paymentdomain.ErrInvalidSignature.Error()
	default:
		return rootError(err).Error()
	}
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "negative_stock":
		return "quantity"
	case "empty_cart":
		return "lines"
	case "invalid_signature":
		return "signature"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "negative_stock":
		return "stock cannot go below zero"
	case "empty_cart":
		return "cart has no line items"
	case "invalid_signature":
		return "signature verification failed"
	default:
		return "invalid value"
	}
}

func rootError(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

// classifyErrorForLog reports the response type and a stable code for the
// request log.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}
