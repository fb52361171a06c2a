package notification

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"

	catalogdomain "github.com/smallbiznis/storefront/internal/catalog/domain"
	"github.com/smallbiznis/storefront/internal/config"
	orderdomain "github.com/smallbiznis/storefront/internal/order/domain"
	"github.com/smallbiznis/storefront/internal/providers/email"
	"github.com/smallbiznis/storefront/internal/providers/pdf"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type Params struct {
	fx.In

	Log     *zap.Logger
	Cfg     config.Config
	Email   email.Provider
	PDF     pdf.Provider
	Catalog catalogdomain.Service `optional:"true"`
}

// Service sends order notifications and renders fulfillment documents.
type Service struct {
	log       *zap.Logger
	email     email.Provider
	pdf       pdf.Provider
	catalog   catalogdomain.Service
	storeName string
	opsEmail  string
}

func New(p Params) *Service {
	return &Service{
		log:       p.Log.Named("notification.service"),
		email:     p.Email,
		pdf:       p.PDF,
		catalog:   p.Catalog,
		storeName: p.Cfg.AppName,
		opsEmail:  p.Cfg.SMTP.OpsEmail,
	}
}

type summaryItem struct {
	Title    string
	Quantity int64
	Amount   string
}

type summaryData struct {
	OrderNumber   string
	CustomerName  string
	CustomerEmail string
	Items         []summaryItem
	Subtotal      string
	Discount      string
	HasDiscount   bool
	Shipping      string
	Tax           string
	HasTax        bool
	Total         string
	ShipTo        []string
}

// SendOrderSummary mails the order to the customer and the ops inbox.
func (s *Service) SendOrderSummary(ctx context.Context, order *orderdomain.Order) error {
	if order == nil {
		return orderdomain.ErrOrderNotFound
	}
	recipients := make([]string, 0, 2)
	if order.CustomerEmail != "" {
		recipients = append(recipients, order.CustomerEmail)
	}
	if s.opsEmail != "" && !strings.EqualFold(s.opsEmail, order.CustomerEmail) {
		recipients = append(recipients, s.opsEmail)
	}
	if len(recipients) == 0 {
		s.log.Debug("order has no recipients, skipping summary", zap.Int64("order_id", order.ID))
		return nil
	}

	body, err := renderSummary(order)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Order %d confirmed", order.ID)
	if s.storeName != "" {
		subject = fmt.Sprintf("%s: order %d confirmed", s.storeName, order.ID)
	}
	return s.email.Send(ctx, recipients, subject, body)
}

func renderSummary(order *orderdomain.Order) (string, error) {
	data := summaryData{
		OrderNumber:   strconv.FormatInt(order.ID, 10),
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		Subtotal:      formatAmount(order.SubtotalAmount, order.Currency),
		Discount:      formatAmount(order.DiscountAmount, order.Currency),
		HasDiscount:   order.DiscountAmount > 0,
		Shipping:      formatAmount(order.ShippingAmount, order.Currency),
		Tax:           formatAmount(order.TaxAmount, order.Currency),
		HasTax:        order.TaxAmount > 0,
		Total:         formatAmount(order.TotalAmount, order.Currency),
		ShipTo:        shipToLines(order),
	}
	for _, item := range order.Items {
		data.Items = append(data.Items, summaryItem{
			Title:    item.Title,
			Quantity: item.Quantity,
			Amount:   formatAmount(item.AmountTotal, order.Currency),
		})
	}

	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, "order_summary.html", data); err != nil {
		return "", fmt.Errorf("render order summary: %w", err)
	}
	return body.String(), nil
}

// PackingSlip renders the order's packing slip as a PDF.
func (s *Service) PackingSlip(ctx context.Context, order *orderdomain.Order) (io.Reader, error) {
	if order == nil {
		return nil, orderdomain.ErrOrderNotFound
	}
	slip := pdf.PackingSlipData{
		StoreName:     s.storeName,
		OrderNumber:   strconv.FormatInt(order.ID, 10),
		OrderDate:     order.CreatedAt.Format("2006-01-02"),
		ShipToName:    firstNonEmpty(order.ShipName, order.CustomerName),
		CustomerEmail: order.CustomerEmail,
	}
	if lines := shipToLines(order); len(lines) > 1 {
		slip.ShipToLines = lines[1:]
	}
	for _, item := range order.Items {
		slip.Items = append(slip.Items, pdf.PackingSlipItem{
			Description: item.Title,
			SKU:         s.lookupSKU(ctx, item),
			Qty:         item.Quantity,
		})
	}
	return s.pdf.GeneratePackingSlip(ctx, slip)
}

func (s *Service) lookupSKU(ctx context.Context, item orderdomain.OrderItem) string {
	if s.catalog == nil || item.ProductID == nil || item.VariantID == nil {
		return ""
	}
	variant, err := s.catalog.GetVariant(ctx, *item.ProductID, *item.VariantID)
	if err != nil {
		s.log.Debug("variant lookup failed for packing slip", zap.Int64("order_item_id", item.ID), zap.Error(err))
		return ""
	}
	return variant.SKU
}

func shipToLines(order *orderdomain.Order) []string {
	var lines []string
	if name := firstNonEmpty(order.ShipName, order.CustomerName); name != "" {
		lines = append(lines, name)
	}
	for _, line := range []string{order.ShipLine1, order.ShipLine2} {
		if line != "" {
			lines = append(lines, line)
		}
	}
	cityLine := order.ShipCity
	if region := strings.Join(nonEmpty(order.ShipState, order.ShipPostalCode), " "); region != "" {
		if cityLine != "" {
			cityLine += ", "
		}
		cityLine += region
	}
	if cityLine != "" {
		lines = append(lines, cityLine)
	}
	if order.ShipCountry != "" {
		lines = append(lines, strings.ToUpper(order.ShipCountry))
	}
	if len(lines) <= 1 {
		return nil
	}
	return lines
}

func formatAmount(amount int64, currency string) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%s %d.%02d", sign, strings.ToUpper(currency), amount/100, amount%100)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
