package services

import (
	"context"
	"fmt"
	"strings"

	"artisan-marketplace/internal/models"

	"github.com/google/uuid"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

const marketplaceName = "Artisan Marketplace"

// InvoiceService renders order invoices as PDF
type InvoiceService struct {
	orders *OrderService
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(orders *OrderService) *InvoiceService {
	return &InvoiceService{orders: orders}
}

// InvoiceNumber derives the invoice number from the order number
func InvoiceNumber(orderNumber string) string {
	if strings.HasPrefix(orderNumber, "ORD-") {
		return "INV-" + strings.TrimPrefix(orderNumber, "ORD-")
	}
	return "INV-" + orderNumber
}

// Generate renders the invoice for an order visible to the viewer. Artisans
// only ever see their own lines on an order, so invoices are limited to the
// customer and admins.
func (s *InvoiceService) Generate(ctx context.Context, viewerID uuid.UUID, role models.Role, orderID uuid.UUID) ([]byte, string, error) {
	if role == models.RoleArtisan {
		return nil, "", ErrForbidden
	}
	order, err := s.orders.GetOrder(ctx, viewerID, role, orderID)
	if err != nil {
		return nil, "", err
	}
	pdf, err := RenderInvoice(order)
	if err != nil {
		return nil, "", err
	}
	return pdf, InvoiceNumber(order.OrderNumber) + ".pdf", nil
}

// RenderInvoice lays out the invoice document
func RenderInvoice(order *models.Order) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber().
		WithLeftMargin(10).
		WithTopMargin(15).
		WithRightMargin(10).
		Build()

	m := maroto.New(cfg)
	addInvoiceHeader(m, order)
	addInvoiceAddresses(m, order)
	addInvoiceItems(m, order)
	addInvoiceTotals(m, order)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return doc.GetBytes(), nil
}

func addInvoiceHeader(m core.Maroto, order *models.Order) {
	m.AddRow(30,
		col.New(6).Add(
			text.New(marketplaceName, props.Text{Size: 16, Style: fontstyle.Bold, Align: align.Left}),
			text.New("Handmade goods from Indian artisans", props.Text{Size: 9, Top: 8, Align: align.Left}),
		),
		col.New(6).Add(
			text.New("INVOICE", props.Text{Size: 20, Style: fontstyle.Bold, Align: align.Right}),
			text.New(fmt.Sprintf("# %s", InvoiceNumber(order.OrderNumber)), props.Text{Size: 10, Top: 8, Align: align.Right}),
		),
	)
	m.AddRow(5, line.NewCol(12))

	m.AddRow(20,
		col.New(6).Add(
			text.New(fmt.Sprintf("Order #: %s", order.OrderNumber), props.Text{Size: 10, Align: align.Left}),
			text.New(fmt.Sprintf("Date: %s", order.CreatedAt.Format("Jan 02, 2006")), props.Text{Size: 10, Top: 5, Align: align.Left}),
		),
		col.New(6).Add(
			text.New(fmt.Sprintf("Status: %s", order.Status), props.Text{Size: 10, Align: align.Right}),
			text.New(fmt.Sprintf("Payment: %s", order.PaymentStatus), props.Text{Size: 10, Top: 5, Align: align.Right}),
		),
	)
}

func addInvoiceAddresses(m core.Maroto, order *models.Order) {
	cityLine := strings.Join(nonEmpty(order.ShippingCity, order.ShippingState, order.ShippingPincode), ", ")
	m.AddRow(30,
		col.New(6).Add(
			text.New("SHIP TO:", props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Left}),
			text.New(order.ShippingName, props.Text{Size: 10, Top: 5, Align: align.Left}),
			text.New(order.ShippingAddress, props.Text{Size: 9, Top: 10, Align: align.Left}),
			text.New(cityLine, props.Text{Size: 9, Top: 15, Align: align.Left}),
		),
		col.New(6).Add(
			text.New("CONTACT:", props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}),
			text.New(order.ShippingPhone, props.Text{Size: 10, Top: 5, Align: align.Right}),
		),
	)
	m.AddRow(5, line.NewCol(12))
}

func addInvoiceItems(m core.Maroto, order *models.Order) {
	header := props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Left}
	headerRight := props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}
	m.AddRow(8,
		col.New(6).Add(text.New("Item", header)),
		col.New(2).Add(text.New("Qty", headerRight)),
		col.New(2).Add(text.New("Price", headerRight)),
		col.New(2).Add(text.New("Total", headerRight)),
	)
	m.AddRow(2, line.NewCol(12))

	cell := props.Text{Size: 9, Align: align.Left}
	cellRight := props.Text{Size: 9, Align: align.Right}
	for _, item := range order.Items {
		m.AddRow(7,
			col.New(6).Add(text.New(item.ProductName, cell)),
			col.New(2).Add(text.New(fmt.Sprintf("%d", item.Quantity), cellRight)),
			col.New(2).Add(text.New(formatMoney(item.UnitPrice, order.Currency), cellRight)),
			col.New(2).Add(text.New(formatMoney(item.TotalPrice, order.Currency), cellRight)),
		)
	}
	m.AddRow(3, line.NewCol(12))
}

func addInvoiceTotals(m core.Maroto, order *models.Order) {
	label := props.Text{Size: 10, Align: align.Right}
	addTotal := func(name string, amount float64, style props.Text) {
		m.AddRow(6,
			col.New(8),
			col.New(2).Add(text.New(name, style)),
			col.New(2).Add(text.New(formatMoney(amount, order.Currency), style)),
		)
	}
	addTotal("Subtotal:", order.Subtotal, label)
	addTotal("Shipping:", order.ShippingCost, label)
	addTotal("TOTAL:", order.Total, props.Text{Size: 12, Style: fontstyle.Bold, Align: align.Right})
}

// formatMoney renders 1234.5 as "INR 1,234.50". The PDF core fonts cannot
// draw the rupee sign.
func formatMoney(amount float64, currency string) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	s := fmt.Sprintf("%.2f", amount)
	intPart, frac := s[:len(s)-3], s[len(s)-3:]

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String() + frac
	if neg {
		out = "-" + out
	}
	return strings.TrimSpace(currency + " " + out)
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
