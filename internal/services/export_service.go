package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"artisan-marketplace/internal/models"
	"artisan-marketplace/internal/repository"

	"github.com/xuri/excelize/v2"
)

const (
	exportPageSize = 100
	exportMaxRows  = 10000

	// XLSXContentType is the MIME type of exported workbooks
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ExportService builds admin spreadsheets
type ExportService struct {
	products repository.ProductRepository
	orders   repository.OrderRepository
	now      func() time.Time
}

// NewExportService creates a new ExportService
func NewExportService(products repository.ProductRepository, orders repository.OrderRepository) *ExportService {
	return &ExportService{products: products, orders: orders, now: time.Now}
}

type sheetColumn struct {
	title string
	width float64
}

var productColumns = []sheetColumn{
	{"ID", 38}, {"Name", 30}, {"Category", 18}, {"Artisan", 24}, {"Price", 12},
	{"Currency", 10}, {"Stock", 10}, {"Status", 12}, {"Tags", 30}, {"Created", 20},
}

var orderColumns = []sheetColumn{
	{"Order Number", 24}, {"Status", 18}, {"Payment", 12}, {"Customer", 24}, {"City", 16},
	{"Items", 8}, {"Subtotal", 12}, {"Shipping", 10}, {"Total", 12}, {"Currency", 10}, {"Placed", 20},
}

// Products exports the catalog matching filters
func (s *ExportService) Products(ctx context.Context, filters models.ProductFilters) ([]byte, string, error) {
	f, sheet := newWorkbook("Products", productColumns)
	defer f.Close()

	row := 2
	for page := 1; row-2 < exportMaxRows; page++ {
		filters.Page, filters.Limit = page, exportPageSize
		products, _, err := s.products.List(ctx, filters)
		if err != nil {
			return nil, "", err
		}
		for _, p := range products {
			artisan := ""
			if p.Artisan != nil {
				artisan = p.Artisan.ShopName
				if artisan == "" {
					artisan = p.Artisan.Name
				}
			}
			writeRow(f, sheet, row, p.ID.String(), p.Name, p.Category, artisan, p.Price, p.Currency,
				p.Stock, string(p.Status), strings.Join(p.Tags, ", "), p.CreatedAt.Format(time.RFC3339))
			row++
		}
		if len(products) < exportPageSize {
			break
		}
	}

	return s.finish(f, "products")
}

// Orders exports orders matching filters
func (s *ExportService) Orders(ctx context.Context, filters models.OrderFilters) ([]byte, string, error) {
	f, sheet := newWorkbook("Orders", orderColumns)
	defer f.Close()

	row := 2
	for page := 1; row-2 < exportMaxRows; page++ {
		filters.Page, filters.Limit = page, exportPageSize
		orders, _, err := s.orders.List(ctx, filters)
		if err != nil {
			return nil, "", err
		}
		for _, o := range orders {
			writeRow(f, sheet, row, o.OrderNumber, string(o.Status), string(o.PaymentStatus), o.ShippingName,
				o.ShippingCity, len(o.Items), o.Subtotal, o.ShippingCost, o.Total, o.Currency,
				o.CreatedAt.Format(time.RFC3339))
			row++
		}
		if len(orders) < exportPageSize {
			break
		}
	}

	return s.finish(f, "orders")
}

func newWorkbook(sheet string, columns []sheetColumn) (*excelize.File, string) {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", sheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"8B4513"}, Pattern: 1},
	})
	for i, c := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, c.title)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, colName, colName, c.width)
	}
	f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	return f, sheet
}

func writeRow(f *excelize.File, sheet string, row int, values ...interface{}) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		f.SetCellValue(sheet, cell, v)
	}
}

func (s *ExportService) finish(f *excelize.File, name string) ([]byte, string, error) {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), fmt.Sprintf("%s-%s.xlsx", name, s.now().Format("20060102-150405")), nil
}
