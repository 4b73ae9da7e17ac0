package core

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Import types accepted by the bulk importer.
const (
	ImportSales     = "sales"
	ImportExpenses  = "expenses"
	ImportPayments  = "payments"
	ImportPurchases = "purchases"
)

// ImportService loads historical data from CSV files. Rows are independent:
// a bad row is recorded as a failure with its row number and the batch keeps
// going, so one typo does not sink a month of history.
type ImportService struct {
	sales    *SalesService
	expenses *ExpenseService
	parties  *PartyService
	products *ProductService
	orders   *PurchaseOrderService
}

func NewImportService(sales *SalesService, expenses *ExpenseService, parties *PartyService, products *ProductService, orders *PurchaseOrderService) *ImportService {
	return &ImportService{
		sales:    sales,
		expenses: expenses,
		parties:  parties,
		products: products,
		orders:   orders,
	}
}

var importTemplates = map[string][]string{
	ImportSales:     {"Date", "Customer Name", "Product Name", "Quantity", "Unit Price", "Payment Method", "Invoice Number"},
	ImportExpenses:  {"Date", "Category", "Description", "Amount"},
	ImportPayments:  {"Date", "Customer Name", "Amount", "Method", "Reference"},
	ImportPurchases: {"Date", "Supplier Name", "Product Name", "Quantity", "Unit Price"},
}

// Template returns the expected header row for an import type.
func (s *ImportService) Template(importType string) ([]string, error) {
	headers, ok := importTemplates[importType]
	if !ok {
		return nil, fmt.Errorf("unknown import type %q: %w", importType, ErrValidation)
	}
	return headers, nil
}

type ImportFailure struct {
	Row     int    `json:"row"` // 1-based data row number, header excluded
	Message string `json:"message"`
}

type ImportResult struct {
	BatchID  string          `json:"batch_id"`
	Imported int             `json:"imported"`
	Failed   int             `json:"failed"`
	Failures []ImportFailure `json:"failures"`
}

// Import parses and loads a CSV stream of the given type for one station.
func (s *ImportService) Import(ctx context.Context, stationID int, importType string, r io.Reader) (*ImportResult, error) {
	headers, err := s.Template(importType)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w: %v", ErrValidation, err)
	}
	if len(header) < len(headers) {
		return nil, fmt.Errorf("CSV header has %d columns, want %d (%s): %w",
			len(header), len(headers), strings.Join(headers, ", "), ErrValidation)
	}

	result := &ImportResult{BatchID: uuid.NewString(), Failures: []ImportFailure{}}
	rowNum := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			result.Failed++
			result.Failures = append(result.Failures, ImportFailure{Row: rowNum, Message: err.Error()})
			continue
		}

		var rowErr error
		switch importType {
		case ImportSales:
			rowErr = s.importSaleRow(ctx, stationID, record)
		case ImportExpenses:
			rowErr = s.importExpenseRow(ctx, stationID, record)
		case ImportPayments:
			rowErr = s.importPaymentRow(ctx, stationID, record)
		case ImportPurchases:
			rowErr = s.importPurchaseRow(ctx, stationID, record)
		}
		if rowErr != nil {
			result.Failed++
			result.Failures = append(result.Failures, ImportFailure{Row: rowNum, Message: rowErr.Error()})
			continue
		}
		result.Imported++
	}
	return result, nil
}

func parseImportDate(raw string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", raw)
	}
	return t, nil
}

func parseImportDecimal(field, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q", field, raw)
	}
	return d, nil
}

// findCustomerByName resolves an active customer by display name,
// case-insensitive. Blank means walk-in (nil, nil).
func (s *ImportService) findCustomerByName(ctx context.Context, stationID int, name string) (*Customer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	customers, err := s.parties.ListCustomers(ctx, stationID)
	if err != nil {
		return nil, err
	}
	for i := range customers {
		if strings.EqualFold(customers[i].Name, name) {
			return &customers[i], nil
		}
	}
	return nil, fmt.Errorf("customer %q not found", name)
}

func (s *ImportService) findSupplierByName(ctx context.Context, stationID int, name string) (*Supplier, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("supplier name is required")
	}
	suppliers, err := s.parties.ListSuppliers(ctx, stationID)
	if err != nil {
		return nil, err
	}
	for i := range suppliers {
		if strings.EqualFold(suppliers[i].Name, name) {
			return &suppliers[i], nil
		}
	}
	return nil, fmt.Errorf("supplier %q not found", name)
}

// Date, Customer Name, Product Name, Quantity, Unit Price, Payment Method, Invoice Number
func (s *ImportService) importSaleRow(ctx context.Context, stationID int, record []string) error {
	date, err := parseImportDate(record[0])
	if err != nil {
		return err
	}
	customer, err := s.findCustomerByName(ctx, stationID, record[1])
	if err != nil {
		return err
	}
	product, err := s.products.GetProductByName(ctx, strings.TrimSpace(record[2]))
	if err != nil {
		return err
	}
	qty, err := parseImportDecimal("quantity", record[3])
	if err != nil {
		return err
	}
	price, err := parseImportDecimal("unit price", record[4])
	if err != nil {
		return err
	}

	method := strings.ToLower(strings.TrimSpace(record[5]))
	if method == "" {
		method = PaymentCash
	}

	in := SaleInput{
		StationID:     stationID,
		PaymentMethod: method,
		InvoiceNumber: strings.TrimSpace(record[6]),
		Date:          &date,
		Items: []SaleItemInput{
			{ProductID: product.ID, Quantity: qty, UnitPrice: &price},
		},
	}
	if customer != nil {
		in.CustomerID = &customer.ID
	}
	_, err = s.sales.CreateTransaction(ctx, in)
	return err
}

// Date, Category, Description, Amount
func (s *ImportService) importExpenseRow(ctx context.Context, stationID int, record []string) error {
	date, err := parseImportDate(record[0])
	if err != nil {
		return err
	}
	amount, err := parseImportDecimal("amount", record[3])
	if err != nil {
		return err
	}

	var description *string
	if d := strings.TrimSpace(record[2]); d != "" {
		description = &d
	}
	_, err = s.expenses.RecordExpense(ctx, ExpenseInput{
		StationID:   stationID,
		Category:    strings.TrimSpace(record[1]),
		Description: description,
		Amount:      amount,
		ExpenseDate: date.Format("2006-01-02"),
	})
	return err
}

// Date, Customer Name, Amount, Method, Reference
func (s *ImportService) importPaymentRow(ctx context.Context, stationID int, record []string) error {
	if _, err := parseImportDate(record[0]); err != nil {
		return err
	}
	customer, err := s.findCustomerByName(ctx, stationID, record[1])
	if err != nil {
		return err
	}
	if customer == nil {
		return fmt.Errorf("customer name is required")
	}
	amount, err := parseImportDecimal("amount", record[2])
	if err != nil {
		return err
	}

	var reference *string
	if ref := strings.TrimSpace(record[4]); ref != "" {
		reference = &ref
	}
	_, err = s.parties.RecordCustomerPayment(ctx, PaymentInput{
		StationID: stationID,
		PartyID:   customer.ID,
		Amount:    amount,
		Method:    strings.ToLower(strings.TrimSpace(record[3])),
		Reference: reference,
	})
	return err
}

// Date, Supplier Name, Product Name, Quantity, Unit Price
//
// Historical purchases arrive already fulfilled, so each row becomes a
// single-line order walked through approve and deliver.
func (s *ImportService) importPurchaseRow(ctx context.Context, stationID int, record []string) error {
	date, err := parseImportDate(record[0])
	if err != nil {
		return err
	}
	supplier, err := s.findSupplierByName(ctx, stationID, record[1])
	if err != nil {
		return err
	}
	product, err := s.products.GetProductByName(ctx, strings.TrimSpace(record[2]))
	if err != nil {
		return err
	}
	qty, err := parseImportDecimal("quantity", record[3])
	if err != nil {
		return err
	}
	price, err := parseImportDecimal("unit price", record[4])
	if err != nil {
		return err
	}

	po, err := s.orders.CreatePO(ctx, POInput{
		StationID:  stationID,
		SupplierID: supplier.ID,
		OrderDate:  date.Format("2006-01-02"),
		Items: []POItemInput{
			{ProductID: product.ID, Quantity: qty, UnitPrice: price},
		},
	})
	if err != nil {
		return err
	}
	if _, err := s.orders.ApprovePO(ctx, po.ID); err != nil {
		return err
	}
	_, err = s.orders.DeliverPO(ctx, po.ID)
	return err
}
