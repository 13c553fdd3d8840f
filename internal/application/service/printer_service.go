package service

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vistaoptics/pos-api/internal/config"
	"github.com/vistaoptics/pos-api/internal/domain/entity"
	"github.com/vistaoptics/pos-api/pkg/printer"
)

// PrinterService formats settlement receipts and sends them to the branch's
// thermal printer. Printing is best-effort: a settled sale is never rolled
// back because paper ran out.
type PrinterService struct {
	printer     printer.Printer
	store       config.StoreConfig
	printerType string
	log         *zap.Logger
}

// NewPrinterService creates a new printer service.
func NewPrinterService(p printer.Printer, store config.StoreConfig, printerType string, log *zap.Logger) *PrinterService {
	return &PrinterService{
		printer:     p,
		store:       store,
		printerType: printerType,
		log:         log,
	}
}

// PrinterStatus returns the current printer status information.
type PrinterStatus struct {
	Configured bool   `json:"configured"`
	Connected  bool   `json:"connected"`
	Type       string `json:"type"`
}

// GetStatus returns printer connection status.
func (s *PrinterService) GetStatus() *PrinterStatus {
	return &PrinterStatus{
		Configured: s.printerType != "none" && s.printerType != "",
		Connected:  s.printer.IsConnected(),
		Type:       s.printerType,
	}
}

// BuildReceipt composes a printable receipt from a sale and its ledger.
// Only confirmed payments appear on the receipt.
func (s *PrinterService) BuildReceipt(sale *entity.Sale, payments []entity.PaymentEntry) *entity.Receipt {
	receipt := &entity.Receipt{
		Header: entity.ReceiptHeader{
			StoreName: s.store.Name,
			Address:   s.store.Address,
			Phone:     s.store.Phone,
			TaxID:     s.store.TaxID,
		},
		SaleID:     sale.ID,
		Date:       time.Now().Format("2006-01-02 15:04"),
		Total:      sale.Total,
		Discount:   sale.Discount,
		NetPayable: sale.NetPayable(),
	}

	for _, item := range sale.Items {
		receipt.Items = append(receipt.Items, entity.ReceiptItem{
			Name:      item.Description,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Total:     item.UnitPrice * float64(item.Quantity),
		})
	}

	for _, p := range payments {
		if !p.Confirmed {
			continue
		}
		receipt.Payments = append(receipt.Payments, entity.ReceiptPayment{
			Method:    p.Method.String(),
			Amount:    p.Amount,
			Reference: p.Reference,
		})
		receipt.Paid += p.Amount
	}

	receipt.Remaining = receipt.NetPayable - receipt.Paid
	if receipt.Remaining < 0 {
		receipt.Remaining = 0
	}
	return receipt
}

// PrintSettlement builds and prints the settlement receipt. The receipt is
// returned even when printing fails so the UI can render it instead.
func (s *PrinterService) PrintSettlement(sale *entity.Sale, payments []entity.PaymentEntry) (*entity.Receipt, error) {
	receipt := s.BuildReceipt(sale, payments)
	data := FormatReceipt(receipt)
	if err := s.printer.Print(data); err != nil {
		return receipt, fmt.Errorf("print settlement receipt: %w", err)
	}
	s.log.Debug("settlement receipt printed", zap.Int64("sale_id", sale.ID))
	return receipt, nil
}

// FormatReceipt renders a receipt as an ESC/POS byte stream (80mm paper).
func FormatReceipt(r *entity.Receipt) []byte {
	doc := printer.NewDocument(48)

	doc.SetAlign(printer.AlignCenter).
		SetBold(true).
		SetFontSize(printer.FontDouble).
		Text(r.Header.StoreName).
		SetFontSize(printer.FontNormal).
		SetBold(false)
	if r.Header.Address != "" {
		doc.Text(r.Header.Address)
	}
	if r.Header.Phone != "" {
		doc.Text(r.Header.Phone)
	}
	if r.Header.TaxID != "" {
		doc.Text(r.Header.TaxID)
	}

	doc.SetAlign(printer.AlignLeft).
		Separator('=').
		TextF("Sale #%d", r.SaleID).
		Text(r.Date)
	if r.Cashier != "" {
		doc.TextF("Cashier: %s", r.Cashier)
	}
	doc.Separator('-')

	for _, item := range r.Items {
		doc.ItemLine(item.Quantity, item.Name, fmt.Sprintf("$%.2f", item.Total))
	}

	doc.Separator('-').
		KeyValue("Total", fmt.Sprintf("$%.2f", r.Total))
	if r.Discount > 0 {
		doc.KeyValue("Discount", fmt.Sprintf("-$%.2f", r.Discount))
	}
	doc.SetBold(true).
		KeyValue("To pay", fmt.Sprintf("$%.2f", r.NetPayable)).
		SetBold(false).
		Separator('-')

	for _, p := range r.Payments {
		label := p.Method
		if p.Reference != "" {
			label = fmt.Sprintf("%s (%s)", p.Method, p.Reference)
		}
		doc.KeyValue(label, fmt.Sprintf("$%.2f", p.Amount))
	}

	doc.Separator('-').
		KeyValue("Paid", fmt.Sprintf("$%.2f", r.Paid))
	if r.Remaining > 0 {
		doc.SetBold(true).
			KeyValue("Balance due", fmt.Sprintf("$%.2f", r.Remaining)).
			SetBold(false)
	}

	doc.SetAlign(printer.AlignCenter).
		FeedLines(1).
		Text("Thank you for your purchase").
		FeedLines(4).
		Cut()

	return doc.Bytes()
}
