package dashboard

import (
	"encoding/csv"
	"io"
	"strconv"

	"invoicedesk/pkg/domain"
)

// CSVColumns is the header row written by WriteCSV.
var CSVColumns = []string{
	"invoiceId", "invoiceNumber", "vendor", "purchaseOrderNumber",
	"invoiceDate", "invoiceDueDate", "paymentTerms", "totalAmount",
	"status", "expenseLines", "updatedAt",
}

// WriteCSV writes one row per invoice in the given order.
func WriteCSV(w io.Writer, invoices []domain.Invoice) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(CSVColumns); err != nil {
		return err
	}
	for _, inv := range invoices {
		row := []string{
			inv.InvoiceID,
			inv.InvoiceNumber,
			inv.Vendor,
			inv.PurchaseOrderNumber,
			inv.InvoiceDate,
			inv.InvoiceDueDate,
			inv.PaymentTerms,
			inv.TotalAmount.StringFixed(2),
			string(inv.Status),
			strconv.Itoa(len(inv.Expenses)),
			inv.UpdatedAt,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
