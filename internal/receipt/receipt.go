// Package receipt renders a printable PDF for an order.
package receipt

import (
	"bytes"
	"fmt"
	"io"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
	"github.com/vasiliy-maslov/art-gallery/internal/order"
)

const qrSize = 256

// Render writes a one page receipt with a QR code of the order id.
func Render(w io.Writer, o *order.Order) error {
	qrPNG, err := qrcode.Encode(o.OrderID, qrcode.Medium, qrSize)
	if err != nil {
		return fmt.Errorf("failed to generate QR code: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Order "+o.OrderID, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Order Receipt")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 11)
	lines := []string{
		"Order: " + o.OrderID,
		"Date: " + o.CreatedAt.Format("2006-01-02 15:04"),
		"Customer: " + o.ShippingInfo.FullName,
		"Email: " + o.ShippingInfo.Email,
		"Phone: " + o.ShippingInfo.Phone,
		fmt.Sprintf("Ship to: %s, %s, %s", o.ShippingInfo.Address, o.ShippingInfo.City, o.ShippingInfo.Country),
		fmt.Sprintf("Status: %s / payment %s", o.Status, o.PaymentInfo.Status),
	}
	if o.PaymentInfo.TransactionCode != "" {
		lines = append(lines, "M-Pesa code: "+o.PaymentInfo.TransactionCode)
	}
	for _, line := range lines {
		pdf.Cell(0, 7, line)
		pdf.Ln(7)
	}
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(35, 8, "UID", "1", 0, "", false, 0, "")
	pdf.CellFormat(75, 8, "Title", "1", 0, "", false, 0, "")
	pdf.CellFormat(40, 8, "Artist", "1", 0, "", false, 0, "")
	pdf.CellFormat(35, 8, "Price", "1", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, it := range o.Items {
		pdf.CellFormat(35, 8, it.UID, "1", 0, "", false, 0, "")
		pdf.CellFormat(75, 8, it.Title, "1", 0, "", false, 0, "")
		pdf.CellFormat(40, 8, it.Artist, "1", 0, "", false, 0, "")
		pdf.CellFormat(35, 8, it.Price, "1", 1, "R", false, 0, "")
	}

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(150, 8, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, fmt.Sprintf("%.2f", o.Total), "1", 1, "R", false, 0, "")

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 160, 15, 35, 35, false, imageOpts, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to generate PDF: %w", err)
	}
	return nil
}
