// Package printing renders approved requests as printable PDF forms, the
// server-side equivalent of the approved-forms printouts the client used.
package printing

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"

	"stockflow/internal/model"
)

// RenderRequestForm writes a one-page PDF for an approved or completed
// request: metadata, line items with reconciled quantities, the approval
// signatures, and a QR code carrying the request code.
func RenderRequestForm(w io.Writer, req *model.Request) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Request "+req.RequestCode, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	title := "Material Request"
	if req.Type == "item_return" {
		title = "Item Return"
	}
	pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "Request "+req.RequestCode+"  -  "+req.Status, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	// QR code with the request code, top right
	if png, err := qrcode.Encode(req.RequestCode, qrcode.Medium, 128); err == nil {
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("request-qr", opts, bytes.NewReader(png))
		pdf.ImageOptions("request-qr", 172, 10, 28, 28, false, opts, 0, "")
	}

	// Metadata block
	meta := [][2]string{
		{"Project", req.Project},
		{"Location", req.Location},
		{"Team Leader", req.TeamLeader},
		{"ISP", req.ISP},
		{"Created", req.CreatedAt.Format("2006-01-02 15:04")},
	}
	if req.Requester != nil {
		meta = append([][2]string{{"Requested By", req.Requester.Username}}, meta...)
	}
	if req.ReleaseBy != "" {
		meta = append(meta, [2]string{"Released By", req.ReleaseBy})
	}
	for _, row := range meta {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(35, 6, row[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(0, 6, row[1], "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	// Items table
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(70, 7, "Item", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 7, "SKU", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 7, "Requested", "1", 0, "R", true, 0, "")
	pdf.CellFormat(30, 7, "Received", "1", 0, "R", true, 0, "")
	pdf.CellFormat(30, 7, "Returned", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for _, line := range req.Items {
		pdf.CellFormat(70, 7, line.Item.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, line.Item.SKU, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, fmt.Sprintf("%d", line.QuantityRequested), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, formatNullable(line.QuantityReceived), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, formatNullable(line.QuantityReturned), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(6)

	// Approvals
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 7, "Approvals", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	if len(req.Approvals) == 0 {
		pdf.CellFormat(0, 6, "None recorded", "", 1, "L", false, 0, "")
	}
	for _, approval := range req.Approvals {
		line := fmt.Sprintf("%s - %s", approval.ApproverName, approval.CreatedAt.Format("2006-01-02 15:04"))
		pdf.CellFormat(0, 6, line, "", 1, "L", false, 0, "")
	}

	if req.Rejection != nil {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 7, "Rejection", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(0, 6, fmt.Sprintf("%s: %s", req.Rejection.RejectorName, req.Rejection.Reason), "", "L", false)
	}

	pdf.SetY(-20)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.CellFormat(0, 6, "Generated "+time.Now().Format("2006-01-02 15:04"), "", 1, "R", false, 0, "")

	return pdf.Output(w)
}

func formatNullable(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}
