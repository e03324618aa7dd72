package services

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"

	"github.com/crasadev/crasabot/models"
	"github.com/crasadev/crasabot/utils"
)

// PDFService renders order tickets as 80mm receipt PDFs.
type PDFService struct {
	outputDir string
}

func NewPDFService(outputDir string) *PDFService {
	return &PDFService{outputDir: outputDir}
}

// RenderTicket writes a receipt for a confirmed sale and returns the file
// path. Called after confirmation; the caller logs failures instead of
// failing the order.
func (s *PDFService) RenderTicket(sale *models.Sale, lines []CartLine, user *models.User) (string, error) {
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create ticket directory: %w", err)
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 80, Ht: 200},
	})
	pdf.SetMargins(5, 8, 5)
	pdf.AddPage()

	pdf.SetFont("Courier", "B", 12)
	pdf.CellFormat(70, 6, "ORDER TICKET", "", 1, "C", false, 0, "")
	pdf.SetFont("Courier", "", 8)
	pdf.CellFormat(70, 4, fmt.Sprintf("Order #%d", sale.ID), "", 1, "C", false, 0, "")
	pdf.CellFormat(70, 4, time.Now().Format("2006-01-02 15:04"), "", 1, "C", false, 0, "")
	pdf.Ln(2)

	name := user.Name
	if name == "" {
		name = user.Phone
	}
	pdf.CellFormat(70, 4, "Customer: "+name, "", 1, "L", false, 0, "")
	pdf.CellFormat(70, 4, "Phone: "+user.Phone, "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Courier", "B", 8)
	pdf.CellFormat(40, 4, "Item", "B", 0, "L", false, 0, "")
	pdf.CellFormat(10, 4, "Qty", "B", 0, "R", false, 0, "")
	pdf.CellFormat(20, 4, "Price", "B", 1, "R", false, 0, "")

	pdf.SetFont("Courier", "", 8)
	for _, line := range lines {
		label := line.ProductName
		if line.FlavorName != "" {
			label += " " + line.FlavorName
		}
		pdf.CellFormat(40, 4, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(10, 4, fmt.Sprintf("%d", line.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(20, 4, utils.FormatCents(line.SubtotalCents), "", 1, "R", false, 0, "")
	}

	pdf.Ln(1)
	pdf.SetFont("Courier", "B", 10)
	pdf.CellFormat(50, 5, "TOTAL", "T", 0, "L", false, 0, "")
	pdf.CellFormat(20, 5, utils.FormatCents(sale.TotalCents), "T", 1, "R", false, 0, "")

	pdf.Ln(3)
	pdf.SetFont("Courier", "", 8)
	pdf.CellFormat(70, 4, "Thank you for your order!", "", 1, "C", false, 0, "")

	path := filepath.Join(s.outputDir, fmt.Sprintf("ticket_%d_%s.pdf", sale.ID, uuid.NewString()))
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("write ticket pdf: %w", err)
	}
	return path, nil
}
