package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// CertificateData describes one attendance certificate.
type CertificateData struct {
	StudentName string
	StudentID   string
	Sessions    int
	IssueDate   time.Time
}

// CertificateExporter renders landscape certificate PDFs.
type CertificateExporter struct{}

// NewCertificateExporter constructs a certificate exporter.
func NewCertificateExporter() *CertificateExporter {
	return &CertificateExporter{}
}

// Render draws a bordered A4 landscape certificate: title, student identity,
// session count and issue date, all centered.
func (e *CertificateExporter) Render(data CertificateData) ([]byte, error) {
	name := data.StudentName
	if name == "" {
		name = "Student"
	}
	studentID := data.StudentID
	if studentID == "" {
		studentID = "N/A"
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFillColor(240, 240, 240)
	pdf.Rect(0, 0, 297, 210, "F")
	pdf.SetDrawColor(52, 152, 219)
	pdf.SetLineWidth(2)
	pdf.Rect(10, 10, 277, 190, "D")

	pdf.SetFont("Arial", "B", 32)
	pdf.SetTextColor(52, 152, 219)
	pdf.SetXY(10, 42)
	pdf.CellFormat(277, 14, "ATTENDANCE CERTIFICATE", "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 16)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(10, 74)
	pdf.CellFormat(277, 8, "This is to certify that", "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "B", 24)
	pdf.SetXY(10, 92)
	pdf.CellFormat(277, 12, name, "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 16)
	pdf.SetXY(10, 110)
	pdf.CellFormat(277, 8, fmt.Sprintf("Student ID: %s", studentID), "", 1, "C", false, 0, "")
	pdf.SetXY(10, 128)
	pdf.CellFormat(277, 8, fmt.Sprintf("Has attended the library for %d sessions", data.Sessions), "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 12)
	pdf.SetXY(10, 162)
	pdf.CellFormat(277, 6, "Issue Date: "+data.IssueDate.Format("2006-01-02"), "", 1, "C", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}
	return buf.Bytes(), nil
}
