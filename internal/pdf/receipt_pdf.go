package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/ikkim/churchbook-backend/pkg/logger"
	"github.com/ikkim/churchbook-backend/pkg/util"
	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
)

// DonationLine is one donation row printed on the receipt.
type DonationLine struct {
	Date     string
	TypeName string
	Amount   int64
}

// ReceiptData carries everything the renderer needs. Values are the
// snapshots stored on the receipt row, already truncated to column limits.
type ReceiptData struct {
	TaxYear      int
	SerialNumber int
	IssueDate    time.Time

	DonorName     string
	DonorAddress  string
	DonorCity     string
	DonorProvince string
	DonorPostal   string

	CharityName      string
	CharityAddress   string
	CharityCity      string
	CharityProvince  string
	CharityPostal    string
	CharityRegNo     string
	LocationIssued   string
	AuthorizedSigner string

	Lines          []DonationLine
	TotalCents     int64
	EligibleCents  int64
	AdvantageCents int64
}

// SerialLabel formats the receipt number as printed, e.g. "2024-00017".
func (d *ReceiptData) SerialLabel() string {
	return fmt.Sprintf("%d-%05d", d.TaxYear, d.SerialNumber)
}

// Render produces the official donation receipt as an A4 PDF.
func Render(data *ReceiptData) ([]byte, error) {
	logger.Debug("Rendering receipt PDF", map[string]interface{}{
		"tax_year": data.TaxYear,
		"serial":   data.SerialNumber,
		"lines":    len(data.Lines),
	})

	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetMargins(18, 16, 18)
	doc.SetAutoPageBreak(true, 20)
	doc.AddPage()

	// 단체 정보 헤더
	doc.SetFont("Helvetica", "B", 15)
	doc.CellFormat(0, 8, data.CharityName, "", 1, "C", false, 0, "")
	doc.SetFont("Helvetica", "", 9)
	doc.CellFormat(0, 5, cityLine(data.CharityAddress, data.CharityCity, data.CharityProvince, data.CharityPostal), "", 1, "C", false, 0, "")
	doc.CellFormat(0, 5, "Charitable Registration No. "+data.CharityRegNo, "", 1, "C", false, 0, "")
	doc.Ln(4)

	doc.SetFont("Helvetica", "B", 12)
	doc.CellFormat(0, 7, fmt.Sprintf("Official Donation Receipt for Income Tax Purposes - %d", data.TaxYear), "", 1, "C", false, 0, "")
	doc.Ln(2)

	// 일련번호 / 발행 정보
	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(95, 6, "Receipt No: "+data.SerialLabel(), "", 0, "L", false, 0, "")
	doc.CellFormat(0, 6, "Date Issued: "+data.IssueDate.Format("January 2, 2006"), "", 1, "R", false, 0, "")
	if data.LocationIssued != "" {
		doc.CellFormat(0, 6, "Location Issued: "+data.LocationIssued, "", 1, "L", false, 0, "")
	}
	doc.Ln(3)

	// 기부자 정보
	doc.SetFont("Helvetica", "B", 10)
	doc.CellFormat(0, 6, "Received From:", "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(0, 6, data.DonorName, "", 1, "L", false, 0, "")
	if data.DonorAddress != "" {
		doc.CellFormat(0, 5, data.DonorAddress, "", 1, "L", false, 0, "")
	}
	if line := cityLine("", data.DonorCity, data.DonorProvince, data.DonorPostal); line != "" {
		doc.CellFormat(0, 5, line, "", 1, "L", false, 0, "")
	}
	doc.Ln(4)

	// 기부 내역 테이블
	doc.SetFont("Helvetica", "B", 9)
	doc.SetFillColor(235, 235, 235)
	doc.CellFormat(40, 7, "Date", "1", 0, "L", true, 0, "")
	doc.CellFormat(94, 7, "Donation Type", "1", 0, "L", true, 0, "")
	doc.CellFormat(40, 7, "Amount", "1", 1, "R", true, 0, "")

	doc.SetFont("Helvetica", "", 9)
	for _, line := range data.Lines {
		doc.CellFormat(40, 6, line.Date, "1", 0, "L", false, 0, "")
		doc.CellFormat(94, 6, line.TypeName, "1", 0, "L", false, 0, "")
		doc.CellFormat(40, 6, util.FormatCents(line.Amount), "1", 1, "R", false, 0, "")
	}

	doc.SetFont("Helvetica", "B", 9)
	doc.CellFormat(134, 7, "Total Donations Received", "1", 0, "R", false, 0, "")
	doc.CellFormat(40, 7, util.FormatCents(data.TotalCents), "1", 1, "R", false, 0, "")
	doc.Ln(4)

	// 공제 대상 금액
	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(0, 6, "Value of advantage received: "+util.FormatCents(data.AdvantageCents), "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "B", 11)
	doc.CellFormat(0, 7, "Eligible amount of gift for tax purposes: "+util.FormatCents(data.EligibleCents), "", 1, "L", false, 0, "")
	doc.Ln(6)

	// QR 코드 (영수증 검증용 식별 문자열)
	if err := drawQRCode(doc, data); err != nil {
		return nil, err
	}

	// 서명란
	doc.SetFont("Helvetica", "", 10)
	doc.Ln(10)
	doc.CellFormat(90, 6, "_______________________________", "", 1, "L", false, 0, "")
	doc.CellFormat(90, 5, data.AuthorizedSigner, "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "I", 8)
	doc.CellFormat(90, 4, "Authorized Signature", "", 1, "L", false, 0, "")
	doc.Ln(6)

	doc.SetFont("Helvetica", "I", 8)
	doc.MultiCell(0, 4,
		"Canada Revenue Agency: canada.ca/charities-giving. "+
			"This receipt is issued for income tax purposes and records donations "+
			"received during the stated calendar year.",
		"", "L", false)

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		logger.Error("Failed to render receipt PDF", err, map[string]interface{}{
			"tax_year": data.TaxYear,
			"serial":   data.SerialNumber,
		})
		return nil, fmt.Errorf("failed to render receipt PDF: %w", err)
	}

	logger.Debug("Receipt PDF rendered", map[string]interface{}{
		"tax_year": data.TaxYear,
		"serial":   data.SerialNumber,
		"bytes":    buf.Len(),
	})
	return buf.Bytes(), nil
}

func drawQRCode(doc *gofpdf.Fpdf, data *ReceiptData) error {
	payload := fmt.Sprintf("receipt:%s;reg:%s;eligible:%d", data.SerialLabel(), data.CharityRegNo, data.EligibleCents)

	png, err := qrcode.Encode(payload, qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("failed to encode receipt QR code: %w", err)
	}

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	name := "qr-" + data.SerialLabel()
	doc.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))

	x, y := doc.GetXY()
	pageWidth, _ := doc.GetPageSize()
	doc.ImageOptions(name, pageWidth-18-24, y, 24, 24, false, opts, 0, "")
	doc.SetXY(x, y)
	return nil
}

func cityLine(address, city, province, postal string) string {
	parts := []string{}
	if address != "" {
		parts = append(parts, address)
	}
	if city != "" {
		parts = append(parts, city)
	}
	if province != "" {
		parts = append(parts, province)
	}
	if postal != "" {
		parts = append(parts, postal)
	}
	return strings.Join(parts, ", ")
}
