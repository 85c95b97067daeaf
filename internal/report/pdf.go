package report

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"example.com/ucodegate/internal/common"
	"example.com/ucodegate/internal/uefi"
)

// SavePDF renders the given patch report into a PDF document.
func SavePDF(rep PatchReport, out string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Microcode Patch Report", false)
	pdf.SetAuthor("ucodectl", false)
	pdf.SetCreator("ucodectl", false)
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	addPDFTitle(pdf, "Microcode Patch Report")
	addSummarySection(pdf, rep)
	addMicrocodeSection(pdf, rep.Result.Ucode)
	addHitsSection(pdf, rep.Result.Hits)
	addHashSection(pdf, rep.OutputSha256)

	if pdf.Err() {
		return pdf.Error()
	}
	return pdf.OutputFileAndClose(out)
}

func addPDFTitle(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, title)
	pdf.Ln(12)
}

func addSummarySection(pdf *gofpdf.Fpdf, rep PatchReport) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Summary")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 11)
	items := []struct {
		label string
		value string
	}{
		{label: "Created", value: rep.CreatedAt.Format(time.RFC3339)},
		{label: "Input Image", value: emptyFallback(rep.InputPath, "-")},
		{label: "Microcode File", value: emptyFallback(rep.UcodePath, "-")},
		{label: "Output Image", value: emptyFallback(rep.OutputPath, "-")},
		{label: "Image Size", value: common.FormatBytes(rep.Result.ImageSize)},
		{label: "Records Patched", value: strconv.Itoa(rep.Result.Patched)},
		{label: "Records Skipped", value: strconv.Itoa(rep.Result.Skipped)},
		{label: "Bytes Written", value: common.FormatBytes(rep.Result.BytesWritten)},
	}
	for _, item := range items {
		pdf.CellFormat(50, 6, item.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, item.value, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func addMicrocodeSection(pdf *gofpdf.Fpdf, hdr *uefi.UcodeHeader) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Replacement Microcode")
	pdf.Ln(8)

	if hdr == nil {
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, "No replacement microcode recorded.", "", "L", false)
		pdf.Ln(4)
		return
	}
	pdf.SetFont("Helvetica", "", 11)
	items := []struct {
		label string
		value string
	}{
		{label: "Update Revision", value: fmt.Sprintf("%#x", hdr.UpdateRevision)},
		{label: "Processor Signature", value: fmt.Sprintf("%#08x", hdr.ProcessorSignature)},
		{label: "Platform IDs", value: fmt.Sprintf("%#08x", hdr.PlatformIDs)},
		{label: "Date", value: fmt.Sprintf("%02d-%02d-%04d", hdr.Month, hdr.Day, hdr.Year)},
		{label: "Total Size", value: fmt.Sprintf("%#x", hdr.TotalSize)},
	}
	for _, item := range items {
		pdf.CellFormat(50, 6, item.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, item.value, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func addHitsSection(pdf *gofpdf.Fpdf, hits []uefi.HitReport) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Scan Hits")
	pdf.Ln(9)

	if len(hits) == 0 {
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, "No GUID occurrences found.", "", "L", false)
		pdf.Ln(4)
		return
	}

	headers := []string{"Offset", "Header", "Body", "Blobs", "Action", "Detail"}
	widths := []float64{26, 20, 24, 16, 22, 72}

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	lineHeight := 5.0
	for _, hit := range hits {
		values := []string{
			fmt.Sprintf("%#x", hit.Offset),
			validLabel(hit.Valid),
			strconv.Itoa(hit.BodySize),
			strconv.Itoa(len(hit.Existing)),
			actionLabel(hit),
			emptyFallback(hit.Reason, "-"),
		}
		renderTableRow(pdf, widths, values, lineHeight)
	}
	pdf.Ln(4)
}

func addHashSection(pdf *gofpdf.Fpdf, hash string) {
	if strings.TrimSpace(hash) == "" {
		return
	}
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Output SHA-256")
	pdf.Ln(8)
	pdf.SetFont("Courier", "", 9)
	pdf.MultiCell(0, 5, hash, "", "L", false)
	pdf.Ln(2)

	png, err := OutputHashQR(hash, 256)
	if err != nil {
		return
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("output-hash-qr", opts, bytes.NewReader(png))
	pdf.ImageOptions("output-hash-qr", pdf.GetX(), pdf.GetY(), 35, 35, false, opts, 0, "")
	pdf.Ln(38)
}

func renderTableRow(pdf *gofpdf.Fpdf, widths []float64, values []string, lineHeight float64) {
	xStart := pdf.GetX()
	yStart := pdf.GetY()
	maxLines := 1
	splitCols := make([][]string, len(values))
	for i, val := range values {
		text := strings.TrimSpace(val)
		if text == "" {
			text = "-"
		}
		lines := pdf.SplitText(text, widths[i]-2)
		if len(lines) == 0 {
			lines = []string{""}
		}
		splitCols[i] = lines
		if len(lines) > maxLines {
			maxLines = len(lines)
		}
	}
	rowHeight := float64(maxLines) * lineHeight
	x := xStart
	for i, lines := range splitCols {
		pdf.SetXY(x, yStart)
		cellText := strings.Join(lines, "\n")
		pdf.MultiCell(widths[i], lineHeight, cellText, "1", "L", false)
		x += widths[i]
	}
	pdf.SetXY(xStart, yStart+rowHeight)
}

func validLabel(valid bool) string {
	if valid {
		return "OK"
	}
	return "INVALID"
}

func actionLabel(hit uefi.HitReport) string {
	if hit.Patched {
		return "patched"
	}
	return "skipped"
}

func emptyFallback(val, fallback string) string {
	if strings.TrimSpace(val) == "" {
		return fallback
	}
	return val
}
