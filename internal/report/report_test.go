package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"example.com/ucodegate/internal/uefi"
)

func sampleReport() PatchReport {
	hdr := uefi.UcodeHeader{
		UpdateRevision:     0xDE,
		Year:               2024,
		Day:                15,
		Month:              3,
		ProcessorSignature: 0x000906EA,
		PlatformIDs:        0x22,
		TotalSize:          0x3C00,
	}
	res := uefi.Result{
		ImageSize:    1 << 20,
		Ucode:        &hdr,
		Patched:      1,
		Skipped:      1,
		BytesWritten: 256,
		Hits: []uefi.HitReport{
			{Offset: 0x1000, Valid: true, RecordSize: 280, BodySize: 256, Patched: true},
			{Offset: 0x9000, Valid: false, Reason: "ffs header sum 0x40: checksum mismatch"},
		},
	}
	return Build(res, "firmware.rom", "update.bin", "patched.rom",
		"9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08")
}

func TestReportJSONRoundTrip(t *testing.T) {
	rep := sampleReport()
	path := filepath.Join(t.TempDir(), "patch_report.json")
	if err := SaveJSON(rep, path); err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}
	got, err := LoadJSON(path)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if got.OutputSha256 != rep.OutputSha256 || got.InputPath != rep.InputPath {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.Result.Patched != 1 || len(got.Result.Hits) != 2 {
		t.Fatalf("result mismatch: %+v", got.Result)
	}
}

func TestOutputHashQR(t *testing.T) {
	png, err := OutputHashQR("9f86d081884c7d65", 128)
	if err != nil {
		t.Fatalf("OutputHashQR: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Fatalf("not a PNG: % x", png[:8])
	}
	if _, err := OutputHashQR("  zz--  ", 128); err == nil {
		t.Fatalf("expected error for hash without hex digits")
	}
}

func TestSavePDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patch_report.pdf")
	if err := SavePDF(sampleReport(), path); err != nil {
		t.Fatalf("SavePDF: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read pdf: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("output is not a PDF")
	}
}
