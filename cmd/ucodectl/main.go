package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"example.com/ucodegate/internal/common"
	"example.com/ucodegate/internal/manifest"
	"example.com/ucodegate/internal/report"
	"example.com/ucodegate/internal/uefi"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	cmd := os.Args[1]
	switch cmd {
	case "replace":
		replaceCmd(os.Args[2:])
	case "scan":
		scanCmd(os.Args[2:])
	case "inspect":
		inspectCmd(os.Args[2:])
	case "manifest":
		manifestCmd(os.Args[2:])
	case "report":
		reportCmd(os.Args[2:])
	default:
		usage()
	}
}

func usage() {
	fmt.Printf(`ucodectl %s (built %s) <command> [options]

Commands:
  replace   --in <image> --ucode <blob> --out <image> [--audit <audit.jsonl>] [--report <report.json>] [--pdf <report.pdf>] [--metrics] [--progress]
  scan      --in <image>
  inspect   --in <blob>
  manifest  --inputs <comma-separated> --out <manifest.json>
  report    --in <report.json> --pdf <report.pdf>
`, version, buildDate)
}

func replaceCmd(args []string) {
	fs := flag.NewFlagSet("replace", flag.ExitOnError)
	in := fs.String("in", "", "input firmware image")
	ucodePath := fs.String("ucode", "", "raw microcode update file")
	out := fs.String("out", "", "output firmware image")
	auditPath := fs.String("audit", "", "audit log output (jsonl, defaults next to --out)")
	reportPath := fs.String("report", "", "patch report output (json)")
	pdfPath := fs.String("pdf", "", "patch report output (pdf)")
	metricsFlag := fs.Bool("metrics", false, "print throughput metrics")
	progressFlag := fs.Bool("progress", false, "display progress updates")
	fs.Parse(args)

	if *in == "" || *ucodePath == "" || *out == "" {
		fmt.Println("required: --in, --ucode, --out")
		os.Exit(1)
	}

	image, err := os.ReadFile(*in)
	if err != nil {
		fmt.Println("read image:", err)
		os.Exit(1)
	}
	ucode, err := os.ReadFile(*ucodePath)
	if err != nil {
		fmt.Println("read ucode:", err)
		os.Exit(1)
	}
	fmt.Printf("Input image: %s (%s)\n", *in, common.FormatBytes(int64(len(image))))
	fmt.Printf("Input ucode: %s (%s)\n", *ucodePath, common.FormatBytes(int64(len(ucode))))

	auditLogPath := *auditPath
	if auditLogPath == "" {
		auditLogPath = *out + ".audit.jsonl"
	}

	var metrics *common.Metrics
	if *metricsFlag || *progressFlag {
		metrics = common.NewMetrics()
		metrics.Start()
	}
	var stopProgress func()
	if metrics != nil && *progressFlag {
		stopProgress = common.StartProgressPrinter(os.Stderr, metrics, 500*time.Millisecond)
	}

	res, err := uefi.Replace(image, ucode, uefi.Options{
		Audit:   common.NewPatchLog(auditLogPath),
		Metrics: metrics,
	})
	if stopProgress != nil {
		stopProgress()
	}
	if metrics != nil {
		metrics.Stop()
	}
	if err != nil {
		switch {
		case errors.Is(err, uefi.ErrNoChange):
			fmt.Println("nothing patched:", err)
		default:
			fmt.Println("replace:", err)
		}
		fmt.Println("No output written")
		os.Exit(1)
	}

	if err := os.WriteFile(*out, image, 0o644); err != nil {
		fmt.Println("write output:", err)
		os.Exit(1)
	}
	outSha, _, err := common.Sha256OfFile(*out)
	if err != nil {
		fmt.Println("hash output:", err)
		os.Exit(1)
	}

	fmt.Printf("Patched %d record(s), skipped %d, wrote %s of record bodies\n",
		res.Patched, res.Skipped, common.FormatBytes(res.BytesWritten))
	fmt.Printf("Output: %s\n", *out)
	fmt.Printf("Output SHA256: %s\n", outSha)
	fmt.Printf("Audit log: %s\n", auditLogPath)

	if *reportPath != "" || *pdfPath != "" {
		rep := report.Build(res, *in, *ucodePath, *out, outSha)
		if *reportPath != "" {
			if err := report.SaveJSON(rep, *reportPath); err != nil {
				fmt.Println("write report:", err)
				os.Exit(1)
			}
			fmt.Println("Report:", *reportPath)
		}
		if *pdfPath != "" {
			if err := report.SavePDF(rep, *pdfPath); err != nil {
				fmt.Println("write pdf:", err)
				os.Exit(1)
			}
			fmt.Println("PDF:", *pdfPath)
		}
	}

	if metrics != nil && *metricsFlag {
		snap := metrics.Snapshot()
		fmt.Printf("Metrics: duration=%s records=%d skips=%d written=%s\n",
			snap.Duration.Round(10*time.Millisecond),
			snap.Records,
			snap.Skips,
			common.FormatBytes(snap.Bytes),
		)
	}
}

func scanCmd(args []string) {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	in := fs.String("in", "", "input firmware image")
	fs.Parse(args)

	if *in == "" {
		fmt.Println("required: --in")
		os.Exit(1)
	}
	image, err := os.ReadFile(*in)
	if err != nil {
		fmt.Println("read image:", err)
		os.Exit(1)
	}

	res := uefi.Inspect(image)
	if len(res.Hits) == 0 {
		fmt.Println("No microcode FFS GUID occurrences found")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "OFFSET\tHEADER\tRECORD\tBODY\tBLOBS\tDETAIL")
	for _, hit := range res.Hits {
		header := "ok"
		if !hit.Valid {
			header = "invalid"
		}
		detail := hit.Reason
		if detail == "" {
			detail = "-"
		}
		fmt.Fprintf(w, "%#x\t%s\t%d\t%d\t%d\t%s\n",
			hit.Offset, header, hit.RecordSize, hit.BodySize, len(hit.Existing), detail)
	}
	w.Flush()
	fmt.Printf("%d occurrence(s), %d malformed\n", len(res.Hits), res.Skipped)
}

func inspectCmd(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	in := fs.String("in", "", "raw microcode update file")
	fs.Parse(args)

	if *in == "" {
		fmt.Println("required: --in")
		os.Exit(1)
	}
	data, err := os.ReadFile(*in)
	if err != nil {
		fmt.Println("read ucode:", err)
		os.Exit(1)
	}

	entries, consumed := uefi.WalkUcodeChain(data)
	if len(entries) == 0 {
		fmt.Println("No valid microcode found")
		os.Exit(1)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "OFFSET\tREVISION\tSIGNATURE\tPLATFORMS\tDATE\tTOTAL")
	for _, e := range entries {
		h := e.Header
		fmt.Fprintf(w, "%#x\t%#x\t%#08x\t%#02x\t%02d-%02d-%04d\t%#x\n",
			e.Offset, h.UpdateRevision, h.ProcessorSignature, h.PlatformIDs, h.Month, h.Day, h.Year, h.TotalSize)
	}
	w.Flush()
	if trailing := len(data) - consumed; trailing > 0 {
		fmt.Printf("Note: %#x trailing bytes after microcode\n", trailing)
	}
}

func manifestCmd(args []string) {
	fs := flag.NewFlagSet("manifest", flag.ExitOnError)
	inputs := fs.String("inputs", "", "comma-separated paths")
	out := fs.String("out", "manifest.json", "output json")
	fs.Parse(args)

	if *inputs == "" {
		fmt.Println("required: --inputs")
		os.Exit(1)
	}
	var paths []string
	for _, p := range strings.Split(*inputs, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		paths = append(paths, p)
	}
	if len(paths) == 0 {
		fmt.Println("no input paths specified")
		os.Exit(1)
	}

	m, err := manifest.Build(paths)
	if err != nil {
		fmt.Println("manifest build:", err)
		os.Exit(1)
	}
	if err := manifest.Save(m, *out); err != nil {
		fmt.Println("manifest save:", err)
		os.Exit(1)
	}
	fmt.Println("Wrote", *out)
}

func reportCmd(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	in := fs.String("in", "", "patch report json")
	pdfPath := fs.String("pdf", "", "output patch report PDF")
	fs.Parse(args)

	if *in == "" || *pdfPath == "" {
		fmt.Println("required: --in, --pdf")
		os.Exit(1)
	}
	rep, err := report.LoadJSON(*in)
	if err != nil {
		fmt.Println("load report:", err)
		os.Exit(1)
	}
	if err := report.SavePDF(rep, *pdfPath); err != nil {
		fmt.Println("write pdf:", err)
		os.Exit(1)
	}
	fmt.Println("Wrote PDF:", *pdfPath)
}
