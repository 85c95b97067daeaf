package uefi

import (
	"fmt"

	"example.com/ucodegate/internal/common"
)

// HitReport describes one GUID occurrence examined during a scan.
type HitReport struct {
	Offset     int64        `json:"offset"`
	Valid      bool         `json:"valid"`
	Reason     string       `json:"reason,omitempty"`
	RecordSize uint32       `json:"recordSize,omitempty"`
	BodySize   int          `json:"bodySize,omitempty"`
	Existing   []ChainEntry `json:"existing,omitempty"`
	Trailing   int          `json:"trailing,omitempty"`
	Patched    bool         `json:"patched"`
}

// Result summarizes a Replace or Inspect pass over a firmware image.
type Result struct {
	ImageSize    int64        `json:"imageSize"`
	Ucode        *UcodeHeader `json:"ucode,omitempty"`
	UcodeChain   []ChainEntry `json:"ucodeChain,omitempty"`
	Hits         []HitReport  `json:"hits"`
	Patched      int          `json:"patched"`
	Skipped      int          `json:"skipped"`
	BytesWritten int64        `json:"bytesWritten"`
}

// Options carries the collaborators a Replace run reports through. Both are
// optional.
type Options struct {
	Audit   *common.PatchLog
	Metrics *common.Metrics
}

// Replace finds every microcode FFS record in image and overwrites its body
// with ucode, padding the remainder with the fill byte. image is mutated in
// place. The replacement blob must itself validate, and at least one record
// body must actually change, otherwise an error is returned and the caller
// must not write any output.
func Replace(image, ucode []byte, opts Options) (Result, error) {
	res := Result{ImageSize: int64(len(image))}
	if opts.Metrics != nil {
		opts.Metrics.SetTotalBytes(int64(len(image)))
	}

	repl, err := ParseUcode(ucode)
	if err != nil {
		return res, fmt.Errorf("replacement microcode: %w", err)
	}
	hdr := repl.Header
	res.Ucode = &hdr

	// Diagnostic only: the replacement file may itself concatenate
	// several blobs; every record body receives the file verbatim.
	chain, consumed := WalkUcodeChain(ucode)
	res.UcodeChain = chain
	logChain("replacement file", chain, len(ucode)-consumed)

	changed := false
	scanner := NewScanner(image, UcodeFFSGUID[:])
	for {
		off, ok := scanner.Next()
		if !ok {
			break
		}
		common.Logf("found microcode FFS GUID at %#x", off)
		hit, body := examineHit(image, off)
		if body == nil {
			common.Logf("record at %#x skipped: %s", off, hit.Reason)
			res.Skipped++
			res.Hits = append(res.Hits, hit)
			if opts.Metrics != nil {
				opts.Metrics.IncSkip()
			}
			continue
		}
		logChain(fmt.Sprintf("record at %#x", off), hit.Existing, hit.Trailing)
		if len(ucode) > len(body) {
			hit.Reason = fmt.Sprintf("replacement %d bytes does not fit body of %d bytes", len(ucode), len(body))
			common.Logf("record at %#x skipped: %s", off, hit.Reason)
			res.Skipped++
			res.Hits = append(res.Hits, hit)
			if opts.Metrics != nil {
				opts.Metrics.IncSkip()
			}
			continue
		}

		beforeSum := ""
		if opts.Audit != nil {
			beforeSum = common.Sha256Hex(body)
		}
		identical := bodyHoldsContent(body, ucode)
		if err := PatchBody(body, ucode); err != nil {
			// Unreachable after the fit check above; treated as a skip
			// to keep the scan going.
			hit.Reason = err.Error()
			res.Skipped++
			res.Hits = append(res.Hits, hit)
			continue
		}
		if !identical {
			changed = true
		}
		hit.Patched = true
		res.Patched++
		res.BytesWritten += int64(len(body))
		res.Hits = append(res.Hits, hit)
		if opts.Metrics != nil {
			opts.Metrics.AddRecord(int64(len(body)))
		}
		if opts.Audit != nil {
			entry := common.PatchEntry{
				Op:           "patch-body",
				Offset:       int64(off) + FFSHeaderSize,
				Length:       len(body),
				BeforeSha256: beforeSum,
				AfterSha256:  common.Sha256Hex(body),
				Note:         fmt.Sprintf("microcode rev %#x sig %#x", hdr.UpdateRevision, hdr.ProcessorSignature),
			}
			if err := opts.Audit.Append(entry); err != nil {
				return res, fmt.Errorf("audit log: %w", err)
			}
		}
		common.Logf("patched record at %#x: %d content bytes, %d fill bytes", off, len(ucode), len(body)-len(ucode))
	}

	if int64(len(image)) != res.ImageSize {
		// The patcher only ever writes through aliasing views, so the
		// image length cannot change; guard it anyway.
		return res, fmt.Errorf("image length changed from %d to %d", res.ImageSize, len(image))
	}
	if res.Patched == 0 {
		return res, fmt.Errorf("%d occurrence(s) examined, none patched: %w", len(res.Hits), ErrNoChange)
	}
	if !changed {
		return res, fmt.Errorf("patched image is identical to the input: %w", ErrNoChange)
	}
	return res, nil
}

// Inspect runs the same scan and per-record validation as Replace without
// mutating the image.
func Inspect(image []byte) Result {
	res := Result{ImageSize: int64(len(image))}
	scanner := NewScanner(image, UcodeFFSGUID[:])
	for {
		off, ok := scanner.Next()
		if !ok {
			return res
		}
		hit, body := examineHit(image, off)
		if body == nil {
			res.Skipped++
		}
		res.Hits = append(res.Hits, hit)
	}
}

// examineHit decodes and validates the record at off. The returned body is
// nil when the record is malformed; the hit carries the reason.
func examineHit(image []byte, off int) (HitReport, []byte) {
	hit := HitReport{Offset: int64(off)}
	rec, err := ParseFFSRecord(image[off:])
	if err != nil {
		hit.Reason = err.Error()
		return hit, nil
	}
	hit.Valid = true
	hit.RecordSize = rec.Header.Size
	hit.BodySize = len(rec.Body)
	entries, consumed := WalkUcodeChain(rec.Body)
	hit.Existing = entries
	if len(entries) > 0 {
		hit.Trailing = len(rec.Body) - consumed
	}
	return hit, rec.Body
}

// bodyHoldsContent reports whether body already equals content followed by
// fill bytes, i.e. whether patching it would be a no-op.
func bodyHoldsContent(body, content []byte) bool {
	if len(content) > len(body) {
		return false
	}
	for i, b := range content {
		if body[i] != b {
			return false
		}
	}
	for _, b := range body[len(content):] {
		if b != FillByte {
			return false
		}
	}
	return true
}

func logChain(where string, entries []ChainEntry, trailing int) {
	if len(entries) == 0 {
		common.Logf("%s: no microcode found", where)
		return
	}
	for _, e := range entries {
		h := e.Header
		common.Logf("%s: microcode at %#x rev %#x sig %#x date %02d-%02d-%04d total %#x",
			where, e.Offset, h.UpdateRevision, h.ProcessorSignature, h.Month, h.Day, h.Year, h.TotalSize)
	}
	if trailing > 0 {
		common.Logf("%s: %#x trailing bytes after microcode", where, trailing)
	}
}
