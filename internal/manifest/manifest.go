package manifest

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"example.com/ucodegate/internal/common"
)

// Item records one file that took part in a patch run.
type Item struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	Sha256 string `json:"sha256"`
	Type   string `json:"type"`
}

// Manifest ties together the inputs and outputs of a run so the operator
// can prove later which image was patched with which microcode.
type Manifest struct {
	CreatedAt time.Time `json:"createdAt"`
	ShaAlgo   string    `json:"shaAlgo"`
	Items     []Item    `json:"items"`
}

// Build hashes every path and assembles a manifest.
func Build(paths []string) (Manifest, error) {
	m := Manifest{CreatedAt: time.Now().UTC(), ShaAlgo: "sha256"}
	for _, p := range paths {
		hex, sz, err := common.Sha256OfFile(p)
		if err != nil {
			return m, err
		}
		m.Items = append(m.Items, Item{Path: p, Size: sz, Sha256: hex, Type: classify(p)})
	}
	return m, nil
}

func classify(path string) string {
	lower := strings.ToLower(path)
	switch {
	case hasExt(lower, ".rom", ".fd", ".cap", ".bios"):
		return "image"
	case hasExt(lower, ".bin", ".mcb", ".ucode"):
		return "ucode"
	case hasExt(lower, ".jsonl"):
		return "audit"
	case hasExt(lower, ".json"):
		return "json"
	case hasExt(lower, ".pdf"):
		return "pdf"
	}
	return "other"
}

func hasExt(path string, exts ...string) bool {
	for _, e := range exts {
		if strings.HasSuffix(path, e) {
			return true
		}
	}
	return false
}

// Save writes the manifest as indented JSON.
func Save(m Manifest, out string) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(out, b, 0644)
}
