package report

import (
	"encoding/json"
	"os"
	"time"

	"example.com/ucodegate/internal/uefi"
)

// PatchReport is the machine-readable record of one replace run.
type PatchReport struct {
	CreatedAt    time.Time   `json:"createdAt"`
	InputPath    string      `json:"inputPath,omitempty"`
	UcodePath    string      `json:"ucodePath,omitempty"`
	OutputPath   string      `json:"outputPath,omitempty"`
	OutputSha256 string      `json:"outputSha256,omitempty"`
	Result       uefi.Result `json:"result"`
}

// Build assembles a PatchReport from a replace result and the file paths
// the run worked with.
func Build(res uefi.Result, inputPath, ucodePath, outputPath, outputSha string) PatchReport {
	return PatchReport{
		CreatedAt:    time.Now().UTC(),
		InputPath:    inputPath,
		UcodePath:    ucodePath,
		OutputPath:   outputPath,
		OutputSha256: outputSha,
		Result:       res,
	}
}

// SaveJSON writes the report as indented JSON.
func SaveJSON(rep PatchReport, out string) error {
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(out, b, 0644)
}

// LoadJSON reads a report previously written by SaveJSON.
func LoadJSON(path string) (PatchReport, error) {
	var rep PatchReport
	b, err := os.ReadFile(path)
	if err != nil {
		return rep, err
	}
	if err := json.Unmarshal(b, &rep); err != nil {
		return rep, err
	}
	return rep, nil
}
