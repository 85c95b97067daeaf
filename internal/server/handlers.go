package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"example.com/ucodegate/internal/common"
	"example.com/ucodegate/internal/report"
	"example.com/ucodegate/internal/uefi"
)

type patchResponse struct {
	Patched      int           `json:"patched"`
	Skipped      int           `json:"skipped"`
	BytesWritten int64         `json:"bytesWritten"`
	OutputSha256 string        `json:"outputSha256"`
	Artifacts    []ArtifactRef `json:"artifacts"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handlePatch accepts a multipart form with a "rom" image and a "ucode"
// blob, patches the image in memory, and exposes the patched image plus
// the audit log and report as downloadable artifacts. A fatal core error
// produces no artifacts at all.
func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	rom, romName, err := s.formFile(r, "rom")
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	ucode, ucodeName, err := s.formFile(r, "ucode")
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	auditPath, err := s.tempPath("audit-*.jsonl")
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}

	res, err := uefi.Replace(rom, ucode, uefi.Options{Audit: common.NewPatchLog(auditPath)})
	if err != nil {
		os.Remove(auditPath)
		status := http.StatusInternalServerError
		if errors.Is(err, uefi.ErrChecksum) || errors.Is(err, uefi.ErrBounds) {
			status = http.StatusUnprocessableEntity
		} else if errors.Is(err, uefi.ErrNoChange) {
			status = http.StatusConflict
		}
		httpError(w, status, err.Error())
		return
	}

	outPath, err := s.tempPath("patched-*.rom")
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := os.WriteFile(outPath, rom, 0o644); err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	outSha := common.Sha256Hex(rom)

	outName := "patched-" + safeBaseName(romName, "image.rom")
	resp := patchResponse{
		Patched:      res.Patched,
		Skipped:      res.Skipped,
		BytesWritten: res.BytesWritten,
		OutputSha256: outSha,
	}

	ref, err := s.storeArtifact(outPath, outName, "application/octet-stream", "image")
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp.Artifacts = append(resp.Artifacts, ref)

	if ref, err := s.storeArtifact(auditPath, "audit.jsonl", "application/x-ndjson", "audit"); err == nil {
		resp.Artifacts = append(resp.Artifacts, ref)
	}

	rep := report.Build(res, safeBaseName(romName, "image.rom"), safeBaseName(ucodeName, "ucode.bin"), outName, outSha)
	if jsonPath, err := s.tempPath("report-*.json"); err == nil {
		if err := report.SaveJSON(rep, jsonPath); err == nil {
			if ref, err := s.storeArtifact(jsonPath, "patch_report.json", "application/json", "report"); err == nil {
				resp.Artifacts = append(resp.Artifacts, ref)
			}
		}
	}
	if pdfPath, err := s.tempPath("report-*.pdf"); err == nil {
		if err := report.SavePDF(rep, pdfPath); err == nil {
			if ref, err := s.storeArtifact(pdfPath, "patch_report.pdf", "application/pdf", "report"); err == nil {
				resp.Artifacts = append(resp.Artifacts, ref)
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleInspect accepts a multipart form with a "rom" image and reports
// every GUID occurrence without modifying anything.
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	rom, _, err := s.formFile(r, "rom")
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, uefi.Inspect(rom))
}

func (s *Server) handleArtifactDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/artifacts/")
	art, ok := s.artifact(id)
	if !ok {
		httpError(w, http.StatusNotFound, "artifact not found")
		return
	}
	if art.ContentType != "" {
		w.Header().Set("Content-Type", art.ContentType)
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.Name))
	http.ServeFile(w, r, art.Path)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) formFile(r *http.Request, field string) ([]byte, string, error) {
	if r.MultipartForm == nil {
		r.Body = http.MaxBytesReader(nil, r.Body, s.maxUpload)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return nil, "", fmt.Errorf("parse multipart form: %w", err)
		}
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", fmt.Errorf("missing %q upload: %w", field, err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("read %q upload: %w", field, err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%q upload is empty", field)
	}
	return data, header.Filename, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		common.Logf("write response: %v", err)
	}
}

func httpError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
