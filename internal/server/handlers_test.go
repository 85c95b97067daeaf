package server

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"example.com/ucodegate/internal/common"
	"example.com/ucodegate/internal/uefi"
)

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	s, err := NewServer(Options{StorageDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, NewRouter(s)
}

func testUcodeBlob(t *testing.T, total int) []byte {
	t.Helper()
	hdr := uefi.UcodeHeader{
		HeaderType:     1,
		UpdateRevision: 0xDE,
		Year:           2024,
		Day:            15,
		Month:          3,
		DataSize:       uint32(total - uefi.UcodeHeaderSize),
		TotalSize:      uint32(total),
	}
	blob := make([]byte, total)
	copy(blob, uefi.EncodeUcodeHeader(hdr))
	sum := uefi.SumLE[uint32](blob)
	binary.LittleEndian.PutUint32(blob[16:20], -sum)
	return blob
}

func testRom(t *testing.T, bodySize int) []byte {
	t.Helper()
	raw := make([]byte, uefi.FFSHeaderSize+bodySize)
	hdr := uefi.FFSHeader{
		GUID:  uefi.UcodeFFSGUID,
		Type:  0x20,
		Size:  uint32(len(raw)),
		State: 0xF8,
	}
	copy(raw, uefi.EncodeFFSHeader(hdr))
	for i := uefi.FFSHeaderSize; i < len(raw); i++ {
		raw[i] = uefi.FillByte
	}
	raw[16] = 0
	sum := uefi.SumLE[uint8](raw[:uefi.FFSHeaderSize])
	raw[16] = -(sum - raw[17] - raw[23])
	rom := append(bytes.Repeat([]byte{0x00}, 64), raw...)
	return append(rom, bytes.Repeat([]byte{0x00}, 64)...)
}

func multipartRequest(t *testing.T, url string, fields map[string][]byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, data := range fields {
		fw, err := mw.CreateFormFile(name, name+".bin")
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := fw.Write(data); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, url, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandlePatch(t *testing.T) {
	_, router := newTestServer(t)
	rom := testRom(t, 256)
	ucode := testUcodeBlob(t, 64)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartRequest(t, "/patch", map[string][]byte{"rom": rom, "ucode": ucode}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp patchResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Patched != 1 || resp.OutputSha256 == "" {
		t.Fatalf("response = %+v", resp)
	}
	if len(resp.Artifacts) < 2 {
		t.Fatalf("artifacts = %+v, want image and audit at least", resp.Artifacts)
	}

	var imageRef *ArtifactRef
	for i := range resp.Artifacts {
		if resp.Artifacts[i].Kind == "image" {
			imageRef = &resp.Artifacts[i]
		}
	}
	if imageRef == nil {
		t.Fatalf("no image artifact in %+v", resp.Artifacts)
	}

	dl := httptest.NewRecorder()
	router.ServeHTTP(dl, httptest.NewRequest(http.MethodGet, "/artifacts/"+imageRef.ID, nil))
	if dl.Code != http.StatusOK {
		t.Fatalf("download status = %d", dl.Code)
	}
	body, _ := io.ReadAll(dl.Body)
	if len(body) != len(rom) {
		t.Fatalf("downloaded %d bytes, want %d", len(body), len(rom))
	}
	if common.Sha256Hex(body) != resp.OutputSha256 {
		t.Fatalf("downloaded image hash does not match outputSha256")
	}
	if !bytes.Equal(body[64+uefi.FFSHeaderSize:64+uefi.FFSHeaderSize+64], ucode) {
		t.Fatalf("patched body does not start with the uploaded blob")
	}
}

func TestHandlePatchNoOccurrence(t *testing.T) {
	_, router := newTestServer(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartRequest(t, "/patch", map[string][]byte{
		"rom":   bytes.Repeat([]byte{0x00}, 512),
		"ucode": testUcodeBlob(t, 64),
	}))
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestHandlePatchInvalidUcode(t *testing.T) {
	_, router := newTestServer(t)
	ucode := testUcodeBlob(t, 64)
	ucode[50] ^= 0x01
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartRequest(t, "/patch", map[string][]byte{
		"rom":   testRom(t, 256),
		"ucode": ucode,
	}))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil || resp.Error == "" {
		t.Fatalf("error body = %q (%v)", rec.Body.String(), err)
	}
}

func TestHandlePatchMissingUpload(t *testing.T) {
	_, router := newTestServer(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartRequest(t, "/patch", map[string][]byte{"rom": testRom(t, 256)}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandlePatchMethodNotAllowed(t *testing.T) {
	_, router := newTestServer(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/patch", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestHandleInspect(t *testing.T) {
	_, router := newTestServer(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartRequest(t, "/inspect", map[string][]byte{"rom": testRom(t, 256)}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var res uefi.Result
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(res.Hits) != 1 || !res.Hits[0].Valid || res.Hits[0].Offset != 64 {
		t.Fatalf("hits = %+v", res.Hits)
	}
}

func TestHandleArtifactNotFound(t *testing.T) {
	_, router := newTestServer(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/artifacts/deadbeef", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	_, router := newTestServer(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
