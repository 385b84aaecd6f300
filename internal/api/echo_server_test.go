package api

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/natread/internal/export"
	"github.com/samcharles93/natread/internal/toy"
	"github.com/samcharles93/natread/pkg/iasi"
	"github.com/samcharles93/natread/pkg/nat"
)

func newTestEcho(cfg Config) *echo.Echo {
	server := NewServer(NewFileStore(), nil, nil, cfg)
	e := echo.New()
	server.Register(e)
	return e
}

func do(t *testing.T, e *echo.Echo, method, path, contentType string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func doJSON(t *testing.T, e *echo.Echo, method, path string, out any) *httptest.ResponseRecorder {
	t.Helper()
	rec := do(t, e, method, path, "", nil)
	if out != nil && rec.Code < 300 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s %s: %v body=%s", method, path, err, rec.Body.String())
		}
	}
	return rec
}

func upload(t *testing.T, e *echo.Echo, query string, data []byte) FileView {
	t.Helper()
	rec := do(t, e, http.MethodPost, "/v1/files"+query, echo.MIMEOctetStream, bytes.NewReader(data))
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status: got %d body=%s", rec.Code, rec.Body.String())
	}
	var v FileView
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode upload: %v", err)
	}
	return v
}

func TestUploadGetDeleteLifecycle(t *testing.T) {
	t.Parallel()

	e := newTestEcho(Config{})
	created := upload(t, e, "?name=toy.nat", toy.L1C(3, 1))
	if !strings.HasPrefix(created.ID, "nat_") {
		t.Fatalf("unexpected id %q", created.ID)
	}
	if created.Product != "IASI L1C" || created.Malformed != 1 || len(created.Diagnostics) != 1 {
		t.Fatalf("upload view: product %q malformed %d diagnostics %d", created.Product, created.Malformed, len(created.Diagnostics))
	}
	if created.Diagnostics[0].Source != "toy.nat" {
		t.Fatalf("diagnostic source: %q", created.Diagnostics[0].Source)
	}

	var list struct {
		Files []FileView `json:"files"`
	}
	if rec := doJSON(t, e, http.MethodGet, "/v1/files", &list); rec.Code != http.StatusOK || len(list.Files) != 1 {
		t.Fatalf("list: status %d, %d files", rec.Code, len(list.Files))
	}

	var got FileView
	if rec := doJSON(t, e, http.MethodGet, "/v1/files/"+created.ID, &got); rec.Code != http.StatusOK {
		t.Fatalf("get status: got %d body=%s", rec.Code, rec.Body.String())
	}
	if got.Body != 3 || got.Name != "toy.nat" {
		t.Fatalf("get view: %+v", got.FileSummary)
	}

	delRec := doJSON(t, e, http.MethodDelete, "/v1/files/"+created.ID, nil)
	if delRec.Code != http.StatusOK || !strings.Contains(delRec.Body.String(), `"deleted":true`) {
		t.Fatalf("delete: got %d body=%s", delRec.Code, delRec.Body.String())
	}
	if rec := doJSON(t, e, http.MethodGet, "/v1/files/"+created.ID, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestUploadMultipartWithSelection(t *testing.T) {
	t.Parallel()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "IASI_xxx_1C_M01.nat")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	_, _ = fw.Write(toy.L1C(4))
	_ = mw.Close()

	e := newTestEcho(Config{Workers: 2})
	rec := do(t, e, http.MethodPost, "/v1/files?records=1:3&product=l1c", mw.FormDataContentType(), &body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	var v FileView
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.Name != "IASI_xxx_1C_M01.nat" || v.Body != 2 {
		t.Fatalf("view: name %q body %d", v.Name, v.Body)
	}
	if v.Start == nil || !v.Start.Equal(toy.RecordTime(1)) {
		t.Fatalf("start: %v want %v", v.Start, toy.RecordTime(1))
	}
}

func TestUploadErrors(t *testing.T) {
	t.Parallel()

	e := newTestEcho(Config{MaxUpload: 1 << 10})
	cases := []struct {
		name   string
		query  string
		data   []byte
		status int
		text   string
	}{
		{"bad selection", "?records=a:b", toy.L1C(1), http.StatusBadRequest, "invalid record selection"},
		{"bad product", "?product=l1b", toy.L1C(1), http.StatusBadRequest, "invalid_request_error"},
		{"truncated", "", []byte{1, 0, 0, 2, 0, 0, 1, 0}, http.StatusUnprocessableEntity, "decode_error"},
		{"too large", "", bytes.Repeat([]byte{0}, 4<<10), http.StatusRequestEntityTooLarge, "too_large_error"},
	}
	for _, tc := range cases {
		rec := do(t, e, http.MethodPost, "/v1/files"+tc.query, echo.MIMEOctetStream, bytes.NewReader(tc.data))
		if rec.Code != tc.status || !strings.Contains(rec.Body.String(), tc.text) {
			t.Fatalf("%s: got %d body=%s want %d containing %q", tc.name, rec.Code, rec.Body.String(), tc.status, tc.text)
		}
	}
}

func TestUploadWithoutProduct(t *testing.T) {
	t.Parallel()

	e := newTestEcho(Config{})
	headerOnly := (&toy.Builder{}).Record(nat.ClassGIADR, iasi.L1CScaleFactorSubclass, 1, nat.Epoch, nat.Epoch, make([]byte, 64)).Bytes()
	cases := []struct {
		name   string
		data   []byte
		header int
	}{
		{"empty", nil, 0},
		{"header only", headerOnly, 1},
	}
	for _, tc := range cases {
		v := upload(t, e, "?name="+strings.ReplaceAll(tc.name, " ", "_"), tc.data)
		if v.Product != "" || v.Records != tc.header || v.Header != tc.header || v.Body != 0 {
			t.Fatalf("%s: got %+v", tc.name, v.FileSummary)
		}
		rec := doJSON(t, e, http.MethodGet, "/v1/files/"+v.ID, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: get status %d", tc.name, rec.Code)
		}
		rec = do(t, e, http.MethodGet, "/v1/files/"+v.ID+"/observations", "", nil)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("%s: observations status %d body=%s", tc.name, rec.Code, rec.Body.String())
		}
	}
}

func TestRecords(t *testing.T) {
	t.Parallel()

	e := newTestEcho(Config{})
	id := upload(t, e, "", toy.L1C(2, 1)).ID

	var list struct {
		Records []export.RecordRow `json:"records"`
	}
	doJSON(t, e, http.MethodGet, "/v1/files/"+id+"/records", &list)
	if len(list.Records) != 4 {
		t.Fatalf("records: got %d want 4", len(list.Records))
	}
	doJSON(t, e, http.MethodGet, "/v1/files/"+id+"/records?class=MDR", &list)
	if len(list.Records) != 1 || list.Records[0].Index != 2 {
		t.Fatalf("MDR records: %+v", list.Records)
	}
	if rec := doJSON(t, e, http.MethodGet, "/v1/files/"+id+"/records?class=XYZ", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown class: got %d", rec.Code)
	}

	var detail export.RecordDetail
	doJSON(t, e, http.MethodGet, "/v1/files/"+id+"/records/3", &detail)
	if detail.Content != "malformed" || detail.Reason == "" {
		t.Fatalf("malformed detail: %+v", detail.RecordRow)
	}
	doJSON(t, e, http.MethodGet, "/v1/files/"+id+"/records/0", &detail)
	if len(detail.MPHR) == 0 {
		t.Fatal("MPHR detail has no pairs")
	}

	raw := do(t, e, http.MethodGet, "/v1/files/"+id+"/records/1/raw", "", nil)
	if raw.Code != http.StatusOK || raw.Body.Len() != nat.HeaderSize+64 {
		t.Fatalf("raw GIADR: status %d, %d bytes", raw.Code, raw.Body.Len())
	}
	if rec := doJSON(t, e, http.MethodGet, "/v1/files/"+id+"/records/9", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("out of range record: got %d body=%s", rec.Code, rec.Body.String())
	}
	if rec := doJSON(t, e, http.MethodGet, "/v1/files/"+id+"/records/x", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("non-numeric index: got %d", rec.Code)
	}
}

func TestObservations(t *testing.T) {
	t.Parallel()

	e := newTestEcho(Config{})
	id := upload(t, e, "", toy.L1C(2)).ID

	rec := do(t, e, http.MethodGet, "/v1/files/"+id+"/observations", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	sc := bufio.NewScanner(rec.Body)
	n := 0
	for sc.Scan() {
		n++
	}
	if n != 2*iasi.FOVs {
		t.Fatalf("rows: got %d want %d", n, 2*iasi.FOVs)
	}

	pq := do(t, e, http.MethodGet, "/v1/files/"+id+"/observations?format=parquet", "", nil)
	if pq.Code != http.StatusOK || !bytes.HasPrefix(pq.Body.Bytes(), []byte("PAR1")) {
		t.Fatalf("parquet: status %d", pq.Code)
	}
}

func TestSplit(t *testing.T) {
	t.Parallel()

	e := newTestEcho(Config{})
	id := upload(t, e, "", toy.L1C(3)).ID

	var list struct {
		Records []export.RecordRow `json:"records"`
	}
	doJSON(t, e, http.MethodGet, "/v1/files/"+id+"/records", &list)
	prefix := int64(list.Records[0].Size + list.Records[1].Size)
	mdr := int64(list.Records[2].Size)
	threshold := prefix + 2*mdr

	var plan struct {
		Parts []PartView `json:"parts"`
	}
	q := fmt.Sprintf("?threshold=%d&template=part_$F.nat", threshold)
	if rec := doJSON(t, e, http.MethodGet, "/v1/files/"+id+"/split"+q, &plan); rec.Code != http.StatusOK {
		t.Fatalf("plan: got %d body=%s", rec.Code, rec.Body.String())
	}
	if len(plan.Parts) != 2 || plan.Parts[0].Body != 2 || plan.Parts[1].Name != "part_1.nat" {
		t.Fatalf("plan: %+v", plan.Parts)
	}

	rec := do(t, e, http.MethodGet, "/v1/files/"+id+"/split/1"+q, "", nil)
	if rec.Code != http.StatusOK || int64(rec.Body.Len()) != prefix+mdr {
		t.Fatalf("part 1: status %d, %d bytes want %d", rec.Code, rec.Body.Len(), prefix+mdr)
	}
	f, err := nat.Assemble(rec.Body.Bytes(), iasi.Options(nil))
	if err != nil {
		t.Fatalf("reassemble part: %v", err)
	}
	defer f.Close()
	lat, err := iasi.Latitudes(f)
	if err != nil || lat[3] != toy.Latitude(2, 3) {
		t.Fatalf("part 1 holds the wrong record: %v", err)
	}

	if rec := doJSON(t, e, http.MethodGet, "/v1/files/"+id+"/split?threshold=1KB", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("small threshold: got %d body=%s", rec.Code, rec.Body.String())
	}
	if rec := doJSON(t, e, http.MethodGet, "/v1/files/"+id+"/split/5"+q, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("missing part: got %d", rec.Code)
	}
}

func TestServiceEndpoints(t *testing.T) {
	t.Parallel()

	e := newTestEcho(Config{})
	upload(t, e, "", toy.L1C(1))

	if rec := doJSON(t, e, http.MethodGet, "/healthz", nil); !strings.Contains(rec.Body.String(), `"files":1`) {
		t.Fatalf("healthz: %s", rec.Body.String())
	}
	if rec := doJSON(t, e, http.MethodGet, "/version", nil); !strings.Contains(rec.Body.String(), `"version"`) {
		t.Fatalf("version: %s", rec.Body.String())
	}
	rec := doJSON(t, e, http.MethodGet, "/metrics", nil)
	if !strings.Contains(rec.Body.String(), `natread_files_decoded_total{product="IASI L1C"} 1`) {
		t.Fatalf("metrics exposition missing decode counter:\n%s", rec.Body.String())
	}
}
