package httpapi

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json/v2"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"codeberg.org/go-pdf/fpdf"

	"github.com/zeptools/gw-impose/clients"
	"github.com/zeptools/gw-impose/db/kvdb/impls/memory"
	"github.com/zeptools/gw-impose/jobs"
	"github.com/zeptools/gw-impose/merge"
	"github.com/zeptools/gw-impose/pdfs"
	"github.com/zeptools/gw-impose/routing"
	"github.com/zeptools/gw-impose/sec"
)

type registry map[string]clients.ClientAppConf

func (m registry) GetClientAppConf(id string) (clients.ClientAppConf, bool) {
	c, ok := m[id]
	c.ID = id
	return c, ok
}

type testServer struct {
	t      *testing.T
	api    *API
	router *routing.BaseRouter
	key    *rsa.PrivateKey
	now    time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	ring := &sec.KeyRing{}
	if _, err = ring.Replace(&sec.JWKS{Keys: []sec.JWK{sec.NewJWKFromPublicKey("k1", &key.PublicKey)}}); err != nil {
		t.Fatal(err)
	}
	tokens, err := sec.NewOutputTokens([]byte(strings.Repeat("t", 32)), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	catalog := pdfs.DefaultCatalog()
	engine := jobs.NewEngine(catalog, merge.NewPDFCPU(), jobs.Conf{TempDir: t.TempDir(), OutputDir: t.TempDir()})
	tracker := jobs.NewKVTracker(memory.New(), 0, 0)
	engine.Tracker = tracker

	ts := &testServer{t: t, key: key, now: time.Now()}
	ts.api = &API{
		Engine:      engine,
		Tracker:     tracker,
		Catalogs:    catalog,
		Tokens:      tokens,
		UploadLimit: 1 << 20,
		JobCtx:      context.Background(),
		Now:         func() time.Time { return ts.now },
	}
	ts.router = routing.NewBaseRouter()
	auth := &routing.BearerAuth{Keys: ring, Clients: registry{"shop": {}, "other": {}}, Audience: "impose"}
	ts.api.Register(ts.router, auth, Limits{})
	return ts
}

func (ts *testServer) do(req *http.Request, client string) *httptest.ResponseRecorder {
	if client != "" {
		tok, err := sec.SignClientToken(client, "impose", ts.key, "k1", time.Now(), time.Hour)
		if err != nil {
			ts.t.Fatal(err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func pdfBytes(t *testing.T, pages int) []byte {
	t.Helper()
	pdf := fpdf.New("P", "pt", "Letter", "")
	for i := 0; i < pages; i++ {
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: 288, Ht: 432})
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func multipartJob(t *testing.T, parts map[string]string, file []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, v := range parts {
		if err := mw.WriteField(name, v); err != nil {
			t.Fatal(err)
		}
	}
	if file != nil {
		fw, err := mw.CreateFormFile("file", "art.pdf")
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write(file)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/jobs", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

const letterSettings = `{"imposition_type":"stack","columns":1,"rows":1,"bleed_inches":0.125,"sheet_name":"Letter"}`

func TestSubmitStatusDownload(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(multipartJob(t, map[string]string{
		"job":      `{"id":"J1","name":"Cards"}`,
		"settings": letterSettings,
	}, pdfBytes(t, 2)), "shop")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("submit status = %d: %s", rec.Code, rec.Body)
	}
	ts.api.Engine.Wait()

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/v1/jobs/J1", nil), "shop")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var view struct {
		State       string `json:"state"`
		Sheets      int    `json:"sheets"`
		ClientID    string `json:"client_id"`
		DownloadURL string `json:"download_url"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	if view.State != "done" || view.Sheets != 2 || view.ClientID != "shop" || view.DownloadURL == "" {
		t.Fatalf("job view = %+v", view)
	}

	if rec = ts.do(httptest.NewRequest(http.MethodGet, "/v1/jobs/J1", nil), "other"); rec.Code != http.StatusNotFound {
		t.Errorf("other client sees job: %d", rec.Code)
	}

	rec = ts.do(httptest.NewRequest(http.MethodGet, view.DownloadURL, nil), "")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("download = %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")) {
		t.Error("download is not a PDF")
	}

	ts.now = ts.now.Add(2 * time.Hour)
	if rec = ts.do(httptest.NewRequest(http.MethodGet, view.DownloadURL, nil), ""); rec.Code != http.StatusGone {
		t.Errorf("expired download = %d", rec.Code)
	}

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/v1/jobs?limit=5", nil), "shop")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"job_id":"J1"`) {
		t.Errorf("list = %d %s", rec.Code, rec.Body)
	}
}

func TestJobIDBelongsToFirstClient(t *testing.T) {
	ts := newTestServer(t)
	submit := func(client string, pages int) *httptest.ResponseRecorder {
		rec := ts.do(multipartJob(t, map[string]string{
			"job":      `{"id":"SHARED"}`,
			"settings": letterSettings,
		}, pdfBytes(t, pages)), client)
		ts.api.Engine.Wait()
		return rec
	}
	if rec := submit("shop", 2); rec.Code != http.StatusAccepted {
		t.Fatalf("first submit = %d: %s", rec.Code, rec.Body)
	}
	rec := ts.do(httptest.NewRequest(http.MethodGet, "/v1/jobs/SHARED", nil), "shop")
	var view struct {
		DownloadURL string `json:"download_url"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil || view.DownloadURL == "" {
		t.Fatalf("job view = %s (%v)", rec.Body, err)
	}
	before := ts.do(httptest.NewRequest(http.MethodGet, view.DownloadURL, nil), "").Body.Bytes()

	rec = submit("other", 5)
	if rec.Code != http.StatusConflict || !strings.Contains(rec.Body.String(), "job_id_taken") {
		t.Fatalf("second client submit = %d: %s", rec.Code, rec.Body)
	}

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/v1/jobs/SHARED", nil), "shop")
	if !strings.Contains(rec.Body.String(), `"sheets":2`) || !strings.Contains(rec.Body.String(), `"client_id":"shop"`) {
		t.Errorf("status after refused submit = %s", rec.Body)
	}
	after := ts.do(httptest.NewRequest(http.MethodGet, view.DownloadURL, nil), "").Body.Bytes()
	if !bytes.Equal(before, after) {
		t.Error("download changed after another client reused the job id")
	}
	if left, _ := os.ReadDir(ts.api.Engine.TempDir); len(left) != 0 {
		t.Errorf("uploads left in temp dir: %v", left)
	}

	if rec = submit("shop", 3); rec.Code != http.StatusAccepted {
		t.Errorf("owner resubmit = %d: %s", rec.Code, rec.Body)
	}
}

func TestSubmitRejects(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		name       string
		parts      map[string]string
		file       []byte
		wantStatus int
	}{
		{"no file", map[string]string{"job": `{"id":"A"}`}, nil, http.StatusBadRequest},
		{"not a pdf", map[string]string{"job": `{"id":"A"}`}, []byte("GIF89a..."), http.StatusBadRequest},
		{"no job id", map[string]string{"job": `{"name":"x"}`}, pdfBytes(t, 1), http.StatusBadRequest},
		{"unknown sheet", map[string]string{"job": `{"id":"A"}`, "settings": `{"imposition_type":"stack","columns":1,"rows":1,"sheet_name":"A0"}`}, pdfBytes(t, 1), http.StatusBadRequest},
		{"bad scheme", map[string]string{"job": `{"id":"A"}`, "settings": `{"imposition_type":"spiral"}`}, pdfBytes(t, 1), http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := ts.do(multipartJob(t, tc.parts, tc.file), "shop")
			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d: %s", rec.Code, tc.wantStatus, rec.Body)
			}
		})
	}
	if rec := ts.do(multipartJob(t, map[string]string{"job": `{"id":"A"}`}, pdfBytes(t, 1)), ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated submit = %d", rec.Code)
	}
	ts.api.Engine.Wait()
	if left, _ := os.ReadDir(ts.api.Engine.TempDir); len(left) != 0 {
		t.Errorf("uploads left in temp dir: %v", left)
	}
}

func TestPlanAndSheetSizes(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		body       string
		wantStatus int
		wantSheet  string
	}{
		{`{"page_width_in":4,"page_height_in":6}`, http.StatusOK, "12x18"},
		{`{"page_width_pt":288,"page_height_pt":432}`, http.StatusOK, "12x18"},
		{`{"page_width_in":40,"page_height_in":60}`, http.StatusUnprocessableEntity, ""},
		{`{"page_width_in":0}`, http.StatusBadRequest, ""},
		{`not json`, http.StatusBadRequest, ""},
	}
	for _, tc := range tests {
		rec := ts.do(httptest.NewRequest(http.MethodPost, "/v1/plan", strings.NewReader(tc.body)), "shop")
		if rec.Code != tc.wantStatus {
			t.Errorf("%s: status = %d, want %d", tc.body, rec.Code, tc.wantStatus)
			continue
		}
		if tc.wantSheet == "" {
			continue
		}
		var got struct {
			Columns int            `json:"columns"`
			Rows    int            `json:"rows"`
			Sheet   pdfs.PaperSize `json:"sheet"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatal(err)
		}
		if got.Sheet.Name != tc.wantSheet || got.Columns*got.Rows != 9 {
			t.Errorf("%s: plan = %+v", tc.body, got)
		}
	}

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/v1/sheet-sizes", nil), "shop")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"name":"Letter"`) {
		t.Errorf("sheet sizes = %d %s", rec.Code, rec.Body)
	}
}
