package dispatch

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/supabridge/supabridge/internal/model"
	"github.com/supabridge/supabridge/internal/supabase"
)

func stRequest(op model.Operation, itemIndex int, params model.Params) model.OperationRequest {
	return model.OperationRequest{
		Resource:  model.ResourceStorage,
		Operation: op,
		ItemIndex: itemIndex,
		Params:    params,
	}
}

// ---------------------------------------------------------------------------
// Upload
// ---------------------------------------------------------------------------

func TestDispatchUploadBinary(t *testing.T) {
	backend, client := newFakeBackend(t, http.StatusOK, `{"Key":"docs/report.pdf"}`)

	payload := base64.StdEncoding.EncodeToString([]byte("pdf bytes"))
	items, err := Dispatch(context.Background(), client, stRequest(model.OpUpload, 2, model.Params{
		"bucket":     "docs",
		"filePath":   "report.pdf",
		"inputType":  "binary",
		"binaryData": payload,
	}), Options{})
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}

	if backend.calls[0].path != "/storage/v1/object/docs/report.pdf" {
		t.Errorf("path = %s", backend.calls[0].path)
	}
	if string(backend.calls[0].body) != "pdf bytes" {
		t.Errorf("body = %q", backend.calls[0].body)
	}

	j := items[0].JSON
	if j["success"] != true || j["filePath"] != "report.pdf" {
		t.Errorf("item = %v", j)
	}
	// MIME type comes from the filename extension.
	if j["mimeType"] != "application/pdf" {
		t.Errorf("mimeType = %v", j["mimeType"])
	}
	if j["size"] != len("pdf bytes") {
		t.Errorf("size = %v", j["size"])
	}
	if items[0].PairedItem != 2 {
		t.Errorf("PairedItem = %d", items[0].PairedItem)
	}
}

func TestDispatchUploadText(t *testing.T) {
	backend, client := newFakeBackend(t, http.StatusOK, `{}`)

	items, err := Dispatch(context.Background(), client, stRequest(model.OpUpload, 0, model.Params{
		"bucket":      "docs",
		"filePath":    "notes.txt",
		"inputType":   "text",
		"fileContent": "hello world",
	}), Options{})
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if string(backend.calls[0].body) != "hello world" {
		t.Errorf("body = %q", backend.calls[0].body)
	}
	if items[0].JSON["mimeType"] != "text/plain" {
		t.Errorf("mimeType = %v", items[0].JSON["mimeType"])
	}
}

func TestDispatchUploadFromURL(t *testing.T) {
	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		io.WriteString(w, "png bytes")
	}))
	defer source.Close()

	backend, client := newFakeBackend(t, http.StatusOK, `{}`)

	items, err := Dispatch(context.Background(), client, stRequest(model.OpUpload, 0, model.Params{
		"bucket":    "images",
		"filePath":  "logo.png",
		"inputType": "url",
		"fileUrl":   source.URL + "/logo.png",
	}), Options{})
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if string(backend.calls[0].body) != "png bytes" {
		t.Errorf("body = %q", backend.calls[0].body)
	}
	// The source's Content-Type wins over the extension guess.
	if items[0].JSON["mimeType"] != "image/png" {
		t.Errorf("mimeType = %v", items[0].JSON["mimeType"])
	}
}

func TestDispatchUploadGeneratesName(t *testing.T) {
	backend, client := newFakeBackend(t, http.StatusOK, `{}`)

	items, err := Dispatch(context.Background(), client, stRequest(model.OpUpload, 0, model.Params{
		"bucket":     "docs",
		"inputType":  "text",
		"fileContent": "x",
	}), Options{})
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	name, _ := items[0].JSON["filePath"].(string)
	if name == "" {
		t.Fatal("a generated object name is expected when filePath is omitted")
	}
	if !strings.HasSuffix(backend.calls[0].path, "/"+name) {
		t.Errorf("path %s should end with generated name %s", backend.calls[0].path, name)
	}
}

func TestDispatchUploadInvalidMetadata(t *testing.T) {
	backend, client := newFakeBackend(t, http.StatusOK, `{}`)

	_, err := Dispatch(context.Background(), client, stRequest(model.OpUpload, 0, model.Params{
		"bucket":      "docs",
		"filePath":    "a.txt",
		"inputType":   "text",
		"fileContent": "x",
		"metadata":    "{broken",
	}), Options{})
	if err == nil {
		t.Fatal("expected error for invalid metadata JSON")
	}
	if !model.IsValidationError(err) {
		t.Errorf("expected ValidationError, got %v", err)
	}
	if len(backend.calls) != 0 {
		t.Error("validation failure must not reach the backend")
	}
}

// ---------------------------------------------------------------------------
// Download
// ---------------------------------------------------------------------------

func newDownloadBackend(t *testing.T, contentType string, body []byte) *supabase.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.Write(body)
	}))
	t.Cleanup(srv.Close)

	client, err := supabase.New(supabase.Credentials{Host: srv.URL, ServiceKey: "k"})
	if err != nil {
		t.Fatalf("supabase.New error: %v", err)
	}
	return client
}

func TestDispatchDownloadBinary(t *testing.T) {
	client := newDownloadBackend(t, "image/png", []byte{0x89, 0x50, 0x4e, 0x47})

	items, err := Dispatch(context.Background(), client, stRequest(model.OpDownload, 1, model.Params{
		"bucket":   "images",
		"filePath": "assets/logo.png",
	}), Options{})
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}

	item := items[0]
	if item.Binary == nil {
		t.Fatal("binary attachment expected")
	}
	if item.Binary.FileName != "logo.png" {
		t.Errorf("FileName = %q", item.Binary.FileName)
	}
	if item.Binary.MimeType != "image/png" {
		t.Errorf("MimeType = %q", item.Binary.MimeType)
	}
	if len(item.Binary.Data) != 4 {
		t.Errorf("Data length = %d", len(item.Binary.Data))
	}
	if item.JSON["size"] != 4 {
		t.Errorf("size = %v", item.JSON["size"])
	}
}

func TestDispatchDownloadText(t *testing.T) {
	client := newDownloadBackend(t, "text/plain", []byte("file contents"))

	items, err := Dispatch(context.Background(), client, stRequest(model.OpDownload, 0, model.Params{
		"bucket":       "docs",
		"filePath":     "readme.txt",
		"outputFormat": "text",
	}), Options{})
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if items[0].Binary != nil {
		t.Error("text mode must not produce a binary attachment")
	}
	if items[0].JSON["content"] != "file contents" {
		t.Errorf("content = %v", items[0].JSON["content"])
	}
}

func TestDispatchDownloadTextRejectsBinaryPayload(t *testing.T) {
	client := newDownloadBackend(t, "application/octet-stream", []byte{0xff, 0xfe, 0x00, 0x80})

	_, err := Dispatch(context.Background(), client, stRequest(model.OpDownload, 0, model.Params{
		"bucket":       "docs",
		"filePath":     "blob.bin",
		"outputFormat": "text",
	}), Options{})
	if err == nil {
		t.Fatal("expected error for non-UTF-8 payload in text mode")
	}
	if !model.IsValidationError(err) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Listing
// ---------------------------------------------------------------------------

func TestDispatchListObjects(t *testing.T) {
	_, client := newFakeBackend(t, http.StatusOK,
		`[{"name":"a.txt","id":"1"},{"name":"b.txt","id":"2"}]`)

	items, err := Dispatch(context.Background(), client, stRequest(model.OpList, 4, model.Params{
		"bucket": "docs",
		"prefix": "reports",
	}), Options{})
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want one per object", len(items))
	}
	if items[0].JSON["name"] != "a.txt" || items[0].JSON["bucket"] != "docs" {
		t.Errorf("item = %v", items[0].JSON)
	}
	if items[1].PairedItem != 4 {
		t.Errorf("PairedItem = %d", items[1].PairedItem)
	}
}

func TestDispatchListObjectsEmpty(t *testing.T) {
	_, client := newFakeBackend(t, http.StatusOK, `[]`)

	items, err := Dispatch(context.Background(), client, stRequest(model.OpList, 0, model.Params{
		"bucket": "docs",
	}), Options{})
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("empty listing must still yield one item, got %d", len(items))
	}
	if items[0].JSON["count"] != 0 {
		t.Errorf("count = %v", items[0].JSON["count"])
	}
}

func TestDispatchListRejectsUnknownSortColumn(t *testing.T) {
	backend, client := newFakeBackend(t, http.StatusOK, `[]`)

	_, err := Dispatch(context.Background(), client, stRequest(model.OpList, 0, model.Params{
		"bucket":     "docs",
		"sortColumn": "size",
	}), Options{})
	if err == nil {
		t.Fatal("expected error for unknown sort column")
	}
	if len(backend.calls) != 0 {
		t.Error("validation failure must not reach the backend")
	}
}

// ---------------------------------------------------------------------------
// Delete, move, copy
// ---------------------------------------------------------------------------

func TestDispatchDeleteObjectsNormalizesSinglePath(t *testing.T) {
	backend, client := newFakeBackend(t, http.StatusOK, `[{"name":"a.txt"}]`)

	items, err := Dispatch(context.Background(), client, stRequest(model.OpDelete, 0, model.Params{
		"bucket":   "docs",
		"filePath": "a.txt",
	}), Options{})
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}

	var sent map[string]any
	json.Unmarshal(backend.calls[0].body, &sent)
	prefixes, _ := sent["prefixes"].([]any)
	if len(prefixes) != 1 || prefixes[0] != "a.txt" {
		t.Errorf("prefixes = %v", prefixes)
	}
	if items[0].JSON["count"] != 1 {
		t.Errorf("count = %v", items[0].JSON["count"])
	}
}

func TestDispatchDeleteObjectsRequiresPath(t *testing.T) {
	backend, client := newFakeBackend(t, http.StatusOK, `[]`)

	_, err := Dispatch(context.Background(), client, stRequest(model.OpDelete, 0, model.Params{
		"bucket": "docs",
	}), Options{})
	if err == nil {
		t.Fatal("expected error when no path is given")
	}
	if len(backend.calls) != 0 {
		t.Error("validation failure must not reach the backend")
	}
}

func TestDispatchMove(t *testing.T) {
	backend, client := newFakeBackend(t, http.StatusOK, `{"message":"Successfully moved"}`)

	items, err := Dispatch(context.Background(), client, stRequest(model.OpMove, 0, model.Params{
		"bucket":          "docs",
		"sourcePath":      "old/a.txt",
		"destinationPath": "new/a.txt",
	}), Options{})
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if backend.calls[0].path != "/storage/v1/object/move" {
		t.Errorf("path = %s", backend.calls[0].path)
	}
	if items[0].JSON["success"] != true || items[0].JSON["destinationPath"] != "new/a.txt" {
		t.Errorf("item = %v", items[0].JSON)
	}
}

func TestDispatchCopy(t *testing.T) {
	backend, client := newFakeBackend(t, http.StatusOK, `{"Key":"docs/b.txt"}`)

	_, err := Dispatch(context.Background(), client, stRequest(model.OpCopy, 0, model.Params{
		"bucket":          "docs",
		"sourcePath":      "a.txt",
		"destinationPath": "b.txt",
	}), Options{})
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if backend.calls[0].path != "/storage/v1/object/copy" {
		t.Errorf("path = %s", backend.calls[0].path)
	}
}

// ---------------------------------------------------------------------------
// Buckets
// ---------------------------------------------------------------------------

func TestDispatchListBucketsEmpty(t *testing.T) {
	_, client := newFakeBackend(t, http.StatusOK, `[]`)

	items, err := Dispatch(context.Background(), client, stRequest(model.OpListBuckets, 0, model.Params{}), Options{})
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if len(items) != 1 || items[0].JSON["count"] != 0 {
		t.Errorf("items = %v", items)
	}
}

func TestDispatchListBuckets(t *testing.T) {
	_, client := newFakeBackend(t, http.StatusOK, `[{"name":"docs"},{"name":"images"}]`)

	items, err := Dispatch(context.Background(), client, stRequest(model.OpListBuckets, 0, model.Params{}), Options{})
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d", len(items))
	}
	if items[1].JSON["name"] != "images" {
		t.Errorf("item = %v", items[1].JSON)
	}
}

// ---------------------------------------------------------------------------
// File info
// ---------------------------------------------------------------------------

func TestDispatchGetFileInfo(t *testing.T) {
	backend, client := newFakeBackend(t, http.StatusOK,
		`[{"name":"report.pdf","metadata":{"size":1024}}]`)

	items, err := Dispatch(context.Background(), client, stRequest(model.OpGetFileInfo, 0, model.Params{
		"bucket":   "docs",
		"filePath": "2026/report.pdf",
	}), Options{})
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}

	// The stat goes through a prefix-scoped listing with a basename search.
	var sent map[string]any
	json.Unmarshal(backend.calls[0].body, &sent)
	if sent["prefix"] != "2026" || sent["search"] != "report.pdf" {
		t.Errorf("body = %s", backend.calls[0].body)
	}

	if items[0].JSON["name"] != "report.pdf" || items[0].JSON["filePath"] != "2026/report.pdf" {
		t.Errorf("item = %v", items[0].JSON)
	}
}

func TestDispatchGetFileInfoNotFound(t *testing.T) {
	_, client := newFakeBackend(t, http.StatusOK, `[{"name":"report-draft.pdf"}]`)

	_, err := Dispatch(context.Background(), client, stRequest(model.OpGetFileInfo, 0, model.Params{
		"bucket":   "docs",
		"filePath": "report.pdf",
	}), Options{})
	if err == nil {
		t.Fatal("expected not-found error for inexact name match")
	}
	if !supabase.IsNotFound(err) {
		t.Errorf("expected not-found classification, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Signed URLs
// ---------------------------------------------------------------------------

func TestDispatchCreateSignedURL(t *testing.T) {
	f := &fakeBackend{status: http.StatusOK, body: `{"signedURL":"/object/sign/docs/a.txt?token=abc"}`}
	srv := httptest.NewServer(f.handler())
	defer srv.Close()
	client, err := supabase.New(supabase.Credentials{Host: srv.URL, ServiceKey: "k"})
	if err != nil {
		t.Fatalf("supabase.New error: %v", err)
	}

	items, err := Dispatch(context.Background(), client, stRequest(model.OpCreateSignedURL, 0, model.Params{
		"bucket":    "docs",
		"filePath":  "a.txt",
		"expiresIn": 900,
	}), Options{})
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}

	j := items[0].JSON
	want := srv.URL + "/storage/v1/object/sign/docs/a.txt?token=abc"
	if j["signedUrl"] != want {
		t.Errorf("signedUrl = %v, want %v", j["signedUrl"], want)
	}
	if j["expiresIn"] != 900 {
		t.Errorf("expiresIn = %v", j["expiresIn"])
	}

	var sent map[string]any
	json.Unmarshal(f.calls[0].body, &sent)
	if sent["expiresIn"] != float64(900) {
		t.Errorf("body = %s", f.calls[0].body)
	}
}

func TestDispatchCreateSignedURLDownloadFlag(t *testing.T) {
	tests := []struct {
		name   string
		signed string
		suffix string
	}{
		{name: "url with query", signed: "/object/sign/docs/a.txt?token=abc", suffix: "?token=abc&download="},
		{name: "url without query", signed: "/object/sign/docs/a.txt", suffix: "a.txt?download="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeBackend{status: http.StatusOK, body: `{"signedURL":"` + tt.signed + `"}`}
			srv := httptest.NewServer(f.handler())
			defer srv.Close()
			client, err := supabase.New(supabase.Credentials{Host: srv.URL, ServiceKey: "k"})
			if err != nil {
				t.Fatalf("supabase.New error: %v", err)
			}

			items, err := Dispatch(context.Background(), client, stRequest(model.OpCreateSignedURL, 0, model.Params{
				"bucket":   "docs",
				"filePath": "a.txt",
				"download": true,
			}), Options{})
			if err != nil {
				t.Fatalf("Dispatch error: %v", err)
			}
			url, _ := items[0].JSON["signedUrl"].(string)
			if !strings.HasSuffix(url, tt.suffix) {
				t.Errorf("signedUrl = %q, want suffix %q", url, tt.suffix)
			}
		})
	}
}

func TestDispatchWrapsStorageErrors(t *testing.T) {
	_, client := newFakeBackend(t, http.StatusNotFound, `{"message":"Object not found"}`)

	_, err := Dispatch(context.Background(), client, stRequest(model.OpDownload, 0, model.Params{
		"bucket":   "docs",
		"filePath": "missing.txt",
	}), Options{})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); got != "Storage operation failed: Object not found" {
		t.Errorf("error = %q", got)
	}
	if !supabase.IsNotFound(err) {
		t.Error("wrapped 404 should classify as not-found")
	}
}
