package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/supabridge/supabridge/internal/model"
	"github.com/supabridge/supabridge/internal/supabase"
)

const fallbackMimeType = "application/octet-stream"

// urlFetchClient fetches upload payloads referenced by URL. Separate from
// the backend client: these requests go to arbitrary hosts without
// credentials.
var urlFetchClient = &http.Client{Timeout: 60 * time.Second}

// dispatchStorage routes a storage operation to its handler.
func dispatchStorage(ctx context.Context, c *supabase.Client, req model.OperationRequest, opts Options) ([]model.ResultItem, error) {
	switch req.Operation {
	case model.OpUpload:
		return stUpload(ctx, c, req)
	case model.OpDownload:
		return stDownload(ctx, c, req)
	case model.OpList:
		return stList(ctx, c, req)
	case model.OpDelete:
		return stDelete(ctx, c, req)
	case model.OpMove:
		return stMove(ctx, c, req)
	case model.OpCopy:
		return stCopy(ctx, c, req)
	case model.OpCreateBucket:
		return stCreateBucket(ctx, c, req)
	case model.OpDeleteBucket:
		return stDeleteBucket(ctx, c, req)
	case model.OpListBuckets:
		return stListBuckets(ctx, c, req)
	case model.OpGetBucket:
		return stGetBucket(ctx, c, req)
	case model.OpGetFileInfo:
		return stGetFileInfo(ctx, c, req)
	case model.OpCreateSignedURL:
		return stCreateSignedURL(ctx, c, req)
	default:
		return nil, fmt.Errorf("unknown storage operation %q", req.Operation)
	}
}

// guessMimeType infers a MIME type from a filename extension, falling back
// to application/octet-stream.
func guessMimeType(name string) string {
	if ext := path.Ext(name); ext != "" {
		if mt := mime.TypeByExtension(ext); mt != "" {
			return mt
		}
	}
	return fallbackMimeType
}

// acquireUploadPayload resolves the upload payload union: exactly one of
// the binary, url, or text variants, selected by the inputType
// discriminator. Returns the byte buffer and the inferred content type.
func acquireUploadPayload(ctx context.Context, p model.Params, filePath string) ([]byte, string, error) {
	switch inputType := p.StringOr("inputType", "binary"); inputType {
	case "binary":
		data, err := resolveBinaryData(p["binaryData"])
		if err != nil {
			return nil, "", err
		}
		return data, guessMimeType(filePath), nil

	case "url":
		fileURL, err := p.RequireString("fileUrl")
		if err != nil {
			return nil, "", err
		}
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
		if err != nil {
			return nil, "", model.Validationf("fileUrl", "invalid URL: %v", err)
		}
		resp, err := urlFetchClient.Do(httpReq)
		if err != nil {
			return nil, "", fmt.Errorf("fetch %s: %w", fileURL, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 400 {
			return nil, "", fmt.Errorf("fetch %s: unexpected status %d", fileURL, resp.StatusCode)
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, "", fmt.Errorf("read %s: %w", fileURL, err)
		}
		contentType := resp.Header.Get("Content-Type")
		if contentType == "" {
			contentType = guessMimeType(filePath)
		}
		return data, contentType, nil

	case "text":
		content, err := p.RequireString("fileContent")
		if err != nil {
			return nil, "", err
		}
		return []byte(content), "text/plain", nil

	default:
		return nil, "", model.Validationf("inputType", "unknown input type %q: must be binary, url, or text", inputType)
	}
}

func stUpload(ctx context.Context, c *supabase.Client, req model.OperationRequest) ([]model.ResultItem, error) {
	bucket, err := req.Params.RequireString("bucket")
	if err != nil {
		return nil, err
	}
	filePath := req.Params.String("filePath")
	if filePath == "" {
		// No explicit destination: generate an object name.
		filePath = uuid.NewString()
	}

	data, contentType, err := acquireUploadPayload(ctx, req.Params, filePath)
	if err != nil {
		return nil, err
	}

	opts := supabase.UploadOptions{
		ContentType:  req.Params.StringOr("contentType", contentType),
		CacheControl: req.Params.String("cacheControl"),
		Upsert:       req.Params.Bool("upsert"),
	}
	if raw := req.Params.String("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &opts.Metadata); err != nil {
			return nil, model.Validationf("metadata", "invalid JSON: %v", err)
		}
	}

	resp, err := c.UploadObject(ctx, bucket, filePath, data, opts)
	if err != nil {
		return nil, err
	}

	out := map[string]any{
		"operation": string(req.Operation),
		"bucket":    bucket,
		"filePath":  filePath,
		"mimeType":  opts.ContentType,
		"size":      len(data),
		"success":   true,
	}
	for k, v := range resp {
		out[k] = v
	}
	return []model.ResultItem{model.NewResultItem(req.ItemIndex, out)}, nil
}

func stDownload(ctx context.Context, c *supabase.Client, req model.OperationRequest) ([]model.ResultItem, error) {
	bucket, err := req.Params.RequireString("bucket")
	if err != nil {
		return nil, err
	}
	filePath, err := req.Params.RequireString("filePath")
	if err != nil {
		return nil, err
	}

	data, contentType, err := c.DownloadObject(ctx, bucket, filePath)
	if err != nil {
		return nil, err
	}
	// Only the store's reported type and the filename extension are
	// consulted; there is no content sniffing.
	if contentType == "" {
		contentType = guessMimeType(filePath)
	}
	fileName := path.Base(filePath)

	switch format := req.Params.StringOr("outputFormat", "binary"); format {
	case "binary":
		item := model.NewResultItem(req.ItemIndex, map[string]any{
			"operation": string(req.Operation),
			"bucket":    bucket,
			"filePath":  filePath,
			"fileName":  fileName,
			"mimeType":  contentType,
			"size":      len(data),
		})
		item.Binary = &model.Attachment{Data: data, FileName: fileName, MimeType: contentType}
		return []model.ResultItem{item}, nil

	case "text":
		if !utf8.Valid(data) {
			return nil, model.Validationf("outputFormat", "object %q is not valid UTF-8 text", filePath)
		}
		return []model.ResultItem{model.NewResultItem(req.ItemIndex, map[string]any{
			"operation": string(req.Operation),
			"bucket":    bucket,
			"filePath":  filePath,
			"fileName":  fileName,
			"mimeType":  contentType,
			"content":   string(data),
		})}, nil

	default:
		return nil, model.Validationf("outputFormat", "unknown output format %q: must be binary or text", format)
	}
}

// listSortColumns enumerates the columns a listing may sort on.
var listSortColumns = map[string]bool{
	"name": true, "id": true, "updated_at": true,
	"created_at": true, "last_accessed_at": true,
}

func stList(ctx context.Context, c *supabase.Client, req model.OperationRequest) ([]model.ResultItem, error) {
	bucket, err := req.Params.RequireString("bucket")
	if err != nil {
		return nil, err
	}
	sortColumn := req.Params.String("sortColumn")
	if sortColumn != "" && !listSortColumns[sortColumn] {
		return nil, model.Validationf("sortColumn", "unknown sort column %q", sortColumn)
	}
	sortOrder := req.Params.StringOr("sortOrder", "asc")
	if sortOrder != "asc" && sortOrder != "desc" {
		return nil, model.Validationf("sortOrder", "invalid sort order %q: must be asc or desc", sortOrder)
	}

	objects, err := c.ListObjects(ctx, bucket, supabase.ListObjectsOptions{
		Prefix:     req.Params.String("prefix"),
		Limit:      req.Params.Int("limit", 0),
		Offset:     req.Params.Int("offset", 0),
		Search:     req.Params.String("search"),
		SortColumn: sortColumn,
		SortOrder:  sortOrder,
	})
	if err != nil {
		return nil, err
	}

	// Zero results still yield one item so downstream consumers expecting
	// at least one item are not starved.
	if len(objects) == 0 {
		return []model.ResultItem{model.NewResultItem(req.ItemIndex, map[string]any{
			"operation": string(req.Operation),
			"bucket":    bucket,
			"files":     []map[string]any{},
			"count":     0,
		})}, nil
	}

	items := make([]model.ResultItem, 0, len(objects))
	for _, obj := range objects {
		out := map[string]any{
			"operation": string(req.Operation),
			"bucket":    bucket,
		}
		for k, v := range obj {
			out[k] = v
		}
		items = append(items, model.NewResultItem(req.ItemIndex, out))
	}
	return items, nil
}

func stDelete(ctx context.Context, c *supabase.Client, req model.OperationRequest) ([]model.ResultItem, error) {
	bucket, err := req.Params.RequireString("bucket")
	if err != nil {
		return nil, err
	}
	// A single path or a list of paths; always normalized to a list
	// before the store call.
	paths := req.Params.StringSlice("filePaths")
	if len(paths) == 0 {
		if single := req.Params.String("filePath"); single != "" {
			paths = []string{single}
		}
	}
	if len(paths) == 0 {
		return nil, model.NewValidationError("filePath", "at least one file path is required")
	}

	removed, err := c.DeleteObjects(ctx, bucket, paths)
	if err != nil {
		return nil, err
	}

	return []model.ResultItem{model.NewResultItem(req.ItemIndex, map[string]any{
		"operation": string(req.Operation),
		"bucket":    bucket,
		"deleted":   removed,
		"count":     len(removed),
		"success":   true,
	})}, nil
}

func stMove(ctx context.Context, c *supabase.Client, req model.OperationRequest) ([]model.ResultItem, error) {
	return stRelocate(ctx, c, req, c.MoveObject)
}

func stCopy(ctx context.Context, c *supabase.Client, req model.OperationRequest) ([]model.ResultItem, error) {
	return stRelocate(ctx, c, req, c.CopyObject)
}

// stRelocate implements the shared two-argument move/copy shape.
func stRelocate(ctx context.Context, c *supabase.Client, req model.OperationRequest,
	call func(ctx context.Context, bucket, from, to string) (map[string]any, error)) ([]model.ResultItem, error) {

	bucket, err := req.Params.RequireString("bucket")
	if err != nil {
		return nil, err
	}
	source, err := req.Params.RequireString("sourcePath")
	if err != nil {
		return nil, err
	}
	destination, err := req.Params.RequireString("destinationPath")
	if err != nil {
		return nil, err
	}

	resp, err := call(ctx, bucket, source, destination)
	if err != nil {
		return nil, err
	}

	out := map[string]any{
		"operation":       string(req.Operation),
		"bucket":          bucket,
		"sourcePath":      source,
		"destinationPath": destination,
		"success":         true,
	}
	for k, v := range resp {
		out[k] = v
	}
	return []model.ResultItem{model.NewResultItem(req.ItemIndex, out)}, nil
}

func stCreateBucket(ctx context.Context, c *supabase.Client, req model.OperationRequest) ([]model.ResultItem, error) {
	bucket, err := req.Params.RequireString("bucket")
	if err != nil {
		return nil, err
	}
	resp, err := c.CreateBucket(ctx, bucket, req.Params.Bool("public"))
	if err != nil {
		return nil, err
	}
	out := map[string]any{
		"operation": string(req.Operation),
		"bucket":    bucket,
		"success":   true,
	}
	for k, v := range resp {
		out[k] = v
	}
	return []model.ResultItem{model.NewResultItem(req.ItemIndex, out)}, nil
}

func stDeleteBucket(ctx context.Context, c *supabase.Client, req model.OperationRequest) ([]model.ResultItem, error) {
	bucket, err := req.Params.RequireString("bucket")
	if err != nil {
		return nil, err
	}
	resp, err := c.DeleteBucket(ctx, bucket)
	if err != nil {
		return nil, err
	}
	out := map[string]any{
		"operation": string(req.Operation),
		"bucket":    bucket,
		"success":   true,
	}
	for k, v := range resp {
		out[k] = v
	}
	return []model.ResultItem{model.NewResultItem(req.ItemIndex, out)}, nil
}

func stListBuckets(ctx context.Context, c *supabase.Client, req model.OperationRequest) ([]model.ResultItem, error) {
	buckets, err := c.ListBuckets(ctx)
	if err != nil {
		return nil, err
	}

	if len(buckets) == 0 {
		return []model.ResultItem{model.NewResultItem(req.ItemIndex, map[string]any{
			"operation": string(req.Operation),
			"buckets":   []map[string]any{},
			"count":     0,
		})}, nil
	}

	items := make([]model.ResultItem, 0, len(buckets))
	for _, b := range buckets {
		out := map[string]any{"operation": string(req.Operation)}
		for k, v := range b {
			out[k] = v
		}
		items = append(items, model.NewResultItem(req.ItemIndex, out))
	}
	return items, nil
}

func stGetBucket(ctx context.Context, c *supabase.Client, req model.OperationRequest) ([]model.ResultItem, error) {
	bucket, err := req.Params.RequireString("bucket")
	if err != nil {
		return nil, err
	}
	resp, err := c.GetBucket(ctx, bucket)
	if err != nil {
		return nil, err
	}
	out := map[string]any{
		"operation": string(req.Operation),
		"bucket":    bucket,
	}
	for k, v := range resp {
		out[k] = v
	}
	return []model.ResultItem{model.NewResultItem(req.ItemIndex, out)}, nil
}

// stGetFileInfo emulates a single-object stat by listing the parent
// directory with a search filter equal to the basename and finding the
// exact name match. The backend has no direct stat call.
func stGetFileInfo(ctx context.Context, c *supabase.Client, req model.OperationRequest) ([]model.ResultItem, error) {
	bucket, err := req.Params.RequireString("bucket")
	if err != nil {
		return nil, err
	}
	filePath, err := req.Params.RequireString("filePath")
	if err != nil {
		return nil, err
	}

	dir := path.Dir(filePath)
	if dir == "." {
		dir = ""
	}
	base := path.Base(filePath)

	objects, err := c.ListObjects(ctx, bucket, supabase.ListObjectsOptions{
		Prefix: dir,
		Search: base,
	})
	if err != nil {
		return nil, err
	}

	for _, obj := range objects {
		if name, _ := obj["name"].(string); name == base {
			out := map[string]any{
				"operation": string(req.Operation),
				"bucket":    bucket,
				"filePath":  filePath,
			}
			for k, v := range obj {
				out[k] = v
			}
			return []model.ResultItem{model.NewResultItem(req.ItemIndex, out)}, nil
		}
	}
	return nil, model.NotFoundf("file %q not found in bucket %q", filePath, bucket)
}

func stCreateSignedURL(ctx context.Context, c *supabase.Client, req model.OperationRequest) ([]model.ResultItem, error) {
	bucket, err := req.Params.RequireString("bucket")
	if err != nil {
		return nil, err
	}
	filePath, err := req.Params.RequireString("filePath")
	if err != nil {
		return nil, err
	}
	expiresIn := req.Params.Int("expiresIn", 3600)

	resp, err := c.CreateSignedURL(ctx, bucket, filePath, expiresIn)
	if err != nil {
		return nil, err
	}

	out := map[string]any{
		"operation": string(req.Operation),
		"bucket":    bucket,
		"filePath":  filePath,
		"expiresIn": expiresIn,
	}
	if signed, _ := resp["signedURL"].(string); signed != "" {
		full := c.Host() + "/storage/v1" + signed
		if req.Params.Bool("download") {
			sep := "?"
			if strings.Contains(full, "?") {
				sep = "&"
			}
			full += sep + "download="
		}
		out["signedUrl"] = full
	}
	// Newer backends also return the object path and a standalone token.
	if p, ok := resp["path"]; ok {
		out["path"] = p
	}
	if tok, ok := resp["token"]; ok {
		out["token"] = tok
	}
	return []model.ResultItem{model.NewResultItem(req.ItemIndex, out)}, nil
}
