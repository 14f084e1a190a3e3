package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// UploadOptions carries the optional parts of an object upload.
type UploadOptions struct {
	ContentType  string
	CacheControl string
	Upsert       bool
	Metadata     map[string]any
}

// ListObjectsOptions carries the optional parts of an object listing.
type ListObjectsOptions struct {
	Prefix     string
	Limit      int
	Offset     int
	Search     string
	SortColumn string // name, id, updated_at, created_at, last_accessed_at
	SortOrder  string // asc or desc
}

// objectPath builds the route for an object, optionally under an operation
// segment such as "sign". The result stays unescaped: the URL layer encodes
// the path exactly once when the request is built, so pre-escaping here
// would double-encode names containing spaces, '%', or non-ASCII bytes.
func objectPath(op, bucket, path string) string {
	route := "/object"
	if op != "" {
		route += "/" + op
	}
	return route + "/" + bucket + "/" + strings.TrimPrefix(path, "/")
}

// ---------------------------------------------------------------------------
// Buckets
// ---------------------------------------------------------------------------

// CreateBucket creates a bucket with the given id and visibility.
func (c *Client) CreateBucket(ctx context.Context, id string, public bool) (map[string]any, error) {
	var out map[string]any
	payload := map[string]any{"id": id, "name": id, "public": public}
	if err := c.doJSON(ctx, http.MethodPost, storagePrefix+"/bucket", nil, nil, payload, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetBucket fetches a bucket's details.
func (c *Client) GetBucket(ctx context.Context, id string) (map[string]any, error) {
	var out map[string]any
	if err := c.doJSON(ctx, http.MethodGet, storagePrefix+"/bucket/"+id, nil, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListBuckets lists every bucket.
func (c *Client) ListBuckets(ctx context.Context) ([]map[string]any, error) {
	var out []map[string]any
	if err := c.doJSON(ctx, http.MethodGet, storagePrefix+"/bucket", nil, nil, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []map[string]any{}
	}
	return out, nil
}

// DeleteBucket removes a bucket. The backend rejects non-empty buckets.
func (c *Client) DeleteBucket(ctx context.Context, id string) (map[string]any, error) {
	var out map[string]any
	if err := c.doJSON(ctx, http.MethodDelete, storagePrefix+"/bucket/"+id, nil, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Objects
// ---------------------------------------------------------------------------

// UploadObject stores a byte buffer at bucket/path. Options are merged into
// the store call as headers.
func (c *Client) UploadObject(ctx context.Context, bucket, path string, data []byte, opts UploadOptions) (map[string]any, error) {
	h := http.Header{}
	if opts.ContentType != "" {
		h.Set("Content-Type", opts.ContentType)
	}
	if opts.CacheControl != "" {
		h.Set("Cache-Control", opts.CacheControl)
	}
	if opts.Upsert {
		h.Set("x-upsert", "true")
	}
	if len(opts.Metadata) > 0 {
		meta, err := json.Marshal(opts.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode metadata: %w", err)
		}
		h.Set("x-metadata", string(meta))
	}

	resp, err := c.do(ctx, http.MethodPost, storagePrefix+objectPath("", bucket, path), nil, h, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	return out, nil
}

// DownloadObject fetches an object's bytes and the content type the store
// reports for it.
func (c *Client) DownloadObject(ctx context.Context, bucket, path string) ([]byte, string, error) {
	resp, err := c.do(ctx, http.MethodGet, storagePrefix+objectPath("", bucket, path), nil, nil, nil)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read object body: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// ListObjects lists objects under a bucket prefix.
func (c *Client) ListObjects(ctx context.Context, bucket string, opts ListObjectsOptions) ([]map[string]any, error) {
	payload := map[string]any{
		"prefix": opts.Prefix,
	}
	if opts.Limit > 0 {
		payload["limit"] = opts.Limit
	}
	if opts.Offset > 0 {
		payload["offset"] = opts.Offset
	}
	if opts.Search != "" {
		payload["search"] = opts.Search
	}
	if opts.SortColumn != "" {
		order := opts.SortOrder
		if order == "" {
			order = "asc"
		}
		payload["sortBy"] = map[string]any{"column": opts.SortColumn, "order": order}
	}

	var out []map[string]any
	if err := c.doJSON(ctx, http.MethodPost, storagePrefix+"/object/list/"+bucket, nil, nil, payload, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []map[string]any{}
	}
	return out, nil
}

// DeleteObjects removes a list of object paths from a bucket.
func (c *Client) DeleteObjects(ctx context.Context, bucket string, paths []string) ([]map[string]any, error) {
	var out []map[string]any
	payload := map[string]any{"prefixes": paths}
	if err := c.doJSON(ctx, http.MethodDelete, storagePrefix+"/object/"+bucket, nil, nil, payload, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []map[string]any{}
	}
	return out, nil
}

// MoveObject renames an object within a bucket.
func (c *Client) MoveObject(ctx context.Context, bucket, from, to string) (map[string]any, error) {
	var out map[string]any
	payload := map[string]any{"bucketId": bucket, "sourceKey": from, "destinationKey": to}
	if err := c.doJSON(ctx, http.MethodPost, storagePrefix+"/object/move", nil, nil, payload, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CopyObject duplicates an object within a bucket.
func (c *Client) CopyObject(ctx context.Context, bucket, from, to string) (map[string]any, error) {
	var out map[string]any
	payload := map[string]any{"bucketId": bucket, "sourceKey": from, "destinationKey": to}
	if err := c.doJSON(ctx, http.MethodPost, storagePrefix+"/object/copy", nil, nil, payload, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateSignedURL generates a time-limited download URL for an object.
// The response carries the signed URL and, depending on the backend
// version, optional path and token fields.
func (c *Client) CreateSignedURL(ctx context.Context, bucket, path string, expiresIn int) (map[string]any, error) {
	var out map[string]any
	payload := map[string]any{"expiresIn": expiresIn}
	p := storagePrefix + objectPath("sign", bucket, path)
	if err := c.doJSON(ctx, http.MethodPost, p, nil, nil, payload, &out); err != nil {
		return nil, err
	}
	return out, nil
}
