package openapi

import (
	"testing"
)

func TestGenerate(t *testing.T) {
	doc := Generate("http://localhost:8080")

	if doc.OpenAPI != "3.1.0" {
		t.Errorf("version = %q", doc.OpenAPI)
	}
	if len(doc.Servers) != 1 || doc.Servers[0].URL != "http://localhost:8080" {
		t.Errorf("servers = %+v", doc.Servers)
	}

	for _, path := range []string{"/api/v1/run", "/api/v1/operations", "/healthz", "/readyz"} {
		if doc.Paths.Value(path) == nil {
			t.Errorf("path %s missing", path)
		}
	}

	for _, name := range []string{
		"OperationRequest", "ResultItem", "RunRequest",
		"RunResponse", "OperationsResponse", "ErrorResponse",
	} {
		if _, ok := doc.Components.Schemas[name]; !ok {
			t.Errorf("schema %s missing", name)
		}
	}
}

func TestGenerateRunResponses(t *testing.T) {
	doc := Generate("http://localhost:8080")

	post := doc.Paths.Value("/api/v1/run").Post
	if post == nil {
		t.Fatal("POST /api/v1/run missing")
	}
	if post.RequestBody == nil || !post.RequestBody.Value.Required {
		t.Error("run request body should be required")
	}
	for _, code := range []string{"200", "400", "401", "404", "502"} {
		if post.Responses.Value(code) == nil {
			t.Errorf("response %s missing", code)
		}
	}
}

func TestGenerateRequestSchemaFields(t *testing.T) {
	doc := Generate("http://localhost:8080")

	req := doc.Components.Schemas["OperationRequest"].Value
	for _, prop := range []string{"resource", "operation", "itemIndex", "parameters"} {
		if _, ok := req.Properties[prop]; !ok {
			t.Errorf("OperationRequest property %s missing", prop)
		}
	}
}

func TestOperationCatalog(t *testing.T) {
	catalog := OperationCatalog()

	if len(catalog["database"]) != 12 {
		t.Errorf("database ops = %d, want 12", len(catalog["database"]))
	}
	if len(catalog["storage"]) != 12 {
		t.Errorf("storage ops = %d, want 12", len(catalog["storage"]))
	}
}
