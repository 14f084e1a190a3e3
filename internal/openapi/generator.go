// Package openapi generates an OpenAPI 3.1 document describing the
// Supabridge HTTP API, for host UIs and client generators.
package openapi

import (
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/supabridge/supabridge/internal/model"
)

// Generate builds the OpenAPI 3.1 spec for the serve API rooted at baseURL.
func Generate(baseURL string) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "Supabridge API",
			Description: "Batch operation gateway for Supabase database and storage resources.",
			Version:     "1.0.0",
		},
		Servers: openapi3.Servers{
			{URL: baseURL},
		},
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	doc.Components = &components

	registerSchemas(doc)

	doc.Paths = openapi3.NewPaths()
	doc.Paths.Set("/api/v1/run", &openapi3.PathItem{
		Post: runOperation(),
	})
	doc.Paths.Set("/api/v1/operations", &openapi3.PathItem{
		Get: operationsOperation(),
	})
	doc.Paths.Set("/healthz", &openapi3.PathItem{
		Get: probeOperation("healthz", "Liveness probe. Always returns 200 while the process is up."),
	})
	doc.Paths.Set("/readyz", &openapi3.PathItem{
		Get: probeOperation("readyz", "Readiness probe. Returns 200 once the backend answers, 503 otherwise."),
	})

	return doc
}

func registerSchemas(doc *openapi3.T) {
	doc.Components.Schemas["OperationRequest"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:        &openapi3.Types{"object"},
			Required:    []string{"resource", "operation"},
			Description: "One unit of work: a resource, an operation name, and loosely-typed parameters.",
			Properties: openapi3.Schemas{
				"resource": &openapi3.SchemaRef{Value: &openapi3.Schema{
					Type: &openapi3.Types{"string"},
					Enum: []any{"database", "storage"},
				}},
				"operation": &openapi3.SchemaRef{Value: &openapi3.Schema{
					Type:        &openapi3.Types{"string"},
					Description: "Operation name, scoped to the resource. GET /api/v1/operations lists the valid names.",
				}},
				"itemIndex": &openapi3.SchemaRef{Value: &openapi3.Schema{
					Type: &openapi3.Types{"integer"},
				}},
				"parameters": &openapi3.SchemaRef{Value: &openapi3.Schema{
					Type:        &openapi3.Types{"object"},
					Description: "Operation parameters. Keys depend on the operation (table, filters, bucket, filePath, ...).",
				}},
			},
		},
	}

	doc.Components.Schemas["ResultItem"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"json": &openapi3.SchemaRef{Value: &openapi3.Schema{
					Type: &openapi3.Types{"object"},
				}},
				"binary": &openapi3.SchemaRef{Value: &openapi3.Schema{
					Type:     &openapi3.Types{"object"},
					Nullable: true,
					Properties: openapi3.Schemas{
						"data":     &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "byte"}},
						"fileName": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
						"mimeType": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
					},
				}},
				"pairedItem": &openapi3.SchemaRef{Value: &openapi3.Schema{
					Type:        &openapi3.Types{"integer"},
					Description: "Index of the input item this result was produced from.",
				}},
			},
		},
	}

	doc.Components.Schemas["RunRequest"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:     &openapi3.Types{"object"},
			Required: []string{"items"},
			Properties: openapi3.Schemas{
				"items": &openapi3.SchemaRef{Value: &openapi3.Schema{
					Type:  &openapi3.Types{"array"},
					Items: openapi3.NewSchemaRef("#/components/schemas/OperationRequest", nil),
				}},
				"continueOnFail": &openapi3.SchemaRef{Value: &openapi3.Schema{
					Type:        &openapi3.Types{"boolean"},
					Description: "Convert a failed item into an error record and keep going instead of aborting the batch.",
				}},
				"strictOperators": &openapi3.SchemaRef{Value: &openapi3.Schema{
					Type:        &openapi3.Types{"boolean"},
					Description: "Reject unrecognized filter operators instead of falling back to eq.",
				}},
			},
		},
	}

	doc.Components.Schemas["RunResponse"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"results": &openapi3.SchemaRef{Value: &openapi3.Schema{
					Type:  &openapi3.Types{"array"},
					Items: openapi3.NewSchemaRef("#/components/schemas/ResultItem", nil),
				}},
				"meta": &openapi3.SchemaRef{Value: &openapi3.Schema{
					Type: &openapi3.Types{"object"},
					Properties: openapi3.Schemas{
						"count":   &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}}},
						"took_ms": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"number"}}},
					},
				}},
			},
		},
	}

	doc.Components.Schemas["OperationsResponse"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"database": &openapi3.SchemaRef{Value: &openapi3.Schema{
					Type:  &openapi3.Types{"array"},
					Items: &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
				}},
				"storage": &openapi3.SchemaRef{Value: &openapi3.Schema{
					Type:  &openapi3.Types{"array"},
					Items: &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
				}},
			},
		},
	}

	doc.Components.Schemas["ErrorResponse"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"error": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type: &openapi3.Types{"object"},
						Properties: openapi3.Schemas{
							"code":    &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}},
							"message": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
						},
					},
				},
			},
		},
	}
}

func runOperation() *openapi3.Operation {
	return &openapi3.Operation{
		OperationID: "runBatch",
		Summary:     "Run a batch of operations",
		Description: "Executes the items sequentially in declaration order and returns the combined result stream.",
		Tags:        []string{"run"},
		RequestBody: &openapi3.RequestBodyRef{
			Value: &openapi3.RequestBody{
				Required: true,
				Content:  openapi3.NewContentWithJSONSchemaRef(openapi3.NewSchemaRef("#/components/schemas/RunRequest", nil)),
			},
		},
		Responses: responsesWith(map[string]*openapi3.Response{
			"200": jsonResponse("Batch results", "#/components/schemas/RunResponse"),
			"400": errorResponse("Invalid request or parameter validation failure"),
			"401": errorResponse("Backend rejected the credentials"),
			"404": errorResponse("Requested record or object does not exist"),
			"502": errorResponse("Backend was unreachable"),
		}),
	}
}

func operationsOperation() *openapi3.Operation {
	return &openapi3.Operation{
		OperationID: "listOperations",
		Summary:     "List supported operations",
		Tags:        []string{"run"},
		Responses: responsesWith(map[string]*openapi3.Response{
			"200": jsonResponse("Operations per resource", "#/components/schemas/OperationsResponse"),
		}),
	}
}

func probeOperation(id, description string) *openapi3.Operation {
	return &openapi3.Operation{
		OperationID: id,
		Summary:     description,
		Tags:        []string{"health"},
		Responses: responsesWith(map[string]*openapi3.Response{
			"200": textResponse("OK"),
		}),
	}
}

func responsesWith(byCode map[string]*openapi3.Response) *openapi3.Responses {
	responses := openapi3.NewResponses()
	for code, resp := range byCode {
		responses.Set(code, &openapi3.ResponseRef{Value: resp})
	}
	return responses
}

func jsonResponse(description, schemaRef string) *openapi3.Response {
	return &openapi3.Response{
		Description: &description,
		Content:     openapi3.NewContentWithJSONSchemaRef(openapi3.NewSchemaRef(schemaRef, nil)),
	}
}

func errorResponse(description string) *openapi3.Response {
	return jsonResponse(description, "#/components/schemas/ErrorResponse")
}

func textResponse(description string) *openapi3.Response {
	return &openapi3.Response{Description: &description}
}

// OperationCatalog returns the operation names per resource, matching the
// /api/v1/operations endpoint. Exposed here so generated docs and the
// server stay in sync.
func OperationCatalog() map[string][]string {
	catalog := make(map[string][]string, 2)
	for _, op := range model.DatabaseOperations {
		catalog[string(model.ResourceDatabase)] = append(catalog[string(model.ResourceDatabase)], string(op))
	}
	for _, op := range model.StorageOperations {
		catalog[string(model.ResourceStorage)] = append(catalog[string(model.ResourceStorage)], string(op))
	}
	return catalog
}
