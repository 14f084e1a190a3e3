package batch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/supabridge/supabridge/internal/model"
	"github.com/supabridge/supabridge/internal/supabase"
)

// newBatchBackend serves a fixed row for reads and a 400 for any request
// whose table name contains "broken".
func newBatchBackend(t *testing.T) (*supabase.Client, *int) {
	t.Helper()
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(r.URL.Path, "broken") {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"message":"relation does not exist"}`)
			return
		}
		io.WriteString(w, `[{"id":1}]`)
	}))
	t.Cleanup(srv.Close)

	client, err := supabase.New(supabase.Credentials{Host: srv.URL, ServiceKey: "k"})
	if err != nil {
		t.Fatalf("supabase.New error: %v", err)
	}
	return client, &calls
}

func readItem(table string) model.OperationRequest {
	return model.OperationRequest{
		Resource:  model.ResourceDatabase,
		Operation: model.OpRead,
		Params:    model.Params{"table": table},
	}
}

func TestRunSequential(t *testing.T) {
	client, _ := newBatchBackend(t)

	results, err := Run(context.Background(), client, []model.OperationRequest{
		readItem("users"),
		readItem("orders"),
	}, Options{})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].PairedItem != 0 || results[1].PairedItem != 1 {
		t.Errorf("pairing = %d, %d", results[0].PairedItem, results[1].PairedItem)
	}
}

func TestRunAbortsOnFailure(t *testing.T) {
	client, calls := newBatchBackend(t)

	_, err := Run(context.Background(), client, []model.OperationRequest{
		readItem("users"),
		readItem("broken_table"),
		readItem("orders"),
	}, Options{})
	if err == nil {
		t.Fatal("expected error from failing item")
	}
	// The third item never runs: one call for users, one for broken_table.
	if *calls != 2 {
		t.Errorf("backend calls = %d, want 2", *calls)
	}
}

func TestRunContinueOnFail(t *testing.T) {
	client, calls := newBatchBackend(t)

	results, err := Run(context.Background(), client, []model.OperationRequest{
		readItem("users"),
		readItem("broken_table"),
		readItem("orders"),
	}, Options{ContinueOnFail: true})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if *calls != 3 {
		t.Errorf("backend calls = %d, want 3", *calls)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}

	// The failed item becomes a synthetic error record in place.
	failed := results[1]
	if failed.PairedItem != 1 {
		t.Errorf("PairedItem = %d, want 1", failed.PairedItem)
	}
	msg, _ := failed.JSON["error"].(string)
	if !strings.Contains(msg, "relation does not exist") {
		t.Errorf("error = %q", msg)
	}
	if failed.JSON["itemIndex"] != 1 {
		t.Errorf("itemIndex = %v", failed.JSON["itemIndex"])
	}

	// Items around it run normally.
	if results[0].JSON["operation"] != "read" || results[2].JSON["operation"] != "read" {
		t.Errorf("surrounding results = %v, %v", results[0].JSON, results[2].JSON)
	}
}

func TestRunContinueOnFailValidation(t *testing.T) {
	client, calls := newBatchBackend(t)

	// A locally rejected item (unfiltered delete) is also recorded, not fatal.
	results, err := Run(context.Background(), client, []model.OperationRequest{
		{
			Resource:  model.ResourceDatabase,
			Operation: model.OpDelete,
			Params:    model.Params{"table": "users"},
		},
		readItem("users"),
	}, Options{ContinueOnFail: true})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d", len(results))
	}
	if _, ok := results[0].JSON["error"]; !ok {
		t.Errorf("results[0] = %v, want error record", results[0].JSON)
	}
	// Only the second item reaches the backend.
	if *calls != 1 {
		t.Errorf("backend calls = %d, want 1", *calls)
	}
}

func TestRunEmpty(t *testing.T) {
	client, _ := newBatchBackend(t)

	results, err := Run(context.Background(), client, nil, Options{})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results = %v", results)
	}
}
