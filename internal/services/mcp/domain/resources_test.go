package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	rundomain "github.com/louisbranch/ontogenic.space/internal/services/run/domain"
	"github.com/louisbranch/ontogenic.space/internal/services/run/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func readResourceText(t *testing.T, result *mcp.ReadResourceResult) string {
	t.Helper()
	if result == nil || len(result.Contents) != 1 {
		t.Fatalf("expected one resource content, got %+v", result)
	}
	if result.Contents[0].MIMEType != "application/json" {
		t.Errorf("expected application/json, got %q", result.Contents[0].MIMEType)
	}
	return result.Contents[0].Text
}

func TestSchemaListResourceHandler(t *testing.T) {
	handler := SchemaListResourceHandler()
	result, err := handler(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var payload SchemaListPayload
	if err := json.Unmarshal([]byte(readResourceText(t, result)), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if len(payload.Models) == 0 {
		t.Fatal("expected at least one schema model")
	}
	found := false
	for _, model := range payload.Models {
		if model == "state" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected state model in %v", payload.Models)
	}
}

func TestSchemaResourceHandler(t *testing.T) {
	t.Run("state schema", func(t *testing.T) {
		handler := SchemaResourceHandler()
		result, err := handler(context.Background(), &mcp.ReadResourceRequest{
			Params: &mcp.ReadResourceParams{URI: "schema://state"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var schema map[string]any
		if err := json.Unmarshal([]byte(readResourceText(t, result)), &schema); err != nil {
			t.Fatalf("decode schema: %v", err)
		}
		if schema["title"] != "State" {
			t.Errorf("expected title State, got %v", schema["title"])
		}
	})

	t.Run("unknown model", func(t *testing.T) {
		handler := SchemaResourceHandler()
		_, err := handler(context.Background(), &mcp.ReadResourceRequest{
			Params: &mcp.ReadResourceParams{URI: "schema://galaxy"},
		})
		if err == nil {
			t.Fatal("expected error for unknown model")
		}
	})

	t.Run("malformed URI", func(t *testing.T) {
		handler := SchemaResourceHandler()
		_, err := handler(context.Background(), &mcp.ReadResourceRequest{
			Params: &mcp.ReadResourceParams{URI: "state"},
		})
		if err == nil {
			t.Fatal("expected error for malformed URI")
		}
	})

	t.Run("missing request", func(t *testing.T) {
		handler := SchemaResourceHandler()
		_, err := handler(context.Background(), nil)
		if err == nil {
			t.Fatal("expected error for missing request")
		}
	})
}

func TestRunsListResourceHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		createdAt := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
		service := &fakeRunService{listResult: rundomain.ListResult{
			Runs:  []storage.Run{testStoredRun("r1", "alice", createdAt)},
			Total: 1,
		}}
		handler := RunsListResourceHandler(service)
		result, err := handler(context.Background(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var payload RunListPayload
		if err := json.Unmarshal([]byte(readResourceText(t, result)), &payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if len(payload.Runs) != 1 || payload.Runs[0].ID != "r1" {
			t.Fatalf("unexpected payload: %+v", payload)
		}
		if service.listIn == nil || service.listIn.PageSize != resourceListPageSize {
			t.Errorf("expected page size %d, got %+v", resourceListPageSize, service.listIn)
		}
	})

	t.Run("nil service", func(t *testing.T) {
		handler := RunsListResourceHandler(nil)
		_, err := handler(context.Background(), nil)
		if err == nil {
			t.Fatal("expected error for nil service")
		}
	})

	t.Run("store error", func(t *testing.T) {
		service := &fakeRunService{listErr: fmt.Errorf("store offline")}
		handler := RunsListResourceHandler(service)
		_, err := handler(context.Background(), nil)
		if err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestRunResourceHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		createdAt := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
		service := &fakeRunService{getRecord: testStoredRun("r1", "alice", createdAt)}
		handler := RunResourceHandler(service)
		result, err := handler(context.Background(), &mcp.ReadResourceRequest{
			Params: &mcp.ReadResourceParams{URI: "run://r1"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var payload RunPayload
		if err := json.Unmarshal([]byte(readResourceText(t, result)), &payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload.Run.ID != "r1" || payload.Run.UserID != "alice" {
			t.Fatalf("unexpected payload: %+v", payload)
		}
		if service.getRunID != "r1" {
			t.Errorf("expected lookup of r1, got %q", service.getRunID)
		}
	})

	t.Run("missing run ID", func(t *testing.T) {
		handler := RunResourceHandler(&fakeRunService{})
		_, err := handler(context.Background(), &mcp.ReadResourceRequest{
			Params: &mcp.ReadResourceParams{URI: "run://"},
		})
		if err == nil {
			t.Fatal("expected error for empty run ID")
		}
	})

	t.Run("not found", func(t *testing.T) {
		service := &fakeRunService{getErr: fmt.Errorf("run not found")}
		handler := RunResourceHandler(service)
		_, err := handler(context.Background(), &mcp.ReadResourceRequest{
			Params: &mcp.ReadResourceParams{URI: "run://missing"},
		})
		if err == nil {
			t.Fatal("expected error")
		}
	})
}
