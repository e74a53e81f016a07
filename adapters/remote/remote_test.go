package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/artpar/manifold/core/catalog"
	"github.com/artpar/manifold/core/runtime"
	"github.com/artpar/manifold/core/schema"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()

	c := catalog.New()
	entities := []schema.Entity{
		{
			Name: "Invoice",
			Fields: []schema.Field{
				{Name: "total", Kind: schema.FieldKindDecimal, Required: true},
				{Name: "currency", Kind: schema.FieldKindText, Default: "EUR"},
			},
			Operations: []schema.Operation{
				{
					Name:   "send",
					Public: true,
					Params: []schema.Param{
						{Name: "recipient", Kind: schema.FieldKindText},
					},
					Returns: schema.FieldKindBoolean,
				},
			},
			Access: schema.Channels{
				API: schema.AccessPolicy{
					Mode:    schema.PolicyFiltered,
					Include: []string{"list", "get", "create", "update", "delete", "send"},
				},
			},
		},
		{
			Name: "Secret",
			Fields: []schema.Field{
				{Name: "value", Kind: schema.FieldKindText},
			},
			Access: schema.Channels{
				API: schema.AccessPolicy{Mode: schema.PolicyNone},
			},
		},
	}
	for _, e := range entities {
		if err := c.Register(e); err != nil {
			t.Fatalf("Register(%s) failed: %v", e.Name, err)
		}
	}
	return c
}

func newTestExecutor(t *testing.T, handler http.HandlerFunc) (*Executor, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(ClientConfig{BaseURL: srv.URL, APIKey: "test-key"})
	return NewExecutor(client, testCatalog(t)), srv
}

func TestExecutor_List(t *testing.T) {
	exec, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/invoices" {
			t.Errorf("path = %s, want /invoices", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("limit") != "2" || q.Get("offset") != "1" {
			t.Errorf("paging params = %s/%s, want 2/1", q.Get("limit"), q.Get("offset"))
		}
		if q.Get("orderBy") != "-total" {
			t.Errorf("orderBy = %s, want -total", q.Get("orderBy"))
		}
		if q.Get("where") != "currency=EUR" {
			t.Errorf("where = %s, want currency=EUR", q.Get("where"))
		}

		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"id": "a", "total": 50.0}, {"id": "b", "total": 40.0}},
			"meta": map[string]any{"total": 5, "limit": 2, "offset": 1},
		})
	})

	res, err := exec.Execute(context.Background(), "Invoice", "list", runtime.Input{
		List: runtime.ListOptions{Limit: 2, Offset: 1, OrderBy: "-total", Where: "currency=EUR"},
	})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(res.Items) != 2 {
		t.Errorf("len(Items) = %d, want 2", len(res.Items))
	}
	if res.Total != 5 {
		t.Errorf("Total = %d, want 5", res.Total)
	}
}

func TestExecutor_Get(t *testing.T) {
	exec, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/invoices/abc" {
			t.Errorf("path = %s, want /invoices/abc", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want Bearer test-key", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"id": "abc", "total": 12.5},
		})
	})

	res, err := exec.Execute(context.Background(), "Invoice", "get", runtime.Input{ID: "abc"})
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if res.Data["total"] != 12.5 {
		t.Errorf("total = %v, want 12.5", res.Data["total"])
	}
}

func TestExecutor_GetNotFound(t *testing.T) {
	exec, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": "not_found", "message": "record not found"},
		})
	})

	_, err := exec.Execute(context.Background(), "Invoice", "get", runtime.Input{ID: "missing"})
	if !errors.Is(err, runtime.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestExecutor_Create(t *testing.T) {
	exec, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["total"] != 99.0 {
			t.Errorf("body total = %v, want 99", body["total"])
		}

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"id":   "new-id",
			"data": map[string]any{"id": "new-id", "total": 99.0, "currency": "EUR"},
		})
	})

	res, err := exec.Execute(context.Background(), "Invoice", "create", runtime.Input{
		Data: map[string]any{"total": 99.0},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if res.ID != "new-id" {
		t.Errorf("ID = %s, want new-id", res.ID)
	}
	if res.Data["currency"] != "EUR" {
		t.Errorf("currency = %v, want EUR", res.Data["currency"])
	}
}

func TestExecutor_Update(t *testing.T) {
	exec, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		if r.URL.Path != "/invoices/abc" {
			t.Errorf("path = %s, want /invoices/abc", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":   "abc",
			"data": map[string]any{"id": "abc", "total": 100.0},
		})
	})

	res, err := exec.Execute(context.Background(), "Invoice", "update", runtime.Input{
		ID:   "abc",
		Data: map[string]any{"total": 100.0},
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if res.Data["total"] != 100.0 {
		t.Errorf("total = %v, want 100", res.Data["total"])
	}
}

func TestExecutor_Delete(t *testing.T) {
	exec, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s, want DELETE", r.Method)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	res, err := exec.Execute(context.Background(), "Invoice", "delete", runtime.Input{ID: "abc"})
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if res.ID != "abc" {
		t.Errorf("ID = %s, want abc", res.ID)
	}
}

func TestExecutor_CustomOperation(t *testing.T) {
	exec, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/invoices/abc/send" {
			t.Errorf("path = %s, want /invoices/abc/send", r.URL.Path)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["recipient"] != "ada@example.com" {
			t.Errorf("recipient = %v", body["recipient"])
		}
		json.NewEncoder(w).Encode(map[string]any{"data": true})
	})

	res, err := exec.Execute(context.Background(), "Invoice", "send", runtime.Input{
		ID:   "abc",
		Data: map[string]any{"recipient": "ada@example.com"},
	})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if res.Value != true {
		t.Errorf("Value = %v, want true", res.Value)
	}
}

func TestExecutor_HiddenActionFailsFast(t *testing.T) {
	exec, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request to %s", r.URL.Path)
	})

	_, err := exec.Execute(context.Background(), "Secret", "list", runtime.Input{})
	if err == nil {
		t.Fatal("expected error for action hidden from the api channel")
	}
}

func TestExecutor_ErrorEnvelope(t *testing.T) {
	exec, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": "validation", "message": "total: field is required"},
		})
	})

	_, err := exec.Execute(context.Background(), "Invoice", "create", runtime.Input{
		Data: map[string]any{},
	})

	var rerr *RemoteError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *RemoteError, got %v", err)
	}
	if rerr.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d, want 400", rerr.StatusCode)
	}
	if rerr.Code != "validation" {
		t.Errorf("Code = %q, want validation", rerr.Code)
	}
	if rerr.Message != "total: field is required" {
		t.Errorf("Message = %q", rerr.Message)
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(&RemoteError{StatusCode: 404}) {
		t.Error("404 should report not found")
	}
	if IsNotFound(&RemoteError{StatusCode: 500}) {
		t.Error("500 should not report not found")
	}
	if IsNotFound(errors.New("plain")) {
		t.Error("plain error should not report not found")
	}
}
