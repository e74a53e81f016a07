package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/artpar/manifold/adapters/memory"
	"github.com/artpar/manifold/adapters/metrics"
	"github.com/artpar/manifold/core/catalog"
	"github.com/artpar/manifold/core/schema"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()

	c := catalog.New()
	entities := []schema.Entity{
		{
			Name:        "Invoice",
			Description: "A billable invoice",
			Fields: []schema.Field{
				{Name: "total", Kind: schema.FieldKindDecimal, Required: true},
				{Name: "currency", Kind: schema.FieldKindText, Default: "EUR"},
				{Name: "paid", Kind: schema.FieldKindBoolean},
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
			Name: "Category",
			Fields: []schema.Field{
				{Name: "name", Kind: schema.FieldKindText, Required: true},
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

// newTestServer boots the channel against a memory executor and returns
// the base URL of a test server in front of it.
func newTestServer(t *testing.T, m *metrics.Collector) string {
	t.Helper()

	cat := testCatalog(t)
	exec := memory.NewExecutor(cat)
	exec.Handle("Invoice", "send", func(ctx context.Context, record, params map[string]any) (any, error) {
		record["paid"] = true
		return true, nil
	})
	cat.BindAll(exec)

	ch, err := New(Config{
		Catalog: cat,
		Logger:  zerolog.Nop(),
		Metrics: m,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	srv := httptest.NewServer(ch.Handler())
	t.Cleanup(srv.Close)
	return srv.URL
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	if resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil && err != io.EOF {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp, decoded
}

func TestCRUDFlow(t *testing.T) {
	base := newTestServer(t, nil)

	resp, body := doJSON(t, http.MethodPost, base+"/invoices", map[string]any{"total": 120.5})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201 (body %v)", resp.StatusCode, body)
	}
	id, _ := body["id"].(string)
	if id == "" {
		t.Fatal("create response missing id")
	}
	data := body["data"].(map[string]any)
	if data["currency"] != "EUR" {
		t.Errorf("currency = %v, want default EUR", data["currency"])
	}

	resp, body = doJSON(t, http.MethodGet, base+"/invoices/"+id, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d, want 200", resp.StatusCode)
	}
	if body["data"].(map[string]any)["total"] != 120.5 {
		t.Errorf("total = %v, want 120.5", body["data"].(map[string]any)["total"])
	}

	resp, body = doJSON(t, http.MethodPut, base+"/invoices/"+id, map[string]any{"total": 99.0})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d, want 200", resp.StatusCode)
	}
	if body["data"].(map[string]any)["total"] != 99.0 {
		t.Errorf("updated total = %v, want 99", body["data"].(map[string]any)["total"])
	}

	resp, body = doJSON(t, http.MethodGet, base+"/invoices", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d, want 200", resp.StatusCode)
	}
	meta := body["meta"].(map[string]any)
	if meta["total"] != 1.0 {
		t.Errorf("meta.total = %v, want 1", meta["total"])
	}

	resp, _ = doJSON(t, http.MethodDelete, base+"/invoices/"+id, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", resp.StatusCode)
	}

	resp, body = doJSON(t, http.MethodGet, base+"/invoices/"+id, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete = %d, want 404", resp.StatusCode)
	}
	errBody := body["error"].(map[string]any)
	if errBody["code"] != "not_found" {
		t.Errorf("error code = %v, want not_found", errBody["code"])
	}
}

func TestListEnvelope(t *testing.T) {
	base := newTestServer(t, nil)

	// An empty collection must serialize as [], not null.
	resp, err := http.Get(base + "/invoices")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(raw), `"data":[]`) {
		t.Errorf("empty list body = %s, want data:[]", raw)
	}

	for i := 0; i < 3; i++ {
		doJSON(t, http.MethodPost, base+"/invoices", map[string]any{"total": float64(i + 1)})
	}

	respObj, body := doJSON(t, http.MethodGet, base+"/invoices?limit=2&offset=1&orderBy=total", nil)
	if respObj.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d, want 200", respObj.StatusCode)
	}
	items := body["data"].([]any)
	if len(items) != 2 {
		t.Fatalf("len(data) = %d, want 2", len(items))
	}
	if items[0].(map[string]any)["total"] != 2.0 {
		t.Errorf("first item total = %v, want 2", items[0].(map[string]any)["total"])
	}
	meta := body["meta"].(map[string]any)
	if meta["total"] != 3.0 || meta["limit"] != 2.0 || meta["offset"] != 1.0 {
		t.Errorf("meta = %v, want total 3 limit 2 offset 1", meta)
	}
}

func TestListRejectsBadPaging(t *testing.T) {
	base := newTestServer(t, nil)

	resp, body := doJSON(t, http.MethodGet, base+"/invoices?limit=lots", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if body["error"].(map[string]any)["code"] != "validation" {
		t.Errorf("error code = %v, want validation", body["error"].(map[string]any)["code"])
	}
}

func TestCreateValidation(t *testing.T) {
	base := newTestServer(t, nil)

	resp, body := doJSON(t, http.MethodPost, base+"/invoices", map[string]any{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	errBody := body["error"].(map[string]any)
	if errBody["code"] != "validation" {
		t.Errorf("error code = %v, want validation", errBody["code"])
	}
	fields := errBody["fields"].([]any)
	if len(fields) == 0 {
		t.Fatal("expected field errors in envelope")
	}
	if fields[0].(map[string]any)["field"] != "total" {
		t.Errorf("field = %v, want total", fields[0].(map[string]any)["field"])
	}
}

func TestInvalidJSONBody(t *testing.T) {
	base := newTestServer(t, nil)

	resp, err := http.Post(base+"/invoices", "application/json", strings.NewReader("{nope"))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestMissingBody(t *testing.T) {
	base := newTestServer(t, nil)

	resp, body := doJSON(t, http.MethodPost, base+"/invoices", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 (body %v)", resp.StatusCode, body)
	}
}

func TestCustomOperation(t *testing.T) {
	base := newTestServer(t, nil)

	_, created := doJSON(t, http.MethodPost, base+"/invoices", map[string]any{"total": 10.0})
	id := created["id"].(string)

	resp, body := doJSON(t, http.MethodPost, base+"/invoices/"+id+"/send",
		map[string]any{"recipient": "ada@example.com"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("send status = %d, want 200 (body %v)", resp.StatusCode, body)
	}
	if body["data"] != true {
		t.Errorf("data = %v, want true", body["data"])
	}

	// The handler marked the invoice paid.
	_, after := doJSON(t, http.MethodGet, base+"/invoices/"+id, nil)
	if after["data"].(map[string]any)["paid"] != true {
		t.Errorf("paid = %v, want true", after["data"].(map[string]any)["paid"])
	}
}

func TestCustomOperationMissingParam(t *testing.T) {
	base := newTestServer(t, nil)

	_, created := doJSON(t, http.MethodPost, base+"/invoices", map[string]any{"total": 10.0})
	id := created["id"].(string)

	resp, _ := doJSON(t, http.MethodPost, base+"/invoices/"+id+"/send", map[string]any{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestPolicyHidesEntity(t *testing.T) {
	base := newTestServer(t, nil)

	resp, err := http.Get(base + "/secrets")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET /secrets = %d, want 404", resp.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	base := newTestServer(t, nil)

	req, _ := http.NewRequest(http.MethodPatch, base+"/invoices/some-id", strings.NewReader("{}"))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PATCH failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("PATCH = %d, want 405", resp.StatusCode)
	}
}

func TestSchemaEndpoints(t *testing.T) {
	base := newTestServer(t, nil)

	_, body := doJSON(t, http.MethodGet, base+"/_schema", nil)
	if body["count"] != 3.0 {
		t.Errorf("count = %v, want 3", body["count"])
	}

	resp, entity := doJSON(t, http.MethodGet, base+"/_schema/Invoice", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("schema get = %d, want 200", resp.StatusCode)
	}
	if entity["resource"] != "invoices" {
		t.Errorf("resource = %v, want invoices", entity["resource"])
	}
	fields := entity["fields"].([]any)
	if len(fields) != 3 {
		t.Errorf("len(fields) = %d, want 3 declared fields", len(fields))
	}
	access := entity["access"].(map[string]any)
	apiActions := access["api"].(map[string]any)["actions"].([]any)
	if len(apiActions) != 6 {
		t.Errorf("api actions = %v, want 6", apiActions)
	}
	routes := entity["routes"].([]any)
	if len(routes) != 6 {
		t.Errorf("len(routes) = %d, want 6", len(routes))
	}

	resp, _ = doJSON(t, http.MethodGet, base+"/_schema/Ghost", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown entity schema = %d, want 404", resp.StatusCode)
	}
}

func TestOpenAPIEndpoint(t *testing.T) {
	base := newTestServer(t, nil)

	resp, body := doJSON(t, http.MethodGet, base+"/_openapi.json", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["openapi"] != "3.0.3" {
		t.Errorf("openapi = %v, want 3.0.3", body["openapi"])
	}

	servers := body["servers"].([]any)
	if got := servers[0].(map[string]any)["url"]; got != base {
		t.Errorf("server url = %v, want %v", got, base)
	}

	paths := body["paths"].(map[string]any)
	if _, ok := paths["/invoices"]; !ok {
		t.Error("paths missing /invoices")
	}
	if _, ok := paths["/secrets"]; ok {
		t.Error("hidden entity leaked into the document")
	}
}

func TestHealthz(t *testing.T) {
	base := newTestServer(t, nil)

	_, body := doJSON(t, http.MethodGet, base+"/healthz", nil)
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	if body["entities"] != 3.0 {
		t.Errorf("entities = %v, want 3", body["entities"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	base := newTestServer(t, m)

	// Generate one instrumented request first.
	doJSON(t, http.MethodGet, base+"/invoices", nil)

	resp, err := http.Get(base + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	raw, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(raw), "manifold_requests_total") {
		t.Error("exposition missing manifold_requests_total")
	}
	if !strings.Contains(string(raw), "manifold_actions_total") {
		t.Error("exposition missing manifold_actions_total")
	}
}

func TestStartStop(t *testing.T) {
	cat := testCatalog(t)
	cat.BindAll(memory.NewExecutor(cat))

	ch, err := New(Config{
		Addr:    "127.0.0.1:0",
		Catalog: cat,
		Logger:  zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx := context.Background()
	if err := ch.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	resp, err := http.Get(fmt.Sprintf("http://%s/healthz", ch.Addr()))
	if err != nil {
		t.Fatalf("healthz after Start failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz = %d, want 200", resp.StatusCode)
	}

	if err := ch.Stop(ctx); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}
