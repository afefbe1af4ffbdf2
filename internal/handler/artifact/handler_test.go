package artifact

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	artifactservice "github.com/zhouzirui/polaris/backend/internal/service/artifact"
	sessionservice "github.com/zhouzirui/polaris/backend/internal/service/session"
)

func setupRouter() (*chi.Mux, string) {
	store := sessionservice.NewStore()
	record := store.Create(context.Background(), nil, nil)
	svc := artifactservice.NewService(store, artifactservice.WithRand(rand.New(rand.NewPCG(1, 2))))

	r := chi.NewRouter()
	New(svc).RegisterRoutes(r)
	return r, record.ID
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestPrototype(t *testing.T) {
	r, id := setupRouter()

	resp := post(r, "/prototype", `{"session_id":"`+id+`","choice_id":2,"context":{"summary":"CRM","features":["Login"]}}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var body artifactservice.PrototypeResult
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.ChoiceID != 2 || body.Artifact.Path != nil {
		t.Fatalf("unexpected result: %+v", body)
	}
	if !strings.HasPrefix(body.Artifact.Content, "# Protótipo - escolha 2") || !strings.Contains(body.Artifact.Content, "1. Login") {
		t.Fatalf("unexpected content: %q", body.Artifact.Content)
	}
}

func TestPrototypeUnknownSession(t *testing.T) {
	r, _ := setupRouter()

	if resp := post(r, "/prototype", `{"session_id":"missing","choice_id":1}`); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestMocks(t *testing.T) {
	r, id := setupRouter()

	resp := post(r, "/mocks", `{"session_id":"`+id+`","contract_name":"User","count":3,"context":{"example_base":{"name":"ana","age":30}}}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var body artifactservice.MockResult
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Mocks) != 3 || body.ValidCount != 3 {
		t.Fatalf("expected 3 mocks, got %+v", body)
	}
	if body.Mocks[2].Name != "User_mock_3" || body.Mocks[2].Payload["name"] != "ana_3" {
		t.Fatalf("unexpected third mock: %+v", body.Mocks[2])
	}
}

func TestMocksCountOutOfRange(t *testing.T) {
	r, id := setupRouter()

	if resp := post(r, "/mocks", `{"session_id":"`+id+`","contract_name":"User","count":500}`); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestEstimate(t *testing.T) {
	r, id := setupRouter()

	resp := post(r, "/estimate", `{"session_id":"`+id+`","features":["Login","Relatório mensal com gráficos"],"include_buffer":true}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var body artifactservice.Estimate
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.TotalHours != 32 || body.TotalHoursWithBuffer != 38 || body.TShirt != "S" {
		t.Fatalf("unexpected estimate: %+v", body)
	}
}

func TestEstimateEmptyFeatures(t *testing.T) {
	r, id := setupRouter()

	if resp := post(r, "/estimate", `{"session_id":"`+id+`","features":[]}`); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
