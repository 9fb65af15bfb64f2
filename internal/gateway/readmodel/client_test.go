package readmodel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/billing/internal/domain"
)

func TestClient_GetEntity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/query/get_entity" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode query body: %v", err)
		}
		if body["name"] != "order" || body["id"] != "order-1" {
			t.Errorf("unexpected query body %#v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":{"id":"order-1","cart_id":"cart-1"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	raw, err := client.GetEntity(context.Background(), "order", "order-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	var order domain.Order
	if err := json.Unmarshal(raw, &order); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if order.CartID != "cart-1" {
		t.Errorf("unexpected order %+v", order)
	}
}

func TestClient_GetEntities(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query/get_entities" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body struct {
			Name string   `json:"name"`
			IDs  []string `json:"ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode query body: %v", err)
		}
		if body.Name != "product" || len(body.IDs) != 2 {
			t.Errorf("unexpected query body %+v", body)
		}
		_, _ = w.Write([]byte(`{"result":[{"id":"p1","price":100},{"id":"p2","price":200}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	raw, err := client.GetEntities(context.Background(), "product", []string{"p1", "p2"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	var products []domain.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(products) != 2 {
		t.Errorf("expected two products, got %d", len(products))
	}
}

// Ошибка из конверта read-model приходит к вызывающему с суффиксом источника.
func TestClient_ErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"could not find order"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.GetEntity(context.Background(), "order", "missing")
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "could not find order (from read-model)" {
		t.Errorf("unexpected error %q", err.Error())
	}
	if !domain.IsUpstream(err) {
		t.Error("expected upstream error")
	}
}

func TestClient_Non200Status(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.GetEntity(context.Background(), "order", "order-1")
	if !domain.IsUpstream(err) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(server.URL, 20*time.Millisecond)
	_, err := client.GetEntity(context.Background(), "order", "order-1")
	if !domain.IsUpstream(err) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestClient_TransportFailure(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", time.Second)
	_, err := client.GetEntity(context.Background(), "order", "order-1")
	if !domain.IsUpstream(err) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestClient_Ping(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer healthy.Close()

	if err := NewClient(healthy.URL, time.Second).Ping(context.Background()); err != nil {
		t.Errorf("expected healthy ping, got %v", err)
	}

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer broken.Close()

	if err := NewClient(broken.URL, time.Second).Ping(context.Background()); err == nil {
		t.Error("expected ping failure")
	}
}
