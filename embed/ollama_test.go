package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaEmbedDocuments(t *testing.T) {
	var gotReq ollamaEmbedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("path = %s, want /api/embed", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(ollamaEmbedResponse{
			Embeddings: [][]float64{{0.1, 0.2}, {0.3, 0.4}},
		})
	}))
	defer srv.Close()

	p := NewOllama(Config{Model: "nomic-embed-text", BaseURL: srv.URL, Device: DeviceCPU})
	vecs, err := p.EmbedDocuments(context.Background(), []string{"alpha", "beta"})
	if err != nil {
		t.Fatalf("EmbedDocuments: %v", err)
	}

	if len(vecs) != 2 || len(vecs[0]) != 2 {
		t.Fatalf("vecs = %v", vecs)
	}
	if vecs[1][0] != float32(0.3) {
		t.Errorf("vecs[1][0] = %f, want 0.3", vecs[1][0])
	}
	if gotReq.Model != "nomic-embed-text" {
		t.Errorf("request model = %q", gotReq.Model)
	}
	if len(gotReq.Input) != 2 || gotReq.Input[0] != "alpha" {
		t.Errorf("request input = %v", gotReq.Input)
	}
	if gotReq.Options["num_gpu"] != float64(0) {
		t.Errorf("cpu device should force num_gpu=0, got %v", gotReq.Options)
	}
}

func TestOllamaEmbedQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float64{{1, 2, 3}}})
	}))
	defer srv.Close()

	p := NewOllama(Config{Model: "m", BaseURL: srv.URL})
	vec, err := p.EmbedQuery(context.Background(), "hello")
	if err != nil {
		t.Fatalf("EmbedQuery: %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("vec = %v", vec)
	}
}

func TestOllamaServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewOllama(Config{Model: "missing", BaseURL: srv.URL})
	if _, err := p.EmbedDocuments(context.Background(), []string{"x"}); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}

func TestDeviceOptions(t *testing.T) {
	if opts := deviceOptions(DeviceAuto); opts != nil {
		t.Errorf("auto should leave server defaults, got %v", opts)
	}
	if opts := deviceOptions(DeviceCPU); opts["num_gpu"] != 0 {
		t.Errorf("cpu options = %v", opts)
	}
	if opts := deviceOptions(DeviceGPU); opts["num_gpu"] != -1 {
		t.Errorf("gpu options = %v", opts)
	}
}

func TestNewProvider(t *testing.T) {
	if _, err := NewProvider(Config{Provider: "ollama"}); err != nil {
		t.Errorf("ollama provider: %v", err)
	}
	if _, err := NewProvider(Config{}); err == nil {
		t.Error("empty provider should fail")
	}
	if _, err := NewProvider(Config{Provider: "banana"}); err == nil {
		t.Error("unknown provider should fail")
	}
}

func TestProbeDimension(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float64{{0.5, 0.5, 0.5, 0.5}}})
	}))
	defer srv.Close()

	p := NewOllama(Config{Model: "m", BaseURL: srv.URL})
	dim, err := ProbeDimension(context.Background(), p)
	if err != nil {
		t.Fatalf("ProbeDimension: %v", err)
	}
	if dim != 4 {
		t.Fatalf("dim = %d, want 4", dim)
	}
}
