package generation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cluo0901/roomgpt/internal/config"
	"go.uber.org/zap"
)

func testConfig(serviceURL string) config.Config {
	return config.Config{
		Control: config.ControlConfig{
			ServiceURL:     serviceURL,
			Endpoint:       "/generate",
			Token:          "secret-token",
			NegativePrompt: "low quality",
			Strength:       0.35,
			GuidanceScale:  6,
			InferenceSteps: 30,
			CannyScale:     0.75,
			CannyLow:       100,
			CannyHigh:      200,
		},
	}
}

func TestGenerate(t *testing.T) {
	var gotAuth string
	var gotRequest generateRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotRequest); err != nil {
			t.Errorf("decode request: %v", err)
		}

		seed := int64(1234)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"image":               "data:image/png;base64,xyz",
			"seed":                seed,
			"strength":            0.35,
			"guidance_scale":      6.0,
			"num_inference_steps": 30,
			"inference_seconds":   4.2,
		})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), zap.NewNop())
	result, err := client.Generate(context.Background(), Input{
		ImageURL: "https://example.com/room.jpg",
		Room:     "Office",
		Theme:    "Minimalist",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if gotAuth != "Bearer secret-token" {
		t.Fatalf("unexpected auth header: %s", gotAuth)
	}
	if gotRequest.ImageURL != "https://example.com/room.jpg" {
		t.Fatalf("unexpected image url: %s", gotRequest.ImageURL)
	}
	if len(gotRequest.Controlnets) != 1 || gotRequest.Controlnets[0].Type != "canny" {
		t.Fatalf("unexpected controlnets: %+v", gotRequest.Controlnets)
	}
	if gotRequest.PromptSections.Full == "" {
		t.Fatalf("expected prompt sections in request")
	}

	if result.Generated != "data:image/png;base64,xyz" {
		t.Fatalf("unexpected generated image: %s", result.Generated)
	}
	if result.Original != "https://example.com/room.jpg" {
		t.Fatalf("unexpected original: %s", result.Original)
	}
	if result.Seed == nil || *result.Seed != 1234 {
		t.Fatalf("unexpected seed: %v", result.Seed)
	}
}

func TestGenerateUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "pipeline busy"})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), zap.NewNop())
	_, err := client.Generate(context.Background(), Input{ImageURL: "https://example.com/a.jpg"})

	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.Status != http.StatusServiceUnavailable || upstream.Message != "pipeline busy" {
		t.Fatalf("unexpected upstream error: %+v", upstream)
	}
}

func TestGenerateMissingImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"seed": 1})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), zap.NewNop())
	if _, err := client.Generate(context.Background(), Input{ImageURL: "https://example.com/a.jpg"}); !errors.Is(err, ErrNoImage) {
		t.Fatalf("expected ErrNoImage, got %v", err)
	}
}

func TestGenerateNotConfigured(t *testing.T) {
	client := NewClient(config.Config{}, zap.NewNop())
	if _, err := client.Generate(context.Background(), Input{ImageURL: "https://example.com/a.jpg"}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
