package llm

import (
	"strings"
	"testing"
)

func TestNewProvider_Selection(t *testing.T) {
	tests := []struct {
		provider string
		wantName string
		wantNil  bool
		wantErr  bool
	}{
		{provider: "", wantNil: true},
		{provider: "openai", wantName: "openai"},
		{provider: "anthropic", wantName: "anthropic"},
		{provider: "claude", wantName: "anthropic"},
		{provider: "Ollama", wantName: "ollama"},
		{provider: "bard", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.provider, func(t *testing.T) {
			p, err := NewProvider(Config{Provider: tc.provider, APIKey: "test-key"})
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.wantNil {
				if p != nil {
					t.Fatalf("expected nil provider, got %v", p.Name())
				}
				return
			}
			if p == nil {
				t.Fatal("expected a provider")
			}
			if p.Name() != tc.wantName {
				t.Errorf("name = %q, want %q", p.Name(), tc.wantName)
			}
		})
	}
}

func TestNewEmbedder_AnthropicHasNoEmbeddings(t *testing.T) {
	e, err := NewEmbedder(Config{Provider: "anthropic", APIKey: "test-key"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e != nil {
		t.Errorf("expected nil embedder for anthropic, got %v", e.Name())
	}
}

func TestNewEmbedder_Unknown(t *testing.T) {
	_, err := NewEmbedder(Config{Provider: "bard"})
	if err == nil || !strings.Contains(err.Error(), "unknown embedding provider") {
		t.Errorf("expected unknown-provider error, got %v", err)
	}
}
