package classify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNoopDefaults(t *testing.T) {
	n := Noop{}
	p, err := n.ClassifyPurpose(context.Background(), "支付材料款", "原材料", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != DefaultPurpose {
		t.Fatalf("expected %q, got %q", DefaultPurpose, p)
	}
	cf, err := n.ClassifyCashFlow(context.Background(), "支付材料款", "原材料", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cf != DefaultCashFlow {
		t.Fatalf("expected %q, got %q", DefaultCashFlow, cf)
	}
}

func TestNewLLMRequiresAPIKey(t *testing.T) {
	_, err := NewLLM(LLMConfig{})
	if err == nil {
		t.Fatalf("expected error for missing api key")
	}
}

func TestNewLLMUnknownProvider(t *testing.T) {
	_, err := NewLLM(LLMConfig{APIKey: "k", Provider: "mystery"})
	if err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func stubServer(t *testing.T, reply string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) != 1 {
			t.Errorf("expected 1 message, got %d", len(req.Messages))
		}
		w.WriteHeader(status)
		if status == http.StatusOK {
			resp := chatResponse{}
			resp.Choices = append(resp.Choices, struct {
				Message chatMessage `json:"message"`
			}{Message: chatMessage{Role: "assistant", Content: reply}})
			_ = json.NewEncoder(w).Encode(resp)
		}
	}))
}

func TestLLMClassifyPurpose(t *testing.T) {
	srv := stubServer(t, "  材料采购\n", http.StatusOK)
	defer srv.Close()

	c, err := NewLLM(LLMConfig{APIKey: "test-key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := c.ClassifyPurpose(context.Background(), "支付材料款", "原材料", "【客商：某公司】")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "材料采购" {
		t.Fatalf("expected trimmed label, got %q", got)
	}
}

func TestLLMClassifyCashFlow(t *testing.T) {
	srv := stubServer(t, "购买商品、接受劳务支付的现金", http.StatusOK)
	defer srv.Close()

	c, err := NewLLM(LLMConfig{APIKey: "test-key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := c.ClassifyCashFlow(context.Background(), "支付材料款", "原材料", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "购买商品、接受劳务支付的现金" {
		t.Fatalf("unexpected label %q", got)
	}
}

func TestLLMFallbackOnServerError(t *testing.T) {
	srv := stubServer(t, "", http.StatusInternalServerError)
	defer srv.Close()

	c, err := NewLLM(LLMConfig{APIKey: "test-key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := c.ClassifyPurpose(context.Background(), "x", "y", "")
	if err == nil {
		t.Fatalf("expected error from upstream failure")
	}
	if got != DefaultPurpose {
		t.Fatalf("expected fallback %q, got %q", DefaultPurpose, got)
	}
}
