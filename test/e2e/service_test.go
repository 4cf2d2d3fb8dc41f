//go:build e2e

// Package e2e drives a running tfidfd over HTTP.
//
// Run with:
//
//	go run ./cmd/tfidfd --config configs/development.yaml &
//	go test -v -tags=e2e -timeout=120s ./test/e2e/...
package e2e

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

func baseURL() string {
	if v := os.Getenv("E2E_TFIDF_URL"); v != "" {
		return v
	}
	return "http://localhost:8080"
}

func client(t *testing.T) *http.Client {
	t.Helper()
	c := &http.Client{Timeout: 10 * time.Second}
	resp, err := c.Get(baseURL() + "/health/live")
	if err != nil {
		t.Skipf("tfidfd unavailable: %v", err)
	}
	resp.Body.Close()
	return c
}

func TestHealth(t *testing.T) {
	c := client(t)
	for _, path := range []string{"/health/live", "/health/ready"} {
		resp, err := c.Get(baseURL() + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d: %s", path, resp.StatusCode, body)
		}
	}
}

// TestDocumentLifecycle adds two documents, reads their top terms and
// removes them again.
func TestDocumentLifecycle(t *testing.T) {
	c := client(t)
	unique := fmt.Sprintf("e2e%d", time.Now().UnixNano())
	ids := []string{unique + "-a", unique + "-b"}
	texts := []string{
		"the " + unique + "alpha whale swims and swims",
		"the " + unique + "beta ship sails",
	}
	for i, id := range ids {
		payload := fmt.Sprintf(`{"document_id":%q,"text":%q}`, id, texts[i])
		resp, err := c.Post(baseURL()+"/api/v1/documents", "application/json", strings.NewReader(payload))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("add %s = %d", id, resp.StatusCode)
		}
	}
	t.Cleanup(func() {
		for _, id := range ids {
			req, _ := http.NewRequest(http.MethodDelete, baseURL()+"/api/v1/documents/"+id, nil)
			if resp, err := c.Do(req); err == nil {
				resp.Body.Close()
			}
		}
	})

	resp, err := c.Get(baseURL() + "/api/v1/scores/" + ids[0] + "?top_k=1")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("top terms = %d: %s", resp.StatusCode, body)
	}
	var out struct {
		Top []struct {
			Term  string  `json:"term"`
			TFIDF float64 `json:"tf_idf"`
		} `json:"top"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Top) != 1 || out.Top[0].Term != "swims" || out.Top[0].TFIDF <= 0 {
		t.Errorf("top = %+v, want swims", out.Top)
	}

	resp, err = c.Get(baseURL() + "/api/v1/scores/" + unique + "-missing")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown document = %d, want 404", resp.StatusCode)
	}
}
