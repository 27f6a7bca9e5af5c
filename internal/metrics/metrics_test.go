package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegistry_Evicted(t *testing.T) {
	r := NewRegistry()
	r.Evicted("a")
	r.Evicted("b")

	if got := testutil.ToFloat64(r.SnippetsEvicted); got != 2 {
		t.Errorf("expected 2 evictions, got %v", got)
	}
}

func TestRegistry_Handler(t *testing.T) {
	r := NewRegistry()
	r.SnippetsWritten.Inc()
	r.SnippetReads.WithLabelValues("hit").Inc()

	rr := httptest.NewRecorder()
	r.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		"pastebin_snippets_written_total 1",
		`pastebin_snippet_reads_total{result="hit"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected metrics output to contain %q", want)
		}
	}
}

func TestNewRegistry_Independent(t *testing.T) {
	// Each registry is self-contained so tests can build many servers.
	a := NewRegistry()
	b := NewRegistry()
	a.SnippetsDeleted.Inc()

	if got := testutil.ToFloat64(b.SnippetsDeleted); got != 0 {
		t.Errorf("expected registries to be independent, got %v", got)
	}
}
