package doctor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/klytics/tabkit/internal/config"
)

func find(checks []Check, name string) (Check, bool) {
	for _, c := range checks {
		if c.Name == name {
			return c, true
		}
	}
	return Check{}, false
}

func TestRunChecksOllama(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TABKIT_PROVIDER", "ollama")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"models": []}`))
	}))
	defer srv.Close()

	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	cfg.Ollama.Host = srv.URL
	cfg.Cache.Dir = filepath.Join(t.TempDir(), "caches")

	checks := runChecks(context.Background(), cfg, srv.Client())

	for _, name := range []string{"Go Runtime", "Ollama", "Cache Directory", "Export Engine"} {
		c, ok := find(checks, name)
		if !ok {
			t.Errorf("missing check %q", name)
			continue
		}
		if c.Status != "ok" {
			t.Errorf("%s: status %s (%s)", name, c.Status, c.Message)
		}
	}
	if c, _ := find(checks, "Config File"); c.Status != "warning" {
		t.Errorf("missing config file should warn, got %s", c.Status)
	}
}

func TestCheckOllamaUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := checkOllama(context.Background(), http.DefaultClient, url)
	if c.Status != "error" {
		t.Errorf("status = %s, want error", c.Status)
	}
}

func TestCheckExportSpanishLocale(t *testing.T) {
	cfg := &config.Config{}
	cfg.Export.Locale = "es"
	if c := checkExport(cfg); c.Status != "ok" {
		t.Errorf("export check failed: %s", c.Message)
	}
}
