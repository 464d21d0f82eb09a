package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klytics/tabkit/internal/export"
	"github.com/klytics/tabkit/internal/watch"
)

func TestRunKeepsOrderAndErrors(t *testing.T) {
	files := []string{"a.json", "bad.json", "c.json"}
	var active, peak int32
	h := func(ctx context.Context, path string) (string, error) {
		n := atomic.AddInt32(&active, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		if strings.HasPrefix(path, "bad") {
			return "", errors.New("boom")
		}
		return strings.TrimSuffix(path, ".json") + ".xlsx", nil
	}

	var reported int32
	results := run(context.Background(), files, 2, h, func(int, resultItem) { atomic.AddInt32(&reported, 1) })

	if len(results) != 3 || reported != 3 {
		t.Fatalf("got %d results, %d reports", len(results), reported)
	}
	if results[0].Output != "a.xlsx" || results[2].Output != "c.xlsx" {
		t.Errorf("order lost: %+v", results)
	}
	if results[1].Status != "error" || results[1].Error != "boom" {
		t.Errorf("bad.json: %+v", results[1])
	}
	if peak > 2 {
		t.Errorf("peak concurrency %d exceeds 2", peak)
	}
}

func TestRunExportsFiles(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "xlsx")
	for name, body := range map[string]string{
		"ventas.json": `[{"Producto": "Ibuprofeno", "Unidades": "1,200"}]`,
		"stock.csv":   "Producto,Stock\nParacetamol,40\n",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}

	files := []string{filepath.Join(dir, "stock.csv"), filepath.Join(dir, "ventas.json")}
	results := run(context.Background(), files, 0, watch.ExportHandler(out, export.Options{}, ','), nil)
	for _, r := range results {
		if r.Status != "ok" {
			t.Fatalf("%s: %s", r.File, r.Error)
		}
		if _, err := os.Stat(r.Output); err != nil {
			t.Errorf("missing output %s", r.Output)
		}
	}
	if filepath.Base(results[0].Output) != "stock.xlsx" {
		t.Errorf("output = %s", results[0].Output)
	}
}
