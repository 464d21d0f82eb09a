// Package doctor provides the "tabkit doctor" command for checking that
// exports and enrichment jobs can run.
package doctor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/tabkit/internal/config"
	"github.com/klytics/tabkit/internal/export"
	"github.com/klytics/tabkit/internal/formats/xlsx"
	"github.com/klytics/tabkit/internal/table"
)

// Check represents a single health check result.
type Check struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "ok", "warning", "error"
	Message string `json:"message"`
}

// NewCommand creates the "doctor" command.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, provider access and the export engine",
		Long:  "Run diagnostic checks to verify tabkit is properly configured.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			checks := runChecks(ctx, cfg, &http.Client{Timeout: 3 * time.Second})

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(checks)
			}

			green := color.New(color.FgGreen).SprintFunc()
			yellow := color.New(color.FgYellow).SprintFunc()
			red := color.New(color.FgRed).SprintFunc()

			fmt.Println("tabkit doctor")
			fmt.Println("=============")
			fmt.Println()

			okCount, warnCount, errCount := 0, 0, 0
			for _, c := range checks {
				var icon string
				switch c.Status {
				case "ok":
					icon = green("✓")
					okCount++
				case "warning":
					icon = yellow("!")
					warnCount++
				case "error":
					icon = red("✗")
					errCount++
				}
				fmt.Printf("  %s %s: %s\n", icon, c.Name, c.Message)
			}

			fmt.Println()
			fmt.Printf("  %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

			if errCount > 0 {
				return fmt.Errorf("%d check(s) failed", errCount)
			}
			return nil
		},
	}
}

func runChecks(ctx context.Context, cfg *config.Config, client *http.Client) []Check {
	checks := []Check{{
		Name:    "Go Runtime",
		Status:  "ok",
		Message: fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH),
	}}

	if _, err := os.Stat(config.ConfigPath()); err == nil {
		checks = append(checks, Check{Name: "Config File", Status: "ok", Message: config.ConfigPath()})
	} else {
		checks = append(checks, Check{Name: "Config File", Status: "warning", Message: "Not found — run 'tabkit config init' (defaults are used)"})
	}

	for _, issue := range config.Validate() {
		status := issue.Severity
		if status == "info" {
			status = "ok"
		}
		checks = append(checks, Check{Name: "Config " + issue.Key, Status: status, Message: issue.Message})
	}

	if cfg.Provider == "ollama" {
		checks = append(checks, checkOllama(ctx, client, cfg.Ollama.Host))
	}

	checks = append(checks, checkCacheDir(cfg))
	checks = append(checks, checkExport(cfg))
	return checks
}

func checkOllama(ctx context.Context, client *http.Client, host string) Check {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, host+"/api/tags", nil)
	if err != nil {
		return Check{Name: "Ollama", Status: "error", Message: fmt.Sprintf("invalid ollama.host %q", host)}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Check{Name: "Ollama", Status: "error", Message: fmt.Sprintf("not reachable at %s — is Ollama running?", host)}
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Check{Name: "Ollama", Status: "warning", Message: fmt.Sprintf("%s answered HTTP %d", host, resp.StatusCode)}
	}
	return Check{Name: "Ollama", Status: "ok", Message: "Reachable at " + host}
}

func checkCacheDir(cfg *config.Config) Check {
	if cfg.Cache.Dir == "" {
		return Check{Name: "Cache Directory", Status: "ok", Message: "Not set; cache files live next to job files"}
	}
	dir := filepath.Dir(cfg.CachePath("probe"))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Check{Name: "Cache Directory", Status: "error", Message: fmt.Sprintf("cannot create %s: %v", dir, err)}
	}
	f, err := os.CreateTemp(dir, ".tabkit-probe-*")
	if err != nil {
		return Check{Name: "Cache Directory", Status: "error", Message: fmt.Sprintf("%s is not writable", dir)}
	}
	f.Close()
	os.Remove(f.Name())
	return Check{Name: "Cache Directory", Status: "ok", Message: dir}
}

// checkExport writes a one-row workbook and reads it back.
func checkExport(cfg *config.Config) Check {
	dir, err := os.MkdirTemp("", "tabkit-doctor-")
	if err != nil {
		return Check{Name: "Export Engine", Status: "error", Message: err.Error()}
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "probe.xlsx")
	src := table.FromRecords([]*table.Record{table.RecordOf("Value", "1,234")})
	opts := export.Options{Locale: cfg.Export.Locale, MaxColumnWidth: cfg.Export.MaxColumnWidth}
	if opts.Locale == "es" {
		src = table.FromRecords([]*table.Record{table.RecordOf("Value", "1.234")})
	}
	if _, err := export.File(src, path, opts); err != nil {
		return Check{Name: "Export Engine", Status: "error", Message: err.Error()}
	}

	sheet, err := xlsx.ReadFile(path, xlsx.ReadOptions{FirstRowAsHeader: true})
	if err != nil {
		return Check{Name: "Export Engine", Status: "error", Message: err.Error()}
	}
	if len(sheet.Records) != 1 {
		return Check{Name: "Export Engine", Status: "error", Message: "round trip lost the probe row"}
	}
	if v, _ := sheet.Records[0].Get("Value"); v != int64(1234) {
		return Check{Name: "Export Engine", Status: "error", Message: fmt.Sprintf("round trip read %v, want 1234", v)}
	}
	return Check{Name: "Export Engine", Status: "ok", Message: "Write and read back a workbook"}
}
