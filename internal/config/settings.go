package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ConfigIssue represents a validation finding.
type ConfigIssue struct {
	Key      string `json:"key"`
	Severity string `json:"severity"` // "error", "warning", "info"
	Message  string `json:"message"`
	Fix      string `json:"fix"`
}

// Wizard runs the interactive setup and saves the result.
// If reader is nil, reads from os.Stdin.
func Wizard(reader io.Reader, w io.Writer) error {
	if reader == nil {
		reader = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	scanner := bufio.NewScanner(reader)
	ask := func(prompt string) string {
		fmt.Fprint(w, prompt)
		scanner.Scan()
		return strings.TrimSpace(scanner.Text())
	}

	fmt.Fprintln(w, "tabkit setup")
	fmt.Fprintln(w, strings.Repeat("-", 48))

	fmt.Fprintln(w, "Step 1/3: Completion provider (used by 'tabkit enrich')")
	fmt.Fprintln(w, "  [1] OpenAI")
	fmt.Fprintln(w, "  [2] Anthropic")
	fmt.Fprintln(w, "  [3] Ollama (local)")
	fmt.Fprintln(w, "  [4] Skip for now")
	switch ask("  Choice: ") {
	case "1":
		viper.Set("provider", "openai")
		if key := ask("  Paste your OpenAI API key (sk-...): "); key != "" {
			viper.Set("api_keys.openai", key)
		}
	case "2":
		viper.Set("provider", "anthropic")
		if key := ask("  Paste your Anthropic API key (sk-ant-...): "); key != "" {
			viper.Set("api_keys.anthropic", key)
		}
	case "3":
		viper.Set("provider", "ollama")
		if host := ask("  Ollama host (default: http://localhost:11434): "); host != "" {
			viper.Set("ollama.host", host)
		}
	default:
		fmt.Fprintln(w, "  Skipped")
	}

	fmt.Fprintln(w, "Step 2/3: Number format")
	if locale := strings.ToLower(ask("  Separator convention, en (1,234.5) or es (1.234,5) [en]: ")); locale == "es" {
		viper.Set("export.locale", "es")
	} else {
		viper.Set("export.locale", "en")
	}

	fmt.Fprintln(w, "Step 3/3: Answer cache")
	if backend := strings.ToLower(ask("  Cache backend, json or sqlite [json]: ")); backend == "sqlite" {
		viper.Set("cache.backend", "sqlite")
	} else {
		viper.Set("cache.backend", "json")
	}

	if err := SaveConfig(); err != nil {
		return fmt.Errorf("could not save config: %w", err)
	}

	fmt.Fprintln(w, strings.Repeat("-", 48))
	fmt.Fprintf(w, "Config file: %s\n", ConfigPath())
	fmt.Fprintln(w, "Type 'tabkit config show' to see all settings.")
	return nil
}

// Validate checks config values and returns a list of issues.
func Validate() []ConfigIssue {
	var issues []ConfigIssue

	provider := viper.GetString("provider")
	switch provider {
	case "openai", "anthropic":
		envVar := strings.ToUpper(provider) + "_API_KEY"
		key := os.Getenv(envVar)
		if key == "" {
			key = viper.GetString("api_keys." + provider)
		}
		if key == "" {
			issues = append(issues, ConfigIssue{
				Key:      "provider",
				Severity: "error",
				Message:  fmt.Sprintf("provider is %q but %s is not set", provider, envVar),
				Fix:      fmt.Sprintf("export %s=...\nOr: tabkit config set api_keys.%s <key>", envVar, provider),
			})
		} else {
			issues = append(issues, ConfigIssue{
				Key:      "provider",
				Severity: "info",
				Message:  fmt.Sprintf("%s API key configured", provider),
			})
		}
	case "ollama":
		issues = append(issues, ConfigIssue{
			Key:      "provider",
			Severity: "info",
			Message:  "Ollama configured (no API key needed)",
		})
	default:
		issues = append(issues, ConfigIssue{
			Key:      "provider",
			Severity: "error",
			Message:  fmt.Sprintf("unknown provider %q", provider),
			Fix:      "tabkit config set provider openai|anthropic|ollama",
		})
	}

	switch locale := strings.ToLower(viper.GetString("export.locale")); locale {
	case "", "en", "es":
	default:
		issues = append(issues, ConfigIssue{
			Key:      "export.locale",
			Severity: "error",
			Message:  fmt.Sprintf("unsupported locale %q", locale),
			Fix:      "tabkit config set export.locale en|es",
		})
	}

	if w := viper.GetInt("export.max_column_width"); w < 0 || w > 255 {
		issues = append(issues, ConfigIssue{
			Key:      "export.max_column_width",
			Severity: "warning",
			Message:  fmt.Sprintf("max_column_width %d is outside 0-255; widths are always capped at 255", w),
			Fix:      "tabkit config set export.max_column_width 60",
		})
	}

	switch backend := strings.ToLower(viper.GetString("cache.backend")); backend {
	case "", "json", "sqlite":
	default:
		issues = append(issues, ConfigIssue{
			Key:      "cache.backend",
			Severity: "error",
			Message:  fmt.Sprintf("unknown cache backend %q", backend),
			Fix:      "tabkit config set cache.backend json|sqlite",
		})
	}

	if d := viper.GetString("enrich.delay"); d != "" {
		if _, err := time.ParseDuration(d); err != nil {
			issues = append(issues, ConfigIssue{
				Key:      "enrich.delay",
				Severity: "error",
				Message:  fmt.Sprintf("enrich.delay %q is not a duration", d),
				Fix:      "tabkit config set enrich.delay 1s",
			})
		}
	}

	return issues
}

// ToEnv returns all config values as a map of env var name -> value.
func ToEnv() map[string]string {
	env := make(map[string]string)

	if p := viper.GetString("provider"); p != "" {
		env["TABKIT_PROVIDER"] = p
	}
	if m := viper.GetString("model"); m != "" {
		env["TABKIT_MODEL"] = m
	}
	if k := viper.GetString("api_keys.anthropic"); k != "" {
		env["ANTHROPIC_API_KEY"] = k
	}
	if k := viper.GetString("api_keys.openai"); k != "" {
		env["OPENAI_API_KEY"] = k
	}
	if h := viper.GetString("ollama.host"); h != "" {
		env["OLLAMA_HOST"] = h
	}
	if l := viper.GetString("export.locale"); l != "" {
		env["TABKIT_EXPORT_LOCALE"] = l
	}
	if b := viper.GetString("cache.backend"); b != "" {
		env["TABKIT_CACHE_BACKEND"] = b
	}
	if d := viper.GetString("cache.dir"); d != "" {
		env["TABKIT_CACHE_DIR"] = d
	}

	return env
}

// Keys lists the settable configuration keys.
var Keys = []string{
	"provider", "model", "api_keys.openai", "api_keys.anthropic", "ollama.host",
	"export.locale", "export.max_column_width", "export.strict_markup",
	"cache.backend", "cache.dir", "enrich.delay", "output.color",
}

// Set sets a config value and saves to disk.
func Set(key, value string) error {
	if !slices.Contains(Keys, key) {
		return fmt.Errorf("unknown config key %q — valid keys: %s", key, strings.Join(Keys, ", "))
	}
	viper.Set(key, value)
	return SaveConfig()
}

// Get retrieves a config value.
func Get(key string) string {
	return viper.GetString(key)
}

// ResetConfig deletes the config file and restores defaults.
func ResetConfig() error {
	path := ConfigPath()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("could not delete config: %w", err)
	}
	for _, key := range Keys {
		viper.Set(key, nil)
	}
	setDefaults()
	return nil
}

// SaveConfig writes the current config to ~/.tabkit/config.yaml.
func SaveConfig() error {
	dir := configDir()
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}

	path := filepath.Join(dir, "config.yaml")
	if err := viper.WriteConfigAs(path); err != nil {
		return fmt.Errorf("could not write config: %w", err)
	}

	// API keys live here.
	os.Chmod(path, 0600)
	return nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// ShowConfig returns a formatted string of the current configuration.
func ShowConfig() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Config: %s\n\n", ConfigPath()))

	sb.WriteString("Completion\n")
	sb.WriteString(fmt.Sprintf("  provider:  %s\n", viper.GetString("provider")))
	model := viper.GetString("model")
	if model == "" {
		model = "(provider default)"
	}
	sb.WriteString(fmt.Sprintf("  model:     %s\n", model))
	for _, p := range []string{"openai", "anthropic"} {
		if k := viper.GetString("api_keys." + p); k != "" {
			sb.WriteString(fmt.Sprintf("  %s key: %s****\n", p, k[:min(6, len(k))]))
		}
	}
	if viper.GetString("provider") == "ollama" {
		sb.WriteString(fmt.Sprintf("  host:      %s\n", viper.GetString("ollama.host")))
	}
	sb.WriteString("\n")

	sb.WriteString("Export\n")
	sb.WriteString(fmt.Sprintf("  locale:    %s\n", viper.GetString("export.locale")))
	width := "unlimited"
	if w := viper.GetInt("export.max_column_width"); w > 0 {
		width = fmt.Sprint(w)
	}
	sb.WriteString(fmt.Sprintf("  max width: %s\n", width))
	sb.WriteString(fmt.Sprintf("  strict:    %t\n", viper.GetBool("export.strict_markup")))
	sb.WriteString("\n")

	sb.WriteString("Enrich\n")
	backend := viper.GetString("cache.backend")
	if backend == "" {
		backend = "by extension"
	}
	sb.WriteString(fmt.Sprintf("  cache:     %s\n", backend))
	if d := viper.GetString("cache.dir"); d != "" {
		sb.WriteString(fmt.Sprintf("  cache dir: %s\n", d))
	}
	sb.WriteString(fmt.Sprintf("  delay:     %s\n", viper.GetString("enrich.delay")))

	return sb.String()
}
