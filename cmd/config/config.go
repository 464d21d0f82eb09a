// Package config provides the "tabkit config" commands.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/tabkit/internal/config"
	"github.com/klytics/tabkit/internal/output"
)

// NewCommand returns the config command group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage tabkit configuration",
		Long: `Interactive setup, view, and modify tabkit settings stored in
~/.tabkit/config.yaml. Every key can also be set through a TABKIT_* environment
variable, e.g. TABKIT_EXPORT_LOCALE=es.

Keys:
  ` + strings.Join(config.Keys, "\n  "),
	}

	cmd.AddCommand(
		newInitCommand(),
		loaded(&cobra.Command{Use: "show", Short: "Show current configuration"}, runShow),
		loaded(&cobra.Command{Use: "get <key>", Short: "Get a configuration value", Args: cobra.ExactArgs(1)}, runGet),
		loaded(&cobra.Command{Use: "set <key> <value>", Short: "Set a configuration value", Args: cobra.ExactArgs(2)}, runSet),
		loaded(&cobra.Command{Use: "validate", Short: "Validate current configuration"}, runValidate),
		loaded(&cobra.Command{Use: "env", Short: "Print configuration as shell exports"}, runEnv),
		&cobra.Command{
			Use:   "reset",
			Short: "Delete the config file and restore defaults",
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := config.ResetConfig(); err != nil {
					return err
				}
				color.New(color.FgGreen).Println("Configuration reset to defaults")
				return nil
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Show config file path",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Println(config.ConfigPath())
			},
		},
	)

	return cmd
}

// loaded attaches run to cmd after loading the config file, so every
// subcommand sees the same file and environment overrides.
func loaded(cmd *cobra.Command, run func(cmd *cobra.Command, args []string, jsonOut bool) error) *cobra.Command {
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if _, err := config.Load(); err != nil {
			return err
		}
		jsonOut, _ := cmd.Flags().GetBool("json")
		return run(cmd, args, jsonOut)
	}
	return cmd
}

func newInitCommand() *cobra.Command {
	var noInteractive bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactive setup wizard",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(); err != nil {
				return err
			}
			if !noInteractive {
				return config.Wizard(nil, nil)
			}
			if err := config.SaveConfig(); err != nil {
				return err
			}
			fmt.Printf("Wrote defaults to %s\n", config.ConfigPath())
			return nil
		},
	}
	cmd.Flags().BoolVar(&noInteractive, "no-interactive", false, "Skip prompts, use defaults")
	return cmd
}

func runShow(cmd *cobra.Command, args []string, jsonOut bool) error {
	if jsonOut {
		values := make(map[string]string, len(config.Keys))
		for _, k := range config.Keys {
			if strings.HasPrefix(k, "api_keys.") {
				continue
			}
			values[k] = config.Get(k)
		}
		return output.JSON(os.Stdout, values)
	}
	fmt.Print(config.ShowConfig())
	return nil
}

func runGet(cmd *cobra.Command, args []string, jsonOut bool) error {
	val := config.Get(args[0])
	if jsonOut {
		return output.JSON(os.Stdout, map[string]string{args[0]: val})
	}
	if val == "" {
		val = "(not set)"
	}
	fmt.Printf("%s: %s\n", args[0], val)
	return nil
}

func runSet(cmd *cobra.Command, args []string, jsonOut bool) error {
	if err := config.Set(args[0], args[1]); err != nil {
		return err
	}
	shown := args[1]
	if strings.HasPrefix(args[0], "api_keys.") {
		shown = "****"
	}
	fmt.Printf("Set %s = %s\n", args[0], shown)
	return nil
}

func runValidate(cmd *cobra.Command, args []string, jsonOut bool) error {
	issues := config.Validate()
	if jsonOut {
		return output.JSON(os.Stdout, issues)
	}

	styles := map[string]*color.Color{
		"error":   color.New(color.FgRed),
		"warning": color.New(color.FgYellow),
		"info":    color.New(color.FgGreen),
	}
	counts := map[string]int{}
	for _, issue := range issues {
		counts[issue.Severity]++
		styles[issue.Severity].Printf("  %-7s %s\n", issue.Severity, issue.Message)
		if issue.Fix != "" {
			for _, line := range strings.Split(issue.Fix, "\n") {
				fmt.Printf("          fix: %s\n", line)
			}
		}
	}

	if counts["error"] > 0 {
		return fmt.Errorf("configuration has %d error(s), %d warning(s)", counts["error"], counts["warning"])
	}
	if counts["warning"] == 0 {
		styles["info"].Println("Configuration is valid")
	}
	return nil
}

func runEnv(cmd *cobra.Command, args []string, jsonOut bool) error {
	env := config.ToEnv()
	if jsonOut {
		return output.JSON(os.Stdout, env)
	}

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("export %s=%q\n", k, env[k])
	}
	return nil
}
