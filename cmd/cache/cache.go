// Package cache provides the "tabkit cache" commands for inspecting and
// editing answer caches.
package cache

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/tabkit/internal/cache"
	"github.com/klytics/tabkit/internal/config"
	"github.com/klytics/tabkit/internal/output"
)

// NewCommand returns the cache command group.
func NewCommand() *cobra.Command {
	var backend string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and edit enrichment answer caches",
		Long: `Reads and writes the answer caches used by enrichment steps. A cache file
ending in .db, .sqlite or .sqlite3 is a SQLite database; anything else is JSON.
Relative names that do not exist locally are looked up under cache.dir.

Examples:
  tabkit cache list principles.json
  tabkit cache get atc.db "Ibuprofeno"
  tabkit cache set principles.json "Ibuprofeno 600" "Ibuprofeno"`,
	}

	cmd.PersistentFlags().StringVar(&backend, "backend", "", "Cache store: json | sqlite (default: by file extension)")

	cmd.AddCommand(newListCommand(&backend))
	cmd.AddCommand(newGetCommand(&backend))
	cmd.AddCommand(newSetCommand(&backend))

	return cmd
}

func openCache(backend *string, name string) (cache.Cache, string, error) {
	path := name
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg, err := config.Load()
		if err != nil {
			return nil, "", err
		}
		path = cfg.CachePath(name)
		if *backend == "" {
			*backend = cfg.Cache.Backend
		}
	}
	c, err := cache.Open(*backend, path)
	if err != nil {
		return nil, "", err
	}
	return c, path, nil
}

func newListCommand(backend *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list <cache-file>",
		Short: "List cached entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonFlag, _ := cmd.Flags().GetBool("json")

			c, path, err := openCache(backend, args[0])
			if err != nil {
				return err
			}
			defer c.Close()

			keys := c.Keys()
			if jsonFlag {
				entries := make(map[string]string, len(keys))
				for _, k := range keys {
					entries[k], _ = c.Get(k)
				}
				return output.JSON(os.Stdout, entries)
			}

			color.New(color.Bold).Printf("%s", path)
			fmt.Printf(" (%s entries)\n", humanize.Comma(int64(len(keys))))
			dim := color.New(color.FgHiBlack)
			for _, k := range keys {
				v, _ := c.Get(k)
				fmt.Printf("  %s ", k)
				dim.Print("→")
				fmt.Printf(" %s\n", v)
			}
			return nil
		},
	}
}

func newGetCommand(backend *string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <cache-file> <key>",
		Short: "Print the cached answer for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonFlag, _ := cmd.Flags().GetBool("json")

			c, _, err := openCache(backend, args[0])
			if err != nil {
				return err
			}
			defer c.Close()

			v, ok := c.Get(args[1])
			if jsonFlag {
				return json.NewEncoder(os.Stdout).Encode(map[string]any{
					"key":   args[1],
					"value": v,
					"found": ok,
				})
			}
			if !ok {
				return fmt.Errorf("%q is not cached in %s", args[1], args[0])
			}
			fmt.Println(v)
			return nil
		},
	}
}

func newSetCommand(backend *string) *cobra.Command {
	return &cobra.Command{
		Use:   "set <cache-file> <key> <value>",
		Short: "Store or correct a cached answer",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, path, err := openCache(backend, args[0])
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.Put(args[1], args[2]); err != nil {
				return err
			}
			fmt.Printf("Set %s = %s in %s\n", args[1], args[2], path)
			return nil
		},
	}
}
