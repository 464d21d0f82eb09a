// Package completion provides shell completion generation commands.
package completion

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCommand returns the completion command.
func NewCommand(rootCmd *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completions",
		Long: `Generate shell completion scripts for tabkit.

Install instructions:
  Bash:       tabkit completion bash > /etc/bash_completion.d/tabkit
              echo 'source <(tabkit completion bash)' >> ~/.bashrc
  Zsh:        tabkit completion zsh > ~/.zsh/completions/_tabkit
  Fish:       tabkit completion fish > ~/.config/fish/completions/tabkit.fish
  PowerShell: tabkit completion powershell >> $PROFILE`,
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		Args:      cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			name := rootCmd.Name()
			switch args[0] {
			case "bash":
				fmt.Fprintf(out, "# %s bash completion\n\n", name)
				return rootCmd.GenBashCompletion(out)
			case "zsh":
				fmt.Fprintf(out, "# %s zsh completion\n\n", name)
				return rootCmd.GenZshCompletion(out)
			case "fish":
				fmt.Fprintf(out, "# %s fish completion\n\n", name)
				return rootCmd.GenFishCompletion(out, true)
			case "powershell":
				fmt.Fprintf(out, "# %s PowerShell completion\n\n", name)
				return rootCmd.GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s (supported: bash, zsh, fish, powershell)", args[0])
			}
		},
	}
}
