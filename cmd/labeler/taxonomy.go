package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/steveyegge/labeler/internal/taxonomy"
	"gopkg.in/yaml.v3"
)

var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy",
	Short: "Print the active label taxonomy",
	Long: `Print the canonical labels that completions are normalized against.

With --yaml the output is a taxonomy file that --taxonomy accepts, which is
a convenient starting point for a custom list.

Examples:
  labeler taxonomy
  labeler taxonomy --yaml > labels.yaml
  labeler --taxonomy labels.yaml taxonomy`,
	Run: func(cmd *cobra.Command, args []string) {
		asYAML, _ := cmd.Flags().GetBool("yaml")

		if asYAML {
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			if err := enc.Encode(taxonomy.File{Labels: tax.Entries()}); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			_ = enc.Close()
			return
		}

		source := "built-in"
		if cfg.TaxonomyFile != "" {
			source = cfg.TaxonomyFile
		}
		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Printf("\n%s Taxonomy (%d labels, %s):\n\n", cyan("🏷"), tax.Len(), source)
		for _, entry := range tax.Entries() {
			fmt.Printf("  %s\n", entry)
		}
		fmt.Println()
	},
}

func init() {
	taxonomyCmd.Flags().Bool("yaml", false, "Print as a YAML taxonomy file")
	rootCmd.AddCommand(taxonomyCmd)
}
