package commands

import (
	"github.com/dbnomics-fetchers/paj-fetcher/converter"
	"github.com/spf13/cobra"
)

func convertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "convert <source-dir> <target-dir>",
		Short: "Convert downloaded workbooks into the JSON layout",
		Long: `Convert reads the workbooks under <source-dir> and writes
provider.json, category_tree.json and one directory per dataset
(dataset.json plus series.jsonl) into <target-dir>. Both directories
must already exist.

Conversion is idempotent: files are written atomically and reruns over
the same source produce the same target.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(); err != nil {
				return err
			}
			return converter.Run(args[0], args[1])
		},
	}
}
