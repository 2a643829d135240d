package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"tileserv/internal/source"
)

// newCatalogCmd prints the catalog a config would serve, without
// starting the server. Useful for validating a config edit.
func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the source catalog for a config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := loggerFromCmd(cmd)
			if err != nil {
				return err
			}
			cfgPath, _ := cmd.Flags().GetString("config")

			reg, err := buildRegistry(cfgPath, logger)
			if err != nil {
				return err
			}

			items := reg.Catalog()
			catalog := make(map[string]source.CatalogEntry, len(items))
			for _, item := range items {
				catalog[item.ID] = item.Entry
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(catalog)
		},
	}
	cmd.Flags().String("config", "tileserv.json", "config file path")
	return cmd
}
