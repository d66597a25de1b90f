package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"asset-pipeline/core/asset"
	"asset-pipeline/core/config"
	"asset-pipeline/core/logger"
	"asset-pipeline/core/meta"
	"asset-pipeline/core/source"

	"github.com/spf13/cobra"
)

// inspectCmd prints the persisted import metadata of a source path.
var inspectCmd = &cobra.Command{
	Use:   "inspect <path>",
	Short: "Print the import metadata of an asset",
	Long: `Reads the metadata sidecar of the given asset path and prints it:
content fingerprint, produced assets with their IDs and dependencies,
and any derived import artifacts.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		logg, err := logger.New(&logger.Config{Level: cfg.Log.Level, Format: "console"})
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()

		fsio, err := source.NewFileIO(cfg.Assets.Root)
		if err != nil {
			return err
		}
		sources := source.NewRegistry()
		sources.Add("default", fsio)

		p := asset.ParsePath(args[0])
		record, err := meta.NewStore(sources, logg).Get(context.Background(), p)
		if err != nil {
			return fmt.Errorf("no metadata for %q: %w", p, err)
		}

		out, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, string(out))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(inspectCmd)
}
