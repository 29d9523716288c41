// Package main contains foodmap
package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/campus-foodmap/foodmap/internal/config"
	"github.com/campus-foodmap/foodmap/internal/log"
	"github.com/campus-foodmap/foodmap/internal/version"
	"github.com/campus-foodmap/foodmap/pkg/cmd/foodmap"
)

func main() {
	var configFile string
	root := &cobra.Command{
		Use:          "foodmap",
		Short:        "Campus food-map web client",
		Version:      fmt.Sprintf("foodmap: %s", version.FullVersion()),
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "Specify configuration file location")
	log.SetLevel(zerolog.InfoLevel)
	ctx := context.Background()

	serve := func(cmd *cobra.Command, _ []string) error {
		defer log.Ctx(ctx).Info().Msg("cmd/foodmap: exiting")
		opts, err := config.Load(configFile)
		if err != nil {
			return err
		}
		return foodmap.Run(cmd.Context(), opts)
	}
	root.RunE = serve
	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serve the web client (default)",
		Args:  cobra.NoArgs,
		RunE:  serve,
	})
	root.AddCommand(&cobra.Command{
		Use:   "check [endpoint]",
		Short: "Test the connection to the food-map API",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := config.Load(configFile)
			if err != nil {
				return err
			}
			var endpoint string
			if len(args) > 0 {
				endpoint = args[0]
			}
			return foodmap.Check(cmd.Context(), opts, endpoint, cmd.OutOrStdout())
		},
	})

	if err := root.ExecuteContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("cmd/foodmap")
	}
}
