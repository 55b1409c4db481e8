// Copyright 2025 The Breadmap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/breadmap/breadmap/config"
	"github.com/breadmap/breadmap/geocode"
	"github.com/breadmap/breadmap/ingest"
	"github.com/breadmap/breadmap/kakao"
)

var preprocessCmd = &cobra.Command{
	Use:   "preprocess",
	Short: "Rebuild the served dataset from the raw input table",
	Long: `Reads the raw tabular input, maps its columns onto the canonical
schema, normalizes and deduplicates rows, resolves missing coordinates
through the Kakao Local API, and writes the cleaned dataset the server
loads. The dataset is rebuilt wholesale on every run.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}

		var resolver ingest.Resolver

		if !cfg.SkipGeocode {
			if cfg.KakaoAPIKey == "" {
				log.Println("preprocess: KAKAO_API_KEY missing, geocoding will resolve nothing")
			}

			client := kakao.NewClient(cfg.KakaoAPIKey, kakaoOptions(cfg)...)
			resolver = geocode.NewResolver(client,
				geocode.WithMaxInFlight(cfg.GeocodeConcurrency),
				geocode.WithTimeout(cfg.GeocodeTimeout),
			)
		}

		pipeline := ingest.New(ingest.Options{
			Input:       cfg.Input,
			Output:      cfg.Output,
			SkipGeocode: cfg.SkipGeocode,
		}, resolver)

		stats, err := pipeline.Run(cmd.Context())
		if err != nil {
			return fmt.Errorf("running pipeline: %w", err)
		}

		log.Printf("preprocess: done - %d raw, %d kept, %d geocode failures",
			stats.RawRows, stats.Kept, len(stats.Failures))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(preprocessCmd)
}
