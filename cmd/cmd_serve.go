// Copyright 2025 The Breadmap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/breadmap/breadmap/config"
	"github.com/breadmap/breadmap/dataset"
	"github.com/breadmap/breadmap/kakao"
	"github.com/breadmap/breadmap/search"
	"github.com/breadmap/breadmap/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the recommendation HTTP server",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}

		store := dataset.NewStore(cfg.Output, func(texts []string) (dataset.TextIndex, bool) {
			return search.BuildIndex(texts)
		})

		n := store.Load()
		log.Printf("serve: loaded %d rows from %s", n, cfg.Output)

		var thumbs *server.ThumbFetcher

		if cfg.Thumbnails {
			if cfg.KakaoAPIKey == "" {
				log.Println("serve: BREADMAP_THUMBS set but KAKAO_API_KEY missing, thumbnails disabled")
			} else {
				client := kakao.NewClient(cfg.KakaoAPIKey, kakaoOptions(cfg)...)
				thumbs = server.NewThumbFetcher(client, cfg.ThumbConcurrency, cfg.ThumbTimeout)
			}
		}

		srv := server.NewServer(store, thumbs, cfg.RadiusMeters, cfg.Limit)

		log.Printf("serve: listening on %s (radius %.0f m, limit %d)", cfg.Addr, cfg.RadiusMeters, cfg.Limit)

		return srv.Run(cfg.Addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
