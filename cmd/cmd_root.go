// Copyright 2025 The Breadmap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/breadmap/breadmap/config"
	"github.com/breadmap/breadmap/kakao"
)

type logWriter struct {
	writer io.Writer
}

func (w *logWriter) Write(bytes []byte) (int, error) {
	return fmt.Fprintf(w.writer, "%s %s", time.Now().Format("2006-01-02 15:04:05"), string(bytes))
}

func init() {
	log.SetFlags(0)
	log.SetOutput(&logWriter{writer: os.Stderr})

	// Optional: a .env next to the binary overrides nothing already set.
	_ = godotenv.Load()
}

// kakaoOptions maps the shared configuration to client options.
func kakaoOptions(cfg *config.Config) []kakao.ClientOption {
	var opts []kakao.ClientOption

	if cfg.HTTPTrace {
		opts = append(opts, kakao.WithTrace(os.Stderr))
	}

	return opts
}

var rootCmd = &cobra.Command{
	Use:   "breadmap",
	Short: "nearby-bakery recommendations and the dataset pipeline behind them",
	Long: `
breadmap serves bakery recommendations ranked by keyword relevance and
geographic proximity, and rebuilds the dataset it serves from noisy
multi-source tables, resolving missing coordinates through the Kakao
Local API.
`,
}

var Version = "dev"

func Execute(version string) {
	Version = version

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
