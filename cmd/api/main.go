package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sngm3741/formsg-intake/api/internal/config"
	mongodoc "github.com/sngm3741/formsg-intake/api/internal/infrastructure/mongo"
	"github.com/sngm3741/formsg-intake/api/internal/server"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "formsg-intake",
	Short:         "Receive FormSG webhooks and store their answers in MongoDB",
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "optional YAML config file (environment variables take precedence)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// The listener starts only after the database answers a ping.
	client, err := mongodoc.Connect(cmd.Context(), cfg.MongoURI, cfg.Timeout)
	if err != nil {
		cfg.ServerLog.Errorf("MongoDB 接続に失敗しました: %v", err)
		return err
	}

	app, err := server.New(cfg, client)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return err
	}
	return app.Run(cmd.Context())
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
