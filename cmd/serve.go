package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/automateda/internal/dataset"
	"github.com/KaramelBytes/automateda/internal/server"
)

var (
	serveHost        string
	servePort        int
	serveExamplesDir string
	serveCORS        bool
	serveNoMetrics   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web UI and JSON API",
	Long: `Start the AutomatEDA server. The browser UI lets you upload a dataset or pick a
bundled example, choose a prediction target, and view the ranking chart. The
same operations are available under /api/v1, with Prometheus metrics at /metrics.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conf := effectiveConfig()
		sc := server.DefaultConfig()
		sc.Host = conf.Host
		sc.Port = conf.Port
		sc.ExamplesDir = conf.ExamplesDir
		sc.MaxUploadBytes = int64(conf.MaxUploadMB) << 20
		sc.PreviewRows = conf.PreviewRows
		sc.Seed = conf.Seed
		sc.Neighbors = conf.Neighbors
		sc.EnableMetrics = conf.EnableMetrics
		sc.EnableCORS = conf.EnableCORS

		f := cmd.Flags()
		if f.Changed("host") {
			sc.Host = serveHost
		}
		if f.Changed("port") {
			sc.Port = servePort
		}
		if f.Changed("examples-dir") {
			sc.ExamplesDir = serveExamplesDir
		}
		if f.Changed("cors") {
			sc.EnableCORS = serveCORS
		}
		if serveNoMetrics {
			sc.EnableMetrics = false
		}
		topt, err := tableOptions("", 0, nil)
		if err != nil {
			return err
		}
		sc.TableOptions = topt

		store, err := dataset.NewStore(conf.CacheSize)
		if err != nil {
			return err
		}
		srv, err := server.New(sc, store, nil)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		fmt.Printf("✓ AutomatEDA listening on http://%s\n", sc.Addr())
		return srv.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "listen host (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 8501, "listen port (overrides config)")
	serveCmd.Flags().StringVar(&serveExamplesDir, "examples-dir", dataset.DefaultDir, "directory holding the bundled example CSVs")
	serveCmd.Flags().BoolVar(&serveCORS, "cors", false, "send permissive CORS headers")
	serveCmd.Flags().BoolVar(&serveNoMetrics, "no-metrics", false, "disable the /metrics endpoint")
}
