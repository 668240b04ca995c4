package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/notesprobe/internal/fakeapi"
	"github.com/notesprobe/internal/tui"
)

var (
	serveAddr    string
	servePrefix  string
	serveLatency time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve an in-memory fake of the Notes API",
	Long: `Serve the Notes API routes from memory so every other command can run
offline. Data is lost when the server stops.

Examples:
  notesprobe serve --addr :8080
  notesprobe --base-url http://localhost:8080/notes/api smoke`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.address)")
	serveCmd.Flags().StringVar(&servePrefix, "prefix", "", "Route prefix (overrides server.prefix)")
	serveCmd.Flags().DurationVar(&serveLatency, "latency", 0, "Delay added to every request")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	f := cmd.Flags()
	if f.Changed("addr") {
		cfg.Server.Address = serveAddr
	}
	if f.Changed("prefix") {
		cfg.Server.Prefix = servePrefix
	}
	if f.Changed("latency") {
		cfg.Server.Latency = serveLatency
	}
	if cfg.Server.Latency < 0 {
		return fmt.Errorf("latency must not be negative")
	}

	srv := fakeapi.New(fakeapi.Options{
		Prefix:  cfg.Server.Prefix,
		Latency: cfg.Server.Latency,
	}, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "%s fake Notes API at %s (Ctrl+C to stop)\n",
		tui.MiniLogo(), srv.BaseURL(cfg.Server.Address))
	return srv.ListenAndServe(ctx, cfg.Server.Address)
}
