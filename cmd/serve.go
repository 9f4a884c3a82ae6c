package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/agentix/droidportal/internal/config"
	"github.com/agentix/droidportal/internal/device"
	"github.com/agentix/droidportal/internal/dispatch"
	"github.com/agentix/droidportal/internal/httpapi"
	"github.com/agentix/droidportal/internal/logging"
	"github.com/agentix/droidportal/internal/reverse"
	"github.com/agentix/droidportal/internal/wsrpc"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket command surfaces",
	Long: `Run the portal's network surfaces: the HTTP request/response adapter,
the WebSocket JSON-RPC adapter, and (when enabled in configuration) the
reverse connection to a remote controller. The config file is watched and
reloaded on change.

Examples:
  droidportal serve
  droidportal serve --config portal.yaml
  droidportal serve --http-port 9000 --ws-port 9001`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Int("http-port", 0, "HTTP port (overrides config)")
	serveCmd.Flags().Int("ws-port", 0, "WebSocket port (overrides config)")
	serveCmd.Flags().String("reverse-url", "", "Reverse-connection URL (overrides config and enables the feature)")
}

// setup loads configuration, applies flag overrides, and builds the shared
// store, logger, and dispatcher.
func setup(cmd *cobra.Command) (*config.Store, *slog.Logger, *dispatch.Dispatcher, string, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, nil, "", err
	}

	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		cfg.LogFormat = v
	}
	if v, _ := cmd.Flags().GetString("adb-serial"); v != "" {
		cfg.ADBSerial = v
	}

	log := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	store := config.NewStore(cfg)
	auto := device.NewADB(cfg.ADBSerial, log)
	disp := dispatch.New(auto, store, log)
	return store, log, disp, path, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	store, log, disp, cfgPath, err := setup(cmd)
	if err != nil {
		return err
	}
	store.Update(func(cfg *config.File) {
		if v, _ := cmd.Flags().GetInt("http-port"); v > 0 {
			cfg.HTTPPort = v
		}
		if v, _ := cmd.Flags().GetInt("ws-port"); v > 0 {
			cfg.WSPort = v
		}
		if v, _ := cmd.Flags().GetString("reverse-url"); v != "" {
			cfg.ReverseURL = v
			cfg.ReverseEnabled = true
		}
	})
	cfg := store.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 3)

	httpSrv := httpapi.New(disp, store, log)
	httpAddr, err := httpSrv.Listen(fmt.Sprintf(":%d", cfg.HTTPPort))
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}
	go func() {
		if err := httpSrv.Serve(ctx); err != nil {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	log.Info("http surface listening", "addr", httpAddr)

	router := wsrpc.NewRouter(disp, store, log)
	wsSrv := wsrpc.NewServer(router, store, log)
	wsAddr, err := wsSrv.Listen(fmt.Sprintf(":%d", cfg.WSPort))
	if err != nil {
		return fmt.Errorf("ws listen: %w", err)
	}
	go func() {
		if err := wsSrv.Serve(ctx); err != nil {
			errCh <- fmt.Errorf("ws server: %w", err)
		}
	}()
	log.Info("websocket surface listening", "addr", wsAddr)

	rev := reverse.New(store, router, log, func() {
		log.Info("reverse connection established")
	})
	go rev.Run(ctx)

	if cfgPath != "" {
		go func() {
			if err := config.Watch(ctx, cfgPath, store, log); err != nil {
				log.Warn("config watch stopped", "error", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		return nil
	case err := <-errCh:
		return err
	}
}
