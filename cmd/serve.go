package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/formdeck/formdeck/pkg/assistant"
	"github.com/formdeck/formdeck/pkg/config"
	"github.com/formdeck/formdeck/pkg/forms"
	"github.com/formdeck/formdeck/pkg/logging"
	"github.com/formdeck/formdeck/pkg/providers"
	"github.com/formdeck/formdeck/pkg/session"
	"github.com/formdeck/formdeck/pkg/store"
	"github.com/formdeck/formdeck/pkg/webui"
)

var serveListenAddr string

// serveCmd runs the API server until interrupted.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP/WebSocket API server",
	Long: `Starts the formdeck API server. Form state is kept in Postgres when
DATABASE_URL is set; otherwise an in-memory store with a demo form is
used. The AI backend is selected via LLM_PROVIDER.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveListenAddr, "listen", "", "listen address (overrides FORMDECK_LISTEN_ADDR)")
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if serveListenAddr != "" {
		cfg.ListenAddr = serveListenAddr
	}

	logger, err := logging.New(cfg.LogFile, false)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := providers.New(ctx, cfg)
	if err != nil {
		return err
	}

	st, cleanup, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	manager, err := session.NewManager(st, 256)
	if err != nil {
		return err
	}

	orchestrator := assistant.New(provider, logger, cfg.RequestTimeout)
	server := webui.NewServer(cfg.ListenAddr, manager, orchestrator, provider, logger)
	return server.Start(ctx)
}

// openStore picks the persistence backend from configuration. Without a
// database a single seeded form keeps the server usable out of the box.
func openStore(ctx context.Context, cfg *config.Config, logger *logging.Logger) (session.Store, func(), error) {
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, nil, err
		}
		return pg, func() { pg.Close() }, nil
	}

	logger.Logf("DATABASE_URL not set, using in-memory store")
	mem := store.NewMemory()
	mem.Seed(store.FormRecord{
		ID:   "demo",
		Meta: forms.Metadata{Title: "Demo form"},
	})
	return mem, func() {}, nil
}
