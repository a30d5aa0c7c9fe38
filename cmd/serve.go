package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/coachkit/knowledge-engine/internal/knowledge"
	"github.com/coachkit/knowledge-engine/internal/search"
	"github.com/coachkit/knowledge-engine/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Starts the HTTP API: document management, search, context assembly,
sync and a websocket event stream for job progress.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		database, store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		processor, err := newProcessor(cfg, store, false)
		if err != nil {
			return err
		}
		searcher := newSearcher(cfg, store)
		assembler := search.NewAssembler(searcher, search.NewSynonymVariations(nil))
		reconciler := newReconciler(cfg, store)

		srv := server.New(server.Config{
			Host:        cfg.Server.Host,
			Port:        cfg.Server.Port,
			CORSOrigins: cfg.Server.CORSOrigins,
		}, database, store, processor, searcher, assembler, reconciler)

		// Job updates feed the websocket event stream.
		processor.OnProgress(func(job knowledge.Job) {
			srv.Events().Broadcast("job.update", job)
		})

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case sig := <-stop:
			fmt.Fprintf(os.Stderr, "received %s, shutting down\n", sig)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
