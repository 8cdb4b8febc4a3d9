// Command webgame-server runs the full stack: universe, session handler,
// archiver, and the HTTP front door, wired from a single set of flags.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mafia-night/backend/internal/archiver"
	"github.com/mafia-night/backend/internal/bot"
	"github.com/mafia-night/backend/internal/httpserver"
	"github.com/mafia-night/backend/internal/mafia"
	"github.com/mafia-night/backend/internal/session"
	"github.com/mafia-night/backend/internal/store"
	"github.com/mafia-night/backend/internal/universe"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := &config{}
	cobra.CheckErr(newCmd(cfg).ExecuteContext(ctx))
}

// run wires the full stack and serves until ctx is cancelled by a signal,
// then drains the listener so the deferred store/archiver teardown runs.
func run(ctx context.Context, cfg *config) error {
	st, err := openStore(cfg.dbURI)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	u := universe.New(st, mafia.New, bot.New(cfg.botSocket))

	h := session.New(u, nil)
	mux := httpserver.New(h.ServeHTTP, cfg.directory)

	archiveDone := make(chan struct{})
	a := archiver.New(st, cfg.archivesDirectory, cfg.archiveDelay(), cfg.archiveCheck())
	go a.Run(archiveDone)
	defer close(archiveDone)

	addr := fmt.Sprintf("%s:%d", cfg.ip, cfg.port)
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Printf("[server] listening on %s, serving %s, archiving to %s every %s",
		addr, cfg.directory, cfg.archivesDirectory, cfg.archiveCheck())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Printf("[server] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openStore picks the persistent bbolt store, unless dbURI is empty, in
// which case development runs fall back to the no-op print store.
func openStore(dbURI string) (store.Store, error) {
	if dbURI == "" {
		return store.NewPrintStore(), nil
	}
	return store.NewBoltStore(dbURI)
}
