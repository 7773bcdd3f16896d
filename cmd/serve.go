package cmd

import (
	"context"
	"crypto/sha256"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"itsite/auth"
	"itsite/backend"
	"itsite/config"
	"itsite/contact"
	"itsite/handlers"
	"itsite/remotelist"

	"github.com/gorilla/csrf"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		return runServe(ctx, config.AppConfig)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func newRegistry(cfg config.Config, client *backend.Client) *remotelist.Registry {
	return remotelist.NewRegistry(remotelist.DefaultCatalog(cfg.BlogLimit), client, remotelist.Options{
		ImageBaseURL: cfg.ImageBaseURL,
		Timeout:      cfg.FetchTimeout(),
		MaxAge:       cfg.CacheTTL(),
		Logger:       log,
	})
}

// newHandler assembles the API with CSRF protection keyed off the session key.
func newHandler(cfg config.Config, registry auth.Registry) (http.Handler, *remotelist.Registry) {
	client := backend.New(cfg.APIBaseURL)
	lists := newRegistry(cfg, client)

	srv := handlers.NewServer(handlers.Deps{
		Cookies:  auth.NewCookieStore(cfg.SessionKey, cfg.SecureCookies),
		Registry: registry,
		Admin:    adminCredentials(cfg),
		Lists:    lists,
		Contact:  contact.NewService(client, log),
		Logger:   log,
	})

	csrfKey := sha256.Sum256([]byte(cfg.SessionKey + "csrf"))
	protect := csrf.Protect(
		csrfKey[:],
		csrf.Secure(cfg.SecureCookies),
		csrf.Path("/"),
		csrf.RequestHeader("X-CSRF-Token"),
	)

	if cfg.SecureCookies {
		return srv.Routes(protect), lists
	}
	return srv.Routes(plaintextHTTP, protect), lists
}

// plaintextHTTP tells csrf the request arrived over plain HTTP so it skips
// the TLS-only referer check.
func plaintextHTTP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}

func runServe(ctx context.Context, cfg config.Config) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	handler, lists := newHandler(cfg, store)

	go func() {
		if err := lists.FetchAll(ctx, remotelist.TriggerMount); err != nil {
			log.Warn("initial collection fetch incomplete", "error", err)
		}
	}()

	server := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "addr", server.Addr, "app", cfg.AppName, "api", cfg.APIBaseURL)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
