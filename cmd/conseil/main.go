package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lexavo/conseil/internal/client"
	"github.com/lexavo/conseil/internal/config"
	"github.com/lexavo/conseil/internal/controller"
	"github.com/lexavo/conseil/internal/handler"
	"github.com/lexavo/conseil/internal/repository"
	"github.com/lexavo/conseil/internal/store"
	"github.com/lexavo/conseil/internal/ui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app bundles the wired components a command needs.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	store   store.Store
	client  *client.Client
	ctrl    *controller.Controller
	monitor *client.Monitor
}

// newApp loads configuration and wires the full stack. Set withStore to
// false for commands that only talk to the remote API.
func newApp(withStore bool) (*app, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: failed to load .env file: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	level := zerolog.InfoLevel
	if cfg.UI.Debug {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: cfg.UI.NoColor}).
		Level(level).
		With().Timestamp().Logger()

	a := &app{cfg: cfg, log: log}
	a.client = client.New(client.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.RequestTimeout,
	}, log)
	a.monitor = client.NewMonitor(a.client, cfg.API.HealthInterval, log)

	if withStore {
		s, err := cfg.Store.OpenStore()
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.store = s
		repo := repository.New(s, log)
		a.ctrl = controller.New(repo, a.client, cfg.API.UserID, log)
		a.ctrl.Init()
	}

	return a, nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("close store failed")
		}
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "conseil",
		Short: "Terminal client for the legal/banking assistant",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context())
		},
		SilenceUsage: true,
	}

	root.AddCommand(
		newChatCmd(),
		newServeCmd(),
		newConversationsCmd(),
		newDocsCmd(),
		newPingCmd(),
	)
	return root
}

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive consultation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context())
		},
	}
}

func runChat(ctx context.Context) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	a.monitor.Start(ctx)
	defer a.monitor.Stop()

	repl := ui.NewREPL(a.ctrl, a.monitor, os.Stdin, os.Stdout)
	if err := repl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the local web interface",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(true)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			a.monitor.Start(ctx)
			defer a.monitor.Stop()

			router := handler.NewRouter(a.ctrl, a.monitor, a.log)
			srv := &http.Server{
				Addr:              a.cfg.UI.ServeAddr,
				Handler:           router,
				ReadHeaderTimeout: 5 * time.Second,
				IdleTimeout:       120 * time.Second,
			}

			a.log.Info().Str("addr", a.cfg.UI.ServeAddr).Msg("local interface listening")
			return runServer(ctx, srv)
		},
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func newConversationsCmd() *cobra.Command {
	conversations := &cobra.Command{
		Use:   "conversations",
		Short: "Inspect and manage saved conversations",
	}

	conversations.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(true)
			if err != nil {
				return err
			}
			defer a.close()

			snap := a.ctrl.Snapshot()
			ui.RenderConversationList(cmd.OutOrStdout(), snap.Conversations, snap.ActiveID)
			return nil
		},
	})

	conversations.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a conversation and its message log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(true)
			if err != nil {
				return err
			}
			defer a.close()

			a.ctrl.DeleteConversation(args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "Conversation %s supprimée.\n", args[0])
			return nil
		},
	})

	return conversations
}

func newDocsCmd() *cobra.Command {
	docs := &cobra.Command{
		Use:   "docs",
		Short: "Browse the assistant's source documents",
	}

	docs.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List citable documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}

			list, err := a.client.ListDocuments(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range list.AvailableDocuments {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d document(s)\n", list.TotalCount)
			return nil
		},
	})

	get := &cobra.Command{
		Use:   "get <name>",
		Short: "Download a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}

			data, err := a.client.FetchDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			output, _ := cmd.Flags().GetString("output")
			if output == "" {
				output = args[0]
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Document enregistré : %s (%d octets)\n", output, len(data))
			return nil
		},
	}
	get.Flags().StringP("output", "o", "", "output file (defaults to the document name)")
	docs.AddCommand(get)

	return docs
}

func newPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check backend health and the full agent path",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			status, err := a.client.CheckHealth(cmd.Context())
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			fmt.Fprintf(out, "health: %s (version %s)\n", status.Status, status.Version)

			ok, err := a.client.TestConnection(cmd.Context(), a.cfg.API.UserID)
			if err != nil {
				return fmt.Errorf("agent test failed: %w", err)
			}
			if !ok {
				fmt.Fprintln(out, "agent: unavailable")
				return nil
			}
			fmt.Fprintln(out, "agent: ok")
			return nil
		},
	}
}
