// Package main is the entry point for the navigator CLI. Navigator is the
// routing core of a conversational navigation assistant: it arbitrates each
// user turn across a fixed tier chain and hands the resulting decision to
// whatever front end is driving it.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kmarchand/navigator/internal/classify"
	"github.com/kmarchand/navigator/internal/config"
	"github.com/kmarchand/navigator/internal/dialog"
	"github.com/kmarchand/navigator/internal/dispatch"
	"github.com/kmarchand/navigator/internal/logging"
	"github.com/kmarchand/navigator/internal/match"
	"github.com/kmarchand/navigator/internal/server"
	"github.com/kmarchand/navigator/internal/session"
	"github.com/kmarchand/navigator/internal/store"
	"github.com/kmarchand/navigator/internal/telemetry"
	"github.com/kmarchand/navigator/internal/tui"
)

var (
	version = "0.1.0"

	cfgPath string
	verbose bool

	cfg      *config.Config
	log      zerolog.Logger
	closeLog func() error
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "navigator",
		Short: "Navigator - turn router for a conversational navigation assistant",
		Long: `Navigator arbitrates user turns across a fixed tier chain:
stop and exit handling, return-to-paused-options, new-topic interrupts,
option selection, known commands, grounded disambiguation, and a terminal
retrieval fallback. Deterministic matchers run first on every tier; a
constrained LLM classifier is the bounded escape hatch.

Interactive session:  navigator repl
Gateway:              navigator serve
One-shot debugging:   navigator classify "open the export panel"`,
		PersistentPreRunE: initRuntime,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if closeLog != nil {
				return closeLog()
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL()
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (default ~/.navigator/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(replCmd())
	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(*cobra.Command, []string) {
			fmt.Printf("navigator v%s\n", version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initRuntime loads configuration and sets up logging before any command
// runs.
func initRuntime(*cobra.Command, []string) error {
	var err error
	if cfgPath != "" {
		cfg, err = config.LoadFromPath(cfgPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	log, closeLog, err = logging.New(level, cfg.Logging.File, cfg.Logging.Pretty)
	return err
}

// defaultCommands is the built-in navigation vocabulary. Front ends with
// their own surfaces extend it through widget registration instead.
func defaultCommands() []match.Command {
	return []match.Command{
		{Noun: "settings", ActionID: "nav.settings", Description: "application settings"},
		{Noun: "search", ActionID: "nav.search", Aliases: []string{"find"}, Description: "search everything"},
		{Noun: "dashboard", ActionID: "nav.dashboard", Aliases: []string{"home"}, Description: "the main dashboard"},
		{Noun: "export panel", ActionID: "nav.export", Aliases: []string{"exports"}, Description: "export data and reports"},
		{Noun: "import panel", ActionID: "nav.import", Aliases: []string{"imports"}, Description: "import external data"},
		{Noun: "notifications", ActionID: "nav.notifications", Aliases: []string{"alerts"}, Description: "notification center"},
		{Noun: "profile", ActionID: "nav.profile", Aliases: []string{"account"}, Description: "your profile"},
		{Noun: "integrations", ActionID: "nav.integrations", Description: "connected services"},
		{Noun: "billing", ActionID: "nav.billing", Aliases: []string{"invoices"}, Description: "plans and invoices"},
		{Noun: "help center", ActionID: "nav.help", Aliases: []string{"docs"}, Description: "guides and documentation"},
	}
}

func sessionFlags() dialog.SessionFlags {
	return dialog.SessionFlags{
		PreviewEnabled:   cfg.Dispatch.PreviewEnabled,
		RetrievalEnabled: cfg.Dispatch.RetrievalEnabled,
	}
}

// buildDispatcher wires the vocabulary, the grounded classifier, and the
// telemetry publisher into one dispatcher.
func buildDispatcher(bus telemetry.Publisher) *dispatch.Dispatcher {
	opts := []dispatch.Option{
		dispatch.WithPolicy(cfg.Policy()),
		dispatch.WithSuppressionWindow(cfg.Dispatch.SuppressionTurns),
	}
	if bus != nil {
		opts = append(opts, dispatch.WithTelemetry(bus))
	}
	if cfg.LLM.Enabled {
		backend := classify.NewHTTPClassifier(classify.HTTPConfig{
			Endpoint: cfg.LLM.Endpoint,
			APIKey:   cfg.LLM.APIKey,
			Model:    cfg.LLM.Model,
			Timeout:  cfg.LLM.Timeout * 2,
		})
		guard := classify.NewGuard(backend, logging.Component(log, "classify")).
			WithTimeout(cfg.LLM.Timeout).
			WithMinConfidence(cfg.LLM.MinConfidence)
		opts = append(opts, dispatch.WithClassifier(guard))
	}

	vocab := match.NewVocabulary(defaultCommands())
	return dispatch.New(vocab, logging.Component(log, "dispatch"), opts...)
}

// openStore opens the audit log and prunes expired records. A nil return
// with no error means auditing is disabled.
func openStore(ctx context.Context) (*store.Store, error) {
	if !cfg.Store.Enabled {
		return nil, nil
	}
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open audit store: %w", err)
	}
	if removed, err := st.Prune(ctx, cfg.Store.RetainDays); err != nil {
		log.Warn().Err(err).Msg("audit prune failed")
	} else if removed > 0 {
		log.Info().Int64("removed", removed).Msg("pruned expired audit records")
	}
	return st, nil
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the WebSocket gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			bus := telemetry.NewBus()
			defer bus.Close()

			audit, err := openStore(ctx)
			if err != nil {
				return err
			}
			if audit != nil {
				defer audit.Close()
			}

			opts := []server.Option{
				server.WithBus(bus),
				server.WithFlags(sessionFlags()),
				server.WithLatchTTL(cfg.Dispatch.LatchTTLTurns),
				server.WithEventReplay(cfg.Server.TelemetryReplay),
			}
			if audit != nil {
				opts = append(opts, server.WithStore(audit))
			}
			srv := server.New(buildDispatcher(bus), logging.Component(log, "server"), opts...)

			if addr == "" {
				addr = cfg.Server.Addr
			}
			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe(addr) }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func replCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Run the interactive terminal session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL()
		},
	}
}

func runREPL() error {
	return tui.Run(tui.Config{
		Dispatcher: buildDispatcher(nil),
		Flags:      sessionFlags(),
		LatchTTL:   cfg.Dispatch.LatchTTLTurns,
		Log:        logging.Component(log, "tui"),
	})
}

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <text>",
		Short: "Dispatch one turn against a fresh session and print the decision",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			d := buildDispatcher(nil)
			st := session.New()
			st.LatchTTL = cfg.Dispatch.LatchTTLTurns

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			dec, muts := d.Dispatch(ctx, dialog.TurnInput{Raw: text, Flags: sessionFlags()}, st)
			st.Apply(muts)

			out, err := json.MarshalIndent(dec, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(*cobra.Command, []string) error {
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	})
	return cmd
}
