package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"venom-connect-tui/config"
	"venom-connect-tui/registry"
	"venom-connect-tui/session"
	"venom-connect-tui/styles"
)

// -------------------- CLI --------------------

var version = "dev"

type cliOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:           "venom-connect-tui",
		Short:         "Connect a Venom wallet and watch its balance from the terminal",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath(), "config file (.json, .yaml or .yml)")

	root.AddCommand(
		newWatchCmd(opts),
		newProvidersCmd(opts),
		newVersionCmd(),
	)
	return root
}

// loadConfig reads the config file, applies env overrides and validates it
func loadConfig(path string) (config.Config, error) {
	cfg := config.LoadOrCreate(path)
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func runTUI(opts *cliOptions) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}

	sink := &logSink{}
	logger := log.NewWithOptions(sink, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Level:           log.DebugLevel,
	})
	logger.SetStyles(logStyles(styles.For(cfg.ThemeOrDefault())))

	selector := &formSelector{}
	ctrl := newController(cfg, selector, logger)

	m := newModel(cfg, opts.configPath, ctrl, logger, sink)
	p := tea.NewProgram(&m, tea.WithAltScreen())
	selector.attach(p)

	unsubscribe := ctrl.Subscribe(func(s session.Snapshot) {
		p.Send(sessionChangedMsg{snap: s})
	})

	_, err = p.Run()

	unsubscribe()
	ctrl.Teardown()
	return err
}

func newWatchCmd(opts *cliOptions) *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Connect without the TUI and print balance updates until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			if provider == "" {
				provider = cfg.Preferred
			}

			logger := log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
				ReportTimestamp: true,
				Prefix:          "watch",
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return watch(ctx, cmd.OutOrStdout(), newController(cfg, staticSelector(provider), logger))
		},
	}
	cmd.Flags().StringVarP(&provider, "provider", "p", "", "provider id to connect with (default: preferred provider, else the first)")
	return cmd
}

// watch drives ctrl to a connected session and prints every change until ctx
// is done or the session ends
func watch(ctx context.Context, out io.Writer, ctrl *session.Controller) error {
	defer ctrl.Teardown()

	changes := make(chan session.Snapshot, 16)
	unsubscribe := ctrl.Subscribe(func(s session.Snapshot) {
		select {
		case changes <- s:
		default:
		}
	})
	defer unsubscribe()

	if err := ctrl.Init(ctx); err != nil {
		return err
	}
	if ctrl.Snapshot().Phase() == session.PhaseIdle {
		if err := ctrl.Connect(ctx); err != nil {
			return err
		}
	}
	last := ctrl.Snapshot()
	printStatus(out, last)

	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-changes:
			// the buffer still holds everything published before last
			if s.Version <= last.Version {
				continue
			}
			last = s
			switch s.Phase() {
			case session.PhaseConnected:
				printStatus(out, s)
			case session.PhaseIdle:
				printStatus(out, s)
				return s.Err
			}
		}
	}
}

func printStatus(w io.Writer, s session.Snapshot) {
	line := []string{s.UpdatedAt.Format(time.TimeOnly), s.Phase().String()}
	if acct := s.Account(); acct != nil {
		line = append(line, acct.Address, s.BalanceText())
	}
	fmt.Fprintln(w, strings.Join(line, "  "))
}

func newProvidersCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the wallet providers the connector offers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			reg, err := registry.Build(entriesFromConfig(cfg), registry.Options{})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), providersTable(reg, cfg))
			return nil
		},
	}
}

func providersTable(reg *registry.Registry, cfg config.Config) string {
	extensions := cfg.Extensions()
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "NAME", "CHANNELS", "EXTENSION")

	for _, d := range reg.List() {
		channels := make([]string, 0, len(d.Channels))
		for _, c := range d.Channels {
			channels = append(channels, string(c))
		}
		ext := extensions[d.ID]
		if v := os.Getenv(registry.EnvKey(d.ID)); v != "" {
			ext = v
		}
		if ext == "" {
			ext = "$" + registry.EnvKey(d.ID)
		}
		t.Row(d.ID, d.DisplayName, strings.Join(channels, ","), ext)
	}
	return t.Render()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "venom-connect-tui", version)
		},
	}
}
