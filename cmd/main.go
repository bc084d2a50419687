package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	cfgPkg "github.com/xhad/sitechat/pkg/config"
)

// Set by the release build.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries what the subcommands share once the root command has run.
type app struct {
	configPath string
	logLevel   string
	logFile    string

	cfg    *cfgPkg.Config
	logOut io.Closer
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "sitechat",
		Short:         "Chat with the content of a website",
		Long:          "sitechat fetches a web page, indexes it with embeddings and answers questions about it with an LLM.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd.ErrOrStderr())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Path to config file")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&a.logFile, "log-file", "", "Write logs to this file instead of stderr")

	root.AddCommand(newChatCmd(a), newReplCmd(a), newServeCmd(a), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		// No config is needed to print the version.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sitechat %s (%s)\n", version, commit)
		},
	}
}

func (a *app) load(stderr io.Writer) error {
	cfg, err := cfgPkg.LoadConfig(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFile != "" {
		cfg.Log.File = a.logFile
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return errors.New("invalid configuration: " + strings.Join(msgs, "; "))
	}

	out, err := setupLogging(cfg.Log, stderr)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logOut = out
	return nil
}

func (a *app) close() {
	if a.logOut != nil {
		a.logOut.Close()
		a.logOut = nil
	}
}

// setupLogging installs the default logger. The returned closer is non-nil when logs go to a file.
func setupLogging(lc cfgPkg.LogConfig, stderr io.Writer) (io.Closer, error) {
	level, err := log.ParseLevel(lc.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", lc.Level, err)
	}

	var (
		w      = stderr
		closer io.Closer
	)
	if lc.File != "" {
		f, err := os.OpenFile(lc.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w, closer = f, f
	}

	log.SetDefault(log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
		Prefix:          "sitechat",
	}))
	return closer, nil
}
