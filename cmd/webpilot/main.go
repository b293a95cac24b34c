package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/entrhq/webpilot/pkg/approval"
	"github.com/entrhq/webpilot/pkg/browser"
	"github.com/entrhq/webpilot/pkg/config"
	"github.com/entrhq/webpilot/pkg/dispatch"
	"github.com/entrhq/webpilot/pkg/logging"
	"github.com/entrhq/webpilot/pkg/orchestrator"
	"github.com/entrhq/webpilot/pkg/parser"
	"github.com/entrhq/webpilot/pkg/security/workspace"
	"github.com/entrhq/webpilot/pkg/terminal"
	"github.com/entrhq/webpilot/pkg/ui"
)

const version = "0.1.0"

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigFile     string
	Workspace      string
	Endpoint       string
	ExecutablePath string
	Headed         bool
	Verbosity      string
	Ask            string
	Insert         string
	ShowVersion    bool
}

func main() {
	cliConfig := parseFlags()

	if cliConfig.ShowVersion {
		fmt.Printf("webpilot version %s\n", version)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nShutting down gracefully...")
		cancel()
	}()

	if err := run(ctx, cliConfig); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func parseFlags() *CLIConfig {
	cliConfig := &CLIConfig{}

	flag.StringVar(&cliConfig.ConfigFile, "config", "", "Path to configuration file (default ~/.webpilot/config.yaml)")
	flag.StringVar(&cliConfig.Workspace, "workspace", "", "Workspace folder (overrides the configuration file)")
	flag.StringVar(&cliConfig.Endpoint, "endpoint", "", "Chat application URL (overrides the configuration file)")
	flag.StringVar(&cliConfig.ExecutablePath, "executable", "", "Browser executable (overrides the configuration file)")
	flag.BoolVar(&cliConfig.Headed, "headed", false, "Show the browser window")
	flag.StringVar(&cliConfig.Verbosity, "verbosity", "", "Console log verbosity: quiet, normal, verbose")
	flag.StringVar(&cliConfig.Ask, "ask", "", "Ask one question, print the reply and exit")
	flag.StringVar(&cliConfig.Insert, "insert", "", "Ask one question, insert the reply into the open document and exit")
	flag.BoolVar(&cliConfig.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "webpilot - drive a browser-hosted chat assistant from the terminal\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  webpilot [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Interactive session on the current folder\n")
		fmt.Fprintf(os.Stderr, "  webpilot -workspace .\n\n")
		fmt.Fprintf(os.Stderr, "  # One question against a local chat deployment\n")
		fmt.Fprintf(os.Stderr, "  webpilot -endpoint http://localhost:3000 -ask \"List the files in this project\"\n")
	}

	flag.Parse()
	return cliConfig
}

// overrides applies command-line values on top of a loaded configuration.
// It runs again after every reload so flags keep precedence.
func (c *CLIConfig) overrides(cfg *config.Config) {
	if c.Workspace != "" {
		cfg.Workspace.Root = c.Workspace
	}
	if c.Endpoint != "" {
		cfg.Session.Endpoint = c.Endpoint
	}
	if c.ExecutablePath != "" {
		cfg.Session.ExecutablePath = c.ExecutablePath
	}
	if c.Headed {
		cfg.Session.Headless = false
	}
	if c.Verbosity != "" {
		cfg.Logging.Verbosity = c.Verbosity
	}
}

func run(ctx context.Context, cliConfig *CLIConfig) error {
	configPath := cliConfig.ConfigFile
	if configPath == "" {
		path, err := config.DefaultPath()
		if err != nil {
			return err
		}
		configPath = path
	}

	cfg, err := loadConfig(configPath, cliConfig)
	if err != nil {
		return err
	}
	holder := config.NewHolder(configPath, cfg)

	editor := ui.NewBuffer()
	console := ui.NewConsole(os.Stdin, os.Stdout, editor)

	baseLogger, err := logging.NewLogger("webpilot")
	if err != nil {
		console.ShowWarning(fmt.Sprintf("Logging to stderr: %v", err))
	}
	defer baseLogger.Close()
	logger := baseLogger.WithSink(consoleSink(console, func() string {
		return holder.Current().Logging.Verbosity
	}))
	logger.Infof("Starting webpilot %s (run %s, log %s)", version, logger.RunID(), logger.LogPath())

	if _, statErr := os.Stat(configPath); statErr == nil {
		watchErr := holder.Watch(ctx, logger.Named("config"), func(reloaded *config.Config) {
			cliConfig.overrides(reloaded)
			if err := holder.Update(reloaded); err != nil {
				logger.Warnf("Ignoring configuration change: %v", err)
			}
		})
		if watchErr != nil {
			logger.Warnf("Configuration changes will not be picked up: %v", watchErr)
		}
	}

	// The workspace is fixed for the lifetime of the process.
	guard, root, err := openWorkspace(cfg.Workspace.Root)
	if err != nil {
		return err
	}
	if guard != nil {
		logger.Infof("Workspace: %s", root)
	}

	shell := terminal.New(cfg.Workspace.Shell, root, os.Stdout, logger.Named("terminal"))
	defer shell.Close()

	approvals := approval.NewManager(func() config.ApprovalConfig {
		return holder.Current().Approval
	}, console, logger.Named("approval"))

	dispatcher := dispatch.New(approvals,
		dispatch.WithWorkspace(guard),
		dispatch.WithTerminal(shell),
		dispatch.WithEditor(editor),
		dispatch.WithDiagnostics(dispatch.CommandDiagnostics{Command: cfg.Workspace.DiagnosticsCommand}),
		dispatch.WithMaxFiles(cfg.Workspace.MaxFiles),
		dispatch.WithLogger(logger.Named("dispatch")),
	)

	var orch *orchestrator.Orchestrator
	session := browser.NewManager(
		browser.NewPlaywrightDriver(),
		func() browser.SessionConfig {
			current := holder.Current()
			cliConfig.overrides(current)
			return current.Session
		},
		browser.WithLogger(logger.Named("browser")),
		browser.WithDisconnectHandler(func() {
			if orch != nil {
				orch.NotifyDisconnect()
			}
		}),
	)
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warnf("Failed to close browser session: %v", err)
		}
	}()

	orch = orchestrator.New(session, parser.New(logger.Named("parser")), dispatcher, console, logger.Named("orchestrator"))

	switch {
	case cliConfig.Ask != "":
		_, err := orch.Ask(ctx, cliConfig.Ask)
		return err
	case cliConfig.Insert != "":
		editor.New()
		if _, err := orch.Insert(ctx, cliConfig.Insert); err != nil {
			return err
		}
		fmt.Fprint(os.Stdout, editor.Text())
		return nil
	}

	r := &repl{
		console: console,
		orch:    orch,
		editor:  editor,
		session: session,
		guard:   guard,
		out:     os.Stdout,
	}
	if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// loadConfig reads the configuration file and applies the flags on top.
func loadConfig(path string, cliConfig *CLIConfig) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	cliConfig.overrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openWorkspace returns a nil guard when no root is configured.
func openWorkspace(root string) (*workspace.Guard, string, error) {
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, "", fmt.Errorf("failed to get working directory: %w", err)
		}
		return nil, cwd, nil
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve workspace path: %w", err)
	}
	guard, err := workspace.NewGuard(abs)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open workspace: %w", err)
	}
	return guard, guard.WorkspaceDir(), nil
}

// consoleSink mirrors log lines to the console according to the current
// verbosity. The log file always receives every line.
func consoleSink(console *ui.Console, verbosity func() string) logging.Sink {
	return func(level, component, message string) {
		if !mirrored(verbosity(), level) {
			return
		}
		console.LogOutput(fmt.Sprintf("%s: %s", component, message))
	}
}

func mirrored(verbosity, level string) bool {
	switch verbosity {
	case config.VerbosityQuiet:
		return level == "ERROR"
	case config.VerbosityVerbose:
		return true
	default:
		return level != "DEBUG"
	}
}
