package cmd

import (
	"context"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"go.wisp.dev/wisp/lib/consts"
	"go.wisp.dev/wisp/log"
)

// BannerColor is the color used for the top-of-output banner.
var BannerColor = color.New(color.FgCyan)

// TODO: remove these global variables
//
//nolint:gochecknoglobals
var (
	outMutex  = &sync.Mutex{}
	stdoutTTY = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	stderrTTY = isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	stdout    = &consoleWriter{colorable.NewColorableStdout(), stdoutTTY, outMutex}
	stderr    = &consoleWriter{colorable.NewColorableStderr(), stderrTTY, outMutex}
)

//nolint:gochecknoglobals
var (
	quiet   bool
	noColor bool
)

// This is to keep all fields needed for the main/root wisp command
type rootCommand struct {
	logger    *logrus.Logger
	cmd       *cobra.Command
	logOutput string
	logFmt    string
	verbose   bool
}

func newRootCommand(logger *logrus.Logger) *rootCommand {
	c := &rootCommand{
		logger: logger,
	}
	// the base command when called without any subcommands.
	c.cmd = &cobra.Command{
		Use:               "wisp",
		Short:             "a scriptable headless JavaScript host",
		Long:              BannerColor.Sprintf("\n%s", consts.Banner()),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.persistentPreRunE,
	}

	c.cmd.PersistentFlags().AddFlagSet(c.rootCmdPersistentFlagSet())
	return c
}

func (c *rootCommand) persistentPreRunE(cmd *cobra.Command, args []string) error {
	if !cmd.Flags().Changed("log-output") {
		if envLogOutput, ok := os.LookupEnv("WISP_LOG_OUTPUT"); ok {
			c.logOutput = envLogOutput
		}
	}
	if err := c.setupLoggers(cmd.Context()); err != nil {
		return err
	}

	if noColor {
		stdout.Writer = colorable.NewNonColorable(os.Stdout)
		stderr.Writer = colorable.NewNonColorable(os.Stderr)
	}
	stdlog.SetOutput(c.logger.Writer())
	c.logger.Debugf("wisp version: v%s", consts.Version)
	return nil
}

// Execute adds all child commands to the root command, sets flags
// appropriately and runs the whole thing. This is called by main.main() and
// only needs to happen once.
func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logger := &logrus.Logger{
		Out:       os.Stderr,
		Formatter: new(logrus.TextFormatter),
		Hooks:     make(logrus.LevelHooks),
		Level:     logrus.InfoLevel,
	}

	c := newRootCommand(logger)

	c.cmd.AddCommand(
		getRunCmd(ctx, logger),
		getReplCmd(ctx, logger),
		getVersionCmd(),
	)

	if err := c.cmd.ExecuteContext(ctx); err != nil {
		fields := logrus.Fields{}
		code := -1
		if e, ok := err.(ExitCode); ok { //nolint:errorlint
			code = e.Code
			if e.Hint != "" {
				fields["hint"] = e.Hint
			}
		}

		logger.WithFields(fields).Error(err)
		os.Exit(code) //nolint:gocritic
	}
}

func (c *rootCommand) rootCmdPersistentFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")
	flags.BoolVarP(&quiet, "quiet", "q", false, "disable the banner")
	flags.BoolVar(&noColor, "no-color", false, "disable colored output")
	flags.StringVar(&c.logOutput, "log-output", "stderr",
		"change the output for wisp logs, possible values are stderr,stdout,none,file[=./path.fileformat]")
	flags.StringVar(&c.logFmt, "logformat", "", "log output format")
	return flags
}

// RawFormatter it does nothing with the message just prints it
type RawFormatter struct{}

// Format renders a single log entry
func (f RawFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	return append([]byte(entry.Message), '\n'), nil
}

func (c *rootCommand) setupLoggers(ctx context.Context) error {
	if c.verbose {
		c.logger.SetLevel(logrus.DebugLevel)
	}
	switch {
	case c.logOutput == "stderr":
		c.logger.SetOutput(stderr)
	case c.logOutput == "stdout":
		c.logger.SetOutput(stdout)
	case c.logOutput == "none":
		c.logger.SetOutput(io.Discard)
	case strings.HasPrefix(c.logOutput, "file"):
		hook, err := log.FileHookFromConfigLine(ctx, afero.NewOsFs(), c.logger, c.logOutput)
		if err != nil {
			return err
		}
		c.logger.AddHook(hook)
		// Entries reach the file only through the hook.
		c.logger.SetOutput(io.Discard)
	default:
		return fmt.Errorf("unsupported log output `%s`", c.logOutput)
	}

	switch c.logFmt {
	case "raw":
		c.logger.SetFormatter(&RawFormatter{})
		c.logger.Debug("Logger format: RAW")
	case "json":
		c.logger.SetFormatter(&logrus.JSONFormatter{})
		c.logger.Debug("Logger format: JSON")
	case "", "text":
		c.logger.SetFormatter(&logrus.TextFormatter{ForceColors: stderrTTY, DisableColors: noColor})
		c.logger.Debug("Logger format: TEXT")
	default:
		return fmt.Errorf("unsupported log format `%s`", c.logFmt)
	}
	return nil
}
