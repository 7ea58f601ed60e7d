package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dop251/goja"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"go.wisp.dev/wisp/js"
	"go.wisp.dev/wisp/lib/consts"
	"go.wisp.dev/wisp/loader"
)

const (
	invalidConfigErrorCode   = 104
	externalAbortErrorCode   = 105
	scriptExceptionErrorCode = 107
)

func getRunCmd(ctx context.Context, logger *logrus.Logger) *cobra.Command {
	// runCmd represents the run command.
	runCmd := &cobra.Command{
		Use:   "run script.js [args...]",
		Short: "Run a script",
		Long: `Run a script inside a fresh shared scope.

The script executes against the scope's global context with console, require()
and the wisp control surface installed. Modules pulled in through require()
are resolved against the search path and cached for the lifetime of the run.
Everything after the script path is handed to the script as wisp.args.`,
		Example: `
  # Run a script, searching for modules next to it
  wisp run script.js

  # Add library roots to the search path and pass variables
  wisp run -I ./lib -I ./vendor -e MODE=ci script.js`[1:],
		Args: minArgsWithMsg(1, "first arg should be a path to a script file"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !quiet {
				fprintf(stdout, "\n%s\n\n", BannerColor.Sprint(consts.Banner()))
			}

			environment := buildEnvMap(os.Environ())
			opts, err := getRuntimeOptions(cmd.Flags(), environment)
			if err != nil {
				return ExitCode{error: err, Code: invalidConfigErrorCode}
			}

			scriptPath, err := filepath.Abs(args[0])
			if err != nil {
				return ExitCode{error: err, Code: invalidConfigErrorCode}
			}
			if len(opts.IncludePath) == 0 {
				// The directory the script lives in is the default search path.
				opts.IncludePath = []string{filepath.Dir(scriptPath)}
			}

			filesystems := loader.CreateFilesystems(afero.NewOsFs())

			// Read the script before the scope exists so a bad path surfaces
			// as a config error, not a script failure. The read below warms
			// the cache, so the scope's own load is served from memory.
			if _, err := loader.Load(logger, filesystems, scriptPath, args[0]); err != nil {
				return ExitCode{error: err, Code: invalidConfigErrorCode}
			}

			logger.Debug("Initializing the scope...")
			control := &controlSurface{
				Version: consts.Version,
				Env:     opts.Env,
				Args:    args,
			}
			scope, err := js.NewScope(logger, filesystems, opts, map[string]interface{}{
				"wisp": control,
			})
			if err != nil {
				return ExitCode{error: err, Code: invalidConfigErrorCode}
			}

			runCtx, runCancel := context.WithCancel(ctx)
			defer runCancel()
			scope.SetContext(runCtx)
			control.exit = func(code int) {
				scope.Runtime().Interrupt(&scriptExit{code: code})
			}

			// Trap Interrupts, SIGINTs and SIGTERMs.
			sigC := make(chan os.Signal, 1)
			signal.Notify(sigC, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigC)
			go func() {
				sig := <-sigC
				logger.WithField("sig", sig).Debug("Stopping the script in response to signal...")
				runCancel()
				scope.Runtime().Interrupt(errExternalAbort)
				sig = <-sigC
				logger.WithField("sig", sig).Error("Aborting in response to signal")
				os.Exit(externalAbortErrorCode)
			}()

			logger.WithField("uri", scriptPath).Debug("Running the script...")
			if err := scope.Load(js.ModuleDescriptor{ID: args[0], URI: scriptPath}); err != nil {
				var iErr *goja.InterruptedError
				if errors.As(err, &iErr) {
					if exit, ok := iErr.Value().(*scriptExit); ok {
						if exit.code == 0 {
							return nil
						}
						return ExitCode{error: exit, Code: exit.code}
					}
					return ExitCode{error: err, Code: externalAbortErrorCode}
				}
				return ExitCode{error: err, Code: scriptExceptionErrorCode}
			}
			return nil
		},
	}

	runCmd.Flags().SortFlags = false
	runCmd.Flags().AddFlagSet(runCmdFlagSet())
	must(cobra.MarkFlagFilename(runCmd.Flags(), "console-output"))
	return runCmd
}

// errExternalAbort interrupts the runtime when the process is told to stop.
var errExternalAbort = errors.New("script aborted")

func runCmdFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.SortFlags = false
	flags.AddFlagSet(runtimeOptionFlagSet(true))
	return flags
}
