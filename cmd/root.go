// Package cmd implements the cli interface of xmapgen
package cmd

import (
	"context"
	"errors"
	stdlog "log"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/polyhop/xmapgen/errext"
	"github.com/polyhop/xmapgen/lib/consts"
)

// globalFlags contains global config values that apply for all xmapgen
// sub-commands.
type globalFlags struct {
	quiet     bool
	noColor   bool
	verbose   bool
	logOutput string
	logFormat string
	logFile   string
}

// globalState contains the globalFlags and accessors for most of the global
// process-external state like CLI arguments, env vars, standard input, output
// and error, etc. In practice, most of it is normally accessed through the
// `os` package from the Go stdlib.
//
// We group them here so we can prevent direct access to them from the rest of
// the codebase. This gives us the ability to mock them and have robust and
// easy-to-write integration-like tests to check the xmapgen end-to-end
// behavior in any simulated conditions.
//
// `newGlobalState()` returns a globalState object with the real `os`
// parameters, while `newGlobalTestState()` can be used in tests to create
// simulated environments.
type globalState struct {
	ctx context.Context

	fs      afero.Fs
	getwd   func() (string, error)
	args    []string
	envVars map[string]string

	defaultFlags, flags globalFlags

	outMutex       *sync.Mutex
	stdOut, stdErr *consoleWriter
	osExit         func(int)

	logger         *logrus.Logger
	fallbackLogger logrus.FieldLogger
}

// Ideally, this should be the only function in the whole codebase where we use
// global variables and functions from the os package. Anywhere else, things
// like os.Stdout, os.Stderr, os.Getenv(), etc. should be removed and the
// respective properties of globalState used instead.
func newGlobalState(ctx context.Context) *globalState {
	isDumbTerm := os.Getenv("TERM") == "dumb"
	stdoutTTY := !isDumbTerm && (isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()))
	stderrTTY := !isDumbTerm && (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()))
	outMutex := &sync.Mutex{}
	stdOut := &consoleWriter{colorable.NewColorable(os.Stdout), stdoutTTY, outMutex}
	stdErr := &consoleWriter{colorable.NewColorable(os.Stderr), stderrTTY, outMutex}

	envVars := buildEnvMap(os.Environ())
	_, noColorsSet := envVars["NO_COLOR"] // even empty values disable colors
	logger := &logrus.Logger{
		Out: stdErr,
		Formatter: &logrus.TextFormatter{
			ForceColors:   stderrTTY,
			DisableColors: !stderrTTY || noColorsSet || envVars["XMAPGEN_NO_COLOR"] != "",
		},
		Hooks: make(logrus.LevelHooks),
		Level: logrus.InfoLevel,
	}

	defaultFlags := getDefaultFlags()

	return &globalState{
		ctx:          ctx,
		fs:           afero.NewOsFs(),
		getwd:        os.Getwd,
		args:         append(make([]string, 0, len(os.Args)), os.Args...), // copy
		envVars:      envVars,
		defaultFlags: defaultFlags,
		flags:        getFlags(defaultFlags, envVars),
		outMutex:     outMutex,
		stdOut:       stdOut,
		stdErr:       stdErr,
		osExit:       os.Exit,
		logger:       logger,
		fallbackLogger: &logrus.Logger{ // we may modify the other one
			Out:       stdErr,
			Formatter: new(logrus.TextFormatter), // no fancy formatting here
			Hooks:     make(logrus.LevelHooks),
			Level:     logrus.InfoLevel,
		},
	}
}

func getDefaultFlags() globalFlags {
	return globalFlags{
		logOutput: "stderr",
		logFile:   "xmapgen.log",
	}
}

func getFlags(defaultFlags globalFlags, env map[string]string) globalFlags {
	result := defaultFlags

	if val, ok := env["XMAPGEN_LOG_OUTPUT"]; ok {
		result.logOutput = val
	}
	if val, ok := env["XMAPGEN_LOG_FORMAT"]; ok {
		result.logFormat = val
	}
	if val, ok := env["XMAPGEN_LOG_FILE"]; ok {
		result.logFile = val
	}
	if env["XMAPGEN_NO_COLOR"] != "" {
		result.noColor = true
	}
	// Support https://no-color.org/, even an empty value should disable the
	// color output.
	if _, ok := env["NO_COLOR"]; ok {
		result.noColor = true
	}
	return result
}

func parseEnvKeyValue(kv string) (string, string) {
	if idx := strings.IndexRune(kv, '='); idx != -1 {
		return kv[:idx], kv[idx+1:]
	}
	return kv, ""
}

func buildEnvMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v := parseEnvKeyValue(kv)
		env[k] = v
	}
	return env
}

// This is to keep all fields needed for the main/root xmapgen command
type rootCommand struct {
	globalState *globalState

	cmd         *cobra.Command
	logFileHook *fileHook
}

func newRootCommand(gs *globalState) *rootCommand {
	c := &rootCommand{
		globalState: gs,
	}
	// the base command when called without any subcommands.
	rootCmd := &cobra.Command{
		Use:               "xmapgen",
		Short:             "a native hash crossmap generator",
		Long:              "xmapgen translates native function hashes between releases of a script bundle.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.persistentPreRunE,
	}

	rootCmd.PersistentFlags().AddFlagSet(rootCmdPersistentFlagSet(gs))
	rootCmd.SetArgs(gs.args[1:])
	rootCmd.SetOut(gs.stdOut)
	rootCmd.SetErr(gs.stdErr)

	rootCmd.AddCommand(
		getGenCmd(gs), getVersionCmd(gs),
	)

	c.cmd = rootCmd
	return c
}

func (c *rootCommand) persistentPreRunE(_ *cobra.Command, _ []string) error {
	if err := c.setupLoggers(); err != nil {
		return err
	}
	stdlog.SetOutput(c.globalState.logger.Writer())
	c.globalState.logger.Debugf("xmapgen version: v%s", consts.FullVersion())
	return nil
}

func (c *rootCommand) execute() error {
	err := c.cmd.Execute()
	if c.logFileHook != nil {
		if cerr := c.logFileHook.Close(); cerr != nil {
			c.globalState.fallbackLogger.WithError(cerr).Error("could not close the log file")
		}
	}
	return err
}

// Execute adds all child commands to the root command, sets flags
// appropriately and runs it. This is called by main.main(). It only needs to
// happen once.
func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gs := newGlobalState(ctx)

	if err := newRootCommand(gs).execute(); err != nil {
		exitCode := -1
		var ecerr errext.HasExitCode
		if errors.As(err, &ecerr) {
			exitCode = int(ecerr.ExitCode())
		}

		fields := logrus.Fields{}
		var herr errext.HasHint
		if errors.As(err, &herr) {
			fields["hint"] = herr.Hint()
		}

		gs.logger.WithFields(fields).Error(err.Error())

		gs.osExit(exitCode)
	}
}

func rootCmdPersistentFlagSet(gs *globalState) *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.SortFlags = false

	// the defaults are the consolidated env values, so a flag that isn't
	// passed doesn't undo XMAPGEN_* environment overrides
	flags.BoolVarP(&gs.flags.verbose, "verbose", "v", gs.flags.verbose, "enable verbose logging")
	flags.BoolVarP(&gs.flags.quiet, "quiet", "q", gs.flags.quiet, "disable progress log lines")
	flags.BoolVar(&gs.flags.noColor, "no-color", gs.flags.noColor, "disable colored output")
	flags.StringVar(&gs.flags.logOutput, "log-output", gs.flags.logOutput,
		"change the console output for xmapgen logs, possible values are stderr,stdout,none")
	flags.StringVar(&gs.flags.logFormat, "log-format", gs.flags.logFormat,
		"log output format, possible values are text,json,raw")
	flags.StringVar(&gs.flags.logFile, "log-file", gs.flags.logFile,
		"also mirror all log lines into this file, empty disables the mirror")
	return flags
}
