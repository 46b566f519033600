package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/buildgraphgo/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("buildgraphgo", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
buildgraphgo - An incremental build evaluation core.

Usage:
  buildgraphgo [options] TARGET_LABEL...

Arguments:
  TARGET_LABEL
    One or more canonical target labels, e.g. //app:server.

Options:
`)
		flagSet.PrintDefaults()
	}

	manifestFlag := flagSet.String("manifest", "", "Path to the workspace manifest file or directory.")
	mFlag := flagSet.String("m", "", "Path to the workspace manifest (shorthand).")
	aspectFlag := flagSet.String("aspect", "", "Additionally apply the named aspect to every requested target.")
	groupsFlag := flagSet.String("output-groups", "", "Comma-separated output groups to build. Empty means the default group.")
	noFetchFlag := flagSet.Bool("nofetch", false, "Suppress external repository fetching for this build.")
	outputBaseFlag := flagSet.String("output-base", "", "Override the manifest's output base directory.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", 0, "Number of concurrent evaluation workers. 0 means one per CPU.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	manifest := *manifestFlag
	if manifest == "" {
		manifest = *mFlag
	}
	targets := flagSet.Args()
	slog.Debug("Build request determined.", "manifest", manifest, "targets", targets)

	if manifest == "" || len(targets) == 0 {
		slog.Debug("Manifest or targets missing, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	var groups []string
	if *groupsFlag != "" {
		groups = strings.Split(*groupsFlag, ",")
	}

	config, err := app.NewConfig(app.Config{
		ManifestPath: manifest,
		Targets:      targets,
		AspectClass:  *aspectFlag,
		OutputGroups: groups,
		NoFetch:      *noFetchFlag,
		OutputBase:   *outputBaseFlag,
		LogFormat:    logFormat,
		LogLevel:     logLevel,
		WorkerCount:  *workersFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.")
	return config, false, nil
}
