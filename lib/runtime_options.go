package lib

import (
	"gopkg.in/guregu/null.v3"
)

// RuntimeOptions are settings for the shared scope scripts run in: where
// module lookups search, what the control surface exposes, and where the
// console writes.
type RuntimeOptions struct {
	// Ordered search roots for module lookups. Earlier roots win.
	IncludePath []string `json:"includePath" envconfig:"WISP_INCLUDE_PATH"`

	// Whether to pass the actual system environment variables to the scope
	IncludeSystemEnvVars null.Bool `json:"includeSystemEnvVars" envconfig:"WISP_INCLUDE_SYSTEM_ENV_VARS"`

	// Redirects console output to the supplied file instead of the logger
	ConsoleOutput null.String `json:"consoleOutput" envconfig:"WISP_CONSOLE_OUTPUT"`

	// Environment variables exposed on the control surface. Assembled from
	// the system environment and -e flags rather than a single variable.
	Env map[string]string `json:"env" ignored:"true"`
}
