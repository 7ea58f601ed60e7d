package cmd

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mstoykov/envconfig"
	"github.com/spf13/pflag"

	"go.wisp.dev/wisp/lib"
)

var userEnvVarName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

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

func runtimeOptionFlagSet(includeSysEnv bool) *pflag.FlagSet {
	flags := pflag.NewFlagSet("", 0)
	flags.SortFlags = false
	flags.StringArrayP("include-path", "I", nil,
		"add a directory to the ordered module search path, can be given\nmore than once; earlier directories win")
	flags.Bool("include-system-env-vars", includeSysEnv, "pass the real system environment variables to the scope")
	flags.String("console-output", "", "redirects console logging to the provided output file")
	flags.StringArrayP("env", "e", nil, "add/override environment variable with `VAR=value`")
	return flags
}

func getRuntimeOptions(flags *pflag.FlagSet, environment map[string]string) (lib.RuntimeOptions, error) {
	opts := lib.RuntimeOptions{
		Env: make(map[string]string),
	}
	if err := envconfig.Process("", &opts, func(key string) (string, bool) {
		v, ok := environment[key]
		return v, ok
	}); err != nil {
		return opts, err
	}

	// Explicitly set CLI flags win over environment variables, and the flag
	// set defaults apply when neither was given.
	if flags.Changed("include-path") {
		includePath, err := flags.GetStringArray("include-path")
		if err != nil {
			return opts, err
		}
		opts.IncludePath = includePath
	}
	if sysEnvVars := getNullBool(flags, "include-system-env-vars"); sysEnvVars.Valid || !opts.IncludeSystemEnvVars.Valid {
		opts.IncludeSystemEnvVars = sysEnvVars
	}
	if consoleOutput := getNullString(flags, "console-output"); consoleOutput.Valid {
		opts.ConsoleOutput = consoleOutput
	}

	if opts.IncludeSystemEnvVars.Bool { // If enabled, gather the actual system environment variables
		opts.Env = environment
	}

	// Set/overwrite environment variables with custom user-supplied values
	envVars, err := flags.GetStringArray("env")
	if err != nil {
		return opts, err
	}
	for _, kv := range envVars {
		k, v := parseEnvKeyValue(kv)
		// Allow only alphanumeric ASCII variable names for now
		if !userEnvVarName.MatchString(k) {
			return opts, fmt.Errorf("invalid environment variable name '%s'", k)
		}
		opts.Env[k] = v
	}

	return opts, nil
}
