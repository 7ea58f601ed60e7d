package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v3"
)

type runtimeOptionsTestCase struct {
	name           string
	environment    map[string]string
	cliFlags       []string
	expErr         bool
	expIncludePath []string
	expSysEnv      null.Bool
	expConsole     null.String
	expEnv         map[string]string
}

var runtimeOptionsTestCases = []runtimeOptionsTestCase{
	{
		name:        "defaults",
		environment: map[string]string{"FOO": "bar"},
		cliFlags:    []string{},
		expSysEnv:   null.NewBool(true, false),
		expEnv:      map[string]string{"FOO": "bar"},
	},
	{
		name:        "system env disabled by flag",
		environment: map[string]string{"FOO": "bar"},
		cliFlags:    []string{"--include-system-env-vars=false"},
		expSysEnv:   null.NewBool(false, true),
		expEnv:      map[string]string{},
	},
	{
		name: "system env disabled by environment",
		environment: map[string]string{
			"WISP_INCLUDE_SYSTEM_ENV_VARS": "false",
			"FOO":                          "bar",
		},
		cliFlags:  []string{},
		expSysEnv: null.NewBool(false, true),
		expEnv:    map[string]string{},
	},
	{
		name: "flag overrides environment",
		environment: map[string]string{
			"WISP_INCLUDE_SYSTEM_ENV_VARS": "false",
			"FOO":                          "bar",
		},
		cliFlags:  []string{"--include-system-env-vars"},
		expSysEnv: null.NewBool(true, true),
		expEnv: map[string]string{
			"WISP_INCLUDE_SYSTEM_ENV_VARS": "false",
			"FOO":                          "bar",
		},
	},
	{
		name:        "cli variables beat the system environment",
		environment: map[string]string{"FOO": "sys"},
		cliFlags:    []string{"-e", "FOO=cli", "--env", "EXTRA=1", "-e", "EMPTY="},
		expSysEnv:   null.NewBool(true, false),
		expEnv:      map[string]string{"FOO": "cli", "EXTRA": "1", "EMPTY": ""},
	},
	{
		name:        "cli variables without system env",
		environment: map[string]string{"FOO": "bar"},
		cliFlags:    []string{"--include-system-env-vars=false", "-e", "A=1", "-e", "B"},
		expSysEnv:   null.NewBool(false, true),
		expEnv:      map[string]string{"A": "1", "B": ""},
	},
	{
		name:           "include path from the environment",
		environment:    map[string]string{"WISP_INCLUDE_PATH": "/srv/a,/srv/b"},
		cliFlags:       []string{},
		expIncludePath: []string{"/srv/a", "/srv/b"},
		expSysEnv:      null.NewBool(true, false),
		expEnv:         map[string]string{"WISP_INCLUDE_PATH": "/srv/a,/srv/b"},
	},
	{
		name:           "include path flags win",
		environment:    map[string]string{"WISP_INCLUDE_PATH": "/srv/a"},
		cliFlags:       []string{"-I", "/opt/x", "--include-path", "/opt/y"},
		expIncludePath: []string{"/opt/x", "/opt/y"},
		expSysEnv:      null.NewBool(true, false),
		expEnv:         map[string]string{"WISP_INCLUDE_PATH": "/srv/a"},
	},
	{
		name:        "console output from the environment",
		environment: map[string]string{"WISP_CONSOLE_OUTPUT": "/tmp/console.log"},
		cliFlags:    []string{},
		expSysEnv:   null.NewBool(true, false),
		expConsole:  null.StringFrom("/tmp/console.log"),
		expEnv:      map[string]string{"WISP_CONSOLE_OUTPUT": "/tmp/console.log"},
	},
	{
		name:        "console output flag wins",
		environment: map[string]string{"WISP_CONSOLE_OUTPUT": "/tmp/env.log"},
		cliFlags:    []string{"--console-output", "relative.log"},
		expSysEnv:   null.NewBool(true, false),
		expConsole:  null.StringFrom("relative.log"),
		expEnv:      map[string]string{"WISP_CONSOLE_OUTPUT": "/tmp/env.log"},
	},
	{
		name:        "invalid variable name",
		environment: map[string]string{},
		cliFlags:    []string{"-e", "test a=error"},
		expErr:      true,
	},
	{
		name:        "invalid variable name leading digit",
		environment: map[string]string{},
		cliFlags:    []string{"-e", "1var=error"},
		expErr:      true,
	},
	{
		name:        "invalid variable name unicode",
		environment: map[string]string{},
		cliFlags:    []string{"-e", "уникод=disabled"},
		expErr:      true,
	},
	{
		name:        "bad system env toggle value",
		environment: map[string]string{"WISP_INCLUDE_SYSTEM_ENV_VARS": "maybe"},
		cliFlags:    []string{},
		expErr:      true,
	},
}

func TestRuntimeOptions(t *testing.T) {
	t.Parallel()
	for _, tc := range runtimeOptionsTestCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			flags := runtimeOptionFlagSet(true)
			require.NoError(t, flags.Parse(tc.cliFlags))

			opts, err := getRuntimeOptions(flags, tc.environment)
			if tc.expErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expIncludePath, opts.IncludePath)
			assert.Equal(t, tc.expSysEnv, opts.IncludeSystemEnvVars)
			assert.Equal(t, tc.expConsole, opts.ConsoleOutput)
			assert.EqualValues(t, tc.expEnv, opts.Env)
		})
	}
}

func TestRuntimeOptionsSystemEnvOffByDefault(t *testing.T) {
	t.Parallel()
	flags := runtimeOptionFlagSet(false)
	require.NoError(t, flags.Parse([]string{}))

	opts, err := getRuntimeOptions(flags, map[string]string{"FOO": "bar"})
	require.NoError(t, err)
	assert.Equal(t, null.NewBool(false, false), opts.IncludeSystemEnvVars)
	assert.EqualValues(t, map[string]string{}, opts.Env)
}

func TestEnvNameValidationMessage(t *testing.T) {
	t.Parallel()
	flags := runtimeOptionFlagSet(true)
	require.NoError(t, flags.Parse([]string{"-e", "1var=x"}))

	_, err := getRuntimeOptions(flags, map[string]string{})
	require.EqualError(t, err, "invalid environment variable name '1var'")
}
