package js

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/dop251/goja"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.wisp.dev/wisp/js/common"
)

func TestConsoleContext(t *testing.T) {
	rt := goja.New()
	rt.SetFieldNameMapper(common.FieldNameMapper{})

	logger, hook := logtest.NewNullLogger()
	require.NoError(t, rt.Set("console", &console{logger}))

	_, err := rt.RunString(`console.log("a")`)
	require.NoError(t, err)
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "a", entry.Message)

	_, err = rt.RunString(`console.log("b")`)
	require.NoError(t, err)
	entry = hook.LastEntry()
	require.NotNil(t, entry)
	require.Equal(t, "b", entry.Message)
}

func TestConsoleLevels(t *testing.T) {
	levels := map[string]logrus.Level{
		"log":   logrus.InfoLevel,
		"debug": logrus.DebugLevel,
		"info":  logrus.InfoLevel,
		"warn":  logrus.WarnLevel,
		"error": logrus.ErrorLevel,
	}
	for method, level := range levels {
		t.Run(method, func(t *testing.T) {
			rt := goja.New()
			rt.SetFieldNameMapper(common.FieldNameMapper{})

			logger, hook := logtest.NewNullLogger()
			logger.SetLevel(logrus.DebugLevel)
			require.NoError(t, rt.Set("console", newConsole(logger)))

			_, err := rt.RunString(`console.` + method + `("hi")`)
			require.NoError(t, err)

			entry := hook.LastEntry()
			require.NotNil(t, entry, "nothing logged")
			assert.Equal(t, "hi", entry.Message)
			assert.Equal(t, level, entry.Level)
			assert.Equal(t, "console", entry.Data["source"])
		})
	}
}

func TestConsoleValues(t *testing.T) {
	testdata := map[string]string{
		`"string"`:         "string",
		`"a" + "b"`:        "ab",
		`1`:                "1",
		`1.25`:             "1.25",
		`true`:             "true",
		`null`:             "null",
		`undefined`:        "undefined",
		`[1, 2, 3]`:        "[1,2,3]",
		`{a: 1}`:           `{"a":1}`,
		`function() {}`:    "[object Function]",
		`"a", "b", 1`:      "a b 1",
		`new Error("hmm")`: "Error: hmm",
	}
	for args, expected := range testdata {
		t.Run(args, func(t *testing.T) {
			rt := goja.New()
			rt.SetFieldNameMapper(common.FieldNameMapper{})

			logger, hook := logtest.NewNullLogger()
			require.NoError(t, rt.Set("console", newConsole(logger)))

			_, err := rt.RunString(`console.log(` + args + `)`)
			require.NoError(t, err)

			entry := hook.LastEntry()
			require.NotNil(t, entry, "nothing logged")
			assert.Equal(t, expected, entry.Message)
		})
	}
}

func TestFileConsole(t *testing.T) {
	logfile := filepath.Join(t.TempDir(), "console.log")

	c, err := newFileConsole(logfile, &logrus.JSONFormatter{}, logrus.InfoLevel)
	require.NoError(t, err)

	rt := goja.New()
	rt.SetFieldNameMapper(common.FieldNameMapper{})
	require.NoError(t, rt.Set("console", c))

	_, err = rt.RunString(`console.log("through the file")`)
	require.NoError(t, err)

	data, err := os.ReadFile(logfile) //nolint:gosec
	require.NoError(t, err)

	var line struct {
		Level string `json:"level"`
		Msg   string `json:"msg"`
	}
	require.NoError(t, json.Unmarshal(data, &line))
	assert.Equal(t, "info", line.Level)
	assert.Equal(t, "through the file", line.Msg)
}
