package cmd

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleWriter(t *testing.T) {
	t.Parallel()

	t.Run("TTY", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		w := &consoleWriter{Writer: &buf, IsTTY: true, Mutex: &sync.Mutex{}}
		n, err := w.Write([]byte("hello\nworld\n"))
		require.NoError(t, err)
		// The reported length is for the original payload, not the
		// expanded one.
		assert.Equal(t, len("hello\nworld\n"), n)
		assert.Equal(t, "hello\x1b[0K\nworld\x1b[0K\n", buf.String())
	})

	t.Run("NotTTY", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		w := &consoleWriter{Writer: &buf, IsTTY: false, Mutex: &sync.Mutex{}}
		n, err := w.Write([]byte("plain\ntext\n"))
		require.NoError(t, err)
		assert.Equal(t, len("plain\ntext\n"), n)
		assert.Equal(t, "plain\ntext\n", buf.String())
	})
}
