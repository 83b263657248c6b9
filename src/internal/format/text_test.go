// FILE: evsink/src/internal/format/text_test.go
package format

import (
	"testing"

	"evsink/src/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTextFormatter(t *testing.T) {
	t.Run("InvalidTemplate", func(t *testing.T) {
		_, err := NewTextFormatter("{{ .Ms | InvalidFunc }}", newTestLogger())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid template")
	})
}

func TestTextFormatter_Format(t *testing.T) {
	logger := newTestLogger()
	entries := sampleEntries()

	t.Run("DefaultTemplate", func(t *testing.T) {
		formatter, err := NewTextFormatter("", logger)
		require.NoError(t, err)

		output, err := formatter.Format(entries[0])
		require.NoError(t, err)
		assert.Equal(t, "1.250s start  [info] #7 <#3 build building '/nix/store/abc-hello.drv' /nix/store/abc-hello.drv  1 1\n", string(output))

		output, err = formatter.Format(entries[1])
		require.NoError(t, err)
		assert.Equal(t, "1.300s msg    [warn] warning: dirty tree\n", string(output))

		output, err = formatter.Format(entries[3])
		require.NoError(t, err)
		assert.Equal(t, "2.000s stop   #7\n", string(output))
	})

	t.Run("CustomTemplate", func(t *testing.T) {
		formatter, err := NewTextFormatter("{{ToUpper .Kind}}:{{.ID}}:{{.Text}}", logger)
		require.NoError(t, err)

		output, err := formatter.Format(entries[1])
		require.NoError(t, err)
		assert.Equal(t, "MSG:0:warning: dirty tree\n", string(output))
	})

	t.Run("Batch", func(t *testing.T) {
		formatter, err := NewTextFormatter("{{.Kind}}", logger)
		require.NoError(t, err)

		output, err := formatter.FormatBatch(entries)
		require.NoError(t, err)
		assert.Equal(t, "start\nmsg\nresult\nstop\n", string(output))
	})

	t.Run("MessageWithoutText", func(t *testing.T) {
		formatter, err := NewTextFormatter("", logger)
		require.NoError(t, err)

		output, err := formatter.Format(core.Entry{Kind: core.KindMessage, Level: core.VerbosityError})
		require.NoError(t, err)
		assert.Equal(t, "0.000s msg    [error]\n", string(output))
	})
}
