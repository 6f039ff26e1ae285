package logging_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/goCred/internal/logging"
)

func TestNew(t *testing.T) {
	t.Run("json by default", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logging.New(logging.WithOutput(buf))
		log.Info("hello", logging.CredentialID("rc_1"))

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "INFO", entry["level"])
		assert.Equal(t, "hello", entry["msg"])
		assert.Equal(t, "rc_1", entry["credential_id"])
	})

	t.Run("text format", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logging.New(logging.WithOutput(buf), logging.WithFormat(logging.FormatText))
		log.Info("hello")
		assert.Contains(t, buf.String(), "level=INFO")
	})

	t.Run("level filters", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logging.New(logging.WithOutput(buf), logging.WithLevel(slog.LevelWarn))
		log.Info("quiet")
		assert.Empty(t, buf.String())
	})

	t.Run("static attributes", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logging.New(logging.WithOutput(buf), logging.WithAttr(logging.Component("gocred")))
		log.Info("hello")
		assert.Contains(t, buf.String(), `"component":"gocred"`)
	})

	t.Run("invalid format panics", func(t *testing.T) {
		assert.Panics(t, func() { logging.WithFormat("xml") })
		assert.Panics(t, func() { logging.New(logging.WithFormat("xml")) })
	})
}

func TestSecretsRedacted(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logging.New(logging.WithOutput(buf))
	log.Info("issued", slog.String("code", "ABCD2345"), slog.String("Token", "abc"), logging.UserID("u1"))

	out := buf.String()
	assert.NotContains(t, out, "ABCD2345")
	assert.NotContains(t, out, `"abc"`)
	assert.Contains(t, out, `"user_id":"u1"`)
}

func TestParseLevel(t *testing.T) {
	l, err := logging.ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, l)

	l, err = logging.ParseLevel(" WARN ")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, l)

	_, err = logging.ParseLevel("loud")
	assert.Error(t, err)
}

func TestErrorAttr(t *testing.T) {
	assert.True(t, logging.Error(nil).Equal(slog.Attr{}))
	assert.Equal(t, "error", logging.Error(errors.New("x")).Key)
}
