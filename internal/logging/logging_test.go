package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_WritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pflow.log")

	closer, err := Setup(path, "debug")
	require.NoError(t, err)
	log.Debug().Str("deal", "1").Msg("deal moved")
	require.NoError(t, closer.Close())
	t.Cleanup(Discard)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &rec))
	assert.Equal(t, "deal moved", rec["message"])
	assert.Equal(t, "1", rec["deal"])
	assert.Equal(t, "pflow", rec["app"])
	assert.Equal(t, "debug", rec["level"])
}

func TestUse_Level(t *testing.T) {
	var buf bytes.Buffer
	Use(&buf, zerolog.WarnLevel)
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
		Discard()
	})

	log.Info().Msg("hidden")
	log.Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/state")
	assert.Equal(t, filepath.Join("/state", "pflow", "pflow.log"), DefaultPath())
}
