package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secretline/internal/logging"
)

func TestSetupJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, logging.Setup("debug", "json", &buf))
	t.Cleanup(func() { _ = logging.Setup("info", "text", nil) })

	logging.For("direct").WithField("channel_id", "c1").Debug("state changed")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "direct", line["package"])
	assert.Equal(t, "c1", line["channel_id"])
	assert.Equal(t, "state changed", line["msg"])
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
}

func TestSetupRejectsBadInput(t *testing.T) {
	t.Cleanup(func() { _ = logging.Setup("info", "text", nil) })
	assert.Error(t, logging.Setup("info", "xml", nil))
	assert.Error(t, logging.Setup("loud", "text", nil))
}
