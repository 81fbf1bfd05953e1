package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	logger := newLogger()

	require.NotNil(t, logger)
	formatter, ok := logger.Formatter.(*logrus.TextFormatter)
	require.True(t, ok)
	assert.Equal(t, time.RFC3339Nano, formatter.TimestampFormat)
	assert.True(t, formatter.FullTimestamp)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}

func TestGetLogger(t *testing.T) {
	t.Run("falls back to global logger", func(t *testing.T) {
		entry := G(context.Background())
		require.NotNil(t, entry)
		assert.Equal(t, L.Logger, entry.Logger)
	})

	t.Run("returns logger stored in context", func(t *testing.T) {
		custom := logrus.NewEntry(logrus.New()).WithField("component", "canonical")
		ctx := WithLogger(context.Background(), custom)

		entry := G(ctx)
		assert.Equal(t, "canonical", entry.Data["component"])
	})
}

func TestWithRunID(t *testing.T) {
	ctx, runID := WithRunID(context.Background())

	_, err := uuid.Parse(runID)
	require.NoError(t, err)
	assert.Equal(t, runID, G(ctx).Data[RunIDField])

	_, other := WithRunID(context.Background())
	assert.NotEqual(t, runID, other)
}

func TestSetLogLevel(t *testing.T) {
	original := L.Logger.GetLevel()
	defer L.Logger.SetLevel(original)

	require.NoError(t, SetLogLevel("debug"))
	assert.Equal(t, logrus.DebugLevel, L.Logger.GetLevel())

	assert.Error(t, SetLogLevel("chatty"))
	assert.Equal(t, logrus.DebugLevel, L.Logger.GetLevel())
}

func TestSetLogFormatJSON(t *testing.T) {
	originalFormatter := L.Logger.Formatter
	originalOut := L.Logger.Out
	defer func() {
		L.Logger.Formatter = originalFormatter
		L.Logger.SetOutput(originalOut)
	}()

	var buf bytes.Buffer
	SetLogFormat("json")
	SetLogOutput(&buf)

	L.WithField("path", "docs/a/index.html").Info("adding canonical tag")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "adding canonical tag", record["message"])
	assert.Equal(t, "info", record["logLevel"])
	assert.Equal(t, "docs/a/index.html", record["path"])
	assert.Contains(t, record, "timestamp")
}

func TestFormatterFor(t *testing.T) {
	tests := []struct {
		format string
		json   bool
	}{
		{FormatJSON, true},
		{FormatFmt, false},
		{FormatText, false},
		{"yaml", false},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			_, isJSON := formatterFor(tt.format).(*logrus.JSONFormatter)
			assert.Equal(t, tt.json, isJSON)
		})
	}
}
