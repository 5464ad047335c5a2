package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWithWriterText(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "text")

	Info("credential cached", "principal", "HTTP/host@EXAMPLE.COM")
	out := buf.String()
	assert.Contains(t, out, "credential cached")
	assert.Contains(t, out, "HTTP/host@EXAMPLE.COM")
}

func TestInitWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "json")

	Warn("keytab reload failed", "path", "/stackable/admin.keytab")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "keytab reload failed", record["msg"])
	assert.Equal(t, "/stackable/admin.keytab", record["path"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "WARN", "text")

	Debug("hidden entry")
	Info("hidden entry")
	Error("visible entry")

	out := buf.String()
	assert.NotContains(t, out, "hidden entry")
	assert.Contains(t, out, "visible entry")
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "text")

	Debug("before")
	SetLevel("DEBUG")
	Debug("after")

	out := buf.String()
	assert.False(t, strings.Contains(out, "before"))
	assert.Contains(t, out, "after")
}
