package presenter

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	p := New()
	assert.NotNil(t, p)
	assert.Equal(t, os.Stdout, p.output)
	assert.Equal(t, os.Stderr, p.errorOutput)
	assert.False(t, p.quiet)
}

func TestDetectColorMode(t *testing.T) {
	tests := []struct {
		name     string
		noColor  string
		envColor string
		expected ColorMode
	}{
		{"NO_COLOR set", "1", "", ColorNever},
		{"NO_COLOR wins over force", "1", "always", ColorNever},
		{"POSTRENDER_COLOR always", "", "always", ColorAlways},
		{"POSTRENDER_COLOR force", "", "force", ColorAlways},
		{"POSTRENDER_COLOR never", "", "never", ColorNever},
		{"POSTRENDER_COLOR off", "", "off", ColorNever},
		{"default", "", "", ColorAuto},
		{"unknown value", "", "sometimes", ColorAuto},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", tt.noColor)
			t.Setenv("POSTRENDER_COLOR", tt.envColor)

			assert.Equal(t, tt.expected, detectColorMode())
		})
	}
}

func TestError(t *testing.T) {
	var out, errOut bytes.Buffer
	p := NewWithOptions(&out, &errOut, ColorNever)

	p.Error(errors.New("open docs/a/index.html: no such file"), "Failed to inject canonical tags")
	assert.Equal(t, "[ERROR] Failed to inject canonical tags: open docs/a/index.html: no such file\n", errOut.String())

	errOut.Reset()
	p.Error(errors.New("boom"), "")
	assert.Equal(t, "[ERROR] boom\n", errOut.String())

	errOut.Reset()
	p.Error(nil, "ignored")
	assert.Empty(t, errOut.String())
	assert.Empty(t, out.String())
}

func TestMessages(t *testing.T) {
	var out, errOut bytes.Buffer
	p := NewWithOptions(&out, &errOut, ColorNever)

	p.Success("Generated docs/llms.txt (3 posts)")
	p.Info("docs/a/index.html adding canonical tag.")
	p.Warning("docs/b/index.html already contains canonical tag. Skipping this file.")
	p.Section("Canonical tags")

	assert.Equal(t,
		"✓ Generated docs/llms.txt (3 posts)\n"+
			"docs/a/index.html adding canonical tag.\n"+
			"Canonical tags\n"+
			"--------------\n",
		out.String())
	assert.Equal(t, "⚠ docs/b/index.html already contains canonical tag. Skipping this file.\n", errOut.String())
}

func TestQuietMode(t *testing.T) {
	var out, errOut bytes.Buffer
	p := NewWithOptions(&out, &errOut, ColorNever)
	p.SetQuiet(true)
	assert.True(t, p.IsQuiet())

	p.Success("ok")
	p.Info("info")
	p.Warning("warn")
	p.Section("section")
	p.Diff("--- a\n+++ b\n")
	assert.Empty(t, out.String())
	assert.Empty(t, errOut.String())

	p.Error(errors.New("still shown"), "")
	assert.Contains(t, errOut.String(), "still shown")
}

func TestDiff(t *testing.T) {
	var out bytes.Buffer
	p := NewWithOptions(&out, &out, ColorNever)

	diff := "--- docs/a/index.html\n+++ docs/a/index.html\n@@ -1,2 +1,3 @@\n <head>\n+<link rel=\"canonical\" href=\"https://ex.com/a/\" />\n </head>\n"
	p.Diff(diff)
	assert.Equal(t, diff, out.String())

	out.Reset()
	p.Diff("")
	assert.Empty(t, out.String())
}

func TestSetDefault(t *testing.T) {
	var out, errOut bytes.Buffer
	prev := SetDefault(NewWithOptions(&out, &errOut, ColorNever))
	defer SetDefault(prev)

	Info("hello")
	Warning("careful")
	assert.Equal(t, "hello\n", out.String())
	assert.Equal(t, "⚠ careful\n", errOut.String())
}
