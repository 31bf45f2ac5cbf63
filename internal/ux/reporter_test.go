package ux

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReporterOutput(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)

	r.RunStarted("Build a seat booking web app.\nWith details.", 2)
	r.FeatureStarted("booking api", 1, 2)
	r.AttemptStarted("booking api", 1)
	r.AttemptStarted("booking api", 2)
	r.AttemptFailed("booking api", 2, "Command failed (exit 1): tests\nOutput:\nboom")
	r.FeatureCompleted("booking api")
	r.FeatureStarted("booking ui", 2, 2)
	r.FeatureAbandoned("booking ui", 5)
	r.RunCompleted(1, 1)

	out := buf.String()
	assert.Contains(t, out, "Build a seat booking web app.")
	assert.NotContains(t, out, "With details.")
	assert.Contains(t, out, "[1/2] booking api")
	assert.Contains(t, out, "retry 2")
	assert.Contains(t, out, "Command failed (exit 1): tests")
	assert.Contains(t, out, "abandoned after 5 attempts")
	assert.Contains(t, out, "1 abandoned")
}

func TestReporterFirstAttemptSilent(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)

	r.AttemptStarted("booking api", 1)
	assert.Empty(t, buf.String())
}

func TestRunCompletedClean(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).RunCompleted(3, 0)
	assert.Contains(t, buf.String(), "3 features completed")
}
