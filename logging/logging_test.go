package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoggerRespectsLevelThreshold(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriters(LevelInfo, &buf, &buf)

	l.Debug("should not appear")
	require.Empty(t, buf.String())

	l.Info("dispatch committed")
	require.Contains(t, buf.String(), "INFO")
	require.Contains(t, buf.String(), "dispatch committed")
}

func TestLoggerErrorWritesToErrOut(t *testing.T) {
	var out, errOut bytes.Buffer
	l := NewWithWriters(LevelInfo, &out, &errOut)

	l.Error("log append failed", F("lsn", 42))
	require.Empty(t, out.String())
	require.Contains(t, errOut.String(), "ERROR")
	require.Contains(t, errOut.String(), "lsn=42")
}

func TestWithFieldsMergesWithoutMutatingParent(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriters(LevelDebug, &buf, &buf)
	derived := base.WithFields(F("runtime", "r1"))

	derived.Info("hello", F("version", 3))
	require.Contains(t, buf.String(), "runtime=r1")
	require.Contains(t, buf.String(), "version=3")

	buf.Reset()
	base.Info("plain")
	require.NotContains(t, buf.String(), "runtime=r1")
}

func TestDiscardLoggerProducesNoOutput(t *testing.T) {
	require.NotPanics(t, func() {
		Discard.Info("anything", F("k", "v"))
		Discard.WithFields(F("a", 1)).Error("boom")
	})
}
