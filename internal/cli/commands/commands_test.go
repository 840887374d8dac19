package commands

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateAppendInspectRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "doc")

	var createOut bytes.Buffer
	createCmd := NewCreateCommand()
	createCmd.SetOut(&createOut)
	createCmd.SetArgs([]string{dir})
	require.NoError(t, createCmd.Execute())
	require.Contains(t, createOut.String(), "created document in")

	var appendOut bytes.Buffer
	appendCmd := NewAppendCommand()
	appendCmd.SetOut(&appendOut)
	appendCmd.SetArgs([]string{dir, "hello world"})
	require.NoError(t, appendCmd.Execute())
	require.Contains(t, appendOut.String(), "appended paragraph")

	var inspectOut bytes.Buffer
	inspectCmd := NewInspectCommand()
	inspectCmd.SetOut(&inspectOut)
	inspectCmd.SetArgs([]string{dir})
	require.NoError(t, inspectCmd.Execute())
	require.Contains(t, inspectOut.String(), "doc ")
	require.Contains(t, inspectOut.String(), "page ")
	require.Contains(t, inspectOut.String(), `text="hello world"`)
}

func TestReplayReportsDeterministicRecovery(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "doc")

	createCmd := NewCreateCommand()
	createCmd.SetArgs([]string{dir})
	require.NoError(t, createCmd.Execute())

	appendCmd := NewAppendCommand()
	appendCmd.SetArgs([]string{dir, "first paragraph"})
	require.NoError(t, appendCmd.Execute())

	var replayOut bytes.Buffer
	replayCmd := NewReplayCommand()
	replayCmd.SetOut(&replayOut)
	replayCmd.SetArgs([]string{dir})
	require.NoError(t, replayCmd.Execute())
	require.Contains(t, replayOut.String(), "replay is deterministic")
}

func TestAppendWithExplicitPageFlag(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "doc")

	createCmd := NewCreateCommand()
	createCmd.SetArgs([]string{dir})
	require.NoError(t, createCmd.Execute())

	inspectOut := &bytes.Buffer{}
	inspectCmd := NewInspectCommand()
	inspectCmd.SetOut(inspectOut)
	inspectCmd.SetArgs([]string{dir})
	require.NoError(t, inspectCmd.Execute())

	pageId := extractPageId(t, inspectOut.String())

	var appendOut bytes.Buffer
	appendCmd := NewAppendCommand()
	appendCmd.SetOut(&appendOut)
	appendCmd.SetArgs([]string{dir, "targeted paragraph", "--page", pageId})
	require.NoError(t, appendCmd.Execute())
	require.Contains(t, appendOut.String(), pageId)
}

func TestInspectNextTypesReportsLegalFollowupTypes(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "doc")

	createCmd := NewCreateCommand()
	createCmd.SetArgs([]string{dir})
	require.NoError(t, createCmd.Execute())

	firstInspectOut := &bytes.Buffer{}
	inspectCmd := NewInspectCommand()
	inspectCmd.SetOut(firstInspectOut)
	inspectCmd.SetArgs([]string{dir})
	require.NoError(t, inspectCmd.Execute())
	pageId := extractPageId(t, firstInspectOut.String())

	appendCmd := NewAppendCommand()
	appendCmd.SetArgs([]string{dir, "first paragraph", "--page", pageId})
	require.NoError(t, appendCmd.Execute())

	var nextTypesOut bytes.Buffer
	secondInspectCmd := NewInspectCommand()
	secondInspectCmd.SetOut(&nextTypesOut)
	secondInspectCmd.SetArgs([]string{dir, "--next-types", pageId})
	require.NoError(t, secondInspectCmd.Execute())
	require.Contains(t, nextTypesOut.String(), "next types after "+pageId+": para")
}

func extractPageId(t *testing.T, tree string) string {
	t.Helper()
	for _, line := range strings.Split(tree, "\n") {
		trimmed := strings.TrimLeft(line, " ")
		if trimmed == line {
			continue // top-level doc line, not indented
		}
		fields := strings.Fields(trimmed)
		if len(fields) >= 2 && fields[0] == "page" {
			return fields[1]
		}
	}
	t.Fatalf("no page line found in tree:\n%s", tree)
	return ""
}
