package buildinfo

import (
	"strings"
	"testing"
)

func TestTemplate(t *testing.T) {
	old := [3]string{Version, Commit, Date}
	t.Cleanup(func() { Version, Commit, Date = old[0], old[1], old[2] })
	Version, Commit, Date = "v1.2.3", "abc123", "2026-01-02T03:04:05Z"

	if got := Template(); !strings.HasPrefix(got, "{{.Name}} version v1.2.3\n") || !strings.Contains(got, "commit: abc123") {
		t.Errorf("Template() = %q", got)
	}
}
