package cli

import (
	"strings"
	"testing"
)

func TestRenderSnapshotTable(t *testing.T) {
	infos := []snapshotInfo{
		{name: "work", title: "Work", tasks: 4, pinned: 1},
		{name: "broken", corrupt: true},
	}

	out := renderSnapshotTable(infos, "work")
	for _, want := range []string{"Name", "work", "Work", "4", "broken", "(unreadable)", "›"} {
		if !strings.Contains(out, want) {
			t.Errorf("renderSnapshotTable() missing %q:\n%s", want, out)
		}
	}
}

func TestDescribeURL(t *testing.T) {
	if got := describeURL(""); got != "default" {
		t.Errorf("describeURL(\"\") = %q, want default", got)
	}
	if got := describeURL("redis://localhost:6379/0"); got != "redis://localhost:6379/0" {
		t.Errorf("describeURL() = %q", got)
	}
}
