package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestGet_LdflagsWin(t *testing.T) {
	oldVersion, oldCommit, oldBuild := Version, Commit, BuildTime
	t.Cleanup(func() { Version, Commit, BuildTime = oldVersion, oldCommit, oldBuild })

	Version, Commit, BuildTime = "1.2.3", "abc1234", "2026-01-02T03:04:05Z"

	info := Get()
	if info.Version != "1.2.3" || info.Commit != "abc1234" || info.BuildTime != "2026-01-02T03:04:05Z" {
		t.Errorf("Get() = %+v, want ldflags values", info)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}

	if got, want := String(), "1.2.3 (abc1234) built 2026-01-02T03:04:05Z"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestGet_Defaults(t *testing.T) {
	info := Get()
	if info.Version == "" || info.Commit == "" {
		t.Errorf("Get() = %+v, want non-empty version and commit", info)
	}
	if !strings.HasPrefix(String(), info.Version+" (") {
		t.Errorf("String() = %q, want prefix %q", String(), info.Version+" (")
	}
}
