package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestGetInfo(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, Date
	Version = "1.0.0"
	Commit = "abc123def456"
	Date = "2024-01-01T12:00:00Z"
	defer func() {
		Version, Commit, Date = origVersion, origCommit, origDate
	}()

	info := GetInfo()

	if info.Version != "1.0.0" {
		t.Errorf("GetInfo().Version = %v, want 1.0.0", info.Version)
	}
	if info.Commit != "abc123def456" {
		t.Errorf("GetInfo().Commit = %v, want abc123def456", info.Commit)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GetInfo().GoVersion = %v, want %v", info.GoVersion, runtime.Version())
	}
	if expected := runtime.GOOS + "/" + runtime.GOARCH; info.Platform != expected {
		t.Errorf("GetInfo().Platform = %v, want %v", info.Platform, expected)
	}
}

func TestInfoString(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want []string
	}{
		{
			name: "long commit is shortened",
			info: Info{Version: "1.2.3", Commit: "abc123def456789", Date: "2024-01-01", GoVersion: "go1.24.6", Platform: "linux/amd64"},
			want: []string{"premerge 1.2.3", "(abc123de)", "built 2024-01-01", "go1.24.6", "linux/amd64"},
		},
		{
			name: "short commit kept",
			info: Info{Version: "dev", Commit: "abc", Date: "unknown", GoVersion: "go1.24.6", Platform: "windows/amd64"},
			want: []string{"premerge dev", "(abc)", "windows/amd64"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.info.String()
			for _, s := range tt.want {
				if !strings.Contains(got, s) {
					t.Errorf("String() = %q, missing %q", got, s)
				}
			}
		})
	}
}

func TestUserAgent(t *testing.T) {
	info := Info{Version: "0.4.0", Platform: "linux/arm64"}
	if got := info.UserAgent(); got != "premerge/0.4.0 (linux/arm64)" {
		t.Errorf("UserAgent() = %q", got)
	}
}
