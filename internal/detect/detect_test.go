package detect

import (
	"runtime"
	"strings"
	"testing"
)

func TestRequiredTools(t *testing.T) {
	tests := []struct {
		name   string
		format bool
		tidy   bool
		want   []string
	}{
		{"build only", false, false, []string{"cmake", "ninja", "git"}},
		{"format", true, false, []string{"cmake", "ninja", "git", "clang-format-diff"}},
		{"both", true, true, []string{"cmake", "ninja", "git", "clang-format-diff", "clang-tidy-diff"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RequiredTools(tt.format, tt.tidy)
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("RequiredTools() = %v, want %v", got, tt.want)
			}
		})
	}

	// The shared prefix must not be aliased.
	a := RequiredTools(true, false)
	_ = RequiredTools(false, true)
	if a[3] != "clang-format-diff" {
		t.Errorf("RequiredTools() result was modified by a later call: %v", a)
	}
}

func TestDetectCI(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want CIInfo
	}{
		{"none", map[string]string{}, CIInfo{}},
		{"buildkite", map[string]string{"BUILDKITE": "true"}, CIInfo{Detected: true, Name: "buildkite"}},
		{"github", map[string]string{"GITHUB_ACTIONS": "true"}, CIInfo{Detected: true, Name: "github"}},
		{
			name: "buildkite wins",
			env:  map[string]string{"JENKINS_HOME": "/var/jenkins", "BUILDKITE": "true"},
			want: CIInfo{Detected: true, Name: "buildkite"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detectCI(func(k string) string { return tt.env[k] })
			if got != tt.want {
				t.Errorf("detectCI() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDetectToolMissing(t *testing.T) {
	info := detectTool("premerge-no-such-tool")
	if info.Available || info.Path != "" {
		t.Errorf("detectTool() = %+v, want unavailable", info)
	}
	if info.Name != "premerge-no-such-tool" {
		t.Errorf("detectTool().Name = %q", info.Name)
	}
}

func TestDetectAllUsesHostOS(t *testing.T) {
	ctx := DetectAll([]string{"premerge-no-such-tool"})
	if ctx.OS != runtime.GOOS {
		t.Errorf("OS = %s, want %s", ctx.OS, runtime.GOOS)
	}
	if got := ctx.Missing(); len(got) != 1 || got[0] != "premerge-no-such-tool" {
		t.Errorf("Missing() = %v", got)
	}
}

func TestContext_Missing(t *testing.T) {
	ctx := &Context{Tools: map[string]ToolInfo{
		"ninja":      {Name: "ninja"},
		"cmake":      {Name: "cmake", Available: true},
		"clang-tidy": {Name: "clang-tidy"},
	}}
	got := ctx.Missing()
	if strings.Join(got, ",") != "clang-tidy,ninja" {
		t.Errorf("Missing() = %v, want [clang-tidy ninja]", got)
	}
}

func TestContext_Summary(t *testing.T) {
	ctx := &Context{
		OS: "linux",
		Tools: map[string]ToolInfo{
			"cmake": {Name: "cmake", Available: true, Version: "cmake version 3.27.0"},
			"ninja": {Name: "ninja"},
		},
		Git: GitContext{
			Initialized: true,
			Root:        "/build/llvm-project",
			Branch:      "phab-diff-42",
			Head:        "abc1234",
		},
		CI: CIInfo{Detected: true, Name: "buildkite"},
	}

	summary := ctx.Summary()

	expected := []string{
		"OS: linux",
		"✓ cmake (cmake version 3.27.0)",
		"✗ ninja (not found)",
		"Git Repository: /build/llvm-project (branch: phab-diff-42, head: abc1234)",
		"CI Environment: buildkite",
	}
	for _, s := range expected {
		if !strings.Contains(summary, s) {
			t.Errorf("Summary() missing %q\n%s", s, summary)
		}
	}
	if strings.Index(summary, "cmake") > strings.Index(summary, "ninja") {
		t.Errorf("Summary() tools are not sorted:\n%s", summary)
	}
}

func TestFirstLine(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"ninja 1.11.1\n", "ninja 1.11.1"},
		{"cmake version 3.27.0\n\nCMake suite maintained\n", "cmake version 3.27.0"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := firstLine(tt.in); got != tt.want {
			t.Errorf("firstLine(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
