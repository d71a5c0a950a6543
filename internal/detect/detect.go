package detect

import (
	"fmt"
	"os"
	osexec "os/exec"
	"runtime"
	"sort"
	"strings"

	"github.com/felixgeelhaar/premerge/internal/exec"
)

// Context represents the detected agent environment
type Context struct {
	// Host OS, selects the per-OS cmake arguments
	OS string

	// Tools the checks shell out to, keyed by name
	Tools map[string]ToolInfo

	// Git context
	Git GitContext

	// CI/CD environment
	CI CIInfo
}

// ToolInfo holds tool detection results
type ToolInfo struct {
	Name      string
	Available bool
	Path      string
	Version   string
}

// GitContext holds Git repository information
type GitContext struct {
	Initialized bool
	Root        string
	Branch      string
	Head        string
}

// CIInfo holds CI/CD environment information
type CIInfo struct {
	Detected bool
	Name     string // "buildkite", "github", "gitlab", "jenkins", etc.
}

// BuildTools are needed for every run.
var BuildTools = []string{"cmake", "ninja", "git"}

// RequiredTools lists the tools a run with the given analysis steps needs.
func RequiredTools(format, tidy bool) []string {
	tools := append([]string{}, BuildTools...)
	if format {
		tools = append(tools, "clang-format-diff")
	}
	if tidy {
		tools = append(tools, "clang-tidy-diff")
	}
	return tools
}

// DetectAll runs all detection checks for the given tools
func DetectAll(tools []string) *Context {
	ctx := &Context{
		OS:    runtime.GOOS,
		Tools: make(map[string]ToolInfo, len(tools)),
	}
	for _, name := range tools {
		ctx.Tools[name] = detectTool(name)
	}
	ctx.Git = detectGit()
	ctx.CI = detectCI(os.Getenv)
	return ctx
}

// detectTool checks whether name is on PATH and asks it for a version
func detectTool(name string) ToolInfo {
	info := ToolInfo{Name: name}

	path, err := exec.LookTool(name)
	if err != nil {
		return info
	}
	info.Available = true
	info.Path = path

	// #nosec G204 -- path comes from LookPath of a fixed tool name
	output, err := osexec.Command(path, "--version").Output()
	if err == nil {
		info.Version = firstLine(string(output))
	}
	return info
}

// detectGit detects Git repository information
func detectGit() GitContext {
	git := GitContext{}

	output, err := osexec.Command("git", "rev-parse", "--show-toplevel").Output()
	if err != nil {
		return git
	}
	git.Initialized = true
	git.Root = strings.TrimSpace(string(output))

	if output, err = osexec.Command("git", "rev-parse", "--abbrev-ref", "HEAD").Output(); err == nil {
		git.Branch = strings.TrimSpace(string(output))
	}
	if output, err = osexec.Command("git", "rev-parse", "--short", "HEAD").Output(); err == nil {
		git.Head = strings.TrimSpace(string(output))
	}
	return git
}

// ciChecks maps a marker environment variable to the CI name. Buildkite is
// checked first because its agents often export other CI variables too.
var ciChecks = []struct {
	envVar string
	name   string
}{
	{"BUILDKITE", "buildkite"},
	{"GITHUB_ACTIONS", "github"},
	{"GITLAB_CI", "gitlab"},
	{"JENKINS_HOME", "jenkins"},
	{"CIRCLECI", "circleci"},
	{"TRAVIS", "travis"},
}

// detectCI detects CI/CD environment
func detectCI(getenv func(string) string) CIInfo {
	for _, c := range ciChecks {
		if getenv(c.envVar) != "" {
			return CIInfo{Detected: true, Name: c.name}
		}
	}
	return CIInfo{}
}

// Missing returns the names of tools that were not found, sorted
func (c *Context) Missing() []string {
	var missing []string
	for name, info := range c.Tools {
		if !info.Available {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

// Summary returns a human-readable summary of the detected context
func (c *Context) Summary() string {
	var sb strings.Builder

	sb.WriteString("Detected Context:\n\n")
	fmt.Fprintf(&sb, "  OS: %s\n", c.OS)

	names := make([]string, 0, len(c.Tools))
	for name := range c.Tools {
		names = append(names, name)
	}
	sort.Strings(names)

	sb.WriteString("\n  Tools:\n")
	for _, name := range names {
		info := c.Tools[name]
		if !info.Available {
			fmt.Fprintf(&sb, "    ✗ %s (not found)\n", name)
			continue
		}
		fmt.Fprintf(&sb, "    ✓ %s", name)
		if info.Version != "" {
			fmt.Fprintf(&sb, " (%s)", info.Version)
		}
		sb.WriteString("\n")
	}

	if c.Git.Initialized {
		fmt.Fprintf(&sb, "\n  Git Repository: %s (branch: %s, head: %s)\n",
			c.Git.Root, c.Git.Branch, c.Git.Head)
	}

	if c.CI.Detected {
		fmt.Fprintf(&sb, "  CI Environment: %s\n", c.CI.Name)
	}

	return sb.String()
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(line)
}
