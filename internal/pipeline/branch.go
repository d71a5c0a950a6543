package pipeline

import (
	"fmt"
	"sort"
	"strings"
)

// Defaults for the environment-driven options.
const (
	DefaultQueue         = "default"
	DefaultScriptsBranch = "master"
	DefaultScriptsRepo   = "https://github.com/felixgeelhaar/premerge.git"
	DefaultWindowsQueue  = "dev"
	DefaultMarkerGlob    = "artifacts/build_result_*.txt"
	artifactPaths        = "artifacts/**/*"
)

// BuildOptions configures the build-branch pipeline.
type BuildOptions struct {
	Queue        string // BUILDKITE_AGENT_META_DATA_QUEUE
	WindowsQueue string
	ScriptsRepo  string
}

func (o BuildOptions) withDefaults() BuildOptions {
	if o.Queue == "" {
		o.Queue = DefaultQueue
	}
	if o.WindowsQueue == "" {
		o.WindowsQueue = DefaultWindowsQueue
	}
	if o.ScriptsRepo == "" {
		o.ScriptsRepo = DefaultScriptsRepo
	}
	return o
}

// BuildBranch returns the pipeline run on a phab-diff-* branch: one build
// per OS, each reporting an intermediate status, and a report step that
// collects the markers and sends the final status.
//
// The build URL is attached to the target by "premerge run" itself.
func BuildBranch(opts BuildOptions) *Pipeline {
	opts = opts.withDefaults()
	fetch := []string{
		"export SRC=${BUILDKITE_BUILD_PATH}/premerge",
		"rm -rf ${SRC}",
		fmt.Sprintf("git clone --depth 1 --branch ${scripts_branch} %s ${SRC}", opts.ScriptsRepo),
		"(cd ${SRC} && go build -o bin/premerge ./cmd/premerge)",
	}

	linux := Step{
		Label: ":linux: build linux",
		Key:   "build-linux",
		Commands: append(append([]string{}, fetch...),
			"${SRC}/bin/premerge run --check-clang-format --check-clang-tidy --intermediate-status"),
		ArtifactPaths: []string{artifactPaths},
		Agents:        agents(opts.Queue, "linux"),
	}
	windows := Step{
		Label: ":windows: build windows",
		Key:   "build-windows",
		Commands: []string{
			"sccache --start-server",
			"sccache --show-stats",
			"set SRC=%BUILDKITE_BUILD_PATH%/premerge",
			"rm -rf %SRC%",
			fmt.Sprintf("git clone --depth 1 --branch %%scripts_branch%% %s %%SRC%%", opts.ScriptsRepo),
			"cd %SRC% && go build -o bin/premerge.exe ./cmd/premerge && cd %BUILDKITE_BUILD_CHECKOUT_PATH%",
			"%SRC%/bin/premerge.exe run --intermediate-status",
			"SET return=%errorlevel%",
			"sccache --show-stats",
			"exit %return%",
		},
		ArtifactPaths: []string{artifactPaths},
		Agents:        agents(opts.WindowsQueue, "windows"),
	}
	report := Step{
		Label:     ":scales: report",
		Key:       "report",
		DependsOn: []string{linux.Key, windows.Key},
		Commands: append([]string{
			"set -uo pipefail",
			"mkdir -p artifacts",
			"buildkite-agent artifact download clang-tidy.txt artifacts/clang-tidy.txt --step build-linux",
			`buildkite-agent artifact download "artifacts/build_result.txt" artifacts/build_result_linux.txt --step build-linux`,
			`buildkite-agent artifact download "artifacts\\build_result.txt" artifacts/build_result_windows.txt --step build-windows`,
			"ls artifacts",
		}, append(append([]string{}, fetch...),
			fmt.Sprintf(`${SRC}/bin/premerge set-status --markers "%s"`, DefaultMarkerGlob))...),
		AllowDependencyFailure: true,
		ArtifactPaths:          []string{artifactPaths},
		Agents:                 agents(opts.Queue, "linux"),
	}
	return &Pipeline{Steps: []Step{linux, windows, report}}
}

// CreateOptions configures the create-branch pipeline.
type CreateOptions struct {
	Queue  string
	DiffID string // ph_buildable_diff
	// Env is the process environment. Every ph_* entry is forwarded to the
	// triggered builds.
	Env map[string]string
}

// CreateBranch returns the pipeline that applies a diff onto a new
// phab-diff-<id> branch and triggers the per-OS premerge pipelines on it.
func CreateBranch(opts CreateOptions) *Pipeline {
	if opts.Queue == "" {
		opts.Queue = DefaultQueue
	}
	create := Step{
		Label:    "create branch",
		Key:      "create-branch",
		Commands: []string{"scripts/buildkite/apply_patch.sh"},
		Agents:   agents(opts.Queue, "linux"),
	}
	return &Pipeline{Steps: []Step{
		create,
		trigger(":linux: build and test", "premerge-checks", create.Key, opts),
		trigger(":windows: build and test", "premerge-checks-win", create.Key, opts),
	}}
}

func trigger(label, pipeline, dependsOn string, opts CreateOptions) Step {
	async := false
	env := map[string]string{"scripts_branch": "${BUILDKITE_BRANCH}"}
	for k, v := range opts.Env {
		if strings.HasPrefix(k, "ph_") {
			env[k] = v
		}
	}
	return Step{
		Label:     label,
		Trigger:   pipeline,
		Async:     &async,
		DependsOn: []string{dependsOn},
		Build: &TriggerBuild{
			Branch: "phab-diff-" + opts.DiffID,
			Env:    env,
		},
	}
}

// EnvMap converts os.Environ output into a map.
func EnvMap(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			m[k] = v
		}
	}
	return m
}

// ForwardedVars lists the ph_* names in env, sorted.
func ForwardedVars(env map[string]string) []string {
	var names []string
	for k := range env {
		if strings.HasPrefix(k, "ph_") {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}
