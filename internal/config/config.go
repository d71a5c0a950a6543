// Package config handles premerge configuration using Viper.
//
// Values come from, in increasing priority: defaults, an optional YAML
// file, environment variables and command-line flags. The environment
// variables are the ones Buildkite and the Phabricator build plan set, so
// their names are fixed.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/felixgeelhaar/premerge/internal/classify"
	"github.com/felixgeelhaar/premerge/internal/errors"
)

// DefaultFile is read from the working directory when --config is not set.
const DefaultFile = ".premerge.yaml"

// Upload backends.
const (
	UploadAuto      = "auto"
	UploadNone      = "none"
	UploadBuildkite = "buildkite"
	UploadGCS       = "gcs"
)

// Config holds the premerge configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Conduit   ConduitConfig   `mapstructure:"conduit"`
	Target    TargetConfig    `mapstructure:"target"`
	Buildkite BuildkiteConfig `mapstructure:"buildkite"`
	Checks    ChecksConfig    `mapstructure:"checks"`
	Build     BuildConfig     `mapstructure:"build"`
	Upload    UploadConfig    `mapstructure:"upload"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`

	// ScriptsBranch is the branch of this tool the pipelines check out.
	ScriptsBranch string `mapstructure:"scripts_branch"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ConduitConfig holds the Phabricator API settings.
type ConduitConfig struct {
	URL      string        `mapstructure:"url"`
	Token    string        `mapstructure:"token"`
	DryRun   bool          `mapstructure:"dry_run"`
	RetryMax int           `mapstructure:"retry_max"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// TargetConfig identifies the Harbormaster target and the diff under test.
type TargetConfig struct {
	PHID       string `mapstructure:"phid"`
	DiffID     string `mapstructure:"diff"`
	RevisionID string `mapstructure:"revision"`
	BuildID    string `mapstructure:"build_id"`
}

// BuildkiteConfig mirrors the BUILDKITE_* job environment.
type BuildkiteConfig struct {
	BuildURL              string `mapstructure:"build_url"`
	Branch                string `mapstructure:"branch"`
	Repo                  string `mapstructure:"repo"`
	BuildNumber           string `mapstructure:"build_number"`
	JobID                 string `mapstructure:"job_id"`
	Organization          string `mapstructure:"organization"`
	Pipeline              string `mapstructure:"pipeline"`
	TriggeredFromBuild    string `mapstructure:"triggered_from_build"`
	TriggeredFromPipeline string `mapstructure:"triggered_from_pipeline"`
	Queue                 string `mapstructure:"queue"`
}

// ChecksConfig selects and configures the static analysis.
type ChecksConfig struct {
	Format       bool   `mapstructure:"clang_format"`
	Tidy         bool   `mapstructure:"clang_tidy"`
	Base         string `mapstructure:"base"`
	IgnoreMode   string `mapstructure:"ignore_mode"`
	FormatIgnore string `mapstructure:"format_ignore"`
	TidyIgnore   string `mapstructure:"tidy_ignore"`
}

// BuildConfig configures cmake.
type BuildConfig struct {
	CMakeConfig string `mapstructure:"cmake_config"` // Embedded default when empty
	Projects    string `mapstructure:"projects"`     // "default" or a ;-separated list
	// Intermediate reports a "work" status instead of pass/fail, for builds
	// that are one of several per diff.
	Intermediate bool `mapstructure:"intermediate"`
}

// UploadConfig selects where artifacts are hosted.
type UploadConfig struct {
	Backend   string `mapstructure:"backend"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	GCSPrefix string `mapstructure:"gcs_prefix"`
}

// TelemetryConfig holds tracing configuration.
type TelemetryConfig struct {
	Endpoint string `mapstructure:"otel_endpoint"`
	Insecure bool   `mapstructure:"otel_insecure"`
}

// envBindings maps configuration keys to the environment of a build.
var envBindings = map[string]string{
	"conduit.token":                     "CONDUIT_TOKEN",
	"target.phid":                       "ph_target_phid",
	"target.diff":                       "ph_buildable_diff",
	"target.revision":                   "ph_buildable_revision",
	"target.build_id":                   "ph_build_id",
	"buildkite.build_url":               "BUILDKITE_BUILD_URL",
	"buildkite.branch":                  "BUILDKITE_BRANCH",
	"buildkite.repo":                    "BUILDKITE_REPO",
	"buildkite.build_number":            "BUILDKITE_BUILD_NUMBER",
	"buildkite.job_id":                  "BUILDKITE_JOB_ID",
	"buildkite.organization":            "BUILDKITE_ORGANIZATION_SLUG",
	"buildkite.pipeline":                "BUILDKITE_PIPELINE_SLUG",
	"buildkite.triggered_from_build":    "BUILDKITE_TRIGGERED_FROM_BUILD_NUMBER",
	"buildkite.triggered_from_pipeline": "BUILDKITE_TRIGGERED_FROM_BUILD_PIPELINE_SLUG",
	"buildkite.queue":                   "BUILDKITE_AGENT_META_DATA_QUEUE",
	"scripts_branch":                    "scripts_branch",
	"telemetry.otel_endpoint":           "OTEL_EXPORTER_OTLP_ENDPOINT",
}

// flagBindings maps flag names to configuration keys. Flags that a command
// does not define are skipped.
var flagBindings = map[string]string{
	"log-level":           "log.level",
	"log-format":          "log.format",
	"otel-endpoint":       "telemetry.otel_endpoint",
	"conduit-url":         "conduit.url",
	"dry-run":             "conduit.dry_run",
	"check-clang-format":  "checks.clang_format",
	"check-clang-tidy":    "checks.clang_tidy",
	"base":                "checks.base",
	"ignore-mode":         "checks.ignore_mode",
	"format-ignore":       "checks.format_ignore",
	"tidy-ignore":         "checks.tidy_ignore",
	"projects":            "build.projects",
	"cmake-config":        "build.cmake_config",
	"intermediate-status": "build.intermediate",
	"uploader":            "upload.backend",
	"gcs-bucket":          "upload.gcs_bucket",
	"gcs-prefix":          "upload.gcs_prefix",
	"phid":                "target.phid",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "WARNING")
	v.SetDefault("log.format", "text")
	v.SetDefault("conduit.url", "https://reviews.llvm.org/api/")
	v.SetDefault("conduit.retry_max", 4)
	v.SetDefault("conduit.timeout", "60s")
	v.SetDefault("checks.base", classify.DefaultBase)
	v.SetDefault("checks.ignore_mode", string(classify.IgnoreGitignore))
	v.SetDefault("checks.format_ignore", ".clang-format-ignore")
	v.SetDefault("checks.tidy_ignore", ".clang-tidy-ignore")
	v.SetDefault("build.projects", "default")
	v.SetDefault("upload.backend", UploadAuto)
	v.SetDefault("scripts_branch", "master")
	v.SetDefault("buildkite.queue", "default")
}

// Load reads configuration from file, environment and flags. A missing
// default file is not an error; a missing explicit file is.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(strings.TrimSuffix(DefaultFile, ".yaml"))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfigInvalid, "bind "+env, err)
		}
	}
	if flags != nil {
		for name, key := range flagBindings {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, errors.Wrap(errors.ErrCodeConfigInvalid, "bind --"+name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is OK, we'll use defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configPath != "" {
			return nil, errors.Wrap(errors.ErrCodeConfigNotFound, "read configuration", err).
				WithSuggestion("Check the path given with --config")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigUnmarshal, "decode configuration", err)
	}
	return &cfg, nil
}

// Validate checks values that cannot be caught by decoding.
func (c *Config) Validate() error {
	if _, err := classify.ParseIgnoreMode(c.Checks.IgnoreMode); err != nil {
		return err
	}
	if c.Conduit.RetryMax < 0 {
		return errors.NewConfigInvalidError(fmt.Sprintf("conduit.retry_max must not be negative, got %d", c.Conduit.RetryMax))
	}

	switch c.UploadBackend() {
	case UploadNone:
	case UploadBuildkite:
		if c.Buildkite.BuildNumber == "" || c.Buildkite.JobID == "" {
			return errors.NewConfigInvalidError("the buildkite uploader needs BUILDKITE_BUILD_NUMBER and BUILDKITE_JOB_ID").
				WithSuggestion("Use --uploader none outside of Buildkite")
		}
	case UploadGCS:
		if c.Upload.GCSBucket == "" {
			return errors.New(errors.ErrCodeConfigMissingFlag, "the gcs uploader needs --gcs-bucket")
		}
	default:
		return errors.NewConfigInvalidError("unknown uploader " + c.Upload.Backend).
			WithSuggestion("Use one of: auto, buildkite, gcs, none")
	}
	return nil
}

// UploadBackend resolves "auto": Buildkite inside a Buildkite job, nothing
// otherwise.
func (c *Config) UploadBackend() string {
	switch c.Upload.Backend {
	case UploadAuto, "":
		if c.Buildkite.JobID != "" {
			return UploadBuildkite
		}
		return UploadNone
	}
	return c.Upload.Backend
}

// RemoteEnabled reports whether results go to Phabricator. A missing token
// does not disable reporting; Conduit rejects the calls and they are logged.
func (c *Config) RemoteEnabled() bool {
	return c.Target.PHID != ""
}
