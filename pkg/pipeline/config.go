package pipeline

import (
	"strings"

	"github.com/pkg/errors"
)

const (
	DefaultPrimaryArtifact  = "job-results-plugins"
	DefaultFallbackArtifact = "job-results-without-plugins"
	DefaultDiagnosticDir    = "job-results"
	DefaultWorkspaceRoot    = "_work"
)

// StageConfig is the static configuration of one stage.
type StageConfig struct {
	// Matrix holds the environment identifiers, one run instance each.
	Matrix []string
	// FailFast cancels the siblings of the first failing instance.
	FailFast bool
	// MaxParallel bounds the number of instances running at once. Zero means no bound.
	MaxParallel int

	// InstallExclusions is the list of optional features left out when installing the target.
	InstallExclusions []string
	// SkipAuxiliary leaves the examples and other auxiliary packages out of the install.
	SkipAuxiliary bool

	// VerificationLevel is the depth of the full verification battery.
	VerificationLevel int
	// ExcludedCapabilities are optional capabilities whose checks are suppressed.
	ExcludedCapabilities []string

	// ArtifactName is the base name of the diagnostic bundles of the stage.
	ArtifactName string
	// DiagnosticDir is the directory, relative to the instance workspace, captured on failure.
	DiagnosticDir string
}

// Config holds both stages of the pipeline.
type Config struct {
	WorkspaceRoot string
	Primary       StageConfig
	Fallback      StageConfig
}

// DefaultConfig returns a single entry matrix with the fallback stage excluding nothing.
func DefaultConfig() Config {
	return Config{
		WorkspaceRoot: DefaultWorkspaceRoot,
		Primary: StageConfig{
			Matrix:            []string{"default"},
			VerificationLevel: 1,
			ArtifactName:      DefaultPrimaryArtifact,
			DiagnosticDir:     DefaultDiagnosticDir,
		},
		Fallback: StageConfig{
			Matrix:            []string{"default"},
			SkipAuxiliary:     true,
			VerificationLevel: 1,
			ArtifactName:      DefaultFallbackArtifact,
			DiagnosticDir:     DefaultDiagnosticDir,
		},
	}
}

func (sc *StageConfig) applyDefaults(artifact string) {
	if sc.ArtifactName == "" {
		sc.ArtifactName = artifact
	}
	if sc.DiagnosticDir == "" {
		sc.DiagnosticDir = DefaultDiagnosticDir
	}
}

func (sc StageConfig) validate() error {
	if len(sc.Matrix) == 0 {
		return ErrEmptyMatrix
	}
	for _, param := range sc.Matrix {
		if strings.TrimSpace(param) == "" {
			return errors.New("matrix values must not be blank")
		}
	}
	if err := checkMatrix(sc.Matrix); err != nil {
		return err
	}
	if sc.MaxParallel < 0 {
		return errors.New("max parallel must not be negative")
	}
	if sc.VerificationLevel < 0 {
		return errors.New("verification level must not be negative")
	}

	return nil
}

// Validate checks both stages. The artifact names must differ so bundles never collide.
func (c Config) Validate() error {
	if err := c.Primary.validate(); err != nil {
		return errors.Wrap(err, "primary stage")
	}
	if err := c.Fallback.validate(); err != nil {
		return errors.Wrap(err, "fallback stage")
	}
	if c.Primary.ArtifactName == c.Fallback.ArtifactName {
		return errors.Errorf("stages must use distinct artifact names, both use %q", c.Primary.ArtifactName)
	}

	return nil
}
