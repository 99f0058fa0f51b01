// Package config loads the pipeline configuration file.
//
// The YAML document is validated against an embedded JSON schema, defaults are applied and
// GATEPIPE_* environment variables override the file.
package config

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/askiada/go-gatepipe/internal/store"
	"github.com/askiada/go-gatepipe/pkg/pipeline"
	"github.com/askiada/go-gatepipe/pkg/pipeline/model"
)

const (
	BackendFile  = "file"
	BackendMinio = "minio"

	schemaURL = "gatepipe://config.schema.json"
)

//go:embed schema.json
var schemaJSON []byte

// File is the configuration document.
type File struct {
	Workspace string                    `yaml:"workspace"`
	Schedule  string                    `yaml:"schedule"`
	Artifacts Artifacts                 `yaml:"artifacts"`
	Steps     map[model.StepKind]string `yaml:"steps"`
	Stages    Stages                    `yaml:"stages"`
}

type Artifacts struct {
	Backend string `yaml:"backend"`
	Dir     string `yaml:"dir"`
	Minio   Minio  `yaml:"minio"`
}

type Minio struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
}

type Stages struct {
	Primary  Stage  `yaml:"primary"`
	Fallback *Stage `yaml:"fallback"`
}

type Stage struct {
	Matrix               []string `yaml:"matrix"`
	FailFast             bool     `yaml:"fail_fast"`
	MaxParallel          int      `yaml:"max_parallel"`
	InstallExclusions    []string `yaml:"install_exclusions"`
	SkipAuxiliary        bool     `yaml:"skip_auxiliary"`
	VerificationLevel    *int     `yaml:"verification_level"`
	ExcludedCapabilities []string `yaml:"excluded_capabilities"`
	ArtifactName         string   `yaml:"artifact_name"`
	DiagnosticDir        string   `yaml:"diagnostic_dir"`
}

func compileSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()

	err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, errors.Wrap(err, "unable to add schema resource")
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, errors.Wrap(err, "unable to compile schema")
	}

	return schema, nil
}

// Load reads, validates and completes the configuration file at path.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read %s", path)
	}
	cfg, err := Parse(raw)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}

	return cfg, nil
}

// Parse validates and decodes a YAML document.
func Parse(raw []byte) (*File, error) {
	err := validate(raw)
	if err != nil {
		return nil, err
	}

	cfg := &File{}
	err = yaml.Unmarshal(raw, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "unable to decode configuration")
	}

	// the environment wins over the file, defaults are derived from both
	err = cfg.applyEnv()
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks the document against the schema. The YAML tree goes through JSON so the
// validator sees the same types it would for a JSON document.
func validate(raw []byte) error {
	var doc any
	err := yaml.Unmarshal(raw, &doc)
	if err != nil {
		return errors.Wrap(err, "unable to parse configuration")
	}
	if doc == nil {
		return errors.New("configuration is empty")
	}
	asJSON, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "configuration is not representable as JSON")
	}
	var payload any
	err = json.Unmarshal(asJSON, &payload)
	if err != nil {
		return errors.Wrap(err, "unable to decode configuration")
	}

	schema, err := compileSchema()
	if err != nil {
		return err
	}
	err = schema.Validate(payload)
	if err != nil {
		return errors.Wrap(err, "configuration does not match schema")
	}

	return nil
}

func (f *File) applyDefaults() {
	if f.Workspace == "" {
		f.Workspace = pipeline.DefaultWorkspaceRoot
	}
	if f.Artifacts.Backend == "" {
		f.Artifacts.Backend = BackendFile
	}
	if f.Artifacts.Dir == "" {
		f.Artifacts.Dir = filepath.Join(f.Workspace, "artifacts")
	}
	if f.Artifacts.Minio.Region == "" {
		f.Artifacts.Minio.Region = "us-east-1"
	}
	if f.Stages.Fallback == nil {
		fallback := f.Stages.Primary
		fallback.ArtifactName = ""
		fallback.SkipAuxiliary = true
		f.Stages.Fallback = &fallback
	}
}

func (f *File) applyEnv() error {
	f.Workspace = envString("GATEPIPE_WORKSPACE", f.Workspace)
	f.Schedule = envString("GATEPIPE_SCHEDULE", f.Schedule)
	f.Artifacts.Backend = envString("GATEPIPE_ARTIFACT_BACKEND", f.Artifacts.Backend)
	f.Artifacts.Dir = envString("GATEPIPE_ARTIFACT_DIR", f.Artifacts.Dir)

	m := &f.Artifacts.Minio
	m.Endpoint = envString("GATEPIPE_MINIO_ENDPOINT", m.Endpoint)
	m.AccessKey = envString("GATEPIPE_MINIO_ACCESS_KEY", m.AccessKey)
	m.SecretKey = envString("GATEPIPE_MINIO_SECRET_KEY", m.SecretKey)
	m.Region = envString("GATEPIPE_MINIO_REGION", m.Region)
	m.Bucket = envString("GATEPIPE_MINIO_BUCKET", m.Bucket)
	m.Prefix = envString("GATEPIPE_MINIO_PREFIX", m.Prefix)
	useSSL, err := envBool("GATEPIPE_MINIO_USE_SSL", m.UseSSL)
	if err != nil {
		return err
	}
	m.UseSSL = useSSL

	return nil
}

// Validate checks what the schema cannot express.
func (f *File) Validate() error {
	switch f.Artifacts.Backend {
	case BackendFile:
	case BackendMinio:
		err := f.MinioConfig().Validate()
		if err != nil {
			return errors.Wrap(err, "minio artifacts")
		}
	default:
		return errors.Errorf("unknown artifact backend %q", f.Artifacts.Backend)
	}
	if strings.TrimSpace(f.Schedule) != "" {
		_, err := pipeline.ParseSchedule(f.Schedule)
		if err != nil {
			return err
		}
	}

	return f.Pipeline().Validate()
}

func (s Stage) stageConfig(artifact string) pipeline.StageConfig {
	level := 1
	if s.VerificationLevel != nil {
		level = *s.VerificationLevel
	}
	name := s.ArtifactName
	if name == "" {
		name = artifact
	}
	dir := s.DiagnosticDir
	if dir == "" {
		dir = pipeline.DefaultDiagnosticDir
	}

	return pipeline.StageConfig{
		Matrix:               s.Matrix,
		FailFast:             s.FailFast,
		MaxParallel:          s.MaxParallel,
		InstallExclusions:    s.InstallExclusions,
		SkipAuxiliary:        s.SkipAuxiliary,
		VerificationLevel:    level,
		ExcludedCapabilities: s.ExcludedCapabilities,
		ArtifactName:         name,
		DiagnosticDir:        dir,
	}
}

// Pipeline returns the pipeline configuration.
func (f *File) Pipeline() pipeline.Config {
	cfg := pipeline.Config{
		WorkspaceRoot: f.Workspace,
		Primary:       f.Stages.Primary.stageConfig(pipeline.DefaultPrimaryArtifact),
	}
	if f.Stages.Fallback != nil {
		cfg.Fallback = f.Stages.Fallback.stageConfig(pipeline.DefaultFallbackArtifact)
	}

	return cfg
}

// MinioConfig returns the settings of the minio artifact backend.
func (f *File) MinioConfig() store.MinioConfig {
	m := f.Artifacts.Minio

	return store.MinioConfig{
		Endpoint:  m.Endpoint,
		AccessKey: m.AccessKey,
		SecretKey: m.SecretKey,
		Region:    m.Region,
		UseSSL:    m.UseSSL,
		Bucket:    m.Bucket,
		Prefix:    m.Prefix,
	}
}

// ArtifactStore builds the configured artifact backend. The minio bucket is created
// when missing so the first upload does not fail.
func (f *File) ArtifactStore(ctx context.Context) (pipeline.ArtifactStore, error) {
	if f.Artifacts.Backend == BackendMinio {
		minioCfg := f.MinioConfig()
		minioStore, err := store.NewMinioStore(minioCfg)
		if err != nil {
			return nil, errors.Wrap(err, "unable to create minio artifact store")
		}
		err = minioStore.EnsureBucket(ctx, minioCfg.Region)
		if err != nil {
			return nil, errors.Wrap(err, "unable to prepare minio artifact store")
		}
		return minioStore, nil
	}

	fileStore, err := store.NewFileStore(f.Artifacts.Dir)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create file artifact store")
	}

	return fileStore, nil
}
