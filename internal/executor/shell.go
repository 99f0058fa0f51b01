// Package executor runs the steps of a run instance as shell commands.
package executor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/go-gatepipe/pkg/pipeline"
	"github.com/askiada/go-gatepipe/pkg/pipeline/model"
)

// Shell runs the command configured for every step with `sh -c` in the instance workspace.
// Steps without a command succeed without running anything.
type Shell struct {
	commands map[model.StepKind]*template.Template
	shell    string
	env      []string
	logger   *zap.Logger
}

// Option configures a Shell executor.
type Option func(s *Shell)

// WithShell overrides the interpreter, sh by default.
func WithShell(shell string) Option {
	return func(s *Shell) {
		s.shell = shell
	}
}

// WithEnv appends KEY=VALUE entries to the environment of every command.
func WithEnv(env ...string) Option {
	return func(s *Shell) {
		s.env = append(s.env, env...)
	}
}

// WithLogger sets the logger. A nil logger keeps the default one.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Shell) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// templateFuncs are available in step commands, e.g. {{ join .ExcludedCapabilities "," }}.
var templateFuncs = template.FuncMap{
	"join": strings.Join,
}

// NewShell parses the step commands. Commands are text templates over pipeline.StepRequest.
func NewShell(commands map[model.StepKind]string, opts ...Option) (*Shell, error) {
	sh := &Shell{
		commands: make(map[model.StepKind]*template.Template, len(commands)),
		shell:    "sh",
		logger:   zap.NewNop(),
	}
	for step, cmd := range commands {
		if strings.TrimSpace(cmd) == "" {
			continue
		}
		tpl, err := template.New(string(step)).Funcs(templateFuncs).Option("missingkey=error").Parse(cmd)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to parse command of step %s", step)
		}
		sh.commands[step] = tpl
	}
	for _, opt := range opts {
		opt(sh)
	}

	return sh, nil
}

// Exec runs the command of req.Step. Output is appended to <diagnostic dir>/<step>.log.
func (s *Shell) Exec(ctx context.Context, req pipeline.StepRequest) error {
	tpl, ok := s.commands[req.Step]
	if !ok {
		return nil
	}

	cmdLine := &bytes.Buffer{}
	err := tpl.Execute(cmdLine, req)
	if err != nil {
		return errors.Wrapf(err, "unable to render command of step %s", req.Step)
	}

	err = os.MkdirAll(req.DiagnosticDir, 0o755)
	if err != nil {
		return errors.Wrap(err, "unable to create diagnostic directory")
	}
	logFile, err := os.OpenFile(filepath.Join(req.DiagnosticDir, string(req.Step)+".log"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrap(err, "unable to open step log")
	}
	defer logFile.Close()

	cmd := exec.CommandContext(ctx, s.shell, "-c", cmdLine.String())
	cmd.Dir = req.Workspace
	cmd.Env = append(append(os.Environ(), s.env...), Environment(req)...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	s.logger.Debug("running step",
		zap.String("stage", string(req.Stage)),
		zap.String("param", req.Param),
		zap.String("step", string(req.Step)),
		zap.String("command", cmdLine.String()),
	)

	err = cmd.Run()
	if err != nil {
		return errors.Wrapf(err, "step %s", req.Step)
	}

	return nil
}

// Environment returns the step parameters as environment variables.
func Environment(req pipeline.StepRequest) []string {
	return []string{
		"GATEPIPE_STAGE=" + string(req.Stage),
		"GATEPIPE_PARAM=" + req.Param,
		"GATEPIPE_STEP=" + string(req.Step),
		"GATEPIPE_DIAGNOSTIC_DIR=" + req.DiagnosticDir,
		"GATEPIPE_INSTALL_EXCLUDE=" + strings.Join(req.InstallExclusions, ","),
		"GATEPIPE_SKIP_AUXILIARY=" + strconv.FormatBool(req.SkipAuxiliary),
		"GATEPIPE_VERIFY_DEPTH=" + strconv.Itoa(req.VerificationLevel),
		"GATEPIPE_EXCLUDE_CAPABILITIES=" + strings.Join(req.ExcludedCapabilities, ","),
	}
}

var _ pipeline.Executor = (*Shell)(nil)

// String lists the configured steps, for logs.
func (s *Shell) String() string {
	steps := make([]string, 0, len(s.commands))
	for _, step := range model.Steps {
		if _, ok := s.commands[step]; ok {
			steps = append(steps, string(step))
		}
	}

	return fmt.Sprintf("shell(%s)", strings.Join(steps, ","))
}
