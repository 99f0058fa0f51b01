package pipeline

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/go-gatepipe/pkg/pipeline/model"
)

// ArtifactStore persists diagnostic bundles by name.
type ArtifactStore interface {
	// Put stores the bundle and returns where it can be found.
	Put(ctx context.Context, name string, body io.Reader, size int64) (string, error)
}

// Archiver captures the diagnostic directory of failed run instances.
type Archiver struct {
	store ArtifactStore
}

// NewArchiver creates an archiver writing to store.
func NewArchiver(store ArtifactStore) (*Archiver, error) {
	if store == nil {
		return nil, ErrArtifactStoreMustBeSet
	}

	return &Archiver{store: store}, nil
}

// Capture bundles the diagnostic directory of inst when it failed.
// It returns a nil artifact and no error for any other status.
func (a *Archiver) Capture(ctx context.Context, inst *model.RunInstance, cfg StageConfig) (*model.Artifact, error) {
	if inst.Status != model.StatusFailure {
		return nil, nil //nolint:nilnil // no artifact on success
	}

	name := ArtifactFileName(cfg.ArtifactName, inst.Param)
	dir := filepath.Join(inst.Workspace, cfg.DiagnosticDir)

	buf, err := bundle(dir)
	if err != nil {
		return nil, &ArchiveError{Name: name, Err: err}
	}

	size := int64(buf.Len())
	location, err := a.store.Put(ctx, name, buf, size)
	if err != nil {
		return nil, &ArchiveError{Name: name, Err: errors.Wrap(err, "unable to store bundle")}
	}

	return &model.Artifact{
		Stage:    inst.Stage,
		Param:    inst.Param,
		Name:     name,
		Location: location,
		Size:     size,
	}, nil
}

// bundle writes dir as a gzip compressed tarball, paths relative to dir.
func bundle(dir string) (*bytes.Buffer, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Wrap(err, "unable to stat diagnostic directory")
	}
	if !info.IsDir() {
		return nil, errors.Errorf("%s is not a directory", dir)
	}

	buf := &bytes.Buffer{}
	gzw := gzip.NewWriter(buf)
	tw := tar.NewWriter(gzw)

	err = filepath.WalkDir(dir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == dir {
			return nil
		}

		return addToTar(tw, dir, path, entry)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to walk %s", dir)
	}

	err = tw.Close()
	if err != nil {
		return nil, errors.Wrap(err, "unable to close tar writer")
	}
	err = gzw.Close()
	if err != nil {
		return nil, errors.Wrap(err, "unable to close gzip writer")
	}

	return buf, nil
}

func addToTar(tw *tar.Writer, root, path string, entry fs.DirEntry) error {
	info, err := entry.Info()
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() && !info.IsDir() {
		return nil
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		return err
	}

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = filepath.ToSlash(rel)
	if info.IsDir() {
		hdr.Name += "/"
	}

	err = tw.WriteHeader(hdr)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return nil
	}

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(tw, file)

	return err
}

// archive captures the instance bundle. Failures are logged and dropped.
func (p *Pipeline) archive(ctx context.Context, inst *model.RunInstance, cfg StageConfig) *model.Artifact {
	artifact, err := p.archiver.Capture(ctx, inst, cfg)
	if err != nil {
		p.logger.Warn("unable to capture diagnostic bundle",
			zap.String("stage", string(inst.Stage)),
			zap.String("param", inst.Param),
			zap.String("failure", string(model.FailureArchive)),
			zap.Error(err),
		)

		return nil
	}
	if artifact != nil {
		p.logger.Info("diagnostic bundle captured",
			zap.String("artifact", artifact.Name),
			zap.String("location", artifact.Location),
			zap.Int64("size", artifact.Size),
		)
	}

	return artifact
}
