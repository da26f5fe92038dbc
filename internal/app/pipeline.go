package app

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/buildgridgo/internal/config"
	"github.com/specialistvlad/buildgridgo/internal/hcl"
	"github.com/specialistvlad/buildgridgo/internal/job"
	"github.com/specialistvlad/buildgridgo/internal/matrix"
	"github.com/specialistvlad/buildgridgo/internal/trigger"
	"github.com/specialistvlad/buildgridgo/internal/yamlcfg"
)

// PipelineExtensions are the file extensions a pipeline may be written in.
var PipelineExtensions = []string{".hcl", ".yml", ".yaml"}

// ValidationError marks a problem with the pipeline definition or the
// invocation. It is raised before any job starts.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(err error) error {
	if err == nil {
		return nil
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return err
	}
	return &ValidationError{Err: err}
}

// loaderFor picks the concrete loader by file extension. Directories are
// always read as HCL.
func (a *App) loaderFor(path string) config.Loader {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return yamlcfg.NewLoader()
	}
	return hcl.NewLoader(a.lookupEnv)
}

func (a *App) loadPipeline(ctx context.Context, path string) (*config.Pipeline, error) {
	p, err := a.loaderFor(path).Load(ctx, path)
	if err != nil {
		return nil, invalid(err)
	}
	return p, nil
}

// expand loads path and expands it into jobs.
func (a *App) expand(ctx context.Context, path string) (*config.Pipeline, []*job.Spec, error) {
	p, err := a.loadPipeline(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	jobs, err := matrix.FromPipeline(p)
	if err != nil {
		return nil, nil, invalid(err)
	}
	return p, jobs, nil
}

// trigger builds the trigger context. The --ref and --tag overrides
// replace the CI environment as a whole.
func (a *App) trigger(p *config.Pipeline) trigger.Context {
	if a.config.Ref != "" || a.config.Tag != "" {
		return trigger.New(a.config.Ref, a.config.Tag, p.TrunkBranch)
	}
	return trigger.FromEnv(a.lookupEnv, p.TrunkBranch)
}

func (a *App) getenv(name string) string {
	if name == "" {
		return ""
	}
	v, _ := a.lookupEnv(name)
	return v
}
