package io

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/slok/tasklib/internal/log"
	"github.com/slok/tasklib/internal/model"
)

// LibraryYAMLRepositoryConfig is the configuration of the YAML task library.
type LibraryYAMLRepositoryConfig struct {
	// Directory is the tasks directory, task working directories are resolved from it.
	Directory string
	// Pattern is the glob the task file names must match.
	Pattern string
	// FS is the filesystem rooted at Directory, defaults to the OS filesystem.
	FS fs.FS
	// Kinds filters out the tasks of types that can't be run. By default every typed
	// task is loaded.
	Kinds  KindChecker
	Logger log.Logger
}

// KindChecker knows which task types can be run.
type KindChecker interface {
	Has(kind string) bool
}

func (c *LibraryYAMLRepositoryConfig) defaults() error {
	if c.Directory == "" {
		return fmt.Errorf("directory is required")
	}
	if c.Pattern == "" {
		return fmt.Errorf("pattern is required")
	}
	if _, err := path.Match(c.Pattern, ""); err != nil {
		return fmt.Errorf("invalid pattern %q: %w", c.Pattern, err)
	}
	if c.FS == nil {
		c.FS = os.DirFS(c.Directory)
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.LibraryYAML"})
	return nil
}

// LibraryYAMLRepository loads the task definitions from every YAML task file of a directory tree.
// Files are loaded once, on first use.
type LibraryYAMLRepository struct {
	dir     string
	pattern string
	fs      fs.FS
	kinds   KindChecker
	logger  log.Logger

	once    sync.Once
	tasks   map[string]model.TaskDefinition
	loadErr error
}

// NewLibraryYAMLRepository creates a new YAML task library.
func NewLibraryYAMLRepository(cfg LibraryYAMLRepositoryConfig) (*LibraryYAMLRepository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &LibraryYAMLRepository{
		dir:     cfg.Directory,
		pattern: cfg.Pattern,
		fs:      cfg.FS,
		kinds:   cfg.Kinds,
		logger:  cfg.Logger,
	}, nil
}

// Location returns the tasks directory.
func (r *LibraryYAMLRepository) Location() string { return r.dir }

// GetTask returns the definition of a task.
func (r *LibraryYAMLRepository) GetTask(ctx context.Context, id string) (*model.TaskDefinition, error) {
	tasks, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	t, ok := tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %q not found in %q: %w", id, r.dir, model.ErrNotFound)
	}

	return &t, nil
}

// ListTasks returns all the task definitions sorted by ID.
func (r *LibraryYAMLRepository) ListTasks(ctx context.Context) ([]model.TaskDefinition, error) {
	tasks, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	list := make([]model.TaskDefinition, 0, len(tasks))
	for _, t := range tasks {
		list = append(list, t)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })

	return list, nil
}

func (r *LibraryYAMLRepository) load(ctx context.Context) (map[string]model.TaskDefinition, error) {
	r.once.Do(func() {
		r.tasks, r.loadErr = r.loadAll(ctx)
	})
	return r.tasks, r.loadErr
}

func (r *LibraryYAMLRepository) loadAll(ctx context.Context) (map[string]model.TaskDefinition, error) {
	tasks := map[string]model.TaskDefinition{}

	err := fs.WalkDir(r.fs, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// Missing or unreadable tasks directory means an empty library.
			r.logger.Warningf("Could not walk %q: %s", p, err)
			if d != nil && d.IsDir() && p != "." {
				return fs.SkipDir
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		if ok, _ := path.Match(r.pattern, d.Name()); !ok {
			return nil
		}

		defs, err := r.loadFile(p)
		if err != nil {
			r.logger.Warningf("Ignoring task file %q: %s", p, err)
			return nil
		}

		for _, def := range defs {
			if prev, ok := tasks[def.ID]; ok {
				r.logger.Warningf("Task %q from %q overrides the one from %q", def.ID, def.Source, prev.Source)
			}
			tasks[def.ID] = def
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not load task library: %w", err)
	}

	r.logger.Debugf("Loaded %d tasks from %s", len(tasks), r.dir)
	return tasks, nil
}

func (r *LibraryYAMLRepository) loadFile(p string) ([]model.TaskDefinition, error) {
	data, err := fs.ReadFile(r.fs, p)
	if err != nil {
		return nil, fmt.Errorf("reading task file: %w", err)
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if len(node.Content) == 0 || node.Content[0].Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("task file must be a list of tasks")
	}

	var raw []TaskDefinition
	if err := node.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding tasks: %w", err)
	}

	source := filepath.Join(r.dir, filepath.FromSlash(p))
	taskDir := filepath.Dir(source)

	defs := make([]model.TaskDefinition, 0, len(raw))
	for _, t := range raw {
		if t.ID == "" {
			r.logger.Debugf("Skipping task without id in %q", source)
			continue
		}
		if t.Type == "" {
			r.logger.Warningf("Skipping task %q without type in %q", t.ID, source)
			continue
		}
		if r.kinds != nil && !r.kinds.Has(t.Type) {
			r.logger.Warningf("Skipping task %q of unsupported type %q in %q", t.ID, t.Type, source)
			continue
		}
		defs = append(defs, t.toModel(source, taskDir))
	}

	return defs, nil
}

// TaskDefinition represents the YAML structure of a task definition.
type TaskDefinition struct {
	ID         string         `yaml:"id"`
	Type       string         `yaml:"type"`
	Parameters map[string]any `yaml:"parameters"`
	TestPre    map[string]any `yaml:"test_pre"`
	TestPost   map[string]any `yaml:"test_post"`
}

func (t TaskDefinition) toModel(source, taskDir string) model.TaskDefinition {
	def := model.TaskDefinition{
		ID:     t.ID,
		Type:   t.Type,
		Pre:    t.TestPre,
		Post:   t.TestPost,
		Source: source,
	}

	// Tasks run by default from the directory of the file that defines them.
	if t.Parameters != nil {
		params := make(map[string]any, len(t.Parameters)+1)
		for k, v := range t.Parameters {
			params[k] = v
		}
		if _, ok := params[model.ParamCwd]; !ok {
			params[model.ParamCwd] = taskDir
		}
		def.Parameters = params
	}

	return def
}
