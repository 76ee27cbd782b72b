package capability

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/keithlinneman/ikcamp-web/internal/xerrors"
)

// Label names a capability set on the request context.
type Label string

const (
	LabelService    Label = "service"
	LabelController Label = "controller"
)

var (
	ErrDuplicate = errors.New("duplicate capability")
	ErrUnknown   = errors.New("unknown capability")
	ErrNotFound  = errors.New("capability not loaded")
	ErrWrongType = errors.New("capability has unexpected type")
)

// Extensions are the descriptor suffixes recognized by Load.
var Extensions = []string{".yaml", ".yml"}

// Descriptor is one parsed descriptor file.
type Descriptor struct {
	Name string
	Path string
	node yaml.Node
}

// Decode unmarshals the descriptor body into v. An empty descriptor
// leaves v untouched.
func (d Descriptor) Decode(v any) error {
	if d.node.Kind == 0 {
		return nil
	}
	if err := d.node.Decode(v); err != nil {
		return xerrors.Wrapf(err, "decode descriptor %s", d.Path)
	}
	return nil
}

// Factory builds one capability implementation from its descriptor.
type Factory[T any] func(d Descriptor) (T, error)

// Registry is the compile-time table of available implementations.
type Registry[T any] struct {
	label     Label
	factories map[string]Factory[T]
}

func NewRegistry[T any](label Label) *Registry[T] {
	return &Registry[T]{label: label, factories: make(map[string]Factory[T])}
}

func (r *Registry[T]) Label() Label { return r.label }

// Register adds a factory. Registering the same name twice is a
// programming error and panics.
func (r *Registry[T]) Register(name string, f Factory[T]) {
	if name == "" || f == nil {
		panic(fmt.Sprintf("capability: invalid %s registration %q", r.label, name))
	}
	if _, exists := r.factories[name]; exists {
		panic(fmt.Sprintf("capability: %s %q already registered", r.label, name))
	}
	r.factories[name] = f
}

// Names lists the registered implementation names, sorted.
func (r *Registry[T]) Names() []string {
	out := make([]string, 0, len(r.factories))
	for n := range r.factories {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func recognized(name string) (key string, ok bool) {
	ext := path.Ext(name)
	for _, e := range Extensions {
		if strings.EqualFold(ext, e) {
			return strings.TrimSuffix(name, ext), true
		}
	}
	return "", false
}

// Load scans the immediate entries of dir in fsys and builds a Map from
// every recognized descriptor.
func (r *Registry[T]) Load(fsys fs.FS, dir string) (Map[T], error) {
	if dir == "" {
		dir = "."
	}
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return Map[T]{}, xerrors.Wrapf(err, "read %s directory %s", r.label, dir)
	}

	// first pass: resolve keys so collisions are reported before any factory runs
	files := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		key, ok := recognized(e.Name())
		if !ok || key == "" {
			continue
		}
		if prev, dup := files[key]; dup {
			return Map[T]{}, xerrors.EnsureTrace(fmt.Errorf("%w: %s and %s both define %s %q",
				ErrDuplicate, prev, e.Name(), r.label, key))
		}
		files[key] = e.Name()
	}

	items := make(map[string]T, len(files))
	for key, file := range files {
		f, ok := r.factories[key]
		if !ok {
			return Map[T]{}, xerrors.EnsureTrace(fmt.Errorf("%w: %s %q (from %s) has no registered implementation",
				ErrUnknown, r.label, key, file))
		}

		p := path.Join(dir, file)
		raw, err := fs.ReadFile(fsys, p)
		if err != nil {
			return Map[T]{}, xerrors.Wrapf(err, "read descriptor %s", p)
		}
		d := Descriptor{Name: key, Path: p}
		if err := yaml.Unmarshal(raw, &d.node); err != nil {
			return Map[T]{}, xerrors.Wrapf(err, "parse descriptor %s", p)
		}
		// yaml.Unmarshal into a Node yields a DocumentNode; keep its content
		if d.node.Kind == yaml.DocumentNode && len(d.node.Content) == 1 {
			d.node = *d.node.Content[0]
		}

		impl, err := f(d)
		if err != nil {
			return Map[T]{}, xerrors.Wrapf(err, "build %s %q", r.label, key)
		}
		items[key] = impl
	}

	return Map[T]{label: r.label, items: items}, nil
}

// MustLoad is Load that panics on failure, for process startup.
func (r *Registry[T]) MustLoad(fsys fs.FS, dir string) Map[T] {
	m, err := r.Load(fsys, dir)
	if err != nil {
		panic(err)
	}
	return m
}
