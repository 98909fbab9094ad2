package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	goplugin "plugin"
	"sort"
	"strings"
)

// RegisterSymbol is the function every extension module exports:
//
//	func Register(r *plugin.Registry)
const RegisterSymbol = "Register"

// Lookup finds an exported symbol in an opened extension module.
type Lookup func(symbol string) (any, error)

// OpenModule opens a compiled extension module. Tests replace it to avoid building real .so files.
var OpenModule = func(path string) (Lookup, error) {
	p, err := goplugin.Open(path)
	if err != nil {
		return nil, err
	}
	return func(symbol string) (any, error) {
		return p.Lookup(symbol)
	}, nil
}

// Loader registers extension modules found under the configured custom_modules paths. Each
// path is either a module file or a directory scanned for *.so files. A loader opens every
// module at most once.
type Loader struct {
	paths  []string
	loaded map[string]struct{}
}

// NewLoader creates a loader for the given search paths.
func NewLoader(paths []string) *Loader {
	return &Loader{
		paths:  append([]string(nil), paths...),
		loaded: make(map[string]struct{}),
	}
}

// Paths returns the configured search paths.
func (l *Loader) Paths() []string {
	return append([]string(nil), l.paths...)
}

// Load opens every module under the search paths and lets it register into r. It returns the
// module files that were loaded by this call.
func (l *Loader) Load(r *Registry) ([]string, error) {
	if r == nil {
		return nil, fmt.Errorf("plugin loader: registry is nil")
	}

	var loaded []string
	for _, root := range l.paths {
		files, err := moduleFiles(root)
		if err != nil {
			return loaded, err
		}
		for _, file := range files {
			if _, seen := l.loaded[file]; seen {
				continue
			}
			if err := loadModule(file, r); err != nil {
				return loaded, err
			}
			l.loaded[file] = struct{}{}
			loaded = append(loaded, file)
		}
	}
	return loaded, nil
}

func moduleFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("plugin loader: %w", err)
	}
	if !info.IsDir() {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, err
		}
		return []string{abs}, nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("plugin loader: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".so") {
			continue
		}
		abs, err := filepath.Abs(filepath.Join(root, e.Name()))
		if err != nil {
			return nil, err
		}
		files = append(files, abs)
	}
	sort.Strings(files)
	return files, nil
}

func loadModule(path string, r *Registry) error {
	lookup, err := OpenModule(path)
	if err != nil {
		return fmt.Errorf("plugin loader: open %s: %w", path, err)
	}
	sym, err := lookup(RegisterSymbol)
	if err != nil {
		return fmt.Errorf("plugin loader: %s: %w", path, err)
	}
	register, ok := sym.(func(*Registry))
	if !ok {
		return fmt.Errorf("plugin loader: %s: %s has type %T, want func(*plugin.Registry)", path, RegisterSymbol, sym)
	}
	register(r)
	return nil
}
