package feed

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"slices"
	"strings"
	"sync"
)

//go:embed templates/*.html.tmpl
var embeddedTemplates embed.FS

const (
	TemplateExt     = ".html.tmpl"
	DefaultTemplate = "default"
)

var templateFuncs = template.FuncMap{
	"author": func(name, affiliation string) string {
		return Author{Name: name, Affiliation: affiliation}.String()
	},
}

// TemplateStore resolves template names against user templates first and the
// built-in templates second. Parsed templates are cached by name.
type TemplateStore struct {
	sources []fs.FS
	cache   map[string]*template.Template
	mu      sync.RWMutex
}

func NewTemplateStore(dir string) *TemplateStore {
	var sources []fs.FS
	if dir != "" {
		sources = append(sources, os.DirFS(dir))
	}
	return NewTemplateStoreFS(sources...)
}

// NewTemplateStoreFS layers the given file systems over the built-in templates.
func NewTemplateStoreFS(sources ...fs.FS) *TemplateStore {
	builtin, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		panic(fmt.Sprintf("embedded templates unavailable: %v", err))
	}

	return &TemplateStore{
		sources: append(slices.Clone(sources), builtin),
		cache:   make(map[string]*template.Template),
	}
}

func (ts *TemplateStore) Template(name string) (*template.Template, error) {
	ts.mu.RLock()
	tmpl, ok := ts.cache[name]
	ts.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	fileName := name + TemplateExt
	if name == "" || strings.ContainsAny(name, `/\`) || !fs.ValidPath(fileName) {
		return nil, &TemplateNotFoundError{Name: name}
	}

	data, err := ts.read(fileName)
	if err != nil {
		return nil, &TemplateNotFoundError{Name: name, Err: err}
	}

	tmpl, err = template.New(name).
		Funcs(templateFuncs).
		Option("missingkey=error").
		Parse(string(data))
	if err != nil {
		return nil, &RenderError{Template: name, Err: err}
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()
	if cached, ok := ts.cache[name]; ok {
		return cached, nil
	}
	ts.cache[name] = tmpl

	return tmpl, nil
}

// Names lists every resolvable template name in sorted order.
func (ts *TemplateStore) Names() []string {
	var names []string
	for _, source := range ts.sources {
		matches, err := fs.Glob(source, "*"+TemplateExt)
		if err != nil {
			continue
		}
		for _, match := range matches {
			names = append(names, strings.TrimSuffix(match, TemplateExt))
		}
	}

	slices.Sort(names)
	return slices.Compact(names)
}

func (ts *TemplateStore) read(fileName string) ([]byte, error) {
	for _, source := range ts.sources {
		data, err := fs.ReadFile(source, fileName)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read template: %w", err)
		}
	}
	return nil, fs.ErrNotExist
}
