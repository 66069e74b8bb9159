// Package render loads HTML templates from a file system and executes them.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"sync"

	"github.com/cespare/xxhash/v2"
)

var (
	// ErrTemplateNotFound means the named template is missing or unreadable
	ErrTemplateNotFound = errors.New("template not found")
	ErrTemplateParse    = errors.New("template parse failed")
)

type Options struct {
	// Reload parses the template from disk on every lookup
	Reload bool
}

type entry struct {
	tmpl *template.Template
	sum  uint64 // xxhash of the source the template was parsed from
}

// Renderer is safe for concurrent use
type Renderer struct {
	fsys   fs.FS
	reload bool

	mu    sync.RWMutex
	cache map[string]*entry
}

func New(fsys fs.FS, opts Options) *Renderer {
	return &Renderer{
		fsys:   fsys,
		reload: opts.Reload,
		cache:  make(map[string]*entry),
	}
}

// Lookup returns the parsed template. The source is read on every call and
// reparsed only when its content differs from the cached copy.
func (r *Renderer) Lookup(name string) (*template.Template, error) {
	info, err := fs.Stat(r.fsys, name)
	if err != nil {
		r.Invalidate(name)
		return nil, fmt.Errorf("%w: %s: %v", ErrTemplateNotFound, name, err)
	}
	if info.IsDir() {
		r.Invalidate(name)
		return nil, fmt.Errorf("%w: %s is a directory", ErrTemplateNotFound, name)
	}

	src, err := fs.ReadFile(r.fsys, name)
	if err != nil {
		r.Invalidate(name)
		return nil, fmt.Errorf("%w: %s: %v", ErrTemplateNotFound, name, err)
	}
	sum := xxhash.Sum64(src)

	if !r.reload {
		r.mu.RLock()
		e, ok := r.cache[name]
		r.mu.RUnlock()
		if ok && e.sum == sum {
			return e.tmpl, nil
		}
	}

	tmpl, err := template.New(name).Parse(string(src))
	if err != nil {
		r.Invalidate(name)
		return nil, fmt.Errorf("%w: %s: %v", ErrTemplateParse, name, err)
	}

	if !r.reload {
		r.mu.Lock()
		r.cache[name] = &entry{tmpl: tmpl, sum: sum}
		r.mu.Unlock()
	}
	return tmpl, nil
}

// Render executes the named template into w. Output is buffered so that
// nothing reaches w when execution fails.
func (r *Renderer) Render(w io.Writer, name string, data any) error {
	tmpl, err := r.Lookup(name)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("execute %s: %w", name, err)
	}
	_, err = buf.WriteTo(w)
	return err
}

// Exists reports whether the named template can currently be read
func (r *Renderer) Exists(name string) error {
	info, err := fs.Stat(r.fsys, name)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrTemplateNotFound, name, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrTemplateNotFound, name)
	}
	return nil
}

func (r *Renderer) Invalidate(name string) {
	r.mu.Lock()
	delete(r.cache, name)
	r.mu.Unlock()
}

func (r *Renderer) InvalidateAll() {
	r.mu.Lock()
	r.cache = make(map[string]*entry)
	r.mu.Unlock()
}

// Reloading reports whether the renderer bypasses its cache
func (r *Renderer) Reloading() bool {
	return r.reload
}
