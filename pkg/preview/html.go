package preview

import (
	"fmt"
	"io/fs"
	"strconv"
	"sync"

	"github.com/flosch/pongo2/v6"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formbuilder/pkg/derive"
	"github.com/goliatone/go-formbuilder/pkg/model"
)

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// sanitizeText strips every HTML construct from author-provided text
// such as labels and option captions before it reaches a template.
func sanitizeText(raw string) string {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return textPolicy.Sanitize(raw)
}

// RendererOption configures the HTML renderer.
type RendererOption func(*rendererConfig)

type rendererConfig struct {
	templates fs.FS
	theme     *Theme
}

// WithTemplatesFS overrides the embedded template bundle.
func WithTemplatesFS(files fs.FS) RendererOption {
	return func(cfg *rendererConfig) {
		if files != nil {
			cfg.templates = files
		}
	}
}

// WithTheme styles the rendered form with a resolved theme.
func WithTheme(t *Theme) RendererOption {
	return func(cfg *rendererConfig) {
		cfg.theme = t
	}
}

// Renderer turns a Session into a standalone HTML page.
type Renderer struct {
	mu    sync.RWMutex
	set   *pongo2.TemplateSet
	cache map[string]*pongo2.Template
	theme *Theme
}

// NewRenderer builds a renderer backed by the embedded templates unless
// WithTemplatesFS overrides them.
func NewRenderer(options ...RendererOption) (*Renderer, error) {
	cfg := &rendererConfig{templates: embeddedTemplates}
	for _, opt := range options {
		if opt != nil {
			opt(cfg)
		}
	}

	return &Renderer{
		set:   pongo2.NewSet("formbuilder-preview", pongo2.NewFSLoader(cfg.templates)),
		cache: make(map[string]*pongo2.Template),
		theme: cfg.theme,
	}, nil
}

// RenderHTML renders the session's current state, including values,
// derived results, and any validation errors from the last submit.
func (r *Renderer) RenderHTML(session *Session) ([]byte, error) {
	if session == nil {
		return nil, fmt.Errorf("preview: nil session")
	}

	tmpl, err := r.template("templates/form.html")
	if err != nil {
		return nil, err
	}

	schema := session.Schema()
	values := session.Values()
	fieldErrs := session.FieldErrors()

	fields := make([]pongo2.Context, 0, len(schema.Fields))
	for i, field := range schema.Fields {
		fields = append(fields, fieldContext(i, field, values[i], fieldErrs[i]))
	}

	ctx := pongo2.Context{
		"form": pongo2.Context{
			"id":   schema.ID,
			"name": sanitizeText(schema.Name),
		},
		"fields":     fields,
		"style_vars": r.theme.StyleAttr(),
		"stylesheet": r.theme.Stylesheet(),
	}

	out, err := tmpl.ExecuteBytes(ctx)
	if err != nil {
		return nil, fmt.Errorf("preview: execute template: %w", err)
	}
	return out, nil
}

func (r *Renderer) template(path string) (*pongo2.Template, error) {
	r.mu.RLock()
	if tmpl, ok := r.cache[path]; ok {
		r.mu.RUnlock()
		return tmpl, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if tmpl, ok := r.cache[path]; ok {
		return tmpl, nil
	}
	tmpl, err := r.set.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("preview: load template %q: %w", path, err)
	}
	r.cache[path] = tmpl
	return tmpl, nil
}

func fieldContext(index int, field model.Field, value any, errs []string) pongo2.Context {
	options := make([]string, 0, len(field.Options))
	for _, option := range field.Options {
		options = append(options, sanitizeText(option))
	}

	return pongo2.Context{
		"index":      index,
		"id":         field.ID,
		"type":       string(field.Type),
		"label":      sanitizeText(field.Label),
		"required":   field.Required,
		"options":    options,
		"value":      displayValue(value),
		"checked":    isChecked(value),
		"derived":    derive.Active(field),
		"input_type": inputType(field.Type),
		"errors":     errs,
	}
}

func inputType(ft model.FieldType) string {
	switch ft {
	case model.FieldTypeNumber:
		return "number"
	case model.FieldTypeDate:
		return "date"
	default:
		return "text"
	}
}

func displayValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func isChecked(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "on" || v == "1"
	default:
		return false
	}
}
