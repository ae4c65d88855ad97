package feed

import (
	"bytes"
	"errors"
	"html/template"
)

type TemplateSource interface {
	Template(name string) (*template.Template, error)
}

var _ TemplateSource = (*TemplateStore)(nil)

type Renderer struct {
	templates TemplateSource
}

func NewRenderer(templates TemplateSource) *Renderer {
	return &Renderer{
		templates: templates,
	}
}

// Run renders feed with the named template. Output is returned only when the
// whole template executed successfully.
func (r *Renderer) Run(feed *Feed, templateName string) (string, error) {
	tmpl, err := r.templates.Template(templateName)
	if err != nil {
		var notFound *TemplateNotFoundError
		var renderErr *RenderError
		if errors.As(err, &notFound) || errors.As(err, &renderErr) {
			return "", err
		}
		return "", &RenderError{Template: templateName, Err: err}
	}

	if feed == nil {
		return "", &RenderError{Template: templateName, Err: errors.New("feed is nil")}
	}

	data := map[string]any{
		"feed": FeedFields(feed).View("feed."),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", &RenderError{Template: templateName, Err: err}
	}

	return buf.String(), nil
}
