package feed

// Document is a rendered feed together with the record it was rendered from.
type Document struct {
	Feed     *Feed
	Template string
	Body     string
}

// Transform adjusts a parsed feed before it is rendered.
type Transform func(*Feed) *Feed

// Pipeline parses a raw feed and renders it. It holds no per-call state, so a
// single Pipeline can serve concurrent callers.
type Pipeline struct {
	parser   *Parser
	renderer *Renderer
}

func NewPipeline(parser *Parser, renderer *Renderer) *Pipeline {
	return &Pipeline{
		parser:   parser,
		renderer: renderer,
	}
}

// Build returns parser and renderer errors as they are. Transforms run in
// order between parsing and rendering.
func (p *Pipeline) Build(raw []byte, templateName string, transforms ...Transform) (*Document, error) {
	feed, err := p.parser.Run(raw)
	if err != nil {
		return nil, err
	}

	for _, transform := range transforms {
		feed = transform(feed)
	}

	body, err := p.renderer.Run(feed, templateName)
	if err != nil {
		return nil, err
	}

	return &Document{
		Feed:     feed,
		Template: templateName,
		Body:     body,
	}, nil
}

func (p *Pipeline) BuildDocument(raw []byte, templateName string) (string, error) {
	doc, err := p.Build(raw, templateName)
	if err != nil {
		return "", err
	}
	return doc.Body, nil
}

func (p *Pipeline) BuildDocumentString(raw, templateName string) (string, error) {
	return p.BuildDocument([]byte(raw), templateName)
}
