package api

import (
	"context"

	"github.com/lysyi3m/paper-comb/app/database"
	"github.com/lysyi3m/paper-comb/app/documents"
	"github.com/lysyi3m/paper-comb/app/feed"
	"github.com/lysyi3m/paper-comb/app/fetcher"
)

type DocumentServiceInterface interface {
	Render(raw []byte, templateName string) (*documents.Result, error)
	RenderSource(ctx context.Context, source *feed.Config, page fetcher.Page, templateName string, refresh bool) (*documents.Result, error)
}

var _ DocumentServiceInterface = (*documents.Service)(nil)

type TemplateListerInterface interface {
	Names() []string
}

var _ TemplateListerInterface = (*feed.TemplateStore)(nil)

type Handler struct {
	documents    DocumentServiceInterface
	templates    TemplateListerInterface
	configCache  *feed.ConfigCache
	docRepo      database.DocumentRepository
	maxBodyBytes int64
}
