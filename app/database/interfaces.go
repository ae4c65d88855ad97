package database

import (
	"time"
)

type DocumentRepository interface {
	GetDocument(templateName, cacheKey string) (*Document, error)
	GetDocumentCount() (int, error)

	SaveDocument(doc Document) (string, error)
	DeleteDocumentsOlderThan(cutoff time.Time) (int64, error)
}
