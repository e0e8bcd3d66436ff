// Package storage holds the persistence port of the feed and its adapters.
// Every adapter reads and writes the whole document at once.
package storage

import (
	"context"

	"socialfeed/pkg/model"
)

// DocumentStore loads and saves the complete feed document. A store holding no
// document yet returns model.NewDocument() from Load.
type DocumentStore interface {
	Load(ctx context.Context) (model.Document, error)
	Save(ctx context.Context, doc model.Document) error
}

const DefaultDocumentKey = "socialfeed"

func normalize(doc model.Document) model.Document {
	if doc.Users.Len() == 0 {
		doc.Users = model.NewUserDirectory()
	}
	if doc.Posts == nil {
		doc.Posts = []model.Post{}
	}
	for i := range doc.Posts {
		doc.Posts[i] = doc.Posts[i].Clone()
	}
	return doc
}
