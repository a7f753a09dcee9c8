// Package architect turns documents into remote Notion trees and reads
// remote trees back into documents.
package architect

import (
	"context"

	"github.com/renderinc/notion-architect/internal/notion"
)

// Store is the remote content store. *notion.Client and *notion.MemoryStore
// implement it.
type Store interface {
	CreatePage(ctx context.Context, parentID, title, icon string) (*notion.Page, error)
	CreateDatabase(ctx context.Context, parentID string, db *notion.Database) (*notion.Database, error)
	AppendChildren(ctx context.Context, parentID string, children []notion.Block) ([]notion.Block, error)
	ListChildren(ctx context.Context, blockID string) ([]notion.Block, error)
	RetrievePage(ctx context.Context, pageID string) (*notion.Page, error)
	RetrieveDatabase(ctx context.Context, databaseID string) (*notion.Database, error)
	DeleteBlock(ctx context.Context, blockID string) error
}

var (
	_ Store = (*notion.Client)(nil)
	_ Store = (*notion.MemoryStore)(nil)
)
