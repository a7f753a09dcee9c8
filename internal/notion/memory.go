package notion

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
)

// Call records one operation against a MemoryStore.
type Call struct {
	Op     string
	Target string
	Count  int // blocks sent by append_children
}

// MemoryStore is an in-process stand-in for the Notion API. It keeps a tree
// of blocks, mirrors the API's handling of nested children and column lists,
// and records every call. It is safe for concurrent use.
type MemoryStore struct {
	// FailOn, when set, is consulted before every call; a non-nil result is
	// returned as the call's error.
	FailOn func(Call) error

	mu        sync.Mutex
	nodes     map[string]*memNode
	pages     map[string]*Page
	databases map[string]*Database
	calls     []Call
}

type memNode struct {
	block    Block
	parent   string
	children []string
}

// NewMemoryStore creates a store holding a single root page.
func NewMemoryStore(rootID, rootTitle string) *MemoryStore {
	s := &MemoryStore{
		nodes:     make(map[string]*memNode),
		pages:     make(map[string]*Page),
		databases: make(map[string]*Database),
	}
	s.nodes[rootID] = &memNode{block: Block{Object: "block", ID: rootID, Type: TypeChildPage, ChildPage: &ChildTitle{Title: rootTitle}}}
	s.pages[rootID] = &Page{ID: rootID, Title: rootTitle}
	return s
}

// Calls returns the calls made so far.
func (s *MemoryStore) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CountCalls returns how many calls of op were made.
func (s *MemoryStore) CountCalls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Len returns the number of nodes in the store, root included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nodes)
}

func (s *MemoryStore) record(c Call) error {
	s.calls = append(s.calls, c)
	if s.FailOn != nil {
		return s.FailOn(c)
	}
	return nil
}

func notFound(id string) error {
	return &APIError{Status: http.StatusNotFound, Code: "object_not_found", Message: fmt.Sprintf("could not find block with ID: %s", id)}
}

func invalid(format string, args ...any) error {
	return &APIError{Status: http.StatusBadRequest, Code: "validation_error", Message: fmt.Sprintf(format, args...)}
}

func (s *MemoryStore) CreatePage(ctx context.Context, parentID, title, icon string) (*Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(Call{Op: "create_page", Target: parentID}); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, ok := s.pages[parentID]; !ok {
		return nil, notFound(parentID)
	}

	id := uuid.NewString()
	s.attach(parentID, id, Block{Type: TypeChildPage, ChildPage: &ChildTitle{Title: title}})
	page := &Page{ID: id, Icon: EmojiIcon(icon), Title: title}
	s.pages[id] = page
	cp := *page
	return &cp, nil
}

func (s *MemoryStore) CreateDatabase(ctx context.Context, parentID string, db *Database) (*Database, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(Call{Op: "create_database", Target: parentID}); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, ok := s.pages[parentID]; !ok {
		return nil, notFound(parentID)
	}
	titles := 0
	for _, p := range db.Properties {
		if p.Type == "title" {
			titles++
		}
	}
	if titles != 1 {
		return nil, invalid("a database needs exactly one title property, got %d", titles)
	}

	id := uuid.NewString()
	title := PlainText(db.Title)
	s.attach(parentID, id, Block{Type: TypeChildDatabase, ChildDatabase: &ChildTitle{Title: title}})
	stored := *db
	stored.ID = id
	stored.Properties = make(map[string]Property, len(db.Properties))
	for name, p := range db.Properties {
		if p.ID == "" {
			p.ID = uuid.NewString()[:4]
		}
		stored.Properties[name] = p
	}
	s.databases[id] = &stored
	cp := stored
	return &cp, nil
}

// attach stores b under parentID with the given ID.
func (s *MemoryStore) attach(parentID, id string, b Block) {
	b.Object = "block"
	b.ID = id
	s.nodes[id] = &memNode{block: b, parent: parentID}
	parent := s.nodes[parentID]
	parent.children = append(parent.children, id)
}

func (s *MemoryStore) AppendChildren(ctx context.Context, parentID string, children []Block) ([]Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(Call{Op: "append_children", Target: parentID, Count: len(children)}); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, ok := s.nodes[parentID]; !ok {
		return nil, notFound(parentID)
	}
	if len(children) > maxAppend {
		return nil, invalid("body.children.length should be ≤ %d, instead was %d", maxAppend, len(children))
	}
	for _, b := range children {
		if err := checkAppend(b); err != nil {
			return nil, err
		}
	}

	created := make([]Block, 0, len(children))
	for _, b := range children {
		id := s.insert(parentID, b)
		created = append(created, s.view(id))
	}
	return created, nil
}

// checkAppend applies the API's structural rules to a block about to be created.
func checkAppend(b Block) error {
	switch b.Type {
	case TypeChildPage, TypeChildDatabase:
		return invalid("%s blocks cannot be appended; create a page or database instead", b.Type)
	case TypeColumnList:
		_, cols := b.Detach()
		if len(cols) < 2 {
			return invalid("column_list needs at least 2 columns, got %d", len(cols))
		}
		for _, col := range cols {
			if col.Type != TypeColumn {
				return invalid("column_list children must be columns, got %s", col.Type)
			}
			if _, kids := col.Detach(); len(kids) == 0 {
				return invalid("column needs at least 1 child")
			}
		}
	case TypeColumn:
		return invalid("columns can only be created inside a column_list")
	case "":
		return invalid("block type is required")
	}
	_, kids := b.Detach()
	for _, k := range kids {
		if b.Type == TypeColumnList {
			_, grandkids := k.Detach()
			for _, g := range grandkids {
				if err := checkAppend(g); err != nil {
					return err
				}
			}
			continue
		}
		if err := checkAppend(k); err != nil {
			return err
		}
	}
	return nil
}

// insert stores b and its nested children recursively and returns b's ID.
func (s *MemoryStore) insert(parentID string, b Block) string {
	stripped, kids := b.Detach()
	id := uuid.NewString()
	s.attach(parentID, id, stripped)
	for _, k := range kids {
		s.insert(id, k)
	}
	return id
}

// view returns the block as the API lists it: no nested children,
// has_children set.
func (s *MemoryStore) view(id string) Block {
	n := s.nodes[id]
	b := n.block
	b.HasChildren = len(n.children) > 0
	return b
}

func (s *MemoryStore) ListChildren(ctx context.Context, blockID string) ([]Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(Call{Op: "list_children", Target: blockID}); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n, ok := s.nodes[blockID]
	if !ok {
		return nil, notFound(blockID)
	}
	out := make([]Block, 0, len(n.children))
	for _, id := range n.children {
		out = append(out, s.view(id))
	}
	return out, nil
}

func (s *MemoryStore) RetrievePage(ctx context.Context, pageID string) (*Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(Call{Op: "retrieve_page", Target: pageID}); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, ok := s.pages[pageID]
	if !ok {
		return nil, notFound(pageID)
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) RetrieveDatabase(ctx context.Context, databaseID string) (*Database, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(Call{Op: "retrieve_database", Target: databaseID}); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	db, ok := s.databases[databaseID]
	if !ok {
		return nil, notFound(databaseID)
	}
	cp := *db
	return &cp, nil
}

func (s *MemoryStore) DeleteBlock(ctx context.Context, blockID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(Call{Op: "delete_block", Target: blockID}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	n, ok := s.nodes[blockID]
	if !ok || n.parent == "" {
		return notFound(blockID)
	}
	parent := s.nodes[n.parent]
	for i, id := range parent.children {
		if id == blockID {
			parent.children = append(parent.children[:i], parent.children[i+1:]...)
			break
		}
	}
	s.remove(blockID)
	return nil
}

func (s *MemoryStore) remove(id string) {
	n := s.nodes[id]
	for _, c := range n.children {
		s.remove(c)
	}
	delete(s.nodes, id)
	delete(s.pages, id)
	delete(s.databases, id)
}
