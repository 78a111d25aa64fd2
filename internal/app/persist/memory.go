package persist

import (
	"sort"
	"sync"

	"github.com/tutu-network/pocketmoney/internal/domain"
)

// MemoryStore is an in-process DocumentStore. Tests use it to inject write
// failures; the daemon always uses sqlite.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string]domain.Document

	failPut  error
	failKind string // empty fails every kind
}

// NewMemoryStore creates an empty in-memory document store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]domain.Document)}
}

var _ domain.DocumentStore = (*MemoryStore)(nil)

func memKey(scope, kind string) string { return scope + "\x00" + kind }

// GetDocument implements domain.DocumentStore.
func (m *MemoryStore) GetDocument(scope, kind string) (domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[memKey(scope, kind)]
	if !ok {
		return domain.Document{}, domain.ErrDocumentNotFound
	}
	doc.Body = append([]byte(nil), doc.Body...)
	return doc, nil
}

// PutDocument implements domain.DocumentStore.
func (m *MemoryStore) PutDocument(doc domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPut != nil && (m.failKind == "" || m.failKind == doc.Kind) {
		return m.failPut
	}
	doc.Body = append([]byte(nil), doc.Body...)
	m.docs[memKey(doc.Scope, doc.Kind)] = doc
	return nil
}

// DeleteScope implements domain.DocumentStore.
func (m *MemoryStore) DeleteScope(scope string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, doc := range m.docs {
		if doc.Scope == scope {
			delete(m.docs, k)
		}
	}
	return nil
}

// ListDocuments implements domain.DocumentStore, ordered by scope then kind.
func (m *MemoryStore) ListDocuments() ([]domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Document, 0, len(m.docs))
	for _, doc := range m.docs {
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Scope != out[j].Scope {
			return out[i].Scope < out[j].Scope
		}
		return out[i].Kind < out[j].Kind
	})
	return out, nil
}

// SetFailPut makes every later PutDocument return err. Nil restores writes.
func (m *MemoryStore) SetFailPut(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPut, m.failKind = err, ""
}

// SetFailPutKind makes later writes of one document kind return err.
func (m *MemoryStore) SetFailPutKind(kind string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPut, m.failKind = err, kind
}
