package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tutu-network/pocketmoney/internal/domain"
)

// ─── Document Operations ────────────────────────────────────────────────────

var _ domain.DocumentStore = (*DB)(nil)

// GetDocument returns the document stored for (scope, kind).
func (db *DB) GetDocument(scope, kind string) (domain.Document, error) {
	var (
		doc     domain.Document
		updated string
	)
	err := db.db.QueryRow(`
		SELECT scope, kind, version, body, updated_at
		FROM documents WHERE scope = ? AND kind = ?
	`, scope, kind).Scan(&doc.Scope, &doc.Kind, &doc.Version, &doc.Body, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Document{}, domain.ErrDocumentNotFound
	}
	if err != nil {
		return domain.Document{}, fmt.Errorf("get document %s/%s: %w", scope, kind, err)
	}
	doc.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return doc, nil
}

// PutDocument inserts or replaces a document.
func (db *DB) PutDocument(doc domain.Document) error {
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = time.Now()
	}
	_, err := db.db.Exec(`
		INSERT INTO documents (scope, kind, version, body, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(scope, kind) DO UPDATE SET
			version    = excluded.version,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, doc.Scope, doc.Kind, doc.Version, doc.Body, doc.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("put document %s/%s: %w", doc.Scope, doc.Kind, err)
	}
	return nil
}

// DeleteScope removes every document of a scope.
func (db *DB) DeleteScope(scope string) error {
	if _, err := db.db.Exec(`DELETE FROM documents WHERE scope = ?`, scope); err != nil {
		return fmt.Errorf("delete scope %s: %w", scope, err)
	}
	return nil
}

// ListDocuments returns all documents ordered by scope and kind.
func (db *DB) ListDocuments() ([]domain.Document, error) {
	rows, err := db.db.Query(`
		SELECT scope, kind, version, body, updated_at
		FROM documents ORDER BY scope, kind
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var (
			doc     domain.Document
			updated string
		)
		if err := rows.Scan(&doc.Scope, &doc.Kind, &doc.Version, &doc.Body, &updated); err != nil {
			return nil, err
		}
		doc.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// CountScopes returns the number of distinct scopes holding documents.
func (db *DB) CountScopes() (int, error) {
	var n int
	err := db.db.QueryRow(`SELECT COUNT(DISTINCT scope) FROM documents`).Scan(&n)
	return n, err
}
