// Package snapshot exports and imports every persisted document as a
// zstd-compressed JSON-lines stream: one header line, then one document
// per line.
package snapshot

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/tutu-network/pocketmoney/internal/domain"
)

// Format identifies the stream; Version its layout.
const (
	Format  = "pocketmoney-backup"
	Version = 1
)

// ErrBadHeader is returned when the stream is not a backup this package wrote.
var ErrBadHeader = errors.New("not a pocketmoney backup")

// Header is the first line of a backup.
type Header struct {
	Format    string    `json:"format"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	Documents int       `json:"documents"`
}

// Export writes docs to w.
func Export(w io.Writer, docs []domain.Document) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)
	je := json.NewEncoder(bw)

	hdr := Header{Format: Format, Version: Version, CreatedAt: time.Now().UTC(), Documents: len(docs)}
	if err := je.Encode(hdr); err != nil {
		enc.Close()
		return fmt.Errorf("encode header: %w", err)
	}
	for _, doc := range docs {
		if err := je.Encode(doc); err != nil {
			enc.Close()
			return fmt.Errorf("encode %s/%s: %w", doc.Scope, doc.Kind, err)
		}
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// Import reads a backup written by Export.
func Import(r io.Reader) (Header, []domain.Document, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return Header{}, nil, err
	}
	defer dec.Close()

	jd := json.NewDecoder(bufio.NewReaderSize(dec, 64*1024))
	var hdr Header
	if err := jd.Decode(&hdr); err != nil {
		return Header{}, nil, fmt.Errorf("%w: %v", ErrBadHeader, err)
	}
	if hdr.Format != Format || hdr.Version != Version {
		return Header{}, nil, fmt.Errorf("%w: format %q v%d", ErrBadHeader, hdr.Format, hdr.Version)
	}

	docs := make([]domain.Document, 0, hdr.Documents)
	for {
		var doc domain.Document
		err := jd.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Header{}, nil, fmt.Errorf("decode document %d: %w", len(docs)+1, err)
		}
		docs = append(docs, doc)
	}
	if len(docs) != hdr.Documents {
		return Header{}, nil, fmt.Errorf("backup truncated: header says %d documents, read %d", hdr.Documents, len(docs))
	}
	return hdr, docs, nil
}

// ExportFile writes every document in store to path.
func ExportFile(path string, store domain.DocumentStore) (int, error) {
	docs, err := store.ListDocuments()
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return 0, err
	}
	if err := Export(f, docs); err != nil {
		f.Close()
		return 0, err
	}
	return len(docs), f.Close()
}

// ImportFile restores every document in the backup at path into store.
// Documents not in the backup are left as they are.
func ImportFile(path string, store domain.DocumentStore) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	_, docs, err := Import(f)
	if err != nil {
		return 0, err
	}
	for _, doc := range docs {
		if err := store.PutDocument(doc); err != nil {
			return 0, fmt.Errorf("restore %s/%s: %w", doc.Scope, doc.Kind, err)
		}
	}
	return len(docs), nil
}
