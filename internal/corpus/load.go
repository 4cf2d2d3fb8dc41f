package corpus

import (
	"bufio"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/internal/tfidf"
	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/internal/tokenizer"
)

const maxLineBytes = 1 << 20

// LoadLines reads r line by line and tokenizes it into one document. Token
// order follows line order.
func LoadLines(r io.Reader, id string, opts tokenizer.Options) (tfidf.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	doc := tfidf.Document{ID: id, Tokens: make([]string, 0)}
	for scanner.Scan() {
		doc.Tokens = append(doc.Tokens, tokenizer.Tokenize(scanner.Text(), opts)...)
	}
	if err := scanner.Err(); err != nil {
		return tfidf.Document{}, fmt.Errorf("reading lines of %s: %w", id, err)
	}
	return doc, nil
}

// LoadFile tokenizes one file; the document ID is the file name without its
// extension.
func LoadFile(path string, opts tokenizer.Options) (tfidf.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return tfidf.Document{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return LoadLines(f, DocumentID(path), opts)
}

// LoadDir loads every *.txt file directly under dir, ordered by ID.
func LoadDir(dir string, opts tokenizer.Options) (tfidf.Corpus, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading corpus directory: %w", err)
	}
	logger := slog.Default().With("component", "corpus-loader")
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".txt") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	out := make(tfidf.Corpus, 0, len(names))
	for _, name := range names {
		doc, err := LoadFile(filepath.Join(dir, name), opts)
		if err != nil {
			return nil, err
		}
		logger.Debug("document loaded", "doc_id", doc.ID, "token_count", len(doc.Tokens))
		out = append(out, doc)
	}
	logger.Info("corpus loaded", "dir", dir, "documents", len(out))
	return out, nil
}

// DocumentID derives a document ID from a file path.
func DocumentID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Fingerprint is a stable hex SHA-256 over document IDs and tokens. Document
// order does not matter; token order does.
func Fingerprint(c tfidf.Corpus) string {
	docs := make([]tfidf.Document, len(c))
	copy(docs, c)
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].ID < docs[j].ID
	})
	h := sha256.New()
	var lenBuf [8]byte
	write := func(s string) {
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(s)))
		h.Write(lenBuf[:])
		h.Write([]byte(s))
	}
	for _, doc := range docs {
		write(doc.ID)
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(doc.Tokens)))
		h.Write(lenBuf[:])
		for _, tok := range doc.Tokens {
			write(tok)
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
