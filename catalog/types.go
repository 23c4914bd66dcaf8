/*
Package catalog provides the book and author domain model.

PURPOSE:
  Books carry a denormalized list of their authors with per-author royalty
  rates (the book-author relationship is where a rate lives, not the author).
  The catalog is what sale entry selects from: picking a book pins its
  current author set and rates into the sale.

KEY TYPES:
  Author:      a person owed royalties; names are unique case-insensitively
  Book:        title, publication date, ISBNs, author shares
  FieldErrors: field-keyed validation failures returned to the API layer

SEE ALSO:
  - isbn.go:     ISBN normalization and validation
  - validate.go: book create/update validation
  - royalty:     AuthorShare, the per-author rate carried by a Book
*/
package catalog

import (
	"sort"
	"strings"
	"time"

	"github.com/inkwell/royalty-engine/royalty"
)

// Author is a royalty recipient. Name is unique (case-insensitive).
type Author struct {
	ID   string
	Name string
	Bio  string
}

// Book is a catalog entry. Authors holds the current author set with their
// royalty rates, in the order they were attached to the book.
// TotalSalesToDate is derived from sale quantities, never stored.
type Book struct {
	ID               string
	Title            string
	PublicationDate  time.Time
	ISBN13           string
	ISBN10           string
	Authors          []royalty.AuthorShare
	TotalSalesToDate int
}

// Share returns the book's share entry for an author, if present.
func (b *Book) Share(authorID string) (royalty.AuthorShare, bool) {
	for _, s := range b.Authors {
		if s.AuthorID == authorID {
			return s, true
		}
	}
	return royalty.AuthorShare{}, false
}

// AuthorName resolves an author id to a display name, falling back to the
// id itself. Validation messages name authors wherever possible.
func (b *Book) AuthorName(authorID string) string {
	if s, ok := b.Share(authorID); ok && s.Name != "" {
		return s.Name
	}
	return authorID
}

// =============================================================================
// FIELD ERRORS
// =============================================================================

// FieldErrors maps a field name to a validation message. It implements
// error so validation can flow through normal error returns, and it
// serializes directly as the API's {field: message} error body.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e[k]
	}
	return strings.Join(parts, "; ")
}

// Any reports whether any field failed.
func (e FieldErrors) Any() bool { return len(e) > 0 }
