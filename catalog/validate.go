/*
validate.go - Book create/update validation

PURPOSE:
  Turns an untrusted book payload into a validated Book, or a FieldErrors
  naming each violated field. Rate problems name the author, not the row
  index, because that is what the person fixing the form needs.

RULES:
  - title, publication date and ISBN-13 are required on create
  - at least one author on create; duplicate authors rejected by name
  - royalty rate required per author, a decimal in [0, 1]
  - ISBNs normalized (see isbn.go)

UPDATE SEMANTICS:
  Updates are partial: only provided fields are validated and applied, and
  the author set is replaced only when one is provided.
*/
package catalog

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/inkwell/royalty-engine/royalty"
)

// NameResolver maps an author id to a display name for error messages.
// A nil resolver falls back to the raw id.
type NameResolver func(authorID string) string

// RateEntry is one author row in a book payload: the author id and the
// royalty rate as typed (string, so "" means missing rather than zero).
type RateEntry struct {
	AuthorID string
	Rate     string
}

// BookDraft is an unvalidated book payload.
type BookDraft struct {
	Title           string
	PublicationDate string // YYYY-MM-DD
	ISBN13          string
	ISBN10          string
	Authors         []RateEntry
}

// Validate checks a full create payload and returns the validated Book
// (without ID) or the field errors. The returned book's Authors carry
// parsed rates and resolved names.
func (d *BookDraft) Validate(resolve NameResolver) (Book, FieldErrors) {
	errs := FieldErrors{}
	book := Book{Title: d.Title}

	if d.Title == "" {
		errs["title"] = "Title is required."
	}

	if d.PublicationDate == "" {
		errs["publication_date"] = "Publication date is required."
	} else if pub, err := time.Parse("2006-01-02", d.PublicationDate); err != nil {
		errs["publication_date"] = "Publication date must be in YYYY-MM-DD format."
	} else {
		book.PublicationDate = pub
	}

	if v, msg := ValidateISBN13(d.ISBN13); msg != "" {
		errs["isbn_13"] = msg
	} else {
		book.ISBN13 = v
	}
	if v, msg := ValidateISBN10(d.ISBN10); msg != "" {
		errs["isbn_10"] = msg
	} else {
		book.ISBN10 = v
	}

	if len(d.Authors) == 0 {
		errs["authors"] = "At least one author is required."
	} else {
		shares, msg := validateShares(d.Authors, resolve)
		if msg != "" {
			errs["authors"] = msg
		}
		book.Authors = shares
	}

	if errs.Any() {
		return Book{}, errs
	}
	return book, nil
}

// ValidateShares validates a replacement author set on update.
func ValidateShares(entries []RateEntry, resolve NameResolver) ([]royalty.AuthorShare, string) {
	return validateShares(entries, resolve)
}

func validateShares(entries []RateEntry, resolve NameResolver) ([]royalty.AuthorShare, string) {
	resolveName := func(id string) string {
		if resolve != nil {
			if name := resolve(id); name != "" {
				return name
			}
		}
		return id
	}

	seen := make(map[string]bool)
	shares := make([]royalty.AuthorShare, 0, len(entries))

	for _, e := range entries {
		name := resolveName(e.AuthorID)

		if seen[e.AuthorID] {
			return nil, "Author " + name + " is added more than once."
		}
		seen[e.AuthorID] = true

		if e.Rate == "" {
			return nil, "Royalty rate for author " + name + " is required."
		}
		rate, err := decimal.NewFromString(e.Rate)
		if err != nil {
			return nil, "Royalty rate for author " + name + " must be a valid decimal number."
		}
		if rate.IsNegative() {
			return nil, "Royalty rate for author " + name + " cannot be negative."
		}
		if rate.GreaterThan(decimal.NewFromInt(1)) {
			return nil, "Royalty rate for author " + name + " must be less than or equal to 1 (decimal percentage)."
		}

		shares = append(shares, royalty.AuthorShare{AuthorID: e.AuthorID, Name: name, Rate: rate})
	}
	return shares, ""
}
