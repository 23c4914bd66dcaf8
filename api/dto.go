/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

MONEY:
  All money fields are serialized as two-decimal strings ("123.45"), never
  JSON numbers. DecimalString accepts either on input because clients have
  historically sent both.

VALIDATION:
  Validation lives in the catalog and sales packages, not in DTOs. DTOs
  are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - sales/validate.go: Field-level validation and messages
*/
package api

import (
	"encoding/json"
	"strconv"

	"github.com/inkwell/royalty-engine/store/sqlite"
)

// =============================================================================
// SHARED TYPES
// =============================================================================

// DecimalString is a decimal value that accepts either a JSON number or a
// JSON string on input, and always marshals as a string.
type DecimalString string

func (d *DecimalString) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = DecimalString(s)
		return nil
	}
	if string(data) == "null" {
		*d = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*d = DecimalString(n.String())
	return nil
}

func (d DecimalString) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(d))), nil
}

// PageDTO is the standard paginated list envelope.
type PageDTO struct {
	Count      int `json:"count"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
	Results    any `json:"results"`
}

// ErrorResponse is the standard error envelope for non-validation errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// BOOKS AND AUTHORS
// =============================================================================

// AuthorDTO represents an author in API responses.
type AuthorDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Bio  string `json:"bio,omitempty"`
}

// AuthorShareDTO is one author's royalty share on a book.
type AuthorShareDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	RoyaltyRate string `json:"royalty_rate"`
}

// BookDTO represents a book in API responses.
type BookDTO struct {
	ID               string           `json:"id"`
	Title            string           `json:"title"`
	PublicationDate  string           `json:"publication_date"`
	ISBN13           string           `json:"isbn_13"`
	ISBN10           string           `json:"isbn_10"`
	Authors          []AuthorShareDTO `json:"authors"`
	TotalSalesToDate int              `json:"total_sales_to_date"`
}

// AuthorRateRequest is one author entry when creating or updating a book.
// Either ID (existing author) or Name (created if missing) must be set.
type AuthorRateRequest struct {
	ID          string        `json:"id,omitempty"`
	Name        string        `json:"name,omitempty"`
	RoyaltyRate DecimalString `json:"royalty_rate"`
}

// CreateBookRequest is the request to create a book.
type CreateBookRequest struct {
	Title           string              `json:"title"`
	PublicationDate string              `json:"publication_date"`
	ISBN13          string              `json:"isbn_13"`
	ISBN10          string              `json:"isbn_10"`
	Authors         []AuthorRateRequest `json:"authors"`
}

// UpdateBookRequest is a partial book update. Nil fields are unchanged;
// a non-nil Authors slice replaces the author set.
type UpdateBookRequest struct {
	Title           *string              `json:"title"`
	PublicationDate *string              `json:"publication_date"`
	ISBN13          *string              `json:"isbn_13"`
	ISBN10          *string              `json:"isbn_10"`
	Authors         *[]AuthorRateRequest `json:"authors"`
}

// CreateAuthorRequest creates an author if no author with the same name
// (case-insensitive) exists.
type CreateAuthorRequest struct {
	Name string `json:"name"`
	Bio  string `json:"bio,omitempty"`
}

// =============================================================================
// SALES
// =============================================================================

// SaleAuthorDTO is one author's royalty row on a sale.
type SaleAuthorDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	RoyaltyAmount string `json:"royalty_amount"`
	Paid          bool   `json:"paid"`
}

// SaleDTO represents a sale line item in API responses.
type SaleDTO struct {
	ID               string          `json:"id"`
	Book             string          `json:"book"`
	BookTitle        string          `json:"book_title"`
	Date             string          `json:"date"`
	Quantity         int             `json:"quantity"`
	PublisherRevenue string          `json:"publisher_revenue"`
	AuthorDetails    []SaleAuthorDTO `json:"author_details"`
	PaidStatus       string          `json:"paid_status"`
}

// SaleWriteRequest is the body for creating or editing a sale. Quantity is
// a float so fractional input fails validation with a message instead of a
// decode error. AuthorRoyalties maps author id to an explicit override.
type SaleWriteRequest struct {
	Book             string                   `json:"book"`
	Date             string                   `json:"date"`
	Quantity         *float64                 `json:"quantity"`
	PublisherRevenue *DecimalString           `json:"publisher_revenue"`
	AuthorRoyalties  map[string]DecimalString `json:"author_royalties,omitempty"`
	AuthorPaid       map[string]bool          `json:"author_paid,omitempty"`
}

// BulkSaleErrorDTO reports validation failures for one entry of a bulk
// create. The whole batch is rejected when any entry fails.
type BulkSaleErrorDTO struct {
	Index  int               `json:"index"`
	Errors map[string]string `json:"errors"`
}

// PayAuthorsResponse reports the result of paying all authors of a sale.
type PayAuthorsResponse struct {
	SaleID     string `json:"sale_id"`
	RowsPaid   int    `json:"rows_paid"`
	TotalPaid  string `json:"total_paid"`
	PaidStatus string `json:"paid_status"`
}

// UnpaidSubtotalResponse is an author's outstanding royalty subtotal.
type UnpaidSubtotalResponse struct {
	AuthorID string `json:"author_id"`
	Subtotal string `json:"subtotal"`
}

// PayUnpaidResponse reports the result of paying an author's unpaid rows.
type PayUnpaidResponse struct {
	AuthorID  string   `json:"author_id"`
	RowsPaid  int      `json:"rows_paid"`
	TotalPaid string   `json:"total_paid"`
	SaleIDs   []string `json:"sale_ids"`
}

// BookTotalsDTO summarizes a book's sales.
type BookTotalsDTO struct {
	BookID           string `json:"book_id"`
	PublisherRevenue string `json:"publisher_revenue"`
	TotalRoyalties   string `json:"total_royalties"`
	PaidRoyalties    string `json:"paid_royalties"`
	UnpaidRoyalties  string `json:"unpaid_royalties"`
}

// PaymentRowDTO is one author-sale row in the grouped payments view.
type PaymentRowDTO struct {
	SaleID        string `json:"sale_id"`
	BookID        string `json:"book_id"`
	BookTitle     string `json:"book_title"`
	Date          string `json:"date"`
	DateKey       int64  `json:"date_key"`
	Quantity      int    `json:"quantity"`
	RoyaltyAmount string `json:"royalty_amount"`
	Paid          bool   `json:"paid"`
}

// AuthorPaymentsDTO is one author's payment rows plus unpaid summary.
type AuthorPaymentsDTO struct {
	Author      AuthorDTO       `json:"author"`
	UnpaidTotal string          `json:"unpaid_total"`
	UnpaidCount int             `json:"unpaid_count"`
	Rows        []PaymentRowDTO `json:"rows"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a loadable demo scenario.
type ScenarioDTO struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects the scenario to load.
type LoadScenarioRequest struct {
	Name string `json:"name"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func pageDTO(meta sqlite.ListMeta, results any) PageDTO {
	return PageDTO{
		Count:      meta.Count,
		Page:       meta.Page,
		PageSize:   meta.PageSize,
		TotalPages: meta.TotalPages,
		Results:    results,
	}
}
