package models

// Page describes one slice of a paginated listing.
type Page struct {
	Total       int `json:"total"`
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
	PerPage     int `json:"per_page"`
}

// ListParams carries the caller-facing pagination inputs. Page numbers are
// 1-based; zero values fall back to defaults at normalization.
type ListParams struct {
	ProgramID string
	Search    string
	Page      int
	Limit     int
}

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Normalize clamps the params to sane bounds and returns the store filter
// plus the effective page and per-page values.
func (p ListParams) Normalize() (page, perPage int) {
	page = p.Page
	if page < 1 {
		page = 1
	}
	perPage = p.Limit
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return page, perPage
}

// NewPage computes the pagination envelope for a listing of total rows.
func NewPage(total, page, perPage int) Page {
	totalPages := (total + perPage - 1) / perPage
	return Page{
		Total:       total,
		CurrentPage: page,
		TotalPages:  totalPages,
		PerPage:     perPage,
	}
}

// OrganizationList is the paginated response envelope for org listings.
type OrganizationList struct {
	Data       []Organization `json:"data"`
	Pagination Page           `json:"pagination"`
}
