// Package models defines the registration-data entity graph: deduplicated
// entity records and the source-tagged associations that link them to programs
// and owning organizations.
package models

import (
	"time"

	"registrar/pkg/domain"
)

// Category is the entity type of an association. It is a closed set; every
// store and service switches over these tags instead of consulting runtime
// table-name lookups.
type Category string

const (
	CategoryOrg        Category = "org"
	CategoryName       Category = "name"
	CategoryEmail      Category = "email"
	CategoryAddress    Category = "address"
	CategoryNameserver Category = "nameserver"
	CategoryPhone      Category = "phone"
	CategoryGroup      Category = "group"
)

// Source identifies one of the two observation pipelines feeding the shared
// entity pool.
type Source string

const (
	SourceWhois Source = "whois"
	SourceRdap  Source = "rdap"
)

// ParseSource validates the path parameter form of a source.
func ParseSource(s string) (Source, bool) {
	switch Source(s) {
	case SourceWhois, SourceRdap:
		return Source(s), true
	default:
		return "", false
	}
}

// Categories returns the category set this source accepts. Only RDAP
// observations carry entity groups.
func (s Source) Categories() []Category {
	base := []Category{
		CategoryOrg,
		CategoryName,
		CategoryEmail,
		CategoryAddress,
		CategoryNameserver,
		CategoryPhone,
	}
	if s == SourceRdap {
		base = append(base, CategoryGroup)
	}
	return base
}

// RelatedCategories returns the non-org categories in the fixed order related
// entities are reported in. The order carries no meaning but must be stable
// for pagination-free callers.
func (s Source) RelatedCategories() []Category {
	related := []Category{
		CategoryName,
		CategoryEmail,
		CategoryAddress,
		CategoryNameserver,
		CategoryPhone,
	}
	if s == SourceRdap {
		related = append(related, CategoryGroup)
	}
	return related
}

// Accepts reports whether category is valid for this source.
func (s Source) Accepts(category Category) bool {
	for _, c := range s.Categories() {
		if c == category {
			return true
		}
	}
	return false
}

// Entity is one record in the entity pools. Organization entities are scoped
// to a program via ProgramID; all other categories are shared globally and
// leave ProgramID empty.
type Entity struct {
	ID        domain.EntityID
	Category  Category
	Value     string
	ProgramID domain.ProgramID
	CreatedAt time.Time
}

// Association links a resolved entity to a program for one source. OrgID is
// nil only for org-category rows; a non-org association always points at the
// organization entity it was observed under.
type Association struct {
	ID        domain.AssociationID
	Source    Source
	Category  Category
	EntityID  domain.EntityID
	ProgramID domain.ProgramID
	OrgID     *domain.EntityID
	CreatedAt time.Time
}

// RelatedEntity is the flattened read model for entities attached to an
// organization.
type RelatedEntity struct {
	ID       domain.EntityID `json:"id"`
	Category Category        `json:"type"`
	Value    string          `json:"value"`
}

// Organization is the read model for the org listing: the org association
// joined to its entity value, optionally carrying related entities.
type Organization struct {
	ID        domain.EntityID  `json:"id"`
	Value     string           `json:"value"`
	ProgramID domain.ProgramID `json:"programId"`
	Related   []RelatedEntity  `json:"related,omitzero"`
}

// ListFilter narrows the organization listing.
type ListFilter struct {
	ProgramID domain.ProgramID
	Search    string
	Offset    int
	Limit     int
}
