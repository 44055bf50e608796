package model

// TenantScoped is implemented by every entity that belongs to exactly one
// branch. Stamping and filtering key off this interface instead of a
// by-name field lookup, so a type missing the branch attribute fails to
// compile at the repository boundary.
type TenantScoped interface {
	GetBranchID() int64
	SetBranchID(id int64)
}

// Pagination represents common pagination parameters
type Pagination struct {
	Page     int `json:"page" form:"page"`
	PageSize int `json:"page_size" form:"page_size"`
}

// Normalize clamps pagination to sane bounds.
func (p *Pagination) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 || p.PageSize > 200 {
		p.PageSize = 50
	}
}
