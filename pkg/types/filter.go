package types

// Filter represents query parameters for searching and pagination.
type Filter struct {
	Search string                 `json:"search,omitempty"`
	Filter map[string]interface{} `json:"filter,omitempty"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
	Page   int                    `json:"page"`
}

// Pagination represents pagination metadata.
type Pagination struct {
	TotalCount uint64 `json:"totalCount"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	TotalPages int    `json:"totalPages"`
}

func NewPagination(total uint64, page, limit int) Pagination {
	p := Pagination{TotalCount: total, Page: page, Limit: limit}
	if limit > 0 {
		p.TotalPages = int((total + uint64(limit) - 1) / uint64(limit))
	}
	return p
}
