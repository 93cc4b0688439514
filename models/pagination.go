package models

// Pagination describes the page window of a listing response.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// PaginatedEmails is the listing envelope returned by the mailbox service.
type PaginatedEmails struct {
	Items      []*Email   `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// NewPagination computes the page count for a window.
func NewPagination(page, limit, total int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}
}
