package util

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Pagination is the page descriptor returned next to every list.
type Pagination struct {
	Total       int64 `json:"total"`
	TotalPages  int64 `json:"totalPages"`
	CurrentPage int   `json:"currentPage"`
	Limit       int   `json:"limit"`
}

// Calculate clamps page/limit and returns the matching SQL offset.
func Calculate(page, limit int) (offset, size, current int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > MaxPageSize {
		limit = DefaultPageSize
	}
	return (page - 1) * limit, limit, page
}

func Paginate(total int64, page, limit int) Pagination {
	pages := (total + int64(limit) - 1) / int64(limit)
	return Pagination{
		Total:       total,
		TotalPages:  pages,
		CurrentPage: page,
		Limit:       limit,
	}
}
