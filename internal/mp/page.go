package mp

// Page is one slice of a matched record sequence.
type Page struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalItems int  `json:"total_items"`
	TotalPages int  `json:"total_pages"`
	Items      []MP `json:"items"`
}

// Paginate cuts matched into the requested page. Callers validate page >= 1
// and limit >= 1. Zero matches yield zero pages; a page past the end yields
// no items but keeps the totals.
func Paginate(matched []MP, page, limit int) Page {
	total := len(matched)
	if total == 0 {
		return Page{Page: page, Limit: limit, Items: []MP{}}
	}

	totalPages := (total + limit - 1) / limit
	if page > totalPages {
		return Page{Page: page, Limit: limit, TotalItems: total, TotalPages: totalPages, Items: []MP{}}
	}
	start := (page - 1) * limit
	end := start + limit
	if end > total {
		end = total
	}

	items := make([]MP, end-start)
	copy(items, matched[start:end])

	return Page{
		Page:       page,
		Limit:      limit,
		TotalItems: total,
		TotalPages: totalPages,
		Items:      items,
	}
}
