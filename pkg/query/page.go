package query

import "github.com/zulily/modeldb/pkg/errs"

// Page is a 1-indexed pagination window. PageNumber 0 or PageLimit 0
// means "return every matching record, unpaged".
type Page struct {
	PageNumber int
	PageLimit  int
}

// Validate rejects negative window parameters.
func (p Page) Validate() error {
	if p.PageNumber < 0 {
		return errs.InvalidArgument("page_number must be >= 0, got %d", p.PageNumber)
	}
	if p.PageLimit < 0 {
		return errs.InvalidArgument("page_limit must be >= 0, got %d", p.PageLimit)
	}
	return nil
}

// Unpaged reports whether the window covers all matching records.
func (p Page) Unpaged() bool {
	return p.PageNumber == 0 || p.PageLimit == 0
}

// Window returns the LIMIT/OFFSET pair for a paged window. Callers must
// check Unpaged first.
func (p Page) Window() (limit, offset int) {
	return p.PageLimit, (p.PageNumber - 1) * p.PageLimit
}
