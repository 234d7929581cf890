package utils

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskpick-api/internal/constants"
)

// PageQueryParam is the query parameter carrying the 1-based page number
const PageQueryParam = "p"

// PageBounds is a half-open [Start, End) range into a result slice
type PageBounds struct {
	Start int
	End   int
}

// GetPage extracts the requested page from the request, defaulting to the first page
func GetPage(c *gin.Context) int {
	return ParsePage(c.Query(PageQueryParam))
}

// ParsePage parses a 1-based page number. Absent, malformed or non-positive values yield 1.
func ParsePage(raw string) int {
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || page < constants.DefaultPage {
		return constants.DefaultPage
	}
	return page
}

// PageCount returns ceil(total/size)
func PageCount(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// Bounds returns the slice range for page within total items.
// In cumulative mode every item up to the end of page is included;
// in window mode only the items of that page are.
func Bounds(total, page, size int, mode string) PageBounds {
	if page < constants.DefaultPage {
		page = constants.DefaultPage
	}
	// Clamp before multiplying so page*size cannot overflow.
	if last := PageCount(total, size); page > last {
		page = last + 1
	}

	end := page * size
	if end > total {
		end = total
	}

	start := 0
	if mode == constants.PaginationWindow {
		start = (page - 1) * size
		if start > total {
			start = total
		}
	}

	return PageBounds{Start: start, End: end}
}
