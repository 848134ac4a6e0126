package dto_test

import (
	"testing"

	"collaborative-whiteboard/internal/dto"
	"github.com/stretchr/testify/assert"
)

func TestNewPage_Metadata(t *testing.T) {
	testCases := []struct {
		name       string
		page       int
		size       int
		totalItems int64
		totalPages int
		hasNext    bool
		hasPrev    bool
	}{
		{"空结果仍有一页", 0, 10, 0, 1, false, false},
		{"不足一页", 0, 10, 7, 1, false, false},
		{"恰好整页", 0, 10, 20, 2, true, false},
		{"向上取整", 0, 10, 21, 3, true, false},
		{"中间页", 1, 10, 21, 3, true, true},
		{"最后一页", 2, 10, 21, 3, false, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			page := dto.NewPage(nil, tc.page, tc.size, tc.totalItems)
			assert.Equal(t, tc.totalPages, page.TotalPages)
			assert.Equal(t, tc.hasNext, page.HasNext)
			assert.Equal(t, tc.hasPrev, page.HasPrev)
			assert.Equal(t, tc.totalItems, page.TotalItems)
		})
	}
}
