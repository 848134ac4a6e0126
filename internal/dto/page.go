// Package dto 定义了跨层传递的输出结构。
package dto

// Page 是所有列表查询共用的分页信封。
// page 从 0 开始，size >= 1；TotalPages 至少为 1，即使没有任何条目。
type Page struct {
	Items      interface{} `json:"items"`
	Page       int         `json:"page"`
	Size       int         `json:"size"`
	TotalItems int64       `json:"total_items"`
	TotalPages int         `json:"total_pages"`
	HasNext    bool        `json:"has_next"`
	HasPrev    bool        `json:"has_prev"`
}

// NewPage 根据条目和总数计算分页元数据。
// totalPages = max(1, ceil(totalItems/size))，hasNext = page+1 < totalPages。
func NewPage(items interface{}, page, size int, totalItems int64) Page {
	totalPages := int((totalItems + int64(size) - 1) / int64(size)) // 向上取整
	if totalPages < 1 {
		totalPages = 1
	}
	return Page{
		Items:      items,
		Page:       page,
		Size:       size,
		TotalItems: totalItems,
		TotalPages: totalPages,
		HasNext:    page+1 < totalPages,
		HasPrev:    page > 0,
	}
}
