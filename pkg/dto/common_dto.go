package dto

// PageQuery is the common pagination query shared by list endpoints.
type PageQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"pageSize" binding:"omitempty,min=1,max=100"`
}

func (q *PageQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 10
	}
}

func (q PageQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

// Paginated is the list envelope every paginated endpoint returns.
type Paginated[T any] struct {
	Data        []T   `json:"data"`
	TotalPage   int   `json:"totalPage"`
	CurrentPage int   `json:"currentPage"`
	PageSize    int   `json:"pageSize"`
	TotalItems  int64 `json:"totalItems"`
}

func NewPaginated[T any](data []T, totalItems int64, page, pageSize int) *Paginated[T] {
	if data == nil {
		data = []T{}
	}

	totalPage := int(totalItems) / pageSize
	if int(totalItems)%pageSize != 0 {
		totalPage++
	}

	return &Paginated[T]{
		Data:        data,
		TotalPage:   totalPage,
		CurrentPage: page,
		PageSize:    pageSize,
		TotalItems:  totalItems,
	}
}
