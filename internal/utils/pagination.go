package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type PaginationParams struct {
	Page     int    `json:"page" form:"page"`
	PageSize int    `json:"page_size" form:"page_size"`
	Sort     string `json:"sort" form:"sort"`
	Order    string `json:"order" form:"order"`
	// After is an optional id cursor; when set it wins over Page for
	// stable iteration under concurrent inserts.
	After string `json:"after" form:"after"`
}

type PaginationMeta struct {
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
	Total      int64  `json:"total"`
	TotalPages int    `json:"total_pages"`
	HasNext    bool   `json:"has_next"`
	NextCursor string `json:"next_cursor,omitempty"`
}

func GetPaginationParams(c *gin.Context) *PaginationParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(DefaultPageSize)))
	sort := c.DefaultQuery("sort", "created_at")
	order := c.DefaultQuery("order", "desc")
	after := c.Query("after")

	if page < 1 {
		page = 1
	}
	if pageSize < MinPageSize {
		pageSize = MinPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if order != "asc" && order != "desc" {
		order = "desc"
	}

	return &PaginationParams{
		Page:     page,
		PageSize: pageSize,
		Sort:     sort,
		Order:    order,
		After:    after,
	}
}

func (p *PaginationParams) GetSkip() int {
	if p.After != "" {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

func (p *PaginationParams) GetLimit() int {
	return p.PageSize
}

func (p *PaginationParams) GetSortOptions() *options.FindOptions {
	opts := options.Find()
	opts.SetSkip(int64(p.GetSkip()))
	opts.SetLimit(int64(p.GetLimit()))

	sortOrder := 1
	if p.Order == "desc" {
		sortOrder = -1
	}
	opts.SetSort(bson.D{{Key: p.Sort, Value: sortOrder}})

	return opts
}

// GetCursorFilter returns the id-range clause for the After cursor, or
// nil when paging by offset.
func (p *PaginationParams) GetCursorFilter() bson.M {
	if p.After == "" {
		return nil
	}
	id, err := primitive.ObjectIDFromHex(p.After)
	if err != nil {
		return nil
	}
	if p.Order == "asc" {
		return bson.M{"_id": bson.M{"$gt": id}}
	}
	return bson.M{"_id": bson.M{"$lt": id}}
}

func CreatePaginationMeta(params *PaginationParams, total int64) *PaginationMeta {
	totalPages := int((total + int64(params.PageSize) - 1) / int64(params.PageSize))
	return &PaginationMeta{
		Page:       params.Page,
		PageSize:   params.PageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    params.Page < totalPages,
	}
}
