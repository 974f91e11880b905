package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func parsePagination(c *gin.Context) (int, int) {
	page := 1
	pageSize := defaultPageSize
	if raw := strings.TrimSpace(c.Query("page")); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			page = value
		}
	}
	if raw := strings.TrimSpace(c.Query("pageSize")); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			pageSize = value
		}
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

type pageMeta struct {
	Page        int   `json:"page"`
	PageSize    int   `json:"pageSize"`
	TotalPage   int   `json:"totalPage"`
	IsFirstPage bool  `json:"isFirstPage"`
	IsLastPage  bool  `json:"isLastPage"`
	Total       int64 `json:"total"`
}

func buildPageMeta(page, pageSize int, total int64) pageMeta {
	if pageSize <= 0 {
		pageSize = 1
	}
	totalPage := int((total + int64(pageSize) - 1) / int64(pageSize))
	if totalPage == 0 {
		totalPage = 1
	}
	if page <= 0 {
		page = 1
	}
	return pageMeta{
		Page:        page,
		PageSize:    pageSize,
		TotalPage:   totalPage,
		IsFirstPage: page <= 1,
		IsLastPage:  page >= totalPage,
		Total:       total,
	}
}
