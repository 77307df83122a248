package members

import (
	"net/http"

	uierrors "github.com/dalemusser/membersadmin/internal/app/features/errors"
	"github.com/dalemusser/membersadmin/internal/app/system/paging"
	"github.com/dalemusser/membersadmin/internal/app/system/querystate"
	"github.com/dalemusser/membersadmin/internal/app/system/roster"
	"github.com/dalemusser/membersadmin/internal/domain/models"
)

const emptyMessage = "No members match the current filter criteria."

// pageResponse is the body of every list and state endpoint.
type pageResponse struct {
	Data          []models.Member      `json:"data"`
	Total         int                  `json:"total"`
	Page          int                  `json:"page"`
	PageSize      int                  `json:"pageSize"`
	PageCount     int                  `json:"pageCount"`
	RangeStart    int                  `json:"rangeStart"`
	RangeEnd      int                  `json:"rangeEnd"`
	FilterOptions models.FilterOptions `json:"filterOptions"`
	Filters       models.MembersFilter `json:"filters"`
	Loading       bool                 `json:"loading"`
	Skipped       int                  `json:"skipped,omitempty"`
	Message       string               `json:"message,omitempty"`
}

func newPageResponse(data []models.Member, total int, p models.Pagination, pageCount int) pageResponse {
	if data == nil {
		data = []models.Member{}
	}
	rng := paging.ComputeRange(p.Page, p.PageSize, len(data), total)
	resp := pageResponse{
		Data:       data,
		Total:      total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		PageCount:  pageCount,
		RangeStart: rng.Start,
		RangeEnd:   rng.End,
	}
	if total == 0 {
		resp.Message = emptyMessage
	}
	return resp
}

func fromResult(res roster.Result, f models.MembersFilter) pageResponse {
	resp := newPageResponse(res.Data, res.Total, models.Pagination{Page: res.Page, PageSize: res.PageSize}, res.PageCount)
	resp.FilterOptions = res.FilterOptions
	resp.Filters = f
	resp.Skipped = res.Skipped
	return resp
}

func fromState(s querystate.State) pageResponse {
	resp := newPageResponse(s.Members, s.Total, s.Pagination, s.PageCount)
	resp.FilterOptions = s.FilterOptions
	resp.Filters = s.Filters
	resp.Loading = s.Loading
	return resp
}

func writePage(w http.ResponseWriter, resp pageResponse) {
	uierrors.WriteJSON(w, http.StatusOK, resp)
}
