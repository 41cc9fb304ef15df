package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rezkam/demand/internal/application/demand"
	"github.com/rezkam/demand/internal/infrastructure/http/response"
)

// Query parameter names of the matrix endpoints.
const (
	paramSkill      = "skill"
	paramClient     = "client"
	paramStaff      = "staff"
	paramStaffMode  = "staff_mode"
	paramMonthStart = "month_start"
	paramMonthEnd   = "month_end"
)

// fieldError is a malformed query parameter.
type fieldError struct {
	field string
	issue string
}

func (e *fieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.field, e.issue)
}

// parseFilter converts query parameters into a FilterRequest.
//
// An absent skill or client parameter means no filter. A present one narrows
// to its non-empty values, so "skill=" selects nothing.
func parseFilter(q url.Values) (demand.FilterRequest, error) {
	req := demand.FilterRequest{
		Skills:         selected(q, paramSkill),
		Clients:        selected(q, paramClient),
		PreferredStaff: nonEmpty(q[paramStaff]),
		StaffMode:      q.Get(paramStaffMode),
	}

	_, hasStart := q[paramMonthStart]
	_, hasEnd := q[paramMonthEnd]
	switch {
	case hasStart != hasEnd:
		return demand.FilterRequest{}, &fieldError{field: "monthRange", issue: "month_start and month_end must be given together"}
	case hasStart:
		start, err := strconv.Atoi(q.Get(paramMonthStart))
		if err != nil {
			return demand.FilterRequest{}, &fieldError{field: paramMonthStart, issue: "must be an integer"}
		}
		end, err := strconv.Atoi(q.Get(paramMonthEnd))
		if err != nil {
			return demand.FilterRequest{}, &fieldError{field: paramMonthEnd, issue: "must be an integer"}
		}
		req.MonthRange = &demand.MonthRangeRequest{Start: start, End: end}
	}

	return req, nil
}

func selected(q url.Values, name string) []string {
	values, ok := q[name]
	if !ok {
		return nil
	}
	out := nonEmpty(values)
	if out == nil {
		out = []string{}
	}
	return out
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func writeFilterError(w http.ResponseWriter, r *http.Request, err error) {
	var fe *fieldError
	if errors.As(err, &fe) {
		response.ValidationError(w, fe.field, fe.issue)
		return
	}
	response.FromDomainError(w, r, err)
}
