package restdb

import (
	"net/url"
	"strconv"
	"strings"
)

// OrderParam orders a query by one column.
type OrderParam struct {
	Column    string
	Ascending bool
}

// QueryParams builds a PostgREST predicate string. Zero values are omitted;
// encoding is deterministic since url.Values sorts keys.
type QueryParams struct {
	Select string
	Eq     map[string]string
	In     map[string][]string
	GTE    map[string]string
	LTE    map[string]string
	Order  *OrderParam
	Limit  int
}

func (q QueryParams) Encode() string {
	values := url.Values{}
	if q.Select != "" {
		values.Add("select", q.Select)
	}
	for column, value := range q.Eq {
		values.Add(column, "eq."+value)
	}
	for column, list := range q.In {
		values.Add(column, "in.("+strings.Join(list, ",")+")")
	}
	for column, value := range q.GTE {
		values.Add(column, "gte."+value)
	}
	for column, value := range q.LTE {
		values.Add(column, "lte."+value)
	}
	if q.Order != nil {
		direction := "desc"
		if q.Order.Ascending {
			direction = "asc"
		}
		values.Add("order", q.Order.Column+"."+direction)
	}
	if q.Limit > 0 {
		values.Add("limit", strconv.Itoa(q.Limit))
	}
	return values.Encode()
}
