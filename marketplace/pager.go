package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	"wmorders/models"
	"wmorders/utils/logger"

	"github.com/tidwall/gjson"
)

// Page is one decoded list response
type Page struct {
	Raw    []byte
	entity string
}

// NewPage checks body is a list document
func NewPage(body []byte, entity string) (*Page, error) {
	const op = "marketplace.NewPage"
	if !gjson.ValidBytes(body) {
		return nil, models.Errorf(models.ErrDecode, op, "response is not json")
	}
	if !gjson.GetBytes(body, "list").Exists() {
		return nil, models.Errorf(models.ErrDecode, op, "response has no list node")
	}
	return &Page{Raw: body, entity: entity}, nil
}

// Elements are the raw entity documents of the page
func (p *Page) Elements() []gjson.Result {
	return gjson.GetBytes(p.Raw, "list.elements."+p.entity).Array()
}

// NextCursor is the query string of the next page, "" on the last page
func (p *Page) NextCursor() string {
	return gjson.GetBytes(p.Raw, "list.meta.nextCursor").String()
}

// TotalCount as reported by the api
func (p *Page) TotalCount() int64 {
	return gjson.GetBytes(p.Raw, "list.meta.totalCount").Int()
}

// Orders decodes the elements as orders
func (p *Page) Orders() ([]models.Order, error) {
	elements := p.Elements()
	orders := make([]models.Order, 0, len(elements))
	for i, e := range elements {
		var o models.Order
		if err := json.Unmarshal([]byte(e.Raw), &o); err != nil {
			return nil, models.Errorf(models.ErrDecode, "marketplace.Page.Orders", "element %d: %v", i, err)
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// ParseCursor decodes a cursor like "?limit=10&soIndex=20" into request params,
// the last value wins when a key repeats
func ParseCursor(cursor string) (url.Values, error) {
	q, err := url.ParseQuery(strings.TrimPrefix(cursor, "?"))
	if err != nil {
		return nil, models.NewError(models.ErrDecode, "marketplace.ParseCursor", err)
	}
	params := url.Values{}
	for k, v := range q {
		if len(v) > 0 {
			params.Set(k, v[len(v)-1])
		}
	}
	return params, nil
}

// Pager pulls one page per Next call, following nextCursor until it is absent
//
//	for p.Next(ctx) {
//		page := p.Page()
//	}
//	if err := p.Err(); err != nil {
//	}
type Pager struct {
	client    *Client
	path      string
	entity    string
	params    url.Values
	page      *Page
	pending   error
	err       error
	done      bool
	truncated bool
	count     int
}

// Next fetches the next page, false once the sequence is over or failed
func (p *Pager) Next(ctx context.Context) bool {
	if p.done {
		return false
	}
	if p.pending != nil {
		return p.fail(p.pending)
	}
	body, err := p.client.Get(ctx, p.path, p.params, "application/json")
	if err != nil {
		return p.fail(err)
	}
	page, err := NewPage(body, p.entity)
	if err != nil {
		return p.fail(err)
	}
	p.page = page
	p.count++

	cursor := page.NextCursor()
	if cursor == "" {
		logger.InfoFmt("[marketplace.Pager] %s: last page after %d pages", p.path, p.count)
		p.done = true
		return true
	}
	p.params, p.pending = ParseCursor(cursor)
	return true
}

func (p *Pager) fail(err error) bool {
	p.done = true
	p.page = nil
	if p.client.Policy() == SkipAndContinue && errors.Is(err, models.ErrHTTP) {
		logger.WarnFmt("[marketplace.Pager] %s: stopping after %d pages, keeping partial data: %v", p.path, p.count, err)
		p.truncated = true
		return false
	}
	p.err = err
	return false
}

// Page is the page fetched by the last successful Next
func (p *Pager) Page() *Page {
	return p.page
}

// Err is the failure that ended the sequence, nil when it ran out or was skipped
func (p *Pager) Err() error {
	return p.err
}

// Truncated reports whether an http failure was skipped under SkipAndContinue
func (p *Pager) Truncated() bool {
	return p.truncated
}

// Count of pages fetched so far
func (p *Pager) Count() int {
	return p.count
}
