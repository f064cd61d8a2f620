package search

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Page is a position in a paginated result. Index is zero based.
type Page struct {
	Index int
	Total int
}

// PageCount returns how many pages of size hold n items; at least one.
func PageCount(n, size int) int {
	if size <= 0 || n <= 0 {
		return 1
	}
	return (n + size - 1) / size
}

// Next moves forward; on the last page it is a no-op.
func (p Page) Next() Page {
	if p.Index < p.Total-1 {
		p.Index++
	}
	return p
}

// Previous moves back; on the first page it is a no-op.
func (p Page) Previous() Page {
	if p.Index > 0 {
		p.Index--
	}
	return p
}

// Clamp fits the page into a result that now has total pages.
func (p Page) Clamp(total int) Page {
	if total < 1 {
		total = 1
	}
	p.Total = total
	if p.Index >= total {
		p.Index = total - 1
	}
	if p.Index < 0 {
		p.Index = 0
	}
	return p
}

func (p Page) IsFirst() bool { return p.Index == 0 }
func (p Page) IsLast() bool  { return p.Index >= p.Total-1 }

// Label renders the page as "k/N".
func (p Page) Label() string {
	return fmt.Sprintf("%d/%d", p.Index+1, p.Total)
}

// Window returns the items shown on page p.
func Window[T any](items []T, p Page, size int) []T {
	if size <= 0 {
		return items
	}
	start := p.Index * size
	if start >= len(items) || start < 0 {
		return nil
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// InteractionID identifies a rendered result message.
func InteractionID(chatID int64, messageID int) string {
	return strconv.FormatInt(chatID, 10) + ":" + strconv.Itoa(messageID)
}

type pageState struct {
	mu    sync.Mutex
	query string
	page  Page
}

// Pager keeps the current page of every live interaction. State is evicted
// after ttl or when more than maxInteractions are tracked, least recently used first.
type Pager struct {
	states *expirable.LRU[string, *pageState]
	size   int
}

func NewPager(pageSize, maxInteractions int, ttl time.Duration) *Pager {
	return &Pager{
		states: expirable.NewLRU[string, *pageState](maxInteractions, nil, ttl),
		size:   pageSize,
	}
}

func (p *Pager) PageSize() int {
	return p.size
}

// Start creates the state for an interaction, replacing any previous one.
func (p *Pager) Start(id, query string, count int) Page {
	page := Page{Index: 0, Total: PageCount(count, p.size)}
	p.states.Add(id, &pageState{query: query, page: page})
	return page
}

// Restore recreates a lost interaction at the page index it was showing,
// clamped to the pages count now yields.
func (p *Pager) Restore(id, query string, count, index int) Page {
	page := Page{Index: index}.Clamp(PageCount(count, p.size))
	p.states.Add(id, &pageState{query: query, page: page})
	return page
}

// Next advances the interaction. ok is false when the state expired or never existed.
func (p *Pager) Next(id string) (Page, string, bool) {
	return p.update(id, Page.Next)
}

func (p *Pager) Previous(id string) (Page, string, bool) {
	return p.update(id, Page.Previous)
}

func (p *Pager) Current(id string) (Page, string, bool) {
	return p.update(id, func(pg Page) Page { return pg })
}

// Resize records a new result count, clamping the current index.
func (p *Pager) Resize(id string, count int) (Page, bool) {
	pg, _, ok := p.update(id, func(pg Page) Page { return pg.Clamp(PageCount(count, p.size)) })
	return pg, ok
}

// Discard forgets an interaction.
func (p *Pager) Discard(id string) {
	p.states.Remove(id)
}

// Len reports how many interactions are tracked.
func (p *Pager) Len() int {
	return p.states.Len()
}

func (p *Pager) update(id string, fn func(Page) Page) (Page, string, bool) {
	st, ok := p.states.Get(id)
	if !ok {
		return Page{}, "", false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.page = fn(st.page)
	return st.page, st.query, true
}
