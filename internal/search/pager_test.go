package search

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageClamps(t *testing.T) {
	p := Page{Index: 0, Total: 5}
	assert.Equal(t, p, p.Previous())

	for i := 0; i < 4; i++ {
		p = p.Next()
	}
	assert.Equal(t, 4, p.Index)
	assert.True(t, p.IsLast())
	assert.Equal(t, 4, p.Next().Index)
	assert.Equal(t, "5/5", p.Label())
}

func TestPageCount(t *testing.T) {
	assert.Equal(t, 1, PageCount(0, 10))
	assert.Equal(t, 1, PageCount(10, 10))
	assert.Equal(t, 2, PageCount(11, 10))
	assert.Equal(t, 5, PageCount(50, 10))
	assert.Equal(t, 1, PageCount(7, 0))
}

func TestPageClamp(t *testing.T) {
	p := Page{Index: 4, Total: 5}.Clamp(2)
	assert.Equal(t, Page{Index: 1, Total: 2}, p)
	assert.Equal(t, Page{Index: 0, Total: 1}, Page{Index: 3, Total: 4}.Clamp(0))
}

func TestWindow(t *testing.T) {
	items := []int{0, 1, 2, 3, 4, 5, 6}
	assert.Equal(t, []int{0, 1, 2}, Window(items, Page{Index: 0, Total: 3}, 3))
	assert.Equal(t, []int{6}, Window(items, Page{Index: 2, Total: 3}, 3))
	assert.Nil(t, Window(items, Page{Index: 3, Total: 3}, 3))
	assert.Equal(t, items, Window(items, Page{}, 0))
}

func TestPagerWalk(t *testing.T) {
	p := NewPager(10, 100, time.Minute)
	id := InteractionID(-100, 42)
	assert.Equal(t, "-100:42", id)

	start := p.Start(id, "show", 50)
	assert.Equal(t, Page{Index: 0, Total: 5}, start)

	pg, q, ok := p.Previous(id)
	require.True(t, ok)
	assert.Equal(t, 0, pg.Index)
	assert.Equal(t, "show", q)

	for i := 0; i < 5; i++ {
		pg, _, ok = p.Next(id)
		require.True(t, ok)
	}
	assert.Equal(t, 4, pg.Index)

	cur, _, ok := p.Current(id)
	require.True(t, ok)
	assert.Equal(t, 4, cur.Index)
}

func TestPagerSupersede(t *testing.T) {
	p := NewPager(10, 100, time.Minute)
	id := InteractionID(1, 1)
	p.Start(id, "old", 30)
	p.Next(id)

	p.Start(id, "new", 30)
	pg, q, ok := p.Current(id)
	require.True(t, ok)
	assert.Equal(t, 0, pg.Index)
	assert.Equal(t, "new", q)
}

func TestPagerUnknownInteraction(t *testing.T) {
	p := NewPager(10, 100, time.Minute)
	_, _, ok := p.Next("nope")
	assert.False(t, ok)
}

func TestPagerEvictsBySize(t *testing.T) {
	p := NewPager(10, 2, time.Minute)
	p.Start("a", "q", 1)
	p.Start("b", "q", 1)
	p.Start("c", "q", 1)

	assert.Equal(t, 2, p.Len())
	_, _, ok := p.Current("a")
	assert.False(t, ok)
}

func TestPagerEvictsByTTL(t *testing.T) {
	p := NewPager(10, 10, 20*time.Millisecond)
	p.Start("a", "q", 1)

	assert.Eventually(t, func() bool {
		_, _, ok := p.Current("a")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestPagerResizeAndDiscard(t *testing.T) {
	p := NewPager(10, 10, time.Minute)
	p.Start("a", "q", 50)
	for i := 0; i < 4; i++ {
		p.Next("a")
	}

	pg, ok := p.Resize("a", 15)
	require.True(t, ok)
	assert.Equal(t, Page{Index: 1, Total: 2}, pg)

	p.Discard("a")
	_, ok = p.Resize("a", 15)
	assert.False(t, ok)
}

func TestPagerConcurrentPresses(t *testing.T) {
	p := NewPager(1, 10, time.Minute)
	p.Start("a", "q", 100)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Next("a")
		}()
	}
	wg.Wait()

	pg, _, _ := p.Current("a")
	assert.Equal(t, 50, pg.Index)
}

func TestPagerRestore(t *testing.T) {
	p := NewPager(10, 10, time.Minute)

	assert.Equal(t, Page{Index: 2, Total: 5}, p.Restore("a", "show", 50, 2))
	pg, query, ok := p.Next("a")
	require.True(t, ok)
	assert.Equal(t, "show", query)
	assert.Equal(t, Page{Index: 3, Total: 5}, pg)

	// fewer results than when the message was rendered
	assert.Equal(t, Page{Index: 1, Total: 2}, p.Restore("b", "show", 15, 4))
	assert.Equal(t, Page{Index: 0, Total: 1}, p.Restore("c", "show", 3, -1))
}
