package collection

import (
	"fmt"
	"sync"
)

// TSD is a time-stamped datum held by the cache. Alert events implement it;
// labels let a query narrow by source or priority.
type TSD interface {
	GetTimestamp() int64
	HasLabels(map[string]string) bool
}

// TSDCache is a fixed-capacity ring buffer of time series data kept in
// timestamp order. When full, inserting evicts the oldest entry; an insert
// older than everything retained is dropped.
type TSDCache struct {
	lock     *sync.RWMutex
	data     []TSD
	capacity int
	cursor   int
	num      int
}

func NewTSDCache(capacity int) *TSDCache {
	if capacity <= 0 {
		panic("invalid TSDCache capacity")
	}
	return &TSDCache{
		lock:     &sync.RWMutex{},
		data:     make([]TSD, capacity),
		capacity: capacity,
		cursor:   0,
	}
}

func (c *TSDCache) Capacity() int {
	return c.capacity
}

// binarySearch returns the logical insert position for timestamp t within
// the ordered window [head, cursor).
func (c *TSDCache) binarySearch(t int64) int {
	if c.num == 0 {
		return 0
	}
	var l, r int
	if c.data[c.cursor] == nil {
		l = 0
		r = c.cursor - 1
	} else {
		l = c.cursor
		r = c.cursor - 1 + c.capacity
	}

	for {
		if l > r {
			return l
		}
		m := l + (r-l)/2
		if t <= c.data[m%c.capacity].GetTimestamp() {
			r = m - 1
		} else {
			l = m + 1
		}
	}
}

func (c *TSDCache) Put(d TSD) {
	c.lock.Lock()
	defer c.lock.Unlock()

	defer func() {
		c.num++
	}()

	// fast path: newest-or-equal appends at the cursor
	if c.num == 0 || d.GetTimestamp() >= c.data[((c.cursor-1)+c.capacity)%c.capacity].GetTimestamp() {
		c.data[c.cursor] = d
		c.cursor = (c.cursor + 1) % c.capacity
		return
	}

	pos := c.binarySearch(d.GetTimestamp())
	if pos == c.cursor && c.data[c.cursor] != nil {
		return
	}

	end := c.cursor
	if c.data[end] != nil {
		end += c.capacity
	}
	for i := end; i > pos; i-- {
		c.data[i%c.capacity] = c.data[(i-1)%c.capacity]
	}
	c.data[pos%c.capacity] = d
	c.cursor = (c.cursor + 1) % c.capacity
}

func (c *TSDCache) String() string {
	c.lock.RLock()
	defer c.lock.RUnlock()

	var head, tail int
	if c.data[c.cursor] == nil {
		head = 0
		tail = c.cursor - 1
	} else {
		head = c.cursor
		tail = c.cursor + c.capacity - 1
	}

	s := make([]TSD, tail-head+1)
	for i := 0; i <= tail-head; i++ {
		s[i] = c.data[(i+head)%c.capacity]
	}
	return fmt.Sprint(s)
}

// Query returns the cached data with timestamps in [start, end), filtered by
// labels. The second return value is false when the cache cannot guarantee
// it still holds everything from start onward, in which case the caller
// should go back to the authoritative store.
func (c *TSDCache) Query(start, end int64, labels map[string]string) ([]TSD, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	if c.num == 0 {
		return []TSD{}, false
	}

	result := []TSD{}
	from := c.binarySearch(start)
	to := c.binarySearch(end)
	for i := from; i < to; i++ {
		d := c.data[i%c.capacity]
		if d.HasLabels(labels) {
			result = append(result, d)
		}
	}

	if c.num < c.capacity {
		return result, c.data[0].GetTimestamp() <= start
	}
	return result, c.data[c.cursor].GetTimestamp() <= start
}
