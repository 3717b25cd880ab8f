package collection_test

import (
	"time"

	. "github.com/funnelmon/funnelmon/collection"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type testTSD struct {
	timestamp int64
	labels    map[string]string
}

func (t testTSD) GetTimestamp() int64 {
	return t.timestamp
}

func (t testTSD) HasLabels(labels map[string]string) bool {
	for k, v := range labels {
		if t.labels[k] == v {
			continue
		}
		return false
	}
	return true
}

var _ = Describe("TSDCache", func() {
	var (
		cache    *TSDCache
		capacity int
		err      interface{}
		labels   map[string]string
	)

	JustBeforeEach(func() {
		defer func() {
			err = recover()
		}()
		cache = NewTSDCache(capacity)
	})

	Describe("NewTSDCache", func() {
		Context("with an invalid capacity", func() {
			BeforeEach(func() {
				capacity = -1
			})
			It("panics", func() {
				Expect(err).To(Equal("invalid TSDCache capacity"))
			})
		})
		Context("with a valid capacity", func() {
			BeforeEach(func() {
				capacity = 10
			})
			It("returns the cache", func() {
				Expect(err).To(BeNil())
				Expect(cache).NotTo(BeNil())
				Expect(cache.Capacity()).To(Equal(10))
			})
		})
	})

	Describe("Put", func() {
		Context("when capacity is 1", func() {
			BeforeEach(func() {
				capacity = 1
			})
			It("only keeps the latest datum", func() {
				cache.Put(testTSD{10, nil})
				Expect(cache.String()).To(Equal("[{10 map[]}]"))
				cache.Put(testTSD{20, nil})
				Expect(cache.String()).To(Equal("[{20 map[]}]"))
				cache.Put(testTSD{15, nil})
				Expect(cache.String()).To(Equal("[{20 map[]}]"))
				cache.Put(testTSD{30, nil})
				Expect(cache.String()).To(Equal("[{30 map[]}]"))
			})
		})
		Context("when inserts stay within capacity", func() {
			BeforeEach(func() {
				capacity = 5
			})
			It("keeps everything in ascending timestamp order", func() {
				cache.Put(testTSD{20, nil})
				cache.Put(testTSD{10, nil})
				cache.Put(testTSD{40, nil})
				cache.Put(testTSD{50, nil})
				cache.Put(testTSD{30, nil})
				Expect(cache.String()).To(Equal("[{10 map[]} {20 map[]} {30 map[]} {40 map[]} {50 map[]}]"))
			})
		})
		Context("when inserts exceed capacity", func() {
			BeforeEach(func() {
				capacity = 3
			})
			It("evicts the oldest while keeping order", func() {
				cache.Put(testTSD{20, nil})
				Expect(cache.String()).To(Equal("[{20 map[]}]"))
				cache.Put(testTSD{10, nil})
				Expect(cache.String()).To(Equal("[{10 map[]} {20 map[]}]"))
				cache.Put(testTSD{40, nil})
				Expect(cache.String()).To(Equal("[{10 map[]} {20 map[]} {40 map[]}]"))
				cache.Put(testTSD{50, nil})
				Expect(cache.String()).To(Equal("[{20 map[]} {40 map[]} {50 map[]}]"))
				cache.Put(testTSD{30, nil})
				Expect(cache.String()).To(Equal("[{30 map[]} {40 map[]} {50 map[]}]"))
				cache.Put(testTSD{50, nil})
				Expect(cache.String()).To(Equal("[{40 map[]} {50 map[]} {50 map[]}]"))
			})
		})
	})

	Describe("Query", func() {
		Context("when the cache is empty", func() {
			BeforeEach(func() {
				capacity = 3
			})
			It("returns empty and incomplete", func() {
				result, ok := cache.Query(0, time.Now().UnixNano(), labels)
				Expect(ok).To(BeFalse())
				Expect(result).To(BeEmpty())
			})
		})
		Context("when inserts stay within capacity", func() {
			BeforeEach(func() {
				capacity = 5
			})
			It("returns the data in [start, end)", func() {
				cache.Put(testTSD{20, nil})
				result, ok := cache.Query(30, 50, labels)
				Expect(ok).To(BeTrue())
				Expect(result).To(Equal([]TSD{}))
				result, ok = cache.Query(10, 50, labels)
				Expect(ok).To(BeFalse())
				Expect(result).To(Equal([]TSD{testTSD{20, nil}}))

				cache.Put(testTSD{30, nil})
				result, ok = cache.Query(30, 50, labels)
				Expect(ok).To(BeTrue())
				Expect(result).To(Equal([]TSD{testTSD{30, nil}}))

				cache.Put(testTSD{40, nil})
				cache.Put(testTSD{50, nil})
				result, ok = cache.Query(30, 50, labels)
				Expect(ok).To(BeTrue())
				Expect(result).To(Equal([]TSD{testTSD{30, nil}, testTSD{40, nil}}))
			})
		})
		Context("when inserts exceed capacity", func() {
			BeforeEach(func() {
				capacity = 3
			})
			It("flags windows that reach past the evicted tail", func() {
				cache.Put(testTSD{20, nil})
				cache.Put(testTSD{10, nil})
				cache.Put(testTSD{40, nil})
				cache.Put(testTSD{30, nil})

				result, ok := cache.Query(30, 50, labels)
				Expect(ok).To(BeTrue())
				Expect(result).To(Equal([]TSD{testTSD{30, nil}, testTSD{40, nil}}))

				cache.Put(testTSD{50, nil})
				result, ok = cache.Query(30, 50, labels)
				Expect(ok).To(BeTrue())
				Expect(result).To(Equal([]TSD{testTSD{30, nil}, testTSD{40, nil}}))

				cache.Put(testTSD{60, nil})
				result, ok = cache.Query(30, 50, labels)
				Expect(ok).To(BeFalse())
				Expect(result).To(Equal([]TSD{testTSD{40, nil}}))
			})
		})
		Context("with labels", func() {
			BeforeEach(func() {
				capacity = 5
			})
			It("only returns data carrying all requested labels", func() {
				cache.Put(testTSD{20, map[string]string{"source": "cdn", "priority": "p2"}})
				cache.Put(testTSD{10, nil})
				cache.Put(testTSD{40, map[string]string{"source": "logging", "priority": "p1"}})
				cache.Put(testTSD{30, map[string]string{"source": "logging"}})
				cache.Put(testTSD{50, nil})

				result, ok := cache.Query(20, 60, map[string]string{"source": "logging", "priority": "p1"})
				Expect(ok).To(BeTrue())
				Expect(result).To(Equal([]TSD{testTSD{40, map[string]string{"source": "logging", "priority": "p1"}}}))
			})
		})
	})
})
