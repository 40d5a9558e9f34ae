package deadcache_test

import (
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/meshfront/meshfront/internal/deadcache"
)

func TestDeadCache(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "DeadCache Suite")
}

var _ = Describe("Cache", func() {
	var (
		now   time.Time
		clock func() time.Time
		cache *deadcache.Cache
	)

	BeforeEach(func() {
		now = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
		clock = func() time.Time { return now }
		cache = deadcache.NewWithClock(time.Hour, func() time.Time { return clock() })
	})

	Describe("IsDead", func() {
		It("should report a freshly marked endpoint as dead", func() {
			cache.MarkDead("a:8080")
			Expect(cache.IsDead("a:8080")).To(BeTrue())
		})

		It("should report unknown endpoints as alive", func() {
			Expect(cache.IsDead("a:8080")).To(BeFalse())
		})

		It("should never honor an entry at or past the TTL", func() {
			cache.MarkDead("a:8080")

			now = now.Add(time.Hour)
			Expect(cache.IsDead("a:8080")).To(BeFalse())
		})

		It("should remove the stale entry on an expired lookup", func() {
			cache.MarkDead("a:8080")

			now = now.Add(2 * time.Hour)
			Expect(cache.IsDead("a:8080")).To(BeFalse())
			Expect(cache.Len()).To(Equal(0))
		})

		It("should honor an entry just inside the TTL", func() {
			cache.MarkDead("a:8080")

			now = now.Add(time.Hour - time.Second)
			Expect(cache.IsDead("a:8080")).To(BeTrue())
		})
	})

	Describe("MarkDead", func() {
		It("should refresh the timestamp rather than duplicate", func() {
			cache.MarkDead("a:8080")

			now = now.Add(30 * time.Minute)
			cache.MarkDead("a:8080")
			Expect(cache.Len()).To(Equal(1))

			// 40 minutes after the refresh, 70 after the first mark
			now = now.Add(40 * time.Minute)
			Expect(cache.IsDead("a:8080")).To(BeTrue())
		})
	})

	Describe("Clear", func() {
		It("should make a recovered endpoint eligible immediately", func() {
			cache.MarkDead("a:8080")
			cache.Clear("a:8080")
			Expect(cache.IsDead("a:8080")).To(BeFalse())
		})

		It("should tolerate clearing an unknown key", func() {
			cache.Clear("missing:8080")
			Expect(cache.Len()).To(Equal(0))
		})
	})

	Describe("Sweep", func() {
		It("should remove only expired entries", func() {
			cache.MarkDead("old:8080")

			now = now.Add(time.Hour)
			cache.MarkDead("fresh:8080")

			removed := cache.Sweep()
			Expect(removed).To(Equal(1))
			Expect(cache.Len()).To(Equal(1))
			Expect(cache.IsDead("fresh:8080")).To(BeTrue())
			Expect(cache.IsDead("old:8080")).To(BeFalse())
		})

		It("should report zero when nothing expired", func() {
			cache.MarkDead("a:8080")
			Expect(cache.Sweep()).To(Equal(0))
		})
	})

	Describe("concurrent access", func() {
		It("should not lose updates under parallel marks and clears", func() {
			var wg sync.WaitGroup
			keys := []string{"a:8080", "b:8080", "c:8080", "d:8080"}

			for i := 0; i < 50; i++ {
				for _, key := range keys {
					wg.Add(1)
					go func(key string) {
						defer wg.Done()
						cache.MarkDead(key)
						cache.IsDead(key)
					}(key)
				}
			}
			wg.Wait()

			for _, key := range keys {
				Expect(cache.IsDead(key)).To(BeTrue())
			}
		})
	})
})
