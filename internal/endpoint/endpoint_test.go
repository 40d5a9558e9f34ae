package endpoint_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/meshfront/meshfront/internal/endpoint"
)

func TestEndpoint(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Endpoint Suite")
}

var _ = Describe("Endpoint", func() {
	Describe("Key", func() {
		It("should join host and port", func() {
			e := endpoint.New("backend-1", 8080)
			Expect(e.Key()).To(Equal("backend-1:8080"))
		})

		It("should bracket IPv6 hosts", func() {
			e := endpoint.New("::1", 8080)
			Expect(e.Key()).To(Equal("[::1]:8080"))
		})
	})

	Describe("Set", func() {
		It("should deduplicate members", func() {
			s := endpoint.NewSet(
				endpoint.New("a", 8080),
				endpoint.New("a", 8080),
				endpoint.New("b", 8080),
			)
			Expect(s.Len()).To(Equal(2))
		})

		It("should report membership", func() {
			s := endpoint.NewSet(endpoint.New("a", 8080))
			Expect(s.Contains(endpoint.New("a", 8080))).To(BeTrue())
			Expect(s.Contains(endpoint.New("a", 9090))).To(BeFalse())
		})

		It("should list members sorted by key", func() {
			s := endpoint.NewSet(
				endpoint.New("c", 8080),
				endpoint.New("a", 8080),
				endpoint.New("b", 8080),
			)
			Expect(s.Keys()).To(Equal([]string{"a:8080", "b:8080", "c:8080"}))
		})
	})

	Describe("Equal", func() {
		It("should ignore insertion order", func() {
			s1 := endpoint.NewSet(endpoint.New("a", 8080), endpoint.New("b", 8080))
			s2 := endpoint.NewSet(endpoint.New("b", 8080), endpoint.New("a", 8080))
			Expect(s1.Equal(s2)).To(BeTrue())
		})

		It("should detect added members", func() {
			s1 := endpoint.NewSet(endpoint.New("a", 8080), endpoint.New("b", 8080))
			s2 := endpoint.NewSet(endpoint.New("a", 8080), endpoint.New("b", 8080), endpoint.New("d", 8080))
			Expect(s1.Equal(s2)).To(BeFalse())
		})

		It("should detect differing ports", func() {
			s1 := endpoint.NewSet(endpoint.New("a", 8080))
			s2 := endpoint.NewSet(endpoint.New("a", 8081))
			Expect(s1.Equal(s2)).To(BeFalse())
		})

		It("should treat two empty sets as equal", func() {
			Expect(endpoint.NewSet().Equal(endpoint.NewSet())).To(BeTrue())
		})
	})
})
