package nginx

import (
	"fmt"
	"strings"

	"github.com/meshfront/meshfront/internal/endpoint"
)

// loadBalancedRenderer emits an upstream pool over the discovered healthy
// set, with passive failure detection, cross-member request retry, and the
// optional rate limit.
type loadBalancedRenderer struct {
	params Params
}

func (r *loadBalancedRenderer) Render(healthy endpoint.Set) ([]byte, error) {
	if healthy.Len() == 0 {
		return nil, fmt.Errorf("refusing to render empty upstream pool")
	}

	var b strings.Builder
	b.WriteString("# Generated by meshfront; changes will be overwritten.\n\n")

	fmt.Fprintf(&b, "upstream %s {\n", upstreamName)
	for _, e := range healthy.List() {
		fmt.Fprintf(&b, "    server %s max_fails=%d fail_timeout=%s;\n",
			e.Key(), r.params.MaxFails, seconds(r.params.FailTimeout))
	}
	fmt.Fprintf(&b, "}\n\n")

	writeRateLimitZone(&b, r.params.RateLimit)

	proxy := fmt.Sprintf("        proxy_pass http://%s;\n", upstreamName) +
		// Retry only on connection errors and definitive upstream 5xx,
		// never on client 4xx.
		"        proxy_next_upstream error timeout http_502 http_503 http_504;\n" +
		fmt.Sprintf("        proxy_next_upstream_tries %d;\n", r.params.RetryTries) +
		fmt.Sprintf("        proxy_next_upstream_timeout %s;\n", seconds(r.params.RetryTimeout)) +
		forwardHeaders()

	writeServerBlocks(&b, r.params, proxy)

	return []byte(b.String()), nil
}
