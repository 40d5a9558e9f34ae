package nginx

import (
	"fmt"
	"strings"

	"github.com/meshfront/meshfront/internal/endpoint"
)

// multiRenderer serves an operator-supplied target list as an upstream pool
// with passive failure detection, without the load-balanced mode's retry
// policy and rate limiting.
type multiRenderer struct {
	params Params
}

func (r *multiRenderer) Render(healthy endpoint.Set) ([]byte, error) {
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

	proxy := fmt.Sprintf("        proxy_pass http://%s;\n", upstreamName) +
		forwardHeaders()

	writeServerBlocks(&b, r.params, proxy)

	return []byte(b.String()), nil
}
