package nginx

import (
	"fmt"
	"strings"

	"github.com/meshfront/meshfront/internal/endpoint"
)

// singleRenderer forwards all traffic to one target, with no upstream
// block.
type singleRenderer struct {
	params Params
}

func (r *singleRenderer) Render(healthy endpoint.Set) ([]byte, error) {
	if healthy.Len() == 0 {
		return nil, fmt.Errorf("refusing to render with no target")
	}

	target := healthy.List()[0]

	var b strings.Builder
	b.WriteString("# Generated by meshfront; changes will be overwritten.\n\n")

	writeRateLimitZone(&b, r.params.RateLimit)

	proxy := fmt.Sprintf("        proxy_pass http://%s;\n", target.Key()) +
		forwardHeaders()

	writeServerBlocks(&b, r.params, proxy)

	return []byte(b.String()), nil
}
