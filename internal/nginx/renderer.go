package nginx

import (
	"fmt"
	"strings"
	"time"

	"github.com/meshfront/meshfront/internal/endpoint"
)

// Operating modes. Resolved once at startup; each maps to a distinct
// renderer rather than being re-checked throughout the pipeline.
const (
	ModeSingle       = "single"
	ModeMulti        = "multi"
	ModeLoadBalanced = "loadbalanced"
)

const upstreamName = "meshfront_backends"

// Renderer produces a complete proxy configuration for a healthy set.
type Renderer interface {
	Render(healthy endpoint.Set) ([]byte, error)
}

// RateLimit describes the optional IP-keyed token-bucket limit. An empty
// Paths list applies the limit to all traffic.
type RateLimit struct {
	Enabled bool
	Rate    string
	Burst   int
	Paths   []string
}

// Params carries everything a renderer needs besides the endpoint set.
type Params struct {
	Domains     []string
	CertDir     string
	ListenPort  int
	EvidenceDir string

	MaxFails    int
	FailTimeout time.Duration

	RetryTries   int
	RetryTimeout time.Duration

	RateLimit RateLimit
}

// NewRenderer resolves the renderer for the given mode.
func NewRenderer(mode string, params Params) (Renderer, error) {
	switch mode {
	case ModeSingle:
		return &singleRenderer{params: params}, nil
	case ModeMulti:
		return &multiRenderer{params: params}, nil
	case ModeLoadBalanced:
		return &loadBalancedRenderer{params: params}, nil
	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
}

// seconds renders a duration as an nginx time value, rounding sub-second
// remainders up so a short timeout never collapses to 0s.
func seconds(d time.Duration) string {
	return fmt.Sprintf("%ds", int((d+time.Second-1)/time.Second))
}

// writeServerBlocks emits one TLS server block per domain. proxyDirectives
// is rendered inside the root location after the rate-limit directive, if
// any.
func writeServerBlocks(b *strings.Builder, p Params, proxyDirectives string) {
	for _, domain := range p.Domains {
		fmt.Fprintf(b, "server {\n")
		fmt.Fprintf(b, "    listen %d ssl;\n", p.ListenPort)
		fmt.Fprintf(b, "    server_name %s;\n\n", domain)
		fmt.Fprintf(b, "    ssl_certificate %s/%s/fullchain.pem;\n", p.CertDir, domain)
		fmt.Fprintf(b, "    ssl_certificate_key %s/%s/privkey.pem;\n\n", p.CertDir, domain)

		if p.EvidenceDir != "" {
			fmt.Fprintf(b, "    location /.evidence/ {\n")
			fmt.Fprintf(b, "        alias %s/;\n", strings.TrimRight(p.EvidenceDir, "/"))
			fmt.Fprintf(b, "        autoindex off;\n")
			fmt.Fprintf(b, "    }\n\n")
		}

		limitAll := p.RateLimit.Enabled && len(p.RateLimit.Paths) == 0

		fmt.Fprintf(b, "    location / {\n")
		if limitAll {
			fmt.Fprintf(b, "        limit_req zone=meshfront_ratelimit burst=%d nodelay;\n", p.RateLimit.Burst)
		}
		b.WriteString(proxyDirectives)
		fmt.Fprintf(b, "    }\n")

		if p.RateLimit.Enabled {
			for _, path := range p.RateLimit.Paths {
				fmt.Fprintf(b, "\n    location %s {\n", path)
				fmt.Fprintf(b, "        limit_req zone=meshfront_ratelimit burst=%d nodelay;\n", p.RateLimit.Burst)
				b.WriteString(proxyDirectives)
				fmt.Fprintf(b, "    }\n")
			}
		}

		fmt.Fprintf(b, "}\n")
	}
}

func writeRateLimitZone(b *strings.Builder, rl RateLimit) {
	if !rl.Enabled {
		return
	}
	fmt.Fprintf(b, "limit_req_zone $binary_remote_addr zone=meshfront_ratelimit:10m rate=%s;\n\n", rl.Rate)
}

func forwardHeaders() string {
	return "        proxy_set_header Host $host;\n" +
		"        proxy_set_header X-Real-IP $remote_addr;\n" +
		"        proxy_set_header X-Forwarded-For $proxy_add_x_forwarded_for;\n" +
		"        proxy_set_header X-Forwarded-Proto $scheme;\n"
}
