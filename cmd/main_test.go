package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/meshfront/meshfront/config"
	"github.com/meshfront/meshfront/internal/discovery"
	"github.com/meshfront/meshfront/internal/endpoint"
	"github.com/meshfront/meshfront/internal/metrics"
	"github.com/meshfront/meshfront/internal/reconciler"
)

func TestCmd(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Cmd Suite")
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Environment:  config.EnvDev,
			AdminAddress: ":9180",
		},
		Logging: config.LoggingConfig{Level: config.LogLevelInfo},
		Mode:    config.ModeLoadBalanced,
		Domains: []string{"app.example.com"},
		TLS:     config.TLSConfig{CertDir: "/etc/meshfront/certs"},
		Discovery: config.DiscoveryConfig{
			APIURL:     "http://127.0.0.1:4280",
			NamePrefix: "web-",
			KeepPrefix: true,
			Timeout:    "10s",
		},
		Probe: config.ProbeConfig{
			Protocol:       config.ProbeHTTP,
			HTTPPath:       "/health",
			Port:           8080,
			ConnectTimeout: "5s",
			TotalTimeout:   "10s",
			MaxParallel:    10,
		},
		Cache:     config.CacheConfig{Duration: "1h"},
		Reconcile: config.ReconcileConfig{Interval: "60s"},
		Nginx: config.NginxConfig{
			ConfigPath: "/etc/nginx/conf.d/meshfront.conf",
			Binary:     "nginx",
			ListenPort: 443,
		},
		Passive:  config.PassiveConfig{MaxFails: 2, FailTimeout: "30s"},
		Retry:    config.RetryConfig{Tries: 2, Timeout: "30s"},
		Evidence: config.EvidenceConfig{Dir: "/var/lib/meshfront/evidence"},
	}
}

var _ = Describe("component wiring", func() {
	var log *slog.Logger

	BeforeEach(func() {
		log = slog.Default()
	})

	Describe("buildCache", func() {
		It("should build a cache from a valid duration", func() {
			cache, err := buildCache(testConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(cache).NotTo(BeNil())
		})

		It("should reject an invalid duration", func() {
			cfg := testConfig()
			cfg.Cache.Duration = "forever"
			_, err := buildCache(cfg)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("buildProber", func() {
		It("should build a prober from valid timeouts", func() {
			cfg := testConfig()
			cache, err := buildCache(cfg)
			Expect(err).NotTo(HaveOccurred())

			p, err := buildProber(cfg, cache, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(p).NotTo(BeNil())
		})

		It("should reject invalid timeouts", func() {
			cfg := testConfig()
			cfg.Probe.TotalTimeout = "later"
			cache, _ := buildCache(testConfig())

			_, err := buildProber(cfg, cache, log)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("buildSource", func() {
		It("should build a mesh source in load-balanced mode", func() {
			source, err := buildSource(testConfig(), log)
			Expect(err).NotTo(HaveOccurred())
			Expect(source).To(BeAssignableToTypeOf(&discovery.MeshSource{}))
		})

		It("should build a static source in single mode", func() {
			cfg := testConfig()
			cfg.Mode = config.ModeSingle
			cfg.Discovery.StaticTargets = []string{"backend-1"}

			source, err := buildSource(cfg, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(source).To(BeAssignableToTypeOf(&discovery.StaticSource{}))
		})

		It("should build a static source in multi mode", func() {
			cfg := testConfig()
			cfg.Mode = config.ModeMulti
			cfg.Discovery.StaticTargets = []string{"backend-1", "backend-2"}

			source, err := buildSource(cfg, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(source).To(BeAssignableToTypeOf(&discovery.StaticSource{}))
		})
	})

	Describe("buildApplier", func() {
		It("should build an applier for every mode", func() {
			for _, mode := range []string{config.ModeSingle, config.ModeMulti, config.ModeLoadBalanced} {
				cfg := testConfig()
				cfg.Mode = mode

				applier, err := buildApplier(cfg, stubController{}, log)
				Expect(err).NotTo(HaveOccurred())
				Expect(applier).NotTo(BeNil())
			}
		})

		It("should reject an invalid fail timeout", func() {
			cfg := testConfig()
			cfg.Passive.FailTimeout = "whenever"

			_, err := buildApplier(cfg, stubController{}, log)
			Expect(err).To(HaveOccurred())
		})
	})
})

type stubController struct{}

func (stubController) Validate(ctx context.Context, configPath string) error { return nil }
func (stubController) Reload(ctx context.Context) error                      { return nil }

type noopApplier struct{}

func (noopApplier) Apply(ctx context.Context, healthy endpoint.Set) error { return nil }

var _ = Describe("setupRouter", func() {
	var (
		engine    *reconciler.Engine
		collector *metrics.Collector
		mux       *http.ServeMux
	)

	BeforeEach(func() {
		engine = reconciler.New(noopApplier{}, nil, slog.Default())
		collector = metrics.NewCollector(16, slog.Default())
		mux = setupRouter(engine, collector, config.ModeLoadBalanced)
	})

	It("should answer 503 on /healthz before bootstrap", func() {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
		Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
	})

	It("should answer 200 on /healthz once bootstrapped", func() {
		_, err := engine.Reconcile(context.Background(), endpoint.NewSet(endpoint.New("a", 8080)))
		Expect(err).NotTo(HaveOccurred())

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
		Expect(rec.Code).To(Equal(http.StatusOK))
	})

	It("should serve metrics as JSON", func() {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Type")).To(Equal("application/json"))
	})
})
