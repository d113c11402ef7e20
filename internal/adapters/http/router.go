package httpadapter

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/construo/opsportal/internal/core/ports"
	"github.com/construo/opsportal/internal/infrastructure/report/excel"
	"github.com/construo/opsportal/internal/observability/metrics"
)

type Router struct {
	startupFolders ports.StartupFolderService
	documents      ports.DocumentService
	linking        ports.LinkingService
	reporter       ports.ComplianceReporter
	sweeper        ports.ExpirationSweeper
	blobs          ports.BlobStorage
	exporter       *excel.Exporter
	metrics        *metrics.HTTPServerMetrics
	opts           Options
}

type Options struct {
	ServiceName    string
	JWTSecret      string
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
	MaxWait        time.Duration
	MaxUploadBytes int64
}

func NewRouter(
	startupFolders ports.StartupFolderService,
	documents ports.DocumentService,
	linking ports.LinkingService,
	reporter ports.ComplianceReporter,
	sweeper ports.ExpirationSweeper,
	blobs ports.BlobStorage,
	exporter *excel.Exporter,
	httpMetrics *metrics.HTTPServerMetrics,
	opts Options,
) *Router {
	if opts.ServiceName == "" {
		opts.ServiceName = "opsportal-api"
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = 2 * time.Second
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 32 << 20
	}
	return &Router{
		startupFolders: startupFolders,
		documents:      documents,
		linking:        linking,
		reporter:       reporter,
		sweeper:        sweeper,
		blobs:          blobs,
		exporter:       exporter,
		metrics:        httpMetrics,
		opts:           opts,
	}
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(requestIDMiddleware)
	r.Use(accessLogMiddleware)
	if rt.metrics != nil {
		r.Use(func(next http.Handler) http.Handler {
			return rt.metrics.Middleware(rt.opts.ServiceName, next)
		})
	}

	r.Get("/healthz", rt.healthz)
	if rt.metrics != nil {
		r.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return rateLimitMiddleware(next, rt.opts.RateLimitRPS, rt.opts.RateLimitBurst)
		})
		r.Use(func(next http.Handler) http.Handler {
			return backpressureMiddleware(next, rt.opts.MaxInFlight, rt.opts.MaxWait)
		})
		r.Use(authMiddleware(rt.opts.JWTSecret))

		r.Route("/startup-folders", func(r chi.Router) {
			r.Post("/", rt.createStartupFolder)
			r.Route("/{startupFolderID}", func(r chi.Router) {
				r.Get("/", rt.getStartupFolder)
				r.Patch("/", rt.renameStartupFolder)
				r.Delete("/", rt.deleteStartupFolder)
				r.Post("/links", rt.linkEntity)
				r.Delete("/links/{kind}/{entityID}", rt.unlinkEntity)
				r.Get("/link-candidates", rt.listLinkCandidates)
			})
		})

		r.Post("/folders/{folderID}/documents", rt.uploadDocument)
		r.Patch("/documents/{documentID}", rt.updateDocument)
		r.Post("/documents/{documentID}/review", rt.reviewDocument)

		r.Get("/companies/{companyID}/compliance-report", rt.companyReport)
		r.Post("/admin/expire-sweep", rt.expireSweep)
	})

	return r
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
