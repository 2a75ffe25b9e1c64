package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/interfaces/http/handler"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/interfaces/http/middleware"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/metrics"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/ratelimit"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/pkg/config"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/pkg/logger"
)

// Router настраивает маршруты приложения
type Router struct {
	mux                *http.ServeMux
	assessmentHandler  *handler.AssessmentHandler
	streamHandler      *handler.StreamHandler
	historyHandler     *handler.HistoryHandler
	indicatorsHandler  *handler.IndicatorsHandler
	diagnosticsHandler *handler.DiagnosticsHandler
	websocketHandler   *handler.WebSocketHandler
	limiter            *ratelimit.Limiter
	metrics            *metrics.Metrics
	promRegistry       *prometheus.Registry
	cfg                *config.Config
	logger             *logger.Logger
}

// NewRouter создает новый router
func NewRouter(
	assessmentHandler *handler.AssessmentHandler,
	streamHandler *handler.StreamHandler,
	historyHandler *handler.HistoryHandler,
	indicatorsHandler *handler.IndicatorsHandler,
	diagnosticsHandler *handler.DiagnosticsHandler,
	websocketHandler *handler.WebSocketHandler,
	limiter *ratelimit.Limiter,
	m *metrics.Metrics,
	promRegistry *prometheus.Registry,
	cfg *config.Config,
	logger *logger.Logger,
) *Router {
	return &Router{
		mux:                http.NewServeMux(),
		assessmentHandler:  assessmentHandler,
		streamHandler:      streamHandler,
		historyHandler:     historyHandler,
		indicatorsHandler:  indicatorsHandler,
		diagnosticsHandler: diagnosticsHandler,
		websocketHandler:   websocketHandler,
		limiter:            limiter,
		metrics:            m,
		promRegistry:       promRegistry,
		cfg:                cfg,
		logger:             logger,
	}
}

// Setup настраивает все маршруты
func (rt *Router) Setup() http.Handler {
	// Health endpoints are intentionally unauthenticated for probes.
	rt.mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	rt.mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	rt.mux.Handle("/metrics", promhttp.HandlerFor(rt.promRegistry, promhttp.HandlerOpts{}))

	authMiddleware := middleware.Auth(middleware.AuthConfig{
		Enabled:     rt.cfg.Security.AuthEnabled,
		BearerToken: rt.cfg.Security.AuthToken,
	}, rt.logger)

	// Именованные policies: api для чтения, admin для служебных
	// endpoint'ов, stream для долгоживущих подключений
	apiPolicy := ratelimit.Policy{Name: "api", Limit: rt.cfg.RateLimit.APILimit, Window: rt.cfg.RateLimit.APIWindow}
	adminPolicy := ratelimit.Policy{Name: "admin", Limit: rt.cfg.RateLimit.AdminLimit, Window: rt.cfg.RateLimit.AdminWindow}
	streamPolicy := ratelimit.Policy{Name: "stream", Limit: rt.cfg.RateLimit.StreamLimit, Window: rt.cfg.RateLimit.StreamWindow}

	apiLimit := middleware.RateLimit(rt.limiter, apiPolicy, rt.metrics)
	adminLimit := middleware.RateLimit(rt.limiter, adminPolicy, rt.metrics)
	streamLimit := middleware.RateLimit(rt.limiter, streamPolicy, rt.metrics)

	// Pull endpoint и производные
	rt.mux.Handle("/api/v1/risk-assessment",
		authMiddleware(apiLimit(http.HandlerFunc(rt.assessmentHandler.GetAssessment))))
	rt.mux.Handle("/api/v1/risk-assessment/history",
		authMiddleware(apiLimit(http.HandlerFunc(rt.historyHandler.GetHistory))))
	rt.mux.Handle("/api/v1/indicators",
		authMiddleware(apiLimit(http.HandlerFunc(rt.indicatorsHandler.GetIndicators))))

	// Push endpoints
	rt.mux.Handle("/api/v1/risk-assessment/stream",
		authMiddleware(streamLimit(http.HandlerFunc(rt.streamHandler.HandleStream))))
	rt.mux.Handle("/ws",
		authMiddleware(streamLimit(http.HandlerFunc(rt.websocketHandler.HandleConnection))))

	// Admin endpoints
	rt.mux.Handle("/api/v1/system/diagnostics",
		authMiddleware(adminLimit(http.HandlerFunc(rt.diagnosticsHandler.GetDiagnostics))))

	// Применяем middleware
	var h http.Handler = rt.mux
	h = rt.metrics.Middleware(h)
	h = middleware.Logger(rt.logger)(h)
	h = middleware.Recovery(rt.logger)(h)

	return h
}
