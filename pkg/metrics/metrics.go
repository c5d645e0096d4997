package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// namespace はメトリクス名の接頭辞。
const namespace = "nobiasmedia"

// Metrics はAPIサーバーのメトリクスを保持する。
type Metrics struct {
	// registry はメトリクスの登録先。
	registry *prometheus.Registry
	// requests はHTTPリクエスト数。
	requests *prometheus.CounterVec
	// duration はHTTPリクエストの処理時間。
	duration *prometheus.HistogramVec
	// articlesCreated は作成された記事数。
	articlesCreated prometheus.Counter
	// realtimeClients は接続中のリアルタイムクライアント数。
	realtimeClients prometheus.Gauge
}

// New は新しいMetricsを生成し、Goランタイムとプロセスのコレクターも登録する。
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "処理したHTTPリクエスト数",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTPリクエストの処理時間",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		articlesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_created_total",
			Help:      "作成された記事数",
		}),
		realtimeClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realtime_clients",
			Help:      "接続中のリアルタイムクライアント数",
		}),
	}

	m.registry.MustRegister(
		m.requests,
		m.duration,
		m.articlesCreated,
		m.realtimeClients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Middleware はリクエスト数と処理時間を記録するGinミドルウェアを返す。
// ラベルにはパスではなくルートパターンを使う。未定義のルートは "unmatched" にまとめる。
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		m.requests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// ArticleCreated は記事作成数を1増やす。
func (m *Metrics) ArticleCreated() {
	m.articlesCreated.Inc()
}

// SetRealtimeClients は接続中のリアルタイムクライアント数を設定する。
func (m *Metrics) SetRealtimeClients(n int) {
	m.realtimeClients.Set(float64(n))
}

// Handler はメトリクスをPrometheusのテキスト形式で返すhttp.Handlerを返す。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
