package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config labels every series with the emitting service.
type Config struct {
	ServiceName string
	Environment string
}

// TaxMetrics captures tax engine decisions and collaborator health.
type TaxMetrics struct {
	calculations     *prometheus.CounterVec
	duration         prometheus.Observer
	taxAPIFailures   *prometheus.CounterVec
	vatValidations   *prometheus.CounterVec
	geoLookupFailure prometheus.Counter
	flagErrors       *prometheus.CounterVec
}

var (
	taxMetricsOnce sync.Once
	taxMetrics     *TaxMetrics
)

// Tax returns the process-wide tax metrics registered on the default registerer.
func Tax(cfg Config) *TaxMetrics {
	taxMetricsOnce.Do(func() {
		taxMetrics = NewTaxMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return taxMetrics
}

// ResetTaxMetricsForTest resets the tax metrics singleton for tests.
func ResetTaxMetricsForTest() {
	taxMetricsOnce = sync.Once{}
	taxMetrics = nil
}

func NewTaxMetrics(registerer prometheus.Registerer, cfg Config) *TaxMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "salestax"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	calculations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "salestax_calculations_total",
		Help:        "Tax calculations by deciding pipeline step.",
		ConstLabels: constLabels,
	}, []string{"reason", "country"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "salestax_calculation_duration_seconds",
		Help:        "End to end tax calculation latency including collaborator calls.",
		Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		ConstLabels: constLabels,
	})
	taxAPIFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "salestax_tax_api_failures_total",
		Help:        "Third-party tax API failures that fell back to the rate table.",
		ConstLabels: constLabels,
	}, []string{"class"})
	vatValidations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "salestax_vat_id_validations_total",
		Help:        "Business VAT/tax ID checks by validator and result.",
		ConstLabels: constLabels,
	}, []string{"validator", "result"})
	geoLookupFailure := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "salestax_geo_lookup_failures_total",
		Help:        "IP geolocation failures treated as outside exempt territories.",
		ConstLabels: constLabels,
	})
	flagErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "salestax_feature_flag_errors_total",
		Help:        "Feature flag lookups that failed and were treated as inactive.",
		ConstLabels: constLabels,
	}, []string{"flag"})

	registerer.MustRegister(
		calculations,
		duration,
		taxAPIFailures,
		vatValidations,
		geoLookupFailure,
		flagErrors,
	)

	return &TaxMetrics{
		calculations:     calculations,
		duration:         duration,
		taxAPIFailures:   taxAPIFailures,
		vatValidations:   vatValidations,
		geoLookupFailure: geoLookupFailure,
		flagErrors:       flagErrors,
	}
}

// IncCalculation counts a finished calculation.
func (m *TaxMetrics) IncCalculation(reason, country string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	m.calculations.WithLabelValues(reason, strings.ToUpper(strings.TrimSpace(country))).Inc()
}

func (m *TaxMetrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.duration.Observe(d.Seconds())
}

// IncTaxAPIFailure counts a soft tax API failure by "client" or "server" class.
func (m *TaxMetrics) IncTaxAPIFailure(class string) {
	if m == nil {
		return
	}
	m.taxAPIFailures.WithLabelValues(class).Inc()
}

func (m *TaxMetrics) IncVatValidation(validator, result string) {
	if m == nil {
		return
	}
	m.vatValidations.WithLabelValues(validator, result).Inc()
}

func (m *TaxMetrics) IncGeoLookupFailure() {
	if m == nil {
		return
	}
	m.geoLookupFailure.Inc()
}

func (m *TaxMetrics) IncFeatureFlagError(flag string) {
	if m == nil {
		return
	}
	m.flagErrors.WithLabelValues(flag).Inc()
}
