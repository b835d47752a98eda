// Package metrics provides Prometheus metrics for the content engine,
// attached to the service as an event sink.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/flatcms/flatcms/pkg/flatcms"
)

// Metrics holds the Prometheus collectors and implements flatcms.EventSink.
type Metrics struct {
	ItemsCreatedTotal    *prometheus.CounterVec
	ItemsUpdatedTotal    *prometheus.CounterVec
	ItemsDeletedTotal    *prometheus.CounterVec
	VersionsCreatedTotal *prometheus.CounterVec
	QueriesTotal         *prometheus.CounterVec
}

// New creates and registers all collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ItemsCreatedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flatcms_items_created_total",
				Help: "Total number of content items created",
			},
			[]string{"content_type"},
		),
		ItemsUpdatedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flatcms_items_updated_total",
				Help: "Total number of content item updates",
			},
			[]string{"content_type"},
		),
		ItemsDeletedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flatcms_items_deleted_total",
				Help: "Total number of content items deleted",
			},
			[]string{"content_type"},
		),
		VersionsCreatedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flatcms_versions_created_total",
				Help: "Total number of version snapshots written",
			},
			[]string{"content_type"},
		),
		QueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flatcms_queries_total",
				Help: "Total number of list queries executed",
			},
			[]string{"content_type"},
		),
	}
}

func (m *Metrics) ItemCreated(ctx context.Context, contentType string, item *flatcms.ContentItem) error {
	m.ItemsCreatedTotal.WithLabelValues(contentType).Inc()
	return nil
}

func (m *Metrics) ItemUpdated(ctx context.Context, contentType string, item *flatcms.ContentItem) error {
	m.ItemsUpdatedTotal.WithLabelValues(contentType).Inc()
	return nil
}

func (m *Metrics) ItemDeleted(ctx context.Context, contentType, id string) error {
	m.ItemsDeletedTotal.WithLabelValues(contentType).Inc()
	return nil
}

func (m *Metrics) VersionCreated(ctx context.Context, contentType, id, versionID string) error {
	m.VersionsCreatedTotal.WithLabelValues(contentType).Inc()
	return nil
}

func (m *Metrics) QueryExecuted(ctx context.Context, contentType string, total int) error {
	m.QueriesTotal.WithLabelValues(contentType).Inc()
	return nil
}
