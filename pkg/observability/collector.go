package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the Prometheus metrics served on /metrics. Each collector
// owns its registry, so tests can create as many as they like.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	CommandsExecuted *prometheus.CounterVec
	CommandDuration  *prometheus.HistogramVec

	TopicsCreated prometheus.Counter
	TopicsDeleted prometheus.Counter
	NodesAdded    prometheus.Counter
	NodesRemoved  prometheus.Counter
	ScoresSet     prometheus.Counter
}

// NewCollector creates a collector whose metric names are prefixed with
// namespace.
func NewCollector(namespace string) *Collector {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help})
	}

	c := &Collector{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		CommandsExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Total number of dispatched commands",
		}, []string{"command", "status"}),
		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Command handling duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
		TopicsCreated: counter("topics_created_total", "Total number of topics created"),
		TopicsDeleted: counter("topics_deleted_total", "Total number of topics deleted"),
		NodesAdded:    counter("nodes_added_total", "Total number of nodes added"),
		NodesRemoved:  counter("nodes_removed_total", "Total number of nodes removed"),
		ScoresSet:     counter("scores_set_total", "Total number of user scores written"),
	}

	c.registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.CommandsExecuted,
		c.CommandDuration,
		c.TopicsCreated,
		c.TopicsDeleted,
		c.NodesAdded,
		c.NodesRemoved,
		c.ScoresSet,
	)
	return c
}

// Handler serves the collector's registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveHTTPRequest records one served request. route is the chi route
// pattern, not the raw path, to keep label cardinality bounded.
func (c *Collector) ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, status).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordCommandExecution implements the command bus metrics recorder
func (c *Collector) RecordCommandExecution(_ context.Context, commandName string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	c.CommandsExecuted.WithLabelValues(commandName, status).Inc()
	c.CommandDuration.WithLabelValues(commandName).Observe(duration.Seconds())
}

// RecordTopicActivity bumps the business counter matching activity
func (c *Collector) RecordTopicActivity(_ context.Context, activity string) {
	switch activity {
	case ActivityTopicCreated:
		c.TopicsCreated.Inc()
	case ActivityTopicDeleted:
		c.TopicsDeleted.Inc()
	case ActivityNodeAdded:
		c.NodesAdded.Inc()
	case ActivityNodeRemoved:
		c.NodesRemoved.Inc()
	case ActivityScoreSet:
		c.ScoresSet.Inc()
	}
}

// Business activities reported by the command handlers.
const (
	ActivityTopicCreated = "TopicCreated"
	ActivityTopicDeleted = "TopicDeleted"
	ActivityNodeAdded    = "NodeAdded"
	ActivityNodeRemoved  = "NodeRemoved"
	ActivityEdgeAdded    = "EdgeAdded"
	ActivityScoreSet     = "ScoreSet"
)
