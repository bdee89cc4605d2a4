package kafka

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Registered(t *testing.T) {
	ProducerMessagesPublished.WithLabelValues("registered-topic")
	ProducerPublishErrors.WithLabelValues("registered-topic")
	ProducerPublishDuration.WithLabelValues("registered-topic")
	CircuitBreakerState.WithLabelValues("registered-breaker")

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, fam := range families {
		names[fam.GetName()] = true
	}

	for _, name := range []string{
		"kafka_producer_messages_published_total",
		"kafka_producer_publish_errors_total",
		"kafka_producer_publish_duration_seconds",
		"circuit_breaker_state",
	} {
		assert.True(t, names[name], "expected metric %q to be registered", name)
	}
}

func TestProducerMetrics_Increment(t *testing.T) {
	topic := "metrics-test-topic"
	before := testutil.ToFloat64(ProducerMessagesPublished.WithLabelValues(topic))

	ProducerMessagesPublished.WithLabelValues(topic).Inc()

	assert.Equal(t, before+1, testutil.ToFloat64(ProducerMessagesPublished.WithLabelValues(topic)))
}
