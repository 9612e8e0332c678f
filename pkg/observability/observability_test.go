package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (f *fakeCloudWatch) PutMetricData(_ context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.inputs = append(f.inputs, in)
	return &cloudwatch.PutMetricDataOutput{}, f.err
}

func TestMetrics_RecordCommandExecution(t *testing.T) {
	client := &fakeCloudWatch{}
	m := NewMetrics("Ameliorate", client, zap.NewNop())

	m.RecordCommandExecution(context.Background(), "CreateTopicCommand", 15*time.Millisecond, errors.New("boom"))

	require.Len(t, client.inputs, 1)
	in := client.inputs[0]
	assert.Equal(t, "Ameliorate", *in.Namespace)
	require.Len(t, in.MetricData, 2)
	assert.Equal(t, "CommandExecution", *in.MetricData[0].MetricName)
	assert.Equal(t, float64(15), *in.MetricData[0].Value)
	assert.Equal(t, "failure", *in.MetricData[0].Dimensions[1].Value)
}

func TestMetrics_NilClientIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordCommandExecution(context.Background(), "x", time.Second, nil)
	NewMetrics("ns", nil, zap.NewNop()).RecordTopicActivity(context.Background(), ActivityNodeAdded)
}

func TestCollector(t *testing.T) {
	c := NewCollector("ameliorate")

	c.ObserveHTTPRequest(http.MethodGet, "/api/v2/topics/{username}/{title}", "200", 10*time.Millisecond)
	c.RecordCommandExecution(context.Background(), "CreateTopicCommand", time.Millisecond, nil)
	c.RecordTopicActivity(context.Background(), ActivityTopicCreated)

	assert.Equal(t, float64(1), testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "/api/v2/topics/{username}/{title}", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.CommandsExecuted.WithLabelValues("CreateTopicCommand", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.TopicsCreated))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ameliorate_topics_created_total 1")
}

func TestTracer_WithoutSegmentRunsFunction(t *testing.T) {
	called := false
	err := NewTracer("ameliorate").TraceFunction(context.Background(), "op", func(context.Context) error {
		called = true
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, called)

	var nilTracer *Tracer
	assert.NoError(t, nilTracer.TraceFunction(context.Background(), "op", func(context.Context) error { return nil }))
}
