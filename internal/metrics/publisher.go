// Package metrics publishes operational counts to CloudWatch. Publishing is
// best-effort: a metrics failure is logged and never affects the request.
package metrics

import (
	"context"
	"log"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/acaidoheitor/orders-api/internal/aws"
)

// Publisher wraps a CloudWatch client and a metric namespace. A nil
// Publisher is a no-op.
type Publisher struct {
	client    aws.CloudWatchAPI
	namespace string
	nowFunc   func() time.Time
}

// NewPublisher returns a Publisher bound to a namespace.
func NewPublisher(client aws.CloudWatchAPI, namespace string) *Publisher {
	return &Publisher{
		client:    client,
		namespace: namespace,
		nowFunc:   time.Now,
	}
}

// Count records a single occurrence of the named metric.
func (p *Publisher) Count(ctx context.Context, name string) {
	if p == nil {
		return
	}
	now := p.nowFunc()
	_, err := p.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: &p.namespace,
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: &name,
				Timestamp:  &now,
				Unit:       cwtypes.StandardUnitCount,
				Value:      sdkaws.Float64(1),
			},
		},
	})
	if err != nil {
		log.Printf("metrics: put %s: %v", name, err)
	}
}
