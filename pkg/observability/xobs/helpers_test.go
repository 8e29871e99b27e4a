package xobs

import (
	"context"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// metricdataCollector 收集 ManualReader 的指标数据并提供断言辅助。
type metricdataCollector struct {
	rm metricdata.ResourceMetrics
}

func (c *metricdataCollector) collect(reader *sdkmetric.ManualReader) error {
	return reader.Collect(context.Background(), &c.rm)
}

// totalFor 返回 armory.operation.total 中指定 component/operation 的计数总和。
func (c *metricdataCollector) totalFor(component, operation string) int64 {
	var total int64
	for _, scope := range c.rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != metricOperationTotal {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				comp, _ := dp.Attributes.Value("component")
				op, _ := dp.Attributes.Value("operation")
				if comp.AsString() == component && op.AsString() == operation {
					total += dp.Value
				}
			}
		}
	}
	return total
}
