package cassandra

import "github.com/uber-go/tally"

// Metrics tracks connector call outcomes.
type Metrics struct {
	ExecuteSuccess tally.Counter
	ExecuteFail    tally.Counter

	ExecuteBatchSuccess tally.Counter
	ExecuteBatchFail    tally.Counter
}

// NewMetrics returns the metrics bundle for a store scope.
func NewMetrics(scope tally.Scope) *Metrics {
	executeScope := scope.SubScope("execute")
	batchScope := scope.SubScope("execute_batch")
	return &Metrics{
		ExecuteSuccess:      executeScope.Counter("success"),
		ExecuteFail:         executeScope.Counter("fail"),
		ExecuteBatchSuccess: batchScope.Counter("success"),
		ExecuteBatchFail:    batchScope.Counter("fail"),
	}
}
