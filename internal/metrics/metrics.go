package metrics

type Counter interface {
	Inc()
}

type Metrics struct {
	PositionsOpened      Counter
	PositionsClosed      Counter
	LegsExecuted         Counter
	LegsFailed           Counter
	PartialOpens         Counter
	LedgerAppendFailures Counter
	PairsSkipped         Counter
	CycleErrors          Counter
}

type noopCounter struct{}

func (noopCounter) Inc() {}

func NewNoop() *Metrics {
	n := noopCounter{}
	return &Metrics{
		PositionsOpened:      n,
		PositionsClosed:      n,
		LegsExecuted:         n,
		LegsFailed:           n,
		PartialOpens:         n,
		LedgerAppendFailures: n,
		PairsSkipped:         n,
		CycleErrors:          n,
	}
}
