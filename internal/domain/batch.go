package domain

// QueueMessage is one raw message of an inbound batch
type QueueMessage struct {
	ID   string
	Body []byte
}

// BatchFailure describes one message that did not produce a persisted product
type BatchFailure struct {
	MessageID string `json:"message_id"`
	RawBody   string `json:"raw_body"`
	Kind      string `json:"kind"`
	Error     string `json:"error"`
}

// BatchItemResult is the outcome of one message: exactly one of Product or Failure is set
type BatchItemResult struct {
	Product *Product
	Failure *BatchFailure
}

// Succeeded reports whether the item produced a product
func (r BatchItemResult) Succeeded() bool {
	return r.Product != nil
}

// BatchReport aggregates the outcomes of one batch invocation
type BatchReport struct {
	ProcessedCount int             `json:"processed_count"`
	ErrorCount     int             `json:"error_count"`
	Results        []*Product      `json:"results"`
	Errors         []*BatchFailure `json:"errors"`
}

// NewBatchReport folds per-item results into a report
func NewBatchReport(items []BatchItemResult) *BatchReport {
	report := &BatchReport{
		Results: make([]*Product, 0, len(items)),
		Errors:  make([]*BatchFailure, 0),
	}

	for _, item := range items {
		if item.Succeeded() {
			report.Results = append(report.Results, item.Product)
			continue
		}
		failure := item.Failure
		if failure == nil {
			failure = &BatchFailure{Kind: KindInternal, Error: "item produced neither a product nor a failure"}
		}
		report.Errors = append(report.Errors, failure)
	}

	report.ProcessedCount = len(report.Results)
	report.ErrorCount = len(report.Errors)
	return report
}

// Total returns the number of messages the report accounts for
func (r *BatchReport) Total() int {
	return r.ProcessedCount + r.ErrorCount
}
