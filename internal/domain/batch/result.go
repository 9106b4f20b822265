package batch

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of processing one notification record.
type Result struct {
	id     string
	labels int
	status ItemStatus
	err    error
}

// NewOK creates a successful result for a record that was indexed with n labels.
func NewOK(id string, labels int) Result { return Result{id: id, labels: labels, status: StatusOK} }

// NewError creates a failed batch result.
func NewError(id string, err error) Result { return Result{id: id, status: StatusError, err: err} }

// ID returns the item identifier.
func (r Result) ID() string { return r.id }

// Labels returns the number of labels indexed for a successful item.
func (r Result) Labels() int { return r.labels }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Summary counts the outcomes of a batch.
type Summary struct {
	Processed int
	Failed    int
}

// Summarize counts successes and failures.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		if r.status == StatusOK {
			s.Processed++
		} else {
			s.Failed++
		}
	}
	return s
}
