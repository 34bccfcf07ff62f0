package syncer

// ErrorDetail describes one failed item within a run.
type ErrorDetail struct {
	Message string `json:"message"`
	Target  string `json:"target,omitempty"`
	// Recoverable marks errors worth retrying on a later run, such as
	// a transient remote failure. A missing article is not
	// recoverable.
	Recoverable bool `json:"recoverable"`
}

// DirectionStats is the per-direction breakdown of a bidirectional
// run.
type DirectionStats struct {
	Processed int `json:"processed"`
	Errors    int `json:"errors"`
}

// Result is the JSON-serializable outcome of one sync run. Per-item
// errors accumulate here without failing the run; Success only goes
// false when the run itself could not proceed.
type Result struct {
	Success      bool            `json:"success"`
	Processed    int             `json:"processed"`
	Errors       int             `json:"errors"`
	ErrorDetails []ErrorDetail   `json:"errorDetails,omitempty"`
	ToRemote     *DirectionStats `json:"toRemote,omitempty"`
	FromRemote   *DirectionStats `json:"fromRemote,omitempty"`
}

func (r *Result) addError(target, message string, recoverable bool) {
	r.Errors++
	r.ErrorDetails = append(r.ErrorDetails, ErrorDetail{
		Message:     message,
		Target:      target,
		Recoverable: recoverable,
	})
}

// merge folds a directional sub-result into the combined run result.
func (r *Result) merge(sub *Result) {
	r.Processed += sub.Processed
	r.Errors += sub.Errors
	r.ErrorDetails = append(r.ErrorDetails, sub.ErrorDetails...)
}

func (r *Result) stats() *DirectionStats {
	return &DirectionStats{Processed: r.Processed, Errors: r.Errors}
}

// failure builds the result for a structural error that aborted the
// run before or outside any per-item handling.
func failure(err error) *Result {
	r := &Result{Success: false}
	r.addError("", err.Error(), false)
	return r
}
