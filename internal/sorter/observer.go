package sorter

// Observer receives run events for presentation (banner, progress bar).
// Implementations must be safe for concurrent use: with several workers
// FileDone is called from multiple goroutines. Observers never influence the
// run.
type Observer interface {
	// RunStarted is called once the source has been scanned.
	RunStarted(runID string, total int)
	// FileDone is called after each file reaches a terminal state.
	FileDone(out Outcome, done, total int)
	// RunFinished is called with the final report.
	RunFinished(report *Report)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) RunStarted(string, int)     {}
func (NopObserver) FileDone(Outcome, int, int) {}
func (NopObserver) RunFinished(*Report)        {}
