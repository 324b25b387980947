package tracker

// Return tracks and saves the episodic return of every training
// episode in an experiment.
//
// Note: only completed episodes are recorded. If an experiment cuts an
// episode short, the experiment reports that episode's partial return
// to Track and it is recorded like any other.
type Return struct {
	episodeReturns []float64
	filename       string
}

// NewReturn creates and returns a new *Return Tracker that saves to
// filename
func NewReturn(filename string) Tracker {
	return &Return{filename: filename}
}

// Track records the return of a completed episode
func (r *Return) Track(_, _ int, totalReward float64) {
	r.episodeReturns = append(r.episodeReturns, totalReward)
}

// Save saves the data tracked by the Return Tracker to disk
func (r *Return) Save() error {
	return saveData(r.filename, r.episodeReturns)
}
