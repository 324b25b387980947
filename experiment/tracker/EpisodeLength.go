package tracker

// EpisodeLength tracks and saves the number of steps taken in every
// training episode of an experiment.
type EpisodeLength struct {
	episodeLengths []float64
	filename       string
}

// NewEpisodeLength creates and returns a new *EpisodeLength Tracker
// that saves to filename
func NewEpisodeLength(filename string) Tracker {
	return &EpisodeLength{filename: filename}
}

// Track records the length of a completed episode
func (e *EpisodeLength) Track(_, steps int, _ float64) {
	e.episodeLengths = append(e.episodeLengths, float64(steps))
}

// Save saves the data tracked by the EpisodeLength Tracker to disk
func (e *EpisodeLength) Save() error {
	return saveData(e.filename, e.episodeLengths)
}
