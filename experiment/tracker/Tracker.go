// Package tracker implements Trackers, which record data generated
// over the episodes of an experiment and save it to disk once the
// experiment has finished.
package tracker

import (
	"encoding/gob"
	"fmt"
	"os"
)

// Tracker keeps track of per-episode experiment data and saves the
// data after the experiment has finished. An experiment calls Track
// once per completed episode and Save once at the end.
type Tracker interface {
	Track(episode, steps int, totalReward float64)
	Save() error
}

// saveData gob-encodes a float64 slice to the named file
func saveData(filename string, data []float64) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("save: could not create data file: %v", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(data); err != nil {
		return fmt.Errorf("save: could not encode data: %v", err)
	}
	return nil
}

// LoadData loads and returns the data saved by a Tracker
func LoadData(filename string) ([]float64, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("loaddata: could not open data file: %v", err)
	}
	defer file.Close()

	var data []float64
	if err := gob.NewDecoder(file).Decode(&data); err != nil {
		return nil, fmt.Errorf("loaddata: could not decode data: %v", err)
	}
	return data, nil
}
