package experiment

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/cormackay/deepctrl/experiment/checkpointer"
	"github.com/cormackay/deepctrl/experiment/tracker"
)

// mockAgent runs fixed-length episodes and records how many episodes it
// ran in each mode
type mockAgent struct {
	episodeSteps  int
	episodeReward float64

	eval          bool
	trainEpisodes int
	evalEpisodes  int
}

func (m *mockAgent) RunEpisode(maxStep int) (int, float64, error) {
	if m.eval {
		m.evalEpisodes++
	} else {
		m.trainEpisodes++
	}
	steps := m.episodeSteps
	if steps > maxStep {
		steps = maxStep
	}
	return steps, m.episodeReward, nil
}

func (m *mockAgent) Step() error { return nil }

func (m *mockAgent) SelectAction(obs mat.Vector) (*mat.VecDense, error) {
	return mat.NewVecDense(1, nil), nil
}

func (m *mockAgent) Eval()        { m.eval = true }
func (m *mockAgent) Train()       { m.eval = false }
func (m *mockAgent) IsEval() bool { return m.eval }

func (m *mockAgent) Logs() map[string]float64 {
	return map[string]float64{"LossPi": 0.1, "LossQ": 0.2}
}

func TestOnlineRun(t *testing.T) {
	dir := t.TempDir()
	returnsFile := filepath.Join(dir, "returns.bin")

	agent := &mockAgent{episodeSteps: 4, episodeReward: -2.5}
	trackers := []tracker.Tracker{tracker.NewReturn(returnsFile)}

	object := &constObject{}
	check, err := checkpointer.NewNIter(1, object,
		checkpointer.Keyed(dir, "Mock", "DDPG", 7))
	require.NoError(t, err)

	exp, err := NewOnline(nil, agent, 2, 10, 100, 3, trackers,
		[]checkpointer.Checkpointer{check}, nil)
	require.NoError(t, err)

	require.NoError(t, exp.Run())

	// 10 steps per iteration at 4 steps per episode means 3 whole
	// training episodes (12 steps) per iteration
	assert.Equal(t, 6, agent.trainEpisodes)
	assert.Equal(t, 6, agent.evalEpisodes)
	assert.Equal(t, 24, exp.TotalSteps())
	assert.False(t, agent.IsEval())

	// One checkpoint per iteration
	assert.Equal(t, 2, object.encoded)

	// Every training episode's return was tracked and saved
	data, err := tracker.LoadData(returnsFile)
	require.NoError(t, err)
	assert.Equal(t, []float64{-2.5, -2.5, -2.5, -2.5, -2.5, -2.5}, data)
}

func TestNewOnlineValidation(t *testing.T) {
	agent := &mockAgent{episodeSteps: 1}

	_, err := NewOnline(nil, agent, 0, 10, 100, 1, nil, nil, nil)
	assert.Error(t, err)

	_, err = NewOnline(nil, agent, 1, 0, 100, 1, nil, nil, nil)
	assert.Error(t, err)

	_, err = NewOnline(nil, agent, 1, 10, 0, 1, nil, nil, nil)
	assert.Error(t, err)

	_, err = NewOnline(nil, agent, 1, 10, 100, -1, nil, nil, nil)
	assert.Error(t, err)
}

// constObject serializes to a fixed payload and counts encodings
type constObject struct {
	encoded int
}

func (c *constObject) GobEncode() ([]byte, error) {
	c.encoded++
	return []byte("snapshot"), nil
}
