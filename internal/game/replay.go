package game

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

const replayVersion = 1

// Replay is the sequence of table snapshots taken during one round.
type Replay struct {
	RoundID      string
	States       []*Snapshot
	CurrentIndex int
	mu           sync.RWMutex
}

// NewReplay creates a new replay instance
func NewReplay(roundID string) *Replay {
	return &Replay{
		RoundID: roundID,
		States:  make([]*Snapshot, 0, 64),
	}
}

// RecordState appends a snapshot.
func (r *Replay) RecordState(snapshot *Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.States = append(r.States, snapshot)
}

// Start rewinds to the first snapshot.
func (r *Replay) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.CurrentIndex = 0
}

// Next returns the snapshot at the cursor and moves forward, or nil at the end.
func (r *Replay) Next() *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.CurrentIndex < len(r.States) {
		state := r.States[r.CurrentIndex]
		r.CurrentIndex++
		return state
	}
	return nil
}

// Previous moves back one snapshot and returns it, or nil at the start.
func (r *Replay) Previous() *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.CurrentIndex > 0 {
		r.CurrentIndex--
		return r.States[r.CurrentIndex]
	}
	return nil
}

// Size returns the number of recorded states
func (r *Replay) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.States)
}

// GetStateAt returns the state at a specific index
func (r *Replay) GetStateAt(index int) *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if index >= 0 && index < len(r.States) {
		return r.States[index]
	}
	return nil
}

type replayMetadata struct {
	RoundID    string
	Timestamp  time.Time
	Version    int
	StateCount int
}

// SaveToFile writes the replay to <directory>/<round id>.replay as gzipped gob.
// Every snapshot is followed by its checksum.
func (r *Replay) SaveToFile(directory string) (err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := os.MkdirAll(directory, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(replayPath(directory, r.RoundID))
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close file: %w", cerr)
		}
	}()

	gz := gzip.NewWriter(file)
	defer func() {
		if cerr := gz.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to flush gzip stream: %w", cerr)
		}
	}()

	encoder := gob.NewEncoder(gz)
	metadata := replayMetadata{
		RoundID:    r.RoundID,
		Timestamp:  time.Now(),
		Version:    replayVersion,
		StateCount: len(r.States),
	}
	if err := encoder.Encode(&metadata); err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	for i, state := range r.States {
		sum, err := state.ComputeChecksum()
		if err != nil {
			return fmt.Errorf("checksum state %d: %w", i, err)
		}
		if err := encoder.Encode(state); err != nil {
			return fmt.Errorf("failed to encode state %d: %w", i, err)
		}
		if err := encoder.Encode(sum); err != nil {
			return fmt.Errorf("failed to encode checksum %d: %w", i, err)
		}
	}

	return nil
}

// LoadReplayFromFile reads a replay written by SaveToFile and verifies every
// snapshot against its stored checksum.
func LoadReplayFromFile(directory, roundID string) (*Replay, error) {
	file, err := os.Open(replayPath(directory, roundID))
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	decoder := gob.NewDecoder(gz)

	var metadata replayMetadata
	if err := decoder.Decode(&metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	if metadata.Version != replayVersion {
		return nil, fmt.Errorf("unsupported replay version: %d", metadata.Version)
	}

	replay := NewReplay(metadata.RoundID)
	for i := 0; i < metadata.StateCount; i++ {
		var state Snapshot
		if err := decoder.Decode(&state); err != nil {
			return nil, fmt.Errorf("failed to decode state %d: %w", i, err)
		}
		var sum SerializationChecksum
		if err := decoder.Decode(&sum); err != nil {
			return nil, fmt.Errorf("failed to decode checksum %d: %w", i, err)
		}
		ok, err := state.VerifyChecksum(&sum)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("state %d does not match its checksum", i)
		}
		replay.States = append(replay.States, &state)
	}

	return replay, nil
}

func replayPath(directory, roundID string) string {
	return filepath.Join(directory, fmt.Sprintf("%s.replay", roundID))
}

// ReplayRecorder keeps in-memory replays of running rounds and writes them
// out when a round ends.
type ReplayRecorder struct {
	logger  *zap.Logger
	mu      sync.RWMutex
	replays map[string]*Replay // roundID -> Replay
	saveDir string
}

// NewReplayRecorder creates a recorder writing to saveDir.
func NewReplayRecorder(logger *zap.Logger, saveDir string) *ReplayRecorder {
	return &ReplayRecorder{
		logger:  logger,
		replays: make(map[string]*Replay),
		saveDir: saveDir,
	}
}

// StartRecording begins recording a round
func (rr *ReplayRecorder) StartRecording(roundID string) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	rr.replays[roundID] = NewReplay(roundID)

	if rr.logger != nil {
		rr.logger.Debug("started replay recording", zap.String("round_id", roundID))
	}
}

// RecordState appends a snapshot if the round is being recorded.
func (rr *ReplayRecorder) RecordState(roundID string, snapshot *Snapshot) {
	rr.mu.RLock()
	replay := rr.replays[roundID]
	rr.mu.RUnlock()

	if replay == nil {
		return
	}
	replay.RecordState(snapshot)
}

// IsRecording returns whether a round is being recorded.
func (rr *ReplayRecorder) IsRecording(roundID string) bool {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	_, ok := rr.replays[roundID]
	return ok
}

// SaveReplay writes a replay to disk and forgets it.
func (rr *ReplayRecorder) SaveReplay(roundID string) error {
	rr.mu.Lock()
	replay, exists := rr.replays[roundID]
	delete(rr.replays, roundID)
	rr.mu.Unlock()

	if !exists {
		return fmt.Errorf("no replay found for round %s", roundID)
	}

	if err := replay.SaveToFile(rr.saveDir); err != nil {
		return fmt.Errorf("failed to save replay: %w", err)
	}

	if rr.logger != nil {
		rr.logger.Info("saved replay to disk",
			zap.String("round_id", roundID),
			zap.Int("state_count", replay.Size()),
			zap.String("directory", rr.saveDir),
		)
	}
	return nil
}

// LoadReplay loads a saved replay.
func (rr *ReplayRecorder) LoadReplay(roundID string) (*Replay, error) {
	return LoadReplayFromFile(rr.saveDir, roundID)
}

// ClearReplay drops a replay without saving it.
func (rr *ReplayRecorder) ClearReplay(roundID string) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	delete(rr.replays, roundID)
}
