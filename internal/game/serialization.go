package game

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/unotable/uno-server-go/internal/game/cards"
)

// SerializationChecksum is a fingerprint of a snapshot, used to check that a
// replayed or transmitted table matches the one that was recorded.
type SerializationChecksum struct {
	Hash      string // SHA-256 of the canonical rendering
	Timestamp string // When the snapshot was taken
	Version   int
}

// ComputeChecksum hashes the snapshot's canonical rendering. The timestamp
// is not part of the hash.
func (s *Snapshot) ComputeChecksum() (*SerializationChecksum, error) {
	hash := sha256.New()
	if _, err := hash.Write([]byte(s.canonical())); err != nil {
		return nil, fmt.Errorf("failed to compute hash: %w", err)
	}

	return &SerializationChecksum{
		Hash:      hex.EncodeToString(hash.Sum(nil)),
		Timestamp: s.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z"),
		Version:   1,
	}, nil
}

// canonical renders the snapshot as text. Pile and hand order is part of
// the state, so nothing is sorted.
func (s *Snapshot) canonical() string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "ROUND:%s|%s|%d|%d|%s|%d|%t|%s\n",
		s.RoundID,
		s.State,
		s.TurnIndex,
		s.TurnNumber,
		s.Direction,
		s.PendingPenalty,
		s.PenaltyActive,
		s.ActiveWildColor,
	)

	for _, p := range s.Players {
		fmt.Fprintf(&buf, "PLAYER:%s|%s|%d\n", p.ID, p.Name, len(p.Hand))
		buf.WriteString("  HAND:")
		buf.WriteString(renderCards(p.Hand))
		buf.WriteString("\n")
	}

	buf.WriteString("DRAW:")
	buf.WriteString(renderCards(s.DrawPile))
	buf.WriteString("\n")
	buf.WriteString("DISCARD:")
	buf.WriteString(renderCards(s.DiscardPile))
	buf.WriteString("\n")

	return buf.String()
}

func renderCards(records []cards.Record) string {
	parts := make([]string, len(records))
	for i, c := range records {
		parts[i] = c.ID + "/" + c.Kind.String() + "/" + c.Color.String() + "/" + strconv.Itoa(c.Rank)
	}
	return strings.Join(parts, ",")
}

// VerifyChecksum reports whether the snapshot still hashes to expected.
func (s *Snapshot) VerifyChecksum(expected *SerializationChecksum) (bool, error) {
	computed, err := s.ComputeChecksum()
	if err != nil {
		return false, fmt.Errorf("failed to compute checksum: %w", err)
	}
	return computed.Hash == expected.Hash, nil
}

// SerializeToBytes gob encodes the snapshot.
func (s *Snapshot) SerializeToBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// DeserializeFromBytes decodes a snapshot written by SerializeToBytes.
func DeserializeFromBytes(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &s, nil
}
