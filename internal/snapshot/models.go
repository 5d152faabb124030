// Package snapshot captures point-in-time analysis results so runs of
// the same system can be compared as its topology evolves.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/pubscope/pubscope/internal/analysis"
	"github.com/pubscope/pubscope/internal/config"
	"github.com/pubscope/pubscope/internal/model"
	"github.com/pubscope/pubscope/internal/pattern"
)

// Snapshot is a persisted capture of one analysis run.
type Snapshot struct {
	ID          string    `json:"id"`
	ParentID    string    `json:"parent_id,omitempty"`
	Tag         string    `json:"tag,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`

	Dataset     string                `json:"dataset"`
	ContentHash string                `json:"content_hash"`
	Params      config.AnalysisConfig `json:"params"`

	Anomalies int     `json:"anomalies"`
	TopScore  float64 `json:"top_score"`
	Loops     int     `json:"loops"`

	Rankings map[model.Kind][]RankEntry `json:"rankings"`
}

// RankEntry is one ranked entity within a snapshot.
type RankEntry struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Rank     int            `json:"rank"`
	Score    float64        `json:"score"`
	Patterns []pattern.Name `json:"patterns,omitempty"`
}

// Index is the lightweight listing persisted alongside snapshots.
type Index struct {
	Snapshots []Summary `json:"snapshots"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary carries just enough of a snapshot for listings.
type Summary struct {
	ID        string    `json:"id"`
	ParentID  string    `json:"parent_id,omitempty"`
	Tag       string    `json:"tag,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Dataset   string    `json:"dataset"`
	Anomalies int       `json:"anomalies"`
	TopScore  float64   `json:"top_score"`
}

// Capture converts an analysis result into a snapshot. The ID derives
// from the ranking content and capture time, so identical topologies
// analyzed twice still get distinct IDs.
func Capture(res *analysis.Result, tag, description string) *Snapshot {
	snap := &Snapshot{
		Tag:         tag,
		Description: description,
		CreatedAt:   time.Now(),
		Dataset:     res.Dataset,
		Params:      res.Params,
		Anomalies:   res.Anomalies(),
		Loops:       len(res.Cycles.SelfLoops) + len(res.Cycles.PairLoops),
		Rankings:    make(map[model.Kind][]RankEntry, len(res.Kinds)),
	}

	for kind, kr := range res.Kinds {
		entries := make([]RankEntry, 0, len(kr.Ranking))
		for i, row := range kr.Ranking {
			entries = append(entries, RankEntry{
				ID:       row.ID,
				Name:     row.Name,
				Rank:     i + 1,
				Score:    row.Score,
				Patterns: row.Patterns,
			})
			if row.Score > snap.TopScore {
				snap.TopScore = row.Score
			}
		}
		snap.Rankings[kind] = entries
	}

	snap.ContentHash = rankingsHash(snap.Rankings)
	snap.ID = snapshotID(snap)
	return snap
}

// Summary returns the listing form of this snapshot.
func (s *Snapshot) Summary() Summary {
	return Summary{
		ID:        s.ID,
		ParentID:  s.ParentID,
		Tag:       s.Tag,
		CreatedAt: s.CreatedAt,
		Dataset:   s.Dataset,
		Anomalies: s.Anomalies,
		TopScore:  s.TopScore,
	}
}

func rankingsHash(rankings map[model.Kind][]RankEntry) string {
	h := sha256.New()
	for _, kind := range []model.Kind{model.KindApplication, model.KindTopic, model.KindNode, model.KindLibrary} {
		raw, _ := json.Marshal(rankings[kind])
		h.Write([]byte(kind))
		h.Write(raw)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func snapshotID(s *Snapshot) string {
	raw, _ := json.Marshal(struct {
		Time    int64  `json:"t"`
		Content string `json:"c"`
	}{s.CreatedAt.UnixNano(), s.ContentHash})
	h := sha256.Sum256(raw)
	return hex.EncodeToString(h[:8])
}
