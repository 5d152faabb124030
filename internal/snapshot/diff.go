package snapshot

import (
	"fmt"
	"io"

	"github.com/pubscope/pubscope/internal/model"
	"github.com/pubscope/pubscope/internal/pattern"
)

// ChangeType classifies an entity's movement between two snapshots.
type ChangeType string

const (
	ChangeAdded   ChangeType = "added"
	ChangeRemoved ChangeType = "removed"
	ChangeMoved   ChangeType = "moved"
)

// Diff is the full comparison between two snapshots of a dataset.
type Diff struct {
	OldID  string `json:"old_id"`
	NewID  string `json:"new_id"`
	OldTag string `json:"old_tag,omitempty"`
	NewTag string `json:"new_tag,omitempty"`

	AnomalyDelta  int     `json:"anomaly_delta"`
	TopScoreDelta float64 `json:"top_score_delta"`
	LoopDelta     int     `json:"loop_delta"`

	Kinds   []KindDiff  `json:"kinds"`
	Summary DiffSummary `json:"summary"`
}

// KindDiff lists the ranking changes within one entity kind.
type KindDiff struct {
	Kind    model.Kind   `json:"kind"`
	Changes []EntityDiff `json:"changes"`
}

// EntityDiff records how one entity's standing changed.
type EntityDiff struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Type ChangeType `json:"type"`

	OldRank int `json:"old_rank,omitempty"`
	NewRank int `json:"new_rank,omitempty"`

	OldScore   float64 `json:"old_score,omitempty"`
	NewScore   float64 `json:"new_score,omitempty"`
	ScoreDelta float64 `json:"score_delta"`

	PatternsGained []pattern.Name `json:"patterns_gained,omitempty"`
	PatternsLost   []pattern.Name `json:"patterns_lost,omitempty"`
}

// DiffSummary totals changes across kinds.
type DiffSummary struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
	Moved   int `json:"moved"`
}

// Compare diffs two snapshots. Entities count as moved when their
// rank, score, or triggered patterns changed.
func Compare(old, new *Snapshot) *Diff {
	d := &Diff{
		OldID:         old.ID,
		NewID:         new.ID,
		OldTag:        old.Tag,
		NewTag:        new.Tag,
		AnomalyDelta:  new.Anomalies - old.Anomalies,
		TopScoreDelta: new.TopScore - old.TopScore,
		LoopDelta:     new.Loops - old.Loops,
	}

	for _, kind := range []model.Kind{model.KindApplication, model.KindTopic, model.KindNode, model.KindLibrary} {
		kd := diffKind(kind, old.Rankings[kind], new.Rankings[kind])
		if len(kd.Changes) == 0 {
			continue
		}
		d.Kinds = append(d.Kinds, kd)
		for _, c := range kd.Changes {
			switch c.Type {
			case ChangeAdded:
				d.Summary.Added++
			case ChangeRemoved:
				d.Summary.Removed++
			case ChangeMoved:
				d.Summary.Moved++
			}
		}
	}
	return d
}

func diffKind(kind model.Kind, oldEntries, newEntries []RankEntry) KindDiff {
	kd := KindDiff{Kind: kind}

	oldByID := make(map[string]RankEntry, len(oldEntries))
	for _, e := range oldEntries {
		oldByID[e.ID] = e
	}

	seen := make(map[string]bool, len(newEntries))
	for _, ne := range newEntries {
		seen[ne.ID] = true
		oe, ok := oldByID[ne.ID]
		if !ok {
			kd.Changes = append(kd.Changes, EntityDiff{
				ID: ne.ID, Name: ne.Name, Type: ChangeAdded,
				NewRank: ne.Rank, NewScore: ne.Score, ScoreDelta: ne.Score,
			})
			continue
		}

		gained, lost := patternDelta(oe.Patterns, ne.Patterns)
		if oe.Rank == ne.Rank && oe.Score == ne.Score && len(gained) == 0 && len(lost) == 0 {
			continue
		}
		kd.Changes = append(kd.Changes, EntityDiff{
			ID: ne.ID, Name: ne.Name, Type: ChangeMoved,
			OldRank: oe.Rank, NewRank: ne.Rank,
			OldScore: oe.Score, NewScore: ne.Score,
			ScoreDelta:     ne.Score - oe.Score,
			PatternsGained: gained, PatternsLost: lost,
		})
	}

	for _, oe := range oldEntries {
		if seen[oe.ID] {
			continue
		}
		kd.Changes = append(kd.Changes, EntityDiff{
			ID: oe.ID, Name: oe.Name, Type: ChangeRemoved,
			OldRank: oe.Rank, OldScore: oe.Score, ScoreDelta: -oe.Score,
		})
	}
	return kd
}

func patternDelta(old, new []pattern.Name) (gained, lost []pattern.Name) {
	oldSet := make(map[pattern.Name]bool, len(old))
	for _, p := range old {
		oldSet[p] = true
	}
	newSet := make(map[pattern.Name]bool, len(new))
	for _, p := range new {
		newSet[p] = true
		if !oldSet[p] {
			gained = append(gained, p)
		}
	}
	for _, p := range old {
		if !newSet[p] {
			lost = append(lost, p)
		}
	}
	return gained, lost
}

// Write renders the diff as human-readable text.
func (d *Diff) Write(w io.Writer) {
	fmt.Fprintf(w, "snapshot diff %s -> %s\n", label(d.OldID, d.OldTag), label(d.NewID, d.NewTag))
	fmt.Fprintf(w, "  anomalies %+d, top score %+.2f, loops %+d\n",
		d.AnomalyDelta, d.TopScoreDelta, d.LoopDelta)
	fmt.Fprintf(w, "  %d added, %d removed, %d moved\n",
		d.Summary.Added, d.Summary.Removed, d.Summary.Moved)

	for _, kd := range d.Kinds {
		fmt.Fprintf(w, "\n%s:\n", kd.Kind)
		for _, c := range kd.Changes {
			switch c.Type {
			case ChangeAdded:
				fmt.Fprintf(w, "  + %-24s rank %d, score %.2f\n", c.Name, c.NewRank, c.NewScore)
			case ChangeRemoved:
				fmt.Fprintf(w, "  - %-24s was rank %d, score %.2f\n", c.Name, c.OldRank, c.OldScore)
			case ChangeMoved:
				fmt.Fprintf(w, "  ~ %-24s rank %d -> %d, score %+.2f\n",
					c.Name, c.OldRank, c.NewRank, c.ScoreDelta)
				for _, p := range c.PatternsGained {
					fmt.Fprintf(w, "      gained %s\n", p)
				}
				for _, p := range c.PatternsLost {
					fmt.Fprintf(w, "      lost %s\n", p)
				}
			}
		}
	}
}

func label(id, tag string) string {
	if tag != "" {
		return fmt.Sprintf("%s (%s)", tag, shortID(id))
	}
	return shortID(id)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
