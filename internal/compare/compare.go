// Package compare evaluates analysis rankings against expert-curated
// anomaly lists. Expert lists name entities; the comparison resolves
// names to ids against the analyzed dataset and scores the top-K
// overlap.
package compare

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/pubscope/pubscope/internal/analysis"
	"github.com/pubscope/pubscope/internal/model"
)

// Agreement grades the overlap between analysis and expert judgment.
type Agreement string

const (
	AgreementHigh     Agreement = "HIGH"
	AgreementModerate Agreement = "MODERATE"
	AgreementLow      Agreement = "LOW"
)

// grade maps an F1 value to an agreement level.
func grade(f1 float64) Agreement {
	switch {
	case f1 >= 0.7:
		return AgreementHigh
	case f1 >= 0.5:
		return AgreementModerate
	default:
		return AgreementLow
	}
}

// Expert holds the expert's anomaly lists per entity kind. Entries may
// be entity names or ids.
type Expert struct {
	Applications []string `json:"applications,omitempty"`
	Topics       []string `json:"topics,omitempty"`
	Nodes        []string `json:"nodes,omitempty"`
	Libraries    []string `json:"libraries,omitempty"`
}

// LoadExpert reads an expert list document.
func LoadExpert(path string) (*Expert, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading expert list: %w", err)
	}
	var ex Expert
	if err := json.Unmarshal(data, &ex); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &ex, nil
}

func (e *Expert) forKind(kind model.Kind) []string {
	switch kind {
	case model.KindApplication:
		return e.Applications
	case model.KindTopic:
		return e.Topics
	case model.KindNode:
		return e.Nodes
	case model.KindLibrary:
		return e.Libraries
	}
	return nil
}

// KindComparison is one kind's agreement measurement.
type KindComparison struct {
	Kind model.Kind `json:"kind"`
	K    int        `json:"k"`

	Expert    []string `json:"expert"`
	Predicted []string `json:"predicted"`
	Overlap   []string `json:"overlap"`

	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Jaccard   float64 `json:"jaccard"`

	Agreement Agreement `json:"agreement"`
}

// Report aggregates all compared kinds.
type Report struct {
	Kinds []KindComparison `json:"kinds"`

	// Averages are taken over compared kinds only; kinds without an
	// expert list do not dilute them.
	AvgPrecision float64 `json:"avg_precision"`
	AvgRecall    float64 `json:"avg_recall"`
	AvgF1        float64 `json:"avg_f1"`
	AvgJaccard   float64 `json:"avg_jaccard"`

	Agreement Agreement `json:"agreement"`
}

// Against compares a result's top-K rankings with the expert lists.
// Kinds with an empty expert list are skipped.
func Against(res *analysis.Result, expert *Expert) Report {
	var rep Report
	n := 0

	for _, kind := range []model.Kind{
		model.KindApplication, model.KindTopic, model.KindNode, model.KindLibrary,
	} {
		names := expert.forKind(kind)
		if len(names) == 0 {
			continue
		}
		kr := res.Kinds[kind]

		kc := compareKind(kind, kr, names)
		rep.Kinds = append(rep.Kinds, kc)
		rep.AvgPrecision += kc.Precision
		rep.AvgRecall += kc.Recall
		rep.AvgF1 += kc.F1
		rep.AvgJaccard += kc.Jaccard
		n++
	}

	if n > 0 {
		rep.AvgPrecision /= float64(n)
		rep.AvgRecall /= float64(n)
		rep.AvgF1 /= float64(n)
		rep.AvgJaccard /= float64(n)
	}
	rep.Agreement = grade(rep.AvgF1)
	return rep
}

func compareKind(kind model.Kind, kr analysis.KindResult, expertNames []string) KindComparison {
	// Resolve expert names against the ranked rows. Ids pass through
	// unchanged; unknown names stay as given and simply never match.
	// A name shared by several entities resolves to the highest-ranked
	// one.
	byName := make(map[string]string, len(kr.Ranking))
	ids := make(map[string]bool, len(kr.Ranking))
	for _, row := range kr.Ranking {
		if _, ok := byName[row.Name]; !ok {
			byName[row.Name] = row.ID
		}
		ids[row.ID] = true
	}

	expertIDs := make([]string, 0, len(expertNames))
	seen := make(map[string]bool, len(expertNames))
	for _, name := range expertNames {
		id := name
		if !ids[id] {
			if resolved, ok := byName[name]; ok {
				id = resolved
			}
		}
		if !seen[id] {
			seen[id] = true
			expertIDs = append(expertIDs, id)
		}
	}

	predicted := make([]string, 0, len(kr.Top))
	predictedSet := make(map[string]bool, len(kr.Top))
	for _, row := range kr.Top {
		predicted = append(predicted, row.ID)
		predictedSet[row.ID] = true
	}

	var overlap []string
	for _, id := range expertIDs {
		if predictedSet[id] {
			overlap = append(overlap, id)
		}
	}
	sort.Strings(overlap)

	union := len(predictedSet)
	for _, id := range expertIDs {
		if !predictedSet[id] {
			union++
		}
	}

	kc := KindComparison{
		Kind:      kind,
		K:         len(predicted),
		Expert:    expertIDs,
		Predicted: predicted,
		Overlap:   overlap,
	}
	if len(predicted) > 0 {
		kc.Precision = float64(len(overlap)) / float64(len(predicted))
	}
	kc.Recall = float64(len(overlap)) / float64(len(expertIDs))
	if kc.Precision+kc.Recall > 0 {
		kc.F1 = 2 * kc.Precision * kc.Recall / (kc.Precision + kc.Recall)
	}
	if union > 0 {
		kc.Jaccard = float64(len(overlap)) / float64(union)
	}
	kc.Agreement = grade(kc.F1)
	return kc
}
