// Package mapstate holds the map client's application state and the glue
// between API responses, request ordering and feature styling.
package mapstate

import (
	"math"
	"sort"
	"time"

	"github.com/RoaringBitmap/roaring"
	"github.com/futaoo/INTERVAL/internal/trees"
)

const maxActivities = 10

// Activity is a statistics activity with its date formatted for display.
type Activity struct {
	TreeID      int     `json:"treeId"`
	TreeName    *string `json:"treeName"`
	Type        *string `json:"type"`
	Description *string `json:"description"`
	Date        string  `json:"date"`
}

// Statistics is the displayed summary. TotalIssues counts the kept activities.
type Statistics struct {
	TotalTrees          int64                `json:"totalTrees"`
	TotalSpecies        int64                `json:"totalSpecies"`
	TotalIssues         int                  `json:"totalIssues"`
	MostCommonSpecies   string               `json:"mostCommonSpecies"`
	PublicPercentage    int64                `json:"publicPercentage"`
	PrivatePercentage   int64                `json:"privatePercentage"`
	NativePercentage    int64                `json:"nativePercentage"`
	NonNativePercentage int64                `json:"nonNativePercentage"`
	EcologicalBenefits  []trees.BenefitTotal `json:"ecologicalBenefits"`
	SpeciesComposition  []trees.SpeciesShare `json:"speciesComposition"`
	Activities          []Activity           `json:"activities"`
}

// State is the whole map client state. Values are replaced, never mutated:
// every With* method returns a new State.
type State struct {
	ElectoralName   string
	Statistics      Statistics
	IncludedTreeIDs *roaring.Bitmap
	FromFilter      bool
	SelectedTreeID  int
	SelectedGeomWKT string
	CurrentRecord   *trees.TreeRecord
}

func (s State) WithStatistics(st trees.Statistics) State {
	acts := recentActivities(st.Activities)
	s.ElectoralName = st.ElectoralName
	s.Statistics = Statistics{
		TotalTrees:          st.TotalTrees,
		TotalSpecies:        st.TotalSpecies,
		TotalIssues:         len(acts),
		PublicPercentage:    st.PublicPercentage,
		PrivatePercentage:   st.PrivatePercentage,
		NativePercentage:    st.NativePercentage,
		NonNativePercentage: st.NonNativePercentage,
		EcologicalBenefits:  st.EcologicalBenefits,
		SpeciesComposition:  st.SpeciesComposition,
		Activities:          acts,
	}
	if st.MostCommonSpecies != nil {
		s.Statistics.MostCommonSpecies = *st.MostCommonSpecies
	}
	return s
}

// WithFilterResult stores filtered statistics and switches to filter mode,
// where only the returned tree ids are drawn.
func (s State) WithFilterResult(fs trees.FilterStatistics) State {
	s = s.WithStatistics(fs.Statistics)
	ids := roaring.New()
	for _, id := range fs.TreeIDs {
		if v, ok := bitmapID(id); ok {
			ids.Add(v)
		}
	}
	s.IncludedTreeIDs = ids
	s.FromFilter = true
	return s
}

// bitmapID maps a tree id into the uint32 domain of the id bitmap. Ids it
// cannot hold are reported as not ok rather than wrapped.
func bitmapID(id int) (uint32, bool) {
	if id < 0 || uint64(id) > math.MaxUint32 {
		return 0, false
	}
	return uint32(id), true
}

func (s State) ClearFilter() State {
	s.IncludedTreeIDs = nil
	s.FromFilter = false
	return s
}

func (s State) WithSelectedTree(id int, geomWKT string) State {
	s.SelectedTreeID = id
	s.SelectedGeomWKT = geomWKT
	return s
}

func (s State) WithRecord(rec trees.TreeRecord) State {
	s.CurrentRecord = &rec
	return s
}

func (s State) ClearRecord() State {
	s.CurrentRecord = nil
	return s
}

// recentActivities sorts newest first, keeps the first ten and formats dates
// as YYYY-MM-DD in UTC. Undated activities sort last.
func recentActivities(in []trees.Activity) []Activity {
	sorted := make([]trees.Activity, len(in))
	copy(sorted, in)
	sort.SliceStable(sorted, func(i, j int) bool {
		return dateOf(sorted[i]).After(dateOf(sorted[j]))
	})
	if len(sorted) > maxActivities {
		sorted = sorted[:maxActivities]
	}

	out := make([]Activity, 0, len(sorted))
	for _, a := range sorted {
		act := Activity{
			TreeID:      a.TreeID,
			TreeName:    a.TreeName,
			Type:        a.Type,
			Description: a.Description,
		}
		if a.Date != nil {
			act.Date = a.Date.UTC().Format("2006-01-02")
		}
		out = append(out, act)
	}
	return out
}

func dateOf(a trees.Activity) time.Time {
	if a.Date == nil {
		return time.Time{}
	}
	return *a.Date
}
