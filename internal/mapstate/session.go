package mapstate

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/futaoo/INTERVAL/internal/style"
	"github.com/futaoo/INTERVAL/internal/trees"
)

// ErrStale is returned when a newer request of the same intent superseded
// the response, which was discarded.
var ErrStale = errors.New("response superseded by a newer request")

// API is the subset of the REST client a session needs.
type API interface {
	WorldStatistics(ctx context.Context) (trees.Statistics, error)
	Statistics(ctx context.Context, divisionID int) (trees.Statistics, error)
	FilterStatistics(ctx context.Context, req trees.FilterRequest) (trees.FilterStatistics, error)
	Tree(ctx context.Context, treeID int) (trees.TreeDetail, error)
	StyleCombinations(ctx context.Context) ([]trees.StyleCombination, error)
}

// Feature is the part of a tree map feature that styling depends on.
type Feature struct {
	TreeID         int
	SpeciesID      int
	SpreadCategory string
	IsPublic       bool
}

func (f Feature) Key() style.Key {
	return style.NewKey(f.SpeciesID, f.SpreadCategory, f.IsPublic)
}

// Session ties the API, the state, request ordering and the style cache
// together for one map.
type Session struct {
	api    API
	seq    *Sequencer
	mu     sync.Mutex
	state  State
	styles *style.Cache
}

func NewSession(api API, styles *style.Cache) *Session {
	if styles == nil {
		styles = style.NewCache(nil)
	}
	return &Session{api: api, seq: NewSequencer(), styles: styles}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Update applies a reducer to the current state.
func (s *Session) Update(fn func(State) State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = fn(s.state)
}

// commit applies fn only while tok is still the latest of its intent.
func (s *Session) commit(tok Token, fn func(State) State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.seq.Current(tok) {
		return ErrStale
	}
	s.state = fn(s.state)
	return nil
}

// InitStyles prefetches a style for every combination the server knows about.
func (s *Session) InitStyles(ctx context.Context) (int, error) {
	rctx, tok := s.seq.Begin(ctx, IntentStyles)
	defer s.seq.Done(tok)

	combos, err := s.api.StyleCombinations(rctx)
	if err != nil {
		log.Printf("[mapstate] style combinations: %v", err)
		return 0, err
	}

	keys := make([]style.Key, 0, len(combos))
	for _, c := range combos {
		f := Feature{SpreadCategory: c.SpreadCategory}
		if c.SpeciesID != nil {
			f.SpeciesID = *c.SpeciesID
		}
		f.IsPublic = c.IsPublic != nil && *c.IsPublic
		keys = append(keys, f.Key())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.seq.Current(tok) {
		return 0, ErrStale
	}
	s.styles.Prefetch(keys)
	return s.styles.Len(), nil
}

// LoadDivision loads statistics for a division, or every tree when
// divisionID is nil, and leaves filter mode.
func (s *Session) LoadDivision(ctx context.Context, divisionID *int) error {
	rctx, tok := s.seq.Begin(ctx, IntentStatistics)
	defer s.seq.Done(tok)

	var (
		st  trees.Statistics
		err error
	)
	if divisionID == nil {
		st, err = s.api.WorldStatistics(rctx)
	} else {
		st, err = s.api.Statistics(rctx, *divisionID)
	}
	if err != nil {
		if !s.seq.Current(tok) {
			return ErrStale
		}
		return err
	}
	return s.commit(tok, func(cur State) State {
		return cur.ClearFilter().WithStatistics(st)
	})
}

// ApplyFilter runs a filter and, if still current, enters filter mode.
func (s *Session) ApplyFilter(ctx context.Context, req trees.FilterRequest) error {
	rctx, tok := s.seq.Begin(ctx, IntentStatistics)
	defer s.seq.Done(tok)

	fs, err := s.api.FilterStatistics(rctx, req)
	if err != nil {
		if !s.seq.Current(tok) {
			return ErrStale
		}
		return err
	}
	return s.commit(tok, func(cur State) State {
		return cur.WithFilterResult(fs)
	})
}

// SelectTree loads a tree and marks it selected.
func (s *Session) SelectTree(ctx context.Context, treeID int) (trees.TreeDetail, error) {
	rctx, tok := s.seq.Begin(ctx, IntentTree)
	defer s.seq.Done(tok)

	detail, err := s.api.Tree(rctx, treeID)
	if err != nil {
		if !s.seq.Current(tok) {
			return trees.TreeDetail{}, ErrStale
		}
		return trees.TreeDetail{}, err
	}
	if err := s.commit(tok, func(cur State) State {
		return cur.WithSelectedTree(detail.TreeID, detail.GeomWKT)
	}); err != nil {
		return trees.TreeDetail{}, err
	}
	return detail, nil
}

// FeatureStyle picks the style of one tree feature. The selected tree is
// highlighted; in filter mode features outside the result are hidden
// (ok=false); otherwise the cached style or the fallback is used.
func (s *Session) FeatureStyle(f Feature) (st *style.Style, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := f.Key()
	switch {
	case s.state.SelectedTreeID != 0 && f.TreeID == s.state.SelectedTreeID:
		return s.styles.Highlight(k), true
	case s.state.FromFilter:
		id, ok := bitmapID(f.TreeID)
		if !ok {
			return nil, false
		}
		return s.styles.FilterHighlight(k, s.state.IncludedTreeIDs, id)
	default:
		return s.styles.Lookup(k), true
	}
}
