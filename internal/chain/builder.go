package chain

import (
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/inodb/vibe-sv/internal/cluster"
	"github.com/inodb/vibe-sv/internal/config"
	"github.com/inodb/vibe-sv/internal/sv"
)

// Result is the chaining outcome of one cluster.
type Result struct {
	ClusterID   int
	Status      Status
	Chains      []*Chain
	Unchained   []int
	Partial     []int // SVs with copies left out of every chain
	ComplexDups []ComplexDup
	Pairs       int
	Links       int
	Err         error // why the cluster is invalid
}

// Builder reconstructs chains for clusters of one sample.
type Builder struct {
	params   config.Params
	index    *sv.Index
	logger   *zap.Logger
	selector Selector
}

// NewBuilder creates a chain builder. The index holds every non-excluded
// breakend of the sample and is used for copy number checks.
func NewBuilder(p config.Params, ix *sv.Index) *Builder {
	return &Builder{
		params:   p,
		index:    ix,
		logger:   zap.NewNop(),
		selector: SelectNextLink,
	}
}

// SetLogger sets the logger for link decisions.
func (b *Builder) SetLogger(l *zap.Logger) {
	b.logger = l
}

// Build chains one cluster. It never fails; a cluster whose chaining breaks
// down is returned with StatusInvalid and no chains.
func (b *Builder) Build(c *cluster.Cluster) *Result {
	st := NewState(c, b.params, b.index)
	log := b.logger.With(zap.Int("cluster", c.ID))
	log.Debug("possible links",
		zap.Int("pairs", len(st.Pairs)),
		zap.Int("complexDups", len(st.ComplexDups)))

	st.Status = StatusAssembling
	if err := b.assemble(st, log); err != nil {
		return b.invalid(st, log, err)
	}
	if err := b.tandem(st, log); err != nil {
		return b.invalid(st, log, err)
	}

	st.Status = StatusExtending
	if err := b.extend(st, log); err != nil {
		return b.invalid(st, log, err)
	}

	b.closeLoop(st, log)
	st.Chains = Dedup(st.Chains)

	st.Status = StatusComplete
	if len(st.Chains) > 0 && st.Unplaced() == 0 {
		for _, ch := range st.Chains {
			if ch.Closed {
				st.Status = StatusClosed
			}
		}
	}

	partial := st.Partial()
	if len(partial) > 0 {
		log.Debug("SV copies left out of every chain", zap.Ints("svs", partial))
	}
	return &Result{
		ClusterID:   c.ID,
		Status:      st.Status,
		Chains:      st.Chains,
		Unchained:   st.Unchained(),
		Partial:     partial,
		ComplexDups: st.ComplexDups,
		Pairs:       len(st.Pairs),
		Links:       int(st.nextLink),
	}
}

func (b *Builder) invalid(st *State, log *zap.Logger, err error) *Result {
	st.Status = StatusInvalid
	log.Warn("cluster chaining abandoned", zap.Error(err))
	return &Result{
		ClusterID:   st.Cluster.ID,
		Status:      StatusInvalid,
		ComplexDups: st.ComplexDups,
		Pairs:       len(st.Pairs),
		Links:       int(st.nextLink),
		Err:         err,
	}
}

// assemble commits pairs observed directly by assembly. Pairs whose breakends
// have no other option go first; each is repeated while copies remain.
func (b *Builder) assemble(st *State, log *zap.Logger) error {
	var assembled []PairID
	for i := range st.Pairs {
		if st.Pairs[i].Assembled {
			assembled = append(assembled, st.Pairs[i].ID)
		}
	}
	single := func(id PairID) bool {
		p := st.Pair(id)
		return len(st.PairsOf(p.Lower)) == 1 && len(st.PairsOf(p.Upper)) == 1
	}
	sort.SliceStable(assembled, func(i, j int) bool {
		si, sj := single(assembled[i]), single(assembled[j])
		if si != sj {
			return si
		}
		return st.less(assembled[i], assembled[j])
	})

	for _, id := range assembled {
		p := st.Pair(id)
		repeats := min(st.Allocator.Copies(p.Lower), st.Allocator.Copies(p.Upper))
		for i := 0; i < repeats; i++ {
			link, err := ApplyLink(st, Candidate{Pair: id, Rule: RuleAssembly})
			if errors.Is(err, ErrDuplicateLink) {
				return err
			}
			if err != nil {
				log.Debug("assembled link not committed", zap.Error(err))
				break
			}
			logLink(log, link)
		}
	}
	return nil
}

// tandem joins the copies of each replicated SV whose breakends face each
// other into one run, so that flanking links attach to its outer copies.
func (b *Builder) tandem(st *State, log *zap.Logger) error {
	for i := range st.Pairs {
		p := &st.Pairs[i]
		if !p.Tandem() {
			continue
		}
		for st.Uses(p.ID) < p.RepeatCount {
			link, err := ApplyLink(st, Candidate{Pair: p.ID, Rule: RuleTandem})
			if errors.Is(err, ErrDuplicateLink) {
				return err
			}
			if err != nil {
				log.Debug("tandem link not committed", zap.Int("sv", p.Lower.SV.ID), zap.Error(err))
				break
			}
			logLink(log, link)
		}
	}
	return nil
}

// extend commits selected links until none remain. Pairs that fail are not
// proposed again; too many failures in a row abandon the cluster.
func (b *Builder) extend(st *State, log *zap.Logger) error {
	noProgress := 0
	for {
		cand, ok := b.selector(st)
		if !ok {
			return nil
		}
		link, err := ApplyLink(st, cand)
		if err == nil {
			noProgress = 0
			logLink(log, link)
			continue
		}
		if errors.Is(err, ErrDuplicateLink) {
			return err
		}
		log.Debug("link rejected", zap.Stringer("rule", cand.Rule), zap.Error(err))
		st.Reject(cand.Pair)
		noProgress++
		if noProgress > st.Params.MaxNoProgressIterations {
			return &NoProgressError{Iterations: noProgress, Last: err}
		}
	}
}

// closeLoop joins the open ends of the only chain once it holds every copy.
// A cluster of a single SV copy is first placed on its own.
func (b *Builder) closeLoop(st *State, log *zap.Logger) {
	if len(st.Chains) == 0 && st.Unplaced() == 1 {
		for _, v := range st.Cluster.SVs {
			if v.Excluded != "" || v.IsSingle() {
				continue
			}
			c := &Chain{
				ID:     st.nextChain,
				Ploidy: st.Allocator.UnitPloidy(v.ID),
				Items:  []Item{{SV: v, Entry: v.Start, Exit: v.End}},
			}
			if st.close(c) {
				st.nextChain++
				st.Chains = append(st.Chains, c)
				st.place(c.Items[0], c)
				log.Debug("single SV closed into loop", zap.Int("sv", v.ID))
			}
		}
		return
	}
	if len(st.Chains) != 1 || st.Unplaced() > 0 {
		return
	}
	if c := st.Chains[0]; st.close(c) {
		log.Debug("chain closed", zap.Int("chain", c.ID), zap.Int("links", len(c.Links)))
	}
}

func logLink(log *zap.Logger, l Link) {
	log.Debug("link committed",
		zap.Int("link", int(l.ID)),
		zap.Stringer("rule", l.Rule),
		zap.Stringer("first", l.First),
		zap.Stringer("second", l.Second))
}
