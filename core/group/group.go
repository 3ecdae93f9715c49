// core/group/group.go
package group

import (
	"math"
	"sort"

	"mzflow-core/align"
)

// Config controls relationship grouping over a consensus table.
type Config struct {
	PPRThreshold    float64  // min peak-peak correlation for an edge
	MZTolerance     float64  // m/z match window for isotope/adduct/fragment shifts
	RTTolerance     float64  // co-elution window
	MaxIsotopeRank  int      // isotope ranks searched (1..k)
	Adducts         []Adduct // mass-shift table for the run's ion mode
	MinCoOccurrence int      // min co-present samples for a correlation (default 3)
}

// Roles, in priority order. A feature holds at most one.
const (
	RoleMonoisotopic = "monoisotopic"
	RoleIsotope      = "isotope"
	RoleAdduct       = "adduct"
	RoleFragment     = "fragment"
)

// Member is one feature's place in a relationship group.
type Member struct {
	Feature int // feature ID in the table
	Role    string
	Rank    int // isotope rank; 0 for non-isotope roles
}

// Group is a set of consensus features sharing one inferred chemical
// origin. Exactly one member is the representative.
type Group struct {
	ID             int
	Representative int // feature ID
	Members        []Member
}

type edge struct {
	a, b int // feature indices, a < mz of b's relation anchor
	kind string
	rank int
}

// Run partitions the table into relationship groups and labels every
// feature's group/role in place. Features with no related partner become
// singleton groups with themselves as representative.
func Run(table *align.Table, cfg Config) []Group {
	if cfg.MinCoOccurrence <= 0 {
		cfg.MinCoOccurrence = 3
	}
	if cfg.MaxIsotopeRank <= 0 {
		cfg.MaxIsotopeRank = 4
	}

	n := len(table.Features)
	uf := newUnionFind(n)
	edges := findEdges(table, cfg, uf)

	// components → groups
	comp := map[int][]int{}
	for i := 0; i < n; i++ {
		root := uf.find(i)
		comp[root] = append(comp[root], i)
	}
	roots := make([]int, 0, len(comp))
	for r := range comp {
		roots = append(roots, r)
	}
	sort.Ints(roots)

	roleOf := make([]string, n)
	rankOf := make([]int, n)
	adductOf := make([]string, n)
	for _, e := range edges {
		// priority: isotope > adduct > fragment; first matching label wins
		apply := func(i int, role string, rank int, adduct string) {
			if roleOf[i] == "" || rolePriority(role) < rolePriority(roleOf[i]) {
				roleOf[i] = role
				rankOf[i] = rank
				adductOf[i] = adduct
			}
		}
		switch e.kind {
		case RoleIsotope:
			apply(e.a, RoleMonoisotopic, 0, "")
			apply(e.b, RoleIsotope, e.rank, "")
		case RoleAdduct:
			apply(e.b, RoleAdduct, 0, adductName(cfg.Adducts, e.rank))
		case RoleFragment:
			apply(e.b, RoleFragment, 0, "")
		}
	}

	var groups []Group
	for gi, root := range roots {
		members := comp[root]
		g := Group{ID: gi}
		rep := -1
		for _, fi := range members {
			role := roleOf[fi]
			if role == RoleMonoisotopic && rep < 0 {
				rep = fi
			}
			g.Members = append(g.Members, Member{Feature: fi, Role: role, Rank: rankOf[fi]})
		}
		if rep < 0 {
			// no isotope anchor: highest intensity wins, lower ID on ties
			best := -1.0
			for _, fi := range members {
				if v := table.Features[fi].MaxIntensity(); v > best {
					best = v
					rep = fi
				}
			}
		}
		g.Representative = rep

		for mi := range g.Members {
			fi := g.Members[mi].Feature
			f := table.Features[fi]
			f.GroupID = gi
			f.Role = g.Members[mi].Role
			f.IsotopeRank = g.Members[mi].Rank
			f.AdductType = adductOf[fi]
			if fi == rep && f.Role == "" && len(members) > 1 {
				f.Role = RoleMonoisotopic
				g.Members[mi].Role = RoleMonoisotopic
			}
		}
		groups = append(groups, g)
	}
	return groups
}

func rolePriority(role string) int {
	switch role {
	case RoleMonoisotopic:
		return 0
	case RoleIsotope:
		return 1
	case RoleAdduct:
		return 2
	case RoleFragment:
		return 3
	}
	return 4
}

func adductName(table []Adduct, idx int) string {
	if idx >= 0 && idx < len(table) {
		return table[idx].Name
	}
	return ""
}

// findEdges builds the candidate relation edges. Features are already
// (m/z, rt)-sorted, so shift lookups ride a sliding window.
func findEdges(table *align.Table, cfg Config, uf *unionFind) []edge {
	feats := table.Features
	var edges []edge

	lookup := func(mz, rt float64) []int {
		lo := sort.Search(len(feats), func(i int) bool { return feats[i].MZ >= mz-cfg.MZTolerance })
		var out []int
		for j := lo; j < len(feats) && feats[j].MZ <= mz+cfg.MZTolerance; j++ {
			if math.Abs(feats[j].RT-rt) <= cfg.RTTolerance {
				out = append(out, j)
			}
		}
		return out
	}

	claimed := make([]bool, len(feats)) // already bound as a non-anchor partner

	// isotopes first: anchor must not itself be claimed as an isotope
	for i, f := range feats {
		if claimed[i] {
			continue
		}
		lastHit := f.MZ
		for rank := 1; rank <= cfg.MaxIsotopeRank; rank++ {
			target := f.MZ + IsotopeSpacing*float64(rank)
			// abandon the chain once a rank found no support
			if target-lastHit > IsotopeSpacing+cfg.MZTolerance+1e-9 {
				break
			}
			for _, j := range lookup(target, f.RT) {
				if j == i || claimed[j] {
					continue
				}
				// isotopes cannot exceed 3x the monoisotopic height
				if feats[j].MaxIntensity() > 3*f.MaxIntensity() {
					continue
				}
				if !correlated(feats[i], feats[j], cfg) {
					continue
				}
				claimed[j] = true
				uf.union(i, j)
				edges = append(edges, edge{a: i, b: j, kind: RoleIsotope, rank: rank})
				lastHit = target
			}
		}
	}

	// adducts among unclaimed features
	for i, f := range feats {
		if claimed[i] {
			continue
		}
		for ai, ad := range cfg.Adducts {
			for _, j := range lookup(f.MZ+ad.DeltaMZ, f.RT) {
				if j == i || claimed[j] {
					continue
				}
				if !correlated(feats[i], feats[j], cfg) {
					continue
				}
				claimed[j] = true
				uf.union(i, j)
				edges = append(edges, edge{a: i, b: j, kind: RoleAdduct, rank: ai})
			}
		}
	}

	// in-source fragments: the parent's MS2 must contain the child's m/z,
	// the child is lighter and weaker, and both co-elute.
	for i, f := range feats {
		if claimed[i] {
			continue
		}
		ms2 := f.BestMS2()
		if ms2 == nil {
			continue
		}
		for _, p := range ms2.Peaks {
			if p.MZ >= f.MZ {
				continue
			}
			for _, j := range lookup(p.MZ, f.RT) {
				if j == i || claimed[j] {
					continue
				}
				if feats[j].MaxIntensity() > f.MaxIntensity() {
					continue
				}
				if !correlated(feats[i], feats[j], cfg) {
					continue
				}
				claimed[j] = true
				uf.union(i, j)
				edges = append(edges, edge{a: i, b: j, kind: RoleFragment})
			}
		}
	}

	return edges
}

// correlated computes the peak-peak correlation of two features over the
// samples where both are present. Fewer than MinCoOccurrence co-present
// samples is undetermined: no edge.
func correlated(a, b *align.Feature, cfg Config) bool {
	var x, y []float64
	for si := range a.Entries {
		if a.Entries[si].ROI != nil && b.Entries[si].ROI != nil {
			x = append(x, a.Entries[si].Intensity)
			y = append(y, b.Entries[si].Intensity)
		}
	}
	if len(x) < cfg.MinCoOccurrence {
		return false
	}
	return pearson(x, y) >= cfg.PPRThreshold
}

func pearson(x, y []float64) float64 {
	n := float64(len(x))
	var sx, sy float64
	for i := range x {
		sx += x[i]
		sy += y[i]
	}
	mx, my := sx/n, sy/n
	var num, dx, dy float64
	for i := range x {
		a, b := x[i]-mx, y[i]-my
		num += a * b
		dx += a * a
		dy += b * b
	}
	if dx == 0 || dy == 0 {
		return 0
	}
	return num / math.Sqrt(dx*dy)
}

// unionFind over feature indices; edge labels live in a separate table.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{parent: p, rank: make([]int, n)}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if u.rank[ra] < u.rank[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	if u.rank[ra] == u.rank[rb] {
		u.rank[ra]++
	}
}
