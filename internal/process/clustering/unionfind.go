package clustering

// UnionFind is a disjoint-set over string keys with path compression and union by rank.
// Keys are registered on first use; insertion order is remembered so Groups is deterministic.
type UnionFind struct {
	parent map[string]string
	rank   map[string]int
	order  []string
}

// NewUnionFind creates a disjoint-set containing keys as singletons.
func NewUnionFind(keys ...string) *UnionFind {
	uf := &UnionFind{
		parent: make(map[string]string, len(keys)),
		rank:   make(map[string]int, len(keys)),
	}

	for _, k := range keys {
		uf.add(k)
	}

	return uf
}

func (uf *UnionFind) add(key string) {
	if _, ok := uf.parent[key]; ok {
		return
	}

	uf.parent[key] = key
	uf.rank[key] = 0
	uf.order = append(uf.order, key)
}

// Find returns the root of key's set.
func (uf *UnionFind) Find(key string) string {
	uf.add(key)

	root := key
	for uf.parent[root] != root {
		root = uf.parent[root]
	}

	for key != root {
		next := uf.parent[key]
		uf.parent[key] = root
		key = next
	}

	return root
}

// Union merges the sets containing a and b.
func (uf *UnionFind) Union(a, b string) {
	rootA, rootB := uf.Find(a), uf.Find(b)
	if rootA == rootB {
		return
	}

	switch {
	case uf.rank[rootA] < uf.rank[rootB]:
		uf.parent[rootA] = rootB
	case uf.rank[rootA] > uf.rank[rootB]:
		uf.parent[rootB] = rootA
	default:
		uf.parent[rootB] = rootA
		uf.rank[rootA]++
	}
}

// Connected reports whether a and b share a set.
func (uf *UnionFind) Connected(a, b string) bool {
	return uf.Find(a) == uf.Find(b)
}

// Group is one set of the partition.
type Group struct {
	Root    string
	Members []string
}

// Groups returns the partition. Groups are ordered by their first registered
// member and members keep registration order.
func (uf *UnionFind) Groups() []Group {
	index := make(map[string]int)
	groups := make([]Group, 0)

	for _, key := range uf.order {
		root := uf.Find(key)

		i, ok := index[root]
		if !ok {
			i = len(groups)
			index[root] = i
			groups = append(groups, Group{Root: root})
		}

		groups[i].Members = append(groups[i].Members, key)
	}

	return groups
}
