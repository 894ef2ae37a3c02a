package abstractcluster

import (
	"fmt"
	"math"
	"sort"
)

// Noise is the label assigned to points outside every cluster.
const Noise = -1

// DensityClusterer labels points from a precomputed distance matrix.
type DensityClusterer interface {
	Cluster(dm *DistanceMatrix, minClusterSize, minSamples int, epsilon float64) ([]int, error)
}

// HDBSCAN is a hierarchical density clusterer working on precomputed
// distances. Clusters are chosen by excess of mass and optionally merged
// below a distance threshold epsilon.
type HDBSCAN struct{}

type mstEdge struct {
	a, b int
	w    float64
}

type linkage struct {
	left, right int
	dist        float64
	size        int
}

type condensedEntry struct {
	parent, child int
	lambda        float64
	size          int
}

// Cluster implements DensityClusterer. Labels are 0-based in the order of
// cluster discovery; Noise marks outliers.
func (HDBSCAN) Cluster(dm *DistanceMatrix, minClusterSize, minSamples int, epsilon float64) ([]int, error) {
	if minClusterSize < 2 {
		return nil, fmt.Errorf("min cluster size %d is below 2", minClusterSize)
	}
	if minSamples < 1 {
		return nil, fmt.Errorf("min samples %d is below 1", minSamples)
	}

	n := dm.Len()
	labels := make([]int, n)
	for i := range labels {
		labels[i] = Noise
	}
	if n < 2 {
		return labels, nil
	}

	core := coreDistances(dm, minSamples)
	edges := primMST(dm, core)
	tree := singleLinkage(edges, n)
	condensed := condenseTree(tree, n, minClusterSize)
	selected := selectClusters(condensed, n, epsilon)
	return labelPoints(condensed, n, selected), nil
}

// coreDistances returns the distance to the minSamples-th nearest neighbour,
// counting the point itself at position zero.
func coreDistances(dm *DistanceMatrix, minSamples int) []float64 {
	n := dm.Len()
	k := min(minSamples, n-1)
	core := make([]float64, n)
	row := make([]float64, n)
	for i := 0; i < n; i++ {
		row = dm.Row(i, row)
		sort.Float64s(row)
		core[i] = row[k]
	}
	return core
}

// primMST builds a minimum spanning tree over mutual reachability distances.
func primMST(dm *DistanceMatrix, core []float64) []mstEdge {
	n := len(core)
	inTree := make([]bool, n)
	best := make([]float64, n)
	from := make([]int, n)
	for i := range best {
		best[i] = math.Inf(1)
	}

	edges := make([]mstEdge, 0, n-1)
	current := 0
	inTree[0] = true
	for len(edges) < n-1 {
		next := -1
		for j := 0; j < n; j++ {
			if inTree[j] {
				continue
			}
			mr := math.Max(dm.At(current, j), math.Max(core[current], core[j]))
			if mr < best[j] {
				best[j] = mr
				from[j] = current
			}
			if next < 0 || best[j] < best[next] {
				next = j
			}
		}
		inTree[next] = true
		edges = append(edges, mstEdge{a: from[next], b: next, w: best[next]})
		current = next
	}
	return edges
}

// singleLinkage turns sorted MST edges into a dendrogram. Leaves are 0..n-1
// and merge k creates node n+k.
func singleLinkage(edges []mstEdge, n int) []linkage {
	sort.SliceStable(edges, func(i, j int) bool { return edges[i].w < edges[j].w })

	parent := make([]int, 2*n-1)
	size := make([]int, 2*n-1)
	for i := range parent {
		parent[i] = i
		if i < n {
			size[i] = 1
		}
	}
	find := func(x int) int {
		root := x
		for parent[root] != root {
			root = parent[root]
		}
		for parent[x] != root {
			parent[x], x = root, parent[x]
		}
		return root
	}

	tree := make([]linkage, 0, n-1)
	for k, e := range edges {
		ra, rb := find(e.a), find(e.b)
		node := n + k
		size[node] = size[ra] + size[rb]
		parent[ra] = node
		parent[rb] = node
		tree = append(tree, linkage{left: ra, right: rb, dist: e.w, size: size[node]})
	}
	return tree
}

// condenseTree walks the dendrogram from the root and keeps only splits
// where both sides hold at least minClusterSize points. Condensed cluster
// ids start at n, which is the root.
func condenseTree(tree []linkage, n, minClusterSize int) []condensedEntry {
	root := 2*n - 2
	nodeSize := func(node int) int {
		if node < n {
			return 1
		}
		return tree[node-n].size
	}
	subtree := func(node int) []int {
		out := []int{node}
		for i := 0; i < len(out); i++ {
			if v := out[i]; v >= n {
				out = append(out, tree[v-n].left, tree[v-n].right)
			}
		}
		return out
	}

	relabel := make([]int, 2*n-1)
	relabel[root] = n
	nextLabel := n + 1
	ignore := make([]bool, 2*n-1)
	var entries []condensedEntry

	dropPoints := func(parent, node int, lambda float64) {
		for _, sub := range subtree(node) {
			if sub < n {
				entries = append(entries, condensedEntry{parent: parent, child: sub, lambda: lambda, size: 1})
			}
			ignore[sub] = true
		}
	}

	for _, node := range subtree(root) {
		if ignore[node] || node < n {
			continue
		}
		l := tree[node-n]
		lambda := 1 / math.Max(l.dist, 1e-12)
		leftCount, rightCount := nodeSize(l.left), nodeSize(l.right)
		parent := relabel[node]

		switch {
		case leftCount >= minClusterSize && rightCount >= minClusterSize:
			relabel[l.left] = nextLabel
			nextLabel++
			entries = append(entries, condensedEntry{parent: parent, child: relabel[l.left], lambda: lambda, size: leftCount})
			relabel[l.right] = nextLabel
			nextLabel++
			entries = append(entries, condensedEntry{parent: parent, child: relabel[l.right], lambda: lambda, size: rightCount})
		case leftCount < minClusterSize && rightCount < minClusterSize:
			dropPoints(parent, l.left, lambda)
			dropPoints(parent, l.right, lambda)
		case leftCount < minClusterSize:
			relabel[l.right] = parent
			dropPoints(parent, l.left, lambda)
		default:
			relabel[l.left] = parent
			dropPoints(parent, l.right, lambda)
		}
	}
	return entries
}

// clusterTree is the cluster-to-cluster part of a condensed tree.
type clusterTree struct {
	n        int
	count    int
	birth    []float64
	parent   []int
	children [][]int
}

func newClusterTree(condensed []condensedEntry, n int) *clusterTree {
	count := 1
	for _, e := range condensed {
		if e.child >= n && e.child-n+1 > count {
			count = e.child - n + 1
		}
	}
	ct := &clusterTree{
		n:        n,
		count:    count,
		birth:    make([]float64, count),
		parent:   make([]int, count),
		children: make([][]int, count),
	}
	ct.parent[0] = -1
	for _, e := range condensed {
		if e.child < n {
			continue
		}
		c := e.child - n
		ct.birth[c] = e.lambda
		ct.parent[c] = e.parent - n
		ct.children[e.parent-n] = append(ct.children[e.parent-n], c)
	}
	return ct
}

// descendants lists every cluster below c, excluding c.
func (ct *clusterTree) descendants(c int) []int {
	var out []int
	queue := append([]int(nil), ct.children[c]...)
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		out = append(out, v)
		queue = append(queue, ct.children[v]...)
	}
	return out
}

// selectClusters picks clusters by excess of mass. The root is never
// selected. Returned ids are relative to n.
func selectClusters(condensed []condensedEntry, n int, epsilon float64) []int {
	ct := newClusterTree(condensed, n)

	stability := make([]float64, ct.count)
	for _, e := range condensed {
		p := e.parent - n
		stability[p] += (e.lambda - ct.birth[p]) * float64(e.size)
	}

	isCluster := make([]bool, ct.count)
	for c := 1; c < ct.count; c++ {
		isCluster[c] = true
	}
	// Children always carry larger ids than their parents.
	for c := ct.count - 1; c >= 1; c-- {
		var childStability float64
		for _, ch := range ct.children[c] {
			childStability += stability[ch]
		}
		if childStability > stability[c] {
			isCluster[c] = false
			stability[c] = childStability
		} else {
			for _, d := range ct.descendants(c) {
				isCluster[d] = false
			}
		}
	}

	var selected []int
	for c := 1; c < ct.count; c++ {
		if isCluster[c] {
			selected = append(selected, c)
		}
	}
	if epsilon > 0 && len(selected) > 0 {
		selected = epsilonSearch(ct, selected, epsilon)
	}
	return selected
}

// epsilonSearch replaces selected clusters born below epsilon with their
// closest ancestor born above it.
func epsilonSearch(ct *clusterTree, leaves []int, epsilon float64) []int {
	chosen := make(map[int]bool)
	processed := make(map[int]bool)
	for _, leaf := range leaves {
		if 1/ct.birth[leaf] < epsilon {
			if processed[leaf] {
				continue
			}
			up := traverseUpwards(ct, leaf, epsilon)
			chosen[up] = true
			for _, d := range ct.descendants(up) {
				processed[d] = true
			}
		} else {
			chosen[leaf] = true
		}
	}
	out := make([]int, 0, len(chosen))
	for c := range chosen {
		out = append(out, c)
	}
	sort.Ints(out)
	return out
}

func traverseUpwards(ct *clusterTree, leaf int, epsilon float64) int {
	for {
		parent := ct.parent[leaf]
		if parent == 0 {
			return leaf
		}
		if 1/ct.birth[parent] > epsilon {
			return parent
		}
		leaf = parent
	}
}

// labelPoints assigns each point the index of the selected cluster it
// falls under, or Noise.
func labelPoints(condensed []condensedEntry, n int, selected []int) []int {
	ct := newClusterTree(condensed, n)
	labelOf := make(map[int]int, len(selected))
	for i, c := range selected {
		labelOf[c] = i
	}

	labels := make([]int, n)
	for i := range labels {
		labels[i] = Noise
	}
	for _, e := range condensed {
		if e.child >= n {
			continue
		}
		for c := e.parent - n; c > 0; c = ct.parent[c] {
			if l, ok := labelOf[c]; ok {
				labels[e.child] = l
				break
			}
		}
	}
	return labels
}
