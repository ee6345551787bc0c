package ml

import (
	"sort"
)

// treeNode is one node of a CART regression tree. Leaves have nil children.
type treeNode struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Value     float64   `json:"value"`
	Left      *treeNode `json:"left,omitempty"`
	Right     *treeNode `json:"right,omitempty"`
}

func (n *treeNode) isLeaf() bool {
	return n.Left == nil && n.Right == nil
}

// predict walks the tree for a single feature vector
func (n *treeNode) predict(x []float64) float64 {
	node := n
	for !node.isLeaf() {
		if x[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Value
}

// treeParams bounds tree growth
type treeParams struct {
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
}

// split describes the best split found for a node
type split struct {
	feature   int
	threshold float64
	gain      float64
	left      []int
	right     []int
}

// buildTree grows a regression tree over the sample indices, fitting the
// targets with squared-error splits. Impurity reductions are accumulated
// into importances per feature.
func buildTree(x [][]float64, y []float64, indices []int, depth int, p treeParams, importances []float64) *treeNode {
	mean, sse := meanSSE(y, indices)

	if depth >= p.MaxDepth || len(indices) < p.MinSamplesSplit || sse == 0 {
		return &treeNode{Value: mean}
	}

	best := findBestSplit(x, y, indices, p)
	if best == nil {
		return &treeNode{Value: mean}
	}

	importances[best.feature] += best.gain

	return &treeNode{
		Feature:   best.feature,
		Threshold: best.threshold,
		Value:     mean,
		Left:      buildTree(x, y, best.left, depth+1, p, importances),
		Right:     buildTree(x, y, best.right, depth+1, p, importances),
	}
}

// findBestSplit scans every feature for the threshold with the largest
// squared-error reduction. Returns nil when no split satisfies the
// minimum leaf size.
func findBestSplit(x [][]float64, y []float64, indices []int, p treeParams) *split {
	_, parentSSE := meanSSE(y, indices)

	var best *split
	nFeatures := len(x[indices[0]])

	sorted := make([]int, len(indices))
	for feature := 0; feature < nFeatures; feature++ {
		copy(sorted, indices)
		f := feature
		sort.SliceStable(sorted, func(i, j int) bool {
			return x[sorted[i]][f] < x[sorted[j]][f]
		})

		// Running sums over the sorted order let each candidate threshold be
		// scored in constant time.
		var leftSum, leftSumSq float64
		totalSum, totalSumSq := sums(y, sorted)

		for i := 0; i < len(sorted)-1; i++ {
			v := y[sorted[i]]
			leftSum += v
			leftSumSq += v * v

			// Cannot split between equal feature values
			if x[sorted[i]][f] == x[sorted[i+1]][f] {
				continue
			}

			nLeft := i + 1
			nRight := len(sorted) - nLeft
			if nLeft < p.MinSamplesLeaf || nRight < p.MinSamplesLeaf {
				continue
			}

			leftSSE := leftSumSq - leftSum*leftSum/float64(nLeft)
			rightSum := totalSum - leftSum
			rightSSE := (totalSumSq - leftSumSq) - rightSum*rightSum/float64(nRight)

			gain := parentSSE - leftSSE - rightSSE
			if best == nil || gain > best.gain {
				threshold := (x[sorted[i]][f] + x[sorted[i+1]][f]) / 2
				best = &split{feature: f, threshold: threshold, gain: gain}
				best.left = append([]int(nil), sorted[:nLeft]...)
				best.right = append([]int(nil), sorted[nLeft:]...)
			}
		}
	}

	if best != nil && best.gain <= 0 {
		return nil
	}
	return best
}

func sums(y []float64, indices []int) (sum, sumSq float64) {
	for _, idx := range indices {
		v := y[idx]
		sum += v
		sumSq += v * v
	}
	return sum, sumSq
}

func meanSSE(y []float64, indices []int) (mean, sse float64) {
	if len(indices) == 0 {
		return 0, 0
	}
	sum, sumSq := sums(y, indices)
	n := float64(len(indices))
	mean = sum / n
	sse = sumSq - sum*sum/n
	if sse < 0 {
		sse = 0
	}
	return mean, sse
}
