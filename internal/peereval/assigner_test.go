package peereval_test

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/peerval-go-api/internal/peereval"
)

func TestAssignThreeSubmittersTwoEach(t *testing.T) {
	submitters := []uint{1, 2, 3}

	pairs, err := peereval.Assign(submitters, 2, nil)
	require.NoError(t, err)
	require.Len(t, pairs, 6)

	requireValidPairs(t, pairs, submitters)
	for id, count := range countByEvaluator(pairs) {
		require.Equalf(t, 2, count, "evaluator %d", id)
	}
}

func TestAssignFourSubmittersOneEach(t *testing.T) {
	submitters := []uint{10, 20, 30, 40}

	pairs, err := peereval.Assign(submitters, 1, nil)
	require.NoError(t, err)
	require.Len(t, pairs, 4)

	requireValidPairs(t, pairs, submitters)
	for id, count := range countByEvaluator(pairs) {
		require.Equalf(t, 1, count, "evaluator %d", id)
	}
}

func TestAssignNeverReproducesExistingPairs(t *testing.T) {
	submitters := []uint{1, 2, 3}
	existing := []peereval.Pair{{Evaluator: 1, Evaluatee: 2}}

	for i := 0; i < 50; i++ {
		pairs, err := peereval.Assign(submitters, 2, existing)
		require.NoError(t, err)
		require.NotContains(t, pairs, peereval.Pair{Evaluator: 1, Evaluatee: 2})

		counts := countByEvaluator(pairs)
		require.LessOrEqual(t, counts[1], 1, "evaluator 1 already holds one pair")
		requireValidPairs(t, append(append([]peereval.Pair{}, existing...), pairs...), submitters)
	}
}

func TestAssignZeroKYieldsNothing(t *testing.T) {
	pairs, err := peereval.Assign([]uint{1, 2, 3}, 0, nil)
	require.NoError(t, err)
	require.Empty(t, pairs)
}

func TestAssignNegativeKRejected(t *testing.T) {
	pairs, err := peereval.Assign([]uint{1, 2, 3}, -1, nil)
	require.ErrorIs(t, err, peereval.ErrNegativeK)
	require.Nil(t, pairs)
}

func TestAssignTooFewSubmitters(t *testing.T) {
	for _, submitters := range [][]uint{nil, {}, {7}} {
		pairs, err := peereval.Assign(submitters, 3, nil)
		require.NoError(t, err)
		require.Empty(t, pairs)
	}
}

func TestAssignKExceedsPool(t *testing.T) {
	submitters := []uint{1, 2, 3}

	pairs, err := peereval.Assign(submitters, 10, nil)
	require.NoError(t, err)
	require.Len(t, pairs, 6, "each evaluator capped at the two available peers")

	requireValidPairs(t, pairs, submitters)
}

func TestAssignDeduplicatesSubmitters(t *testing.T) {
	pairs, err := peereval.Assign([]uint{1, 2, 2, 3, 1}, 1, nil)
	require.NoError(t, err)
	require.Len(t, pairs, 3)
	requireValidPairs(t, pairs, []uint{1, 2, 3})
}

func TestAssignEvaluatorAtCapLeftAlone(t *testing.T) {
	submitters := []uint{1, 2, 3, 4}
	existing := []peereval.Pair{
		{Evaluator: 1, Evaluatee: 2},
		{Evaluator: 1, Evaluatee: 3},
	}

	pairs, err := peereval.Assign(submitters, 2, existing)
	require.NoError(t, err)
	for _, p := range pairs {
		require.NotEqual(t, uint(1), p.Evaluator, "evaluator 1 already holds k pairs")
	}
}

func TestAssignTopsUpAfterLateSubmission(t *testing.T) {
	first, err := peereval.Assign([]uint{1, 2}, 2, nil)
	require.NoError(t, err)
	require.Len(t, first, 2, "only one peer available per evaluator")

	second, err := peereval.Assign([]uint{1, 2, 3}, 2, first)
	require.NoError(t, err)

	all := append(append([]peereval.Pair{}, first...), second...)
	requireValidPairs(t, all, []uint{1, 2, 3})
	counts := countByEvaluator(all)
	require.Equal(t, 2, counts[1])
	require.Equal(t, 2, counts[2])
	require.Equal(t, 2, counts[3], "late submitter receives a full load")
}

func TestAssignShufflesSelection(t *testing.T) {
	submitters := []uint{1, 2, 3, 4, 5, 6}

	outcomes := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		pairs, err := peereval.Assign(submitters, 1, nil)
		require.NoError(t, err)
		outcomes[fingerprint(pairs)] = struct{}{}
	}
	require.Greater(t, len(outcomes), 1, "selection should vary between runs")
}

// requireValidPairs checks the structural invariants shared by every
// scenario: no self-evaluation, no duplicate pair, and both sides of each
// pair drawn from the submitter set.
func requireValidPairs(t *testing.T, pairs []peereval.Pair, submitters []uint) {
	t.Helper()

	members := make(map[uint]struct{}, len(submitters))
	for _, id := range submitters {
		members[id] = struct{}{}
	}

	seen := make(map[peereval.Pair]struct{}, len(pairs))
	for _, p := range pairs {
		require.NotEqual(t, p.Evaluator, p.Evaluatee, "self-evaluation")
		require.Contains(t, members, p.Evaluator)
		require.Contains(t, members, p.Evaluatee)
		_, dup := seen[p]
		require.Falsef(t, dup, "duplicate pair %+v", p)
		seen[p] = struct{}{}
	}
}

func countByEvaluator(pairs []peereval.Pair) map[uint]int {
	counts := make(map[uint]int)
	for _, p := range pairs {
		counts[p.Evaluator]++
	}
	return counts
}

func fingerprint(pairs []peereval.Pair) string {
	keys := make([]string, 0, len(pairs))
	for _, p := range pairs {
		keys = append(keys, fmt.Sprintf("%d>%d", p.Evaluator, p.Evaluatee))
	}
	sort.Strings(keys)
	return strings.Join(keys, ";")
}
