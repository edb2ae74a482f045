// Package peereval assigns peer evaluators among the students who submitted
// answers for an exam.
//
// Assignment is random but constrained: a student never evaluates their own
// submission, no (evaluator, evaluatee) pair is produced twice, and counting
// the pairs recorded by earlier runs, no evaluator ends up with more
// evaluations than the exam asks for. Running the assigner again after new
// submissions arrive therefore tops evaluators up instead of double-booking
// them.
package peereval

import (
	"errors"
	"math/rand"
)

// ErrNegativeK rejects a negative evaluations-per-student count. Zero is
// valid and yields no pairs.
var ErrNegativeK = errors.New("peereval: evaluations per student must not be negative")

// Pair is one peer-marking task: Evaluator scores Evaluatee's submission.
type Pair struct {
	Evaluator uint
	Evaluatee uint
}

// Assign distributes the submitters among themselves so that each acts as
// evaluator for up to k distinct peers. existing lists the pairs already
// recorded for the exam; they are never produced again and count toward each
// evaluator's cap of k.
//
// Only the new pairs are returned. With fewer than two submitters, or when
// every evaluator already holds k pairs, the result is empty. Duplicate
// submitter IDs are tolerated and counted once.
func Assign(submitters []uint, k int, existing []Pair) ([]Pair, error) {
	if k < 0 {
		return nil, ErrNegativeK
	}

	unique := make([]uint, 0, len(submitters))
	seen := make(map[uint]struct{}, len(submitters))
	for _, id := range submitters {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	if len(unique) < 2 {
		return nil, nil
	}

	taken := make(map[uint]map[uint]struct{}, len(unique))
	for _, p := range existing {
		if taken[p.Evaluator] == nil {
			taken[p.Evaluator] = make(map[uint]struct{})
		}
		taken[p.Evaluator][p.Evaluatee] = struct{}{}
	}

	var pairs []Pair
	for _, evaluator := range unique {
		held := taken[evaluator]
		quota := k - len(held)
		if quota <= 0 {
			continue
		}

		pool := make([]uint, 0, len(unique)-1)
		for _, candidate := range unique {
			if candidate == evaluator {
				continue
			}
			if _, ok := held[candidate]; ok {
				continue
			}
			pool = append(pool, candidate)
		}
		rand.Shuffle(len(pool), func(i, j int) {
			pool[i], pool[j] = pool[j], pool[i]
		})

		if quota > len(pool) {
			quota = len(pool)
		}
		for _, evaluatee := range pool[:quota] {
			pairs = append(pairs, Pair{Evaluator: evaluator, Evaluatee: evaluatee})
		}
	}

	return pairs, nil
}
