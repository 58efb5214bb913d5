package strategy

import (
	"context"
	"fmt"
	"sort"

	"evolvekit/internal/evo"
)

// TopN sorts the buffer by fitness descending and keeps the first n
// distinct fingerprints.
func TopN[C evo.Chromosome](n int) evo.SelectionFunc[C] {
	return func(ctx context.Context, buffer []C) ([]C, error) {
		if n < 0 {
			return nil, fmt.Errorf("%w: top n %d < 0", evo.ErrInvalidArgument, n)
		}
		sorted := append([]C(nil), buffer...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Fitness().Compare(sorted[j].Fitness()) > 0
		})
		return distinctHead(sorted, n), nil
	}
}

// Elitist keeps the first n distinct entries of the buffer in buffer order.
// Since the buffer starts with the aged elite, the elite always survives.
func Elitist[C evo.Chromosome](n int) evo.SelectionFunc[C] {
	return func(ctx context.Context, buffer []C) ([]C, error) {
		if n < 0 {
			return nil, fmt.Errorf("%w: elitist size %d < 0", evo.ErrInvalidArgument, n)
		}
		return distinctHead(buffer, n), nil
	}
}

func distinctHead[C evo.Chromosome](chromosomes []C, n int) []C {
	out := make([]C, 0, min(n, len(chromosomes)))
	seen := make(map[string]struct{}, n)
	for _, c := range chromosomes {
		if len(out) == n {
			break
		}
		if _, dup := seen[c.Fingerprint()]; dup {
			continue
		}
		seen[c.Fingerprint()] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Tournament keeps the first Elite buffer entries untouched and fills the
// remaining Size-Elite places by tournaments of TournamentSize random
// entries each, best fitness winning.
type Tournament[C evo.Chromosome] struct {
	Size           int
	Elite          int
	TournamentSize int
	Rand           *Rand
}

const (
	defaultTournamentSize = 3
	tournamentAttempts    = 8
)

func (s Tournament[C]) Select(ctx context.Context, buffer []C) ([]C, error) {
	if s.Size < 0 || s.Elite < 0 || s.Elite > s.Size {
		return nil, fmt.Errorf("%w: tournament size=%d elite=%d", evo.ErrInvalidArgument, s.Size, s.Elite)
	}
	if s.Rand == nil {
		return nil, fmt.Errorf("%w: random source is required", evo.ErrIllegalState)
	}
	out := distinctHead(buffer, min(s.Elite, s.Size))
	if len(buffer) == 0 {
		return out, nil
	}
	seen := make(map[string]struct{}, s.Size)
	for _, c := range out {
		seen[c.Fingerprint()] = struct{}{}
	}

	tournamentSize := s.TournamentSize
	if tournamentSize <= 0 {
		tournamentSize = defaultTournamentSize
	}
	tournamentSize = min(tournamentSize, len(buffer))

	// Tournaments that keep returning known fingerprints give up after a
	// bounded number of attempts; the population builder reports the gap.
	for misses := 0; len(out) < s.Size && misses < tournamentAttempts*s.Size; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		best := buffer[s.Rand.Intn(len(buffer))]
		for i := 1; i < tournamentSize; i++ {
			candidate := buffer[s.Rand.Intn(len(buffer))]
			if best.Fitness().Less(candidate.Fitness()) {
				best = candidate
			}
		}
		if _, dup := seen[best.Fingerprint()]; dup {
			misses++
			continue
		}
		seen[best.Fingerprint()] = struct{}{}
		out = append(out, best)
	}
	return out, nil
}

// RandomMates picks Count distinct co-parents, accepting each offered
// candidate with probability one half.
type RandomMates[C evo.Chromosome] struct {
	Count int
	Rand  *Rand
}

func (s RandomMates[C]) SelectMates(ctx context.Context, parent1 C, candidates <-chan C) ([]C, error) {
	if s.Count <= 0 {
		return nil, fmt.Errorf("%w: mates count %d <= 0", evo.ErrInvalidArgument, s.Count)
	}
	mates := make([]C, 0, s.Count)
	seen := map[string]struct{}{parent1.Fingerprint(): {}}
	for c := range candidates {
		if _, dup := seen[c.Fingerprint()]; dup || !s.Rand.Bool() {
			continue
		}
		seen[c.Fingerprint()] = struct{}{}
		mates = append(mates, c)
		if len(mates) == s.Count {
			return mates, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("found %d of %d mates for %s", len(mates), s.Count, parent1.Fingerprint())
}
