package scoring

import (
	"sort"
	"sync"
	"time"
)

// boardKey identifies one (category, score date) ranking population.
type boardKey struct {
	category  string
	scoreDate time.Time
}

type boardEntry struct {
	fundID     string
	totalScore float64
}

// scoreboard accumulates total scores per category and score date so each
// newly scored fund can be ranked against everything scored so far in the
// same run. Replacing a fund's entry replaces its score rather than
// appending a duplicate.
type scoreboard struct {
	mu      sync.Mutex
	entries map[boardKey]map[string]float64
}

func newScoreboard() *scoreboard {
	return &scoreboard{entries: make(map[boardKey]map[string]float64)}
}

// rank records the fund's score and returns its rank, the population size,
// and its quartile among all funds currently on the board for the same
// category and date. Ties are broken deterministically by fund ID ascending.
func (b *scoreboard) rank(category string, scoreDate time.Time, fundID string, totalScore float64) (rank, total, quartile int) {
	key := boardKey{category: category, scoreDate: scoreDate.Truncate(24 * time.Hour)}

	b.mu.Lock()
	defer b.mu.Unlock()

	board, ok := b.entries[key]
	if !ok {
		board = make(map[string]float64)
		b.entries[key] = board
	}
	board[fundID] = totalScore

	return standingOf(board, fundID)
}

// standing returns the fund's current rank without modifying the board. ok
// is false when the fund has not been scored onto this board.
func (b *scoreboard) standing(category string, scoreDate time.Time, fundID string) (rank, total, quartile int, ok bool) {
	key := boardKey{category: category, scoreDate: scoreDate.Truncate(24 * time.Hour)}

	b.mu.Lock()
	defer b.mu.Unlock()

	board, found := b.entries[key]
	if !found {
		return 0, 0, 0, false
	}
	if _, found := board[fundID]; !found {
		return 0, 0, 0, false
	}
	rank, total, quartile = standingOf(board, fundID)
	return rank, total, quartile, true
}

func standingOf(board map[string]float64, fundID string) (rank, total, quartile int) {
	ranked := make([]boardEntry, 0, len(board))
	for id, score := range board {
		ranked = append(ranked, boardEntry{fundID: id, totalScore: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].totalScore != ranked[j].totalScore {
			return ranked[i].totalScore > ranked[j].totalScore
		}
		return ranked[i].fundID < ranked[j].fundID
	})

	total = len(ranked)
	for i, entry := range ranked {
		if entry.fundID == fundID {
			rank = i + 1
			break
		}
	}
	return rank, total, QuartileFor(rank, total)
}

// reset clears the board for a category and date, used when a category pass
// starts over.
func (b *scoreboard) reset(category string, scoreDate time.Time) {
	key := boardKey{category: category, scoreDate: scoreDate.Truncate(24 * time.Hour)}
	b.mu.Lock()
	delete(b.entries, key)
	b.mu.Unlock()
}

// QuartileFor partitions n ranked positions into four groups of ceil(n/4),
// with the fourth quartile absorbing any remainder.
func QuartileFor(rank, total int) int {
	if total <= 0 || rank <= 0 {
		return 4
	}
	groupSize := (total + 3) / 4
	quartile := (rank-1)/groupSize + 1
	if quartile > 4 {
		quartile = 4
	}
	return quartile
}
