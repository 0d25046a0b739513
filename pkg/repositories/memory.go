package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/gridstake/gridstake/pkg/game"
	"github.com/gridstake/gridstake/pkg/repositories/models"
)

// MemoryRepository keeps every collection in process memory. It is the
// default backend for tests and single-node runs. Records are cloned on
// the way in and out so callers never share state with the store, matching
// the behavior of the SQL backends.
type MemoryRepository struct {
	lock         sync.RWMutex
	tokens       map[string]uint64
	availability map[string]*models.Availability
	games        map[uint64]*game.Session
	stats        map[string]*models.Stats
	archive      []*models.ArchivedGame
	nextGameID   uint64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		tokens:       make(map[string]uint64),
		availability: make(map[string]*models.Availability),
		games:        make(map[uint64]*game.Session),
		stats:        make(map[string]*models.Stats),
		nextGameID:   1,
	}
}

func (r *MemoryRepository) Close(ctx context.Context) error {
	return nil
}

func (r *MemoryRepository) WhitelistToken(ctx context.Context, token string, minDeposit uint64) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.tokens[token] = minDeposit
	return nil
}

func (r *MemoryRepository) MinDeposit(ctx context.Context, token string) (uint64, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	min, ok := r.tokens[token]
	if !ok {
		return 0, &ErrNotFound{}
	}
	return min, nil
}

func (r *MemoryRepository) ListTokens(ctx context.Context) ([]*models.Token, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	tokens := make([]*models.Token, 0, len(r.tokens))
	for token, min := range r.tokens {
		tokens = append(tokens, &models.Token{Token: token, MinDeposit: min})
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].Token < tokens[j].Token })
	return tokens, nil
}

func (r *MemoryRepository) PutAvailability(ctx context.Context, a *models.Availability) error {
	copied, err := clone(a)
	if err != nil {
		return err
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	r.availability[a.Account] = copied
	return nil
}

func (r *MemoryRepository) GetAvailability(ctx context.Context, account string) (*models.Availability, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	a, ok := r.availability[account]
	if !ok {
		return nil, &ErrNotFound{}
	}
	return clone(a)
}

func (r *MemoryRepository) DeleteAvailability(ctx context.Context, account string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.availability[account]; !ok {
		return &ErrNotFound{}
	}
	delete(r.availability, account)
	return nil
}

func (r *MemoryRepository) ListAvailability(ctx context.Context) ([]*models.Availability, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	list := make([]*models.Availability, 0, len(r.availability))
	for _, a := range r.availability {
		copied, err := clone(a)
		if err != nil {
			return nil, err
		}
		list = append(list, copied)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Account < list[j].Account })
	return list, nil
}

func (r *MemoryRepository) NextGameID(ctx context.Context) (uint64, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	id := r.nextGameID
	r.nextGameID++
	return id, nil
}

func (r *MemoryRepository) PutGame(ctx context.Context, g *game.Session) error {
	copied, err := clone(g)
	if err != nil {
		return err
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	r.games[g.ID] = copied
	return nil
}

func (r *MemoryRepository) GetGame(ctx context.Context, id uint64) (*game.Session, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	g, ok := r.games[id]
	if !ok {
		return nil, &ErrNotFound{}
	}
	return clone(g)
}

func (r *MemoryRepository) DeleteGame(ctx context.Context, id uint64) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.games[id]; !ok {
		return &ErrNotFound{}
	}
	delete(r.games, id)
	return nil
}

func (r *MemoryRepository) ListGames(ctx context.Context) ([]*game.Session, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	list := make([]*game.Session, 0, len(r.games))
	for _, g := range r.games {
		copied, err := clone(g)
		if err != nil {
			return nil, err
		}
		list = append(list, copied)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (r *MemoryRepository) GetStats(ctx context.Context, account string) (*models.Stats, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	s, ok := r.stats[account]
	if !ok {
		return nil, &ErrNotFound{}
	}
	return clone(s)
}

func (r *MemoryRepository) PutStats(ctx context.Context, s *models.Stats) error {
	copied, err := clone(s)
	if err != nil {
		return err
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	r.stats[s.Account] = copied
	return nil
}

func (r *MemoryRepository) ListStats(ctx context.Context) ([]*models.Stats, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	list := make([]*models.Stats, 0, len(r.stats))
	for _, s := range r.stats {
		copied, err := clone(s)
		if err != nil {
			return nil, err
		}
		list = append(list, copied)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Account < list[j].Account })
	return list, nil
}

func (r *MemoryRepository) AppendArchive(ctx context.Context, g *models.ArchivedGame) error {
	copied, err := clone(g)
	if err != nil {
		return err
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	r.archive = append(r.archive, copied)
	return nil
}

func (r *MemoryRepository) ListArchive(ctx context.Context) ([]*models.ArchivedGame, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	list := make([]*models.ArchivedGame, 0, len(r.archive))
	for _, g := range r.archive {
		copied, err := clone(g)
		if err != nil {
			return nil, err
		}
		list = append(list, copied)
	}
	return list, nil
}

func (r *MemoryRepository) CountArchive(ctx context.Context) (int, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.archive), nil
}

func (r *MemoryRepository) TrimArchive(ctx context.Context, max int) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if max < 0 {
		max = 0
	}
	if excess := len(r.archive) - max; excess > 0 {
		r.archive = append([]*models.ArchivedGame(nil), r.archive[excess:]...)
	}
	return nil
}

// clone deep-copies a record through its JSON form, the same encoding the
// SQL backends persist.
func clone[T any](v T) (T, error) {
	var out T
	b, err := json.Marshal(v)
	if err != nil {
		return out, fmt.Errorf("failed to encode record: %v", err)
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("failed to decode record: %v", err)
	}
	return out, nil
}
