package intake

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// CachedIndexStore держит недавно использованные индексы в памяти.
// Запись идет сквозь кэш в нижнее хранилище. Наружу отдаются копии,
// потому что сервис дописывает в загруженный индекс.
type CachedIndexStore struct {
	next  IndexStore
	cache *cache.Cache
}

func NewCachedIndexStore(next IndexStore, ttl time.Duration) *CachedIndexStore {
	return &CachedIndexStore{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (s *CachedIndexStore) Load(ctx context.Context, participantID string) (*HashIndex, error) {
	if v, ok := s.cache.Get(participantID); ok {
		return v.(*HashIndex).clone(), nil
	}

	idx, err := s.next.Load(ctx, participantID)
	if err != nil || idx == nil {
		return idx, err
	}
	s.cache.SetDefault(participantID, idx.clone())
	return idx, nil
}

func (s *CachedIndexStore) Save(ctx context.Context, participantID string, idx *HashIndex) error {
	if err := s.next.Save(ctx, participantID, idx); err != nil {
		s.cache.Delete(participantID)
		return err
	}
	s.cache.SetDefault(participantID, idx.clone())
	return nil
}

func (i *HashIndex) clone() *HashIndex {
	files := make([]IndexedFile, len(i.Files))
	copy(files, i.Files)
	return &HashIndex{Files: files}
}
