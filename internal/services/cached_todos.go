package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/WilliamDrmrd/todo-app/internal/cache"
	"github.com/WilliamDrmrd/todo-app/internal/config"
	"github.com/WilliamDrmrd/todo-app/internal/logger"
	"github.com/WilliamDrmrd/todo-app/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	todoKeyPrefix  = "todo:"
	listKeyPattern = "todos:*"
	statsKey       = "todos:stats"
)

type CacheTTLs struct {
	Item  time.Duration
	List  time.Duration
	Stats time.Duration
}

func CacheTTLsFromConfig(cfg config.CacheConfig) CacheTTLs {
	return CacheTTLs{Item: cfg.ItemTTL, List: cfg.ListTTL, Stats: cfg.StatsTTL}
}

// CachedTodoService is a read-through cache in front of another TodoService.
// Writes go straight to the wrapped service and then invalidate every list
// and the stats entry. A cache failure never fails the call.
type CachedTodoService struct {
	next   TodoService
	cache  cache.Cache
	ttls   CacheTTLs
	group  singleflight.Group
	logger *zap.Logger

	// generation changes on every invalidation. A fetch that overlapped one
	// must not write its result back.
	generation atomic.Uint64
}

func NewCachedTodoService(next TodoService, c cache.Cache, ttls CacheTTLs, log *zap.Logger) *CachedTodoService {
	return &CachedTodoService{
		next:   next,
		cache:  c,
		ttls:   ttls,
		logger: logger.Component(log, "cached_todo_service"),
	}
}

func todoKey(id uint) string {
	return fmt.Sprintf("%s%d", todoKeyPrefix, id)
}

func listKey(f models.Filter) string {
	return "todos:" + string(f)
}

var cachedFilters = []models.Filter{models.FilterAll, models.FilterCompleted, models.FilterPending}

// load serves key from cache or runs fetch once for all concurrent callers
// and stores the result.
func (s *CachedTodoService) load(ctx context.Context, key string, dest interface{}, ttl time.Duration, fetch func() (interface{}, error)) (interface{}, bool, error) {
	if err := s.cache.Get(ctx, key, dest); err == nil {
		return dest, true, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		gen := s.generation.Load()
		value, err := fetch()
		if err != nil {
			return nil, err
		}
		if s.generation.Load() != gen {
			s.logger.Debug("skipping cache write after concurrent invalidation", zap.String("key", key))
			return value, nil
		}
		if err := s.cache.Set(ctx, key, value, ttl); err != nil {
			s.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
			return value, nil
		}
		// An invalidation between the check above and Set may already have
		// run its deletes.
		if s.generation.Load() != gen {
			if err := s.cache.Delete(ctx, key); err != nil {
				s.logger.Warn("cache invalidation failed", zap.String("key", key), zap.Error(err))
			}
		}
		return value, nil
	})
	return v, false, err
}

func (s *CachedTodoService) invalidate(ctx context.Context, id uint) {
	s.generation.Add(1)

	// Callers arriving from now on must not join a fetch that started before
	// the write.
	s.group.Forget(todoKey(id))
	s.group.Forget(statsKey)
	for _, f := range cachedFilters {
		s.group.Forget(listKey(f))
	}

	if err := s.cache.Delete(ctx, todoKey(id)); err != nil {
		s.logger.Warn("cache invalidation failed", zap.Uint("id", id), zap.Error(err))
	}
	if err := s.cache.DeletePattern(ctx, listKeyPattern); err != nil {
		s.logger.Warn("cache invalidation failed", zap.String("pattern", listKeyPattern), zap.Error(err))
	}
}

func (s *CachedTodoService) Create(ctx context.Context, req CreateTodoRequest) (*models.Todo, error) {
	todo, err := s.next.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, todo.ID)
	return todo, nil
}

func (s *CachedTodoService) FindAll(ctx context.Context, filter models.Filter) ([]models.Todo, error) {
	f := models.ResolveFilter(string(filter))

	var cached []models.Todo
	v, hit, err := s.load(ctx, listKey(f), &cached, s.ttls.List, func() (interface{}, error) {
		return s.next.FindAll(ctx, f)
	})
	if err != nil {
		return nil, err
	}
	if hit {
		if cached == nil {
			cached = []models.Todo{}
		}
		return cached, nil
	}
	shared := v.([]models.Todo)
	todos := make([]models.Todo, len(shared))
	copy(todos, shared)
	return todos, nil
}

func (s *CachedTodoService) FindOne(ctx context.Context, id uint) (*models.Todo, error) {
	var cached models.Todo
	v, hit, err := s.load(ctx, todoKey(id), &cached, s.ttls.Item, func() (interface{}, error) {
		return s.next.FindOne(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	if hit {
		return &cached, nil
	}
	todo := *v.(*models.Todo)
	return &todo, nil
}

func (s *CachedTodoService) Update(ctx context.Context, id uint, req UpdateTodoRequest) (*models.Todo, error) {
	todo, err := s.next.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)
	return todo, nil
}

func (s *CachedTodoService) Remove(ctx context.Context, id uint) (*models.Todo, error) {
	todo, err := s.next.Remove(ctx, id)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)
	return todo, nil
}

func (s *CachedTodoService) Stats(ctx context.Context) (*models.TodoStats, error) {
	var cached models.TodoStats
	v, hit, err := s.load(ctx, statsKey, &cached, s.ttls.Stats, func() (interface{}, error) {
		return s.next.Stats(ctx)
	})
	if err != nil {
		return nil, err
	}
	if hit {
		return &cached, nil
	}
	stats := *v.(*models.TodoStats)
	return &stats, nil
}

func (s *CachedTodoService) CacheStats(ctx context.Context) map[string]interface{} {
	return s.cache.Stats(ctx)
}
