package usecase

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/iho/gosplit/internal/domain"
	"github.com/iho/gosplit/internal/infrastructure/metrics"
)

// UserUseCase is the read side of the user directory.
type UserUseCase struct {
	userRepo UserRepository
	cache    Cache
	metrics  *metrics.Metrics
}

// NewUserUseCase creates a new user use case. cache and m may be nil.
func NewUserUseCase(userRepo UserRepository, cache Cache, m *metrics.Metrics) *UserUseCase {
	return &UserUseCase{
		userRepo: userRepo,
		cache:    cache,
		metrics:  m,
	}
}

type cachedUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func userCacheKey(id string) string { return "user:" + id }

// GetUser retrieves a user by ID
func (uc *UserUseCase) GetUser(ctx context.Context, id string) (*domain.User, error) {
	if user, ok := uc.fromCache(ctx, id); ok {
		return user, nil
	}

	user, err := uc.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	uc.toCache(ctx, user)
	return user, nil
}

// GetUserByEmail looks a user up by email address
func (uc *UserUseCase) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := domain.ValidateEmail(email); err != nil {
		return nil, err
	}

	return uc.userRepo.GetByEmail(ctx, domain.NormalizeEmail(email))
}

// ResolveUsers returns the known users among ids keyed by ID. Unknown
// ids are simply absent from the result.
func (uc *UserUseCase) ResolveUsers(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	out := make(map[string]*domain.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	users, err := uc.userRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (uc *UserUseCase) fromCache(ctx context.Context, id string) (*domain.User, bool) {
	if uc.cache == nil {
		return nil, false
	}

	data, err := uc.cache.Get(ctx, userCacheKey(id))
	if err != nil || data == nil {
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("user_id", id).Msg("user cache read failed")
		}
		uc.observeCache("miss")
		return nil, false
	}

	var cu cachedUser
	if err := json.Unmarshal(data, &cu); err != nil {
		uc.observeCache("miss")
		return nil, false
	}

	uc.observeCache("hit")
	return &domain.User{ID: cu.ID, Name: cu.Name, Email: cu.Email}, true
}

func (uc *UserUseCase) toCache(ctx context.Context, user *domain.User) {
	if uc.cache == nil {
		return
	}

	data, err := json.Marshal(cachedUser{ID: user.ID, Name: user.Name, Email: user.Email})
	if err != nil {
		return
	}
	if err := uc.cache.Set(ctx, userCacheKey(user.ID), data, UserCacheTTL); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("user_id", user.ID).Msg("user cache write failed")
	}
}

func (uc *UserUseCase) observeCache(result string) {
	if uc.metrics != nil {
		uc.metrics.CacheLookups.WithLabelValues("user", result).Inc()
	}
}
