package service

import (
	"context"
	"regexp"
	"time"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	auditdomain "github.com/smallbiznis/salestax/internal/audit/domain"
	"github.com/smallbiznis/salestax/internal/cache"
	"github.com/smallbiznis/salestax/internal/clock"
	"github.com/smallbiznis/salestax/internal/config"
	"github.com/smallbiznis/salestax/internal/feature/domain"
	"github.com/smallbiznis/salestax/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	activeSetKey = "feature_flags:active"
	// syncedKey marks the active set as a full copy of the database.
	syncedKey  = "feature_flags:synced"
	lockKeyFmt = "feature_flags:lock:"
	lockTTL    = 5 * time.Second
)

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

type Params struct {
	fx.In

	Lc     fx.Lifecycle `optional:"true"`
	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Repo   domain.Repository
	Clock  clock.Clock
	Config config.Config
	Redis  *redis.Client       `optional:"true"`
	Audit  auditdomain.Service `optional:"true"`
}

// Service stores flags in the database. With the redis store selected,
// active flag names are mirrored into a redis set that serves reads. The
// set only answers "inactive" while the synced marker is present; otherwise
// reads go to the database and the set is rebuilt.
type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	repo   domain.Repository
	genID  *snowflake.Node
	clock  clock.Clock
	redis  *redis.Client
	locker *cache.Locker
	audit  auditdomain.Service
}

func New(p Params) domain.Service {
	svc := &Service{
		db:    p.DB,
		log:   p.Log.Named("feature.service"),
		repo:  p.Repo,
		genID: p.GenID,
		clock: p.Clock,
		audit: p.Audit,
	}
	if p.Config.Feature.Store == config.FeatureStoreRedis && p.Redis != nil {
		svc.redis = p.Redis
		svc.locker = cache.NewLocker(p.Redis)
		if p.Lc != nil {
			p.Lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					if err := svc.SyncActive(ctx); err != nil {
						svc.log.Warn("flag mirror sync failed, reads fall back to database", zap.Error(err))
					}
					return nil
				},
			})
		}
	}
	return svc
}

// SyncActive replaces the redis set with the active flags from the database.
func (s *Service) SyncActive(ctx context.Context) error {
	if s.redis == nil {
		return nil
	}
	active := true
	flags, err := s.repo.List(ctx, s.db, domain.ListRequest{Active: &active})
	if err != nil {
		return err
	}
	names := make([]any, 0, len(flags))
	for _, f := range flags {
		names = append(names, f.Name)
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, activeSetKey)
		if len(names) > 0 {
			pipe.SAdd(ctx, activeSetKey, names...)
		}
		pipe.Set(ctx, syncedKey, s.clock.Now().UTC().Format(time.RFC3339), 0)
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("flag mirror synced", zap.Int("active", len(names)))
	return nil
}

func (s *Service) IsActive(ctx context.Context, name string) (bool, error) {
	name = domain.NormalizeName(name)
	if name == "" {
		return false, domain.ErrInvalidName
	}

	if s.redis != nil {
		var member *redis.BoolCmd
		var synced *redis.IntCmd
		_, err := s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
			member = pipe.SIsMember(ctx, activeSetKey, name)
			synced = pipe.Exists(ctx, syncedKey)
			return nil
		})
		switch {
		case err != nil:
			s.log.Warn("redis flag lookup failed, reading database", zap.String("flag", name), zap.Error(err))
		case member.Val():
			return true, nil
		case synced.Val() == 1:
			return false, nil
		default:
			if err := s.SyncActive(ctx); err != nil {
				s.log.Warn("flag mirror rebuild failed", zap.Error(err))
			}
		}
	}

	flag, err := s.repo.FindByName(ctx, s.db, name)
	if err != nil {
		return false, err
	}
	return flag != nil && flag.Active, nil
}

func (s *Service) Activate(ctx context.Context, name string) (*domain.Response, error) {
	return s.setActive(ctx, name, true)
}

func (s *Service) Deactivate(ctx context.Context, name string) (*domain.Response, error) {
	return s.setActive(ctx, name, false)
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	filter := domain.ListRequest{
		Prefix: domain.NormalizeName(req.Prefix),
		Active: req.Active,
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) setActive(ctx context.Context, name string, active bool) (*domain.Response, error) {
	name = domain.NormalizeName(name)
	if !namePattern.MatchString(name) {
		return nil, domain.ErrInvalidName
	}

	if s.locker != nil {
		token, ok, err := s.locker.TryLock(ctx, lockKeyFmt+name, lockTTL)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.ErrConflict
		}
		defer func() {
			if err := s.locker.Release(context.WithoutCancel(ctx), lockKeyFmt+name, token); err != nil {
				s.log.Warn("release flag lock", zap.String("flag", name), zap.Error(err))
			}
		}()
	}

	now := s.clock.Now().UTC()
	var flag *domain.Flag
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByName(ctx, tx, name)
		if err != nil {
			return err
		}
		if existing == nil {
			flag = &domain.Flag{
				ID:        s.genID.Generate(),
				Name:      name,
				Active:    active,
				CreatedAt: now,
				UpdatedAt: now,
			}
			return s.repo.Create(ctx, tx, flag)
		}

		existing.Active = active
		existing.UpdatedAt = now
		flag = existing
		return s.repo.Update(ctx, tx, existing)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrConflict
		}
		return nil, err
	}

	if s.redis != nil {
		var rerr error
		if active {
			rerr = s.redis.SAdd(ctx, activeSetKey, name).Err()
		} else {
			rerr = s.redis.SRem(ctx, activeSetKey, name).Err()
		}
		if rerr != nil {
			// The database committed. Dropping the marker sends reads
			// there until the next sync.
			s.log.Warn("flag mirror update failed", zap.String("flag", name), zap.Error(rerr))
			if err := s.redis.Del(context.WithoutCancel(ctx), syncedKey).Err(); err != nil {
				s.log.Warn("flag mirror invalidation failed", zap.String("flag", name), zap.Error(err))
			}
		}
	}

	s.log.Info("feature flag updated", zap.String("flag", name), zap.Bool("active", active))
	if s.audit != nil {
		action := auditdomain.ActionFeatureFlagDeactivated
		if active {
			action = auditdomain.ActionFeatureFlagActivated
		}
		_ = s.audit.Record(ctx, auditdomain.Entry{
			Action:     action,
			TargetType: "feature_flag",
			TargetID:   flag.ID.String(),
			Metadata:   map[string]any{"name": name},
		})
	}
	resp := toResponse(flag)
	return &resp, nil
}

func toResponse(f *domain.Flag) domain.Response {
	return domain.Response{
		ID:          f.ID.String(),
		Name:        f.Name,
		Description: f.Description,
		Active:      f.Active,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}
