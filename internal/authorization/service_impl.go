package authorization

import (
	"context"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"sort"
	"strings"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/smallbiznis/storefront/internal/config"
	obslogger "github.com/smallbiznis/storefront/internal/observability/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	Log      *zap.Logger
	Cfg      config.Config
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	actors   []string
	hashes   map[string]string

	// verified maps sha256(raw key) to actor so Argon2 runs once per key.
	verified sync.Map
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) (Service, error) {
	s := &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		hashes:   map[string]string{},
	}
	for actor, hash := range p.Cfg.Admin.APIKeys {
		subject := "admin:" + actor
		s.hashes[subject] = hash
		s.actors = append(s.actors, subject)
		if err := s.ensureGrouping(subject, RoleAdmin); err != nil {
			return nil, err
		}
	}
	sort.Strings(s.actors)
	if len(s.actors) == 0 {
		s.log.Warn("no admin API keys configured, admin API is closed")
	}
	return s, nil
}

func (s *ServiceImpl) Authenticate(ctx context.Context, rawKey string) (string, error) {
	rawKey = strings.TrimSpace(rawKey)
	if rawKey == "" {
		return "", ErrUnauthenticated
	}
	sum := sha256.Sum256([]byte(rawKey))
	digest := hex.EncodeToString(sum[:])
	if actor, ok := s.verified.Load(digest); ok {
		return actor.(string), nil
	}

	for _, actor := range s.actors {
		if VerifyKey(rawKey, s.hashes[actor]) {
			s.verified.Store(digest, actor)
			return actor, nil
		}
	}
	obslogger.WithContext(ctx, s.log).Warn("admin API key rejected")
	return "", ErrUnauthenticated
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	allowed, err := s.enforcer.Enforce(actor, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		obslogger.WithContext(ctx, s.log).Warn("authorization denied",
			zap.String("actor", actor),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{RoleAdmin, ObjectInventory, ActionView},
		{RoleAdmin, ObjectInventory, ActionAdjust},
		{RoleAdmin, ObjectProduct, ActionManage},
		{RoleAdmin, ObjectOrder, ActionView},
		{RoleAdmin, ObjectFulfillment, ActionView},
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
