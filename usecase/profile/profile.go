package profile

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/taskbot/domain"
	"github.com/fastygo/taskbot/repository"
)

// UseCase manages the owner settings that shape due-time rendering.
type UseCase struct {
	users    repository.UserRepository
	fallback *time.Location
	logger   *zap.Logger
}

func New(users repository.UserRepository, fallback *time.Location, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if fallback == nil {
		fallback = time.UTC
	}
	return &UseCase{
		users:    users,
		fallback: fallback,
		logger:   logger,
	}
}

// GetProfile returns the owner, creating it on first contact.
func (uc *UseCase) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := uc.users.Ensure(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Timezone == "" {
		user.Timezone = uc.fallback.String()
	}
	return user, nil
}

// SetTimezone stores an IANA zone name for the owner.
func (uc *UseCase) SetTimezone(ctx context.Context, userID, timezone string) (*domain.User, error) {
	timezone = strings.TrimSpace(timezone)
	if timezone == "" {
		return nil, domain.ErrInvalidTimezone
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return nil, domain.WrapError(domain.ErrCodeInvalid, domain.ErrInvalidTimezone.Message, err)
	}
	user, err := uc.users.Ensure(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Timezone = timezone
	if err := uc.users.Upsert(ctx, user); err != nil {
		return nil, err
	}
	uc.logger.Info("timezone updated", zap.String("user_id", userID), zap.String("timezone", timezone))
	return user, nil
}
