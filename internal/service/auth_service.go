package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AuthServiceImpl implements ports.AuthService.
type AuthServiceImpl struct {
	userRepo   ports.UserRepository
	transactor ports.DBTransactor
	bonus      ports.BonusService
	hashSvc    ports.HashService
	tokenSvc   ports.TokenService
	guard      ports.LoginGuard // optional
	now        Clock
	log        zerolog.Logger
}

// NewAuthService creates a new AuthServiceImpl. guard may be nil, in which
// case failed logins are not counted.
func NewAuthService(
	userRepo ports.UserRepository,
	transactor ports.DBTransactor,
	bonus ports.BonusService,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
	guard ports.LoginGuard,
	log zerolog.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		userRepo:   userRepo,
		transactor: transactor,
		bonus:      bonus,
		hashSvc:    hashSvc,
		tokenSvc:   tokenSvc,
		guard:      guard,
		now:        SystemClock,
		log:        log,
	}
}

// Register creates the identity and its zero-balance wallet in one unit,
// then pays the welcome bonus in a separate one. A bonus failure never fails
// the registration.
func (s *AuthServiceImpl) Register(ctx context.Context, req ports.RegisterRequest) (*ports.RegisterResponse, error) {
	existing, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, storeError("check username", err)
	}
	if existing != nil {
		return nil, apperror.ErrUsernameExists()
	}

	passwordHash, err := s.hashSvc.Hash(req.Password)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}

	user := &domain.User{
		ID:           uuid.New(),
		Username:     req.Username,
		Email:        strings.ToLower(req.Email),
		PasswordHash: passwordHash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		IsSystem:     req.IsSystem,
		CreatedAt:    s.now(),
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, storeError("begin tx", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.userRepo.Create(ctx, dbTx, user); err != nil {
		return nil, registrationError("create user", err)
	}

	var walletID uuid.UUID
	if !user.IsSystem {
		wallet, err := s.bonus.ProvisionWallet(ctx, dbTx, user)
		if err != nil {
			return nil, err
		}
		walletID = wallet.ID
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, registrationError("commit tx", err)
	}

	resp := &ports.RegisterResponse{
		UserID:   user.ID,
		Username: user.Username,
		WalletID: walletID,
	}

	switch {
	case user.IsSystem:
		resp.Bonus = ports.BonusOutcome{Status: ports.BonusSkippedSystemIdentity}
	case req.SkipBonus:
		resp.Bonus = ports.BonusOutcome{Status: ports.BonusSkippedSuspended}
	default:
		resp.Bonus = s.bonus.IssueBonus(ctx, user.Identity())
	}
	evt := s.log.Info()
	if resp.Bonus.Err != nil {
		evt = s.log.Warn().Err(resp.Bonus.Err)
	}
	evt.Str("user_id", user.ID.String()).
		Str("bonus_status", string(resp.Bonus.Status)).
		Msg("user registered")

	return resp, nil
}

// Login validates credentials and returns an access/refresh token pair. Failures are counted per
// username and client address; once the limit is reached the pair is locked
// out for the cool-off period, even for the correct password.
func (s *AuthServiceImpl) Login(ctx context.Context, req ports.LoginRequest) (*ports.TokenPair, error) {
	key := loginKey(req.Username, req.ClientIP)

	if s.guard != nil {
		locked, _, err := s.guard.Locked(ctx, key)
		if err != nil {
			s.log.Warn().Err(err).Msg("login guard unavailable")
		} else if locked {
			return nil, apperror.ErrAccountLocked()
		}
	}

	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, storeError("find user", err)
	}
	if user == nil {
		s.recordFailure(ctx, key)
		return nil, apperror.ErrInvalidCredentials()
	}

	valid, err := s.hashSvc.Verify(req.Password, user.PasswordHash)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !valid {
		s.recordFailure(ctx, key)
		return nil, apperror.ErrInvalidCredentials()
	}

	if s.guard != nil {
		if err := s.guard.Reset(ctx, key); err != nil {
			s.log.Warn().Err(err).Msg("login guard reset failed")
		}
	}

	return s.issuePair(user)
}

// Refresh validates a refresh token and issues a new pair. The identity must
// still exist, so removed identities cannot keep refreshing.
func (s *AuthServiceImpl) Refresh(ctx context.Context, refreshToken string) (*ports.TokenPair, error) {
	claims, err := s.tokenSvc.ValidateRefresh(refreshToken)
	if err != nil {
		s.log.Debug().Err(err).Msg("refresh token rejected")
		return nil, apperror.ErrInvalidToken()
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, storeError("find user", err)
	}
	if user == nil {
		return nil, apperror.ErrInvalidToken()
	}
	return s.issuePair(user)
}

func (s *AuthServiceImpl) issuePair(user *domain.User) (*ports.TokenPair, error) {
	access, accessExp, err := s.tokenSvc.Generate(user.ID, user.Username)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}
	refresh, refreshExp, err := s.tokenSvc.GenerateRefresh(user.ID, user.Username)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate refresh token: %w", err))
	}
	return &ports.TokenPair{
		AccessToken:   access,
		AccessExpiry:  accessExp,
		RefreshToken:  refresh,
		RefreshExpiry: refreshExp,
	}, nil
}

func (s *AuthServiceImpl) recordFailure(ctx context.Context, key string) {
	if s.guard == nil {
		return
	}
	failures, err := s.guard.RecordFailure(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Msg("login guard unavailable")
		return
	}
	s.log.Debug().Int64("failures", failures).Msg("login failed")
}

func loginKey(username, clientIP string) string {
	return strings.ToLower(username) + "|" + clientIP
}

// registrationError maps unique violations to their user-facing errors.
// A concurrent registration can lose the race at insert or at commit.
func registrationError(op string, err error) error {
	switch {
	case errors.Is(err, ports.ErrUsernameTaken):
		return apperror.ErrUsernameExists()
	case errors.Is(err, ports.ErrEmailTaken):
		return apperror.ErrEmailExists()
	}
	return storeError(op, err)
}
