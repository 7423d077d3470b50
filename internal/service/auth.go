// Package service implements authentication and event booking on top of
// the credential and event stores.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/iliyamo/event-booking/internal/metrics"
	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/repository"
	"github.com/iliyamo/event-booking/internal/utils"
)

// UserStore is the credential store.
type UserStore interface {
	CreateUser(ctx context.Context, name, email, passwordHash string, role model.Role) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	GetUserByID(ctx context.Context, id uint64) (model.User, error)
}

// AuthOptions configures token signing and password hashing.
type AuthOptions struct {
	Secret     string
	TokenTTL   time.Duration
	BcryptCost int
}

// AuthService signs users up, logs them in and validates bearer tokens.
type AuthService struct {
	users    UserStore
	opts     AuthOptions
	validate *validator.Validate
	logger   zerolog.Logger

	// dummyHash is compared against on unknown emails so a miss costs
	// about as much as a wrong password.
	dummyHash string
}

// NewAuthService returns an AuthService.  A zero TokenTTL defaults to 30 minutes.
func NewAuthService(users UserStore, opts AuthOptions, logger zerolog.Logger) *AuthService {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 30 * time.Minute
	}
	logger = logger.With().Str("component", "auth").Logger()
	dummy, err := utils.HashPassword("no-such-user", opts.BcryptCost)
	if err != nil {
		logger.Error().Err(err).Int("cost", opts.BcryptCost).Msg("dummy hash")
	}
	return &AuthService{
		users:     users,
		opts:      opts,
		validate:  validator.New(),
		logger:    logger,
		dummyHash: dummy,
	}
}

// SignupInput is the data supplied at signup.  An empty Role means customer.
type SignupInput struct {
	Name     string `validate:"required"`
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
	Role     string
}

// LoginResult is a successful login: the token and the user it was issued to.
type LoginResult struct {
	Token utils.AccessToken
	User  model.User
}

// HashPassword returns a salted one-way hash of plain.
func (s *AuthService) HashPassword(plain string) (string, error) {
	return utils.HashPassword(plain, s.opts.BcryptCost)
}

// VerifyPassword reports whether plain matches hash.
func (s *AuthService) VerifyPassword(plain, hash string) bool {
	return utils.VerifyPassword(hash, plain)
}

// Signup creates a user.  The email is stored exactly as given; a second
// signup with the same email fails with ErrEmailTaken regardless of the
// other fields.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (model.User, error) {
	if err := s.validate.Struct(in); err != nil {
		metrics.Signups.WithLabelValues("invalid").Inc()
		return model.User{}, fromValidator(err)
	}
	role := model.RoleCustomer
	if in.Role != "" {
		r, err := model.ParseRole(in.Role)
		if err != nil {
			metrics.Signups.WithLabelValues("invalid").Inc()
			return model.User{}, Invalid("role: must be one of manager, customer")
		}
		role = r
	}

	hash, err := s.HashPassword(in.Password)
	if err != nil {
		metrics.Signups.WithLabelValues("error").Inc()
		return model.User{}, err
	}
	u, err := s.users.CreateUser(ctx, in.Name, in.Email, hash, role)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			metrics.Signups.WithLabelValues("conflict").Inc()
			return model.User{}, ErrEmailTaken
		}
		metrics.Signups.WithLabelValues("error").Inc()
		return model.User{}, err
	}
	metrics.Signups.WithLabelValues("success").Inc()
	s.logger.Info().Uint64("user_id", u.ID).Stringer("role", u.Role).Msg("user signed up")
	return u, nil
}

// Login checks credentials and issues an access token whose subject is
// the user's email.  Unknown email and wrong password produce the same
// ErrBadCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	u, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		utils.VerifyPassword(s.dummyHash, password)
		metrics.Logins.WithLabelValues("rejected").Inc()
		return LoginResult{}, ErrBadCredentials
	case err != nil:
		metrics.Logins.WithLabelValues("error").Inc()
		return LoginResult{}, err
	}
	if !s.VerifyPassword(password, u.PasswordHash) {
		metrics.Logins.WithLabelValues("rejected").Inc()
		return LoginResult{}, ErrBadCredentials
	}

	tok, err := utils.NewAccessToken(s.opts.Secret, u.Email, u.Role.String(), s.opts.TokenTTL)
	if err != nil {
		metrics.Logins.WithLabelValues("error").Inc()
		return LoginResult{}, err
	}
	metrics.Logins.WithLabelValues("success").Inc()
	return LoginResult{Token: tok, User: u}, nil
}

// Authenticate validates a raw bearer token and resolves its subject to
// the stored user.  Every failure, including a subject that no longer
// resolves, is ErrInvalidToken.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (model.User, error) {
	claims, err := utils.ParseAccessToken(s.opts.Secret, raw)
	if err != nil {
		return model.User{}, ErrInvalidToken
	}
	u, err := s.users.GetUserByEmail(ctx, claims.Subject)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, ErrInvalidToken
	}
	if err != nil {
		return model.User{}, err
	}
	return u, nil
}

// Authorize passes u through when it holds the required role.
func (s *AuthService) Authorize(u model.User, required model.Role) (model.User, error) {
	if u.Role != required {
		return model.User{}, ErrWrongRole
	}
	return u, nil
}
