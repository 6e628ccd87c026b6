package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/ElVatoEste/biblioteca-reservas/internal/models"
	"github.com/ElVatoEste/biblioteca-reservas/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const MinPasswordLength = 6

var (
	ErrEmailNotAllowed    = errors.New("email is not allowed to register")
	ErrEmailExists        = errors.New("an account with this email already exists")
	ErrLinkRequired       = errors.New("account exists with a different sign-in method; sign in with it first to link")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrSessionMismatch    = errors.New("session does not belong to this account")
	ErrUserNotFound       = errors.New("user not found")
)

type AccountService interface {
	IsEmailAllowed(ctx context.Context, email string) (bool, error)
	SignUp(ctx context.Context, email, password string, current *Session) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignInWithProvider(ctx context.Context, identity *ProviderIdentity, current *Session) (*Session, error)
	LinkPassword(ctx context.Context, current *Session, password string) (*Session, error)
	ChangePassword(ctx context.Context, current *Session, oldPassword, newPassword string) (*Session, error)
	Refresh(ctx context.Context, current *Session) (*Session, error)
	Me(ctx context.Context, current *Session) (*models.User, error)
}

type accountService struct {
	users      repository.UserRepository
	allowlist  repository.AllowlistRepository
	tokens     *TokenIssuer
	domain     string
	bcryptCost int
}

func NewAccountService(
	users repository.UserRepository,
	allowlist repository.AllowlistRepository,
	tokens *TokenIssuer,
	domain string,
	bcryptCost int,
) AccountService {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &accountService{
		users:      users,
		allowlist:  allowlist,
		tokens:     tokens,
		domain:     strings.ToLower(strings.TrimPrefix(domain, "@")),
		bcryptCost: bcryptCost,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsEmailAllowed requires the institutional domain. A non-empty allowlist
// further restricts sign-up to the listed addresses.
func (s *accountService) IsEmailAllowed(ctx context.Context, email string) (bool, error) {
	email = normalizeEmail(email)
	if !strings.HasSuffix(email, "@"+s.domain) {
		return false, nil
	}

	count, err := s.allowlist.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("count allowlist: %w", err)
	}
	if count == 0 {
		return true, nil
	}
	ok, err := s.allowlist.Contains(ctx, email)
	if err != nil {
		return false, fmt.Errorf("check allowlist: %w", err)
	}
	return ok, nil
}

func (s *accountService) findUser(ctx context.Context, email string) (*models.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (s *accountService) hash(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrWeakPassword
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// createUser grants admin to the very first account.
func (s *accountService) createUser(ctx context.Context, email, provider, passwordHash string) (*models.User, error) {
	count, err := s.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	roles := []string{models.RoleBase}
	if count == 0 {
		roles = []string{models.RoleAdmin, models.RoleBase}
	}

	user := &models.User{
		Email:        email,
		PasswordHash: passwordHash,
		Roles:        roles,
		Providers:    []string{provider},
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	log.Printf("[Accounts] created %s with roles %v", email, roles)
	return user, nil
}

func (s *accountService) SignUp(ctx context.Context, email, password string, current *Session) (*Session, error) {
	email = normalizeEmail(email)
	allowed, err := s.IsEmailAllowed(ctx, email)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrEmailNotAllowed
	}

	hash, err := s.hash(password)
	if err != nil {
		return nil, err
	}

	existing, err := s.findUser(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		user, err := s.createUser(ctx, email, models.ProviderPassword, hash)
		if err != nil {
			return nil, err
		}
		return s.tokens.Issue(user)
	}

	if existing.HasProvider(models.ProviderPassword) {
		return nil, ErrEmailExists
	}
	// a provider-only account gets a password only from its own session
	if current == nil || current.UserID != existing.ID {
		return nil, ErrLinkRequired
	}
	return s.attachPassword(ctx, existing, hash)
}

func (s *accountService) attachPassword(ctx context.Context, user *models.User, hash string) (*Session, error) {
	user.PasswordHash = hash
	user.AddProvider(models.ProviderPassword)
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("link password: %w", err)
	}
	return s.tokens.Issue(user)
}

func (s *accountService) SignIn(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.findUser(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil || user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return s.tokens.Issue(user)
}

// SignInWithProvider accepts an identity already verified by the external
// provider. Accounts created with a password only gain the provider when the
// caller is signed in to that same account.
func (s *accountService) SignInWithProvider(ctx context.Context, identity *ProviderIdentity, current *Session) (*Session, error) {
	email := normalizeEmail(identity.Email)
	allowed, err := s.IsEmailAllowed(ctx, email)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrEmailNotAllowed
	}

	user, err := s.findUser(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		user, err = s.createUser(ctx, email, identity.Provider, "")
		if err != nil {
			return nil, err
		}
		return s.tokens.Issue(user)
	}

	if !user.HasProvider(identity.Provider) {
		if current == nil || current.UserID != user.ID {
			return nil, ErrLinkRequired
		}
		user.AddProvider(identity.Provider)
		if err := s.users.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("link provider: %w", err)
		}
	}
	return s.tokens.Issue(user)
}

func (s *accountService) sessionUser(ctx context.Context, current *Session) (*models.User, error) {
	if current == nil {
		return nil, ErrInvalidToken
	}
	user, err := s.users.FindByID(ctx, current.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user.Email != normalizeEmail(current.Email) {
		return nil, ErrSessionMismatch
	}
	return user, nil
}

func (s *accountService) LinkPassword(ctx context.Context, current *Session, password string) (*Session, error) {
	user, err := s.sessionUser(ctx, current)
	if err != nil {
		return nil, err
	}
	if user.HasProvider(models.ProviderPassword) {
		return nil, ErrEmailExists
	}
	hash, err := s.hash(password)
	if err != nil {
		return nil, err
	}
	return s.attachPassword(ctx, user, hash)
}

func (s *accountService) ChangePassword(ctx context.Context, current *Session, oldPassword, newPassword string) (*Session, error) {
	user, err := s.sessionUser(ctx, current)
	if err != nil {
		return nil, err
	}
	if user.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)) != nil {
		return nil, ErrWrongPassword
	}
	hash, err := s.hash(newPassword)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("change password: %w", err)
	}
	return s.tokens.Issue(user)
}

// Refresh reissues a token from the stored account so role changes apply.
func (s *accountService) Refresh(ctx context.Context, current *Session) (*Session, error) {
	user, err := s.sessionUser(ctx, current)
	if err != nil {
		return nil, err
	}
	return s.tokens.Issue(user)
}

func (s *accountService) Me(ctx context.Context, current *Session) (*models.User, error) {
	return s.sessionUser(ctx, current)
}
