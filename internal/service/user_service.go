package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"accounts-api/internal/domain"
	"accounts-api/internal/repository"
)

// Mailer define los correos transaccionales que dispara el servicio de usuarios.
type Mailer interface {
	SendWelcomeEmail(ctx context.Context, toEmail, name string) error
	SendPasswordResetEmail(ctx context.Context, toEmail, name, token string) error
}

// UserService coordina reglas de negocio para usuarios.
type UserService struct {
	logger          *zap.Logger
	users           repository.UserRepository
	tokens          *TokenService
	mailer          Mailer
	recoveryLimiter RecoveryRateLimiter
}

func NewUserService(logger *zap.Logger, users repository.UserRepository, tokens *TokenService, mailer Mailer, recoveryLimiter RecoveryRateLimiter) *UserService {
	if recoveryLimiter == nil {
		recoveryLimiter = NewRecoveryRateLimiter(recoveryWindow, 3)
	}
	return &UserService{
		logger:          logger,
		users:           users,
		tokens:          tokens,
		mailer:          mailer,
		recoveryLimiter: recoveryLimiter,
	}
}

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrSamePassword       = errors.New("new password equals current password")
	ErrSelfDelete         = errors.New("cannot delete own account via admin path")
	ErrEmailSendFailure   = errors.New("email send failed")
	ErrRateLimited        = errors.New("rate limited")
)

const recoveryWindow = 10 * time.Minute

type RegisterInput struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	PhoneNumber string
}

// Register crea un usuario nuevo con status basic y password hasheado.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (domain.User, error) {
	emailAddr := normalizeEmail(input.Email)
	if emailAddr == "" {
		return domain.User{}, ErrInvalidEmail
	}
	if strings.TrimSpace(input.Password) == "" {
		return domain.User{}, ErrInvalidCredentials
	}

	if _, err := s.users.GetByEmail(ctx, emailAddr); err == nil {
		return domain.User{}, ErrEmailTaken
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		ID:             uuid.NewString(),
		Email:          emailAddr,
		FirstName:      strings.TrimSpace(input.FirstName),
		LastName:       strings.TrimSpace(input.LastName),
		PhoneNumber:    strings.TrimSpace(input.PhoneNumber),
		Status:         domain.StatusBasic,
		HashedPassword: hash,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		// El índice único cubre registros concurrentes con el mismo email.
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, err
	}

	if s.mailer != nil {
		if err := s.mailer.SendWelcomeEmail(ctx, user.Email, user.FirstName); err != nil {
			s.logger.Warn("send welcome email failed", zap.Error(err), zap.String("email", user.Email))
		}
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id string) (domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, ErrUserNotFound
	}
	return user, err
}

func (s *UserService) GetByEmail(ctx context.Context, emailAddr string) (domain.User, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(emailAddr))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, ErrUserNotFound
	}
	return user, err
}

// Authenticate devuelve ErrInvalidCredentials tanto para email desconocido como
// para password incorrecto; el caller no puede distinguirlos.
func (s *UserService) Authenticate(ctx context.Context, emailAddr, password string) (domain.User, error) {
	emailAddr = normalizeEmail(emailAddr)
	password = strings.TrimSpace(password)
	if emailAddr == "" || password == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if user.HashedPassword == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	if !VerifyPassword(password, user.HashedPassword) {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

type UpdateInput struct {
	Email       *string
	FirstName   *string
	LastName    *string
	PhoneNumber *string
	Status      *domain.UserStatus
	Password    *string
}

// Update aplica solo los campos provistos; si viene password, lo rehashea.
func (s *UserService) Update(ctx context.Context, user domain.User, input UpdateInput) (domain.User, error) {
	if input.Email != nil {
		emailAddr := normalizeEmail(*input.Email)
		if emailAddr == "" {
			return domain.User{}, ErrInvalidEmail
		}
		if emailAddr != user.Email {
			existing, err := s.users.GetByEmail(ctx, emailAddr)
			if err == nil && existing.ID != user.ID {
				return domain.User{}, ErrEmailTaken
			}
			if err != nil && !errors.Is(err, pgx.ErrNoRows) {
				return domain.User{}, err
			}
		}
		user.Email = emailAddr
	}
	if input.FirstName != nil {
		user.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		user.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.PhoneNumber != nil {
		user.PhoneNumber = strings.TrimSpace(*input.PhoneNumber)
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return domain.User{}, errors.New("invalid status")
		}
		user.Status = *input.Status
	}
	if input.Password != nil && strings.TrimSpace(*input.Password) != "" {
		hash, err := HashPassword(*input.Password)
		if err != nil {
			return domain.User{}, err
		}
		user.HashedPassword = hash
	}

	if err := s.users.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			return domain.User{}, ErrEmailTaken
		case errors.Is(err, pgx.ErrNoRows):
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	now := time.Now().UTC()
	user.UpdatedAt = &now
	return user, nil
}

// UpdatePassword cambia el password verificando primero el actual.
func (s *UserService) UpdatePassword(ctx context.Context, user domain.User, currentPassword, newPassword string) error {
	if !VerifyPassword(currentPassword, user.HashedPassword) {
		return ErrInvalidCredentials
	}
	if currentPassword == newPassword {
		return ErrSamePassword
	}
	_, err := s.Update(ctx, user, UpdateInput{Password: &newPassword})
	return err
}

// ResetPassword fija un password nuevo para el email dado (flujo de recovery).
func (s *UserService) ResetPassword(ctx context.Context, emailAddr, newPassword string) error {
	user, err := s.GetByEmail(ctx, emailAddr)
	if err != nil {
		return err
	}
	_, err = s.Update(ctx, user, UpdateInput{Password: &newPassword})
	return err
}

// GetOrCreate resuelve un usuario por email o lo registra con un password
// placeholder aleatorio; lo usan los flujos SSO.
func (s *UserService) GetOrCreate(ctx context.Context, emailAddr, firstName, lastName string) (domain.User, error) {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return domain.User{}, ErrInvalidEmail
	}
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}

	placeholder, err := randomPassword()
	if err != nil {
		return domain.User{}, err
	}
	user, err = s.Register(ctx, RegisterInput{
		Email:     emailAddr,
		Password:  placeholder,
		FirstName: firstName,
		LastName:  lastName,
	})
	if errors.Is(err, ErrEmailTaken) {
		// Otro callback concurrente ganó la carrera; el registro existente sirve.
		return s.GetByEmail(ctx, emailAddr)
	}
	return user, err
}

// Delete elimina la cuenta indicada (auto-borrado).
func (s *UserService) Delete(ctx context.Context, id string) error {
	err := s.users.Delete(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrUserNotFound
	}
	return err
}

// DeleteByAdmin elimina otra cuenta; el admin no puede borrarse a sí mismo.
func (s *UserService) DeleteByAdmin(ctx context.Context, actingUserID, targetID string) error {
	if actingUserID == targetID {
		return ErrSelfDelete
	}
	return s.Delete(ctx, targetID)
}

// RecoverPassword emite un token de reseteo y lo envía por correo.
func (s *UserService) RecoverPassword(ctx context.Context, emailAddr string) error {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return ErrInvalidEmail
	}
	if s.recoveryLimiter != nil && !s.recoveryLimiter.Allow(emailAddr) {
		return ErrRateLimited
	}
	user, err := s.GetByEmail(ctx, emailAddr)
	if err != nil {
		return err
	}
	token, err := s.tokens.CreateResetToken(user.Email)
	if err != nil {
		return err
	}
	if s.mailer == nil {
		return ErrEmailSendFailure
	}
	if err := s.mailer.SendPasswordResetEmail(ctx, user.Email, user.FirstName, token); err != nil {
		s.logger.Warn("send password reset email failed", zap.Error(err), zap.String("email", user.Email))
		return ErrEmailSendFailure
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
