// Package usecase implements the user business logic and orchestrates user domain operations.
package usecase

import (
	"context"
	"strings"

	validation "github.com/jellydator/validation"

	"github.com/google/uuid"

	"github.com/crystallogic/accounts/internal/database"
	apperrors "github.com/crystallogic/accounts/internal/errors"
	"github.com/crystallogic/accounts/internal/user/domain"
	appValidation "github.com/crystallogic/accounts/internal/validation"
)

// CreateUserInput contains the input data for user registration.
type CreateUserInput struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

// UpdateUserInput contains the fields a user update may change. Nil fields
// are left untouched. IsActive and IsAdmin may only be changed by
// administrators.
type UpdateUserInput struct {
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Password  *string `json:"password"`
	IsActive  *bool   `json:"is_active"`
	IsAdmin   *bool   `json:"is_admin"`
}

// PasswordHasher hashes plaintext passwords for storage.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// UseCase defines the interface for user business logic operations.
type UseCase interface {
	// Create registers a new account. New accounts start inactive and
	// without administrator privileges.
	Create(ctx context.Context, input CreateUserInput) (*domain.User, error)

	// Get returns the user with the given id. The actor must be the user
	// themselves or an administrator.
	Get(ctx context.Context, actor *domain.User, id uuid.UUID) (*domain.User, error)

	// List returns a page of users. Administrators only.
	List(ctx context.Context, actor *domain.User, offset, limit int) ([]*domain.User, error)

	// Update applies the non-nil fields of input to the user with the given
	// id. The actor must be the user themselves or an administrator;
	// activation and privilege changes are administrator-only.
	Update(ctx context.Context, actor *domain.User, id uuid.UUID, input UpdateUserInput) (*domain.User, error)

	// Delete removes the user with the given id. The actor must be the user
	// themselves or an administrator.
	Delete(ctx context.Context, actor *domain.User, id uuid.UUID) error

	// ListIPs returns the login source addresses recorded for the user with
	// the given id, newest first. The actor must be the user themselves or
	// an administrator.
	ListIPs(ctx context.Context, actor *domain.User, id uuid.UUID) ([]*domain.PublicIP, error)

	// GetByUsername returns the user with the given username. Used by the
	// authentication flow, no actor check.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// EnsureAdmin creates the administrator account described by input if no
	// user with that username exists yet. The account is created active and
	// with administrator privileges. Idempotent.
	EnsureAdmin(ctx context.Context, input CreateUserInput) (*domain.User, error)
}

// Repository defines the user repository operations the usecase depends on.
type Repository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, offset, limit int) ([]*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id uuid.UUID) error
	RecordLoginIP(ctx context.Context, userID uuid.UUID, address string) error
	ListIPs(ctx context.Context, userID uuid.UUID) ([]*domain.PublicIP, error)
}

// UserUseCase handles user-related business logic.
type UserUseCase struct {
	txManager database.TxManager
	userRepo  Repository
	hasher    PasswordHasher
}

// NewUserUseCase creates a new UserUseCase.
func NewUserUseCase(
	txManager database.TxManager,
	userRepo Repository,
	hasher PasswordHasher,
) *UserUseCase {
	return &UserUseCase{
		txManager: txManager,
		userRepo:  userRepo,
		hasher:    hasher,
	}
}

var passwordRules = []validation.Rule{
	validation.Required.Error("password is required"),
	validation.Length(8, 128).Error("password must be between 8 and 128 characters"),
	appValidation.PasswordStrength{
		MinLength:     8,
		RequireUpper:  true,
		RequireLower:  true,
		RequireNumber: true,
	},
}

func (uc *UserUseCase) validateCreateUserInput(input CreateUserInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.Username,
			validation.Required.Error("username is required"),
			appValidation.NotBlank,
			appValidation.Username,
			validation.Length(3, 64).Error("username must be between 3 and 64 characters"),
		),
		validation.Field(&input.Email,
			validation.Required.Error("email is required"),
			appValidation.NotBlank,
			appValidation.Email,
			validation.Length(5, 255).Error("email must be between 5 and 255 characters"),
		),
		validation.Field(&input.FirstName,
			validation.Length(0, 255).Error("first name must be at most 255 characters"),
		),
		validation.Field(&input.LastName,
			validation.Length(0, 255).Error("last name must be at most 255 characters"),
		),
		validation.Field(&input.Password, passwordRules...),
	)
	return appValidation.WrapValidationError(err)
}

func (uc *UserUseCase) validateUpdateUserInput(input UpdateUserInput) error {
	var fields []*validation.FieldRules
	if input.Email != nil {
		fields = append(fields, validation.Field(&input.Email,
			appValidation.NotBlank,
			appValidation.Email,
		))
	}
	if input.Password != nil {
		fields = append(fields, validation.Field(&input.Password, passwordRules...))
	}

	if len(fields) == 0 {
		return nil
	}
	return appValidation.WrapValidationError(validation.ValidateStruct(&input, fields...))
}

// Create registers a new user. The account starts inactive until an
// administrator activates it.
func (uc *UserUseCase) Create(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	if err := uc.validateCreateUserInput(input); err != nil {
		return nil, err
	}

	hashedPassword, err := uc.hasher.Hash(input.Password)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to hash password")
	}

	user := &domain.User{
		ID:        uuid.Must(uuid.NewV7()),
		Username:  strings.TrimSpace(input.Username),
		Email:     strings.TrimSpace(strings.ToLower(input.Email)),
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Password:  hashedPassword,
		IsActive:  false,
		IsAdmin:   false,
	}

	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Get returns a user by id after checking the actor may see it.
func (uc *UserUseCase) Get(ctx context.Context, actor *domain.User, id uuid.UUID) (*domain.User, error) {
	if !actor.CanActOn(id) {
		return nil, domain.ErrNotAllowed
	}
	return uc.userRepo.GetByID(ctx, id)
}

// List returns a page of users. Administrators only.
func (uc *UserUseCase) List(ctx context.Context, actor *domain.User, offset, limit int) ([]*domain.User, error) {
	if !actor.IsAdmin {
		return nil, domain.ErrAdminOnly
	}
	return uc.userRepo.List(ctx, offset, limit)
}

// Update applies the non-nil fields of input to the target user.
func (uc *UserUseCase) Update(
	ctx context.Context,
	actor *domain.User,
	id uuid.UUID,
	input UpdateUserInput,
) (*domain.User, error) {
	if !actor.CanActOn(id) {
		return nil, domain.ErrNotAllowed
	}
	if (input.IsActive != nil || input.IsAdmin != nil) && !actor.IsAdmin {
		return nil, domain.ErrAdminOnly
	}
	if err := uc.validateUpdateUserInput(input); err != nil {
		return nil, err
	}

	var user *domain.User
	err := uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		var err error
		user, err = uc.userRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if input.Email != nil {
			user.Email = strings.TrimSpace(strings.ToLower(*input.Email))
		}
		if input.FirstName != nil {
			user.FirstName = strings.TrimSpace(*input.FirstName)
		}
		if input.LastName != nil {
			user.LastName = strings.TrimSpace(*input.LastName)
		}
		if input.Password != nil {
			hashed, err := uc.hasher.Hash(*input.Password)
			if err != nil {
				return apperrors.Wrap(err, "failed to hash password")
			}
			user.Password = hashed
		}
		if input.IsActive != nil {
			user.IsActive = *input.IsActive
		}
		if input.IsAdmin != nil {
			user.IsAdmin = *input.IsAdmin
		}

		return uc.userRepo.Update(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// Delete removes the target user.
func (uc *UserUseCase) Delete(ctx context.Context, actor *domain.User, id uuid.UUID) error {
	if !actor.CanActOn(id) {
		return domain.ErrNotAllowed
	}
	return uc.userRepo.Delete(ctx, id)
}

// ListIPs returns the login addresses recorded for the target user. The
// target must exist so an unknown id is reported as not found rather than
// as an empty set.
func (uc *UserUseCase) ListIPs(ctx context.Context, actor *domain.User, id uuid.UUID) ([]*domain.PublicIP, error) {
	if !actor.CanActOn(id) {
		return nil, domain.ErrNotAllowed
	}
	if _, err := uc.userRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return uc.userRepo.ListIPs(ctx, id)
}

// GetByUsername returns a user by username.
func (uc *UserUseCase) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return uc.userRepo.GetByUsername(ctx, username)
}

// EnsureAdmin creates the seed administrator account if it does not exist.
func (uc *UserUseCase) EnsureAdmin(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	existing, err := uc.userRepo.GetByUsername(ctx, input.Username)
	if err == nil {
		return existing, nil
	}
	if !apperrors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	if err := uc.validateCreateUserInput(input); err != nil {
		return nil, err
	}

	hashedPassword, err := uc.hasher.Hash(input.Password)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to hash password")
	}

	user := &domain.User{
		ID:        uuid.Must(uuid.NewV7()),
		Username:  strings.TrimSpace(input.Username),
		Email:     strings.TrimSpace(strings.ToLower(input.Email)),
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Password:  hashedPassword,
		IsActive:  true,
		IsAdmin:   true,
	}

	if err := uc.userRepo.Create(ctx, user); err != nil {
		// Lost a race with another instance seeding the same account.
		if apperrors.Is(err, apperrors.ErrConflict) {
			return uc.userRepo.GetByUsername(ctx, input.Username)
		}
		return nil, err
	}

	return user, nil
}
