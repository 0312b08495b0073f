// Package dto provides data transfer objects for the user HTTP layer.
package dto

import (
	validation "github.com/jellydator/validation"

	appValidation "github.com/crystallogic/accounts/internal/validation"
)

// CreateUserRequest represents the API request for account registration.
type CreateUserRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

// Validate checks the registration request. Deep validation (password
// strength, username charset) lives in the use case; this catches the shape
// errors early.
func (r *CreateUserRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Username,
			validation.Required.Error("username is required"),
			appValidation.NotBlank,
		),
		validation.Field(&r.Email,
			validation.Required.Error("email is required"),
			appValidation.NotBlank,
		),
		validation.Field(&r.Password,
			validation.Required.Error("password is required"),
		),
	)
}

// UpdateUserRequest represents the API request for a partial account update.
// Nil fields are left untouched.
type UpdateUserRequest struct {
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Password  *string `json:"password"`
	IsActive  *bool   `json:"is_active"`
	IsAdmin   *bool   `json:"is_admin"`
}

// Validate checks the update request.
func (r *UpdateUserRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Email,
			validation.NilOrNotEmpty.Error("email must not be empty"),
		),
		validation.Field(&r.Password,
			validation.NilOrNotEmpty.Error("password must not be empty"),
		),
	)
}
