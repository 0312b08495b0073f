// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/crystallogic/accounts/internal/validation"
)

// LoginRequest contains the credentials presented to the token endpoint.
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// Validate checks if the login request is valid.
func (r *LoginRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Username,
			validation.Required,
			customValidation.NotBlank,
		),
		validation.Field(&r.Password,
			validation.Required,
			customValidation.NotBlank,
		),
	)
}
