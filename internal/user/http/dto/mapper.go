// Package dto provides data transfer objects for the user HTTP layer.
package dto

import (
	"github.com/crystallogic/accounts/internal/user/domain"
	"github.com/crystallogic/accounts/internal/user/usecase"
)

// ToCreateUserInput converts a CreateUserRequest to the use case input.
func ToCreateUserInput(req CreateUserRequest) usecase.CreateUserInput {
	return usecase.CreateUserInput{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	}
}

// ToUpdateUserInput converts an UpdateUserRequest to the use case input.
func ToUpdateUserInput(req UpdateUserRequest) usecase.UpdateUserInput {
	return usecase.UpdateUserInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
		IsActive:  req.IsActive,
		IsAdmin:   req.IsAdmin,
	}
}

// ToUserResponse converts a domain user to its response representation.
func ToUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		IsActive:  user.IsActive,
		IsAdmin:   user.IsAdmin,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

// ToListUsersResponse converts a page of domain users to its response
// representation.
func ToListUsersResponse(users []*domain.User, offset, limit int) ListUsersResponse {
	responses := make([]UserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, ToUserResponse(user))
	}
	return ListUsersResponse{
		Users:  responses,
		Offset: offset,
		Limit:  limit,
	}
}

// ToListIPsResponse converts recorded login addresses to their response
// representation.
func ToListIPsResponse(ips []*domain.PublicIP) ListIPsResponse {
	responses := make([]PublicIPResponse, 0, len(ips))
	for _, ip := range ips {
		responses = append(responses, PublicIPResponse{
			Address:   ip.Address,
			CreatedAt: ip.CreatedAt,
		})
	}
	return ListIPsResponse{IPs: responses}
}
