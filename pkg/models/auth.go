package models

import "github.com/golang-jwt/jwt/v5"

// IDTokenClaims are the Firebase ID token claims this service reads.
type IDTokenClaims struct {
	Email         string `json:"email,omitempty"`
	Name          string `json:"name,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the verified caller. UserID is the token subject.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
}

type SetPlanRequest struct {
	Plan PlanName `json:"plan" validate:"required,oneof=free light premium"`
}
