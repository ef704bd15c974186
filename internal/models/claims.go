package models

import "github.com/golang-jwt/jwt/v5"

const RoleAdmin = "admin"

// AdminClaims are carried by the tokens issued on admin login.
type AdminClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// IsAdmin checks if the claims grant the admin role.
func (c *AdminClaims) IsAdmin() bool {
	return c.Role == RoleAdmin
}
