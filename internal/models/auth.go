package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the payload of access tokens issued by the identity service.
// TeacherID is present for staff accounts linked to a teacher record.
type JWTClaims struct {
	UserID    string   `json:"user_id"`
	Role      UserRole `json:"role"`
	Email     string   `json:"email"`
	FullName  string   `json:"full_name"`
	TeacherID *int64   `json:"teacher_id,omitempty"`
	jwt.RegisteredClaims
}
