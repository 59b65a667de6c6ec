package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the structure of the JSON Web Token (JWT) claims for StudySync.
// It includes standard claims required by the JWT specification and the custom
// claims necessary for identifying users on the realtime and REST surfaces.
type Payload struct {
	// StandardClaims embeds the necessary JWT standard fields such as Exp (Expiration),
	// Iat (Issued At), and Iss (Issuer). These are crucial for token validity checks.
	jwt.StandardClaims `json:"standard_claims"`

	// UserID is the unique identifier of the authenticated user.
	UserID string `json:"user_id"`

	// DisplayName is the user's display name, carried so the realtime layer can
	// label events without a directory lookup on every message.
	DisplayName string `json:"display_name"`
}
