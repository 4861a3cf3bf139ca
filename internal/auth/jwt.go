package auth

import (
	"fmt"
	"os"
	"time"

	"github.com/buildsite-dev/buildsite/internal/types"
	"github.com/golang-jwt/jwt/v5"
)

var jwtSecret string

func InitJWTSecret() error {
	jwtSecret = os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is not set")
	}
	return nil
}

// GenerateJWT mints a token carrying the identity's authorization claims.
// The claim set is a snapshot: clients hold it until they force a refresh.
func GenerateJWT(uid string, email string, claims types.Claims) (string, error) {
	mapClaims := jwt.MapClaims{
		"sub":              uid,
		"email":            email,
		"role":             claims.Role,
		"assignedModules":  claims.AssignedModules,
		"assignedProjects": claims.AssignedProjects,
		"exp":              time.Now().Add(time.Hour * 168).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, mapClaims)
	return token.SignedString([]byte(jwtSecret))
}

func VerifyJWT(tokenString string) (*jwt.Token, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})

	if err != nil || !token.Valid {
		return nil, fmt.Errorf("Invalid or expired token")
	}

	return token, nil
}

// ExtractClaims pulls the subject, email and authorization claims out of a
// verified token.
func ExtractClaims(token *jwt.Token) (uid string, email string, claims types.Claims, err error) {
	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", types.Claims{}, fmt.Errorf("Invalid token claims")
	}

	uid = toString(mapClaims["sub"])
	if uid == "" {
		return "", "", types.Claims{}, fmt.Errorf("Missing subject in token claims")
	}

	claims = types.Claims{
		Role:             toString(mapClaims["role"]),
		AssignedModules:  toStringSlice(mapClaims["assignedModules"]),
		AssignedProjects: toStringSlice(mapClaims["assignedProjects"]),
	}

	return uid, toString(mapClaims["email"]), claims, nil
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func toStringSlice(v interface{}) []string {
	switch arr := v.(type) {
	case []string:
		return arr
	case []interface{}:
		res := make([]string, 0, len(arr))
		for _, item := range arr {
			if s, ok := item.(string); ok {
				res = append(res, s)
			}
		}
		return res
	}
	return nil
}
