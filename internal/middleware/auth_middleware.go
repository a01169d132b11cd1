package middleware

import (
	"strings"

	"lifeline/internal/models"
	"lifeline/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// JWTClaims carries the identity the gateway mints into access tokens.
type JWTClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// AuthRequired validates the bearer token and sets user_id and role on
// the request context. Role values outside the known set are rejected
// here so downstream code never sees an unknown role.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.ErrorResponse(c, 401, string(utils.ErrKindUnauthorized), "Authorization header required")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			utils.ErrorResponse(c, 401, string(utils.ErrKindUnauthorized), "Bearer token required")
			c.Abort()
			return
		}

		token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			utils.ErrorResponse(c, 401, string(utils.ErrKindUnauthorized), "Invalid token")
			c.Abort()
			return
		}

		claims, ok := token.Claims.(*JWTClaims)
		if !ok {
			utils.ErrorResponse(c, 401, string(utils.ErrKindUnauthorized), "Invalid token claims")
			c.Abort()
			return
		}

		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			utils.ErrorResponse(c, 401, string(utils.ErrKindUnauthorized), "Invalid user ID in token")
			c.Abort()
			return
		}

		role, ok := models.ParseRole(claims.Role)
		if !ok {
			utils.ErrorResponse(c, 401, string(utils.ErrKindUnauthorized), "Unknown role in token")
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		c.Set("role", string(role))

		c.Next()
	}
}

// RoleRequired ensures the authenticated caller holds one of the given
// roles. Admin passes every role gate.
func RoleRequired(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleValue, exists := c.Get("role")
		if !exists {
			utils.UnauthorizedResponse(c)
			c.Abort()
			return
		}

		role, ok := roleValue.(string)
		if !ok {
			utils.UnauthorizedResponse(c)
			c.Abort()
			return
		}

		if role == string(models.RoleAdmin) {
			c.Next()
			return
		}

		for _, allowed := range roles {
			if role == string(allowed) {
				c.Next()
				return
			}
		}

		utils.ForbiddenResponse(c)
		c.Abort()
	}
}

func PoliceRequired() gin.HandlerFunc {
	return RoleRequired(models.RolePolice)
}

func HospitalRequired() gin.HandlerFunc {
	return RoleRequired(models.RoleHospitalStaff)
}

func DriverRequired() gin.HandlerFunc {
	return RoleRequired(models.RoleAmbulanceDriver)
}

func PatientRequired() gin.HandlerFunc {
	return RoleRequired(models.RolePatient)
}

// CurrentUserID extracts the authenticated caller id set by AuthRequired.
func CurrentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	value, exists := c.Get("user_id")
	if !exists {
		return primitive.NilObjectID, false
	}
	id, ok := value.(primitive.ObjectID)
	return id, ok
}
