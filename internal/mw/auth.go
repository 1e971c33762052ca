package mw

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"carshop-display-backend/internal/hub"
)

const actorKey = "actor"

// Claims are the fields read from an operator token.
type Claims struct {
	Username string   `json:"username"`
	UserID   string   `json:"userId"`
	Role     []string `json:"role"`
	jwt.RegisteredClaims
}

// mutatingRoles may assign and clear screens or edit the catalog.
var mutatingRoles = []string{"admin", "operator"}

// Actor resolves the bearer token into a hub.Actor on the context.
// Requests without a valid token carry an anonymous, unauthorized actor.
// An empty secret disables token checking entirely, so nobody may mutate.
func Actor(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		actor := hub.Actor{Name: "anonymous"}
		if claims, ok := parseBearer(c.GetHeader("Authorization"), key); ok {
			actor.Name = claims.Username
			if actor.Name == "" {
				actor.Name = claims.UserID
			}
			actor.Authorized = slices.ContainsFunc(claims.Role, func(r string) bool {
				return slices.Contains(mutatingRoles, strings.ToLower(r))
			})
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

// RequireOperator rejects requests whose actor may not mutate.
func RequireOperator() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ActorFrom(c).Authorized {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "operator token required"})
			return
		}
		c.Next()
	}
}

// ActorFrom returns the actor set by Actor, or an anonymous one.
func ActorFrom(c *gin.Context) hub.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(hub.Actor); ok {
			return actor
		}
	}
	return hub.Actor{Name: "anonymous"}
}

func parseBearer(header string, key []byte) (*Claims, bool) {
	if len(key) == 0 {
		return nil, false
	}
	tokenString, found := strings.CutPrefix(header, "Bearer ")
	if !found || tokenString == "" {
		return nil, false
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, false
	}
	return claims, true
}
