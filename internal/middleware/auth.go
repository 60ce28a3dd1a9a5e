package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"salesboard/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Context keys set by the auth middleware
const (
	ContextUserID    = "userID"
	ContextProjectID = "projectID"
)

// MembershipChecker answers whether a user may read a project's data.
type MembershipChecker interface {
	IsMember(ctx context.Context, projectID, userID uuid.UUID) (bool, error)
}

var (
	jwtSecret []byte
	members   MembershipChecker
)

// InitAuth sets the token secret and membership source used by the
// middleware and the websocket endpoint.
func InitAuth(secret []byte, checker MembershipChecker) {
	jwtSecret = secret
	members = checker
}

func JWTSecret() []byte {
	return jwtSecret
}

// ParseUserID validates an HMAC-signed token and returns its subject.
func ParseUserID(tokenString string, secret []byte) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	if !token.Valid {
		return uuid.Nil, errors.New("token is not valid")
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return uuid.Nil, errors.New("subject not found in token")
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("subject is not a user id: %w", err)
	}
	return id, nil
}

// bearerToken reads the access_token cookie, falling back to the
// Authorization header.
func bearerToken(c *gin.Context) (string, string) {
	if tokenString, err := c.Cookie("access_token"); err == nil && tokenString != "" {
		return tokenString, ""
	}
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", "Authorization is missing"
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", "Invalid authorization format. Expected 'Bearer <token>'"
	}
	return parts[1], ""
}

// RequireAuth validates the JWT and stores the user id in the context
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, msg := bearerToken(c)
		if msg != "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, msg))
			return
		}

		userID, err := ParseUserID(tokenString, jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token: "+err.Error()))
			return
		}

		c.Set(ContextUserID, userID)
		c.Next()
	}
}

// RequireProjectMember checks that the authenticated user belongs to the
// project named by the :projectId route parameter. Must run after RequireAuth.
func RequireProjectMember() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authentication required"))
			return
		}

		projectID, err := uuid.Parse(c.Param("projectId"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid project id"))
			return
		}

		member, err := IsProjectMember(c.Request.Context(), projectID, userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to verify project access"))
			return
		}
		if !member {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: not a member of this project"))
			return
		}

		c.Set(ContextProjectID, projectID)
		c.Next()
	}
}

func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

func ProjectID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextProjectID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// --- Membership cache ---

type memberCacheEntry struct {
	member    bool
	expiresAt time.Time
}

var (
	memberCache    sync.Map // "projectID:userID" -> memberCacheEntry
	memberCacheTTL = 5 * time.Minute
)

func memberKey(projectID, userID uuid.UUID) string {
	return projectID.String() + ":" + userID.String()
}

// IsProjectMember answers from the cache when possible. Lookup errors are
// not cached.
func IsProjectMember(ctx context.Context, projectID, userID uuid.UUID) (bool, error) {
	key := memberKey(projectID, userID)
	if entry, ok := memberCache.Load(key); ok {
		cached := entry.(memberCacheEntry)
		if time.Now().Before(cached.expiresAt) {
			return cached.member, nil
		}
	}

	if members == nil {
		return false, fmt.Errorf("auth middleware not initialized")
	}
	member, err := members.IsMember(ctx, projectID, userID)
	if err != nil {
		return false, err
	}

	memberCache.Store(key, memberCacheEntry{
		member:    member,
		expiresAt: time.Now().Add(memberCacheTTL),
	})
	return member, nil
}

// ClearMembershipCache drops cached answers for one project (or all
// projects if projectID is uuid.Nil)
func ClearMembershipCache(projectID uuid.UUID) {
	prefix := projectID.String() + ":"
	memberCache.Range(func(key, _ interface{}) bool {
		if projectID == uuid.Nil || strings.HasPrefix(key.(string), prefix) {
			memberCache.Delete(key)
		}
		return true
	})
}
