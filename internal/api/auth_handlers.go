package api

import (
	"errors"
	"fmt"
	"net/http"

	"farmlink/internal/models"
	"farmlink/internal/router"

	"github.com/gin-gonic/gin"
)

// SessionResponse is the caller's resolved session and where the client should land.
type SessionResponse struct {
	Session models.Session `json:"session"`
	Landing string         `json:"landing"`
}

func (s *Server) signUp(c *gin.Context) {
	var req models.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("%w: %v", models.ErrInvalidInput, err))
		return
	}
	identity, err := s.deps.Auth.SignUp(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, identity)
}

func (s *Server) signIn(c *gin.Context) {
	var creds models.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		s.writeError(c, fmt.Errorf("%w: %v", models.ErrInvalidInput, err))
		return
	}
	identity, err := s.deps.Auth.SignIn(c.Request.Context(), creds)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, identity)
}

func (s *Server) signOut(c *gin.Context) {
	if err := s.deps.Auth.SignOut(c.Request.Context(), actorFrom(c).UserID); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) session(c *gin.Context) {
	actor := actorFrom(c)
	identity, err := s.deps.Auth.Identity(c.Request.Context(), actor.UserID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	sess := models.Session{
		UserID:          identity.UserID,
		Email:           identity.Email,
		Role:            actor.Role,
		IsAuthenticated: true,
		UserName:        models.DisplayName(identity.Metadata.FullName, identity.Email),
	}
	c.JSON(http.StatusOK, SessionResponse{Session: sess, Landing: router.LandingRoute(sess)})
}

// canRead lets users read their own records and admins read anyone's.
func canRead(c *gin.Context, userID string) bool {
	actor := actorFrom(c)
	return actor.UserID == userID || actor.Role == models.RoleAdmin
}

func (s *Server) profile(c *gin.Context) {
	userID := c.Param("id")
	if !canRead(c, userID) {
		s.writeError(c, models.ErrForbidden)
		return
	}
	profile, err := s.deps.Auth.LookupProfile(c.Request.Context(), userID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (s *Server) profileRole(c *gin.Context) {
	userID := c.Param("id")
	if !canRead(c, userID) {
		s.writeError(c, models.ErrForbidden)
		return
	}
	role, err := s.deps.Auth.LookupRole(c.Request.Context(), userID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"userId": userID, "role": role})
}

type roleUpdate struct {
	Role string `json:"role" binding:"required"`
}

func (s *Server) listUsers(c *gin.Context) {
	users, err := s.deps.Users.ListUsers(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (s *Server) updateRole(c *gin.Context) {
	var body roleUpdate
	if err := c.ShouldBindJSON(&body); err != nil {
		s.writeError(c, fmt.Errorf("%w: %v", models.ErrInvalidInput, err))
		return
	}
	role := models.ParseRole(body.Role)
	userID := c.Param("id")
	err := s.deps.Auth.UpdateRole(c.Request.Context(), userID, role)
	if errors.Is(err, models.ErrNotFound) {
		s.writeError(c, fmt.Errorf("user %s: %w", userID, err))
		return
	}
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"userId": userID, "role": role})
}
