package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"care-assess/internal/model"
	"care-assess/internal/store"
)

var bcryptCost = 14

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return string(bytes), err
}

type credentials struct {
	Email    string `json:"email" form:"email" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

func (s *server) performLogin(c *gin.Context) {
	var in credentials
	if err := c.ShouldBind(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	user := s.findUser(c.Request.Context(), strings.ToLower(in.Email), in.Password)
	if user == nil {
		// If the email/password combination is invalid, say so without
		// telling which part was wrong
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials provided"})
		return
	}

	// If the email/password is valid, save the user to session
	session := sessions.Default(c)
	session.Set("user_id", user.ID)
	if err := session.Save(); err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func logout(c *gin.Context) {
	// Clear the cookie
	session := sessions.Default(c)
	session.Delete("user_id")
	session.Save()

	c.Status(http.StatusNoContent)
}

func (s *server) me(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

// Check if the email and password combination is valid
func (s *server) findUser(ctx context.Context, email, password string) *model.User {
	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil
	}
	return user
}

// createUser hashes the password and stores a new account
func (s *server) createUser(ctx context.Context, email, password, names string, role model.Role) (*model.User, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("could not hash password: %w", err)
	}
	user := &model.User{Email: strings.ToLower(email), Password: hash, Names: names, Role: role}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("could not create user: %w", err)
	}
	return user, nil
}

// seedAdmin creates the first admin account when it does not exist yet
func (s *server) seedAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	_, err := s.store.FindUserByEmail(ctx, strings.ToLower(email))
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	user, err := s.createUser(ctx, email, password, "Administrator", model.RoleAdmin)
	if err != nil {
		return err
	}
	s.log.WithField("user_id", user.ID).Info("admin user created")
	return nil
}

// This middleware loads the user of the session, if any
func (s *server) setUserStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)

		userID, ok := session.Get("user_id").(uint)
		if !ok {
			c.Set("is_logged_in", false)
			return
		}
		user, err := s.store.GetUser(c.Request.Context(), userID)
		if err != nil {
			// The account is gone, forget the session
			session.Delete("user_id")
			session.Save()
			c.Set("is_logged_in", false)
			return
		}
		c.Set("is_logged_in", true)
		c.Set("user", user)
	}
}

// This middleware ensures that a request will be aborted with an error
// if the user is not logged in
func ensureLoggedIn() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool("is_logged_in") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required"})
		}
	}
}

// This middleware ensures that a request will be aborted with an error
// if the user is already logged in
func ensureNotLoggedIn() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetBool("is_logged_in") {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "already logged in"})
		}
	}
}

// This middleware lets only admins through
func ensureAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required"})
			return
		}
		if user.Role != model.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
		}
	}
}

func currentUser(c *gin.Context) *model.User {
	if v, ok := c.Get("user"); ok {
		if user, ok := v.(*model.User); ok {
			return user
		}
	}
	return nil
}

// canAccess reports whether the user may see the case: admins see all,
// members only those assigned to them
func canAccess(user *model.User, cs *model.Case) bool {
	if user == nil || cs == nil {
		return false
	}
	if user.Role == model.RoleAdmin {
		return true
	}
	return cs.AssigneeID != nil && *cs.AssigneeID == user.ID
}
