package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"care-assess/internal/model"
	"care-assess/internal/store"
)

func (s *server) initializeRoutes(app *gin.Engine) {

	// Use the setUserStatus middleware for every route to load the user
	// of the session, if any
	app.Use(s.setUserStatus())

	// Group user related routes together
	userRoutes := app.Group("/u")
	{
		// Handle POST requests at /u/login
		userRoutes.POST("/login", ensureNotLoggedIn(), s.performLogin)

		// Handle GET requests at /u/logout
		userRoutes.GET("/logout", ensureLoggedIn(), logout)

		// Handle GET requests at /u/me
		userRoutes.GET("/me", ensureLoggedIn(), s.me)
	}

	// Administration of users, cases and templates
	adminRoutes := app.Group("/admin", ensureLoggedIn(), ensureAdmin())
	{
		adminRoutes.GET("/users", s.listUsers)
		adminRoutes.POST("/users", s.addUser)
		adminRoutes.POST("/cases", s.addCase)
		adminRoutes.PUT("/cases/:case_id/assign", s.assignCase)
		adminRoutes.PUT("/templates/:name", s.saveTemplate)
	}

	app.GET("/templates", ensureLoggedIn(), s.listTemplates)

	// Group case related routes together
	caseRoutes := app.Group("/cases", ensureLoggedIn())
	{
		caseRoutes.GET("", s.listCases)
		caseRoutes.GET("/:case_id", s.showCase)

		// Handle POST requests at /cases/some_case_id/assessments
		// Uploads audio and starts processing
		caseRoutes.POST("/:case_id/assessments", s.uploadRecording)
	}

	// Handle GET requests at /recordings/some_recording_id/status
	app.GET("/recordings/:recording_id/status", ensureLoggedIn(), s.recordingStatus)

	// Group assessment related routes together
	assessmentRoutes := app.Group("/assessments", ensureLoggedIn())
	{
		assessmentRoutes.GET("/:assessment_id", s.showAssessment)
		assessmentRoutes.PUT("/:assessment_id/sections", s.updateSections)
		assessmentRoutes.DELETE("/:assessment_id", s.deleteAssessment)

		assessmentRoutes.GET("/:assessment_id/export/xlsx", s.exportXLSX)
		assessmentRoutes.GET("/:assessment_id/export/srt", s.exportSRT)
		assessmentRoutes.GET("/:assessment_id/export/vtt", s.exportWebVTT)
	}
}

// abortWithStoreError maps ErrNotFound to 404, anything else to 500
func abortWithStoreError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.Error(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		// If an invalid ID is specified in the URL, abort with an error
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
		return 0, false
	}
	return uint(id), true
}

// Users

type newUser struct {
	Email    string     `json:"email" binding:"required,email"`
	Password string     `json:"password" binding:"required,min=8"`
	Names    string     `json:"names"`
	Role     model.Role `json:"role"`
}

func (s *server) listUsers(c *gin.Context) {
	users, err := s.store.ListUsers(c.Request.Context())
	if err != nil {
		abortWithStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (s *server) addUser(c *gin.Context) {
	var in newUser
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	switch in.Role {
	case "":
		in.Role = model.RoleMember
	case model.RoleAdmin, model.RoleMember:
	default:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "role must be admin or member"})
		return
	}

	user, err := s.createUser(c.Request.Context(), in.Email, in.Password, in.Names, in.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, user)
}

// Cases

type newCase struct {
	ClientName string `json:"client_name" binding:"required"`
	Reference  string `json:"reference"`
	AssigneeID *uint  `json:"assignee_id"`
}

func (s *server) addCase(c *gin.Context) {
	var in newCase
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()

	cs := &model.Case{ClientName: strings.TrimSpace(in.ClientName), Reference: in.Reference}
	if in.AssigneeID != nil {
		if _, err := s.store.GetUser(ctx, *in.AssigneeID); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown assignee"})
			return
		}
		admin := currentUser(c).ID
		cs.AssigneeID = in.AssigneeID
		cs.AssignerID = &admin
	}
	if err := s.store.CreateCase(ctx, cs); err != nil {
		abortWithStoreError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cs)
}

type assignment struct {
	AssigneeID uint `json:"assignee_id" binding:"required"`
}

func (s *server) assignCase(c *gin.Context) {
	caseID, ok := paramID(c, "case_id")
	if !ok {
		return
	}
	var in assignment
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	if _, err := s.store.GetUser(ctx, in.AssigneeID); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown assignee"})
		return
	}
	if err := s.store.AssignCase(ctx, caseID, in.AssigneeID, currentUser(c).ID); err != nil {
		abortWithStoreError(c, err)
		return
	}
	cs, err := s.store.GetCase(ctx, caseID)
	if err != nil {
		abortWithStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, cs)
}

func (s *server) listCases(c *gin.Context) {
	user := currentUser(c)
	var assignee *uint
	if user.Role != model.RoleAdmin {
		assignee = &user.ID
	}
	cases, err := s.store.ListCases(c.Request.Context(), assignee)
	if err != nil {
		abortWithStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, cases)
}

// loadCase fetches the case of the URL and checks the user may see it
func (s *server) loadCase(c *gin.Context) (*model.Case, bool) {
	caseID, ok := paramID(c, "case_id")
	if !ok {
		return nil, false
	}
	cs, err := s.store.GetCase(c.Request.Context(), caseID)
	if err != nil {
		abortWithStoreError(c, err)
		return nil, false
	}
	if !canAccess(currentUser(c), cs) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "case is not assigned to you"})
		return nil, false
	}
	return cs, true
}

func (s *server) showCase(c *gin.Context) {
	cs, ok := s.loadCase(c)
	if !ok {
		return
	}
	assessments, err := s.store.ListAssessments(c.Request.Context(), cs.ID)
	if err != nil {
		abortWithStoreError(c, err)
		return
	}
	for i := range assessments {
		assessments[i].Sections = hiddenSections(&assessments[i])
	}
	cs.Assessments = assessments
	c.JSON(http.StatusOK, cs)
}

// Templates

type templateBody struct {
	Sections []string `json:"sections" binding:"required,min=1"`
}

func (s *server) listTemplates(c *gin.Context) {
	templates, err := s.store.ListTemplates(c.Request.Context())
	if err != nil {
		abortWithStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, templates)
}

func (s *server) saveTemplate(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	var in templateBody
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, err := s.store.SaveTemplate(c.Request.Context(), name, in.Sections)
	if err != nil {
		abortWithStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}
