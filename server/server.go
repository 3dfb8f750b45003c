// Package server exposes the three-stage workflow over HTTP for the browser
// extension. Malformed requests get a 400; domain failures come back as 200
// with a populated error field so the client can render them inline.
package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"recipeagent"
	"recipeagent/orchestrator"
	"recipeagent/session"
)

// Server wires the gin engine to the orchestrator and session store.
type Server struct {
	engine   *gin.Engine
	orch     *orchestrator.Orchestrator
	sessions *session.Store
}

// New builds the router. allowedOrigins follows the CORS middleware contract;
// a single "*" allows everything.
func New(orch *orchestrator.Orchestrator, sessions *session.Store, allowedOrigins []string) *Server {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) == 1 && allowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = allowedOrigins
	}
	engine.Use(cors.New(corsCfg))

	s := &Server{engine: engine, orch: orch, sessions: sessions}

	engine.GET("/", s.handleStatus)
	engine.POST("/find-recipes", s.handleFindRecipes)
	engine.POST("/get-missing-ingredients", s.handleMissingIngredients)
	engine.POST("/send-list", s.handleSendList)
	engine.POST("/reset", s.handleReset)

	return s
}

// Handler exposes the router for tests and custom http.Server setups.
func (s *Server) Handler() http.Handler { return s.engine }

// Run blocks serving on addr.
func (s *Server) Run(addr string) error {
	slog.Info("SERVER: Listening", "addr", addr)
	return s.engine.Run(addr)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("SERVER: Request handled",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "recipe-agent"})
}

type findRecipesRequest struct {
	SessionID   string `json:"session_id"`
	Ingredients string `json:"ingredients"`
	FoodType    string `json:"foodType"`
	Cuisine     string `json:"cuisine"`
}

type findRecipesResponse struct {
	Success    bool                          `json:"success"`
	SessionID  string                        `json:"session_id"`
	Recipes    []recipeagent.RecipeCandidate `json:"recipes"`
	Advisories []string                      `json:"advisories,omitempty"`
	LLMPrompt  string                        `json:"llm_prompt,omitempty"`
	Metadata   *recipeagent.LLMMetadata      `json:"metadata,omitempty"`
	Error      string                        `json:"error,omitempty"`
	ErrorKind  string                        `json:"error_kind,omitempty"`
}

func (s *Server) handleFindRecipes(c *gin.Context) {
	var req findRecipesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "malformed request body"})
		return
	}

	sess, err := s.sessions.Get(req.SessionID)
	if err != nil {
		sess = s.sessions.Create()
	}

	prefs := recipeagent.Preferences{FoodType: req.FoodType, Cuisine: req.Cuisine}
	result, err := s.orch.FindRecipes(c.Request.Context(), sess, req.Ingredients, prefs)

	resp := findRecipesResponse{
		Success:    err == nil,
		SessionID:  sess.ID,
		Recipes:    result.Recipes,
		Advisories: result.Advisories,
		LLMPrompt:  result.LLMPrompt,
	}
	if result.LLMPrompt != "" {
		resp.Metadata = &result.Metadata
	}
	if err != nil {
		resp.Error, resp.ErrorKind = stageErrorFields(err)
	}
	if resp.Recipes == nil {
		resp.Recipes = []recipeagent.RecipeCandidate{}
	}
	c.JSON(http.StatusOK, resp)
}

type missingIngredientsRequest struct {
	SessionID       string   `json:"session_id"`
	RecipeID        int      `json:"recipeId"`
	RecipeTitle     string   `json:"recipeTitle"`
	UserIngredients []string `json:"userIngredients"`
}

type missingIngredientsResponse struct {
	Success            bool                           `json:"success"`
	SessionID          string                         `json:"session_id"`
	MissingIngredients []recipeagent.IngredientDetail `json:"missingIngredients"`
	IsEstimate         bool                           `json:"isEstimate"`
	Advisories         []string                       `json:"advisories,omitempty"`
	LLMPrompt          string                         `json:"llm_prompt,omitempty"`
	Metadata           *recipeagent.LLMMetadata       `json:"metadata,omitempty"`
	Error              string                         `json:"error,omitempty"`
	ErrorKind          string                         `json:"error_kind,omitempty"`
}

func (s *Server) handleMissingIngredients(c *gin.Context) {
	var req missingIngredientsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "malformed request body"})
		return
	}

	sess, err := s.sessions.Get(req.SessionID)
	if err != nil {
		c.JSON(http.StatusOK, missingIngredientsResponse{
			SessionID:          req.SessionID,
			MissingIngredients: []recipeagent.IngredientDetail{},
			Error:              "unknown session_id",
			ErrorKind:          orchestrator.KindInputInvalid,
		})
		return
	}

	result, err := s.orch.MissingIngredients(c.Request.Context(), sess, req.RecipeID, req.RecipeTitle, req.UserIngredients)

	resp := missingIngredientsResponse{
		Success:            err == nil,
		SessionID:          sess.ID,
		MissingIngredients: result.Missing,
		IsEstimate:         result.IsEstimate,
		Advisories:         result.Advisories,
		LLMPrompt:          result.LLMPrompt,
	}
	if result.LLMPrompt != "" {
		resp.Metadata = &result.Metadata
	}
	if err != nil {
		resp.Error, resp.ErrorKind = stageErrorFields(err)
	}
	if resp.MissingIngredients == nil {
		resp.MissingIngredients = []recipeagent.IngredientDetail{}
	}
	c.JSON(http.StatusOK, resp)
}

type sendListRequest struct {
	SessionID      string `json:"session_id"`
	DeliveryMethod string `json:"deliveryMethod"`
	Destination    string `json:"destination"`

	// Echoed by the client for display parity; the session copy is
	// authoritative for what actually gets delivered.
	RecipeTitle        string                         `json:"recipeTitle"`
	MissingIngredients []recipeagent.IngredientDetail `json:"missingIngredients"`
}

type sendListResponse struct {
	Success    bool                     `json:"success"`
	SessionID  string                   `json:"session_id"`
	Message    string                   `json:"message,omitempty"`
	Advisories []string                 `json:"advisories,omitempty"`
	LLMPrompt  string                   `json:"llm_prompt,omitempty"`
	Metadata   *recipeagent.LLMMetadata `json:"metadata,omitempty"`
	Error      string                   `json:"error,omitempty"`
	ErrorKind  string                   `json:"error_kind,omitempty"`
}

func (s *Server) handleSendList(c *gin.Context) {
	var req sendListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "malformed request body"})
		return
	}

	sess, err := s.sessions.Get(req.SessionID)
	if err != nil {
		c.JSON(http.StatusOK, sendListResponse{
			SessionID: req.SessionID,
			Error:     "unknown session_id",
			ErrorKind: orchestrator.KindInputInvalid,
		})
		return
	}

	result, err := s.orch.SendList(c.Request.Context(), sess, recipeagent.DeliveryMethod(req.DeliveryMethod), req.Destination)

	resp := sendListResponse{
		Success:    err == nil,
		SessionID:  sess.ID,
		Message:    result.Message,
		Advisories: result.Advisories,
		LLMPrompt:  result.LLMPrompt,
	}
	if result.LLMPrompt != "" {
		resp.Metadata = &result.Metadata
	}
	if err != nil {
		resp.Error, resp.ErrorKind = stageErrorFields(err)
	}
	c.JSON(http.StatusOK, resp)
}

type resetRequest struct {
	SessionID string `json:"session_id"`
}

// handleReset implements "start over": the session is discarded and any
// in-flight stage for it abandons its writes.
func (s *Server) handleReset(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "malformed request body"})
		return
	}
	if sess, err := s.sessions.Get(req.SessionID); err == nil {
		sess.Reset()
		s.sessions.Discard(req.SessionID)
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func stageErrorFields(err error) (msg, kind string) {
	var se *orchestrator.StageError
	if errors.As(err, &se) {
		return se.Message, se.Kind
	}
	return err.Error(), "internal"
}
