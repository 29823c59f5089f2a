package handler

import (
	"context"
	"net/http"
	"strings"

	"taskmanager/internal/model"
	"taskmanager/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

// UserStore is the subset of the user repository used for accounts
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

var _ UserStore = (*repository.UserRepository)(nil)

// TokenIssuer выдает токены после регистрации и входа
type TokenIssuer interface {
	GenerateToken(userID uuid.UUID) (string, error)
}

// TaskIndexer пересобирает денормализованный список задач пользователя
type TaskIndexer interface {
	RebuildIndex(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

type UserHandler struct {
	repo    UserStore
	tokens  TokenIssuer
	auth    *Authenticator
	indexer TaskIndexer
}

func NewUserHandler(repo UserStore, tokens TokenIssuer, auth *Authenticator, indexer TaskIndexer) *UserHandler {
	return &UserHandler{repo: repo, tokens: tokens, auth: auth, indexer: indexer}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required,min=2"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UserResponse struct {
	ID      string   `json:"id"`
	Email   string   `json:"email"`
	Name    string   `json:"name"`
	TaskIDs []string `json:"taskIds,omitempty"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// Register создает пользователя и сразу выдает токен
// @Summary      Register
// @Tags         Users
// @Accept       json
// @Produce      json
// @Param        user  body      RegisterRequest  true  "User"
// @Success      201   {object}  AuthResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /auth/register [post]
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	req.Email = strings.ToLower(req.Email)

	existing, err := h.repo.FindByEmail(c.Request.Context(), req.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "DB error"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "User with this email already exists"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Hash error"})
		return
	}

	user := &model.User{
		ID:             uuid.New(),
		Email:          req.Email,
		Name:           req.Name,
		HashedPassword: string(hash),
		TaskIDs:        pq.StringArray{},
	}

	if err := h.repo.Create(c.Request.Context(), user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Create failed"})
		return
	}

	h.respondWithToken(c, http.StatusCreated, user)
}

// Login проверяет пароль и выдает токен
// @Summary      Login
// @Tags         Users
// @Accept       json
// @Produce      json
// @Param        credentials  body      LoginRequest  true  "Credentials"
// @Success      200          {object}  AuthResponse
// @Failure      401          {object}  map[string]string
// @Router       /auth/login [post]
func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	user, err := h.repo.FindByEmail(c.Request.Context(), strings.ToLower(req.Email))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "DB error"})
		return
	}
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	h.respondWithToken(c, http.StatusOK, user)
}

// Me возвращает профиль текущего пользователя вместе с индексом задач
// @Summary      Current user
// @Tags         Users
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  UserResponse
// @Router       /me [get]
func (h *UserHandler) Me(c *gin.Context) {
	callerID, ok := h.auth.Caller(c)
	if !ok {
		return
	}

	h.writeProfile(c, callerID)
}

func (h *UserHandler) writeProfile(c *gin.Context, userID uuid.UUID) {
	user, err := h.repo.GetByID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve user"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, newUserResponse(user))
}

// Reindex пересобирает список задач пользователя по записям задач
// @Summary      Rebuild task index
// @Tags         Users
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  UserResponse
// @Router       /me/reindex [post]
func (h *UserHandler) Reindex(c *gin.Context) {
	callerID, ok := h.auth.Caller(c)
	if !ok {
		return
	}

	if _, err := h.indexer.RebuildIndex(c.Request.Context(), callerID); err != nil {
		writeServiceError(c, err)
		return
	}

	h.writeProfile(c, callerID)
}

func (h *UserHandler) respondWithToken(c *gin.Context, status int, user *model.User) {
	token, err := h.tokens.GenerateToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(status, AuthResponse{
		Token: token,
		User:  newUserResponse(user),
	})
}

func newUserResponse(user *model.User) UserResponse {
	return UserResponse{
		ID:      user.ID.String(),
		Email:   user.Email,
		Name:    user.Name,
		TaskIDs: append([]string(nil), user.TaskIDs...),
	}
}
