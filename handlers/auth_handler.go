package handlers

import (
	"context"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/patient-service/models"
	"github.com/upb/patient-service/services"
	"github.com/upb/patient-service/utils"
)

// AuthAPI is the part of the auth service the handlers use
type AuthAPI interface {
	Signup(ctx context.Context, input services.SignupInput) (*models.User, error)
	Login(ctx context.Context, input services.LoginInput) (*services.TokenResponse, error)
}

// SignupRequest is the body of POST /auth/signup
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest is the JSON body of POST /auth/login. The form variant uses
// username instead of email.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=1024"`
}

// UserResponse is the public view of an account
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserResponse(user *models.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
	}
}

// AuthHandler handles signup and login
type AuthHandler struct {
	service AuthAPI
	logger  *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthAPI, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger,
	}
}

// HandleSignup handles POST /auth/signup
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	user, err := h.service.Signup(r.Context(), services.SignupInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteCreated(w, newUserResponse(user)); err != nil {
		h.logger.Error("failed to write signup response", zap.Error(err))
	}
}

// HandleLogin handles POST /auth/login. It accepts an OAuth2 password grant
// form (username, password) or a JSON body (email, password).
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readLoginRequest(w, r)
	if !ok {
		return
	}

	token, err := h.service.Login(r.Context(), services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	if err := utils.WriteOK(w, token); err != nil {
		h.logger.Error("failed to write login response", zap.Error(err))
	}
}

func (h *AuthHandler) readLoginRequest(w http.ResponseWriter, r *http.Request) (LoginRequest, bool) {
	var req LoginRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, utils.MaxBodyBytes)
		var err error
		if mediaType == "multipart/form-data" {
			err = r.ParseMultipartForm(utils.MaxBodyBytes)
		} else {
			err = r.ParseForm()
		}
		if err != nil {
			_ = utils.WriteBadRequest(w, "invalid form body", nil)
			return req, false
		}
		if grant := r.PostForm.Get("grant_type"); grant != "" && grant != "password" {
			_ = utils.WriteBadRequest(w, "unsupported grant_type", map[string]interface{}{"grant_type": grant})
			return req, false
		}
		req.Email = strings.TrimSpace(r.PostForm.Get("username"))
		req.Password = r.PostForm.Get("password")
		if err := utils.ValidateStruct(&req); err != nil {
			HandleValidationError(w, utils.RenameField(err, "email", "username"), h.logger)
			return req, false
		}
		return req, true
	default:
		return req, decodeAndValidate(w, r, &req, h.logger)
	}
}
