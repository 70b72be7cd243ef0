package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"agroai-backend/internal/app"
	"agroai-backend/internal/transport/http/response"
)

type AuthHandler struct {
	authService *app.AuthService
}

func NewAuthHandler(authService *app.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid request payload")
		return
	}

	result, err := h.authService.Register(app.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrBadRegister):
			response.Fail(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, app.ErrUsernameExists), errors.Is(err, app.ErrEmailExists):
			response.Fail(c, http.StatusConflict, err.Error())
		default:
			response.Fail(c, http.StatusInternalServerError, "register failed")
		}
		return
	}

	response.OK(c, "registered successfully", gin.H{
		"token": result.Token,
		"user":  result.User,
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid request payload")
		return
	}

	result, err := h.authService.Login(app.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, app.ErrBadCredentials) {
			response.Fail(c, http.StatusUnauthorized, err.Error())
			return
		}
		response.Fail(c, http.StatusInternalServerError, "login failed")
		return
	}

	response.OK(c, "logged in successfully", gin.H{
		"token": result.Token,
		"user":  result.User,
	})
}

func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, "invalid token payload")
		return
	}

	user, err := h.authService.GetUserByID(userID)
	if err != nil || user == nil {
		response.Fail(c, http.StatusNotFound, "user not found")
		return
	}

	response.OK(c, "ok", user)
}
