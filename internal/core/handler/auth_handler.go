package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"

	"github.com/akimov/peerwallet/internal/core/logger"
	"github.com/akimov/peerwallet/internal/core/models"
	"github.com/akimov/peerwallet/internal/core/usecase"
)

const minPasswordLength = 8

type AuthHandler struct {
	usecase usecase.AuthUsecase
	log     logger.Logger
}

func NewAuthHandler(usecase usecase.AuthUsecase, log logger.Logger) *AuthHandler {
	return &AuthHandler{usecase: usecase, log: log}
}

type registerRequest struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Warn("Failed to decode register request", logger.ErrorField("error", err))
		respondWithMessage(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if err := validateRegistration(&req); err != nil {
		respondWithMessage(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	user, err := h.usecase.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, usecase.ErrEmailTaken) {
			respondWithMessage(w, http.StatusUnprocessableEntity, "The email has already been taken.")
			return
		}
		h.log.Error("Registration failed",
			logger.StringField("email", req.Email),
			logger.ErrorField("error", err))
		respondWithMessage(w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]any{
		"message": "User registered successfully",
		"user":    toUserResponse(user),
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Warn("Failed to decode login request", logger.ErrorField("error", err))
		respondWithMessage(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if req.Email == "" || req.Password == "" {
		respondWithMessage(w, http.StatusUnprocessableEntity, "The email and password fields are required.")
		return
	}

	token, user, err := h.usecase.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidCredentials) {
			respondWithMessage(w, http.StatusUnprocessableEntity, "The provided credentials are incorrect.")
			return
		}
		h.log.Error("Login failed",
			logger.StringField("email", req.Email),
			logger.ErrorField("error", err))
		respondWithMessage(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"token":   token,
		"user":    toUserResponse(user),
	})
}

func validateRegistration(req *registerRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)

	if req.Name == "" {
		return fmt.Errorf("The name field is required.")
	}
	if len(req.Name) > 255 {
		return fmt.Errorf("The name may not be greater than 255 characters.")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return fmt.Errorf("The email must be a valid email address.")
	}
	if len(req.Password) < minPasswordLength {
		return fmt.Errorf("The password must be at least 8 characters.")
	}
	if req.Password != req.PasswordConfirmation {
		return fmt.Errorf("The password confirmation does not match.")
	}
	return nil
}

func toUserResponse(user *models.User) userResponse {
	return userResponse{
		ID:    user.ID.String(),
		Name:  user.Name,
		Email: user.Email,
	}
}
