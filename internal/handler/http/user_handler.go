package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/admin-user-service/internal/auth"
	"github.com/vasiliy-maslov/admin-user-service/internal/user"
)

// CreateUserRequest is the typed create body. Unknown JSON keys are dropped
// by decoding; required-ness is checked explicitly so that any missing field
// produces the single "missing required fields" response.
type CreateUserRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email" validate:"omitempty,email"`
	Password  string `json:"password" validate:"omitempty,min=8"`
	Role      string `json:"role"`
	FullName  string `json:"full_name"`
	Status    string `json:"status"`
	AvatarURL string `json:"avatar_url"`
}

// UpdateUserRequest enumerates the allow-list of mutable fields. A nil field
// was absent from the body. Username is not here on purpose: a submitted
// username is silently discarded, never applied.
type UpdateUserRequest struct {
	Email     *string `json:"email" validate:"omitempty,email"`
	FullName  *string `json:"full_name"`
	Role      *string `json:"role"`
	Status    *string `json:"status"`
	Password  *string `json:"password" validate:"omitempty,min=8"`
	AvatarURL *string `json:"avatar_url"`
}

// UserResponse is the public projection: everything except the password hash.
type UserResponse struct {
	ID          uuid.UUID  `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	FullName    string     `json:"full_name"`
	Role        string     `json:"role"`
	Status      string     `json:"status"`
	AvatarURL   string     `json:"avatar_url"`
	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type DataResponse struct {
	Data interface{} `json:"data"`
}

type CreateUserResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	ID      uuid.UUID `json:"id"`
}

type UpdateUserResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type UserHandler struct {
	service  user.Service
	validate *validator.Validate
}

func NewUserHandler(service user.Service) *UserHandler {
	return &UserHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *UserHandler) RegisterRoutes(router chi.Router) {
	router.Route("/users", func(r chi.Router) {
		r.MethodNotAllowed(handleMethodNotAllowed)

		r.Get("/", h.handleListUsers)
		r.Post("/", h.handleCreateUser)
		r.Put("/", handleMissingIdentifier)
		r.Delete("/", handleMissingIdentifier)

		r.Get("/{id}", h.handleGetUserByID)
		r.Put("/{id}", h.handleUpdateUser)
		r.Delete("/{id}", h.handleDeleteUser)
	})
}

func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// handleMissingIdentifier answers PUT/DELETE on the collection itself, which
// always need a target id.
func handleMissingIdentifier(w http.ResponseWriter, r *http.Request) {
	respondWithError(w, http.StatusBadRequest, "missing user identifier")
}

func (h *UserHandler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list users via service")
		respondWithError(w, http.StatusInternalServerError, "Failed to list users")
		return
	}

	responsePayload := make([]UserResponse, 0, len(users))
	for i := range users {
		responsePayload = append(responsePayload, toUserResponse(&users[i]))
	}

	respondWithJSON(w, http.StatusOK, DataResponse{Data: responsePayload})
}

func (h *UserHandler) handleGetUserByID(w http.ResponseWriter, r *http.Request) {
	idParam := chi.URLParam(r, "id")
	userID, err := uuid.FromString(idParam)
	if err != nil {
		log.Warn().Err(err).Str("user_id", idParam).Msg("Failed to parse id parameter from URL")
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	foundUser, err := h.service.GetUserByID(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get user by id via service")

		statusCode := mapErrorToStatusCode(err)

		var clientMessage string

		if errors.Is(err, user.ErrNotFound) {
			clientMessage = "User not found"
		} else {
			clientMessage = "Failed to get user by id"
		}

		respondWithError(w, statusCode, clientMessage)
		return
	}

	respondWithJSON(w, http.StatusOK, DataResponse{Data: toUserResponse(foundUser)})
}

func (h *UserHandler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var requestPayload CreateUserRequest

	err := json.NewDecoder(r.Body).Decode(&requestPayload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if requestPayload.Username == "" || requestPayload.Email == "" ||
		requestPayload.Password == "" || requestPayload.Role == "" {
		respondWithError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	err = h.validate.Struct(requestPayload)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{
				Error: formatValidationErrors(validationErrors),
			})
		} else {
			log.Error().Err(err).Msg("Unexpected error type during validation")
			respondWithError(w, http.StatusInternalServerError, "Internal validation error")
		}
		return
	}

	domainUser := user.User{
		Username:  requestPayload.Username,
		Email:     requestPayload.Email,
		FullName:  requestPayload.FullName,
		Role:      requestPayload.Role,
		Status:    requestPayload.Status,
		AvatarURL: requestPayload.AvatarURL,
	}

	createdID, err := h.service.CreateUser(r.Context(), &domainUser, requestPayload.Password)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create user via service")

		statusCode := mapErrorToStatusCode(err)

		var clientMessage string

		if errors.Is(err, user.ErrConflict) {
			clientMessage = "Username or email already exists"
		} else {
			clientMessage = "Failed to create user"
		}

		respondWithError(w, statusCode, clientMessage)
		return
	}

	respondWithJSON(w, http.StatusCreated, CreateUserResponse{
		Success: true,
		Message: "user created",
		ID:      createdID,
	})
}

func (h *UserHandler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	idParam := chi.URLParam(r, "id")
	userID, err := uuid.FromString(idParam)
	if err != nil {
		log.Warn().Err(err).Str("user_id", idParam).Msg("Failed to parse id parameter from URL")
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	var requestPayload UpdateUserRequest

	err = json.NewDecoder(r.Body).Decode(&requestPayload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	// A present-but-empty password means "no password change".
	if requestPayload.Password != nil && *requestPayload.Password == "" {
		requestPayload.Password = nil
	}

	err = h.validate.Struct(requestPayload)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{
				Error: formatValidationErrors(validationErrors),
			})
		} else {
			log.Error().Err(err).Msg("Unexpected error type during validation")
			respondWithError(w, http.StatusInternalServerError, "Internal validation error")
		}
		return
	}

	upd := user.UserUpdate{
		Email:     requestPayload.Email,
		FullName:  requestPayload.FullName,
		Role:      requestPayload.Role,
		Status:    requestPayload.Status,
		Password:  requestPayload.Password,
		AvatarURL: requestPayload.AvatarURL,
	}

	updated, err := h.service.UpdateUser(r.Context(), userID, upd)
	if err != nil {
		log.Error().Err(err).Msg("Failed to update user via service")

		statusCode := mapErrorToStatusCode(err)

		var clientMessage string

		switch {
		case errors.Is(err, user.ErrNoFields):
			clientMessage = "no valid fields to update"
		case errors.Is(err, user.ErrNotFound):
			clientMessage = "User not found"
		case errors.Is(err, user.ErrConflict):
			clientMessage = "Email already exists"
		default:
			clientMessage = "Failed to update user"
		}

		respondWithError(w, statusCode, clientMessage)
		return
	}

	message := "user updated"
	if !updated {
		message = "no changes applied"
	}

	respondWithJSON(w, http.StatusOK, UpdateUserResponse{
		Success: true,
		Message: message,
	})
}

func (h *UserHandler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	idParam := chi.URLParam(r, "id")
	userID, err := uuid.FromString(idParam)
	if err != nil {
		log.Warn().Err(err).Str("user_id", idParam).Msg("Failed to parse id parameter from URL")
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		// The auth middleware always runs before this handler; an absent
		// identity is a wiring bug, not a client error.
		log.Error().Msg("Caller identity missing from request context")
		respondWithError(w, http.StatusInternalServerError, "Failed to delete user")
		return
	}

	err = h.service.DeleteUser(r.Context(), userID, ident.UserID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to delete user via service")

		statusCode := mapErrorToStatusCode(err)

		var clientMessage string

		switch {
		case errors.Is(err, user.ErrSelfDelete):
			clientMessage = "cannot delete own administrative account"
		case errors.Is(err, user.ErrNotFound):
			clientMessage = "User not found"
		default:
			clientMessage = "Failed to delete user"
		}

		respondWithError(w, statusCode, clientMessage)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func toUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FullName:    u.FullName,
		Role:        u.Role,
		Status:      u.Status,
		AvatarURL:   u.AvatarURL,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
