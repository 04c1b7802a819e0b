// Account HTTP handlers.
//
// This file exposes REST endpoints for account resources:
//   - POST   /accounts                 (register)
//   - POST   /accounts/login           (authenticate)
//   - GET    /accounts                 (list, paginated)
//   - GET    /accounts/{id}            (fetch)
//   - PUT    /accounts/{id}            (update profile)
//   - PUT    /accounts/{id}/password   (change password)
//   - PUT    /accounts/{id}/active     (activate / deactivate)
//   - DELETE /accounts/{id}            (delete)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses. Stored secret hashes never leave
// this layer; accounts are serialized through a sanitized view.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-commerce-backend/internal/domain"
	"github.com/tbourn/go-commerce-backend/internal/services"
	"github.com/tbourn/go-commerce-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// AccountService defines account lifecycle operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type AccountService interface {
	// Register creates an account and issues an initial session token.
	Register(ctx context.Context, email, name, secret string) (*domain.Account, string, error)
	// Authenticate verifies credentials and issues a session token.
	Authenticate(ctx context.Context, email, secret string) (*domain.Account, string, error)
	// GetAccount fetches a single account by id.
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	// ListAccounts returns every account, oldest first.
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	// UpdateProfile applies non-empty name/email changes.
	UpdateProfile(ctx context.Context, id, name, email string) (*domain.Account, error)
	// SetActive flips the soft activation flag.
	SetActive(ctx context.Context, id string, active bool) (*domain.Account, error)
	// ChangePassword verifies the old secret and stores the new one.
	ChangePassword(ctx context.Context, id, oldSecret, newSecret string) error
	// DeleteAccount removes the account and revokes its credentials.
	DeleteAccount(ctx context.Context, id string) error
}

//
// DTOs
//

// AccountView is the sanitized account representation returned by the API.
// The stored secret hash is deliberately absent.
type AccountView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// viewAccount maps a domain account to its API representation.
func viewAccount(a *domain.Account) AccountView {
	return AccountView{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		Role:      string(a.Role),
		Active:    a.Active,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// RegisterRequest is the JSON payload for creating an account.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required" example:"alice@example.com"`
	Name     string `json:"name" binding:"required" example:"Alice"`
	Password string `json:"password" binding:"required" example:"s3cret"`
}

// LoginRequest is the JSON payload for authenticating.
type LoginRequest struct {
	Email    string `json:"email" binding:"required" example:"alice@example.com"`
	Password string `json:"password" binding:"required" example:"s3cret"`
}

// SessionResponse carries an account plus its freshly issued token.
type SessionResponse struct {
	Account AccountView `json:"account"`
	Token   string      `json:"token"`
}

// UpdateProfileRequest is the JSON payload for profile updates. Empty fields
// keep their current value.
type UpdateProfileRequest struct {
	Name  string `json:"name" example:"Alicia"`
	Email string `json:"email" example:"alicia@example.com"`
}

// ChangePasswordRequest is the JSON payload for password rotation.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// SetActiveRequest is the JSON payload for the activation toggle.
type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
}

// ListAccountsResponse wraps a page of accounts and pagination information.
type ListAccountsResponse struct {
	Accounts   []AccountView `json:"accounts"`
	Pagination Pagination    `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// paginate slices a full result set into the requested page and builds the
// accompanying metadata.
func paginate[T any](items []T, page, pageSize int) ([]T, Pagination) {
	total := len(items)
	totalPages := (total + pageSize - 1) / pageSize
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return items[start:end], Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// requireUUID validates a path id and writes a 400 when malformed. It
// returns false when the request has been aborted.
func requireUUID(c *gin.Context, id, what string) bool {
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, what+" id must be a UUID")
		return false
	}
	return true
}

//
// Handlers
//

// RegisterAccount godoc
// @ID          registerAccount
// @Summary     Register a new account
// @Description Creates an account and returns it together with a session token.
// @Tags        Accounts
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.RegisterRequest  true  "Registration payload"
//
// @Success     201  {object}  handlers.SuccessResponse{data=handlers.SessionResponse}
// @Failure     400  {object}  handlers.ErrorResponse  "Malformed input"
// @Failure     409  {object}  handlers.ErrorResponse  "Email already registered"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /accounts [post]
func (h *Handlers) RegisterAccount(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	account, token, err := h.accountSvc.Register(c.Request.Context(),
		strings.TrimSpace(req.Email), strings.TrimSpace(req.Name), req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidAccount):
			fail(c, http.StatusBadRequest, ErrCodeInvalidAccount, err.Error())
		case errors.Is(err, services.ErrAccountExists):
			fail(c, http.StatusConflict, ErrCodeConflict, "account already exists")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, SessionResponse{Account: viewAccount(account), Token: token})
}

// Login godoc
// @ID          login
// @Summary     Authenticate an account
// @Description Verifies email and password and returns a session token.
// @Tags        Accounts
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.LoginRequest  true  "Login payload"
//
// @Success     200  {object}  handlers.SuccessResponse{data=handlers.SessionResponse}
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Invalid credentials"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown email"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /accounts/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	account, token, err := h.accountSvc.Authenticate(c.Request.Context(),
		strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAccountNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "account not found")
		case errors.Is(err, services.ErrInvalidCredentials):
			fail(c, http.StatusUnauthorized, ErrCodeInvalidCredentials, "invalid credentials")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, SessionResponse{Account: viewAccount(account), Token: token})
}

// GetAccount godoc
// @ID          getAccount
// @Summary     Fetch an account
// @Tags        Accounts
// @Produce     json
//
// @Param       id  path  string  true  "Account ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.SuccessResponse{data=handlers.AccountView}
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Account not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /accounts/{id} [get]
func (h *Handlers) GetAccount(c *gin.Context) {
	id := c.Param("id")
	if !requireUUID(c, id, "account") {
		return
	}
	account, err := h.accountSvc.GetAccount(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "account not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, viewAccount(account))
}

// ListAccounts godoc
// @ID          listAccounts
// @Summary     List accounts (paginated)
// @Tags        Accounts
// @Produce     json
//
// @Param       page       query  int  false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false  "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.SuccessResponse{data=handlers.ListAccountsResponse}
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /accounts [get]
func (h *Handlers) ListAccounts(c *gin.Context) {
	page, pageSize := clampPagination(c)

	accounts, err := h.accountSvc.ListAccounts(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	views := make([]AccountView, 0, len(accounts))
	for i := range accounts {
		views = append(views, viewAccount(&accounts[i]))
	}
	pageItems, meta := paginate(views, page, pageSize)
	ok(c, http.StatusOK, ListAccountsResponse{Accounts: pageItems, Pagination: meta})
}

// UpdateAccount godoc
// @ID          updateAccount
// @Summary     Update profile fields
// @Description Applies non-empty name/email changes; the result is re-validated.
// @Tags        Accounts
// @Accept      json
// @Produce     json
//
// @Param       id    path  string                          true  "Account ID (UUID)"  format(uuid)
// @Param       body  body  handlers.UpdateProfileRequest  true  "Profile changes"
//
// @Success     200  {object}  handlers.SuccessResponse{data=handlers.AccountView}
// @Failure     400  {object}  handlers.ErrorResponse  "Malformed input"
// @Failure     404  {object}  handlers.ErrorResponse  "Account not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /accounts/{id} [put]
func (h *Handlers) UpdateAccount(c *gin.Context) {
	id := c.Param("id")
	if !requireUUID(c, id, "account") {
		return
	}
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	account, err := h.accountSvc.UpdateProfile(c.Request.Context(), id,
		strings.TrimSpace(req.Name), strings.TrimSpace(req.Email))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidAccount):
			fail(c, http.StatusBadRequest, ErrCodeInvalidAccount, err.Error())
		case errors.Is(err, services.ErrAccountNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "account not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, viewAccount(account))
}

// SetAccountActive godoc
// @ID          setAccountActive
// @Summary     Activate or deactivate an account
// @Description Deactivation is soft: the record is retained and can be reactivated.
// @Tags        Accounts
// @Accept      json
// @Produce     json
//
// @Param       id    path  string                     true  "Account ID (UUID)"  format(uuid)
// @Param       body  body  handlers.SetActiveRequest  true  "Activation flag"
//
// @Success     200  {object}  handlers.SuccessResponse{data=handlers.AccountView}
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Account not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /accounts/{id}/active [put]
func (h *Handlers) SetAccountActive(c *gin.Context) {
	id := c.Param("id")
	if !requireUUID(c, id, "account") {
		return
	}
	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "active flag required")
		return
	}

	account, err := h.accountSvc.SetActive(c.Request.Context(), id, *req.Active)
	if err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "account not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, viewAccount(account))
}

// ChangePassword godoc
// @ID          changePassword
// @Summary     Rotate the account secret
// @Description Verifies the old password; the new one must differ.
// @Tags        Accounts
// @Accept      json
// @Produce     json
//
// @Param       id    path  string                           true  "Account ID (UUID)"  format(uuid)
// @Param       body  body  handlers.ChangePasswordRequest  true  "Password change payload"
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request / same password"
// @Failure     401  {object}  handlers.ErrorResponse  "Wrong old password"
// @Failure     404  {object}  handlers.ErrorResponse  "Account not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /accounts/{id}/password [put]
func (h *Handlers) ChangePassword(c *gin.Context) {
	id := c.Param("id")
	if !requireUUID(c, id, "account") {
		return
	}
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "old and new password required")
		return
	}

	err := h.accountSvc.ChangePassword(c.Request.Context(), id, req.OldPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAccountNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "account not found")
		case errors.Is(err, services.ErrInvalidCredentials):
			fail(c, http.StatusUnauthorized, ErrCodeInvalidCredentials, "invalid credentials")
		case errors.Is(err, services.ErrSamePassword):
			fail(c, http.StatusBadRequest, ErrCodeSamePassword, "new password must be different")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	noContent(c)
}

// DeleteAccount godoc
// @ID          deleteAccount
// @Summary     Delete an account
// @Description Removes the account and revokes every session token issued to it.
// @Tags        Accounts
// @Produce     json
//
// @Param       id  path  string  true  "Account ID (UUID)"  format(uuid)
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Account not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /accounts/{id} [delete]
func (h *Handlers) DeleteAccount(c *gin.Context) {
	id := c.Param("id")
	if !requireUUID(c, id, "account") {
		return
	}
	if err := h.accountSvc.DeleteAccount(c.Request.Context(), id); err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "account not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}
