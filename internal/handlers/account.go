package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/NapatKulnarong/SkinMatch-sub001/internal/models"
	"github.com/NapatKulnarong/SkinMatch-sub001/internal/repository"
	"github.com/NapatKulnarong/SkinMatch-sub001/internal/utils"
)

// AccountContextKey is where the bearer-token middleware stores the
// authenticated account.
const AccountContextKey = "account"

// AccountHandler manages account lifecycle. Identity is a bearer token issued
// at creation and re-issuable against the stored credentials.
type AccountHandler struct {
	log *zap.Logger
}

func NewAccountHandler(log *zap.Logger) *AccountHandler {
	return &AccountHandler{log: log}
}

type createAccountRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Create registers an account and returns its bearer token. The token is only
// ever shown here and on rotation.
func (h *AccountHandler) Create(c *gin.Context) {
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if !utils.IsValidEmail(req.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email address"})
		return
	}
	if !utils.IsComplexPassword(req.Password) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 8 characters with upper, lower, number and symbol"})
		return
	}
	if _, err := repository.GetAccountByEmail(c.Request.Context(), req.Email); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	}

	account, err := repository.CreateAccount(c.Request.Context(), req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		h.log.Error("account creation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create account"})
		return
	}
	h.log.Info("account created", zap.String("account_id", account.ID))
	c.JSON(http.StatusCreated, gin.H{"account": account, "token": account.Token})
}

// Profile returns the authenticated account.
func (h *AccountHandler) Profile(c *gin.Context) {
	account := c.MustGet(AccountContextKey).(*models.Account)
	c.JSON(http.StatusOK, account)
}

type updateProfileRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// UpdateProfile changes the mutable profile fields.
func (h *AccountHandler) UpdateProfile(c *gin.Context) {
	account := c.MustGet(AccountContextKey).(*models.Account)
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := repository.UpdateAccountProfile(c.Request.Context(), account.ID, req.FirstName, req.LastName); err != nil {
		h.log.Error("profile update failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update profile"})
		return
	}
	account.FirstName = req.FirstName
	account.LastName = req.LastName
	c.JSON(http.StatusOK, account)
}

type rotateTokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RotateToken re-issues the bearer token against email + password. The old
// token stops working immediately.
func (h *AccountHandler) RotateToken(c *gin.Context) {
	var req rotateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	account, err := repository.GetAccountByEmail(c.Request.Context(), req.Email)
	if err != nil || !account.CheckPassword(req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	token, err := repository.RotateAccountToken(c.Request.Context(), account.ID)
	if err != nil {
		h.log.Error("token rotation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not rotate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Delete removes the authenticated account and its wishlist.
func (h *AccountHandler) Delete(c *gin.Context) {
	account := c.MustGet(AccountContextKey).(*models.Account)
	if err := repository.DeleteAccount(c.Request.Context(), account.ID); err != nil {
		h.log.Error("account deletion failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete account"})
		return
	}
	h.log.Info("account deleted", zap.String("account_id", account.ID))
	c.Status(http.StatusNoContent)
}
