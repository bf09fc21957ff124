package repository

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/NapatKulnarong/SkinMatch-sub001/internal/database"
	"github.com/NapatKulnarong/SkinMatch-sub001/internal/models"
	"github.com/NapatKulnarong/SkinMatch-sub001/internal/utils"
)

// CreateAccount registers a new account and issues its bearer token.
func CreateAccount(ctx context.Context, email, password, firstName, lastName string) (*models.Account, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	token, err := utils.GenerateSecureToken(32)
	if err != nil {
		return nil, err
	}
	account := &models.Account{
		ID:        uuid.NewString(),
		Email:     email,
		Password:  string(hashedPassword),
		Token:     token,
		FirstName: firstName,
		LastName:  lastName,
	}
	result := database.DB.WithContext(ctx).Create(account)
	return account, result.Error
}

// GetAccountByToken resolves a bearer token to its account.
func GetAccountByToken(ctx context.Context, token string) (*models.Account, error) {
	var account models.Account
	result := database.DB.WithContext(ctx).First(&account, "token = ?", token)
	return &account, result.Error
}

// GetAccountByEmail loads an account by email for credential checks.
func GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	result := database.DB.WithContext(ctx).First(&account, "email = ?", email)
	return &account, result.Error
}

// UpdateAccountProfile updates the mutable profile fields.
func UpdateAccountProfile(ctx context.Context, accountID, firstName, lastName string) error {
	return database.DB.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", accountID).
		Updates(map[string]interface{}{"first_name": firstName, "last_name": lastName}).Error
}

// RotateAccountToken replaces the account's bearer token and returns the new
// one; the previous token stops working immediately.
func RotateAccountToken(ctx context.Context, accountID string) (string, error) {
	token, err := utils.GenerateSecureToken(32)
	if err != nil {
		return "", err
	}
	err = database.DB.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", accountID).
		Update("token", token).Error
	return token, err
}

// DeleteAccount removes the account and its wishlist.
func DeleteAccount(ctx context.Context, accountID string) error {
	if err := database.DB.WithContext(ctx).
		Where("account_id = ?", accountID).
		Delete(&models.WishlistItem{}).Error; err != nil {
		return err
	}
	return database.DB.WithContext(ctx).Delete(&models.Account{}, "id = ?", accountID).Error
}
