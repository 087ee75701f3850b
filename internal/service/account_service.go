package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/platform"
	"github.com/maheshrc27/postflow/internal/transfer"
	"github.com/maheshrc27/postflow/pkg/utils"
)

// SocialAccountStore is the subset of the social account repository the
// account service needs.
type SocialAccountStore interface {
	Upsert(ctx context.Context, sa *models.SocialAccount) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.SocialAccount, error)
	GetActive(ctx context.Context, userID int64, platform string) (*models.SocialAccount, error)
	ListInfoByUserID(ctx context.Context, userID int64) ([]*models.SocialAccount, error)
	CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error)
	Deactivate(ctx context.Context, id int64) error
}

type AccountService interface {
	AccountResolver
	Connect(ctx context.Context, userID int64, req transfer.AccountConnect) (int64, error)
	List(ctx context.Context, userID int64) ([]*models.SocialAccount, error)
	Disconnect(ctx context.Context, userID, accountID int64) error
}

type accountService struct {
	secretKey []byte
	sa        SocialAccountStore
}

func NewAccountService(secretKey string, sa SocialAccountStore) AccountService {
	return &accountService{
		secretKey: []byte(secretKey),
		sa:        sa,
	}
}

// Connect stores the account with its tokens encrypted. Reconnecting an
// account replaces its tokens and reactivates it.
func (s *accountService) Connect(ctx context.Context, userID int64, req transfer.AccountConnect) (int64, error) {
	if userID == 0 {
		err := errors.New("UserID is not valid")
		slog.Info(err.Error())
		return 0, err
	}

	p, ok := platform.Parse(req.Platform)
	if !ok {
		return 0, fmt.Errorf("%w: %s", platform.ErrUnsupported, req.Platform)
	}
	if strings.TrimSpace(req.AccountID) == "" {
		return 0, errors.New("account_id is required")
	}
	if req.AccessToken == "" {
		return 0, errors.New("access_token is required")
	}

	accessToken, err := utils.Encrypt([]byte(req.AccessToken), s.secretKey)
	if err != nil {
		return 0, fmt.Errorf("encrypt access token: %w", err)
	}
	var refreshToken string
	if req.RefreshToken != "" {
		if refreshToken, err = utils.Encrypt([]byte(req.RefreshToken), s.secretKey); err != nil {
			return 0, fmt.Errorf("encrypt refresh token: %w", err)
		}
	}

	id, err := s.sa.Upsert(ctx, &models.SocialAccount{
		UserID:         userID,
		Platform:       p.String(),
		AccountID:      req.AccountID,
		AccountName:    req.AccountName,
		AccessToken:    accessToken,
		RefreshToken:   refreshToken,
		TokenExpiresAt: expiresAt(req),
	})
	if err != nil {
		return 0, fmt.Errorf("Error saving social account")
	}

	slog.Info("account connected", "user_id", userID, "platform", p, "account_id", id)
	return id, nil
}

// expiresAt prefers an absolute expiry and falls back to expires_in seconds.
func expiresAt(req transfer.AccountConnect) *time.Time {
	if req.ExpiresAt != nil {
		return req.ExpiresAt
	}
	if req.ExpiresIn > 0 {
		t := GetExpiresAt(req.ExpiresIn)
		return &t
	}
	return nil
}

func (s *accountService) List(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	var err error

	if userID == 0 {
		err = errors.New("UserID is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	accounts, err := s.sa.ListInfoByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Error getting social accounts")
	}

	return accounts, nil
}

func (s *accountService) Disconnect(ctx context.Context, userID, accountID int64) error {
	var err error

	if userID == 0 {
		err = errors.New("UserID is not valid")
		slog.Info(err.Error())
		return err
	}

	if accountID == 0 {
		err = errors.New("AccountID is not valid")
		slog.Info(err.Error())
		return err
	}

	isValid, err := s.sa.CheckByUserID(ctx, accountID, userID)
	if err != nil {
		return err
	}

	if !isValid {
		err = errors.New("Social account doesn't exist")
		slog.Info(err.Error())
		return err
	}

	return s.sa.Deactivate(ctx, accountID)
}

func (s *accountService) ResolveActive(ctx context.Context, userID int64, p platform.Platform) (*models.SocialAccount, error) {
	sa, err := s.sa.GetActive(ctx, userID, p.String())
	if err != nil {
		return nil, fmt.Errorf("resolve %s account: %w", p, err)
	}
	if sa == nil {
		return nil, ErrNoActiveAccount
	}
	return s.decrypt(sa)
}

func (s *accountService) ResolveByID(ctx context.Context, accountID int64) (*models.SocialAccount, error) {
	sa, err := s.sa.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("resolve account %d: %w", accountID, err)
	}
	if sa == nil {
		return nil, ErrAccountNotFound
	}
	return s.decrypt(sa)
}

func (s *accountService) decrypt(sa *models.SocialAccount) (*models.SocialAccount, error) {
	out := *sa

	accessToken, err := utils.Decrypt(sa.AccessToken, s.secretKey)
	if err != nil {
		return nil, fmt.Errorf("decrypt access token of account %d: %w", sa.ID, err)
	}
	out.AccessToken = accessToken

	if sa.RefreshToken != "" {
		refreshToken, err := utils.Decrypt(sa.RefreshToken, s.secretKey)
		if err != nil {
			return nil, fmt.Errorf("decrypt refresh token of account %d: %w", sa.ID, err)
		}
		out.RefreshToken = refreshToken
	}
	return &out, nil
}
