package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/platform"
	"github.com/maheshrc27/postflow/internal/transfer"
	"github.com/maheshrc27/postflow/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type memAccounts struct {
	mu   sync.Mutex
	next int64
	rows []*models.SocialAccount
}

func (m *memAccounts) Upsert(ctx context.Context, sa *models.SocialAccount) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.UserID == sa.UserID && row.Platform == sa.Platform && row.AccountID == sa.AccountID {
			id := row.ID
			*row = *sa
			row.ID = id
			row.IsActive = true
			return id, nil
		}
	}
	m.next++
	row := *sa
	row.ID = m.next
	row.IsActive = true
	m.rows = append(m.rows, &row)
	return row.ID, nil
}

func (m *memAccounts) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.ID == id {
			cp := *row
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memAccounts) GetActive(ctx context.Context, userID int64, p string) (*models.SocialAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.rows) - 1; i >= 0; i-- {
		row := m.rows[i]
		if row.UserID == userID && row.Platform == p && row.IsActive {
			cp := *row
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memAccounts) ListInfoByUserID(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.SocialAccount
	for _, row := range m.rows {
		if row.UserID == userID {
			out = append(out, &models.SocialAccount{ID: row.ID, Platform: row.Platform, AccountName: row.AccountName, IsActive: row.IsActive})
		}
	}
	return out, nil
}

func (m *memAccounts) CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.ID == accountID && row.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memAccounts) Deactivate(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.ID == id {
			row.IsActive = false
		}
	}
	return nil
}

func TestAccountConnectAndResolve(t *testing.T) {
	ctx := context.Background()
	store := &memAccounts{}
	svc := NewAccountService(testSecret, store)

	id, err := svc.Connect(ctx, 1, transfer.AccountConnect{
		Platform:     "X",
		AccountID:    "42",
		AccountName:  "@ada",
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresIn:    3600,
	})
	require.NoError(t, err)

	stored, err := store.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "twitter", stored.Platform)
	assert.NotEqual(t, "access", stored.AccessToken, "tokens are stored encrypted")
	plain, err := utils.Decrypt(stored.AccessToken, []byte(testSecret))
	require.NoError(t, err)
	assert.Equal(t, "access", plain)
	require.NotNil(t, stored.TokenExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *stored.TokenExpiresAt, time.Minute)

	account, err := svc.ResolveActive(ctx, 1, platform.Twitter)
	require.NoError(t, err)
	assert.Equal(t, "access", account.AccessToken)
	assert.Equal(t, "refresh", account.RefreshToken)

	byID, err := svc.ResolveByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "access", byID.AccessToken)

	_, err = svc.ResolveActive(ctx, 1, platform.LinkedIn)
	assert.ErrorIs(t, err, ErrNoActiveAccount)

	_, err = svc.ResolveByID(ctx, 99)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestAccountDisconnect(t *testing.T) {
	ctx := context.Background()
	store := &memAccounts{}
	svc := NewAccountService(testSecret, store)

	id, err := svc.Connect(ctx, 1, transfer.AccountConnect{Platform: "linkedin", AccountID: "p1", AccessToken: "tok"})
	require.NoError(t, err)

	assert.Error(t, svc.Disconnect(ctx, 2, id), "other users cannot disconnect it")
	require.NoError(t, svc.Disconnect(ctx, 1, id))

	_, err = svc.ResolveActive(ctx, 1, platform.LinkedIn)
	assert.ErrorIs(t, err, ErrNoActiveAccount)

	// reconnecting reactivates the same row
	again, err := svc.Connect(ctx, 1, transfer.AccountConnect{Platform: "linkedin", AccountID: "p1", AccessToken: "tok2"})
	require.NoError(t, err)
	assert.Equal(t, id, again)

	account, err := svc.ResolveActive(ctx, 1, platform.LinkedIn)
	require.NoError(t, err)
	assert.Equal(t, "tok2", account.AccessToken)
}

func TestAccountConnectValidation(t *testing.T) {
	svc := NewAccountService(testSecret, &memAccounts{})
	ctx := context.Background()

	_, err := svc.Connect(ctx, 1, transfer.AccountConnect{Platform: "myspace", AccountID: "1", AccessToken: "t"})
	assert.ErrorIs(t, err, platform.ErrUnsupported)

	_, err = svc.Connect(ctx, 1, transfer.AccountConnect{Platform: "facebook", AccessToken: "t"})
	assert.Error(t, err)

	_, err = svc.Connect(ctx, 1, transfer.AccountConnect{Platform: "facebook", AccountID: "1"})
	assert.Error(t, err)

	_, err = svc.Connect(ctx, 0, transfer.AccountConnect{Platform: "facebook", AccountID: "1", AccessToken: "t"})
	assert.Error(t, err)
}

func TestResolveBadCiphertext(t *testing.T) {
	store := &memAccounts{}
	_, err := store.Upsert(context.Background(), &models.SocialAccount{UserID: 1, Platform: "facebook", AccountID: "p", AccessToken: "plaintext"})
	require.NoError(t, err)

	svc := NewAccountService(testSecret, store)
	_, err = svc.ResolveActive(context.Background(), 1, platform.Facebook)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoActiveAccount)
}
