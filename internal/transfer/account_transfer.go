package transfer

import "time"

// AccountConnect carries tokens obtained out of band for a platform account.
type AccountConnect struct {
	Platform     string     `json:"platform"`
	AccountID    string     `json:"account_id"`
	AccountName  string     `json:"account_name"`
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	ExpiresIn    int        `json:"expires_in,omitempty"`
}
