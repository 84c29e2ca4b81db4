package domain

// Credentials holds everything the relay needs to act on behalf of the
// administrator: the user-account API pair and session, the bot token used
// for delivery, and the identity of the sole authorized operator.
type Credentials struct {
	APIID        int    `json:"api_id,omitempty"`
	APIHash      string `json:"api_hash,omitempty"`
	SessionToken string `json:"session_token,omitempty"`
	BotToken     string `json:"bot_token,omitempty"`
	AdminID      int64  `json:"admin_id,omitempty"`
}

// IsComplete reports whether the delivery path can run: notifications and
// admin commands only need the bot token and a bound administrator.
func (c *Credentials) IsComplete() bool {
	return c.BotToken != "" && c.AdminID != 0
}

// ScannerReady reports whether the real-time scanning path can run. It
// additionally requires an authenticated user-account session.
func (c *Credentials) ScannerReady() bool {
	return c.IsComplete() && c.APIID != 0 && c.APIHash != "" && c.SessionToken != ""
}
