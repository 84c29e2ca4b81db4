package domain

import "context"

// Conn is an in-progress pre-authentication connection to the messaging
// network, owned by exactly one setup conversation. It must be closed on
// every conversation exit path.
type Conn interface {
	// SendCode requests a verification code for the phone number and
	// returns the code hash needed to complete the sign-in.
	SendCode(ctx context.Context, phone string) (string, error)
	// SignIn completes authentication with the relayed code. Returns
	// errors.ErrPasswordNeeded when the account has two-factor auth.
	SignIn(ctx context.Context, phone, code, codeHash string) error
	// Password completes a two-factor sign-in.
	Password(ctx context.Context, password string) error
	// ExportSession serializes the authenticated session as an opaque
	// token reusable without repeating the handshake.
	ExportSession(ctx context.Context) (string, error)
	Close() error
}

// Dialer opens pre-authentication connections for setup conversations.
type Dialer interface {
	Dial(ctx context.Context, apiID int, apiHash string) (Conn, error)
}

// Session is the transient state of one administrator's setup
// conversation: the FSM position, the fields collected so far, and the
// owned pre-auth connection handle.
type Session struct {
	UserID   int64
	State    State
	APIID    int
	APIHash  string
	Phone    string
	Code     string
	CodeHash string
	Conn     Conn
}
