package types

import "errors"

// The dispatch boundary converts everything below into a structured wire
// error; nothing is allowed to throw across the relay transport.
var (
	ErrUnauthorized           = errors.New("origin not connected")
	ErrWalletLocked           = errors.New("wallet is locked")
	ErrPopupAlreadyOpen       = errors.New("a confirmation popup is already pending")
	ErrUnknownTransactionType = errors.New("unknown transaction type")
	ErrUnknownRequestMethod   = errors.New("unknown request method")
	ErrPopupTimeout           = errors.New("popup request timed out")
	ErrUserDenied             = errors.New("user denied the request")
)

type ErrorCode string

const (
	CodeUnauthorized           ErrorCode = "unauthorized"
	CodeWalletLocked           ErrorCode = "wallet-locked"
	CodePopupAlreadyOpen       ErrorCode = "popup-already-open"
	CodeUnknownTransactionType ErrorCode = "unknown-transaction-type"
	CodeUnknownRequestMethod   ErrorCode = "unknown-request-method"
	CodeTimeout                ErrorCode = "timeout"
	CodeUserDenied             ErrorCode = "user-denied"
	// CodeKeyring carries keyring failures through with their message intact
	// but without stack traces.
	CodeKeyring  ErrorCode = "keyring"
	CodeInternal ErrorCode = "internal"
)

// WireError is the error shape posted back to pages.
type WireError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *WireError) Error() string {
	return string(e.Code) + ": " + e.Message
}

var sentinelCodes = []struct {
	err  error
	code ErrorCode
}{
	{ErrUnauthorized, CodeUnauthorized},
	{ErrWalletLocked, CodeWalletLocked},
	{ErrPopupAlreadyOpen, CodePopupAlreadyOpen},
	{ErrUnknownTransactionType, CodeUnknownTransactionType},
	{ErrUnknownRequestMethod, CodeUnknownRequestMethod},
	{ErrPopupTimeout, CodeTimeout},
	{ErrUserDenied, CodeUserDenied},
}

// AsWireError maps err onto the closed taxonomy. Anything unrecognized is
// treated as a keyring/collaborator failure and passed through by message.
func AsWireError(err error) *WireError {
	if err == nil {
		return nil
	}
	var wireErr *WireError
	if errors.As(err, &wireErr) {
		return wireErr
	}
	for _, s := range sentinelCodes {
		if errors.Is(err, s.err) {
			return &WireError{Code: s.code, Message: err.Error()}
		}
	}
	return &WireError{Code: CodeKeyring, Message: err.Error()}
}
