package types

// DomainEvent is a wallet-level event a page may subscribe to. The set is
// closed: registration against any other name must not touch the registry.
type DomainEvent string

const (
	EventConnectWallet    DomainEvent = "connectWallet"
	EventDisconnectWallet DomainEvent = "disconnectWallet"
	EventSign             DomainEvent = "sign"
	EventTransactionSent  DomainEvent = "transactionSent"
	EventSpendApproved    DomainEvent = "spendApproved"
	EventAccountsChanged  DomainEvent = "accountsChanged"
	EventChainChanged     DomainEvent = "chainChanged"
	// EventClose bypasses the subscription filter: a site must always learn
	// it was disconnected, listening or not.
	EventClose DomainEvent = "close"
)

var knownEvents = map[DomainEvent]struct{}{
	EventConnectWallet:    {},
	EventDisconnectWallet: {},
	EventSign:             {},
	EventTransactionSent:  {},
	EventSpendApproved:    {},
	EventAccountsChanged:  {},
	EventChainChanged:     {},
	EventClose:            {},
}

func (e DomainEvent) Valid() bool {
	_, ok := knownEvents[e]
	return ok
}

// EventRegRequest is the data of a PALI_EVENT_REG / PALI_EVENT_DEREG message.
type EventRegRequest struct {
	Event DomainEvent `json:"eventName"`
}
