package models

// Prime wallet types. Operating funds are bought into the trading wallet and
// consumer withdrawals leave from the vault.
const (
	WalletTypeTrading = "TRADING"
	WalletTypeVault   = "VAULT"
)

// Portfolio represents a Prime portfolio
type Portfolio struct {
	Id   string
	Name string
}

// Wallet represents a Prime wallet
type Wallet struct {
	Id     string
	Name   string
	Symbol string
	Type   string
}
