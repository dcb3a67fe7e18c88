package config

type TransactionType string

const (
	Bet     TransactionType = "bet"
	Cashout TransactionType = "cashout"
)
