package models

import "time"

// Customer types
const (
	CustomerIndividual = "Individual"
	CustomerAgent      = "Agent"
	CustomerMerchant   = "Merchant"
)

// KYC statuses
const (
	KYCVerified = "Verified"
	KYCPending  = "Pending"
	KYCExpired  = "Expired"
)

// Transaction types
const (
	TxnSendMoney   = "Send Money"
	TxnCashIn      = "Cash In"
	TxnCashOut     = "Cash Out"
	TxnBillPayment = "Bill Payment"
	TxnAirtime     = "Airtime"
)

// Channels
const (
	ChannelMobileApp = "Mobile App"
	ChannelUSSD      = "USSD"
	ChannelAgent     = "Agent"
	ChannelBranch    = "Branch"
)

const (
	StatusCompleted = "Completed"
	StatusFailed    = "Failed"

	AccountActive = "Active"

	AgentActive   = "Active"
	AgentInactive = "Inactive"

	CurrencyUSD = "USD"
	CurrencyZWL = "ZWL"
)

type Customer struct {
	CustomerID       string    `json:"customer_id"`
	CustomerType     string    `json:"customer_type"`
	Region           string    `json:"region"`
	Branch           string    `json:"branch"`
	MobileNetwork    string    `json:"mobile_network"`
	KYCStatus        string    `json:"kyc_status"`
	Age              int       `json:"age,omitempty"`
	RegistrationDate time.Time `json:"registration_date"`
}

// Account belongs to exactly one Customer through CustomerID.
type Account struct {
	AccountID       string  `json:"account_id"`
	CustomerID      string  `json:"customer_id"`
	USDBalance      float64 `json:"usd_balance"`
	ZWLBalance      float64 `json:"zwl_balance"`
	PrimaryCurrency string  `json:"primary_currency"`
	TotalBalanceUSD float64 `json:"total_balance_usd"`
	AccountStatus   string  `json:"account_status"`
}

type Transaction struct {
	TransactionID   string    `json:"transaction_id"`
	AccountID       string    `json:"account_id"`
	CustomerID      string    `json:"customer_id"`
	TransactionDate time.Time `json:"transaction_date"`
	TransactionType string    `json:"transaction_type"`
	AmountUSD       float64   `json:"amount_usd"`
	Channel         string    `json:"channel"`
	Status          string    `json:"status"`
	FeeUSD          float64   `json:"fee_usd"`
}

// Agent is independent of the customer/account tables.
type Agent struct {
	AgentID          string    `json:"agent_id"`
	Location         string    `json:"location"`
	Status           string    `json:"status"`
	MonthlyVolumeUSD float64   `json:"monthly_volume_usd"`
	RegistrationDate time.Time `json:"registration_date"`
}
