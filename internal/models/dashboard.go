package models

import (
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// Ratio is a rate or mean whose denominator may be zero. An undefined
// Ratio marshals to null and must not be shown as 0.
type Ratio struct {
	Value   float64
	Defined bool
}

func NewRatio(num, den float64) Ratio {
	if den == 0 {
		return Ratio{}
	}
	return Ratio{Value: num / den, Defined: true}
}

func (r Ratio) String() string {
	if !r.Defined {
		return "n/a"
	}
	return strconv.FormatFloat(r.Value, 'f', 4, 64)
}

func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.Defined {
		return []byte("null"), nil
	}
	return json.Marshal(r.Value)
}

func (r *Ratio) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*r = Ratio{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*r = Ratio{Value: v, Defined: true}
	return nil
}

// KPIs are pure functions of the dataset.
type KPIs struct {
	TotalCustomers        int     `json:"total_customers"`
	TotalAccounts         int     `json:"total_accounts"`
	TotalTransactions     int     `json:"total_transactions"`
	TotalVolume           float64 `json:"total_volume"`
	TotalDeposits         float64 `json:"total_deposits"`
	KYCCompletionRate     Ratio   `json:"kyc_completion_rate"`
	KYCPending            int     `json:"kyc_pending"`
	AvgTransactionSize    Ratio   `json:"avg_transaction_size"`
	SuccessRate           Ratio   `json:"success_rate"`
	TotalFeeIncome        float64 `json:"total_fee_income"`
	AvgAccountBalance     Ratio   `json:"avg_account_balance"`
	Last7DaysVolume       float64 `json:"last_7_days_volume"`
	Last7DaysTransactions int     `json:"last_7_days_transactions"`
	NewCustomersThisMonth int     `json:"new_customers_this_month"`
	ActiveAgents          int     `json:"active_agents"`
}

// Decoration holds display-only figures that are random, not derived
// from the data.
type Decoration struct {
	WeeklyGrowth       float64 `json:"weekly_growth"`
	WeeklyCustomers    int     `json:"weekly_customers_delta"`
	WeeklyTransactions int     `json:"weekly_transactions_delta"`
	WeeklyVolume       float64 `json:"weekly_volume_delta"`
}

// LabelValue is one bar or pie slice.
type LabelValue struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// DailyPoint is one day of the transaction time series. Date is YYYY-MM-DD.
type DailyPoint struct {
	Date   string  `json:"date"`
	Volume float64 `json:"volume"`
	Count  int     `json:"count"`
}

type Breakdowns struct {
	TransactionType []LabelValue `json:"transaction_type"`
	Channel         []LabelValue `json:"channel"`
	Status          []LabelValue `json:"status"`
	Region          []LabelValue `json:"region"`
	Branch          []LabelValue `json:"branch"`
	CustomerType    []LabelValue `json:"customer_type"`
	MobileNetwork   []LabelValue `json:"mobile_network"`
	KYCStatus       []LabelValue `json:"kyc_status"`
	AgentStatus     []LabelValue `json:"agent_status"`
	AgentLocation   []LabelValue `json:"agent_location"`
}

// Lookup returns the breakdown for a dimension name as used in URLs.
func (b *Breakdowns) Lookup(dimension string) ([]LabelValue, bool) {
	switch dimension {
	case "transaction_type":
		return b.TransactionType, true
	case "channel":
		return b.Channel, true
	case "status":
		return b.Status, true
	case "region":
		return b.Region, true
	case "branch":
		return b.Branch, true
	case "customer_type":
		return b.CustomerType, true
	case "mobile_network":
		return b.MobileNetwork, true
	case "kyc_status":
		return b.KYCStatus, true
	case "agent_status":
		return b.AgentStatus, true
	case "agent_location":
		return b.AgentLocation, true
	}
	return nil, false
}

// Dimensions lists the names accepted by Lookup.
var Dimensions = []string{
	"transaction_type", "channel", "status",
	"region", "branch", "customer_type", "mobile_network", "kyc_status",
	"agent_status", "agent_location",
}

type DashboardData struct {
	KPIs         KPIs         `json:"kpis"`
	Decoration   Decoration   `json:"decoration"`
	Breakdowns   Breakdowns   `json:"breakdowns"`
	VolumeByType []LabelValue `json:"volume_by_type"`
	Daily        []DailyPoint `json:"daily"`
}

type AccountSummaryRow struct {
	Account
	CustomerType  string `json:"customer_type"`
	Region        string `json:"region"`
	Branch        string `json:"branch"`
	MobileNetwork string `json:"mobile_network"`
	KYCStatus     string `json:"kyc_status"`
}

type AccountSummary struct {
	TotalAccounts   int                 `json:"total_accounts"`
	AverageBalance  Ratio               `json:"average_balance"`
	TotalWalletSize float64             `json:"total_wallet_size"`
	Rows            []AccountSummaryRow `json:"rows"`
}

// FilterOptions are the distinct values available for each filter.
type FilterOptions struct {
	Regions          []string `json:"regions"`
	Branches         []string `json:"branches"`
	CustomerTypes    []string `json:"customer_types"`
	KYCStatuses      []string `json:"kyc_statuses"`
	TransactionTypes []string `json:"transaction_types"`
	Channels         []string `json:"channels"`
}

type SnapshotMeta struct {
	ID           string    `json:"id"`
	Profile      string    `json:"profile"`
	GeneratedAt  time.Time `json:"generated_at"`
	Seed         *uint64   `json:"seed"`
	Fingerprint  string    `json:"fingerprint"`
	Customers    int       `json:"customers"`
	Accounts     int       `json:"accounts"`
	Transactions int       `json:"transactions"`
	Agents       int       `json:"agents"`
}
