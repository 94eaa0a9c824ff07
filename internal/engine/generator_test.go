package engine

import (
	"errors"
	"testing"

	"github.com/innbucks/dashboard/internal/models"
)

func generate(t *testing.T, cfg GeneratorConfig) *Dataset {
	t.Helper()
	cfg.Now = refTime
	gen, err := NewGenerator(cfg, nil)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	return gen.Generate(cfg.Source())
}

func TestGenerateClassic(t *testing.T) {
	ds := generate(t, Classic())

	if len(ds.Customers) != 1000 || len(ds.Accounts) != 1000 {
		t.Fatalf("Expected 1000 customers and accounts, got %d/%d", len(ds.Customers), len(ds.Accounts))
	}
	if ds.Customers[0].CustomerID != "INN0001" || ds.Customers[999].CustomerID != "INN1000" {
		t.Errorf("Unexpected ids %s..%s", ds.Customers[0].CustomerID, ds.Customers[999].CustomerID)
	}

	seen := map[string]bool{}
	for _, c := range ds.Customers {
		if seen[c.CustomerID] {
			t.Fatalf("duplicate customer id %s", c.CustomerID)
		}
		seen[c.CustomerID] = true
		if c.Age != 0 || !c.RegistrationDate.IsZero() {
			t.Fatalf("classic profile must not model demographics: %+v", c)
		}
	}

	for _, a := range ds.Accounts {
		if _, ok := ds.Customer(a.CustomerID); !ok {
			t.Fatalf("account %s references unknown customer %s", a.AccountID, a.CustomerID)
		}
		if a.AccountID != "ACC"+a.CustomerID {
			t.Errorf("account id %s not derived from %s", a.AccountID, a.CustomerID)
		}
		if a.USDBalance < 10 {
			t.Errorf("balance %f below floor", a.USDBalance)
		}
		if a.TotalBalanceUSD != a.USDBalance || a.ZWLBalance != 0 || a.PrimaryCurrency != models.CurrencyUSD {
			t.Errorf("single currency account malformed: %+v", a)
		}
		if a.AccountStatus != models.AccountActive {
			t.Errorf("account status %s", a.AccountStatus)
		}
	}

	windowStart := refTime.AddDate(0, 0, -30)
	txnIDs := map[string]bool{}
	for _, txn := range ds.Transactions {
		if txn.AmountUSD <= 0 {
			t.Fatalf("non-positive amount %f", txn.AmountUSD)
		}
		if txn.Status != models.StatusCompleted {
			t.Fatalf("classic profile produced status %s", txn.Status)
		}
		if txn.FeeUSD != 0 {
			t.Fatalf("classic profile produced fee %f", txn.FeeUSD)
		}
		if txn.TransactionDate.Before(windowStart) || !txn.TransactionDate.Before(refTime) {
			t.Fatalf("transaction date %v outside window", txn.TransactionDate)
		}
		if txnIDs[txn.TransactionID] {
			t.Fatalf("duplicate transaction id %s", txn.TransactionID)
		}
		txnIDs[txn.TransactionID] = true
		if _, ok := ds.Account(txn.AccountID); !ok {
			t.Fatalf("transaction %s references unknown account", txn.TransactionID)
		}
	}

	mean := float64(len(ds.Transactions)) / float64(len(ds.Accounts))
	if mean < 14 || mean > 16 {
		t.Errorf("mean transactions per account %f not within 1 of 15", mean)
	}

	if len(ds.Agents) != 0 {
		t.Errorf("classic profile produced %d agents", len(ds.Agents))
	}
}

func TestGenerateFull(t *testing.T) {
	cfg := Full()
	cfg.CustomerCount = 500
	cfg.Seed = seed(42)
	ds := generate(t, cfg)

	if len(ds.Agents) != 200 {
		t.Fatalf("Expected 200 agents, got %d", len(ds.Agents))
	}

	var zwl int
	for _, a := range ds.Accounts {
		if a.TotalBalanceUSD != a.USDBalance {
			t.Fatalf("total balance %f != usd balance %f", a.TotalBalanceUSD, a.USDBalance)
		}
		switch a.PrimaryCurrency {
		case models.CurrencyZWL:
			zwl++
			if a.ZWLBalance < a.USDBalance*800 || a.ZWLBalance > a.USDBalance*1200 {
				t.Errorf("zwl balance %f outside rate range for usd %f", a.ZWLBalance, a.USDBalance)
			}
		case models.CurrencyUSD:
			if a.ZWLBalance != 0 {
				t.Errorf("usd primary account has zwl balance %f", a.ZWLBalance)
			}
		default:
			t.Fatalf("unknown currency %s", a.PrimaryCurrency)
		}
	}
	if zwl == 0 {
		t.Error("Expected some ZWL primary accounts")
	}

	for i, c := range ds.Customers {
		if c.Age < 18 || c.Age > 70 {
			t.Fatalf("age %d outside [18, 70]", c.Age)
		}
		want := cfg.RegistrationStart.AddDate(0, 0, i)
		if !c.RegistrationDate.Equal(want) {
			t.Fatalf("customer %d registered %v, want %v", i, c.RegistrationDate, want)
		}
	}

	var failed int
	for _, txn := range ds.Transactions {
		if txn.FeeUSD > txn.AmountUSD || txn.FeeUSD <= 0 {
			t.Fatalf("fee %f invalid for amount %f", txn.FeeUSD, txn.AmountUSD)
		}
		want := 0.01
		if txn.TransactionType == models.TxnSendMoney || txn.TransactionType == models.TxnBillPayment {
			want = 0.02
		}
		if !almostEqual(txn.FeeUSD, txn.AmountUSD*want) {
			t.Fatalf("fee %f is not %v of %f", txn.FeeUSD, want, txn.AmountUSD)
		}
		if txn.Status == models.StatusFailed {
			failed++
		}
	}
	rate := float64(failed) / float64(len(ds.Transactions))
	if rate > 0.05 {
		t.Errorf("failure rate %f too far from 0.02", rate)
	}

	mean := float64(len(ds.Transactions)) / float64(len(ds.Accounts))
	if mean < 24 || mean > 26 {
		t.Errorf("mean transactions per account %f not within 1 of 25", mean)
	}
}

func TestGenerateDeterministic(t *testing.T) {
	cfg := Classic()
	cfg.CustomerCount = 100

	a := generate(t, cfg)
	b := generate(t, cfg)
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("same seed produced different datasets")
	}

	cfg.Seed = seed(43)
	c := generate(t, cfg)
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("different seeds produced identical datasets")
	}
}

// Customer ids stop being fixed-width past INN9999, so transaction ids must
// stay unique across the width change.
func TestGenerateTransactionIDsPastFourDigits(t *testing.T) {
	cfg := Classic()
	cfg.CustomerCount = 10001
	ds := generate(t, cfg)

	if got := ds.Customers[10000].CustomerID; got != "INN10001" {
		t.Fatalf("Expected INN10001, got %s", got)
	}
	owner := make(map[string]string, len(ds.Transactions))
	for _, txn := range ds.Transactions {
		if prev, ok := owner[txn.TransactionID]; ok {
			t.Fatalf("duplicate transaction id %s: accounts %s and %s", txn.TransactionID, prev, txn.AccountID)
		}
		owner[txn.TransactionID] = txn.AccountID
	}
}

func TestGenerateZeroCustomers(t *testing.T) {
	cfg := Classic()
	cfg.CustomerCount = 0
	ds := generate(t, cfg)

	if len(ds.Customers) != 0 || len(ds.Accounts) != 0 || len(ds.Transactions) != 0 {
		t.Fatalf("Expected empty tables, got %d/%d/%d", len(ds.Customers), len(ds.Accounts), len(ds.Transactions))
	}
	k := ds.Aggregate().KPIs
	if k.KYCCompletionRate.Defined || k.SuccessRate.Defined || k.AvgTransactionSize.Defined {
		t.Errorf("rates should be undefined: %+v", k)
	}
}

func TestGenerateEndToEnd(t *testing.T) {
	cfg := Classic()
	cfg.CustomerCount = 100
	cfg.LookbackDays = 30
	ds := generate(t, cfg)

	if len(ds.Customers) != 100 || len(ds.Accounts) != 100 {
		t.Fatalf("Expected 100/100, got %d/%d", len(ds.Customers), len(ds.Accounts))
	}
	var sum float64
	for _, txn := range ds.Transactions {
		if txn.AmountUSD <= 0 {
			t.Fatalf("amount %f", txn.AmountUSD)
		}
		sum += txn.AmountUSD
	}

	k := ds.Aggregate().KPIs
	if !almostEqual(k.TotalVolume/sum, 1) {
		t.Errorf("total volume %f != sum %f", k.TotalVolume, sum)
	}
	if r := k.KYCCompletionRate.Value; r < 0.70 || r > 0.90 {
		t.Errorf("kyc completion rate %f outside [0.70, 0.90]", r)
	}
}

func TestValidate(t *testing.T) {
	cfg := Classic()
	cfg.CustomerCount = -1
	cfg.LookbackDays = 0
	cfg.TransactionsPerAccount = -3

	_, err := NewGenerator(cfg, nil)
	if err == nil {
		t.Fatal("Expected configuration error")
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("error %v does not wrap ErrInvalidConfig", err)
	}

	cfg = Full()
	cfg.AgentCount = -5
	cfg.ZWLRateMax = 100
	cfg.Channels = Weighted{Values: []string{"a", "b"}, Weights: []float64{1}}
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected invalid full config, got %v", err)
	}

	for _, c := range []GeneratorConfig{Classic(), Extended(), Full()} {
		if err := c.Validate(); err != nil {
			t.Errorf("profile %s invalid: %v", c.Profile, err)
		}
	}
}

func TestProfileConfig(t *testing.T) {
	c, err := ProfileConfig(ProfileFull)
	if err != nil {
		t.Fatal(err)
	}
	if c.Seed != nil || !c.ModelAgents || c.Currency != CurrencyDual {
		t.Errorf("unexpected full profile %+v", c)
	}
	if _, err := ProfileConfig("v4"); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected unknown profile error, got %v", err)
	}
}
