package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/innbucks/dashboard/internal/models"
	"golang.org/x/exp/rand"
)

// ErrInvalidConfig is wrapped by every generator configuration error.
var ErrInvalidConfig = errors.New("invalid generator config")

type CurrencyModel string

const (
	CurrencySingle CurrencyModel = "single"
	CurrencyDual   CurrencyModel = "dual"
)

const (
	ProfileClassic  = "classic"
	ProfileExtended = "extended"
	ProfileFull     = "full"
)

// Weighted is a categorical distribution. Empty Weights means uniform.
type Weighted struct {
	Values  []string
	Weights []float64
}

func (w Weighted) validate(name string) error {
	if len(w.Values) == 0 {
		return fmt.Errorf("%w: %s has no values", ErrInvalidConfig, name)
	}
	if len(w.Weights) == 0 {
		return nil
	}
	if len(w.Weights) != len(w.Values) {
		return fmt.Errorf("%w: %s has %d values but %d weights", ErrInvalidConfig, name, len(w.Values), len(w.Weights))
	}
	var sum float64
	for _, p := range w.Weights {
		if p < 0 {
			return fmt.Errorf("%w: %s has a negative weight", ErrInvalidConfig, name)
		}
		sum += p
	}
	if sum == 0 {
		return fmt.Errorf("%w: %s weights sum to zero", ErrInvalidConfig, name)
	}
	return nil
}

// LogNormal parameters of the underlying normal.
type LogNormal struct {
	Mu    float64
	Sigma float64
}

// GeneratorConfig parameterises one run of the synthetic data generator.
type GeneratorConfig struct {
	Profile string

	CustomerCount int
	LookbackDays  int
	// TransactionsPerAccount is the Poisson rate of transactions per account.
	TransactionsPerAccount float64
	AgentCount             int

	Currency     CurrencyModel
	ModelAgents  bool
	ModelFees    bool
	Demographics bool

	// Seed fixes the random source. Nil means fresh entropy on every run.
	Seed *uint64
	// Now anchors the lookback window. Zero means time.Now().
	Now time.Time

	Regions        []string
	Branches       []string
	CustomerTypes  Weighted
	MobileNetworks Weighted
	KYCStatuses    Weighted

	TransactionTypes Weighted
	Channels         Weighted
	// Statuses is the transaction status enumeration. A single value means
	// failures are not modelled.
	Statuses Weighted

	PrimaryCurrency Weighted
	ZWLRateMin      float64
	ZWLRateMax      float64

	Balance       LogNormal
	BalanceFloor  float64
	Amount        LogNormal
	AmountByType  map[string]LogNormal
	FeeRateByType map[string]float64
	DefaultFee    float64

	AgentStatuses     Weighted
	AgentVolume       LogNormal
	RegistrationStart time.Time
	// RegistrationStep is the gap between consecutive customer registrations.
	RegistrationStep time.Duration
}

// FailuresModelled reports whether transactions can end in a non-Completed status.
func (c GeneratorConfig) FailuresModelled() bool {
	return len(c.Statuses.Values) > 1
}

// Validate reports every problem found, each wrapping ErrInvalidConfig.
func (c GeneratorConfig) Validate() error {
	var errs []error
	if c.CustomerCount < 0 {
		errs = append(errs, fmt.Errorf("%w: customer count %d is negative", ErrInvalidConfig, c.CustomerCount))
	}
	if c.LookbackDays <= 0 {
		errs = append(errs, fmt.Errorf("%w: lookback days must be positive, got %d", ErrInvalidConfig, c.LookbackDays))
	}
	if c.TransactionsPerAccount < 0 {
		errs = append(errs, fmt.Errorf("%w: transactions per account %v is negative", ErrInvalidConfig, c.TransactionsPerAccount))
	}
	if c.ModelAgents && c.AgentCount < 0 {
		errs = append(errs, fmt.Errorf("%w: agent count %d is negative", ErrInvalidConfig, c.AgentCount))
	}
	switch c.Currency {
	case CurrencySingle:
	case CurrencyDual:
		if err := c.PrimaryCurrency.validate("primary currency"); err != nil {
			errs = append(errs, err)
		}
		if c.ZWLRateMin <= 0 || c.ZWLRateMax < c.ZWLRateMin {
			errs = append(errs, fmt.Errorf("%w: zwl rate range [%v, %v] is invalid", ErrInvalidConfig, c.ZWLRateMin, c.ZWLRateMax))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: unknown currency model %q", ErrInvalidConfig, c.Currency))
	}
	if len(c.Regions) == 0 {
		errs = append(errs, fmt.Errorf("%w: no regions", ErrInvalidConfig))
	}
	if len(c.Branches) == 0 {
		errs = append(errs, fmt.Errorf("%w: no branches", ErrInvalidConfig))
	}
	for _, w := range []struct {
		name string
		set  Weighted
	}{
		{"customer types", c.CustomerTypes},
		{"mobile networks", c.MobileNetworks},
		{"kyc statuses", c.KYCStatuses},
		{"transaction types", c.TransactionTypes},
		{"channels", c.Channels},
		{"statuses", c.Statuses},
	} {
		if err := w.set.validate(w.name); err != nil {
			errs = append(errs, err)
		}
	}
	if c.ModelAgents {
		if err := c.AgentStatuses.validate("agent statuses"); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Balance.Sigma < 0 || c.Amount.Sigma < 0 {
		errs = append(errs, fmt.Errorf("%w: log-normal sigma must not be negative", ErrInvalidConfig))
	}
	for t, p := range c.AmountByType {
		if p.Sigma < 0 {
			errs = append(errs, fmt.Errorf("%w: amount sigma for %q is negative", ErrInvalidConfig, t))
		}
	}
	return errors.Join(errs...)
}

// Source returns the random source for a run: seeded when Seed is set,
// otherwise drawn from the clock.
func (c GeneratorConfig) Source() rand.Source {
	if c.Seed != nil {
		return rand.NewSource(*c.Seed)
	}
	return rand.NewSource(uint64(time.Now().UnixNano()))
}

func (c GeneratorConfig) amountParams(txnType string) LogNormal {
	if p, ok := c.AmountByType[txnType]; ok {
		return p
	}
	return c.Amount
}

func (c GeneratorConfig) feeRate(txnType string) float64 {
	if r, ok := c.FeeRateByType[txnType]; ok {
		return r
	}
	return c.DefaultFee
}

var (
	regions  = []string{"Harare", "Bulawayo", "Midlands", "Masvingo"}
	branches = []string{"Harare CBD", "Bulawayo Central", "Mutare", "Gweru"}

	fullRegions = []string{
		"Harare", "Bulawayo", "Midlands", "Masvingo", "Manicaland",
		"Mashonaland East", "Mashonaland West", "Matabeleland North",
	}
	fullBranches = []string{
		"Harare CBD", "Bulawayo Central", "Mutare", "Gweru",
		"Masvingo", "Chinhoyi", "Kwekwe", "Victoria Falls",
	}
)

func seed(v uint64) *uint64 { return &v }

// Classic is the original single-currency dashboard: 1000 customers,
// 30 day window, seeded with 42.
func Classic() GeneratorConfig {
	return GeneratorConfig{
		Profile:                ProfileClassic,
		CustomerCount:          1000,
		LookbackDays:           30,
		TransactionsPerAccount: 15,
		Currency:               CurrencySingle,
		Seed:                   seed(42),
		Regions:                regions,
		Branches:               branches,
		CustomerTypes: Weighted{
			Values:  []string{models.CustomerIndividual, models.CustomerAgent, models.CustomerMerchant},
			Weights: []float64{0.85, 0.10, 0.05},
		},
		MobileNetworks: Weighted{
			Values:  []string{"Econet", "NetOne", "Telecel"},
			Weights: []float64{0.7, 0.2, 0.1},
		},
		KYCStatuses: Weighted{
			Values:  []string{models.KYCVerified, models.KYCPending},
			Weights: []float64{0.8, 0.2},
		},
		TransactionTypes: Weighted{
			Values:  []string{models.TxnSendMoney, models.TxnCashIn, models.TxnCashOut, models.TxnBillPayment, models.TxnAirtime},
			Weights: []float64{0.4, 0.2, 0.15, 0.15, 0.1},
		},
		Channels: Weighted{
			Values:  []string{models.ChannelMobileApp, models.ChannelUSSD, models.ChannelAgent},
			Weights: []float64{0.6, 0.3, 0.1},
		},
		Statuses:          Weighted{Values: []string{models.StatusCompleted}},
		Balance:           LogNormal{Mu: 5, Sigma: 1.2},
		BalanceFloor:      10,
		Amount:            LogNormal{Mu: 3.5, Sigma: 1.0},
		RegistrationStart: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		RegistrationStep:  24 * time.Hour,
	}
}

// Extended adds the Expired KYC status and the Branch channel to Classic.
func Extended() GeneratorConfig {
	c := Classic()
	c.Profile = ProfileExtended
	c.KYCStatuses = Weighted{
		Values:  []string{models.KYCVerified, models.KYCPending, models.KYCExpired},
		Weights: []float64{0.8, 0.15, 0.05},
	}
	c.Channels = Weighted{
		Values:  []string{models.ChannelMobileApp, models.ChannelUSSD, models.ChannelAgent, models.ChannelBranch},
		Weights: []float64{0.5, 0.3, 0.15, 0.05},
	}
	return c
}

// Full is the richest variant: dual currency, failures, fees, agents and
// demographics over a 90 day window, unseeded.
func Full() GeneratorConfig {
	c := Extended()
	c.Profile = ProfileFull
	c.CustomerCount = 5000
	c.LookbackDays = 90
	c.TransactionsPerAccount = 25
	c.Seed = nil
	c.Regions = fullRegions
	c.Branches = fullBranches
	c.Currency = CurrencyDual
	c.PrimaryCurrency = Weighted{
		Values:  []string{models.CurrencyUSD, models.CurrencyZWL},
		Weights: []float64{0.7, 0.3},
	}
	c.ZWLRateMin, c.ZWLRateMax = 800, 1200
	c.Statuses = Weighted{
		Values:  []string{models.StatusCompleted, models.StatusFailed},
		Weights: []float64{0.98, 0.02},
	}
	c.Amount = LogNormal{Mu: 3.0, Sigma: 0.8}
	c.AmountByType = map[string]LogNormal{
		models.TxnSendMoney: {Mu: 3.5, Sigma: 1.0},
		models.TxnCashIn:    {Mu: 4.0, Sigma: 1.2},
	}
	c.ModelFees = true
	c.FeeRateByType = map[string]float64{
		models.TxnSendMoney:   0.02,
		models.TxnBillPayment: 0.02,
	}
	c.DefaultFee = 0.01
	c.Demographics = true
	c.ModelAgents = true
	c.AgentCount = 200
	c.AgentStatuses = Weighted{
		Values:  []string{models.AgentActive, models.AgentInactive},
		Weights: []float64{0.9, 0.1},
	}
	c.AgentVolume = LogNormal{Mu: 8, Sigma: 1}
	return c
}

// ProfileConfig returns the preset for a profile name.
func ProfileConfig(name string) (GeneratorConfig, error) {
	switch name {
	case ProfileClassic, "":
		return Classic(), nil
	case ProfileExtended:
		return Extended(), nil
	case ProfileFull:
		return Full(), nil
	}
	return GeneratorConfig{}, fmt.Errorf("%w: unknown profile %q", ErrInvalidConfig, name)
}
