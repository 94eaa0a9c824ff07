package engine

import (
	"fmt"
	"time"

	"github.com/innbucks/dashboard/internal/models"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

type Generator struct {
	cfg GeneratorConfig
	log *zap.Logger
}

// NewGenerator validates cfg before any sampling happens.
func NewGenerator(cfg GeneratorConfig, log *zap.Logger) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{cfg: cfg, log: log}, nil
}

func (g *Generator) Config() GeneratorConfig { return g.cfg }

// Generate builds all tables from src. The same source state and config
// always produce the same dataset.
func (g *Generator) Generate(src rand.Source) *Dataset {
	start := time.Now()
	now := g.cfg.Now
	if now.IsZero() {
		now = start
	}
	s := newSampler(src)

	customers := g.customers(s)
	accounts := g.accounts(s, customers)
	txns := g.transactions(s, now, accounts)
	var agents []models.Agent
	if g.cfg.ModelAgents {
		agents = g.agents(s, now)
	}

	d := newDataset(now, customers, accounts, txns, agents)
	g.log.Info("dataset generated",
		zap.String("profile", g.cfg.Profile),
		zap.Int("customers", len(customers)),
		zap.Int("accounts", len(accounts)),
		zap.Int("transactions", len(txns)),
		zap.Int("agents", len(agents)),
		zap.Duration("took", time.Since(start)),
	)
	return d
}

func (g *Generator) customers(s *sampler) []models.Customer {
	n := g.cfg.CustomerCount
	types := s.picker(g.cfg.CustomerTypes)
	regions := s.uniformPicker(g.cfg.Regions)
	branches := s.uniformPicker(g.cfg.Branches)
	networks := s.picker(g.cfg.MobileNetworks)
	kyc := s.picker(g.cfg.KYCStatuses)

	out := make([]models.Customer, n)
	for i := range out {
		c := models.Customer{
			CustomerID:    fmt.Sprintf("INN%04d", i+1),
			CustomerType:  types.pick(),
			Region:        regions.pick(),
			Branch:        branches.pick(),
			MobileNetwork: networks.pick(),
			KYCStatus:     kyc.pick(),
		}
		if g.cfg.Demographics {
			c.Age = 18 + s.intn(53)
			c.RegistrationDate = g.cfg.RegistrationStart.Add(time.Duration(i) * g.cfg.RegistrationStep)
		}
		out[i] = c
	}
	return out
}

func (g *Generator) accounts(s *sampler, customers []models.Customer) []models.Account {
	var currency *picker
	if g.cfg.Currency == CurrencyDual {
		currency = s.picker(g.cfg.PrimaryCurrency)
	}

	out := make([]models.Account, len(customers))
	for i, c := range customers {
		usd := max(g.cfg.BalanceFloor, s.lognormal(g.cfg.Balance))
		a := models.Account{
			AccountID:       "ACC" + c.CustomerID,
			CustomerID:      c.CustomerID,
			USDBalance:      usd,
			PrimaryCurrency: models.CurrencyUSD,
			TotalBalanceUSD: usd,
			AccountStatus:   models.AccountActive,
		}
		if currency != nil {
			a.PrimaryCurrency = currency.pick()
			if a.PrimaryCurrency == models.CurrencyZWL {
				a.ZWLBalance = usd * s.uniform(g.cfg.ZWLRateMin, g.cfg.ZWLRateMax)
			}
		}
		out[i] = a
	}
	return out
}

func (g *Generator) transactions(s *sampler, now time.Time, accounts []models.Account) []models.Transaction {
	days := g.cfg.LookbackDays
	windowStart := now.AddDate(0, 0, -days)
	types := s.picker(g.cfg.TransactionTypes)
	channels := s.picker(g.cfg.Channels)
	statuses := s.picker(g.cfg.Statuses)

	out := make([]models.Transaction, 0, int(float64(len(accounts))*g.cfg.TransactionsPerAccount))
	for _, a := range accounts {
		n := s.poisson(g.cfg.TransactionsPerAccount)
		for i := 0; i < n; i++ {
			at := windowStart.
				AddDate(0, 0, s.intn(days)).
				Add(time.Duration(s.intn(24)) * time.Hour)
			typ := types.pick()
			t := models.Transaction{
				TransactionID:   fmt.Sprintf("TXN%s-%d", a.AccountID, i),
				AccountID:       a.AccountID,
				CustomerID:      a.CustomerID,
				TransactionDate: at,
				TransactionType: typ,
				AmountUSD:       s.folded(g.cfg.amountParams(typ)),
				Channel:         channels.pick(),
				Status:          statuses.pick(),
			}
			if g.cfg.ModelFees {
				t.FeeUSD = t.AmountUSD * g.cfg.feeRate(typ)
			}
			out = append(out, t)
		}
	}
	return out
}

func (g *Generator) agents(s *sampler, now time.Time) []models.Agent {
	locations := s.uniformPicker(g.cfg.Branches)
	statuses := s.picker(g.cfg.AgentStatuses)
	span := int(now.Sub(g.cfg.RegistrationStart).Hours() / 24)

	out := make([]models.Agent, g.cfg.AgentCount)
	for i := range out {
		out[i] = models.Agent{
			AgentID:          fmt.Sprintf("AGT%03d", i+1),
			Location:         locations.pick(),
			Status:           statuses.pick(),
			MonthlyVolumeUSD: s.lognormal(g.cfg.AgentVolume),
			RegistrationDate: g.cfg.RegistrationStart.AddDate(0, 0, s.intn(span)),
		}
	}
	return out
}
