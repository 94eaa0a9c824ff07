package engine

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/innbucks/dashboard/internal/models"
	"github.com/zeebo/xxh3"
)

// Dataset holds the generated tables. Nothing mutates it after the
// generator returns; filters produce new Datasets.
type Dataset struct {
	GeneratedAt  time.Time
	Customers    []models.Customer
	Accounts     []models.Account
	Transactions []models.Transaction
	Agents       []models.Agent

	customerIdx map[string]int
	accountIdx  map[string]int
}

func newDataset(at time.Time, customers []models.Customer, accounts []models.Account, txns []models.Transaction, agents []models.Agent) *Dataset {
	d := &Dataset{
		GeneratedAt:  at,
		Customers:    customers,
		Accounts:     accounts,
		Transactions: txns,
		Agents:       agents,
		customerIdx:  make(map[string]int, len(customers)),
		accountIdx:   make(map[string]int, len(accounts)),
	}
	for i, c := range customers {
		d.customerIdx[c.CustomerID] = i
	}
	for i, a := range accounts {
		d.accountIdx[a.AccountID] = i
	}
	return d
}

func (d *Dataset) Customer(id string) (models.Customer, bool) {
	i, ok := d.customerIdx[id]
	if !ok {
		return models.Customer{}, false
	}
	return d.Customers[i], true
}

func (d *Dataset) Account(id string) (models.Account, bool) {
	i, ok := d.accountIdx[id]
	if !ok {
		return models.Account{}, false
	}
	return d.Accounts[i], true
}

// Fingerprint hashes every field of every row plus the generation time.
// Two datasets with the same fingerprint render identically.
func (d *Dataset) Fingerprint() string {
	h := xxh3.New()
	var buf [8]byte
	putUint := func(u uint64) {
		for i := range buf {
			buf[i] = byte(u >> (8 * i))
		}
		_, _ = h.Write(buf[:])
	}
	putFloat := func(f float64) { putUint(math.Float64bits(f)) }
	putTime := func(t time.Time) {
		putUint(uint64(t.Unix()))
		putUint(uint64(t.Nanosecond()))
	}
	// strings are NUL terminated so adjacent fields cannot run together
	putString := func(vs ...string) {
		for _, v := range vs {
			_, _ = h.WriteString(v)
			_, _ = h.Write([]byte{0})
		}
	}

	putTime(d.GeneratedAt)
	for _, c := range d.Customers {
		putString(c.CustomerID, c.CustomerType, c.Region, c.Branch, c.MobileNetwork, c.KYCStatus)
		putUint(uint64(c.Age))
		putTime(c.RegistrationDate)
	}
	for _, a := range d.Accounts {
		putString(a.AccountID, a.CustomerID, a.PrimaryCurrency, a.AccountStatus)
		putFloat(a.USDBalance)
		putFloat(a.ZWLBalance)
		putFloat(a.TotalBalanceUSD)
	}
	for _, t := range d.Transactions {
		putString(t.TransactionID, t.AccountID, t.CustomerID, t.TransactionType, t.Channel, t.Status)
		putTime(t.TransactionDate)
		putFloat(t.AmountUSD)
		putFloat(t.FeeUSD)
	}
	for _, a := range d.Agents {
		putString(a.AgentID, a.Location, a.Status)
		putFloat(a.MonthlyVolumeUSD)
		putTime(a.RegistrationDate)
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

// FilterOptions lists the distinct values present, sorted.
func (d *Dataset) FilterOptions() models.FilterOptions {
	regions := map[string]struct{}{}
	branches := map[string]struct{}{}
	ctypes := map[string]struct{}{}
	kyc := map[string]struct{}{}
	ttypes := map[string]struct{}{}
	channels := map[string]struct{}{}
	for _, c := range d.Customers {
		regions[c.Region] = struct{}{}
		branches[c.Branch] = struct{}{}
		ctypes[c.CustomerType] = struct{}{}
		kyc[c.KYCStatus] = struct{}{}
	}
	for _, t := range d.Transactions {
		ttypes[t.TransactionType] = struct{}{}
		channels[t.Channel] = struct{}{}
	}
	return models.FilterOptions{
		Regions:          sortedKeys(regions),
		Branches:         sortedKeys(branches),
		CustomerTypes:    sortedKeys(ctypes),
		KYCStatuses:      sortedKeys(kyc),
		TransactionTypes: sortedKeys(ttypes),
		Channels:         sortedKeys(channels),
	}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
