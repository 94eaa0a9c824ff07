package engine

import (
	"strings"
	"time"

	"github.com/innbucks/dashboard/internal/models"
)

// Filter is a read-only restriction applied before re-aggregation. Empty
// fields match everything. From is inclusive, To is exclusive.
type Filter struct {
	Region       string
	Branch       string
	CustomerType string
	KYCStatus    string

	TransactionType string
	Channel         string
	From            time.Time
	To              time.Time
}

func (f Filter) IsZero() bool {
	return f == Filter{}
}

// Label joins the set fields, for naming exports.
func (f Filter) Label() string {
	var parts []string
	for _, v := range []string{f.Region, f.Branch, f.CustomerType, f.KYCStatus, f.TransactionType, f.Channel} {
		if v != "" {
			parts = append(parts, v)
		}
	}
	if !f.From.IsZero() {
		parts = append(parts, "from "+f.From.Format(time.DateOnly))
	}
	if !f.To.IsZero() {
		parts = append(parts, "to "+f.To.Format(time.DateOnly))
	}
	return strings.Join(parts, " ")
}

func (f Filter) customerFiltered() bool {
	return f.Region != "" || f.Branch != "" || f.CustomerType != "" || f.KYCStatus != ""
}

func (f Filter) matchCustomer(c models.Customer) bool {
	return (f.Region == "" || c.Region == f.Region) &&
		(f.Branch == "" || c.Branch == f.Branch) &&
		(f.CustomerType == "" || c.CustomerType == f.CustomerType) &&
		(f.KYCStatus == "" || c.KYCStatus == f.KYCStatus)
}

func (f Filter) matchTransaction(t models.Transaction) bool {
	if f.TransactionType != "" && t.TransactionType != f.TransactionType {
		return false
	}
	if f.Channel != "" && t.Channel != f.Channel {
		return false
	}
	if !f.From.IsZero() && t.TransactionDate.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !t.TransactionDate.Before(f.To) {
		return false
	}
	return true
}

// Apply returns the subset of d matching f. Accounts follow their customer,
// transactions follow their account. Agents are restricted by Branch only.
func (f Filter) Apply(d *Dataset) *Dataset {
	if f.IsZero() {
		return d
	}

	var customers []models.Customer
	keep := make(map[string]struct{}, len(d.Customers))
	for _, c := range d.Customers {
		if f.matchCustomer(c) {
			customers = append(customers, c)
			keep[c.CustomerID] = struct{}{}
		}
	}

	var accounts []models.Account
	for _, a := range d.Accounts {
		if _, ok := keep[a.CustomerID]; ok {
			accounts = append(accounts, a)
		}
	}

	var txns []models.Transaction
	for _, t := range d.Transactions {
		if f.customerFiltered() {
			if _, ok := keep[t.CustomerID]; !ok {
				continue
			}
		}
		if f.matchTransaction(t) {
			txns = append(txns, t)
		}
	}

	agents := d.Agents
	if f.Branch != "" {
		agents = nil
		for _, a := range d.Agents {
			if a.Location == f.Branch {
				agents = append(agents, a)
			}
		}
	}

	return newDataset(d.GeneratedAt, customers, accounts, txns, agents)
}
