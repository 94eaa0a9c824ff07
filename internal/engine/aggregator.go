package engine

import (
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/innbucks/dashboard/internal/models"
	"golang.org/x/exp/rand"
)

// minChunk keeps tiny datasets on a single worker.
const minChunk = 4096

type aggStats struct {
	Vol   float64
	Trans int
}

// partialAgg is one worker's view of its transaction chunk.
type partialAgg struct {
	volume    float64
	fees      float64
	completed int
	last7Vol  float64
	last7Cnt  int

	byType    map[string]*aggStats
	byChannel map[string]int
	byStatus  map[string]int
	byDay     map[string]*aggStats
}

func newPartialAgg() *partialAgg {
	return &partialAgg{
		byType:    make(map[string]*aggStats),
		byChannel: make(map[string]int),
		byStatus:  make(map[string]int),
		byDay:     make(map[string]*aggStats),
	}
}

func bump(m map[string]*aggStats, key string, vol float64, n int) {
	s, ok := m[key]
	if !ok {
		s = &aggStats{}
		m[key] = s
	}
	s.Vol += vol
	s.Trans += n
}

// Aggregate derives every KPI and chart input from d. It is a pure
// function of d: Decoration is left zero, see Decorate.
func (d *Dataset) Aggregate() *models.DashboardData {
	ref := d.GeneratedAt
	weekAgo := ref.AddDate(0, 0, -7)
	monthStart := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())

	// 1. Transactions, fanned out over workers
	txns := d.Transactions
	numWorkers := runtime.NumCPU()
	if limit := len(txns)/minChunk + 1; limit < numWorkers {
		numWorkers = limit
	}
	chunkSize := len(txns) / numWorkers

	// Partials are merged in worker order so float sums do not depend on
	// goroutine scheduling.
	partials := make([]*partialAgg, numWorkers)
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if i == numWorkers-1 {
			end = len(txns)
		}

		wg.Add(1)
		go func(idx, s, e int) {
			defer wg.Done()
			p := newPartialAgg()
			for j := s; j < e; j++ {
				t := &txns[j]
				p.volume += t.AmountUSD
				p.fees += t.FeeUSD
				if t.Status == models.StatusCompleted {
					p.completed++
				}
				if !t.TransactionDate.Before(weekAgo) {
					p.last7Vol += t.AmountUSD
					p.last7Cnt++
				}
				bump(p.byType, t.TransactionType, t.AmountUSD, 1)
				p.byChannel[t.Channel]++
				p.byStatus[t.Status]++
				bump(p.byDay, t.TransactionDate.Format(time.DateOnly), t.AmountUSD, 1)
			}
			partials[idx] = p
		}(i, start, end)
	}
	wg.Wait()

	merged := newPartialAgg()
	for _, p := range partials {
		merged.volume += p.volume
		merged.fees += p.fees
		merged.completed += p.completed
		merged.last7Vol += p.last7Vol
		merged.last7Cnt += p.last7Cnt
		for k, v := range p.byType {
			bump(merged.byType, k, v.Vol, v.Trans)
		}
		for k, v := range p.byChannel {
			merged.byChannel[k] += v
		}
		for k, v := range p.byStatus {
			merged.byStatus[k] += v
		}
		for k, v := range p.byDay {
			bump(merged.byDay, k, v.Vol, v.Trans)
		}
	}

	// 2. Customers
	distinct := make(map[string]struct{}, len(d.Customers))
	var verified, pending, newThisMonth int
	byRegion := map[string]int{}
	byBranch := map[string]int{}
	byCustType := map[string]int{}
	byNetwork := map[string]int{}
	byKYC := map[string]int{}
	for _, c := range d.Customers {
		distinct[c.CustomerID] = struct{}{}
		switch c.KYCStatus {
		case models.KYCVerified:
			verified++
		case models.KYCPending:
			pending++
		}
		if !c.RegistrationDate.IsZero() && !c.RegistrationDate.Before(monthStart) {
			newThisMonth++
		}
		byRegion[c.Region]++
		byBranch[c.Branch]++
		byCustType[c.CustomerType]++
		byNetwork[c.MobileNetwork]++
		byKYC[c.KYCStatus]++
	}

	// 3. Accounts
	var deposits float64
	for _, a := range d.Accounts {
		deposits += a.TotalBalanceUSD
	}

	// 4. Agents
	var activeAgents int
	byAgentStatus := map[string]int{}
	byAgentLoc := map[string]int{}
	for _, a := range d.Agents {
		if a.Status == models.AgentActive {
			activeAgents++
		}
		byAgentStatus[a.Status]++
		byAgentLoc[a.Location]++
	}

	// 5. Build Result
	nTxn := float64(len(txns))
	data := &models.DashboardData{
		KPIs: models.KPIs{
			TotalCustomers:        len(distinct),
			TotalAccounts:         len(d.Accounts),
			TotalTransactions:     len(txns),
			TotalVolume:           merged.volume,
			TotalDeposits:         deposits,
			KYCCompletionRate:     models.NewRatio(float64(verified), float64(len(d.Customers))),
			KYCPending:            pending,
			AvgTransactionSize:    models.NewRatio(merged.volume, nTxn),
			SuccessRate:           models.NewRatio(float64(merged.completed), nTxn),
			TotalFeeIncome:        merged.fees,
			AvgAccountBalance:     models.NewRatio(deposits, float64(len(d.Accounts))),
			Last7DaysVolume:       merged.last7Vol,
			Last7DaysTransactions: merged.last7Cnt,
			NewCustomersThisMonth: newThisMonth,
			ActiveAgents:          activeAgents,
		},
		Breakdowns: models.Breakdowns{
			TransactionType: countItems(merged.byType),
			Channel:         topItems(merged.byChannel),
			Status:          topItems(merged.byStatus),
			Region:          topItems(byRegion),
			Branch:          topItems(byBranch),
			CustomerType:    topItems(byCustType),
			MobileNetwork:   topItems(byNetwork),
			KYCStatus:       topItems(byKYC),
			AgentStatus:     topItems(byAgentStatus),
			AgentLocation:   topItems(byAgentLoc),
		},
		VolumeByType: volumeItems(merged.byType),
		Daily:        make([]models.DailyPoint, 0, len(merged.byDay)),
	}

	for day, s := range merged.byDay {
		data.Daily = append(data.Daily, models.DailyPoint{Date: day, Volume: s.Vol, Count: s.Trans})
	}
	sort.Slice(data.Daily, func(i, j int) bool { return data.Daily[i].Date < data.Daily[j].Date })

	return data
}

// sortItems orders by value descending, then label.
func sortItems(items []models.LabelValue) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Value != items[j].Value {
			return items[i].Value > items[j].Value
		}
		return items[i].Label < items[j].Label
	})
}

func topItems(counts map[string]int) []models.LabelValue {
	items := make([]models.LabelValue, 0, len(counts))
	for k, n := range counts {
		items = append(items, models.LabelValue{Label: k, Value: float64(n)})
	}
	sortItems(items)
	return items
}

func countItems(stats map[string]*aggStats) []models.LabelValue {
	items := make([]models.LabelValue, 0, len(stats))
	for k, s := range stats {
		items = append(items, models.LabelValue{Label: k, Value: float64(s.Trans)})
	}
	sortItems(items)
	return items
}

func volumeItems(stats map[string]*aggStats) []models.LabelValue {
	items := make([]models.LabelValue, 0, len(stats))
	for k, s := range stats {
		items = append(items, models.LabelValue{Label: k, Value: s.Vol})
	}
	sortItems(items)
	return items
}

// Decorate fills the weekly growth placeholder. The value is drawn from
// [0.05, 0.15] and says nothing about the data.
func Decorate(data *models.DashboardData, rnd *rand.Rand) {
	applyGrowth(data, 0.05+rnd.Float64()*0.10)
}

func applyGrowth(data *models.DashboardData, g float64) {
	k := data.KPIs
	data.Decoration = models.Decoration{
		WeeklyGrowth:       g,
		WeeklyCustomers:    int(float64(k.TotalCustomers) * g),
		WeeklyTransactions: int(float64(k.TotalTransactions) * g),
		WeeklyVolume:       k.TotalVolume * g,
	}
}

// AccountSummary joins every account with its customer.
func (d *Dataset) AccountSummary() models.AccountSummary {
	out := models.AccountSummary{
		TotalAccounts: len(d.Accounts),
		Rows:          make([]models.AccountSummaryRow, 0, len(d.Accounts)),
	}
	for _, a := range d.Accounts {
		c, ok := d.Customer(a.CustomerID)
		if !ok {
			continue
		}
		out.TotalWalletSize += a.TotalBalanceUSD
		out.Rows = append(out.Rows, models.AccountSummaryRow{
			Account:       a,
			CustomerType:  c.CustomerType,
			Region:        c.Region,
			Branch:        c.Branch,
			MobileNetwork: c.MobileNetwork,
			KYCStatus:     c.KYCStatus,
		})
	}
	out.AverageBalance = models.NewRatio(out.TotalWalletSize, float64(len(out.Rows)))
	return out
}

// RecentTransactions returns up to limit transactions, newest first.
func (d *Dataset) RecentTransactions(limit int) []models.Transaction {
	out := make([]models.Transaction, len(d.Transactions))
	copy(out, d.Transactions)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TransactionDate.After(out[j].TransactionDate)
	})
	if limit >= 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}
