// Package export writes dataset tables and chart inputs as flat CSV,
// building an arrow record per table.
package export

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/csv"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/innbucks/dashboard/internal/engine"
	"github.com/innbucks/dashboard/internal/models"
)

// ErrUnknownTable is returned by Write for names that are neither a table
// nor a breakdown dimension.
var ErrUnknownTable = errors.New("unknown table")

// Tables lists the names accepted by Write.
var Tables = []string{"customers", "accounts", "transactions", "agents", "daily", "volume_by_type", "kpis"}

var (
	customerSchema = arrow.NewSchema([]arrow.Field{
		{Name: "customer_id", Type: arrow.BinaryTypes.String},
		{Name: "customer_type", Type: arrow.BinaryTypes.String},
		{Name: "region", Type: arrow.BinaryTypes.String},
		{Name: "branch", Type: arrow.BinaryTypes.String},
		{Name: "mobile_network", Type: arrow.BinaryTypes.String},
		{Name: "kyc_status", Type: arrow.BinaryTypes.String},
		{Name: "age", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "registration_date", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)

	accountSchema = arrow.NewSchema([]arrow.Field{
		{Name: "account_id", Type: arrow.BinaryTypes.String},
		{Name: "customer_id", Type: arrow.BinaryTypes.String},
		{Name: "usd_balance", Type: arrow.PrimitiveTypes.Float64},
		{Name: "zwl_balance", Type: arrow.PrimitiveTypes.Float64},
		{Name: "primary_currency", Type: arrow.BinaryTypes.String},
		{Name: "total_balance_usd", Type: arrow.PrimitiveTypes.Float64},
		{Name: "account_status", Type: arrow.BinaryTypes.String},
	}, nil)

	transactionSchema = arrow.NewSchema([]arrow.Field{
		{Name: "transaction_id", Type: arrow.BinaryTypes.String},
		{Name: "account_id", Type: arrow.BinaryTypes.String},
		{Name: "customer_id", Type: arrow.BinaryTypes.String},
		{Name: "transaction_date", Type: arrow.FixedWidthTypes.Timestamp_s},
		{Name: "transaction_type", Type: arrow.BinaryTypes.String},
		{Name: "amount_usd", Type: arrow.PrimitiveTypes.Float64},
		{Name: "channel", Type: arrow.BinaryTypes.String},
		{Name: "status", Type: arrow.BinaryTypes.String},
		{Name: "fee_usd", Type: arrow.PrimitiveTypes.Float64},
	}, nil)

	agentSchema = arrow.NewSchema([]arrow.Field{
		{Name: "agent_id", Type: arrow.BinaryTypes.String},
		{Name: "location", Type: arrow.BinaryTypes.String},
		{Name: "status", Type: arrow.BinaryTypes.String},
		{Name: "monthly_volume_usd", Type: arrow.PrimitiveTypes.Float64},
		{Name: "registration_date", Type: arrow.BinaryTypes.String},
	}, nil)

	dailySchema = arrow.NewSchema([]arrow.Field{
		{Name: "date", Type: arrow.BinaryTypes.String},
		{Name: "volume", Type: arrow.PrimitiveTypes.Float64},
		{Name: "count", Type: arrow.PrimitiveTypes.Int64},
	}, nil)

	labelValueSchema = arrow.NewSchema([]arrow.Field{
		{Name: "label", Type: arrow.BinaryTypes.String},
		{Name: "value", Type: arrow.PrimitiveTypes.Float64},
	}, nil)

	kpiSchema = arrow.NewSchema([]arrow.Field{
		{Name: "metric", Type: arrow.BinaryTypes.String},
		{Name: "value", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	}, nil)
)

// Writer turns records into CSV on an io.Writer.
type Writer struct {
	mem memory.Allocator
}

func NewWriter() *Writer {
	return &Writer{mem: memory.NewGoAllocator()}
}

// Write emits one named table of ds (and its dashboard) as CSV.
func (w *Writer) Write(out io.Writer, table string, ds *engine.Dataset, data *models.DashboardData) error {
	switch table {
	case "customers":
		return w.Customers(out, ds.Customers)
	case "accounts":
		return w.Accounts(out, ds.Accounts)
	case "transactions":
		return w.Transactions(out, ds.Transactions)
	case "agents":
		return w.Agents(out, ds.Agents)
	case "daily":
		return w.Daily(out, data.Daily)
	case "volume_by_type":
		return w.LabelValues(out, data.VolumeByType)
	case "kpis":
		return w.KPIs(out, data.KPIs)
	}
	if items, ok := data.Breakdowns.Lookup(table); ok {
		return w.LabelValues(out, items)
	}
	return fmt.Errorf("%w %q", ErrUnknownTable, table)
}

func (w *Writer) emit(out io.Writer, schema *arrow.Schema, fill func(b *array.RecordBuilder)) error {
	b := array.NewRecordBuilder(w.mem, schema)
	defer b.Release()
	fill(b)
	rec := b.NewRecord()
	defer rec.Release()

	cw := csv.NewWriter(out, schema, csv.WithHeader(true), csv.WithNullWriter(""))
	if err := cw.Write(rec); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return cw.Flush()
}

func dateOrNull(b *array.StringBuilder, t time.Time) {
	if t.IsZero() {
		b.AppendNull()
		return
	}
	b.Append(t.Format(time.DateOnly))
}

func (w *Writer) Customers(out io.Writer, rows []models.Customer) error {
	return w.emit(out, customerSchema, func(b *array.RecordBuilder) {
		for _, c := range rows {
			b.Field(0).(*array.StringBuilder).Append(c.CustomerID)
			b.Field(1).(*array.StringBuilder).Append(c.CustomerType)
			b.Field(2).(*array.StringBuilder).Append(c.Region)
			b.Field(3).(*array.StringBuilder).Append(c.Branch)
			b.Field(4).(*array.StringBuilder).Append(c.MobileNetwork)
			b.Field(5).(*array.StringBuilder).Append(c.KYCStatus)
			if c.Age > 0 {
				b.Field(6).(*array.Int64Builder).Append(int64(c.Age))
			} else {
				b.Field(6).(*array.Int64Builder).AppendNull()
			}
			dateOrNull(b.Field(7).(*array.StringBuilder), c.RegistrationDate)
		}
	})
}

func (w *Writer) Accounts(out io.Writer, rows []models.Account) error {
	return w.emit(out, accountSchema, func(b *array.RecordBuilder) {
		for _, a := range rows {
			b.Field(0).(*array.StringBuilder).Append(a.AccountID)
			b.Field(1).(*array.StringBuilder).Append(a.CustomerID)
			b.Field(2).(*array.Float64Builder).Append(a.USDBalance)
			b.Field(3).(*array.Float64Builder).Append(a.ZWLBalance)
			b.Field(4).(*array.StringBuilder).Append(a.PrimaryCurrency)
			b.Field(5).(*array.Float64Builder).Append(a.TotalBalanceUSD)
			b.Field(6).(*array.StringBuilder).Append(a.AccountStatus)
		}
	})
}

func (w *Writer) Transactions(out io.Writer, rows []models.Transaction) error {
	return w.emit(out, transactionSchema, func(b *array.RecordBuilder) {
		for _, t := range rows {
			b.Field(0).(*array.StringBuilder).Append(t.TransactionID)
			b.Field(1).(*array.StringBuilder).Append(t.AccountID)
			b.Field(2).(*array.StringBuilder).Append(t.CustomerID)
			b.Field(3).(*array.TimestampBuilder).Append(arrow.Timestamp(t.TransactionDate.Unix()))
			b.Field(4).(*array.StringBuilder).Append(t.TransactionType)
			b.Field(5).(*array.Float64Builder).Append(t.AmountUSD)
			b.Field(6).(*array.StringBuilder).Append(t.Channel)
			b.Field(7).(*array.StringBuilder).Append(t.Status)
			b.Field(8).(*array.Float64Builder).Append(t.FeeUSD)
		}
	})
}

func (w *Writer) Agents(out io.Writer, rows []models.Agent) error {
	return w.emit(out, agentSchema, func(b *array.RecordBuilder) {
		for _, a := range rows {
			b.Field(0).(*array.StringBuilder).Append(a.AgentID)
			b.Field(1).(*array.StringBuilder).Append(a.Location)
			b.Field(2).(*array.StringBuilder).Append(a.Status)
			b.Field(3).(*array.Float64Builder).Append(a.MonthlyVolumeUSD)
			b.Field(4).(*array.StringBuilder).Append(a.RegistrationDate.Format(time.DateOnly))
		}
	})
}

func (w *Writer) Daily(out io.Writer, rows []models.DailyPoint) error {
	return w.emit(out, dailySchema, func(b *array.RecordBuilder) {
		for _, p := range rows {
			b.Field(0).(*array.StringBuilder).Append(p.Date)
			b.Field(1).(*array.Float64Builder).Append(p.Volume)
			b.Field(2).(*array.Int64Builder).Append(int64(p.Count))
		}
	})
}

func (w *Writer) LabelValues(out io.Writer, rows []models.LabelValue) error {
	return w.emit(out, labelValueSchema, func(b *array.RecordBuilder) {
		for _, it := range rows {
			b.Field(0).(*array.StringBuilder).Append(it.Label)
			b.Field(1).(*array.Float64Builder).Append(it.Value)
		}
	})
}

// KPIs writes one metric per row, sorted by name. Undefined rates are
// written as empty cells.
func (w *Writer) KPIs(out io.Writer, k models.KPIs) error {
	plain := map[string]float64{
		"total_customers":          float64(k.TotalCustomers),
		"total_accounts":           float64(k.TotalAccounts),
		"total_transactions":       float64(k.TotalTransactions),
		"total_volume":             k.TotalVolume,
		"total_deposits":           k.TotalDeposits,
		"kyc_pending":              float64(k.KYCPending),
		"total_fee_income":         k.TotalFeeIncome,
		"last_7_days_volume":       k.Last7DaysVolume,
		"last_7_days_transactions": float64(k.Last7DaysTransactions),
		"new_customers_this_month": float64(k.NewCustomersThisMonth),
		"active_agents":            float64(k.ActiveAgents),
	}
	rates := map[string]models.Ratio{
		"kyc_completion_rate":  k.KYCCompletionRate,
		"avg_transaction_size": k.AvgTransactionSize,
		"success_rate":         k.SuccessRate,
		"avg_account_balance":  k.AvgAccountBalance,
	}
	names := make([]string, 0, len(plain)+len(rates))
	for n := range plain {
		names = append(names, n)
	}
	for n := range rates {
		names = append(names, n)
	}
	sort.Strings(names)

	return w.emit(out, kpiSchema, func(b *array.RecordBuilder) {
		for _, n := range names {
			b.Field(0).(*array.StringBuilder).Append(n)
			vb := b.Field(1).(*array.Float64Builder)
			if r, ok := rates[n]; ok {
				if r.Defined {
					vb.Append(r.Value)
				} else {
					vb.AppendNull()
				}
				continue
			}
			vb.Append(plain[n])
		}
	})
}
