package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/innbucks/dashboard/internal/engine"
	"github.com/innbucks/dashboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSnapshot(t *testing.T, cfg engine.GeneratorConfig) *engine.Snapshot {
	t.Helper()
	cfg.CustomerCount = 20
	cfg.Now = time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	snap, err := engine.Build(cfg, nil)
	require.NoError(t, err)
	return snap
}

func lines(buf *bytes.Buffer) []string {
	return strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
}

func TestWriteTables(t *testing.T) {
	full := engine.Full()
	full.Seed = new(uint64)
	snap := buildSnapshot(t, full)
	w := NewWriter()

	cases := []struct {
		table  string
		header string
		rows   int
	}{
		{"customers", "customer_id,customer_type,region,branch,mobile_network,kyc_status,age,registration_date", len(snap.Dataset.Customers)},
		{"accounts", "account_id,customer_id,usd_balance,zwl_balance,primary_currency,total_balance_usd,account_status", len(snap.Dataset.Accounts)},
		{"transactions", "transaction_id,account_id,customer_id,transaction_date,transaction_type,amount_usd,channel,status,fee_usd", len(snap.Dataset.Transactions)},
		{"agents", "agent_id,location,status,monthly_volume_usd,registration_date", len(snap.Dataset.Agents)},
		{"daily", "date,volume,count", len(snap.Dashboard.Daily)},
		{"volume_by_type", "label,value", len(snap.Dashboard.VolumeByType)},
		{"channel", "label,value", len(snap.Dashboard.Breakdowns.Channel)},
	}
	for _, tc := range cases {
		t.Run(tc.table, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, w.Write(&buf, tc.table, snap.Dataset, snap.Dashboard))
			got := lines(&buf)
			assert.Equal(t, tc.header, got[0])
			assert.Len(t, got, tc.rows+1)
		})
	}
}

func TestWriteCustomersRow(t *testing.T) {
	var buf bytes.Buffer
	err := NewWriter().Customers(&buf, []models.Customer{{
		CustomerID: "INN0001", CustomerType: models.CustomerIndividual, Region: "Harare",
		Branch: "Harare CBD", MobileNetwork: "Econet", KYCStatus: models.KYCVerified,
	}})
	require.NoError(t, err)

	got := lines(&buf)
	require.Len(t, got, 2)
	assert.Equal(t, "INN0001,Individual,Harare,Harare CBD,Econet,Verified,,", got[1])
}

func TestWriteKPIsUndefined(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter().KPIs(&buf, models.KPIs{TotalTransactions: 0}))

	out := buf.String()
	assert.Contains(t, out, "success_rate,\n")
	assert.Contains(t, out, "total_transactions,0\n")
}

func TestWriteUnknownTable(t *testing.T) {
	snap := buildSnapshot(t, engine.Classic())
	var buf bytes.Buffer
	err := NewWriter().Write(&buf, "ledger", snap.Dataset, snap.Dashboard)
	assert.ErrorIs(t, err, ErrUnknownTable)
	assert.Zero(t, buf.Len())
}
