package engine

import (
	"testing"

	"github.com/innbucks/dashboard/internal/models"
)

func TestFingerprintCoversEveryField(t *testing.T) {
	base := mockDataset().Fingerprint()
	if base != mockDataset().Fingerprint() {
		t.Fatal("fingerprint not stable for identical datasets")
	}

	edits := map[string]func(d *Dataset){
		"customer age":          func(d *Dataset) { d.Customers[0].Age = 30 },
		"customer registration": func(d *Dataset) { d.Customers[2].RegistrationDate = refTime },
		"account currency":      func(d *Dataset) { d.Accounts[0].PrimaryCurrency = models.CurrencyZWL },
		"account zwl balance":   func(d *Dataset) { d.Accounts[1].ZWLBalance = 900 },
		"account usd balance":   func(d *Dataset) { d.Accounts[2].USDBalance = 11 },
		"transaction type":      func(d *Dataset) { d.Transactions[0].TransactionType = models.TxnCashOut },
		"transaction channel":   func(d *Dataset) { d.Transactions[1].Channel = models.ChannelBranch },
		"transaction fee":       func(d *Dataset) { d.Transactions[2].FeeUSD = 0.61 },
		"agent location":        func(d *Dataset) { d.Agents[0].Location = "Mutare" },
		"agent status":          func(d *Dataset) { d.Agents[1].Status = models.AgentActive },
		"generation time":       func(d *Dataset) { d.GeneratedAt = refTime.AddDate(0, 0, 1) },
		"field boundary":        func(d *Dataset) { d.Customers[0].Region, d.Customers[0].Branch = "HarareHarare", " CBD" },
	}
	for name, edit := range edits {
		d := mockDataset()
		edit(d)
		if d.Fingerprint() == base {
			t.Errorf("changing %s did not change the fingerprint", name)
		}
	}
}
