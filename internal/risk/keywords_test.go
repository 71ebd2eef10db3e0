package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dvloznov/finance-insights/internal/domain"
)

func debit(desc string, amount float64) domain.Transaction {
	return domain.Transaction{Description: desc, Amount: amount, Type: domain.TypeDebit}
}

func TestClassifier_IsSuspicious(t *testing.T) {
	c := Default()

	tests := []struct {
		name string
		tx   domain.Transaction
		want bool
	}{
		{"gambling keyword", debit("APOSTA ONLINE", 50), true},
		{"fraud keyword", debit("estorno compra", 80), true},
		{"laundering keyword", debit("remessa exterior", 300), true},
		{"round above ten thousand", debit("compra", 12000), true},
		{"round at ten thousand", debit("compra", 10000), false},
		{"non round large", debit("compra", 12500.5), false},
		{"very large", debit("compra", 50001), true},
		{"ordinary", debit("padaria", 20), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.IsSuspicious(tt.tx))
		})
	}
}

func TestClassifier_IsDebtPayment(t *testing.T) {
	c := Default()

	assert.True(t, c.IsDebtPayment(debit("PARCELAMENTO FATURA", 500)))
	assert.False(t, c.IsDebtPayment(domain.Transaction{Description: "emprestimo recebido", Amount: 500, Type: domain.TypeCredit}))
	assert.False(t, c.IsDebtPayment(debit("mercado", 100)))
}

func TestClassifier_IsRecurring(t *testing.T) {
	c := Default()

	assert.True(t, c.IsRecurring(debit("Assinatura Netflix", 39.9)))
	assert.True(t, c.IsRecurring(domain.Transaction{Description: "SALARIO EMPRESA", Amount: 5000, Type: domain.TypeCredit}))
	assert.False(t, c.IsRecurring(debit("farmacia", 30)))
}

func TestClassifier_Score(t *testing.T) {
	c := Default()

	assert.InDelta(t, 0.0, c.Score(debit("padaria", 15)), 1e-9)
	assert.InDelta(t, 0.5, c.Score(debit("compra", 20500)), 1e-9)
	assert.InDelta(t, 0.2, c.Score(debit("compra", 3000)), 1e-9)
	assert.InDelta(t, 1.0, c.Score(debit("bet365 deposito", 60000)), 1e-9)
}

func TestClassifier_Counts(t *testing.T) {
	c := Default()
	txs := []domain.Transaction{
		debit("aposta online", 200),
		debit("bet365", 300),
		debit("mercado", 150),
	}

	suspicious, gambling := c.Counts(txs)
	assert.Equal(t, 2, suspicious)
	assert.Equal(t, 2, gambling)
}

func TestKeywords_Merge(t *testing.T) {
	custom := Keywords{Gambling: []string{"tigrinho"}}
	merged := custom.Merge(DefaultKeywords())

	assert.Equal(t, []string{"tigrinho"}, merged.Gambling)
	assert.Equal(t, DefaultKeywords().Debt, merged.Debt)

	c := NewClassifier(merged)
	assert.True(t, c.IsGambling(debit("JOGO DO TIGRINHO", 10)))
	assert.False(t, c.IsGambling(debit("bet365", 10)))
}
