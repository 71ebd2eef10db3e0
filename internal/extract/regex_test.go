package extract

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-insights/internal/domain"
)

func fixedClock() func() time.Time {
	return func() time.Time { return time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC) }
}

func TestParseTransactions_GenericSalary(t *testing.T) {
	p := NewParser(WithClock(fixedClock()))

	txs := p.ParseTransactions("15/01/2024 SALARIO EMPRESA 5000,00", "unknown")
	require.Len(t, txs, 1)

	tx := txs[0]
	assert.Equal(t, civil.Date{Year: 2024, Month: 1, Day: 15}, tx.Date)
	assert.Equal(t, "SALARIO EMPRESA", tx.Description)
	assert.InDelta(t, 5000.0, tx.Amount, 1e-9)
	assert.Equal(t, domain.TypeCredit, tx.Type)
	assert.Equal(t, domain.CategoryGeneric, tx.Category)
}

func TestParseTransactions_Nubank(t *testing.T) {
	p := NewParser(WithClock(fixedClock()))
	text := "NUBANK - fatura\n" +
		"15/01 IFOOD RESTAURANTE -R$ 45,90\n" +
		"16/01 PAGAMENTO RECEBIDO R$ 1.200,00\n" +
		"17/01 LIVRARIA CENTRAL -R$ 80,00\n"

	txs := p.ParseTransactions(text, "nubank")
	require.Len(t, txs, 3)

	assert.Equal(t, civil.Date{Year: 2024, Month: 1, Day: 15}, txs[0].Date)
	assert.Equal(t, domain.TypeDebit, txs[0].Type)
	assert.InDelta(t, 45.90, txs[0].Amount, 1e-9)
	assert.Equal(t, "Alimentação", txs[0].Category)
	assert.Equal(t, "Nubank", txs[0].Bank)

	assert.Equal(t, domain.TypeCredit, txs[1].Type)
	assert.InDelta(t, 1200.0, txs[1].Amount, 1e-9)

	assert.Equal(t, domain.CategoryOther, txs[2].Category)
}

func TestParseWithProfile_SkipsZeroAmountRows(t *testing.T) {
	p := NewParser(WithClock(fixedClock()))
	text := "Nubank extrato\n" +
		"05/01 Padaria Pao Quente R$ -12,50\n" +
		"06/01 Estorno tarifa R$ 0,00\n" +
		"10/01 Salario R$ 3000,00\n"

	txs := p.ParseTransactions(text, "nubank")
	require.Len(t, txs, 2)
	require.NoError(t, ValidateSchema(txs))

	assert.Equal(t, "Padaria Pao Quente", txs[0].Description)
	assert.Equal(t, domain.TypeDebit, txs[0].Type)
	assert.Equal(t, "Salario", txs[1].Description)
	for _, tx := range txs {
		assert.Equal(t, "Nubank", tx.Bank)
	}
}

func TestParseTransactions_ItauFullDate(t *testing.T) {
	p := NewParser(WithClock(fixedClock()))

	txs := p.ParseTransactions("05/02/2023 PIX TRANSFERENCIA -1.234,56", "itau")
	require.Len(t, txs, 1)
	assert.Equal(t, civil.Date{Year: 2023, Month: 2, Day: 5}, txs[0].Date)
	assert.Equal(t, domain.TypeDebit, txs[0].Type)
	assert.InDelta(t, 1234.56, txs[0].Amount, 1e-9)
	assert.Equal(t, "Transferências", txs[0].Category)
}

func TestParseTransactions_ProfileMissFallsBackToGeneric(t *testing.T) {
	p := NewParser(WithClock(fixedClock()))

	// Nubank lines carry R$; a bare amount only matches the generic scanner.
	txs := p.ParseTransactions("20/01 MERCADO BOM PRECO -150,00", "nubank")
	require.Len(t, txs, 1)
	assert.Equal(t, domain.CategoryGeneric, txs[0].Category)
	assert.Equal(t, domain.TypeDebit, txs[0].Type)
}

func TestParseGeneric(t *testing.T) {
	p := NewParser(WithClock(fixedClock()))
	text := "Extrato de conta\n" +
		"20/01/2024 COMPRA 2 UNIDADES -150,00\n" +
		"Saldo em 21/01\n" +
		"22/01/2024 TARIFA 0,00\n" +
		"23/01 PIX RECEBIDO R$ 300\n"

	txs := p.ParseGeneric(text)
	require.Len(t, txs, 2)

	assert.Equal(t, "COMPRA 2 UNIDADES", txs[0].Description)
	assert.InDelta(t, 150.0, txs[0].Amount, 1e-9)
	assert.Equal(t, domain.TypeDebit, txs[0].Type)

	assert.Equal(t, civil.Date{Year: 2024, Month: 1, Day: 23}, txs[1].Date)
	assert.Equal(t, "PIX RECEBIDO", txs[1].Description)
	assert.InDelta(t, 300.0, txs[1].Amount, 1e-9)
}

func TestParseGeneric_DetachedDashIsNotASign(t *testing.T) {
	p := NewParser(WithClock(fixedClock()))

	txs := p.ParseGeneric("15/01/2024 DEPOSITO LOJA - 500,00\n16/01/2024 SAQUE -80,00\n")
	require.Len(t, txs, 2)

	assert.Equal(t, domain.TypeCredit, txs[0].Type)
	assert.InDelta(t, 500.0, txs[0].Amount, 1e-9)

	assert.Equal(t, domain.TypeDebit, txs[1].Type)
	assert.InDelta(t, 80.0, txs[1].Amount, 1e-9)
}

func TestParseTransactions_AmountsAreMagnitudes(t *testing.T) {
	p := NewParser(WithClock(fixedClock()))
	text := "01/03/2024 SAQUE -500,00\n02/03/2024 DEPOSITO 700,00\n03/03/2024 BOLETO -99,90\n"

	for _, tx := range p.ParseTransactions(text, "unknown") {
		assert.GreaterOrEqual(t, tx.Amount, 0.0)
		assert.True(t, tx.Type.Valid())
	}
}
