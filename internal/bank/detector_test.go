package bank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantCode string
		wantName string
	}{
		{"nubank upper case", "EXTRATO NUBANK JANEIRO", "nubank", "Nubank"},
		{"nubank nickname", "fatura do roxinho", "nubank", "Nubank"},
		{"itau accent", "Banco Itaú Unibanco S.A.", "itau", "Itaú"},
		{"bradesco", "Bradesco Celular - extrato", "bradesco", "Bradesco"},
		{"santander", "SANTANDER extrato conta", "santander", "Santander"},
		{"caixa", "CAIXA ECONOMICA FEDERAL", "caixa", "Caixa Econômica Federal"},
		{"picpay spaced", "Pic Pay comprovante", "picpay", "PicPay"},
		{"infinitepay", "InfinitePay vendas do dia", "infinitepay", "InfinitePay"},
		{"first profile wins", "transferencia nubank para itau", "nubank", "Nubank"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Detect(tt.text)
			assert.Equal(t, tt.wantCode, got.Bank)
			assert.Equal(t, tt.wantName, got.BankName)
			assert.InDelta(t, 0.95, got.Confidence, 1e-9)
			assert.Equal(t, "enhanced_parser", got.Method)
		})
	}
}

func TestDetect_Unknown(t *testing.T) {
	for _, text := range []string{"", "extrato de conta corrente", "15/01/2024 SALARIO EMPRESA 5000,00"} {
		got := Detect(text)
		assert.Equal(t, UnknownCode, got.Bank)
		assert.Equal(t, "Banco não identificado", got.BankName)
		assert.InDelta(t, 0.1, got.Confidence, 1e-9)
		assert.Equal(t, "fallback", got.Method)
	}
}

func TestLookup(t *testing.T) {
	p, ok := Lookup("santander")
	require.True(t, ok)
	assert.Equal(t, LayoutDayMonthYear, p.Layout)

	_, ok = Lookup(UnknownCode)
	assert.False(t, ok)
}

func TestCodes_Order(t *testing.T) {
	assert.Equal(t, []string{"nubank", "itau", "bradesco", "santander", "caixa", "picpay", "infinitepay"}, Codes())
}

func TestProfileLines(t *testing.T) {
	tests := []struct {
		code       string
		line       string
		wantDate   string
		wantDesc   string
		wantAmount string
	}{
		{"nubank", "15/01 IFOOD RESTAURANTE R$ 45,90", "15/01", "IFOOD RESTAURANTE", "R$ 45,90"},
		{"itau", "15/01/2024 PIX ENVIADO JOAO -1.250,00", "15/01/2024", "PIX ENVIADO JOAO", "-1.250,00"},
		{"bradesco", "10/02 11/02 COMPRA VISA MERCADO -89,90", "10/02", "COMPRA VISA MERCADO", "-89,90"},
		{"santander", "03/03/24 TED RECEBIDA 2.000,00", "03/03/24", "TED RECEBIDA", "2.000,00"},
		{"picpay", "20/04/2024 RECARGA CELULAR -R$ 30,00", "20/04/2024", "RECARGA CELULAR", "-R$ 30,00"},
		{"itau", "15/01/2024 COMPRA 2 UNIDADES -150,00", "15/01/2024", "COMPRA 2 UNIDADES", "-150,00"},
	}

	for _, tt := range tests {
		t.Run(tt.code+" "+tt.line, func(t *testing.T) {
			p, ok := Lookup(tt.code)
			require.True(t, ok)

			m := p.Line.FindStringSubmatch(tt.line)
			require.NotNil(t, m)
			assert.Equal(t, tt.wantDate, m[p.Line.SubexpIndex("date")])
			assert.Equal(t, tt.wantDesc, m[p.Line.SubexpIndex("desc")])
			assert.Equal(t, tt.wantAmount, m[p.Line.SubexpIndex("amount")])
		})
	}
}
