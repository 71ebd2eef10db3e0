package fraud

import (
	"fmt"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-insights/internal/domain"
)

func tx(day int, desc string, amount float64) domain.Transaction {
	return domain.Transaction{
		Date:        civil.Date{Year: 2024, Month: time.January, Day: day},
		Description: desc,
		Amount:      amount,
		Type:        domain.TypeDebit,
	}
}

func patterns(alerts []domain.FraudAlert) []string {
	out := make([]string, len(alerts))
	for i, a := range alerts {
		out[i] = a.Pattern
	}
	return out
}

func TestDetect_Gambling(t *testing.T) {
	alerts := NewDetector().Detect([]domain.Transaction{
		tx(1, "aposta online", 200),
		tx(2, "bet365", 300),
	})

	require.Len(t, alerts, 1)
	a := alerts[0]
	assert.Equal(t, "Atividade de Jogos", a.Pattern)
	assert.Equal(t, domain.SeverityHigh, a.Severity)
	assert.InDelta(t, 0.5, a.Confidence, 1e-9)
	assert.Equal(t, []string{
		"2024-01-01: aposta online (R$ 200,00)",
		"2024-01-02: bet365 (R$ 300,00)",
	}, a.Evidence)
}

func TestDetect_BelowThreshold(t *testing.T) {
	assert.Empty(t, NewDetector().Detect([]domain.Transaction{tx(1, "aposta online", 200)}))
	assert.Empty(t, NewDetector().Detect(nil))
}

func TestDetect_SortedBySeverity(t *testing.T) {
	alerts := NewDetector().Detect([]domain.Transaction{
		tx(1, "bet365", 1500),
		tx(2, "betano", 2500),
		tx(3, "PIX dinheiro facil", 800),
	})

	require.Len(t, alerts, 2)
	assert.Equal(t, "Mula Financeira", alerts[0].Pattern)
	assert.Equal(t, domain.SeverityCritical, alerts[0].Severity)
	// 1/2 base + 0.1 average amount weight
	assert.InDelta(t, 0.6, alerts[0].Confidence, 1e-9)
	// 2/4 base + 0.2 average amount weight
	assert.InDelta(t, 0.7, alerts[1].Confidence, 1e-9)
}

func TestDetect_FrequencyBonusCapped(t *testing.T) {
	var txs []domain.Transaction
	for i := 1; i <= 7; i++ {
		txs = append(txs, tx(i*2, fmt.Sprintf("poker night %d", i), 2000+float64(i)))
	}
	alerts := NewDetector().Detect(txs)
	require.Contains(t, patterns(alerts), "Atividade de Jogos")
	assert.InDelta(t, 1.0, alerts[0].Confidence, 1e-9)
}

func TestDetect_DuplicateAmounts(t *testing.T) {
	alerts := NewDetector().Detect([]domain.Transaction{
		tx(1, "streaming", 49.90),
		tx(3, "streaming", 49.90),
		tx(5, "streaming", 49.90),
	})
	require.Len(t, alerts, 1)
	assert.Equal(t, "Valores Repetitivos", alerts[0].Pattern)
	assert.Equal(t, []string{"R$ 49,90: 3 ocorrências"}, alerts[0].Evidence)
	assert.InDelta(t, 0.7, alerts[0].Confidence, 1e-9)
}

func TestDetect_LimitAvoidance(t *testing.T) {
	alerts := NewDetector().Detect([]domain.Transaction{
		tx(1, "transferencia", 9600),
		tx(3, "boleto", 950),
		tx(5, "boleto", 1234.56),
	})
	require.Len(t, alerts, 1)
	assert.Equal(t, "Evasão de Limites", alerts[0].Pattern)
	assert.Equal(t, domain.SeverityHigh, alerts[0].Severity)
	assert.Equal(t, []string{
		"2024-01-01: R$ 9.600,00 (limite: R$ 9.999,00)",
		"2024-01-03: R$ 950,00 (limite: R$ 999,00)",
	}, alerts[0].Evidence)
}

func TestDetect_HighVelocityAndRapid(t *testing.T) {
	var txs []domain.Transaction
	for i := range 11 {
		txs = append(txs, tx(10, fmt.Sprintf("compra %d", i), float64(17+i*10)))
	}

	alerts := NewDetector().Detect(txs)
	got := patterns(alerts)
	assert.ElementsMatch(t, []string{"Alta Velocidade", "Transações Rápidas"}, got)
	assert.Equal(t, "Alta Velocidade", alerts[0].Pattern)

	for _, a := range alerts {
		if a.Pattern == "Transações Rápidas" {
			assert.Len(t, a.Evidence, 5)
		}
		if a.Pattern == "Alta Velocidade" {
			assert.Equal(t, []string{"2024-01-10: 11 transações"}, a.Evidence)
		}
	}
}

func TestDetect_RapidUsesPostedAt(t *testing.T) {
	base := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	var txs []domain.Transaction
	for i := range 7 {
		item := tx(10, fmt.Sprintf("compra %d", i), float64(11+i*13))
		at := base.Add(time.Duration(i) * 2 * time.Hour)
		item.PostedAt = &at
		txs = append(txs, item)
	}
	assert.NotContains(t, patterns(NewDetector().Detect(txs)), "Transações Rápidas")
}

func TestDetect_StatisticalOutlier(t *testing.T) {
	var txs []domain.Transaction
	for i := 1; i <= 18; i++ {
		txs = append(txs, tx(i, "mercado", 100+float64(i)))
	}
	txs = append(txs, tx(20, "deposito", 100000))

	alerts := NewDetector().Detect(txs)
	require.Contains(t, patterns(alerts), "Anomalias Estatísticas")
	for _, a := range alerts {
		if a.Pattern == "Anomalias Estatísticas" {
			assert.Equal(t, domain.SeverityMedium, a.Severity)
			assert.Len(t, a.Evidence, 1)
		}
	}
}

func TestDetect_RoundStructuring(t *testing.T) {
	txs := []domain.Transaction{
		tx(1, "saque", 1000),
		tx(3, "saque", 2000),
		tx(5, "saque", 3000),
		tx(7, "saque", 5000),
	}
	for i := range 6 {
		txs = append(txs, tx(9+i*3, "mercado", 123.45+float64(i)))
	}

	alerts := NewDetector().Detect(txs)
	require.Contains(t, patterns(alerts), "Estruturação por Valores Redondos")
}

func TestDetector_Configuration(t *testing.T) {
	d := NewDetector()
	assert.True(t, d.SetThreshold("Atividade de Jogos", 1))
	assert.False(t, d.SetThreshold("Inexistente", 1))

	alerts := d.Detect([]domain.Transaction{tx(1, "bingo", 10)})
	require.Len(t, alerts, 1)
	assert.Equal(t, "Atividade de Jogos", alerts[0].Pattern)

	d.AddFamily(Family{Name: "Pix Agendado", Indicators: []string{"agendado"}, Severity: domain.SeverityLow, Threshold: 1})
	alerts = d.Detect([]domain.Transaction{tx(1, "pix agendado", 10)})
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.SeverityLow, alerts[0].Severity)

	assert.Len(t, d.Families(), 8)
}

func TestOverallRiskScore(t *testing.T) {
	assert.Equal(t, 0, OverallRiskScore(nil))
	assert.Equal(t, 38, OverallRiskScore([]domain.FraudAlert{{Severity: domain.SeverityHigh, Confidence: 0.5}}))
	assert.Equal(t, 100, OverallRiskScore([]domain.FraudAlert{
		{Severity: domain.SeverityHigh, Confidence: 0.5},
		{Severity: domain.SeverityCritical, Confidence: 1},
	}))
}

func TestReport(t *testing.T) {
	assert.Equal(t, "✅ Nenhuma atividade suspeita detectada.", Report(nil))

	r := Report([]domain.FraudAlert{
		{Pattern: "Mula Financeira", Severity: domain.SeverityCritical, Confidence: 1, Description: "d", Recommendation: "agir"},
		{Pattern: "Atividade de Jogos", Severity: domain.SeverityHigh, Confidence: 0.5, Description: "j"},
	})
	assert.Contains(t, r, "⚠️ ALERTAS CRÍTICOS (1):")
	assert.Contains(t, r, "  Ação: agir")
	assert.Contains(t, r, "🔶 ALERTAS DE ALTO RISCO (1):")
	assert.Contains(t, r, "Confiança: 50.0%")
	assert.Contains(t, r, "📊 SCORE DE RISCO GERAL: 100/100")
	assert.Contains(t, r, "Investigação detalhada necessária")
}
