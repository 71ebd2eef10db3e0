package fraud

import (
	"fmt"
	"math"
	"strings"

	"github.com/dvloznov/finance-insights/internal/domain"
)

// OverallRiskScore weighs every alert by confidence and severity on a 0-100 scale.
func OverallRiskScore(alerts []domain.FraudAlert) int {
	var total float64
	for _, a := range alerts {
		total += a.Confidence * float64(a.Severity.Weight()) * 25
	}
	return int(math.Min(100, math.Round(total)))
}

// Report renders alerts as a Portuguese text summary.
func Report(alerts []domain.FraudAlert) string {
	if len(alerts) == 0 {
		return "✅ Nenhuma atividade suspeita detectada."
	}

	var critical, high []domain.FraudAlert
	for _, a := range alerts {
		switch a.Severity {
		case domain.SeverityCritical:
			critical = append(critical, a)
		case domain.SeverityHigh:
			high = append(high, a)
		}
	}

	var b strings.Builder
	b.WriteString("🚨 RELATÓRIO DE DETECÇÃO DE FRAUDES\n\n")

	if len(critical) > 0 {
		fmt.Fprintf(&b, "⚠️ ALERTAS CRÍTICOS (%d):\n", len(critical))
		for _, a := range critical {
			fmt.Fprintf(&b, "- %s: %s\n", a.Pattern, a.Description)
			fmt.Fprintf(&b, "  Confiança: %.1f%%\n", a.Confidence*100)
			fmt.Fprintf(&b, "  Ação: %s\n\n", a.Recommendation)
		}
	}
	if len(high) > 0 {
		fmt.Fprintf(&b, "🔶 ALERTAS DE ALTO RISCO (%d):\n", len(high))
		for _, a := range high {
			fmt.Fprintf(&b, "- %s: %s\n", a.Pattern, a.Description)
			fmt.Fprintf(&b, "  Confiança: %.1f%%\n\n", a.Confidence*100)
		}
	}

	score := OverallRiskScore(alerts)
	fmt.Fprintf(&b, "📊 SCORE DE RISCO GERAL: %d/100\n", score)
	switch {
	case score > 70:
		b.WriteString("🚨 RECOMENDAÇÃO: Investigação detalhada necessária.")
	case score > 40:
		b.WriteString("⚠️ RECOMENDAÇÃO: Monitoramento contínuo recomendado.")
	default:
		b.WriteString("✅ RECOMENDAÇÃO: Perfil de baixo risco.")
	}
	return b.String()
}
