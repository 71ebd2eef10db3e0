package notionsync

import (
	"math"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/finance-insights/internal/domain"
)

// Database property names.
const (
	PropName        = "Name"
	PropAnalysisID  = "Analysis ID"
	PropBank        = "Bank"
	PropCreditScore = "Credit Score"
	PropRiskLevel   = "Risk Level"
	PropIncome      = "Income"
	PropExpenses    = "Expenses"
	PropPeriod      = "Period"
	PropAnalyzedAt  = "Analyzed At"
	PropFraudAlerts = "Fraud Alerts"
)

var riskLabels = map[domain.RiskLevel]string{
	domain.RiskLow:    "Baixo",
	domain.RiskMedium: "Médio",
	domain.RiskHigh:   "Alto",
}

func richText(content string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{
				Content: content,
			},
		},
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// PageTitle names the page after the analyzed file, or the analysis ID when
// the file is unnamed.
func PageTitle(result *domain.AnalysisResult) string {
	if result.FileName != "" {
		return result.FileName
	}
	return "Análise " + result.ID
}

// AnalysisToNotionProperties converts an analysis to database properties.
func AnalysisToNotionProperties(result *domain.AnalysisResult) notionapi.Properties {
	fa := result.FinancialAnalysis

	props := notionapi.Properties{
		PropName: notionapi.TitleProperty{
			Title: richText(PageTitle(result)),
		},
		PropAnalysisID: notionapi.RichTextProperty{
			RichText: richText(result.ID),
		},
		PropCreditScore: notionapi.NumberProperty{
			Number: float64(fa.CreditScore),
		},
		PropIncome: notionapi.NumberProperty{
			Number: round2(fa.TotalCredits),
		},
		PropExpenses: notionapi.NumberProperty{
			Number: round2(fa.TotalDebits),
		},
		PropFraudAlerts: notionapi.NumberProperty{
			Number: float64(len(result.FraudAlerts)),
		},
	}

	bank := result.BankDetection.BankName
	if bank == "" {
		bank = result.BankDetection.Bank
	}
	if bank != "" {
		props[PropBank] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: bank,
			},
		}
	}

	if label, ok := riskLabels[fa.RiskLevel]; ok {
		props[PropRiskLevel] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: label,
			},
		}
	}

	if result.ReportData.Period != "" {
		props[PropPeriod] = notionapi.RichTextProperty{
			RichText: richText(result.ReportData.Period),
		}
	}

	if !result.CreatedAt.IsZero() {
		d := notionapi.Date(result.CreatedAt.UTC())
		props[PropAnalyzedAt] = notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: &d,
			},
		}
	}

	return props
}

// extractAnalysisID reads the Analysis ID property of a page.
// Returns empty string if not found.
func extractAnalysisID(page notionapi.Page) string {
	if prop, ok := page.Properties[PropAnalysisID]; ok {
		if rt, ok := prop.(*notionapi.RichTextProperty); ok {
			if len(rt.RichText) > 0 {
				return rt.RichText[0].PlainText
			}
		}
	}
	return ""
}
