package bank

import "github.com/dvloznov/finance-insights/internal/domain"

const (
	// UnknownCode is returned when no profile identifies the document.
	UnknownCode = "unknown"
	unknownName = "Banco não identificado"

	methodProfile  = "enhanced_parser"
	methodFallback = "fallback"

	profileConfidence  = 0.95
	fallbackConfidence = 0.1
)

// Detect identifies the issuing bank from free text. It never fails: when no
// profile matches it returns the unknown bank with confidence 0.1.
func Detect(text string) domain.BankDetection {
	for _, p := range profiles {
		for _, id := range p.Identifiers {
			if id.MatchString(text) {
				return domain.BankDetection{
					Bank:       p.Code,
					BankName:   p.Name,
					Confidence: profileConfidence,
					Method:     methodProfile,
				}
			}
		}
	}
	return Unknown()
}

// Unknown is the fallback detection result.
func Unknown() domain.BankDetection {
	return domain.BankDetection{
		Bank:       UnknownCode,
		BankName:   unknownName,
		Confidence: fallbackConfidence,
		Method:     methodFallback,
	}
}
