package fraud

import "github.com/dvloznov/finance-insights/internal/domain"

// Family is a keyword-driven suspicious pattern. An alert fires when at least
// Threshold transactions mention one of the indicators.
type Family struct {
	Name        string
	Description string
	Indicators  []string
	Severity    domain.Severity
	Action      string
	Threshold   int
}

// DefaultFamilies returns the built-in pattern families.
func DefaultFamilies() []Family {
	return []Family{
		{
			Name:        "Atividade de Jogos",
			Description: "Transações relacionadas a jogos de azar e apostas",
			Indicators: []string{
				"bet365", "betano", "betfair", "sportingbet", "rivalo",
				"jogo", "aposta", "cassino", "poker", "bingo",
				"loteria", "raspadinha", "mega sena", "slot",
				"blaze", "casa de apostas", "gambling",
			},
			Severity:  domain.SeverityHigh,
			Action:    "Monitorar padrões de vício em jogos",
			Threshold: 2,
		},
		{
			Name:        "Transações de Estruturação",
			Description: "Múltiplas transações pequenas para evitar detecção",
			Indicators:  []string{"estruturação", "fracionamento"},
			Severity:    domain.SeverityCritical,
			Action:      "Investigar possível lavagem de dinheiro",
			Threshold:   5,
		},
		{
			Name:        "Mula Financeira",
			Description: "Padrão típico de mula financeira",
			Indicators: []string{
				"transferencia rapida", "dinheiro facil", "renda extra",
				"trabalho em casa", "recebimento terceiros",
			},
			Severity:  domain.SeverityCritical,
			Action:    "Possível envolvimento em esquema fraudulento",
			Threshold: 1,
		},
		{
			Name:        "Criptomoedas Suspeitas",
			Description: "Transações com exchanges não regulamentadas",
			Indicators: []string{
				"bitcoin", "crypto", "exchange", "binance",
				"coinbase", "mercado bitcoin", "foxbit",
				"wallet", "carteira digital",
			},
			Severity:  domain.SeverityMedium,
			Action:    "Verificar origem e destino das criptomoedas",
			Threshold: 3,
		},
		{
			Name:        "Empréstimos Informais",
			Description: "Empréstimos fora do sistema bancário",
			Indicators: []string{
				"emprestimo pessoal", "dinheiro no bolso",
				"sem burocracia", "credito facil", "sem consulta",
			},
			Severity:  domain.SeverityMedium,
			Action:    "Verificar taxas de juros e legitimidade",
			Threshold: 2,
		},
		{
			Name:        "Atividade Comercial Irregular",
			Description: "Padrões que sugerem comércio irregular",
			Indicators: []string{
				"mercadoria importada", "sem nota fiscal",
				"produto original", "direto da fabrica",
				"preco de atacado", "revenda",
			},
			Severity:  domain.SeverityMedium,
			Action:    "Verificar regularidade fiscal",
			Threshold: 3,
		},
		{
			Name:        "Golpes Digitais",
			Description: "Transações relacionadas a golpes online",
			Indicators: []string{
				"premio", "sorteio", "ganhador", "taxa de liberacao",
				"documento urgente", "bloqueio conta", "verificacao",
			},
			Severity:  domain.SeverityHigh,
			Action:    "Possível vítima ou participante de golpe",
			Threshold: 1,
		},
	}
}
