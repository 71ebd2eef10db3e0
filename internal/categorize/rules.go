package categorize

import "regexp"

// AmountRange is the typical spend for a category. Amounts inside the range
// earn a bonus; amounts far outside it are penalized.
type AmountRange struct {
	Min, Max float64
}

// Rule is one category of the rule table.
type Rule struct {
	Name          string
	Keywords      []string
	Priority      int
	Subcategories []string
	Patterns      []*regexp.Regexp
	Range         *AmountRange
}

func patterns(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// subcategoryKeywords resolves a subcategory inside the winning category.
var subcategoryKeywords = map[string][]string{
	"Restaurantes":       {"restaurante", "lanchonete", "pizzaria"},
	"Delivery":           {"ifood", "uber eats", "delivery", "rappi"},
	"Supermercados":      {"mercado", "supermercado", "hipermercado"},
	"Apps de Transporte": {"uber", "99", "taxi", "cabify"},
	"Combustível":        {"combustivel", "gasolina", "posto"},
	"Consultas":          {"medico", "dentista", "consulta"},
	"Medicamentos":       {"farmacia", "remedio", "drogaria"},
	"Streaming":          {"netflix", "spotify", "amazon prime"},
	"PIX":                {"pix"},
	"TED/DOC":            {"ted", "doc", "transferencia"},
}

// DefaultRules returns the built-in Brazilian category table ordered by
// descending priority.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:     "Alimentação",
			Priority: 10,
			Keywords: []string{
				"restaurante", "lanchonete", "padaria", "sorveteria", "pizzaria",
				"ifood", "uber eats", "rappi", "delivery", "fast food",
				"mcdonalds", "burger king", "subway", "kfc", "bobs",
				"mercado", "supermercado", "hipermercado", "açougue", "quitanda",
				"pao de acucar", "carrefour", "extra", "walmart", "big",
				"feira", "hortifruti", "sacolao", "emporio", "mercearia",
			},
			Subcategories: []string{"Restaurantes", "Delivery", "Supermercados", "Feiras"},
			Patterns:      patterns(`food`, `eat`, `rest`, `market`),
			Range:         &AmountRange{10, 200},
		},
		{
			Name:     "Transporte",
			Priority: 9,
			Keywords: []string{
				"uber", "99", "taxi", "cabify", "blablacar",
				"metro", "metrô", "onibus", "ônibus", "trem", "cptm",
				"combustivel", "gasolina", "alcool", "etanol", "diesel",
				"posto", "ipiranga", "shell", "br", "petrobras",
				"estacionamento", "zona azul", "pedagio", "pedágio",
				"oficina", "mecanico", "lavagem", "revisao", "seguro auto",
			},
			Subcategories: []string{"Apps de Transporte", "Transporte Público", "Combustível", "Manutenção"},
			Patterns:      patterns(`transport`, `fuel`, `gas`, `park`),
			Range:         &AmountRange{5, 100},
		},
		{
			Name:     "Saúde",
			Priority: 8,
			Keywords: []string{
				"hospital", "clinica", "clínica", "medico", "médico",
				"dentista", "laboratorio", "laboratório", "exame",
				"farmacia", "farmácia", "drogaria", "remedio", "remédio",
				"consulta", "cirurgia", "tratamento", "terapia",
				"unimed", "amil", "bradesco saude", "sul america",
				"psicologia", "fisioterapia", "academia", "personal",
			},
			Subcategories: []string{"Consultas", "Medicamentos", "Exames", "Planos de Saúde"},
			Patterns:      patterns(`health`, `medical`, `clinic`, `pharma`),
			Range:         &AmountRange{20, 500},
		},
		{
			Name:     "Educação",
			Priority: 7,
			Keywords: []string{
				"escola", "colegio", "colégio", "universidade", "faculdade",
				"curso", "aula", "mensalidade", "matricula", "matrícula",
				"livro", "apostila", "material escolar", "uniforme",
				"udemy", "coursera", "alura", "eadbox", "hotmart",
			},
			Subcategories: []string{"Mensalidades", "Materiais", "Cursos Online"},
			Patterns:      patterns(`education`, `school`, `course`, `learn`),
		},
		{
			Name:     "Entretenimento",
			Priority: 6,
			Keywords: []string{
				"cinema", "teatro", "show", "concerto", "festival",
				"netflix", "amazon prime", "spotify", "youtube", "disney",
				"ingresso", "ticket", "evento", "balada", "bar",
				"jogo", "steam", "playstation", "xbox", "nintendo",
				"parque", "zoologico", "aquario", "museu",
			},
			Subcategories: []string{"Streaming", "Cinema/Teatro", "Games", "Eventos"},
			Patterns:      patterns(`entertainment`, `movie`, `music`, `game`),
			Range:         &AmountRange{15, 150},
		},
		{
			Name:     "Compras",
			Priority: 5,
			Keywords: []string{
				"loja", "shopping", "magazine luiza", "casas bahia",
				"amazon", "mercado livre", "americanas", "submarino",
				"roupa", "sapato", "calcado", "calçado", "acessorio",
				"eletronico", "eletrônico", "celular", "notebook",
				"casa", "decoracao", "decoração", "moveis", "móveis",
			},
			Subcategories: []string{"Online", "Roupas", "Eletrônicos", "Casa"},
			Patterns:      patterns(`shop`, `store`, `buy`, `purchase`),
		},
		{
			Name:     "Casa",
			Priority: 4,
			Keywords: []string{
				"aluguel", "condominio", "condomínio", "iptu", "agua", "água",
				"luz", "energia", "gas", "gás", "internet", "telefone",
				"limpeza", "diarista", "porteiro", "seguranca", "segurança",
				"material construcao", "construção", "reforma", "pintura",
			},
			Subcategories: []string{"Contas", "Manutenção", "Serviços"},
			Patterns:      patterns(`house`, `home`, `rent`, `utility`),
			Range:         &AmountRange{50, 2000},
		},
		{
			Name:     "Investimentos",
			Priority: 3,
			Keywords: []string{
				"aplicacao", "aplicação", "investimento", "poupanca", "poupança",
				"cdb", "lci", "lca", "tesouro", "acao", "ação",
				"fundo", "previdencia", "previdência", "seguro",
				"btg", "xp", "rico", "clear", "easynvest",
			},
			Subcategories: []string{"Renda Fixa", "Renda Variável", "Previdência"},
			Patterns:      patterns(`invest`, `fund`, `stock`, `saving`),
			Range:         &AmountRange{100, 10000},
		},
		{
			Name:     "Transferências",
			Priority: 2,
			Keywords: []string{
				"transferencia", "transferência", "ted", "doc", "pix",
				"pagamento", "recebimento", "deposito", "depósito",
				"emprestimo", "empréstimo", "financiamento",
			},
			Subcategories: []string{"PIX", "TED/DOC", "Empréstimos"},
			Patterns:      patterns(`transfer`, `payment`, `deposit`, `loan`),
		},
		{
			Name:     "Tarifas Bancárias",
			Priority: 1,
			Keywords: []string{
				"tarifa", "taxa", "juros", "iof", "anuidade",
				"manutencao", "manutenção", "saque", "extrato",
				"cartao", "cartão", "conta corrente", "cheque especial",
			},
			Subcategories: []string{"Anuidades", "Tarifas", "Juros"},
			Patterns:      patterns(`fee`, `tax`, `interest`, `charge`),
			Range:         &AmountRange{5, 50},
		},
	}
}
