// Package bank identifies the issuing bank of a statement and holds the
// per-bank parsing profiles used by the extractor.
package bank

import "regexp"

// DateLayout names how a profile writes transaction dates.
type DateLayout string

const (
	LayoutDayMonth         DateLayout = "DD/MM"
	LayoutDayMonthYear     DateLayout = "DD/MM/YY"
	LayoutDayMonthFullYear DateLayout = "DD/MM/YYYY"
)

// CategoryHint maps a bank-specific category to its keywords.
type CategoryHint struct {
	Category string
	Keywords []string
}

// Profile is the identifier keywords, line regex and category hints of one bank.
// Line must expose the named groups "date", "desc" and "amount".
type Profile struct {
	Code        string
	Name        string
	Identifiers []*regexp.Regexp
	Line        *regexp.Regexp
	Layout      DateLayout
	Categories  []CategoryHint
}

const (
	datePart     = `(?P<date>\d{2}/\d{2})`
	dateYearPart = `(?P<date>\d{2}/\d{2}/\d{2})`
	dateFullPart = `(?P<date>\d{2}/\d{2}/\d{4})`
	descPart     = `(?P<desc>.+?)`
	number       = `(?:\d{1,3}(?:\.\d{3})+|\d+)`
	signedAmount = `(?P<amount>-?` + number + `[.,]\d{2})\b`
	moneyAmount  = `(?P<amount>-?R\$[ \t]*-?` + number + `(?:,\d{2})?)\b`
)

// profiles is tested in order; the first identifier hit wins.
var profiles = []Profile{
	{
		Code: "nubank",
		Name: "Nubank",
		Identifiers: []*regexp.Regexp{
			regexp.MustCompile(`(?i)nubank`),
			regexp.MustCompile(`(?i)roxinho`),
			regexp.MustCompile(`(?i)nu\s*bank`),
		},
		Line:   regexp.MustCompile(datePart + `[ \t]+` + descPart + `[ \t]+` + moneyAmount),
		Layout: LayoutDayMonth,
		Categories: []CategoryHint{
			{"Alimentação", []string{"restaurante", "lanchonete", "delivery", "ifood", "uber eats"}},
			{"Transporte", []string{"uber", "99", "metro", "onibus", "combustivel", "posto"}},
			{"Compras", []string{"mercado", "farmacia", "loja", "shopping", "amazon"}},
			{"Entretenimento", []string{"cinema", "netflix", "spotify", "youtube", "jogo"}},
			{"Saúde", []string{"hospital", "clinica", "medico", "laboratorio", "dentista"}},
		},
	},
	{
		Code: "itau",
		Name: "Itaú",
		Identifiers: []*regexp.Regexp{
			regexp.MustCompile(`(?i)itau`),
			regexp.MustCompile(`(?i)itaú`),
			regexp.MustCompile(`(?i)banco\s*itau`),
		},
		Line:   regexp.MustCompile(dateFullPart + `[ \t]+` + descPart + `[ \t]+` + signedAmount),
		Layout: LayoutDayMonthFullYear,
		Categories: []CategoryHint{
			{"Transferências", []string{"ted", "doc", "pix", "transferencia"}},
			{"Pagamentos", []string{"conta", "fatura", "boleto", "debito automatico"}},
			{"Saques", []string{"saque", "atm", "caixa eletronico"}},
			{"Tarifas", []string{"tarifa", "taxa", "anuidade", "manutencao"}},
		},
	},
	{
		Code: "bradesco",
		Name: "Bradesco",
		Identifiers: []*regexp.Regexp{
			regexp.MustCompile(`(?i)bradesco`),
			regexp.MustCompile(`(?i)banco\s*bradesco`),
		},
		Line:   regexp.MustCompile(datePart + `[ \t]+\d{2}/\d{2}[ \t]+` + descPart + `[ \t]+` + signedAmount),
		Layout: LayoutDayMonth,
		Categories: []CategoryHint{
			{"Cartão", []string{"compra", "mastercard", "visa", "elo"}},
			{"Investimentos", []string{"aplicacao", "resgate", "cdb", "poupanca"}},
			{"Seguros", []string{"seguro", "previdencia", "capitalizacao"}},
		},
	},
	{
		Code: "santander",
		Name: "Santander",
		Identifiers: []*regexp.Regexp{
			regexp.MustCompile(`(?i)santander`),
			regexp.MustCompile(`(?i)banco\s*santander`),
		},
		Line:   regexp.MustCompile(dateYearPart + `[ \t]+` + descPart + `[ \t]+` + signedAmount),
		Layout: LayoutDayMonthYear,
		Categories: []CategoryHint{
			{"Internacional", []string{"internacional", "exterior", "usd", "eur"}},
			{"Investimentos", []string{"van gogh", "select", "private"}},
		},
	},
	{
		Code: "caixa",
		Name: "Caixa Econômica Federal",
		Identifiers: []*regexp.Regexp{
			regexp.MustCompile(`(?i)caixa`),
			regexp.MustCompile(`(?i)\bcef\b`),
			regexp.MustCompile(`(?i)econ[oô]mica`),
		},
		Line:   regexp.MustCompile(dateFullPart + `[ \t]+` + descPart + `[ \t]+` + signedAmount),
		Layout: LayoutDayMonthFullYear,
		Categories: []CategoryHint{
			{"Governo", []string{"auxilio", "beneficio", "fgts", "pis", "governo"}},
			{"Financiamento", []string{"habitacao", "imovel", "financiamento"}},
		},
	},
	{
		Code: "picpay",
		Name: "PicPay",
		Identifiers: []*regexp.Regexp{
			regexp.MustCompile(`(?i)picpay`),
			regexp.MustCompile(`(?i)pic\s*pay`),
		},
		Line:   regexp.MustCompile(dateFullPart + `[ \t]+` + descPart + `[ \t]+` + moneyAmount),
		Layout: LayoutDayMonthFullYear,
		Categories: []CategoryHint{
			{"Digital", []string{"recarga", "celular", "streaming", "app"}},
			{"Cashback", []string{"cashback", "desconto", "promocao"}},
		},
	},
	{
		Code: "infinitepay",
		Name: "InfinitePay",
		Identifiers: []*regexp.Regexp{
			regexp.MustCompile(`(?i)infinitepay`),
			regexp.MustCompile(`(?i)infinite\s*pay`),
		},
		Line:   regexp.MustCompile(dateFullPart + `[ \t]+` + descPart + `[ \t]+` + signedAmount),
		Layout: LayoutDayMonthFullYear,
		Categories: []CategoryHint{
			{"Vendas", []string{"venda", "recebimento", "maquininha"}},
			{"Taxas", []string{"taxa", "comissao", "antecipacao"}},
		},
	},
}

// Lookup returns the profile registered under code.
func Lookup(code string) (Profile, bool) {
	for _, p := range profiles {
		if p.Code == code {
			return p, true
		}
	}
	return Profile{}, false
}

// Codes lists the known bank codes in detection order.
func Codes() []string {
	codes := make([]string, 0, len(profiles))
	for _, p := range profiles {
		codes = append(codes, p.Code)
	}
	return codes
}

// Profiles returns a copy of the profile table in detection order.
func Profiles() []Profile {
	out := make([]Profile, len(profiles))
	copy(out, profiles)
	return out
}
