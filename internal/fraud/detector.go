// Package fraud scans transactions for keyword pattern families and
// behavioural anomalies and emits severity-ranked alerts.
package fraud

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/money"
)

const (
	minOutlierSample   = 10
	outlierSigmas      = 3.0
	outlierRatio       = 0.05
	velocityPerDay     = 10
	roundUnit          = 1000.0
	roundCeiling       = 10000.0
	roundRatio         = 0.3
	duplicateMinCount  = 3
	rapidGap           = time.Hour
	rapidMinPairs      = 5
	rapidEvidenceLimit = 5
	limitLowerFraction = 0.95
)

var regulatoryLimits = []float64{9999, 4999, 2999, 1999, 999}

// Detector holds the pattern families. It is safe for concurrent use.
type Detector struct {
	mu       sync.RWMutex
	families []Family
}

// NewDetector creates a Detector. With no families it uses DefaultFamilies.
func NewDetector(families ...Family) *Detector {
	if len(families) == 0 {
		families = DefaultFamilies()
	}
	return &Detector{families: append([]Family(nil), families...)}
}

// AddFamily registers a custom family.
func (d *Detector) AddFamily(f Family) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.families = append(d.families, f)
}

// SetThreshold changes the occurrence threshold of the named family and
// reports whether it exists.
func (d *Detector) SetThreshold(name string, threshold int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.families {
		if d.families[i].Name == name {
			d.families[i].Threshold = threshold
			return true
		}
	}
	return false
}

// Families returns a snapshot of the configured families.
func (d *Detector) Families() []Family {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Family(nil), d.families...)
}

// Detect runs every family and behavioural check. Alerts are ordered by
// descending severity; ties keep detection order.
func (d *Detector) Detect(txs []domain.Transaction) []domain.FraudAlert {
	var alerts []domain.FraudAlert
	for _, f := range d.Families() {
		if a, ok := detectFamily(txs, f); ok {
			alerts = append(alerts, a)
		}
	}
	alerts = append(alerts, behavioural(txs)...)

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Severity.Weight() > alerts[j].Severity.Weight()
	})
	return alerts
}

func detectFamily(txs []domain.Transaction, f Family) (domain.FraudAlert, bool) {
	var hits []domain.Transaction
	for _, tx := range txs {
		desc := strings.ToLower(tx.Description)
		for _, ind := range f.Indicators {
			if strings.Contains(desc, strings.ToLower(ind)) {
				hits = append(hits, tx)
				break
			}
		}
	}
	if len(hits) == 0 || len(hits) < f.Threshold {
		return domain.FraudAlert{}, false
	}

	evidence := make([]string, len(hits))
	for i, tx := range hits {
		evidence[i] = fmt.Sprintf("%s: %s (%s)", tx.Date, tx.Description, money.FormatFloat(tx.Amount))
	}
	return domain.FraudAlert{
		Pattern:        f.Name,
		Severity:       f.Severity,
		Confidence:     familyConfidence(hits, f.Threshold),
		Description:    f.Description,
		Evidence:       evidence,
		Recommendation: f.Action,
	}, true
}

func familyConfidence(hits []domain.Transaction, threshold int) float64 {
	threshold = max(threshold, 1)
	n := float64(len(hits))
	conf := math.Min(n/float64(threshold*2), 1)
	if len(hits) > threshold*3 {
		conf += 0.2
	}

	var total float64
	for _, tx := range hits {
		total += math.Abs(tx.Amount)
	}
	switch avg := total / n; {
	case avg > 1000:
		conf += 0.2
	case avg > 500:
		conf += 0.1
	}
	return math.Min(conf, 1)
}

func behavioural(txs []domain.Transaction) []domain.FraudAlert {
	checks := []func([]domain.Transaction) (domain.FraudAlert, bool){
		statisticalOutliers,
		highVelocity,
		roundStructuring,
		duplicateAmounts,
		rapidSuccession,
		limitAvoidance,
	}
	var alerts []domain.FraudAlert
	for _, check := range checks {
		if a, ok := check(txs); ok {
			alerts = append(alerts, a)
		}
	}
	return alerts
}

func statisticalOutliers(txs []domain.Transaction) (domain.FraudAlert, bool) {
	if len(txs) < minOutlierSample {
		return domain.FraudAlert{}, false
	}

	var sum float64
	for _, tx := range txs {
		sum += math.Abs(tx.Amount)
	}
	mean := sum / float64(len(txs))
	var variance float64
	for _, tx := range txs {
		d := math.Abs(tx.Amount) - mean
		variance += d * d
	}
	sigma := math.Sqrt(variance / float64(len(txs)))

	var outliers []domain.Transaction
	for _, tx := range txs {
		if math.Abs(math.Abs(tx.Amount)-mean) > outlierSigmas*sigma {
			outliers = append(outliers, tx)
		}
	}
	ratio := float64(len(outliers)) / float64(len(txs))
	if ratio <= outlierRatio {
		return domain.FraudAlert{}, false
	}

	evidence := make([]string, len(outliers))
	for i, tx := range outliers {
		evidence[i] = fmt.Sprintf("%s: %s (%s)", tx.Date, tx.Description, money.FormatFloat(tx.Amount))
	}
	return domain.FraudAlert{
		Pattern:        "Anomalias Estatísticas",
		Severity:       domain.SeverityMedium,
		Confidence:     math.Min(ratio*10, 1),
		Description:    "Valores muito distantes da média das transações",
		Evidence:       evidence,
		Recommendation: "Confirmar a origem das transações fora do padrão",
	}, true
}

func highVelocity(txs []domain.Transaction) (domain.FraudAlert, bool) {
	perDay := map[string]int{}
	for _, tx := range txs {
		perDay[tx.Date.String()]++
	}

	var days []string
	for d, n := range perDay {
		if n > velocityPerDay {
			days = append(days, d)
		}
	}
	if len(days) == 0 {
		return domain.FraudAlert{}, false
	}
	sort.Strings(days)

	evidence := make([]string, len(days))
	for i, d := range days {
		evidence[i] = fmt.Sprintf("%s: %d transações", d, perDay[d])
	}
	return domain.FraudAlert{
		Pattern:        "Alta Velocidade",
		Severity:       domain.SeverityHigh,
		Confidence:     0.75,
		Description:    "Mais de 10 transações em um único dia",
		Evidence:       evidence,
		Recommendation: "Verificar uso indevido da conta ou automação",
	}, true
}

func roundStructuring(txs []domain.Transaction) (domain.FraudAlert, bool) {
	var round []domain.Transaction
	for _, tx := range txs {
		a := math.Abs(tx.Amount)
		if tx.IsDebit() && a > 0 && a < roundCeiling && math.Mod(a, roundUnit) == 0 {
			round = append(round, tx)
		}
	}
	if len(txs) == 0 || float64(len(round)) <= float64(len(txs))*roundRatio {
		return domain.FraudAlert{}, false
	}

	evidence := make([]string, len(round))
	for i, tx := range round {
		evidence[i] = fmt.Sprintf("%s: %s (%s)", tx.Date, tx.Description, money.FormatFloat(tx.Amount))
	}
	return domain.FraudAlert{
		Pattern:        "Estruturação por Valores Redondos",
		Severity:       domain.SeverityHigh,
		Confidence:     math.Min(0.5+float64(len(round))/float64(len(txs))/2, 1),
		Description:    "Muitos débitos em valores redondos abaixo de R$ 10.000",
		Evidence:       evidence,
		Recommendation: "Investigar possível fracionamento de valores",
	}, true
}

func duplicateAmounts(txs []domain.Transaction) (domain.FraudAlert, bool) {
	counts := map[string]int{}
	values := map[string]decimal.Decimal{}
	for _, tx := range txs {
		d := decimal.NewFromFloat(math.Abs(tx.Amount)).Round(2)
		key := d.StringFixed(2)
		counts[key]++
		values[key] = d
	}

	var keys []string
	for k, n := range counts {
		if n >= duplicateMinCount {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return domain.FraudAlert{}, false
	}
	sort.Slice(keys, func(i, j int) bool { return values[keys[i]].LessThan(values[keys[j]]) })

	evidence := make([]string, len(keys))
	for i, k := range keys {
		evidence[i] = fmt.Sprintf("%s: %d ocorrências", money.FormatBRL(values[k]), counts[k])
	}
	return domain.FraudAlert{
		Pattern:        "Valores Repetitivos",
		Severity:       domain.SeverityMedium,
		Confidence:     0.7,
		Description:    "Múltiplas transações com valores idênticos detectadas",
		Evidence:       evidence,
		Recommendation: "Verificar se há automação ou estruturação",
	}, true
}

func rapidSuccession(txs []domain.Transaction) (domain.FraudAlert, bool) {
	sorted := append([]domain.Transaction(nil), txs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp().Before(sorted[j].Timestamp())
	})

	var rapid []domain.Transaction
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Timestamp().Sub(sorted[i-1].Timestamp()) < rapidGap {
			rapid = append(rapid, sorted[i])
		}
	}
	if len(rapid) <= rapidMinPairs {
		return domain.FraudAlert{}, false
	}

	n := min(len(rapid), rapidEvidenceLimit)
	evidence := make([]string, n)
	for i := range n {
		evidence[i] = fmt.Sprintf("%s: %s", rapid[i].Date, rapid[i].Description)
	}
	return domain.FraudAlert{
		Pattern:        "Transações Rápidas",
		Severity:       domain.SeverityMedium,
		Confidence:     0.6,
		Description:    "Múltiplas transações em curto período",
		Evidence:       evidence,
		Recommendation: "Verificar autenticidade e possível automação",
	}, true
}

func limitAvoidance(txs []domain.Transaction) (domain.FraudAlert, bool) {
	var evidence []string
	for _, tx := range txs {
		a := math.Abs(tx.Amount)
		for _, limit := range regulatoryLimits {
			if a >= limit*limitLowerFraction && a < limit {
				evidence = append(evidence, fmt.Sprintf("%s: %s (limite: %s)",
					tx.Date, money.FormatFloat(a), money.FormatFloat(limit)))
				break
			}
		}
	}
	if len(evidence) == 0 {
		return domain.FraudAlert{}, false
	}
	return domain.FraudAlert{
		Pattern:        "Evasão de Limites",
		Severity:       domain.SeverityHigh,
		Confidence:     0.8,
		Description:    "Transações próximas a limites regulatórios",
		Evidence:       evidence,
		Recommendation: "Possível tentativa de evitar reportes regulatórios",
	}, true
}
