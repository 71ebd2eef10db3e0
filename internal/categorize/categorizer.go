// Package categorize assigns spending categories to transactions by scoring
// descriptions against a weighted keyword rule table.
package categorize

import (
	"math"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/dvloznov/finance-insights/internal/domain"
)

const (
	defaultConfidence = 0.1
	keywordScore      = 1.0
	patternScore      = 0.5

	inRangeBonus  = 1.2
	outRangeBonus = 0.8
)

// Result is the outcome of categorizing one description.
type Result struct {
	Category        string
	Subcategory     string
	Confidence      float64
	MatchedKeywords []string
}

// Categorizer scores descriptions against its rules. It is safe for
// concurrent use.
type Categorizer struct {
	mu    sync.RWMutex
	rules []Rule
}

// NewCategorizer creates a Categorizer. With no rules it uses DefaultRules.
func NewCategorizer(rules ...Rule) *Categorizer {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	c := &Categorizer{rules: slices.Clone(rules)}
	c.sortRules()
	return c
}

// Categorize returns the best-scoring category for description. Rules are
// scanned in table order and a later rule only wins with a strictly greater
// confidence. Without any match the result is Outros at 0.1.
func (c *Categorizer) Categorize(description string, amount float64) Result {
	desc := strings.ToLower(strings.TrimSpace(description))

	c.mu.RLock()
	defer c.mu.RUnlock()

	best := Result{Category: domain.CategoryOther, Confidence: defaultConfidence}
	for _, r := range c.rules {
		res := score(desc, r, amount)
		if res.Confidence > best.Confidence {
			best = res
		}
	}
	return best
}

func score(desc string, r Rule, amount float64) Result {
	if len(r.Keywords) == 0 {
		return Result{}
	}

	var matched []string
	var s float64
	for _, k := range r.Keywords {
		if strings.Contains(desc, strings.ToLower(k)) {
			matched = append(matched, k)
			s += keywordScore
		}
	}
	for _, p := range r.Patterns {
		if p.MatchString(desc) {
			s += patternScore
		}
	}

	s *= float64(r.Priority) / 10
	s *= amountBonus(r.Range, amount)

	return Result{
		Category:        r.Name,
		Subcategory:     subcategory(desc, r.Subcategories, matched),
		Confidence:      math.Min(s/float64(len(r.Keywords)), 1),
		MatchedKeywords: matched,
	}
}

func amountBonus(rng *AmountRange, amount float64) float64 {
	switch {
	case rng == nil:
		return 1
	case amount >= rng.Min && amount <= rng.Max:
		return inRangeBonus
	case amount < rng.Min*0.5 || amount > rng.Max*2:
		return outRangeBonus
	}
	return 1
}

func subcategory(desc string, subs, matched []string) string {
	if len(subs) == 0 {
		return ""
	}
	for _, sub := range subs {
		for _, k := range subcategoryKeywords[sub] {
			if slices.Contains(matched, k) || strings.Contains(desc, k) {
				return sub
			}
		}
	}
	return subs[0]
}

// Apply categorizes txs in place. A transaction that matched no rule keeps a
// category already set by the extractor; otherwise it becomes Outros.
func (c *Categorizer) Apply(txs []domain.Transaction) {
	for i := range txs {
		tx := &txs[i]
		res := c.Categorize(tx.Description, tx.Amount)

		if res.Category == domain.CategoryOther {
			if !domain.IsPlaceholderCategory(tx.Category) {
				if tx.CategoryConfidence == 0 {
					tx.CategoryConfidence = res.Confidence
				}
				continue
			}
			tx.Category = domain.CategoryOther
			tx.Subcategory = ""
			tx.CategoryConfidence = res.Confidence
			tx.MatchedKeywords = nil
			continue
		}

		tx.Category = res.Category
		tx.Subcategory = res.Subcategory
		tx.CategoryConfidence = res.Confidence
		tx.MatchedKeywords = res.MatchedKeywords
	}
}

// AddRule registers a custom rule and keeps the table ordered by priority.
func (c *Categorizer) AddRule(r Rule) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules = append(c.rules, r)
	c.sortRules()
}

// AddKeywords merges keywords into the named rule. It reports whether the
// rule exists.
func (c *Categorizer) AddKeywords(name string, keywords ...string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.rules {
		if c.rules[i].Name != name {
			continue
		}
		for _, k := range keywords {
			if !slices.Contains(c.rules[i].Keywords, k) {
				c.rules[i].Keywords = append(c.rules[i].Keywords, k)
			}
		}
		return true
	}
	return false
}

// TopRules returns up to n rules with the highest priority.
func (c *Categorizer) TopRules(n int) []Rule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if n > len(c.rules) || n < 0 {
		n = len(c.rules)
	}
	return slices.Clone(c.rules[:n])
}

func (c *Categorizer) sortRules() {
	sort.SliceStable(c.rules, func(i, j int) bool {
		return c.rules[i].Priority > c.rules[j].Priority
	})
}
