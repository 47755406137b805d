// Package cost prices provider usage. Prices are USD per million tokens plus
// a flat price per generated image, keyed by provider and model prefix.
package cost

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"carousel/config"

	"github.com/BurntSushi/toml"
)

// Pricing is the price of one provider model.
type Pricing struct {
	InputPerMillion  float64 `toml:"input_per_million"`
	OutputPerMillion float64 `toml:"output_per_million"`
	PerImage         float64 `toml:"per_image"`
}

// Usage is the billable usage of one call.
type Usage struct {
	Provider         string
	Model            string
	PromptTokens     int
	CompletionTokens int
	ImagesGenerated  int
}

// Breakdown splits a cost into its parts. Unpriced counts usages whose
// provider/model had no pricing entry; they are priced at zero.
type Breakdown struct {
	InputUSD  float64
	OutputUSD float64
	ImagesUSD float64
	Unpriced  int
}

// Result is a priced usage.
type Result struct {
	CostUSD   float64
	Breakdown Breakdown
}

// Calculator prices usage from a pricing table. It is safe for concurrent use.
type Calculator struct {
	mu     sync.RWMutex
	prices map[string]map[string]Pricing
}

// NewCalculator returns a calculator loaded with the built-in price table.
func NewCalculator() *Calculator {
	c := &Calculator{prices: make(map[string]map[string]Pricing)}
	for p, models := range defaultPrices {
		for m, price := range models {
			c.Set(p, m, price)
		}
	}
	return c
}

// Set adds or replaces the price of a model prefix.
func (c *Calculator) Set(provider, modelPrefix string, p Pricing) {
	c.mu.Lock()
	defer c.mu.Unlock()
	provider = strings.ToLower(provider)
	if c.prices[provider] == nil {
		c.prices[provider] = make(map[string]Pricing)
	}
	c.prices[provider][strings.ToLower(modelPrefix)] = p
}

// Lookup finds the price of a model: the longest matching model prefix of
// the provider wins.
func (c *Calculator) Lookup(provider, model string) (Pricing, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	models := c.prices[strings.ToLower(provider)]
	model = strings.ToLower(model)

	best, found := "", false
	for prefix := range models {
		if strings.HasPrefix(model, prefix) && (!found || len(prefix) > len(best)) {
			best, found = prefix, true
		}
	}
	if !found {
		return Pricing{}, false
	}
	return models[best], true
}

// CalculateCost prices one usage.
func (c *Calculator) CalculateCost(u Usage) Result {
	p, ok := c.Lookup(u.Provider, u.Model)
	if !ok {
		if config.Debug {
			config.DebugLog.Printf("[Cost] no pricing for %s/%s", u.Provider, u.Model)
		}
		return Result{Breakdown: Breakdown{Unpriced: 1}}
	}

	b := Breakdown{
		InputUSD:  float64(u.PromptTokens) / 1e6 * p.InputPerMillion,
		OutputUSD: float64(u.CompletionTokens) / 1e6 * p.OutputPerMillion,
		ImagesUSD: float64(u.ImagesGenerated) * p.PerImage,
	}
	return Result{CostUSD: round(b.InputUSD + b.OutputUSD + b.ImagesUSD), Breakdown: b}
}

// CalculateAggregateCost prices a list of usages.
func (c *Calculator) CalculateAggregateCost(usages []Usage) Result {
	var total Result
	for _, u := range usages {
		r := c.CalculateCost(u)
		total.Breakdown.InputUSD += r.Breakdown.InputUSD
		total.Breakdown.OutputUSD += r.Breakdown.OutputUSD
		total.Breakdown.ImagesUSD += r.Breakdown.ImagesUSD
		total.Breakdown.Unpriced += r.Breakdown.Unpriced
	}
	b := total.Breakdown
	total.CostUSD = round(b.InputUSD + b.OutputUSD + b.ImagesUSD)
	return total
}

// LoadOverrides merges a TOML price file into the table:
//
//	[openai."gpt-4o"]
//	input_per_million = 2.5
//	output_per_million = 10.0
func (c *Calculator) LoadOverrides(path string) error {
	var file map[string]map[string]Pricing
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return fmt.Errorf("failed to parse pricing file: %w", err)
	}
	for p, models := range file {
		for m, price := range models {
			c.Set(p, m, price)
		}
	}
	return nil
}

// Entries returns the table sorted by provider and model, for display.
func (c *Calculator) Entries() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []Entry
	for p, models := range c.prices {
		for m, price := range models {
			out = append(out, Entry{Provider: p, ModelPrefix: m, Pricing: price})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].ModelPrefix < out[j].ModelPrefix
	})
	return out
}

// Entry is one row of the price table.
type Entry struct {
	Provider    string
	ModelPrefix string
	Pricing     Pricing
}

// round keeps six decimals, enough for sub-cent token prices.
func round(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
