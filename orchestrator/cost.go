package orchestrator

import (
	"carousel/cost"
	"carousel/model"
)

func usageOf(e model.AgentExecution) cost.Usage {
	return cost.Usage{
		Provider:         e.Provider,
		Model:            e.Model,
		PromptTokens:     e.PromptTokens,
		CompletionTokens: e.CompletionTokens,
		ImagesGenerated:  e.ImagesGenerated,
	}
}

// Summarize prices every execution and picks the main provider/model: the
// pair with the most tokens, ties going to the pair seen first.
func Summarize(calc CostCalculator, execs []model.AgentExecution) *model.CostSummary {
	summary := &model.CostSummary{Lines: make([]model.CostLine, 0, len(execs))}
	usages := make([]cost.Usage, 0, len(execs))

	for _, e := range execs {
		u := usageOf(e)
		usages = append(usages, u)
		summary.Lines = append(summary.Lines, model.CostLine{
			ExecutionID: e.ID,
			AgentType:   e.AgentType,
			Provider:    e.Provider,
			Model:       e.Model,
			CostUSD:     calc.CalculateCost(u).CostUSD,
		})
	}
	summary.TotalUSD = calc.CalculateAggregateCost(usages).CostUSD
	summary.MainProvider, summary.MainModel = mainModel(execs)
	return summary
}

func mainModel(execs []model.AgentExecution) (string, string) {
	type key struct{ provider, model string }
	var order []key
	tokens := make(map[key]int)

	for _, e := range execs {
		k := key{e.Provider, e.Model}
		if _, ok := tokens[k]; !ok {
			order = append(order, k)
		}
		tokens[k] += e.PromptTokens + e.CompletionTokens
	}
	if len(order) == 0 {
		return "", ""
	}

	best := order[0]
	for _, k := range order[1:] {
		if tokens[k] > tokens[best] {
			best = k
		}
	}
	return best.provider, best.model
}
