package llm

import "math"

// modelPrice holds per-million-token prices in USD
type modelPrice struct {
	input  float64
	output float64
}

var modelPrices = map[string]modelPrice{
	"gpt-4.1":       {input: 15.00, output: 60.00},
	"gpt-4.1-mini":  {input: 0.30, output: 1.20},
	"gpt-4o":        {input: 2.50, output: 10.00},
	"gpt-4o-mini":   {input: 0.15, output: 0.60},
	"gpt-4-turbo":   {input: 10.00, output: 30.00},
	"gpt-3.5-turbo": {input: 0.50, output: 1.50},
}

// defaultPriceModel prices models missing from the table
const defaultPriceModel = "gpt-4o"

// EstimateCost estimates the USD cost of totalTokens on model, rounded to
// six decimals. The API reports only a combined total here, so an 80/20
// input/output split is assumed.
func EstimateCost(model string, totalTokens int) float64 {
	price, ok := modelPrices[model]
	if !ok {
		price = modelPrices[defaultPriceModel]
	}

	inputTokens := int(float64(totalTokens) * 0.8)
	outputTokens := int(float64(totalTokens) * 0.2)

	cost := float64(inputTokens)*price.input/1_000_000 +
		float64(outputTokens)*price.output/1_000_000

	return math.Round(cost*1e6) / 1e6
}
