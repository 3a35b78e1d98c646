package agent

import (
	"github.com/ajitpratap0/equityfunk/internal/llm"
)

// Catalog returns the static tool definitions advertised to the model
// on every request. The schema names and shapes are part of the agent's
// contract with the system prompt.
func Catalog() []llm.Tool {
	return []llm.Tool{
		fn("get_stock_price",
			"Get the current market price for a stock ticker.",
			llm.Parameters{
				Type: "object",
				Properties: map[string]llm.Property{
					"ticker": {Type: "string", Description: "Stock ticker symbol, e.g. AAPL"},
				},
				Required: []string{"ticker"},
			}),

		fn("get_technical_indicators",
			"Get technical indicators (RSI, SMA 20/50/200, ATR, trend) computed from daily bars.",
			llm.Parameters{
				Type: "object",
				Properties: map[string]llm.Property{
					"ticker": {Type: "string", Description: "Stock ticker symbol"},
				},
				Required: []string{"ticker"},
			}),

		fn("search_web",
			"Search the web for recent news or information relevant to a trading decision.",
			llm.Parameters{
				Type: "object",
				Properties: map[string]llm.Property{
					"query": {Type: "string", Description: "Search query"},
				},
				Required: []string{"query"},
			}),

		fn("calculate_risk_size",
			"Calculate a position size in shares that risks a fixed fraction of portfolio value given a stop-loss distance.",
			llm.Parameters{
				Type: "object",
				Properties: map[string]llm.Property{
					"ticker":        {Type: "string", Description: "Stock ticker symbol"},
					"stop_loss_pct": {Type: "number", Description: "Stop-loss distance as a fraction of entry price, e.g. 0.05 for 5%"},
					"risk_pct":      {Type: "number", Description: "Fraction of portfolio value to risk, default 0.005"},
				},
				Required: []string{"ticker", "stop_loss_pct"},
			}),

		fn("scan_market_movers",
			"Scan current holdings plus the watchlist and return the top movers.",
			llm.Parameters{
				Type: "object",
				Properties: map[string]llm.Property{
					"sort_by": {
						Type:        "string",
						Description: "Ranking to apply",
						Enum:        []string{"gainers", "losers", "volume"},
					},
				},
				Required: []string{"sort_by"},
			}),

		fn("update_position_thesis",
			"Record or replace the investment thesis for a position, including invalidation and target prices.",
			llm.Parameters{
				Type: "object",
				Properties: map[string]llm.Property{
					"ticker":          {Type: "string", Description: "Stock ticker symbol"},
					"thesis":          {Type: "string", Description: "One or two sentences describing why the position is held"},
					"stop_loss_price": {Type: "number", Description: "Price at which the thesis is invalidated"},
					"target_price":    {Type: "number", Description: "Price target for the position"},
				},
				Required: []string{"ticker", "thesis", "stop_loss_price", "target_price"},
			}),

		fn("place_trade_orders",
			"Submit a batch of market orders. Each order is risk-checked independently; rejected orders do not block the rest of the batch.",
			llm.Parameters{
				Type: "object",
				Properties: map[string]llm.Property{
					"trades": {
						Type:        "array",
						Description: "Orders to submit",
						Items: &llm.Property{
							Type: "object",
							Properties: map[string]llm.Property{
								"action": {Type: "string", Enum: []string{"BUY", "SELL"}},
								"ticker": {Type: "string", Description: "Stock ticker symbol"},
								"shares": {Type: "integer", Description: "Whole shares to trade"},
								"reason": {Type: "string", Description: "One-sentence rationale for the journal"},
							},
							Required: []string{"action", "ticker", "shares", "reason"},
						},
					},
				},
				Required: []string{"trades"},
			}),

		fn("update_shared_notes",
			"Overwrite or append to the shared strategy notes carried between cycles.",
			llm.Parameters{
				Type: "object",
				Properties: map[string]llm.Property{
					"content": {Type: "string", Description: "Note text"},
					"mode": {
						Type:        "string",
						Description: "How to apply the content",
						Enum:        []string{"overwrite", "append"},
					},
				},
				Required: []string{"content", "mode"},
			}),

		fn("get_active_sweeps",
			"Get recent large aggressive options sweeps, optionally filtered by ticker.",
			llm.Parameters{
				Type: "object",
				Properties: map[string]llm.Property{
					"ticker": {Type: "string", Description: "Optional ticker filter"},
					"limit":  {Type: "integer", Description: "Max sweeps to return, default 10"},
				},
			}),

		fn("get_option_price",
			"Get the quote and greeks for a single option contract.",
			llm.Parameters{
				Type: "object",
				Properties: map[string]llm.Property{
					"ticker":     {Type: "string", Description: "Underlying ticker symbol"},
					"expiration": {Type: "string", Description: "Expiration date as MM/DD/YYYY"},
					"strike":     {Type: "number", Description: "Strike price"},
					"call_put":   {Type: "string", Enum: []string{"Call", "Put"}},
				},
				Required: []string{"ticker", "expiration", "strike", "call_put"},
			}),

		fn("get_option_chain",
			"Get the option chain for a ticker. Uses the nearest expiration when none is given.",
			llm.Parameters{
				Type: "object",
				Properties: map[string]llm.Property{
					"ticker":     {Type: "string", Description: "Underlying ticker symbol"},
					"expiration": {Type: "string", Description: "Optional expiration date as MM/DD/YYYY"},
				},
				Required: []string{"ticker"},
			}),
	}
}

func fn(name, description string, params llm.Parameters) llm.Tool {
	return llm.Tool{
		Type: "function",
		Function: llm.FunctionSpec{
			Name:        name,
			Description: description,
			Parameters:  params,
		},
	}
}
