package domain

import "time"

// OrderType is the broker's accepted order kinds (spec.md §4.4.2).
type OrderType string

const (
	OrderMarket OrderType = "MARKET"
	OrderLimit  OrderType = "LIMIT"
)

// OrderSide is buy or sell.
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// Order is a submitted instruction to the SimulatedBroker.
type Order struct {
	Symbol    string
	Side      OrderSide
	Type      OrderType
	Quantity  int // always a multiple of 100, or the small-residual exception (I3)
	LimitPrice float64 // ignored for MARKET orders
}

// Fill is a broker-reported execution.
type Fill struct {
	Symbol    string
	Side      OrderSide
	Quantity  int
	Price     float64
	Timestamp time.Time
}

// Position is one symbol's current holding within a SimulatedBroker.
// Quantity MUST satisfy invariant I3: a multiple of 100, unless it is the
// small residual left after partially selling an already-small holding.
type Position struct {
	Symbol      string
	Quantity    int
	AvgPrice    float64
	BoughtDate  time.Time
}

// CostBasis is Quantity * AvgPrice.
func (p Position) CostBasis() float64 { return float64(p.Quantity) * p.AvgPrice }

// MarketValue is Quantity at the given current price.
func (p Position) MarketValue(currentPrice float64) float64 { return float64(p.Quantity) * currentPrice }

// UnrealizedPnL is MarketValue - CostBasis at currentPrice.
func (p Position) UnrealizedPnL(currentPrice float64) float64 {
	return p.MarketValue(currentPrice) - p.CostBasis()
}

// UnrealizedPnLPct is UnrealizedPnL as a fraction of CostBasis; 0 if
// CostBasis is 0 (no position).
func (p Position) UnrealizedPnLPct(currentPrice float64) float64 {
	basis := p.CostBasis()
	if basis == 0 {
		return 0
	}
	return p.UnrealizedPnL(currentPrice) / basis
}

// CanSellToday enforces T+1: a position acquired on session d cannot be
// sold before session d+1 (spec.md §4.4.2).
func (p Position) CanSellToday(today time.Time) bool {
	boughtDay := p.BoughtDate.Truncate(24 * time.Hour)
	currentDay := today.Truncate(24 * time.Hour)
	return currentDay.After(boughtDay)
}

// EquitySnapshot records total account value at a point in time.
type EquitySnapshot struct {
	Timestamp   time.Time
	Cash        float64
	PositionsMV float64 // sum of position market values
	TotalEquity float64
}

// PositionView is the read-only, fully-computed view of a Position the
// engine hands to a Strategy inside PortfolioState (spec.md §4.4.4). No
// field here is synthesised beyond what Position + a current price imply.
type PositionView struct {
	Symbol             string
	Quantity           int
	AvgPrice           float64
	CostBasis          float64
	MarketValue        float64
	UnrealizedPnL      float64
	UnrealizedPnLPct   float64
	CanSellToday       bool
	BoughtDate         time.Time
}

// PortfolioState is the contract built before every generate_signal call
// (spec.md §4.4.4): cash, total_equity, has_position, position detail for
// the symbol being evaluated, cash/position ratios, and a summary of all
// other positions.
type PortfolioState struct {
	Cash           float64
	TotalEquity    float64
	HasPosition    bool
	Position       PositionView
	CashRatio      float64
	PositionRatio  float64
	OtherPositions []PositionView
}

// StrategyPerformance aggregates a strategy's realized track record,
// computed from pkg/formulas over its equity curve.
type StrategyPerformance struct {
	StrategyID      string
	TotalReturn     float64
	SharpeRatio     float64
	MaxDrawdown     float64
	CAGR            float64
	WinRate         float64
	TradeCount      int
}
