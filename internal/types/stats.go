package types

import "github.com/shopspring/decimal"

// MarketStats is a market-wide summary derived from completed trades and
// active orders. Totals cover Completed trades only.
type MarketStats struct {
	TotalProsumers    int64           `json:"total_prosumers"`
	TotalOrders       int64           `json:"total_orders"`
	TotalTrades       int64           `json:"total_trades"`
	ActiveBuyOrders   int64           `json:"active_buy_orders"`
	ActiveSellOrders  int64           `json:"active_sell_orders"`
	TotalEnergyTraded decimal.Decimal `json:"total_energy_traded"`
	TotalVolume       decimal.Decimal `json:"total_volume"`
	AveragePrice      decimal.Decimal `json:"average_price"`
	GridFeeRate       decimal.Decimal `json:"grid_fee_rate"`
}

// ProsumerStats is a per-prosumer participation summary.
type ProsumerStats struct {
	Address           string          `json:"address"`
	Name              string          `json:"name"`
	EnergyGenerated   decimal.Decimal `json:"energy_generated"`
	EnergyConsumed    decimal.Decimal `json:"energy_consumed"`
	NetEnergy         decimal.Decimal `json:"net_energy"`
	GridTokens        decimal.Decimal `json:"grid_tokens"`
	WattTokens        decimal.Decimal `json:"watt_tokens"`
	OrderCount        int64           `json:"order_count"`
	TradeCount        int64           `json:"trade_count"`
	TotalEnergyTraded decimal.Decimal `json:"total_energy_traded"`
	TotalVolume       decimal.Decimal `json:"total_volume"`
}
