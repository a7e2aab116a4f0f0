// Package report renders simulation results as plain text.
package report

import (
	"fmt"
	"sort"
	"strings"

	"ExchangeSim/internal/analysis"
	"ExchangeSim/internal/model"
	"ExchangeSim/internal/simulator"
)

// FormatSummary formats a market summary for the terminal.
func FormatSummary(sum *analysis.MarketSummary) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 Market summary | %s\n\n", sum.Date.Format(model.DateLayout)))
	b.WriteString(fmt.Sprintf("Companies: %d | Trading days: %d\n", sum.Companies, sum.TradingDays))
	b.WriteString(fmt.Sprintf("Total volume: %d\n", sum.TotalVolume))

	if br := sum.Breadth; br != nil {
		var ratio string
		switch {
		case br.HasRatio:
			ratio = fmt.Sprintf("%.2f", br.Ratio)
		case br.Advancing > 0:
			ratio = "inf"
		default:
			ratio = "n/a"
		}
		b.WriteString(fmt.Sprintf("Breadth: %d up / %d down / %d flat (A/D %s)\n",
			br.Advancing, br.Declining, br.Unchanged, ratio))
	}
	if st := sum.RSIStats; st != nil {
		b.WriteString(fmt.Sprintf("RSI: mean %.1f | median %.1f | std %.1f | range %.1f~%.1f\n",
			st.Mean, st.Median, st.Std, st.Min, st.Max))
	}

	b.WriteString("\n📈 Top gainers:\n")
	writeRanked(&b, sum.Gainers, "%+.2f%%")
	b.WriteString("\n📉 Top losers:\n")
	writeRanked(&b, sum.Losers, "%+.2f%%")
	b.WriteString("\n🔊 Volume leaders:\n")
	writeRanked(&b, sum.VolumeLeaders, "%.0f")

	if len(sum.Sectors) > 0 {
		b.WriteString("\n🏦 Sector performance:\n")
		sectors := make([]string, 0, len(sum.Sectors))
		for s := range sum.Sectors {
			sectors = append(sectors, s)
		}
		sort.Strings(sectors)
		for _, s := range sectors {
			b.WriteString(fmt.Sprintf("  %-24s %+.2f%%\n", s, sum.Sectors[s]))
		}
		b.WriteString(fmt.Sprintf("  Best: %s | Worst: %s | Market: %+.2f%%\n",
			sum.BestSector, sum.WorstSector, sum.MarketReturn))
	}

	b.WriteString(fmt.Sprintf("\n⚡ Circuits: %d upper (%d companies) | %d lower (%d companies)\n",
		sum.TotalUpper, sum.CompaniesHitUpper, sum.TotalLower, sum.CompaniesHitLower))
	b.WriteString(fmt.Sprintf("Volume spikes: %d (%d companies)\n", sum.VolumeSpikes, sum.CompaniesWithSpikes))

	return b.String()
}

func writeRanked(b *strings.Builder, items []analysis.Ranked, valueFmt string) {
	if len(items) == 0 {
		b.WriteString("  (none)\n")
		return
	}
	for i, r := range items {
		b.WriteString(fmt.Sprintf("  %2d. %-8s "+valueFmt+"\n", i+1, r.Symbol, r.Value))
	}
}

// FormatStatus formats the intraday market status.
func FormatStatus(st model.MarketStatus) string {
	var b strings.Builder
	state := "CLOSED"
	if st.IsOpen {
		state = "OPEN"
	}
	date := "-"
	if !st.Date.IsZero() {
		date = st.Date.Format(model.DateLayout)
	}
	b.WriteString(fmt.Sprintf("🕒 Session %s | %s\n", date, state))
	b.WriteString(fmt.Sprintf("Minute %d/%d (%.1f%%)\n", st.Minute, st.TotalMinutes, st.ElapsedPct))
	b.WriteString(fmt.Sprintf("Advancing %d | Declining %d | Unchanged %d\n", st.Advancing, st.Declining, st.Unchanged))
	b.WriteString(fmt.Sprintf("Volume %d\n", st.TotalVolume))
	return b.String()
}

// FormatQuotes formats tick quotes in symbol order.
func FormatQuotes(quotes map[string]model.Quote) string {
	symbols := make([]string, 0, len(quotes))
	for sym := range quotes {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%-8s %10s %9s %8s %10s %10s %10s\n", "SYMBOL", "PRICE", "CHANGE", "CHG%", "HIGH", "LOW", "VOLUME"))
	for _, sym := range symbols {
		q := quotes[sym]
		b.WriteString(fmt.Sprintf("%-8s %10.2f %+9.2f %+7.2f%% %10.2f %10.2f %10d\n",
			sym, q.Price, q.Change, q.ChangePct, q.High, q.Low, q.Volume))
	}
	return b.String()
}

// FormatSnapshots formats the latest bar of each company with its indicators.
func FormatSnapshots(snaps []simulator.CompanySnapshot) string {
	if len(snaps) == 0 {
		return "No companies.\n"
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%-8s %-20s %10s %8s %6s %12s %s\n", "SYMBOL", "SECTOR", "CLOSE", "CHG%", "RSI", "VOLUME", "CIRCUIT"))
	for _, s := range snaps {
		b.WriteString(fmt.Sprintf("%-8s %-20s %10.2f %+7.2f%% %6.1f %12d %s\n",
			s.Symbol, truncate(s.Sector, 20), s.Bar.Close, s.ChangePct, s.RSI, s.Bar.Volume, circuitLabel(s.Circuit)))
	}
	return b.String()
}

// FormatBars formats OHLCV bars under a title, oldest first.
func FormatBars(title string, bars []model.DailyBar) string {
	var b strings.Builder
	b.WriteString(title + "\n")
	if len(bars) == 0 {
		b.WriteString("  (none)\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("%-10s %10s %10s %10s %10s %12s\n", "DATE", "OPEN", "HIGH", "LOW", "CLOSE", "VOLUME"))
	for _, bar := range bars {
		b.WriteString(fmt.Sprintf("%-10s %10.2f %10.2f %10.2f %10.2f %12d\n",
			bar.Date.Format(model.DateLayout), bar.Open, bar.High, bar.Low, bar.Close, bar.Volume))
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "~"
}

func circuitLabel(c model.CircuitStatus) string {
	if c == "" || c == model.CircuitNone {
		return "-"
	}
	return string(c)
}

// FormatEvents formats the event journal, newest last.
func FormatEvents(events []model.MarketEvent) string {
	if len(events) == 0 {
		return "No events.\n"
	}
	var b strings.Builder
	for _, e := range events {
		target := ""
		if e.Target != "" {
			target = " " + e.Target
		}
		b.WriteString(fmt.Sprintf("%s day %-4d %-7s%s: %s (%+.1f%%)\n",
			e.Date.Format(model.DateLayout), e.Day, e.Scope, target, e.Label, e.Impact*100))
	}
	return b.String()
}

// FormatWarnings formats per-company fallbacks taken during a batch.
func FormatWarnings(warnings []simulator.Warning) string {
	if len(warnings) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("⚠️ %d warning(s):\n", len(warnings)))
	for _, w := range warnings {
		b.WriteString("  " + w.String() + "\n")
	}
	return b.String()
}
