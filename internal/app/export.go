package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"finance-brief/internal/fetcher"
)

// ChartOptions hold parameters for exporting price history.
type ChartOptions struct {
	Symbol    string
	Period    string
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// Chart renders a symbol's price history as CSV and/or PNG.
func (a *App) Chart(ctx context.Context, opts ChartOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}
	symbol := strings.ToUpper(strings.TrimSpace(opts.Symbol))
	if symbol == "" {
		return errors.New("--symbol is required")
	}
	if opts.Period == "" {
		opts.Period = "1mo"
	}
	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	s, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	res := s.market.History(ctx, symbol, opts.Period)
	if !res.OK() {
		return fmt.Errorf("history for %s: %w", symbol, res.Err)
	}
	if len(res.Value) == 0 {
		a.Logger.Info().Str("symbol", symbol).Msg("no history in range")
		return nil
	}

	bars := downsampleBars(res.Value, opts.MaxPoints)
	a.Logger.Info().Str("symbol", symbol).Int("total", len(res.Value)).Int("exported", len(bars)).
		Str("state", res.State.String()).Msg("exporting history")

	if opts.CSVPath != "" {
		if err := writeBarsCSV(opts.CSVPath, bars); err != nil {
			return err
		}
	}
	if opts.PNGPath != "" {
		if err := writeBarsPNG(opts.PNGPath, symbol, bars); err != nil {
			return err
		}
	}
	return nil
}

// downsampleBars keeps max evenly spaced bars including the first and last.
func downsampleBars(bars []fetcher.Bar, max int) []fetcher.Bar {
	if max <= 0 || len(bars) <= max {
		return bars
	}
	if max == 1 {
		return bars[len(bars)-1:]
	}

	result := make([]fetcher.Bar, 0, max)
	step := float64(len(bars)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(bars) {
			idx = len(bars) - 1
		}
		result = append(result, bars[idx])
	}
	return result
}

func writeBarsCSV(path string, bars []fetcher.Bar) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"date", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for _, bar := range bars {
		record := []string{
			bar.Time.UTC().Format(time.DateOnly),
			bar.Open.String(),
			bar.High.String(),
			bar.Low.String(),
			bar.Close.String(),
			strconv.FormatInt(bar.Volume, 10),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeBarsPNG(path, symbol string, bars []fetcher.Bar) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(bars))
	closes := make([]float64, len(bars))
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	for i, bar := range bars {
		x[i] = bar.Time
		closes[i] = bar.Close.InexactFloat64()
		highs[i] = bar.High.InexactFloat64()
		lows[i] = bar.Low.InexactFloat64()
	}

	priceFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Title:  symbol,
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Price",
			ValueFormatter: priceFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{Name: "Close", XValues: x, YValues: closes},
			chart.TimeSeries{Name: "High", XValues: x, YValues: highs},
			chart.TimeSeries{Name: "Low", XValues: x, YValues: lows},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
