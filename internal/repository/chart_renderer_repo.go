package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"stock-forecast/config"
	"stock-forecast/internal/dto"
	"stock-forecast/pkg/logger"

	"github.com/google/uuid"
	"github.com/wcharczuk/go-chart/v2"
)

type ChartRenderer interface {
	// Render draws the history and forecast charts and returns their paths
	// relative to the chart output directory.
	Render(ctx context.Context, req dto.ChartRequest) (*dto.ChartArtifacts, error)
}

type pngChartRenderer struct {
	cfg    *config.Config
	logger *logger.Logger
}

func NewChartRenderer(cfg *config.Config, log *logger.Logger) ChartRenderer {
	return &pngChartRenderer{
		cfg:    cfg,
		logger: log,
	}
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// chartFileName builds e.g. AAPL_20261019T101500_1f0c9a2e_history.png. The
// render id keeps concurrent renders of one ticker from sharing files.
func chartFileName(ticker string, at time.Time, renderID string, kind string) string {
	safe := unsafeFileChars.ReplaceAllString(ticker, "_")
	return fmt.Sprintf("%s_%s_%s_%s.png", safe, at.UTC().Format("20060102T150405"), renderID, kind)
}

func (r *pngChartRenderer) Render(ctx context.Context, req dto.ChartRequest) (*dto.ChartArtifacts, error) {
	if len(req.Series) < 2 {
		return nil, errors.New("chart needs at least two bars")
	}
	if err := os.MkdirAll(r.cfg.Chart.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create chart dir: %w", err)
	}

	generatedAt := req.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}

	renderID := uuid.NewString()[:8]

	history := r.historyChart(req)
	historyName := chartFileName(req.Ticker, generatedAt, renderID, "history")
	if err := r.write(ctx, history, historyName); err != nil {
		return nil, fmt.Errorf("render history chart: %w", err)
	}

	forecast := r.forecastChart(req)
	forecastName := chartFileName(req.Ticker, generatedAt, renderID, "forecast")
	if err := r.write(ctx, forecast, forecastName); err != nil {
		return nil, fmt.Errorf("render forecast chart: %w", err)
	}

	return &dto.ChartArtifacts{
		HistoryPath:  historyName,
		ForecastPath: forecastName,
	}, nil
}

func (r *pngChartRenderer) historyChart(req dto.ChartRequest) chart.Chart {
	xs := make([]time.Time, 0, len(req.Series))
	ys := make([]float64, 0, len(req.Series))
	for _, bar := range req.Series {
		xs = append(xs, bar.Time())
		ys = append(ys, bar.Close)
	}

	return chart.Chart{
		Title:  fmt.Sprintf("%s closing price", req.Ticker),
		Width:  r.cfg.Chart.Width,
		Height: r.cfg.Chart.Height,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat("2006-01"),
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Close",
				Style:   chart.Style{StrokeColor: chart.ColorBlue, StrokeWidth: 1.5},
				XValues: xs,
				YValues: ys,
			},
		},
	}
}

// forecastChart plots the model input window and the predicted next close.
func (r *pngChartRenderer) forecastChart(req dto.ChartRequest) chart.Chart {
	window := req.Window
	if window <= 0 || window > len(req.Series) {
		window = len(req.Series)
	}
	recent := req.Series[len(req.Series)-window:]

	xs := make([]time.Time, 0, len(recent))
	ys := make([]float64, 0, len(recent))
	for _, bar := range recent {
		xs = append(xs, bar.Time())
		ys = append(ys, bar.Close)
	}

	last := recent[len(recent)-1]
	next := last.Time().AddDate(0, 0, 1)

	graph := chart.Chart{
		Title:  fmt.Sprintf("%s next-day forecast", req.Ticker),
		Width:  r.cfg.Chart.Width,
		Height: r.cfg.Chart.Height,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat("01-02"),
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Actual",
				Style:   chart.Style{StrokeColor: chart.ColorBlue, StrokeWidth: 1.5},
				XValues: xs,
				YValues: ys,
			},
			chart.TimeSeries{
				Name: "Predicted",
				Style: chart.Style{
					StrokeColor:     chart.ColorRed,
					StrokeWidth:     1.5,
					StrokeDashArray: []float64{5.0, 5.0},
					DotColor:        chart.ColorRed,
					DotWidth:        4,
				},
				XValues: []time.Time{last.Time(), next},
				YValues: []float64{last.Close, req.Predicted},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	return graph
}

func (r *pngChartRenderer) write(ctx context.Context, graph chart.Chart, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return err
	}

	path := filepath.Join(r.cfg.Chart.OutputDir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return err
	}

	r.logger.DebugContext(ctx, "chart written", logger.StringField("path", path))
	return nil
}
