package datatable

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

const (
	defaultChartHeight = "320px"
	// DefaultChartTTL is how long rendered summary charts stay cached.
	DefaultChartTTL = 5 * time.Minute
	missingBucketLabel = "(none)"
)

// SummaryBucket counts records sharing one value of a field.
type SummaryBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Summary is the grouped view of a table field, optionally with chart HTML.
type Summary struct {
	Table     string          `json:"table"`
	Key       string          `json:"key"`
	Total     int             `json:"total"`
	Buckets   []SummaryBucket `json:"buckets"`
	ChartType string          `json:"chart_type,omitempty"`
	ChartHTML string          `json:"chart_html,omitempty"`
}

// Summarize groups records by the stringified value at key. Buckets are
// ordered by count descending, then label.
func Summarize(records []Record, key string) []SummaryBucket {
	counts := map[string]int{}
	for _, record := range records {
		label := missingBucketLabel
		if value, ok := ResolvePath(record, key); ok && value != nil {
			if text := stringify(value); text != "" {
				label = text
			}
		}
		counts[label]++
	}
	buckets := make([]SummaryBucket, 0, len(counts))
	for label, count := range counts {
		buckets = append(buckets, SummaryBucket{Label: label, Count: count})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		return buckets[i].Label < buckets[j].Label
	})
	return buckets
}

// SummaryChart renders bucket counts as go-echarts HTML.
type SummaryChart struct {
	cache      RenderCache
	theme      string
	assetsHost string
}

// SummaryChartOption customizes chart rendering.
type SummaryChartOption func(*SummaryChart)

// WithChartCache injects a render cache; nil disables caching.
func WithChartCache(cache RenderCache) SummaryChartOption {
	return func(c *SummaryChart) {
		c.cache = cache
	}
}

// WithChartTheme sets the chart theme (defaults to Westeros).
func WithChartTheme(theme string) SummaryChartOption {
	return func(c *SummaryChart) {
		if theme != "" {
			c.theme = theme
		}
	}
}

// WithChartAssetsHost rewrites the host ECharts JS loads from.
func WithChartAssetsHost(host string) SummaryChartOption {
	return func(c *SummaryChart) {
		c.assetsHost = host
	}
}

// NewSummaryChart builds a chart renderer with a fresh TTL cache.
func NewSummaryChart(options ...SummaryChartOption) *SummaryChart {
	c := &SummaryChart{
		cache: NewChartCache(DefaultChartTTL),
		theme: types.ThemeWesteros,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Render returns chart HTML for the buckets. chartType is "pie" or "bar".
func (c *SummaryChart) Render(table, key, chartType, title string, buckets []SummaryBucket) (string, error) {
	chartType = strings.ToLower(strings.TrimSpace(chartType))
	if chartType == "" {
		chartType = "pie"
	}
	if chartType != "pie" && chartType != "bar" {
		return "", fmt.Errorf("datatable: unsupported chart type %q", chartType)
	}
	renderFn := func() (string, error) {
		if chartType == "bar" {
			return c.renderBar(title, buckets)
		}
		return c.renderPie(title, buckets)
	}
	if c.cache == nil {
		return renderFn()
	}
	return c.cache.GetOrRender(NewChartKey(table, key, chartType, title, buckets), renderFn)
}

func (c *SummaryChart) renderPie(title string, buckets []SummaryBucket) (string, error) {
	pie := charts.NewPie()
	pie.SetGlobalOptions(c.globalOptions(title)...)
	data := make([]opts.PieData, len(buckets))
	for i, b := range buckets {
		data[i] = opts.PieData{Name: b.Label, Value: b.Count}
	}
	pie.AddSeries(title, data)
	return renderChart(pie)
}

func (c *SummaryChart) renderBar(title string, buckets []SummaryBucket) (string, error) {
	bar := charts.NewBar()
	bar.SetGlobalOptions(c.globalOptions(title)...)
	labels := make([]string, len(buckets))
	data := make([]opts.BarData, len(buckets))
	for i, b := range buckets {
		labels[i] = b.Label
		data[i] = opts.BarData{Name: b.Label, Value: b.Count}
	}
	bar.SetXAxis(labels)
	bar.AddSeries(title, data)
	return renderChart(bar)
}

func (c *SummaryChart) globalOptions(title string) []charts.GlobalOpts {
	initOpts := opts.Initialization{
		Theme:  c.theme,
		Width:  "100%",
		Height: defaultChartHeight,
	}
	if c.assetsHost != "" {
		initOpts.AssetsHost = c.assetsHost
	}
	return []charts.GlobalOpts{
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithInitializationOpts(initOpts),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	}
}

func renderChart(renderable interface{ Render(io.Writer) error }) (string, error) {
	var buf bytes.Buffer
	if err := renderable.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
