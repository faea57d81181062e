package dashboard

import (
	"math"
	"strconv"
	"strings"

	"github.com/wonny/gedash/internal/contracts"
)

// Chart geometry in SVG user units
const (
	chartWidth   = 800.0
	chartHeight  = 280.0
	marginLeft   = 48.0
	marginRight  = 16.0
	marginTop    = 12.0
	marginBottom = 40.0
	maxXLabels   = 12
	barColor     = "#F63366"
)

var palette = []string{
	"#636EFA", "#EF553B", "#00CC96", "#AB63FA", "#FFA15A",
	"#19D3F3", "#FF6692", "#B6E880", "#FF97FF", "#FECB52",
}

// Tick is an axis label at a position
type Tick struct {
	X, Y  float64
	Label string
}

// Bar is one rectangle of a bar chart
type Bar struct {
	X, Y, Width, Height float64
	Title               string
}

// BarChart is a precomputed SVG bar chart
type BarChart struct {
	Width, Height float64
	Color         string
	Bars          []Bar
	XTicks        []Tick
	YTicks        []Tick
	Baseline      float64
}

// Series is one line of a line chart
type Series struct {
	Name   string
	Color  string
	Points string
	Dots   []Tick
}

// LineChart is a precomputed SVG multi-series line chart
type LineChart struct {
	Width, Height float64
	Series        []Series
	XTicks        []Tick
	YTicks        []Tick
	Baseline      float64
}

func plotArea() (w, h float64) {
	return chartWidth - marginLeft - marginRight, chartHeight - marginTop - marginBottom
}

// DailyChart plots the success rate of each day as a bar between 0 and 1
func DailyChart(days []contracts.DailySuccessRate) BarChart {
	w, h := plotArea()
	baseline := marginTop + h

	c := BarChart{
		Width:    chartWidth,
		Height:   chartHeight,
		Color:    barColor,
		Baseline: baseline,
	}
	for _, frac := range []float64{0, 0.5, 1} {
		c.YTicks = append(c.YTicks, Tick{
			X:     marginLeft - 6,
			Y:     baseline - frac*h,
			Label: strconv.Itoa(int(frac*100)) + "%",
		})
	}
	if len(days) == 0 {
		return c
	}

	slot := w / float64(len(days))
	gap := math.Min(slot*0.15, 4)
	every := labelStride(len(days))

	for i, d := range days {
		x := marginLeft + float64(i)*slot
		bh := d.SuccessPercentual * h
		c.Bars = append(c.Bars, Bar{
			X:      x + gap/2,
			Y:      baseline - bh,
			Width:  slot - gap,
			Height: bh,
			Title:  d.Date.Format("2006-01-02") + ": " + formatRate(d.SuccessPercentual, FormatPercent),
		})
		if i%every == 0 {
			c.XTicks = append(c.XTicks, Tick{
				X:     x + slot/2,
				Y:     baseline + 16,
				Label: d.Date.Format("02/01"),
			})
		}
	}
	return c
}

// MonthlyChart plots one line per ranked table with a point per month
func MonthlyChart(m contracts.MonthlyFailureMatrix) LineChart {
	w, h := plotArea()
	baseline := marginTop + h

	c := LineChart{
		Width:    chartWidth,
		Height:   chartHeight,
		Baseline: baseline,
	}

	peak := 1
	for _, row := range m.Counts {
		for _, v := range row {
			if v > peak {
				peak = v
			}
		}
	}
	for _, v := range []int{0, (peak + 1) / 2, peak} {
		c.YTicks = append(c.YTicks, Tick{
			X:     marginLeft - 6,
			Y:     baseline - float64(v)/float64(peak)*h,
			Label: strconv.Itoa(v),
		})
	}
	if len(m.Months) == 0 {
		return c
	}

	xAt := func(i int) float64 {
		if len(m.Months) == 1 {
			return marginLeft + w/2
		}
		return marginLeft + float64(i)*w/float64(len(m.Months)-1)
	}

	every := labelStride(len(m.Months))
	for i, month := range m.Months {
		if i%every == 0 {
			c.XTicks = append(c.XTicks, Tick{X: xAt(i), Y: baseline + 16, Label: month.Format("Jan 2006")})
		}
	}

	for j, name := range m.Tables {
		s := Series{Name: name, Color: palette[j%len(palette)]}
		counts := m.Series(name)
		points := make([]string, len(counts))
		for i, v := range counts {
			x := xAt(i)
			y := baseline - float64(v)/float64(peak)*h
			points[i] = strconv.FormatFloat(x, 'f', 1, 64) + "," + strconv.FormatFloat(y, 'f', 1, 64)
			s.Dots = append(s.Dots, Tick{X: x, Y: y, Label: strconv.Itoa(v)})
		}
		s.Points = strings.Join(points, " ")
		c.Series = append(c.Series, s)
	}
	return c
}

func labelStride(n int) int {
	if n <= maxXLabels {
		return 1
	}
	return int(math.Ceil(float64(n) / maxXLabels))
}
