package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Noofbiz/beatTrainer/datasets"
	"github.com/Noofbiz/beatTrainer/stats"
	"github.com/Noofbiz/beatTrainer/utils"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// plot writes one PNG per song showing the history energy and the beat grid.
func (a *app) plot(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("plot", flag.ContinueOnError)
	df := a.addDirFlags(fs)
	outDir := fs.String("out", a.cfg.PlotDir, "Output directory for PNG files")
	only := fs.String("song", "", "Only plot this song record")
	if err := fs.Parse(args); err != nil {
		return err
	}
	dir, err := a.open(df)
	if err != nil {
		return err
	}
	if err := utils.CreateFolder(*outDir); err != nil {
		return err
	}

	plotOne := func(name string, song *datasets.Song) error {
		path := filepath.Join(*outDir, strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))+".png")
		if err := plotSong(song, path); err != nil {
			return err
		}
		a.logger.InfoContext(ctx, "wrote plot", slog.String("path", path))
		fmt.Fprintln(a.out, path)
		return nil
	}

	if *only != "" {
		song, err := dir.LoadSong(*only)
		if err != nil {
			return err
		}
		return plotOne(*only, song)
	}

	files, err := dir.Files()
	if err != nil {
		return err
	}
	i := 0
	for song, err := range dir.Songs() {
		name := files[i]
		i++
		if err != nil {
			a.logger.WarnContext(ctx, "skipping song", slog.Any("error", err))
			continue
		}
		if err := plotOne(name, song); err != nil {
			return err
		}
	}
	return nil
}

// songEnergy sums each history row.
func songEnergy(song *datasets.Song) plotter.XYs {
	xys := make(plotter.XYs, song.Len())
	for i, row := range song.Hist {
		var sum float64
		for _, v := range row {
			sum += float64(v)
		}
		xys[i] = plotter.XY{X: float64(i), Y: sum}
	}
	return xys
}

// plotSong draws the energy line (blue) and the beats (red) at the energy of
// their time step.
func plotSong(song *datasets.Song, outPath string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s (%.1f bpm)", song.Title, song.BPM)
	p.X.Label.Text = "time step"
	p.Y.Label.Text = "energy"
	p.Add(plotter.NewGrid())

	energy := songEnergy(song)
	if len(energy) > 0 {
		line, err := plotter.NewLine(energy)
		if err != nil {
			return err
		}
		line.Color = color.RGBA{R: 20, G: 80, B: 200, A: 220}
		line.Width = vg.Points(0.8)
		p.Add(line)
		p.Legend.Add("energy", line)
	}

	beats := song.BeatIndices()
	if len(beats) > 0 {
		xys := make(plotter.XYs, len(beats))
		for i, b := range beats {
			xys[i] = energy[b]
		}
		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return err
		}
		sc.GlyphStyle.Color = color.RGBA{R: 200, G: 30, B: 30, A: 200}
		sc.GlyphStyle.Radius = vg.Points(2)
		p.Add(sc)
		p.Legend.Add("beat", sc)
	}

	return p.Save(10*vg.Inch, 4*vg.Inch, outPath)
}

// avg feeds one number per input line through a RunningAverager and writes
// the incremental and control variance of every step.
func (a *app) avg(args []string) error {
	fs := flag.NewFlagSet("avg", flag.ContinueOnError)
	span := fs.Int("span", a.cfg.AvgSpan, "Window size")
	inPath := fs.String("in", "", "Input file, one value per line (default stdin)")
	outPath := fs.String("out", "", "Output file for variance pairs (default stdout)")
	plotPath := fs.String("plot", "", "Optional PNG comparing incremental and control variance")
	if err := fs.Parse(args); err != nil {
		return err
	}

	in := a.in
	if *inPath != "" {
		f, err := os.Open(*inPath)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	out := a.out
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		w := bufio.NewWriter(f)
		defer w.Flush()
		out = w
	}

	values, err := readValues(in)
	if err != nil {
		return err
	}
	ra := stats.NewRunningAverager(*span, out)
	variance := make(plotter.XYs, len(values))
	control := make(plotter.XYs, len(values))
	for i, v := range values {
		iv, cv := ra.AddValue(v)
		variance[i] = plotter.XY{X: float64(i), Y: iv}
		control[i] = plotter.XY{X: float64(i), Y: cv}
	}
	a.logger.Debug("running average",
		slog.Int("values", len(values)),
		slog.Float64("mean", ra.Mean()),
		slog.Float64("variance", ra.Variance()))

	if *plotPath == "" || len(values) == 0 {
		return nil
	}
	if err := utils.CreateFolder(filepath.Dir(*plotPath)); err != nil {
		return err
	}
	return plotVariance(variance, control, *span, *plotPath)
}

func readValues(r io.Reader) ([]float64, error) {
	var values []float64
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		values = append(values, v)
	}
	return values, sc.Err()
}

func plotVariance(variance, control plotter.XYs, span int, outPath string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Running variance over %d values: incremental (blue), control (red)", span)
	p.X.Label.Text = "step"
	p.Y.Label.Text = "variance"
	p.Add(plotter.NewGrid())

	inc, err := plotter.NewLine(variance)
	if err != nil {
		return err
	}
	inc.Color = color.RGBA{R: 20, G: 80, B: 200, A: 220}
	inc.Width = vg.Points(1)
	p.Add(inc)
	p.Legend.Add("incremental", inc)

	ctl, err := plotter.NewLine(control)
	if err != nil {
		return err
	}
	ctl.Color = color.RGBA{R: 200, G: 30, B: 30, A: 180}
	ctl.Width = vg.Points(0.8)
	ctl.Dashes = []vg.Length{vg.Points(3), vg.Points(2)}
	p.Add(ctl)
	p.Legend.Add("control", ctl)

	return p.Save(8*vg.Inch, 4*vg.Inch, outPath)
}
