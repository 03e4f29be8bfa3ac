package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/Noofbiz/beatTrainer/beatgrid"
	"github.com/Noofbiz/beatTrainer/config"
	"github.com/Noofbiz/beatTrainer/datasets"
	"github.com/Noofbiz/beatTrainer/record"
	"github.com/Noofbiz/beatTrainer/simple"
	"github.com/Noofbiz/beatTrainer/utils"

	"github.com/mdobak/go-xerrors"
)

const usage = "Expected one of 'info', 'songs', 'samples', 'verify', 'plot', 'train' or 'avg' subcommands"

func main() {
	if err := config.LoadEnv(); err != nil {
		logger := utils.GetLogger()
		logger.ErrorContext(context.Background(), "Failed to read .env file.", slog.Any("error", xerrors.New(err)))
	}

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg := config.Load()
	a := &app{
		cfg:    cfg,
		out:    os.Stdout,
		in:     os.Stdin,
		logger: utils.NewLogger(cfg.LogLevel),
	}

	ctx := context.Background()
	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Println(usage)
		} else if !errors.Is(err, flag.ErrHelp) {
			a.logger.ErrorContext(ctx, "Command failed.", slog.String("command", os.Args[1]), slog.Any("error", xerrors.New(err)))
		}
		os.Exit(1)
	}
}

var errUsage = errors.New("unknown subcommand")

// app carries what every subcommand needs.
type app struct {
	cfg    config.Config
	out    io.Writer
	in     io.Reader
	logger *slog.Logger
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "info":
		return a.info(args)
	case "songs":
		return a.songs(args)
	case "samples":
		return a.samples(args)
	case "verify":
		return a.verify(args)
	case "plot":
		return a.plot(ctx, args)
	case "train":
		return a.train(args)
	case "avg":
		return a.avg(args)
	}
	return errUsage
}

// dirFlags registers the flags shared by every subcommand that reads a
// data directory.
type dirFlags struct {
	dir   *string
	codec *string
}

func (a *app) addDirFlags(fs *flag.FlagSet) dirFlags {
	return dirFlags{
		dir:   fs.String("dir", a.cfg.DataDir, "Directory written by the producer"),
		codec: fs.String("codec", a.cfg.Codec, "Record encoding (pickle, bson or json)"),
	}
}

func (a *app) open(f dirFlags) (*datasets.DataDir, error) {
	codec, err := record.ByName(*f.codec)
	if err != nil {
		return nil, err
	}
	return datasets.Open(*f.dir, datasets.WithCodec(codec), datasets.WithLogger(a.logger)), nil
}

// windowFlags registers the training window flags.
type windowFlags struct {
	offset *int
	length *int
	ratio  *float64
	seed   *int64
}

func (a *app) addWindowFlags(fs *flag.FlagSet) windowFlags {
	return windowFlags{
		offset: fs.Int("offset", a.cfg.WindowOffset, "Window start relative to the chosen time step"),
		length: fs.Int("length", a.cfg.WindowLength, "Window length in time steps"),
		ratio:  fs.Float64("ratio", a.cfg.NegativeRatio, "Non-beat windows drawn per beat window"),
		seed:   fs.Int64("seed", a.cfg.Seed, "Random seed"),
	}
}

func (w windowFlags) config() datasets.TrainingSetConfig {
	return datasets.TrainingSetConfig{
		Offset:        *w.offset,
		Length:        *w.length,
		NegativeRatio: *w.ratio,
		Seed:          *w.seed,
	}
}

func (a *app) info(args []string) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	df := a.addDirFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	dir, err := a.open(df)
	if err != nil {
		return err
	}
	info, err := dir.Metadata()
	if err != nil {
		return err
	}

	p := info.Params
	fmt.Fprintf(a.out, "metadata:   %s\n", dir.MetadataPath())
	fmt.Fprintf(a.out, "schema:     %s\n", info.Schema)
	fmt.Fprintf(a.out, "params:     f_low=%g f_high=%g q=%g n_filters=%d rate=%g\n", p.FLow, p.FHigh, p.Q, p.NFilters, p.Rate)
	fmt.Fprintf(a.out, "files:      %d\n", len(info.FileNames()))
	if info.Schema == datasets.SchemaPartitioned {
		fmt.Fprintf(a.out, "to_process: %d\n", len(info.ToProcess))
		fmt.Fprintf(a.out, "processed:  %d\n", len(info.Processed))
		fmt.Fprintf(a.out, "failed:     %d\n", len(info.Failed))
		for _, f := range info.Failed {
			fmt.Fprintf(a.out, "  %s: %s\n", f.Info.Title, f.Error)
		}
	}
	return nil
}

func (a *app) songs(args []string) error {
	fs := flag.NewFlagSet("songs", flag.ContinueOnError)
	df := a.addDirFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	dir, err := a.open(df)
	if err != nil {
		return err
	}
	files, err := dir.Files()
	if err != nil {
		return err
	}

	loaded, failed := 0, 0
	i := 0
	for song, err := range dir.Songs() {
		name := files[i]
		i++
		if err != nil {
			failed++
			fmt.Fprintf(a.out, "%s\terror: %v\n", name, err)
			continue
		}
		loaded++
		fmt.Fprintf(a.out, "%s\t%s\tbpm=%.2f\tsteps=%d\twidth=%d\tbeats=%d\n",
			name, song.Title, song.BPM, song.Len(), song.Width(), len(song.BeatIndices()))
	}
	fmt.Fprintf(a.out, "loaded %d songs, %d failed\n", loaded, failed)
	return nil
}

func (a *app) samples(args []string) error {
	fs := flag.NewFlagSet("samples", flag.ContinueOnError)
	df := a.addDirFlags(fs)
	wf := a.addWindowFlags(fs)
	show := fs.Int("n", 5, "Number of windows to print")
	if err := fs.Parse(args); err != nil {
		return err
	}
	dir, err := a.open(df)
	if err != nil {
		return err
	}
	ts, err := datasets.NewTrainingSet(dir, wf.config())
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "windows=%d positives=%d negatives=%d skipped=%d\n",
		ts.Len(), ts.Positives(), ts.Negatives(), ts.Skipped())

	ts.Shuffle(*wf.seed)
	for i := 0; i < min(*show, ts.Len()); i++ {
		s, err := ts.Sample(i)
		if err != nil {
			return err
		}
		title, _ := record.String(s.Info["title"])
		fmt.Fprintf(a.out, "%s\t%s\tstart=%d\tsteps=%d\n", s.Label, title, s.Start, len(s.Hist))
	}
	return nil
}

// verify rebuilds every song's beat grid from its tempo and offset and
// compares it with the stored one.
func (a *app) verify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	df := a.addDirFlags(fs)
	rate := fs.Float64("rate", a.cfg.SampleRate, "Audio sample rate of the source tracks in Hz")
	tolerance := fs.Int("tolerance", 1, "Allowed distance in time steps between matching beats")
	if err := fs.Parse(args); err != nil {
		return err
	}
	dir, err := a.open(df)
	if err != nil {
		return err
	}
	info, err := dir.Metadata()
	if err != nil {
		return err
	}
	if info.Params.Rate <= 0 || *rate <= 0 {
		return fmt.Errorf("cannot rebuild beat grids with history rate %g and sample rate %g", info.Params.Rate, *rate)
	}
	subsample := max(int(math.Round(*rate/info.Params.Rate)), 1)

	var total beatgrid.Match
	for song, err := range dir.Songs() {
		if err != nil {
			a.logger.Warn("skipping song", slog.Any("error", err))
			continue
		}
		track, ok := song.Track()
		if !ok {
			a.logger.Debug("song has no offset, skipping", slog.String("title", song.Title))
			continue
		}
		grid := beatgrid.Targets(track.BPM, track.Offset, *rate, subsample, song.Len()*subsample)
		m := beatgrid.Compare(beatgrid.Indices(grid), song.BeatIndices(), *tolerance)
		fmt.Fprintf(a.out, "%s\tmatched=%d\tmissed=%d\textra=%d\n", song.Title, m.Matched, m.Missed, m.Extra)
		total.Matched += m.Matched
		total.Missed += m.Missed
		total.Extra += m.Extra
	}
	fmt.Fprintf(a.out, "total\tmatched=%d\tmissed=%d\textra=%d\n", total.Matched, total.Missed, total.Extra)
	return nil
}

func (a *app) train(args []string) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	df := a.addDirFlags(fs)
	wf := a.addWindowFlags(fs)
	hidden := fs.String("hidden", "32", "Comma separated hidden layer sizes")
	epochs := fs.Int("epochs", 10, "Training epochs")
	lr := fs.Float64("lr", 0.05, "Learning rate")
	batch := fs.Int("batch", 16, "Mini-batch size")
	threshold := fs.Float64("threshold", 0.5, "Beat probability threshold")
	if err := fs.Parse(args); err != nil {
		return err
	}
	sizes, err := parseSizes(*hidden)
	if err != nil {
		return err
	}
	dir, err := a.open(df)
	if err != nil {
		return err
	}
	ts, err := datasets.NewTrainingSet(dir, wf.config())
	if err != nil {
		return err
	}
	if ts.Len() == 0 {
		return errors.New("no training windows in data directory")
	}
	ts.Shuffle(*wf.seed)

	in, _, err := ts.Example(0)
	if err != nil {
		return err
	}
	model, err := simple.NewModel(simple.Config{
		HiddenSizes:  sizes,
		InputDim:     len(in),
		LearningRate: *lr,
		Epochs:       *epochs,
		BatchSize:    *batch,
		Seed:         *wf.seed,
	})
	if err != nil {
		return err
	}

	before, err := model.Loss(ts)
	if err != nil {
		return err
	}
	a.logger.Info("training",
		slog.Int("windows", ts.Len()),
		slog.Int("input_dim", len(in)),
		slog.Int("epochs", *epochs))
	if err := model.TrainWithDataset(ts); err != nil {
		return err
	}
	after, err := model.Loss(ts)
	if err != nil {
		return err
	}
	acc, err := model.Accuracy(ts, float32(*threshold))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "loss %.4f -> %.4f, accuracy %.3f on %d windows\n", before, after, acc, ts.Len())
	return nil
}

func parseSizes(s string) ([]int, error) {
	var sizes []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid hidden layer size %q", part)
		}
		sizes = append(sizes, n)
	}
	return sizes, nil
}
