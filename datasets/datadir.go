package datasets

import (
	"errors"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/Noofbiz/beatTrainer/record"
)

// MetadataBase is the metadata record name without extension.
const MetadataBase = "info"

// DataDir is a directory written by the producer: one metadata record
// (info.pickle by default) and the song records it lists.
//
// Nothing is read from disk until Metadata, Files, LoadSong or Songs is
// called. The metadata is read once and kept for the lifetime of the
// DataDir; songs are read on every request.
type DataDir struct {
	Directory string

	codec  record.Codec
	logger *slog.Logger

	mu   sync.Mutex
	info *DataSetInfo
}

// Option configures a DataDir.
type Option func(*DataDir)

// WithCodec selects the record encoding. The default is pickle.
func WithCodec(c record.Codec) Option {
	return func(d *DataDir) { d.codec = c }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(d *DataDir) { d.logger = l }
}

// Open records directory for later use. It does not touch the disk.
func Open(directory string, opts ...Option) *DataDir {
	d := &DataDir{
		Directory: directory,
		codec:     record.Pickle{},
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Codec returns the codec records are decoded with.
func (d *DataDir) Codec() record.Codec { return d.codec }

// MetadataPath is the full path of the metadata record.
func (d *DataDir) MetadataPath() string {
	return filepath.Join(d.Directory, MetadataBase+d.codec.Ext())
}

// Metadata returns the directory metadata, reading it on first use. A failed
// read is not remembered; the next call tries again.
func (d *DataDir) Metadata() (*DataSetInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.info != nil {
		return d.info, nil
	}

	path := d.MetadataPath()
	rec, err := d.readRecord(path)
	if err != nil {
		return nil, err
	}
	info, err := parseDataSetInfo(rec)
	if err != nil {
		return nil, loadError(ErrDecode, path, err)
	}
	d.logger.Debug("loaded metadata",
		slog.String("path", path),
		slog.String("schema", info.Schema.String()),
		slog.Int("files", len(info.FileNames())))
	d.info = info
	return info, nil
}

// Files returns the song record names listed by the metadata, in order.
func (d *DataDir) Files() ([]string, error) {
	info, err := d.Metadata()
	if err != nil {
		return nil, err
	}
	return info.FileNames(), nil
}

// LoadSong reads and decodes the song record filename.
func (d *DataDir) LoadSong(filename string) (*Song, error) {
	path := filepath.Join(d.Directory, filename)
	rec, err := d.readRecord(path)
	if err != nil {
		return nil, err
	}
	song, err := parseSong(rec)
	if err != nil {
		return nil, loadError(ErrDecode, path, err)
	}
	d.logger.Debug("loaded song",
		slog.String("path", path),
		slog.String("title", song.Title),
		slog.Int("steps", song.Len()))
	return song, nil
}

// Songs iterates over all songs listed in the metadata, loading each one as
// it is reached. A load failure is yielded as (nil, err) and iteration goes
// on with the next file unless the caller stops. Each new range over the
// sequence reads the files again.
func (d *DataDir) Songs() iter.Seq2[*Song, error] {
	return func(yield func(*Song, error) bool) {
		files, err := d.Files()
		if err != nil {
			yield(nil, err)
			return
		}
		for _, name := range files {
			song, err := d.LoadSong(name)
			if !yield(song, err) {
				return
			}
		}
	}
}

// readRecord reads and decodes one file, classifying failures.
func (d *DataDir) readRecord(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, loadError(ErrNotFound, path, err)
		}
		return nil, loadError(ErrDecode, path, err)
	}
	rec, err := d.codec.Decode(data)
	if err != nil {
		return nil, loadError(ErrDecode, path, err)
	}
	return rec, nil
}
