package clips

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/soundscene/soundscene/pkg/structure"
)

// Index is a BadgerDB-backed clip metadata index. Records are
// msgpack-encoded Clips keyed by speaker and path, so per-speaker listing
// is a prefix scan.
type Index struct {
	db *badger.DB
}

// IndexOptions configures an Index.
type IndexOptions struct {
	// Dir is the directory for index data files. Required unless InMemory.
	Dir string

	// InMemory runs the index without disk persistence. Used in tests and
	// for one-shot imports piped straight into generation.
	InMemory bool
}

// OpenIndex opens (creating if necessary) a clip index.
func OpenIndex(opts IndexOptions) (*Index, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("clips: IndexOptions.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir).WithLogger(nil)
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, err
	}
	return &Index{db: db}, nil
}

// Close releases the underlying database.
func (ix *Index) Close() error {
	return ix.db.Close()
}

func clipKey(speaker structure.SpeakerID, path string) []byte {
	return fmt.Appendf(nil, "clip:%08d:%s", speaker, path)
}

func speakerPrefix(speaker structure.SpeakerID) []byte {
	return fmt.Appendf(nil, "clip:%08d:", speaker)
}

// Put stores clip records, overwriting existing entries with the same
// speaker and path.
func (ix *Index) Put(clips ...Clip) error {
	wb := ix.db.NewWriteBatch()
	defer wb.Cancel()
	for _, c := range clips {
		data, err := msgpack.Marshal(c)
		if err != nil {
			return err
		}
		if err := wb.Set(clipKey(c.Speaker, c.Path), data); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// Speaker returns all clips indexed for one speaker, ordered by path.
func (ix *Index) Speaker(speaker structure.SpeakerID) ([]Clip, error) {
	var out []Clip
	err := ix.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = speakerPrefix(speaker)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var c Clip
				if err := msgpack.Unmarshal(val, &c); err != nil {
					return err
				}
				out = append(out, c)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

// Speakers returns the distinct speaker IDs present in the index, in
// ascending order.
func (ix *Index) Speakers() ([]structure.SpeakerID, error) {
	var out []structure.SpeakerID
	err := ix.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte("clip:")
		it := txn.NewIterator(opts)
		defer it.Close()
		last := structure.SpeakerID(-1)
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			if len(key) < len("clip:")+8 {
				continue
			}
			id, err := strconv.Atoi(string(key[len("clip:") : len("clip:")+8]))
			if err != nil {
				continue
			}
			if structure.SpeakerID(id) != last {
				last = structure.SpeakerID(id)
				out = append(out, last)
			}
		}
		return nil
	})
	return out, err
}

// Pool loads the named speakers' clips into an in-memory Pool.
// Returns an error wrapping ErrNoClip if any speaker has no clips.
func (ix *Index) Pool(speakers []structure.SpeakerID) (*Pool, error) {
	var all []Clip
	for _, id := range speakers {
		clips, err := ix.Speaker(id)
		if err != nil {
			return nil, err
		}
		if len(clips) == 0 {
			return nil, fmt.Errorf("%w: speaker %d has no indexed clips", ErrNoClip, id)
		}
		all = append(all, clips...)
	}
	return NewPool(all), nil
}

// ImportCSV reads a dataset index CSV and stores its rows.
//
// The CSV must carry a header with at least "speaker" and "file_name"
// columns. "length" is in samples at the row's sample rate; "sample_rate"
// defaults to defaultRate when the column is absent; "rms_level_vad" is
// optional. Returns the number of imported rows.
func (ix *Index) ImportCSV(r io.Reader, defaultRate int) (int, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return 0, fmt.Errorf("clips: reading CSV header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"speaker", "file_name"} {
		if _, ok := col[required]; !ok {
			return 0, fmt.Errorf("clips: CSV is missing required column %q", required)
		}
	}

	var batch []Clip
	row := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("clips: CSV row %d: %w", row, err)
		}
		row++

		speaker, err := strconv.Atoi(record[col["speaker"]])
		if err != nil {
			return 0, fmt.Errorf("clips: CSV row %d: bad speaker: %w", row, err)
		}
		c := Clip{
			Speaker: structure.SpeakerID(speaker),
			Path:    record[col["file_name"]],
			Rate:    defaultRate,
		}
		if i, ok := col["sample_rate"]; ok {
			if c.Rate, err = strconv.Atoi(record[i]); err != nil {
				return 0, fmt.Errorf("clips: CSV row %d: bad sample_rate: %w", row, err)
			}
		}
		if c.Rate <= 0 {
			return 0, fmt.Errorf("clips: CSV row %d: non-positive sample rate %d", row, c.Rate)
		}
		if i, ok := col["length"]; ok {
			samples, err := strconv.ParseInt(record[i], 10, 64)
			if err != nil {
				return 0, fmt.Errorf("clips: CSV row %d: bad length: %w", row, err)
			}
			c.Length = time.Duration(samples) * time.Second / time.Duration(c.Rate)
		}
		if i, ok := col["rms_level_vad"]; ok {
			if c.RMSLevel, err = strconv.ParseFloat(record[i], 64); err != nil {
				return 0, fmt.Errorf("clips: CSV row %d: bad rms_level_vad: %w", row, err)
			}
		}
		batch = append(batch, c)
	}
	if err := ix.Put(batch...); err != nil {
		return 0, err
	}
	return len(batch), nil
}
