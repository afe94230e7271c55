// Package dataset holds the bundled example catalog and the in-memory store of
// tables that web sessions work on.
package dataset

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/KaramelBytes/automateda/internal/table"
)

var (
	// ErrUnknownExample indicates a catalog key that is not bundled.
	ErrUnknownExample = errors.New("unknown example dataset")
	// ErrDatasetNotFound indicates an id the store does not (or no longer) hold.
	ErrDatasetNotFound = errors.New("dataset not found")
	// ErrExampleNotInstalled indicates a catalog entry whose file is absent
	// from the examples directory. Example data is supplied at deploy time.
	ErrExampleNotInstalled = errors.New("example data not installed")
)

// DefaultDir is where the bundled example files live, relative to the working directory.
const DefaultDir = "Example Datasets"

// DefaultCapacity bounds the store when no size is configured.
const DefaultCapacity = 32

// Source records how a dataset entered the store.
type Source string

const (
	SourceUpload  Source = "upload"
	SourceExample Source = "example"
)

// Example is one bundled dataset.
type Example struct {
	Key   string `json:"key" yaml:"key"`
	Title string `json:"title" yaml:"title"`
	File  string `json:"file" yaml:"file"`
}

// Examples lists the bundled datasets in display order.
var Examples = []Example{
	{Key: "automobile", Title: "Automobile Data Set", File: "automobile.csv"},
	{Key: "bank-marketing", Title: "Bank Marketing Data Set", File: "bank-marketing.csv"},
	{Key: "california-housing", Title: "California Housing Data Set", File: "california-housing.csv"},
}

// LookupExample finds a catalog entry by key.
func LookupExample(key string) (Example, bool) {
	for _, e := range Examples {
		if e.Key == key {
			return e, true
		}
	}
	return Example{}, false
}

// Dataset is an ingested table plus the identity it is served under.
type Dataset struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Source Source       `json:"source"`
	Loaded time.Time    `json:"loaded"`
	Table  *table.Table `json:"-"`
}

// LoadExample reads the example named key from dir.
func LoadExample(dir, key string, opt table.Options) (*Dataset, error) {
	ex, ok := LookupExample(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownExample, key)
	}
	if dir == "" {
		dir = DefaultDir
	}
	t, err := table.ReadCSVFile(filepath.Join(dir, ex.File), opt)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s is missing from %q: %w", ErrExampleNotInstalled, ex.File, dir, err)
	}
	if err != nil {
		return nil, fmt.Errorf("load example %s: %w", key, err)
	}
	return &Dataset{Name: ex.Title, Source: SourceExample, Table: t}, nil
}

// Decode ingests an uploaded file. The name's extension only selects the
// delimiter for .tsv files.
func Decode(name string, r io.Reader, opt table.Options) (*Dataset, error) {
	if opt.Delimiter == 0 && strings.EqualFold(filepath.Ext(name), ".tsv") {
		opt.Delimiter = '\t'
	}
	t, err := table.ReadCSV(r, opt)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return &Dataset{Name: filepath.Base(name), Source: SourceUpload, Table: t}, nil
}

// Store keeps the most recently used datasets in memory. It is safe for
// concurrent use.
type Store struct {
	cache *lru.Cache[string, *Dataset]
}

// NewStore returns a store that holds at most size datasets.
func NewStore(size int) (*Store, error) {
	if size <= 0 {
		size = DefaultCapacity
	}
	c, err := lru.New[string, *Dataset](size)
	if err != nil {
		return nil, fmt.Errorf("create dataset cache: %w", err)
	}
	return &Store{cache: c}, nil
}

// Put assigns d a fresh id and stores it, evicting the least recently used
// entry when full.
func (s *Store) Put(d *Dataset) string {
	d.ID = uuid.NewString()
	if d.Loaded.IsZero() {
		d.Loaded = time.Now()
	}
	s.cache.Add(d.ID, d)
	return d.ID
}

// Get returns the dataset for id.
func (s *Store) Get(id string) (*Dataset, error) {
	d, ok := s.cache.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
	}
	return d, nil
}

// Len reports how many datasets are held.
func (s *Store) Len() int { return s.cache.Len() }
