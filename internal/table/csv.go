package table

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Options controls delimited-text ingestion.
type Options struct {
	// Delimiter for CSV. If 0, sniffs among ',', ';', '\t' from the header line.
	Delimiter rune
	// NAValues are extra cell spellings treated as missing, e.g. "?".
	NAValues []string
	// MaxRows limits rows read; 0 means unlimited.
	MaxRows int
}

// DefaultOptions returns reasonable defaults for ingestion.
func DefaultOptions() Options {
	return Options{}
}

// defaultNA mirrors the NA spellings common CSV tooling recognizes.
var defaultNA = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None", "n/a", "nan", "null",
}

// ReadCSVFile opens path and ingests it. A .tsv extension implies tab delimiting
// unless opt.Delimiter is set.
func ReadCSVFile(path string, opt Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	if opt.Delimiter == 0 && strings.HasSuffix(strings.ToLower(path), ".tsv") {
		opt.Delimiter = '\t'
	}
	return ReadCSV(f, opt)
}

// ReadCSV ingests delimited text with a header row into a typed Table.
func ReadCSV(src io.Reader, opt Options) (*Table, error) {
	br := bufio.NewReader(src)
	delim := opt.Delimiter
	if delim == 0 {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read header: %w", err)
		}
		delim = sniffDelimiter(line)
		src = io.MultiReader(strings.NewReader(line), br)
	} else {
		src = br
	}
	r := csv.NewReader(src)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comma = delim

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyTable
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	header = append([]string(nil), header...)
	if len(header) == 0 {
		return nil, ErrEmptyTable
	}
	var rows [][]string
	total := 0
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", total+1, err)
		}
		total++
		if opt.MaxRows > 0 && len(rows) >= opt.MaxRows {
			continue
		}
		rows = append(rows, rec)
	}
	t, err := FromRecords(header, rows, opt)
	if err != nil {
		return nil, err
	}
	t.source = total
	return t, nil
}

// FromRecords builds a Table from a header and string rows, inferring one kind
// per column: int if every non-missing cell is an integer, float if every
// non-missing cell is a finite number, text otherwise. Blank header cells are
// named "Unnamed: <index>", suffixed with ".1", ".2", ... if a real column
// already uses that name. Short rows are padded with
// missing cells; extra fields are ignored.
func FromRecords(header []string, rows [][]string, opt Options) (*Table, error) {
	if len(header) == 0 {
		return nil, ErrEmptyTable
	}
	na := make(map[string]struct{}, len(defaultNA)+len(opt.NAValues))
	for _, v := range defaultNA {
		na[v] = struct{}{}
	}
	for _, v := range opt.NAValues {
		na[strings.TrimSpace(v)] = struct{}{}
	}
	taken := make(map[string]bool, len(header))
	for _, h := range header {
		taken[strings.TrimSpace(h)] = true
	}
	cols := make([]*Column, len(header))
	for j := range header {
		name := strings.TrimSpace(header[j])
		if name == "" {
			name = unnamed(j, taken)
		}
		raw := make([]string, len(rows))
		missing := make([]bool, len(rows))
		for i, rec := range rows {
			v := ""
			if j < len(rec) {
				v = strings.TrimSpace(rec[j])
			}
			if _, ok := na[v]; ok {
				missing[i] = true
				continue
			}
			raw[i] = v
		}
		cols[j] = inferColumn(name, raw, missing)
	}
	return New(cols...)
}

func unnamed(j int, taken map[string]bool) string {
	base := fmt.Sprintf("Unnamed: %d", j)
	name := base
	for n := 1; taken[name]; n++ {
		name = fmt.Sprintf("%s.%d", base, n)
	}
	taken[name] = true
	return name
}

func inferColumn(name string, raw []string, missing []bool) *Column {
	ints := make([]int64, len(raw))
	isInt := true
	for i, v := range raw {
		if missing[i] {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			isInt = false
			break
		}
		ints[i] = n
	}
	if isInt && hasValue(missing) {
		return NewIntColumn(name, ints, missing)
	}
	floats := make([]float64, len(raw))
	isFloat := true
	for i, v := range raw {
		if missing[i] {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			isFloat = false
			break
		}
		floats[i] = f
	}
	if isFloat {
		return NewFloatColumn(name, floats, missing)
	}
	return NewTextColumn(name, raw, missing)
}

// hasValue reports whether at least one cell is present. Entirely missing
// columns are typed float, with no integer evidence.
func hasValue(missing []bool) bool {
	for _, m := range missing {
		if !m {
			return true
		}
	}
	return false
}

func sniffDelimiter(headerLine string) rune {
	best, bestN := ',', 0
	for _, d := range []rune{',', ';', '\t'} {
		if n := strings.Count(headerLine, string(d)); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}
