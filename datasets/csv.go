package datasets

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// CSVDataset is a lazily loaded member dataset backed by CSV files matching
// a glob pattern. Feature and label columns are configurable; each data row
// becomes one example. Files are only opened when an example or batch is
// requested.
type CSVDataset struct {
	// Pattern used to find CSV files (e.g., "assets/real/*.csv")
	Pattern string

	// Names of the feature and label columns, in example order.
	featureCols []string
	labelCols   []string

	// List of CSV file paths matching the pattern
	csvPaths []string

	// Column indices discovered from the first file
	colIndex map[string]int

	// Cache for counting rows in each file (index -> row count)
	rowCounts map[int]int

	// Cumulative counts for fast index mapping
	cumCounts []int

	// Total number of examples across all files
	totalExamples int
}

// NewCSVDataset creates a CSV-backed dataset from all files matching
// pattern. Every file must carry the named feature and label columns in its
// header.
func NewCSVDataset(pattern string, featureCols, labelCols []string) (*CSVDataset, error) {
	csvPaths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to glob pattern %s: %w", pattern, err)
	}
	if len(csvPaths) == 0 {
		return nil, fmt.Errorf("no CSV files found matching pattern: %s", pattern)
	}
	if len(featureCols) == 0 {
		return nil, fmt.Errorf("need at least one feature column")
	}
	if len(labelCols) == 0 {
		return nil, fmt.Errorf("need at least one label column")
	}

	ds := &CSVDataset{
		Pattern:     pattern,
		featureCols: featureCols,
		labelCols:   labelCols,
		csvPaths:    csvPaths,
		rowCounts:   make(map[int]int),
	}

	if err := ds.initializeColumns(); err != nil {
		return nil, err
	}
	if err := ds.buildIndex(); err != nil {
		return nil, err
	}
	return ds, nil
}

// initializeColumns reads the first CSV to determine column indices.
func (d *CSVDataset) initializeColumns() error {
	file, err := os.Open(d.csvPaths[0])
	if err != nil {
		return fmt.Errorf("failed to open first CSV %s: %w", d.csvPaths[0], err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	d.colIndex = make(map[string]int)
	for i, col := range header {
		d.colIndex[strings.TrimSpace(strings.ToLower(col))] = i
	}

	for _, col := range append(append([]string{}, d.featureCols...), d.labelCols...) {
		if _, ok := d.colIndex[strings.ToLower(col)]; !ok {
			return fmt.Errorf("required column %q not found in CSV", col)
		}
	}
	return nil
}

// buildIndex counts rows in all files and builds cumulative counts.
func (d *CSVDataset) buildIndex() error {
	d.cumCounts = make([]int, len(d.csvPaths)+1)
	d.cumCounts[0] = 0

	for i, path := range d.csvPaths {
		count, err := countCSVRows(path)
		if err != nil {
			return fmt.Errorf("failed to count rows in %s: %w", path, err)
		}
		d.rowCounts[i] = count
		d.cumCounts[i+1] = d.cumCounts[i] + count
	}

	d.totalExamples = d.cumCounts[len(d.csvPaths)]
	return nil
}

// Len returns the total number of examples across all CSV files.
func (d *CSVDataset) Len() int {
	return d.totalExamples
}

// Example reads a single example by index.
func (d *CSVDataset) Example(idx int) (inputs []float32, labels []float32, err error) {
	if idx < 0 || idx >= d.totalExamples {
		return nil, nil, fmt.Errorf("index %d out of range [0, %d)", idx, d.totalExamples)
	}
	fileIdx, localIdx := d.mapIndex(idx)
	return d.readExample(fileIdx, localIdx)
}

// mapIndex maps a dataset index to (file index, row index within file).
func (d *CSVDataset) mapIndex(idx int) (fileIdx, localIdx int) {
	for i := range d.csvPaths {
		if idx < d.cumCounts[i+1] {
			return i, idx - d.cumCounts[i]
		}
	}
	// Should never reach here if idx is valid.
	return len(d.csvPaths) - 1, d.rowCounts[len(d.csvPaths)-1] - 1
}

// parseRow extracts the configured feature and label columns from a record.
func (d *CSVDataset) parseRow(record []string) ([]float32, []float32, error) {
	inputs := make([]float32, len(d.featureCols))
	for i, col := range d.featureCols {
		val, err := parseFloat32(record[d.colIndex[strings.ToLower(col)]])
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse %s: %w", col, err)
		}
		inputs[i] = val
	}
	labels := make([]float32, len(d.labelCols))
	for i, col := range d.labelCols {
		val, err := parseFloat32(record[d.colIndex[strings.ToLower(col)]])
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse %s: %w", col, err)
		}
		labels[i] = val
	}
	return inputs, labels, nil
}

// readExample reads a specific example from a file.
func (d *CSVDataset) readExample(fileIdx, rowIdx int) ([]float32, []float32, error) {
	file, err := os.Open(d.csvPaths[fileIdx])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open CSV: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	// Skip header
	if _, err := reader.Read(); err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}
	// Skip to the desired row
	for range rowIdx {
		if _, err := reader.Read(); err != nil {
			return nil, nil, fmt.Errorf("failed to skip to row %d: %w", rowIdx, err)
		}
	}

	record, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read row %d: %w", rowIdx, err)
	}
	return d.parseRow(record)
}

// Batch reads multiple examples by their indices. Indices are grouped by
// file so each file is scanned at most once per call.
func (d *CSVDataset) Batch(indices []int) ([][]float32, [][]float32, error) {
	inputs := make([][]float32, len(indices))
	labels := make([][]float32, len(indices))

	fileGroups := make(map[int][]struct{ localIdx, batchPos int })
	for batchPos, idx := range indices {
		if idx < 0 || idx >= d.totalExamples {
			return nil, nil, fmt.Errorf("index %d out of range [0, %d)", idx, d.totalExamples)
		}
		fileIdx, localIdx := d.mapIndex(idx)
		fileGroups[fileIdx] = append(fileGroups[fileIdx], struct{ localIdx, batchPos int }{localIdx, batchPos})
	}

	for fileIdx, group := range fileGroups {
		if err := d.readBatchFromFile(fileIdx, group, inputs, labels); err != nil {
			return nil, nil, err
		}
	}
	return inputs, labels, nil
}

// readBatchFromFile reads multiple examples from a single file in one scan.
func (d *CSVDataset) readBatchFromFile(fileIdx int, group []struct{ localIdx, batchPos int },
	inputs, labels [][]float32) error {

	file, err := os.Open(d.csvPaths[fileIdx])
	if err != nil {
		return fmt.Errorf("failed to open CSV: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	// Skip header
	if _, err := reader.Read(); err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	// Rows can be requested more than once per batch (a balanced sampler
	// repeats indices when oversampling), so keep every batch position that
	// wants each row.
	localMap := make(map[int][]int)
	for _, item := range group {
		localMap[item.localIdx] = append(localMap[item.localIdx], item.batchPos)
	}

	rowIdx := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read row: %w", err)
		}

		if positions, ok := localMap[rowIdx]; ok {
			in, lab, err := d.parseRow(record)
			if err != nil {
				return err
			}
			for _, batchPos := range positions {
				inputs[batchPos] = append([]float32(nil), in...)
				labels[batchPos] = append([]float32(nil), lab...)
			}
		}
		rowIdx++
	}
	return nil
}
