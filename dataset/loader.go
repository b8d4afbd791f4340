package dataset

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"digitnet/tensor"
)

// LoadTrain reads a labeled CSV (header row, then label + 784 pixel
// intensities per row) and normalizes pixels to [0,1].
func LoadTrain(path string) (*Set, error) {
	return load(path, true)
}

// LoadTest reads an unlabeled CSV (header row, then 784 pixel
// intensities per row).
func LoadTest(path string) (*Set, error) {
	return load(path, false)
}

// Load parses an open CSV stream; labeled selects the 785- or
// 784-column layout.
func Load(r io.Reader, labeled bool) (*Set, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = -1 // column count validated per row below

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: missing header row", ErrInputFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("dataset: read header: %w", err)
	}
	want := Pixels
	if labeled {
		want++
	}
	if len(header) != want {
		return nil, fmt.Errorf("%w: header has %d columns, want %d", ErrInputFormat, len(header), want)
	}

	set := &Set{}
	if labeled {
		set.Labels = []int{}
	}
	for row := 1; ; row++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: read row %d: %w", row, err)
		}
		if len(record) != want {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrInputFormat, row, len(record), want)
		}

		offset := 0
		if labeled {
			label, err := strconv.Atoi(record[0])
			if err != nil || label < 0 || label >= NumClasses {
				return nil, fmt.Errorf("%w: row %d has label %q, want 0-%d", ErrInputFormat, row, record[0], NumClasses-1)
			}
			set.Labels = append(set.Labels, label)
			offset = 1
		}

		img := tensor.New(1, ImageSize, ImageSize)
		for j := 0; j < Pixels; j++ {
			v, err := strconv.ParseFloat(record[j+offset], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d column %d: %q is not numeric", ErrInputFormat, row, j+offset, record[j+offset])
			}
			img.Data[j] = v / 255.0
		}
		set.Images = append(set.Images, img)
	}

	if set.Len() == 0 {
		return nil, ErrEmptyDataset
	}
	return set, nil
}

func load(path string, labeled bool) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer f.Close()
	set, err := Load(f, labeled)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}
