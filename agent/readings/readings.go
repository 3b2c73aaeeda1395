// Package readings parses the CSV file the logger writes during a background session.
//
// The file starts with a header row ("Time HH:MM:SS,Elapsed Sec,Temp C") followed by one row per measurement:
//
//	12:00:05,5,20.4
package readings

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

type Reading struct {
	Time        string
	ElapsedSec  int
	Temperature float64
}

// Parse reads all rows after the header.
func Parse(r io.Reader) ([]Reading, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3
	cr.TrimLeadingSpace = true

	var readings []Reading
	header := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return readings, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV: %w", err)
		}
		if header {
			header = false
			continue
		}
		line, _ := cr.FieldPos(0)
		elapsed, err := strconv.Atoi(strings.TrimSpace(rec[1]))
		if err != nil {
			return nil, fmt.Errorf("line %d: parsing elapsed seconds %q: %w", line, rec[1], err)
		}
		temp, err := strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: parsing temperature %q: %w", line, rec[2], err)
		}
		readings = append(readings, Reading{
			Time:        strings.TrimSpace(rec[0]),
			ElapsedSec:  elapsed,
			Temperature: temp,
		})
	}
}
