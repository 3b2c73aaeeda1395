// Package tail decides what to report for successive reads of the last line of a log file.
//
// The logger appends a line every interval. Clients poll by re-reading the last line,
// and a line that has not changed between two consecutive reads means logging has stopped.
package tail

import "strings"

const (
	// ErrorLine is reported for lines too short to be a measurement.
	ErrorLine = "error,0,error"
	// Finished is reported once the last line stops changing.
	Finished = "finished"
	// MinLength is the shortest line treated as a measurement.
	MinLength = 5
)

// Detector remembers the two most recent lines read from one file.
// The zero value is ready to use.
type Detector struct {
	prev2 string
	prev1 string
}

// Observe classifies line and returns the text to report: the line itself, Finished or ErrorLine.
// Short lines leave the memory untouched.
func (d *Detector) Observe(line string) string {
	line = strings.TrimRight(line, "\r\n")
	if len(line) < MinLength {
		return ErrorLine
	}
	d.prev2 = d.prev1
	d.prev1 = line
	if d.prev2 == d.prev1 {
		return Finished
	}
	return line
}

// Tracker keeps a Detector per file name.
// It is not goroutine-safe; each connection owns its own Tracker.
type Tracker struct {
	files map[string]*Detector
}

func NewTracker() *Tracker {
	return &Tracker{files: map[string]*Detector{}}
}

func (t *Tracker) Observe(file, line string) string {
	d, ok := t.files[file]
	if !ok {
		d = &Detector{}
		t.files[file] = d
	}
	return d.Observe(line)
}
