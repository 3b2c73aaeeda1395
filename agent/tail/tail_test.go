package tail

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetector(t *testing.T) {
	cases := []struct {
		name  string
		lines []string
		exp   []string
	}{
		{
			name:  "identical reads collapse to finished",
			lines: []string{"temp=20.1", "temp=20.1", "temp=20.1"},
			exp:   []string{"temp=20.1", Finished, Finished},
		},
		{
			name:  "changing lines are reported verbatim",
			lines: []string{"12:00:01,1,20.1", "12:00:02,2,20.3", "12:00:03,3,20.2"},
			exp:   []string{"12:00:01,1,20.1", "12:00:02,2,20.3", "12:00:03,3,20.2"},
		},
		{
			name:  "short line is an error",
			lines: []string{"ab"},
			exp:   []string{ErrorLine},
		},
		{
			name:  "empty line is an error",
			lines: []string{""},
			exp:   []string{ErrorLine},
		},
		{
			name:  "four characters is still too short",
			lines: []string{"abcd", "abcde"},
			exp:   []string{ErrorLine, "abcde"},
		},
		{
			name:  "short read does not disturb memory",
			lines: []string{"temp=20.1", "ab", "temp=20.1"},
			exp:   []string{"temp=20.1", ErrorLine, Finished},
		},
		{
			name:  "trailing newline is stripped",
			lines: []string{"temp=20.1\n", "temp=20.1\r\n"},
			exp:   []string{"temp=20.1", Finished},
		},
		{
			name:  "newline does not count toward the length",
			lines: []string{"abcd\n"},
			exp:   []string{ErrorLine},
		},
		{
			name:  "a change after finished is reported",
			lines: []string{"temp=20.1", "temp=20.1", "temp=20.5"},
			exp:   []string{"temp=20.1", Finished, "temp=20.5"},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var d Detector
			var got []string
			for _, l := range c.lines {
				got = append(got, d.Observe(l))
			}
			assert.Equal(t, c.exp, got)
		})
	}
}

func TestTrackerScopesPerFile(t *testing.T) {
	tr := NewTracker()
	assert.Equal(t, "temp=20.1", tr.Observe("a.csv", "temp=20.1"))
	assert.Equal(t, "temp=20.1", tr.Observe("b.csv", "temp=20.1"))
	assert.Equal(t, Finished, tr.Observe("a.csv", "temp=20.1"))
	assert.Equal(t, "temp=21.0", tr.Observe("b.csv", "temp=21.0"))
}

func TestTrackersAreIndependent(t *testing.T) {
	a, b := NewTracker(), NewTracker()
	a.Observe("log.txt", "temp=20.1")
	assert.Equal(t, "temp=20.1", b.Observe("log.txt", "temp=20.1"))
}
