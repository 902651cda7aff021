package track

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"
)

var tableHeader = []string{
	"name", "artists", "album", "release_date", "popularity", "duration", "explicit",
	"danceability", "energy", "key", "loudness", "speechiness", "acousticness",
	"instrumentalness", "liveness", "valence", "tempo",
}

// FormatTable renders tracks as an aligned text table, one row per track.
// Tracks without audio features have their feature columns left as "-".
func FormatTable(tracks []Track) string {
	var b strings.Builder
	WriteTable(&b, tracks)
	return b.String()
}

// WriteTable writes the FormatTable output to w.
func WriteTable(w io.Writer, tracks []Track) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(tableHeader, "\t"))
	for i := range tracks {
		fmt.Fprintln(tw, strings.Join(tableRow(&tracks[i]), "\t"))
	}
	return tw.Flush()
}

func tableRow(t *Track) []string {
	row := []string{
		clean(t.Name),
		clean(t.ArtistNames()),
		clean(t.Album),
		orDash(t.ReleaseDate),
		strconv.Itoa(t.Popularity),
		formatDuration(t.Duration),
		strconv.FormatBool(t.Explicit),
	}

	f := t.Features
	if f == nil {
		for range len(tableHeader) - len(row) {
			row = append(row, "-")
		}
		return row
	}
	return append(row,
		ratio(f.Danceability),
		ratio(f.Energy),
		orDash(f.KeyName()),
		strconv.FormatFloat(f.Loudness, 'f', 1, 64),
		ratio(f.Speechiness),
		ratio(f.Acousticness),
		ratio(f.Instrumentalness),
		ratio(f.Liveness),
		ratio(f.Valence),
		strconv.FormatFloat(f.Tempo, 'f', 1, 64),
	)
}

// Tabs and newlines would break the column layout.
func clean(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '\t' || r == '\n' || r == '\r' {
			return ' '
		}
		return r
	}, s)
	return orDash(strings.TrimSpace(s))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func ratio(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func formatDuration(d time.Duration) string {
	secs := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
