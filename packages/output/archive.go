package output

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/abdul-hamid-achik/httpcraft/packages/archive"
)

// FormatArchive prints one line per archived entry.
func (f *ConsoleFormatter) FormatArchive(entries []archive.Entry, total int) {
	if len(entries) == 0 {
		fmt.Fprintln(f.writer, f.yellow.Sprint(emptyHistory))
		return
	}
	for _, e := range entries {
		fmt.Fprintf(f.writer, "%s  %-7s %s  %s  %s  %s  %s\n",
			f.cyan.Sprint(e.ID),
			e.Method,
			f.status(e.StatusCode),
			e.URL,
			e.Kind,
			humanize.Bytes(uint64(e.Size)),
			humanize.Time(e.Timestamp),
		)
	}
	if total > len(entries) {
		fmt.Fprintf(f.writer, "%s\n", f.bold.Sprintf("showing %d of %s entries", len(entries), humanize.Comma(int64(total))))
	}
}
