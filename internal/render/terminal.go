package render

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"ladder_go/internal/ladder"
)

const (
	cellWidth   = 10
	clearScreen = "\033[H\033[2J"
)

var header = [ladder.Columns]string{"SOLD", "BID", "PRICE", "ASK", "BOUGHT"}

// Terminal prints each snapshot as a fixed-width five column table.
type Terminal struct {
	out   io.Writer
	clear bool
}

// NewTerminal writes to out. With clear set every frame redraws the screen.
func NewTerminal(out io.Writer, clear bool) *Terminal {
	return &Terminal{out: out, clear: clear}
}

// Publish renders one snapshot.
func (t *Terminal) Publish(snap ladder.Snapshot) error {
	w := bufio.NewWriter(t.out)
	if t.clear {
		w.WriteString(clearScreen)
	}

	fmt.Fprintf(w, "#%d %s %s +%s\n", snap.Seq, snap.Kind, snap.Ts.Format("15:04:05.000000"), snap.Elapsed.Round(time.Millisecond))
	writeRow(w, header)
	for _, row := range snap.Rows {
		writeRow(w, row)
	}
	return w.Flush()
}

func writeRow(w *bufio.Writer, cells [ladder.Columns]string) {
	for i, c := range cells {
		if i > 0 {
			w.WriteByte(' ')
		}
		fmt.Fprintf(w, "%*s", cellWidth, c)
	}
	w.WriteByte('\n')
}
