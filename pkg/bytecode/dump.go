package bytecode

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const DefaultRowWidth = 16

const (
	ansiCyan  = "\x1b[36m"
	ansiGreen = "\x1b[32m"
	ansiReset = "\x1b[0m"
)

// DumpOptions controls the layout of Dump.
type DumpOptions struct {
	// RowWidth is the number of bytes per row. Defaults to DefaultRowWidth.
	RowWidth int
	// Color highlights the column header and the byte at the current
	// position with ANSI escape codes.
	Color bool
}

// Dump writes a hex table of the whole buffer to w, followed by a line with
// the current position. The byte at the current position is highlighted
// when opts.Color is set.
//
//	         00 01 02 03 04 05 06 07 08 09 0A 0B 0C 0D 0E 0F
//	00000000 66 6F 6F 62 61 72 FF FF FF FF FF FF
//	pos 0x00000001 (1) remaining 11
func (c *Cursor) Dump(w io.Writer, opts DumpOptions) error {
	width := opts.RowWidth
	if width <= 0 {
		width = DefaultRowWidth
	}

	bw := bufio.NewWriter(w)

	cols := make([]string, width)
	for i := range cols {
		cols[i] = fmt.Sprintf("%02X", i)
	}
	header := strings.Join(cols, " ")
	if opts.Color {
		header = ansiCyan + header + ansiReset
	}
	fmt.Fprintf(bw, "%8s %s\n", "", header)

	for row := 0; row < len(c.buf); row += width {
		end := row + width
		if end > len(c.buf) {
			end = len(c.buf)
		}

		fmt.Fprintf(bw, "%08X", row)
		for i := row; i < end; i++ {
			if opts.Color && i == c.pos {
				fmt.Fprintf(bw, " %s%02X%s", ansiGreen, c.buf[i], ansiReset)
				continue
			}
			fmt.Fprintf(bw, " %02X", c.buf[i])
		}
		bw.WriteByte('\n')
	}

	fmt.Fprintf(bw, "pos 0x%08X (%d) remaining %d\n", c.pos, c.pos, c.Remaining())
	return bw.Flush()
}
