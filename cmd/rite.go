package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/haveachin/bytecode/pkg/rite"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var (
	riteCmd = &cobra.Command{
		Use:   "rite FILE",
		Short: "Prints the header and sections of an mruby binary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			res, err := newLoader().Load(name)
			if err != nil {
				return err
			}

			f, err := rite.Parse(res.Cursor)
			if err != nil {
				return formatError(name, err)
			}

			if err := f.Header.Validate(res.Cursor.Len()); err != nil {
				for _, e := range multierr.Errors(err) {
					logger.Warn("invalid header",
						zap.String("file", name),
						zap.Error(e),
					)
				}
			}

			return printRite(cmd.OutOrStdout(), f)
		},
	}
)

func printRite(w io.Writer, f rite.File) error {
	h := f.Header
	fmt.Fprintf(w, "ident:            %s\n", h.Ident)
	fmt.Fprintf(w, "version:          %s\n", h.Version)
	if h.HasCRC {
		fmt.Fprintf(w, "crc:              0x%04X\n", h.CRC)
	}
	fmt.Fprintf(w, "size:             %d\n", h.Size)
	fmt.Fprintf(w, "compiler:         %s %s\n", h.CompilerName, h.CompilerVersion)
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SECTION\tOFFSET\tSIZE")
	for _, s := range f.Sections {
		fmt.Fprintf(tw, "%s\t0x%08X\t%d\n", printableIdent(s.Ident), s.Offset, s.Size)
	}
	return tw.Flush()
}

func printableIdent(ident string) string {
	return strings.TrimRight(ident, "\x00")
}
