package cmd

import (
	"fmt"

	"github.com/haveachin/bytecode/pkg/rite"
	"github.com/spf13/cobra"
)

var (
	infoCmd = &cobra.Command{
		Use:   "info FILE",
		Short: "Prints size, compression and fingerprint of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := newLoader().Load(args[0])
			if err != nil {
				return err
			}

			compression := res.Compression
			if compression == "" {
				compression = "none"
			}

			format := "unknown"
			if res.Cursor.StartsWith([]byte(rite.Ident)) {
				format = "mruby binary (" + rite.Ident + ")"
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "file:         %s\n", res.Name)
			fmt.Fprintf(w, "format:       %s\n", format)
			fmt.Fprintf(w, "compression:  %s\n", compression)
			fmt.Fprintf(w, "raw size:     %s (%d bytes)\n", res.RawSize.HumanReadable(), res.RawSize.Bytes())
			fmt.Fprintf(w, "size:         %s (%d bytes)\n", res.Size.HumanReadable(), res.Size.Bytes())
			fmt.Fprintf(w, "fingerprint:  %016x\n", res.Fingerprint)
			return nil
		},
	}
)
