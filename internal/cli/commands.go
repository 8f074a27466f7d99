package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"minivsfs/internal/errs"
	"minivsfs/internal/filesystem"
)

type mkfsOptions struct {
	image   string
	sizeKiB uint64
	size    string
	inodes  uint64
}

func newMkfsCommand(c *rootOptions) *cobra.Command {
	var opts mkfsOptions

	cmd := &cobra.Command{
		Use:   "mkfs --image PATH (--size-kib N | --size SIZE) --inodes N",
		Short: "Create an empty image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.size != "" {
				kib, err := parseSizeKiB(opts.size)
				if err != nil {
					return err
				}
				opts.sizeKiB = kib
			}
			fs, err := filesystem.CreateImage(cmd.Context(), opts.image, opts.sizeKiB, opts.inodes, c.options())
			if err != nil {
				return err
			}
			l := fs.Layout
			fmt.Fprintf(cmd.OutOrStdout(), "created %s: %d blocks, %d inodes, data region %d+%d\n",
				opts.image, l.TotalBlocks, l.InodeCount, l.DataRegionStart, l.DataRegionBlocks)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.image, "image", "", "Image file to create")
	flags.Uint64Var(&opts.sizeKiB, "size-kib", 0, "Image size in KiB")
	flags.StringVar(&opts.size, "size", "", "Image size with a unit suffix, e.g. 1MiB")
	flags.Uint64Var(&opts.inodes, "inodes", 0, "Number of inodes")
	_ = cmd.MarkFlagRequired("image")
	_ = cmd.MarkFlagRequired("inodes")
	cmd.MarkFlagsMutuallyExclusive("size-kib", "size")
	cmd.MarkFlagsOneRequired("size-kib", "size")
	return cmd
}

// parseSizeKiB converts a human size such as "1MiB" or "512k" to KiB.
func parseSizeKiB(s string) (uint64, error) {
	n, err := units.RAMInBytes(s)
	if err != nil {
		return 0, fmt.Errorf("%w: size %q: %w", errs.ErrIllegalArgument, s, err)
	}
	if n <= 0 || n%1024 != 0 {
		return 0, fmt.Errorf("%w: size %q is not a positive whole number of KiB", errs.ErrSizeOutOfBounds, s)
	}
	return uint64(n / 1024), nil
}

type addOptions struct {
	input  string
	output string
	file   string
}

func newAddCommand(c *rootOptions) *cobra.Command {
	var opts addOptions

	cmd := &cobra.Command{
		Use:   "add --input PATH --output PATH --file PATH",
		Short: "Copy an image and add one host file to its root directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			added, err := filesystem.AppendFile(cmd.Context(), opts.input, opts.output, opts.file, c.options())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s as inode %d (data block %d, %s)\n",
				added.Name, added.Inode, added.DataBlock, units.HumanSize(float64(added.Size)))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.input, "input", "", "Source image")
	flags.StringVar(&opts.output, "output", "", "Image to write; may equal --input")
	flags.StringVar(&opts.file, "file", "", "Host file to add")
	for _, name := range []string{"input", "output", "file"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newLsCommand(c *rootOptions) *cobra.Command {
	var image string

	cmd := &cobra.Command{
		Use:   "ls --image PATH",
		Short: "List the root directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, err := filesystem.OpenFile(cmd.Context(), image, c.options())
			if err != nil {
				return err
			}
			entries, err := fs.List()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TYPE\tINODE\tLINKS\tSIZE\tMODIFIED\tNAME")
			for _, e := range entries {
				typ := "-"
				if e.IsDir {
					typ = "d"
				}
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\t%s\n",
					typ, e.Inode, e.Links, units.HumanSize(float64(e.Size)), e.ModTime.Format("2006-01-02 15:04:05"), e.Name)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&image, "image", "", "Image file")
	_ = cmd.MarkFlagRequired("image")
	return cmd
}

func newCatCommand(c *rootOptions) *cobra.Command {
	var image string

	cmd := &cobra.Command{
		Use:   "cat --image PATH NAME",
		Short: "Print a file stored in the root directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, err := filesystem.OpenFile(cmd.Context(), image, c.options())
			if err != nil {
				return err
			}
			content, err := fs.ReadFile(args[0])
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(content)
			return err
		},
	}

	cmd.Flags().StringVar(&image, "image", "", "Image file")
	_ = cmd.MarkFlagRequired("image")
	return cmd
}

func newCheckCommand(c *rootOptions) *cobra.Command {
	var image string

	cmd := &cobra.Command{
		Use:   "check --image PATH",
		Short: "Verify checksums and allocation state of an image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, err := filesystem.OpenFile(cmd.Context(), image, c.options())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			problems := fs.Check(cmd.Context())
			for _, p := range problems {
				fmt.Fprintln(out, p)
			}
			if len(problems) > 0 {
				return fmt.Errorf("%w: %s has %d problem(s)", errs.ErrCorruptImage, image, len(problems))
			}
			fmt.Fprintf(out, "%s: ok, %s, %d/%d inodes, %d/%d data blocks used\n",
				image, units.BytesSize(float64(fs.Layout.SizeBytes())),
				fs.InodeBitmap.Count(), fs.Layout.InodeCount,
				fs.DataBitmap.Count(), fs.Layout.DataRegionBlocks)
			return nil
		},
	}

	cmd.Flags().StringVar(&image, "image", "", "Image file")
	_ = cmd.MarkFlagRequired("image")
	return cmd
}
