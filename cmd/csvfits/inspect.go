package main

import (
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/csvfits/pkg/compression"
	"github.com/ajitpratap0/csvfits/pkg/errors"
	"github.com/ajitpratap0/csvfits/pkg/formats/fits"
)

func newInspectCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Describe the binary table of a FITS file",
		Long: `Describe the binary table of a FITS file: row count, row width, the
TTYPE/TFORM of every column and the header keywords.

Files ending in .gz, .zst or .lz4 are decompressed on the fly.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.Newf(errors.ErrorTypeUsage, "expected 1 argument (FILE), got %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := setup(cmd); err != nil {
				return err
			}
			desc, err := inspectFile(args[0])
			if err != nil {
				return err
			}
			return printDescription(cmd, desc, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "Output encoding (yaml, json)")
	return cmd
}

func inspectFile(path string) (*fits.Description, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to open file").WithDetail("path", path)
	}
	defer f.Close()

	r, err := compression.NewReader(f, compression.DetectAlgorithm(path))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	file, err := fits.Read(r)
	if err != nil {
		return nil, err
	}
	desc := file.Describe()
	return &desc, nil
}

func printDescription(cmd *cobra.Command, desc *fits.Description, output string) error {
	out := cmd.OutOrStdout()
	switch output {
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(desc); err != nil {
			return errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode description")
		}
		return enc.Close()
	case "json":
		data, err := json.MarshalIndent(desc, "", "  ")
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode description")
		}
		_, err = out.Write(append(data, '\n'))
		return err
	default:
		return errors.Newf(errors.ErrorTypeUsage, "unknown output encoding %q", output)
	}
}
