package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"hydromet/internal/client"
	"hydromet/internal/domain"
	"hydromet/internal/upload"
)

// uploadFlags are shared by every upload subcommand; each one registers only
// the flags it reads.
type uploadFlags struct {
	file        string
	stormID     int64
	issuedTime  string
	reservoirID int64
	fromTime    string
	toTime      string
	addedTime   string
	s2sID       int64
	path        string
	dataType    string
	issuedDate  string
}

func newUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload a data file, or record one from metadata",
	}
	for _, kind := range []domain.FileKind{domain.FileKindNWP, domain.FileKindHRES, domain.FileKindBestTrack} {
		cmd.AddCommand(newStormUploadCmd(kind))
	}
	cmd.AddCommand(newReservoirUploadCmd())
	cmd.AddCommand(newS2SUploadCmd())
	cmd.AddCommand(newGenericUploadCmd())
	cmd.AddCommand(newLegacyUploadCmd())
	return cmd
}

func newStormUploadCmd(kind domain.FileKind) *cobra.Command {
	var f uploadFlags
	cmd := &cobra.Command{
		Use:   string(kind),
		Short: fmt.Sprintf("Upload a %s file for a storm", kind.StormDataType()),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			issued, err := parseTime("issued-time", f.issuedTime)
			if err != nil {
				return err
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			s, err := c.StormStrategy(kind, client.StormContext{StormID: f.stormID, IssuedTime: issued})
			if err != nil {
				return err
			}
			return runStrategy(cmd, s, f.file)
		},
	}
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "Path of the file to upload")
	cmd.Flags().Int64Var(&f.stormID, "storm-id", 0, "Storm ID")
	cmd.Flags().StringVar(&f.issuedTime, "issued-time", "", "Forecast issue time (RFC 3339)")
	_ = cmd.MarkFlagRequired("storm-id")
	_ = cmd.MarkFlagRequired("issued-time")
	if kind == domain.FileKindBestTrack {
		_ = cmd.MarkFlagRequired("file")
	}
	return cmd
}

func newReservoirUploadCmd() *cobra.Command {
	var f uploadFlags
	cmd := &cobra.Command{
		Use:   string(domain.FileKindReservoirOperation),
		Short: "Upload a reservoir operation file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rc := client.ReservoirContext{}
			if cmd.Flags().Changed("reservoir-id") {
				rc.ReservoirID = &f.reservoirID
			}
			var err error
			if rc.FromTime, err = optionalTime("from-time", f.fromTime); err != nil {
				return err
			}
			if rc.ToTime, err = optionalTime("to-time", f.toTime); err != nil {
				return err
			}
			if rc.AddedTime, err = optionalTime("added-time", f.addedTime); err != nil {
				return err
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			s, err := c.ReservoirStrategy(rc)
			if err != nil {
				return err
			}
			return runStrategy(cmd, s, f.file)
		},
	}
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "Path of the file to upload")
	cmd.Flags().Int64Var(&f.reservoirID, "reservoir-id", 0, "Reservoir ID")
	cmd.Flags().StringVar(&f.fromTime, "from-time", "", "Operation window start")
	cmd.Flags().StringVar(&f.toTime, "to-time", "", "Operation window end")
	cmd.Flags().StringVar(&f.addedTime, "added-time", "", "Time the file was added")
	return cmd
}

func newS2SUploadCmd() *cobra.Command {
	var f uploadFlags
	cmd := &cobra.Command{
		Use:   string(domain.FileKindS2S),
		Short: "Upload a sub-seasonal to seasonal forecast file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sc := client.S2SContext{S2SID: f.s2sID}
			added, err := optionalTime("added-time", f.addedTime)
			if err != nil {
				return err
			}
			if added != nil {
				sc.AddedTime = *added
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			s, err := c.S2SStrategy(sc)
			if err != nil {
				return err
			}
			return runStrategy(cmd, s, f.file)
		},
	}
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "Path of the file to upload")
	cmd.Flags().Int64Var(&f.s2sID, "s2s-id", 0, "S2S forecast ID")
	cmd.Flags().StringVar(&f.addedTime, "added-time", "", "Time the file was added (default now)")
	_ = cmd.MarkFlagRequired("s2s-id")
	return cmd
}

func newGenericUploadCmd() *cobra.Command {
	var f uploadFlags
	cmd := &cobra.Command{
		Use:   "generic",
		Short: "Upload a file under an arbitrary key prefix without recording it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			return runStrategy(cmd, c.GenericStrategy(client.GenericContext{Path: f.path}), f.file)
		},
	}
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "Path of the file to upload")
	cmd.Flags().StringVar(&f.path, "path", "uploads", "Key prefix")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newLegacyUploadCmd() *cobra.Command {
	var f uploadFlags
	cmd := &cobra.Command{
		Use:   "legacy",
		Short: "Upload through the API in a single request (deprecated)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fields, err := f.legacyFields(cmd)
			if err != nil {
				return err
			}
			file, err := upload.OpenFile(f.file)
			if err != nil {
				return err
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			res, err := c.LegacyUpload(cmd.Context(), file, fields)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "Path of the file to upload")
	cmd.Flags().StringVar(&f.dataType, "data-type", "", "NWP, HRES, BESTTRACK, RESERVOIR or S2S")
	cmd.Flags().StringVar(&f.path, "path", "", "Key prefix override")
	cmd.Flags().Int64Var(&f.stormID, "storm-id", 0, "Storm ID")
	cmd.Flags().StringVar(&f.issuedDate, "issued-date", "", "Issued hour (YYYYMMDDHH)")
	cmd.Flags().Int64Var(&f.reservoirID, "reservoir-id", 0, "Reservoir ID")
	cmd.Flags().StringVar(&f.fromTime, "from-time", "", "Operation window start")
	cmd.Flags().StringVar(&f.toTime, "to-time", "", "Operation window end")
	cmd.Flags().Int64Var(&f.s2sID, "s2s-id", 0, "S2S forecast ID")
	cmd.Flags().StringVar(&f.addedTime, "added-time", "", "S2S added time")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("data-type")
	return cmd
}

func (f *uploadFlags) legacyFields(cmd *cobra.Command) (client.LegacyFields, error) {
	fields := client.LegacyFields{
		DataType:   strings.ToUpper(f.dataType),
		Path:       f.path,
		IssuedDate: f.issuedDate,
	}
	if cmd.Flags().Changed("storm-id") {
		fields.StormID = &f.stormID
	}
	if cmd.Flags().Changed("reservoir-id") {
		fields.ReservoirID = &f.reservoirID
	}
	if cmd.Flags().Changed("s2s-id") {
		fields.S2SID = &f.s2sID
	}
	var err error
	if fields.FromTime, err = optionalTime("from-time", f.fromTime); err != nil {
		return fields, err
	}
	if fields.ToTime, err = optionalTime("to-time", f.toTime); err != nil {
		return fields, err
	}
	if fields.AddedTime, err = optionalTime("added-time", f.addedTime); err != nil {
		return fields, err
	}
	return fields, nil
}

// runStrategy runs one pipeline attempt, drawing progress on stderr. An
// empty path takes the metadata-only branch.
func runStrategy(cmd *cobra.Command, s upload.Strategy, path string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}

	var file *upload.File
	if path != "" {
		if file, err = upload.OpenFile(path); err != nil {
			return err
		}
	}

	p := upload.NewPipeline(upload.NewHTTPTransfer(nil), upload.WithLogger(logger))
	var observe upload.Observer
	if file != nil {
		bar := newProgressBar(cmd.ErrOrStderr(), file.Name)
		observe = bar.Observe
		defer bar.Done()
	}

	res, err := p.Run(cmd.Context(), file, s, observe)
	if err != nil {
		return err
	}
	return printRaw(cmd.OutOrStdout(), res.Body)
}

func parseTime(flag, raw string) (time.Time, error) {
	t, err := domain.ParseTimestamp(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %w", flag, err)
	}
	return t, nil
}

func optionalTime(flag, raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, err := parseTime(flag, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printRaw(w io.Writer, raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		_, err = fmt.Fprintln(w, string(raw))
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}
