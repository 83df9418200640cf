package main

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"hydromet/internal/client"
	"hydromet/internal/domain"
)

// resolveKind accepts a kind name ("hres") or its collection path
// ("storms/hres-data").
func resolveKind(arg string) (domain.FileKind, error) {
	if kind := domain.FileKind(strings.ToLower(arg)); kind.Valid() {
		return kind, nil
	}
	path := "/" + strings.Trim(arg, "/")
	for kind, p := range domain.ResourcePaths {
		if p == path {
			return kind, nil
		}
	}
	names := make([]string, len(domain.FileKinds))
	for i, k := range domain.FileKinds {
		names[i] = string(k)
	}
	return "", fmt.Errorf("unknown resource %q (want one of %s)", arg, strings.Join(names, ", "))
}

func newListCmd() *cobra.Command {
	var (
		params  client.ListParams
		filters []string
	)
	cmd := &cobra.Command{
		Use:   "list <resource>",
		Short: "List data-file records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := resolveKind(args[0])
			if err != nil {
				return err
			}
			if params.Filters, err = parseFilters(filters); err != nil {
				return err
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			files, err := c.DataFiles(kind)
			if err != nil {
				return err
			}
			page, err := files.List(cmd.Context(), params)
			if err != nil {
				return err
			}
			if output == "json" {
				return printJSON(cmd.OutOrStdout(), page.Items)
			}
			return printTable(cmd.OutOrStdout(), page)
		},
	}
	cmd.Flags().IntVar(&params.Page, "page", 1, "Page number")
	cmd.Flags().IntVar(&params.Limit, "limit", 10, "Page size")
	cmd.Flags().StringVar(&params.Search, "search", "", "Substring of file name or path")
	cmd.Flags().StringSliceVar(&filters, "filter", nil, "Extra filter as key=value (storm_id, reservoir_id, s2s_id, data_type, start_date, end_date)")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <resource> <id>",
		Short: "Delete a data-file record and its stored object",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := resolveKind(args[0])
			if err != nil {
				return err
			}
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid record ID %q", args[1])
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			files, err := c.DataFiles(kind)
			if err != nil {
				return err
			}
			if err := files.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s %d\n", kind, id)
			return nil
		},
	}
}

func parseFilters(raw []string) (url.Values, error) {
	q := url.Values{}
	for _, f := range raw {
		key, value, ok := strings.Cut(f, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q: want key=value", f)
		}
		q.Add(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	return q, nil
}

func printTable(w io.Writer, page *client.Page[client.DataFile]) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCONTEXT\tFILE\tSIZE\tPATH")
	for _, f := range page.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", f.ID, describeContext(f.DataFile), f.FileName, f.FileSize, f.FilePath)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "page %d of %d (%d total)\n", page.Meta.Page, page.Meta.TotalPages, page.Meta.Total)
	return err
}

func describeContext(f domain.DataFile) string {
	var parts []string
	if f.StormID != nil {
		parts = append(parts, fmt.Sprintf("storm=%d", *f.StormID))
	}
	if f.ReservoirID != nil {
		parts = append(parts, fmt.Sprintf("reservoir=%d", *f.ReservoirID))
	}
	if f.S2SID != nil {
		parts = append(parts, fmt.Sprintf("s2s=%d", *f.S2SID))
	}
	if f.IssuedTime != nil {
		parts = append(parts, "issued="+domain.FormatIssuedHour(*f.IssuedTime))
	}
	if f.DataType != "" {
		parts = append(parts, f.DataType)
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ")
}
