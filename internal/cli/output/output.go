package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/mattn/go-isatty"
)

func DefaultFormat() string {
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return "table"
	}
	return "json"
}

func Print(payload map[string]any, format string, quiet bool) error {
	return Fprint(os.Stdout, payload, format, quiet)
}

func Fprint(w io.Writer, payload map[string]any, format string, quiet bool) error {
	if quiet {
		format = "quiet"
	}
	format = strings.TrimSpace(strings.ToLower(format))
	if format == "" {
		format = DefaultFormat()
	}

	switch format {
	case "json":
		return printJSON(w, payload)
	case "table":
		return printTable(w, payload)
	case "plain":
		return printPlain(w, payload)
	case "quiet":
		return printQuiet(w, payload)
	default:
		return errors.New("invalid --format value")
	}
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func printTable(w io.Writer, payload map[string]any) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	switch {
	case hasKey(payload, "paragraphs_types"):
		fmt.Fprintln(tw, "ID\tLABEL\tINSTANCES\tCREATED")
		for _, row := range toObjectSlice(payload["paragraphs_types"]) {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
				str(row["id"]), str(row["label"]), str(row["instances"]), str(row["created"]))
		}
	case hasKey(payload, "usages"):
		fmt.Fprintln(tw, "KIND\tID\tLABEL\tURL")
		for _, row := range toObjectSlice(payload["usages"]) {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
				str(row["kind"]), str(row["id"]), str(row["label"]), str(row["url"]))
		}
	case hasKey(payload, "webhooks"):
		fmt.Fprintln(tw, "ID\tURL\tEVENTS\tACTIVE")
		for _, row := range toObjectSlice(payload["webhooks"]) {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
				str(row["id"]), str(row["url"]), strList(row["events"]), str(row["active"]))
		}
	case hasKey(payload, "truncated_tables"):
		fmt.Fprintln(tw, "TYPE\tINSTANCES\tBASE_ROWS\tFIELD_ROWS\tREVISION_ROWS\tTRUNCATED")
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			str(payload["type"]), str(payload["instances"]), str(payload["base_rows"]),
			str(payload["field_data_rows"]), str(payload["revision_rows"]), strList(payload["truncated_tables"]))
	default:
		return printJSON(w, payload)
	}
	return tw.Flush()
}

func printPlain(w io.Writer, payload map[string]any) error {
	switch {
	case hasKey(payload, "paragraphs_types"):
		for _, row := range toObjectSlice(payload["paragraphs_types"]) {
			fmt.Fprintf(w, "%s %s\n", str(row["id"]), str(row["instances"]))
		}
	case hasKey(payload, "usages"):
		for _, row := range toObjectSlice(payload["usages"]) {
			fmt.Fprintf(w, "%s/%s %s\n", str(row["kind"]), str(row["id"]), str(row["label"]))
		}
	case hasKey(payload, "webhooks"):
		for _, row := range toObjectSlice(payload["webhooks"]) {
			fmt.Fprintf(w, "%s %s\n", str(row["id"]), str(row["url"]))
		}
	case hasKey(payload, "flushed"):
		fmt.Fprintf(w, "flushed %s\n", strList(payload["flushed"]))
	case hasKey(payload, "invalidated"):
		fmt.Fprintf(w, "invalidated %s\n", strList(payload["invalidated"]))
	case hasKey(payload, "truncated_tables"):
		fmt.Fprintf(w, "%s instances=%s base_rows=%s\n",
			str(payload["type"]), str(payload["instances"]), str(payload["base_rows"]))
	default:
		return printJSON(w, payload)
	}
	return nil
}

func printQuiet(w io.Writer, payload map[string]any) error {
	switch {
	case hasKey(payload, "paragraphs_types"):
		for _, row := range toObjectSlice(payload["paragraphs_types"]) {
			fmt.Fprintln(w, str(row["id"]))
		}
	case hasKey(payload, "usages"):
		for _, row := range toObjectSlice(payload["usages"]) {
			fmt.Fprintln(w, str(row["url"]))
		}
	case hasKey(payload, "webhooks"):
		for _, row := range toObjectSlice(payload["webhooks"]) {
			fmt.Fprintln(w, str(row["id"]))
		}
	default:
		if id, ok := payload["id"]; ok {
			fmt.Fprintln(w, str(id))
		}
	}
	return nil
}

func hasKey(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}

func toObjectSlice(v any) []map[string]any {
	in, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(in))
	for _, item := range in {
		if row, ok := item.(map[string]any); ok {
			out = append(out, row)
		}
	}
	return out
}

func strList(v any) string {
	in, ok := v.([]any)
	if !ok {
		return str(v)
	}
	parts := make([]string, 0, len(in))
	for _, item := range in {
		parts = append(parts, str(item))
	}
	return strings.Join(parts, ",")
}

func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}
