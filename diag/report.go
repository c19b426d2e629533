package diag

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
)

// WriteTable renders the per-flow loss statistics as a text table, one
// row per (source, destination) pair, with an optional per-reason drop
// breakdown appended.
func WriteTable(w io.Writer, reports []FlowReport) {
	fmt.Fprintln(w, "=== Per-Flow Link Loss Statistics (Endpoint-to-Endpoint) ===")
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Flow (Source -> Dest)\tTx Pkts\tRx Pkts\tRx Drop\tLoss %")
	for _, r := range reports {
		fmt.Fprintf(tw, "%s -> %s\t%d\t%d\t%d\t%.1f%%\n",
			r.Key.Src, r.Key.Dst,
			r.Counters.TxPackets, r.Counters.RxPackets, r.Counters.RxDropped,
			r.LossRatio,
		)
	}
	tw.Flush()

	for _, r := range reports {
		if len(r.Counters.DropsByReason) == 0 {
			continue
		}
		labels := make([]string, 0, len(r.Counters.DropsByReason))
		for label := range r.Counters.DropsByReason {
			labels = append(labels, label)
		}
		sort.Strings(labels)

		parts := make([]string, 0, len(labels))
		for _, label := range labels {
			parts = append(parts, fmt.Sprintf("%s=%d", label, r.Counters.DropsByReason[label]))
		}
		fmt.Fprintf(w, "  drops %s -> %s: %s\n", r.Key.Src, r.Key.Dst, strings.Join(parts, " "))
	}
}
