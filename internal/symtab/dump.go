package symtab

import (
	"fmt"
	"io"
	"text/tabwriter"

	"toylang/internal/value"
)

// Entry is the serialisable view of one occupied slot.
type Entry struct {
	Slot  int    `json:"slot" yaml:"slot"`
	Key   int32  `json:"key" yaml:"key"`
	Name  string `json:"name" yaml:"name"`
	Kind  string `json:"kind" yaml:"kind"`
	Type  string `json:"type" yaml:"type"`
	Value string `json:"value" yaml:"value"`
	Args  int    `json:"args,omitempty" yaml:"args,omitempty"`
}

// Snapshot is the serialisable view of a whole table.
type Snapshot struct {
	Capacity int     `json:"capacity" yaml:"capacity"`
	Size     int     `json:"size" yaml:"size"`
	Entries  []Entry `json:"entries" yaml:"entries"`
}

// Snapshot captures the occupied slots in slot order.
func (t *Table) Snapshot() Snapshot {
	snap := Snapshot{Capacity: t.Capacity(), Size: t.Size(), Entries: []Entry{}}
	for i := range t.slots {
		if !t.slots[i].occupied {
			continue
		}
		b := &t.slots[i].binding
		snap.Entries = append(snap.Entries, Entry{
			Slot:  i,
			Key:   b.Key,
			Name:  b.Name,
			Kind:  b.Kind.String(),
			Type:  b.Value.Kind().String(),
			Value: b.Value.String(),
			Args:  b.ArgCount(),
		})
	}
	return snap
}

// Fprint writes the table in the classic symbol dump layout:
// one row per occupied slot with pos, key, name, type and value columns.
func (t *Table) Fprint(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Symbol Table:")
	fmt.Fprintln(tw, "pos\tkey\tname\ttype\tvalue\t")
	for i := range t.slots {
		if !t.slots[i].occupied {
			continue
		}
		b := &t.slots[i].binding
		fmt.Fprintf(tw, "[%2d]\t%d\t%s\t%s\t%s\t\n", i, b.Key, b.Name, b.Value.Kind(), formatCell(b.Value))
	}
	return tw.Flush()
}

func formatCell(v value.Value) string {
	if n, ok := v.AsInt(); ok {
		return fmt.Sprintf("%d", n)
	}
	if f, ok := v.AsFloat(); ok {
		return fmt.Sprintf("%f", f)
	}
	return "0"
}
