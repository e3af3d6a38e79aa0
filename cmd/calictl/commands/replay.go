package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/hpctrace/caliper/internal/aggregate"
	"github.com/hpctrace/caliper/internal/attribute"
	"github.com/hpctrace/caliper/internal/snapshot"
	"github.com/hpctrace/caliper/pkg/caliper"
	"github.com/hpctrace/caliper/pkg/variant"
)

const (
	replayCmdUse   = "replay <fixture.json>"
	replayCmdShort = "Fold a JSON snapshot fixture through an AggregationDB and print it"
)

// ErrEmptyFixture is returned when a fixture file decodes to zero records.
var ErrEmptyFixture = errors.New("fixture contains no records")

// NewReplayCommand creates the replay subcommand: it feeds each JSON object
// in the fixture array through caliper.Core as one Set per key followed by
// one PushSnapshot per object, lets a channel-bound AggregationDB fold them,
// and renders the
// flushed summary as a table (grounded on the teacher's
// cmd/codefang/commands/render.go cobra shape and its internal/analyzers
// use of jedib0t/go-pretty for report tables).
func NewReplayCommand() *cobra.Command {
	return &cobra.Command{
		Use:   replayCmdUse,
		Short: replayCmdShort,
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runReplay(args[0], os.Stdout)
		},
	}
}

func runReplay(path string, out *os.File) error {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied fixture path
	if err != nil {
		return fmt.Errorf("calictl: read fixture: %w", err)
	}

	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("calictl: parse fixture: %w", err)
	}

	if len(records) == 0 {
		return ErrEmptyFixture
	}

	core := caliper.New(nil)
	attrs, keyAttrs, aggAttrs := declareAttributes(core, records)

	db := aggregate.New(core.Tree(), nil, keyAttrs, aggAttrs)
	ch := core.CreateChannel("replay", nil)
	ch.Events().ProcessSnapshot.Add(func(_ uint32, rec *snapshot.Record) {
		droppedBefore := db.Dropped()
		db.Process(rec)

		if db.Dropped() > droppedBefore {
			core.RecordDrop()
		}
	})

	handle := core.AcquireThreadScope()

	for _, rec := range records {
		applyRecord(core, handle, attrs, rec)
		core.PushSnapshot(handle, ch, caliper.ScopeMaskThread, nil)
	}

	core.Flush(ch)

	var flushed []aggregate.FlushedRecord
	db.Flush(func(fr aggregate.FlushedRecord) { flushed = append(flushed, fr) })

	renderFlushed(out, core, keyAttrs, aggAttrs, flushed)

	fmt.Fprintf(out, "\n%s records folded into %s distinct keys (%s dropped, %s skipped-key)\n",
		humanize.Comma(int64(len(records))),
		humanize.Comma(int64(len(flushed))),
		humanize.Comma(db.Dropped()),
		humanize.Comma(db.SkippedKey()),
	)

	return nil
}

// declareAttributes creates one STORE_AS_VALUE attribute per distinct JSON
// key seen across records, typed from the first record that carries it:
// numbers become aggregatable Double attributes, everything else becomes a
// key (string or bool) attribute.
func declareAttributes(core *caliper.Core, records []map[string]any) (attrs map[string]attribute.Attribute, keyAttrs, aggAttrs []uint32) {
	attrs = make(map[string]attribute.Attribute)

	var names []string

	seen := make(map[string]bool)

	for _, rec := range records {
		for name := range rec {
			if !seen[name] {
				seen[name] = true

				names = append(names, name)
			}
		}
	}

	sort.Strings(names)

	for _, name := range names {
		kind, props := inferAttribute(records, name)
		attr := core.CreateAttribute(name, kind, props)
		attrs[name] = attr

		if props.Has(attribute.PropAggregatable) {
			aggAttrs = append(aggAttrs, attr.ID())
		} else {
			keyAttrs = append(keyAttrs, attr.ID())
		}
	}

	return attrs, keyAttrs, aggAttrs
}

func inferAttribute(records []map[string]any, name string) (variant.Kind, attribute.Properties) {
	for _, rec := range records {
		v, ok := rec[name]
		if !ok {
			continue
		}

		switch v.(type) {
		case float64:
			return variant.KindDouble, attribute.PropASValue | attribute.PropAggregatable
		case bool:
			return variant.KindBool, attribute.PropASValue
		default:
			return variant.KindString, attribute.PropASValue
		}
	}

	return variant.KindString, attribute.PropASValue
}

func applyRecord(core *caliper.Core, handle *caliper.ThreadHandle, attrs map[string]attribute.Attribute, rec map[string]any) {
	for name, raw := range rec {
		attr, ok := attrs[name]
		if !ok {
			continue
		}

		v, ok := toVariant(attr, raw)
		if !ok {
			continue
		}

		core.Set(handle, attr, v)
	}
}

func toVariant(attr attribute.Attribute, raw any) (variant.Variant, bool) {
	switch attr.Type() {
	case variant.KindDouble:
		f, ok := raw.(float64)
		if !ok {
			return variant.Invalid, false
		}

		return variant.NewDouble(f), true
	case variant.KindBool:
		b, ok := raw.(bool)
		if !ok {
			return variant.Invalid, false
		}

		return variant.NewBool(b), true
	case variant.KindString:
		s, ok := raw.(string)
		if !ok {
			return variant.Invalid, false
		}

		return variant.NewString(s), true
	default:
		return variant.Invalid, false
	}
}

func renderFlushed(out *os.File, core *caliper.Core, keyAttrs, aggAttrs []uint32, flushed []aggregate.FlushedRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(out)

	header := table.Row{}
	for _, id := range keyAttrs {
		header = append(header, core.GetAttribute(id).Name())
	}

	for _, id := range aggAttrs {
		name := core.GetAttribute(id).Name()
		header = append(header, name+".min", name+".max", name+".avg", name+".count")
	}

	header = append(header, "fold_count")
	t.AppendHeader(header)

	for _, fr := range flushed {
		row := table.Row{}

		for _, id := range keyAttrs {
			row = append(row, formatImmediate(fr.Immediates[id]))
		}

		for _, id := range aggAttrs {
			s, ok := fr.Kernels[id]
			if !ok {
				row = append(row, "-", "-", "-", "-")

				continue
			}

			row = append(row, s.Min, s.Max, s.Avg, s.Count)
		}

		row = append(row, fr.Count)
		t.AppendRow(row)
	}

	t.Render()
}

func formatImmediate(v variant.Variant) string {
	if s, ok := v.Str(); ok {
		return s
	}

	if b, ok := v.Bool(); ok {
		return fmt.Sprintf("%t", b)
	}

	return "-"
}
