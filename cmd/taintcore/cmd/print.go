package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/viant/afs"

	"github.com/coldtrace/taintcore/internal/pkg/label"
	"github.com/coldtrace/taintcore/internal/pkg/leafset"
	"github.com/coldtrace/taintcore/internal/pkg/taintconfig"
	"github.com/coldtrace/taintcore/internal/pkg/tree"
	"github.com/coldtrace/taintcore/pkg/taintcore"
)

// loadConfiguration downloads url (any scheme afs.Service understands:
// file://, mem://, ...) and parses it as a Configuration. An empty url
// yields the zero-value Configuration, whose empty allow-lists reject
// every source kind, sink kind and Via feature — callers pass --config
// to model anything nontrivial.
func loadConfiguration(ctx context.Context, fs afs.Service, url string) (taintcore.Configuration, error) {
	if url == "" {
		return taintcore.Configuration{}, nil
	}
	raw, err := fs.DownloadWithURL(ctx, url)
	if err != nil {
		return taintcore.Configuration{}, fmt.Errorf("reading configuration %s: %w", url, err)
	}
	return taintconfig.Parse(raw)
}

func loadSource(ctx context.Context, fs afs.Service, url string) (string, error) {
	raw, err := fs.DownloadWithURL(ctx, url)
	if err != nil {
		return "", fmt.Errorf("reading model source %s: %w", url, err)
	}
	return string(raw), nil
}

// fprintModel renders one callable's published model to w, walking each
// of its three taint trees root by root with tree.Fold.
func fprintModel(w io.Writer, name string, m taintcore.Model) {
	fmt.Fprintf(w, "%s  mode=%d obscure=%v\n", name, m.Mode, m.IsObscure)
	fprintEnvironment(w, "  sink  ", m.SinkTaint)
	fprintEnvironment(w, "  tito  ", m.TaintInTaintOut)
	fprintEnvironment(w, "  source", m.SourceTaint)
}

func fprintEnvironment(w io.Writer, prefix string, e taintcore.Environment) {
	for _, r := range e.Roots() {
		tree.Fold(e.At(r), struct{}{}, func(_ struct{}, path label.Path, tip leafset.LeafSet) struct{} {
			if tip.IsEmpty() {
				return struct{}{}
			}
			fmt.Fprintf(w, "%s %s%s: %s\n", prefix, r.String(), path.String(), tip.String())
			return struct{}{}
		})
	}
}
