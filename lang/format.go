package lang

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/vmihailenco/msgpack/v5"
)

// ToMap converts the document to a map of plain Go values for encoders.
func (d *Document) ToMap() map[string]any {
	segments := make([]any, 0, len(d.Plain)+len(d.Regions))

	for i, text := range d.Plain {
		segments = append(segments, map[string]any{"plain": text})

		if i < len(d.Regions) {
			r := d.Regions[i]
			segments = append(segments, map[string]any{
				"code": map[string]any{
					"offset":     r.Offset,
					"statements": statementsToList(r.Statements),
				},
			})
		}
	}

	return map[string]any{
		"file":     d.FileID,
		"segments": segments,
	}
}

func statementsToList(stmts []Statement) []any {
	list := make([]any, len(stmts))
	for i, stmt := range stmts {
		toks := make([]any, len(stmt))
		for j, tok := range stmt {
			toks[j] = tokenToMap(tok)
		}

		list[i] = toks
	}

	return list
}

func tokenToMap(tok Token) map[string]any {
	m := map[string]any{
		"kind": tok.Kind.String(),
		"pos":  tok.Pos,
	}

	switch {
	case tok.Kind.IsLiteral():
		m["value"] = tok.Value.Any()

	case tok.Kind == KindBlock:
		m["slot"] = tok.Slot.String()
		m["body"] = statementsToList(tok.Body)

	case tok.Kind == KindGroup:
		m["args"] = statementsToList(tok.Body)

	case tok.Name != "":
		m["name"] = tok.Name
	}

	return m
}

// Print writes an indented tree of the document.
func (d *Document) Print(w io.Writer, indent int) error {
	p := &printer{w: w, indent: indent}

	p.line(0, "document %q", d.FileID)

	for i, text := range d.Plain {
		p.line(1, "plain %q", text)

		if i < len(d.Regions) {
			p.line(1, "code @%d", d.Regions[i].Offset)
			p.statements(2, d.Regions[i].Statements)
		}
	}

	return p.err
}

type printer struct {
	w      io.Writer
	err    error
	indent int
}

func (p *printer) line(depth int, format string, args ...any) {
	if p.err != nil {
		return
	}

	_, p.err = fmt.Fprintf(p.w, "%s"+format+"\n",
		append([]any{strings.Repeat(" ", depth*p.indent)}, args...)...)
}

func (p *printer) statements(depth int, stmts []Statement) {
	for _, stmt := range stmts {
		p.line(depth, "statement")

		for _, tok := range stmt {
			p.token(depth+1, tok)
		}
	}
}

func (p *printer) token(depth int, tok Token) {
	switch {
	case tok.Kind.IsLiteral():
		p.line(depth, "%s %s @%d", tok.Kind, tok.Value, tok.Pos)

	case tok.Kind == KindBlock:
		p.line(depth, "block (%s) @%d", tok.Slot, tok.Pos)
		p.statements(depth+1, tok.Body)

	case tok.Kind == KindGroup:
		p.line(depth, "group @%d", tok.Pos)
		p.statements(depth+1, tok.Body)

	case tok.Name != "":
		p.line(depth, "%s %s @%d", tok.Kind, tok.Name, tok.Pos)

	default:
		p.line(depth, "%q @%d", tok.Kind.String(), tok.Pos)
	}
}

// FormatJSON writes the document as JSON to the writer.
func (d *Document) FormatJSON(_ context.Context, w io.Writer, indent int) error {
	var (
		jsonData []byte
		err      error
	)

	if indent > 0 {
		jsonData, err = json.MarshalIndent(d.ToMap(), "", strings.Repeat(" ", indent))
	} else {
		jsonData, err = json.Marshal(d.ToMap())
	}

	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(jsonData))

	return err
}

// FormatYAML writes the document as YAML to the writer.
func (d *Document) FormatYAML(ctx context.Context, w io.Writer, indent int) error {
	var opts []yaml.EncodeOption
	if indent > 0 {
		opts = append(opts, yaml.Indent(indent))
	} else {
		opts = append(opts, yaml.Flow(true))
	}

	yamlData, err := yaml.MarshalContext(ctx, d.ToMap(), opts...)
	if err != nil {
		return err
	}

	_, err = fmt.Fprint(w, string(yamlData))

	return err
}

// FormatMsgpack writes the document as MessagePack to the writer.
func (d *Document) FormatMsgpack(_ context.Context, w io.Writer) error {
	enc := msgpack.NewEncoder(w)
	enc.SetSortMapKeys(true)

	return enc.Encode(d.ToMap())
}
