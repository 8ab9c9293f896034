package assembly

import (
	"fmt"
	"io"
	"strings"

	"github.com/emicklei/dot"
)

// Format selects the graph output syntax.
type Format string

const (
	FormatDOT     Format = "dot"
	FormatMermaid Format = "mermaid"
)

// ParseFormat converts a raw string into a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatDOT, FormatMermaid:
		return f, nil
	case "":
		return FormatDOT, nil
	default:
		return "", fmt.Errorf("invalid graph format %q", s)
	}
}

// WriteGraph renders the plan as a dependency graph, edges pointing from a step to
// the steps it depends on.
func (p *Plan) WriteGraph(w io.Writer, format Format) error {
	g := dot.NewGraph(dot.Directed)
	g.Attr("rankdir", "TB")
	g.NodeInitializer(func(n dot.Node) {
		n.Attr("shape", "box")
		n.Attr("fontname", "Arial")
	})

	for _, step := range p.steps {
		g.Node(step.Name)
	}
	for _, step := range p.steps {
		for _, dep := range step.DependsOn {
			if _, ok := p.index[dep]; !ok {
				continue
			}
			g.Edge(g.Node(step.Name), g.Node(dep))
		}
	}

	var out string
	switch format {
	case FormatMermaid:
		out = dot.MermaidGraph(g, dot.MermaidTopToBottom)
	default:
		out = g.String()
	}
	_, err := io.WriteString(w, out)
	return err
}

// GraphString is WriteGraph into a string.
func (p *Plan) GraphString(format Format) (string, error) {
	var sb strings.Builder
	if err := p.WriteGraph(&sb, format); err != nil {
		return "", err
	}
	return sb.String(), nil
}
