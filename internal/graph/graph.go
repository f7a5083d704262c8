// Package graph renders the stack's resource dependencies as DOT or Mermaid.
package graph

import (
	"io"
	"sort"
	"strings"

	"github.com/emicklei/dot"

	perftest "github.com/lex00/perftest-infra-go"
)

// Format specifies the output format for the graph.
type Format string

const (
	// FormatDOT outputs Graphviz DOT format.
	FormatDOT Format = "dot"
	// FormatMermaid outputs Mermaid format for GitHub/markdown rendering.
	FormatMermaid Format = "mermaid"
)

// Generator creates dependency graphs from stack resources.
type Generator struct {
	// Format specifies the output format (dot or mermaid). Defaults to dot.
	Format Format

	// ClusterByType groups resources by AWS service.
	ClusterByType bool
}

// Generate creates a dependency graph and writes it to w.
func (g *Generator) Generate(resources []perftest.StackResource, w io.Writer) error {
	graph := g.buildGraph(resources)

	var output string
	if g.Format == FormatMermaid {
		output = dot.MermaidGraph(graph, dot.MermaidTopToBottom)
	} else {
		output = graph.String()
	}

	_, err := io.WriteString(w, output)
	return err
}

// GenerateString is a convenience method that returns the graph as a string.
func (g *Generator) GenerateString(resources []perftest.StackResource) (string, error) {
	var sb strings.Builder
	if err := g.Generate(resources, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (g *Generator) buildGraph(resources []perftest.StackResource) *dot.Graph {
	graph := dot.NewGraph(dot.Directed)
	graph.Attr("rankdir", "TB")

	graph.NodeInitializer(func(n dot.Node) {
		n.Attr("shape", "box")
		n.Attr("fontname", "Arial")
	})
	graph.EdgeInitializer(func(e dot.Edge) {
		e.Attr("fontname", "Arial")
		e.Attr("fontsize", "10")
	})

	if g.ClusterByType {
		g.addClusteredNodes(graph, resources)
	} else {
		for _, res := range resources {
			addNode(graph, res)
		}
	}

	known := make(map[string]bool, len(resources))
	for _, res := range resources {
		known[res.Name] = true
	}

	for _, res := range resources {
		attrs := make(map[string]bool, len(res.AttrDependencies))
		for _, a := range res.AttrDependencies {
			attrs[a] = true
		}
		for _, dep := range res.Dependencies {
			if !known[dep] {
				continue
			}
			e := graph.Edge(graph.Node(res.Name), graph.Node(dep))
			if attrs[dep] {
				e.Attr("color", "blue")
			}
		}
	}

	return graph
}

func addNode(g *dot.Graph, res perftest.StackResource) {
	n := g.Node(res.Name)
	n.Label(res.Name + "\\n[" + res.Type + "]")
	if res.DeletionPolicy == perftest.DeletionPolicyRetain {
		n.Attr("style", "bold")
	}
}

// addClusteredNodes adds resource nodes grouped by AWS service.
func (g *Generator) addClusteredNodes(graph *dot.Graph, resources []perftest.StackResource) {
	byService := make(map[string][]perftest.StackResource)
	for _, res := range resources {
		service := extractService(res.Type)
		byService[service] = append(byService[service], res)
	}

	services := make([]string, 0, len(byService))
	for s := range byService {
		services = append(services, s)
	}
	sort.Strings(services)

	for _, service := range services {
		members := byService[service]
		if len(members) == 1 {
			addNode(graph, members[0])
			continue
		}
		cluster := graph.Subgraph("cluster_"+service, dot.ClusterOption{})
		cluster.Attr("label", service)
		cluster.Attr("style", "rounded")
		cluster.Attr("bgcolor", "lightyellow")
		for _, res := range members {
			addNode(cluster, res)
		}
	}
}

// extractService returns the service segment of a CloudFormation type,
// e.g. "AWS::IAM::Role" -> "IAM".
func extractService(cfType string) string {
	parts := strings.Split(cfType, "::")
	if len(parts) == 3 {
		return parts[1]
	}
	return "Other"
}
