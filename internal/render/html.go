// Package render serializes an encoded trader graph to a standalone
// interactive HTML document backed by vis-network with a force-directed
// (ForceAtlas2) layout.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"trader-bubblemap-go/internal/bubblemap"
)

// DefaultFilename is used when the caller does not name the artifact.
const DefaultFilename = "bubblemap.html"

type visNode struct {
	ID    string  `json:"id"`
	Label string  `json:"label"`
	Title string  `json:"title"`
	Size  float64 `json:"size"`
	Color string  `json:"color"`
	Shape string  `json:"shape"`
}

type visEdge struct {
	From  string  `json:"from"`
	To    string  `json:"to"`
	Value float64 `json:"value"`
}

var pageTemplate = template.Must(template.New("bubblemap").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Top Traders Bubblemap</title>
    <script src="https://unpkg.com/vis-network@9.1.9/standalone/umd/vis-network.min.js"></script>
    <style>
        body { margin: 0; background-color: #222222; }
        #bubblemap { width: 100%; height: 800px; background-color: #222222; }
    </style>
</head>
<body>
    <div id="bubblemap"></div>
    <script>
        var nodes = new vis.DataSet({{.Nodes}});
        var edges = new vis.DataSet({{.Edges}});
        var container = document.getElementById("bubblemap");
        var options = {
            nodes: {
                font: { color: "white" }
            },
            edges: {
                color: { color: "#848484" },
                smooth: false
            },
            physics: {
                solver: "forceAtlas2Based",
                forceAtlas2Based: {
                    gravitationalConstant: -50,
                    centralGravity: 0.01,
                    springLength: 100,
                    springConstant: 0.08
                },
                stabilization: { iterations: 200 }
            },
            interaction: { hover: true, tooltipDelay: 100 }
        };
        new vis.Network(container, { nodes: nodes, edges: edges }, options);
    </script>
</body>
</html>
`))

// Render produces the HTML document for the bubble map. A graph with no
// edges still renders, as isolated nodes.
func Render(bm *bubblemap.BubbleMap) ([]byte, error) {
	nodes := make([]visNode, 0, bm.Graph.NodeCount())
	for _, addr := range bm.Graph.Nodes() {
		visual := bm.Visuals[addr]
		nodes = append(nodes, visNode{
			ID:    addr,
			Label: visual.Label,
			Title: visual.Title,
			Size:  visual.Size,
			Color: visual.Color,
			Shape: "dot",
		})
	}

	edges := make([]visEdge, 0, bm.Graph.EdgeCount())
	for _, e := range bm.Graph.Edges() {
		edges = append(edges, visEdge{From: e.Source, To: e.Target, Value: e.Weight})
	}

	nodesJSON, err := json.Marshal(nodes)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal nodes: %w", err)
	}
	edgesJSON, err := json.Marshal(edges)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal edges: %w", err)
	}

	var buf bytes.Buffer
	data := struct {
		Nodes template.JS
		Edges template.JS
	}{
		Nodes: template.JS(nodesJSON),
		Edges: template.JS(edgesJSON),
	}
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render bubblemap template: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteHTML renders the bubble map and writes it to filename under baseDir,
// creating the directory if needed. An empty baseDir writes to the current
// directory. Returns the resolved output path.
func WriteHTML(bm *bubblemap.BubbleMap, filename, baseDir string) (string, error) {
	if filename == "" {
		filename = DefaultFilename
	}

	outputPath := filename
	if baseDir != "" {
		if err := os.MkdirAll(baseDir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create output directory %s: %w", baseDir, err)
		}
		outputPath = filepath.Join(baseDir, filename)
	}

	html, err := Render(bm)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(outputPath, html, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", outputPath, err)
	}
	return outputPath, nil
}
