// Package causal answers "which downstream KPIs are at risk" over a
// precomputed cluster/causal graph. The graph is read-only input,
// produced offline by the causal-discovery tooling; this package never
// modifies or validates it.
package causal

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/linnemanlabs/herdsight/internal/kpi"
)

// Query defaults. Risk and strength are filter/sort keys only.
const (
	DefaultMinRisk       = 0.05
	DefaultMaxResults    = 10
	DefaultMinStrength   = 0.15
	DefaultMaxPerCluster = 5
)

// Cluster is a precomputed grouping of related KPIs, listed by their
// original display names in the graph file.
type Cluster struct {
	ID   int      `json:"id"`
	KPIs []string `json:"kpis"`
}

// ClusterEdge is a directed cluster-to-cluster causal edge. TargetKPIs
// is already ordered and truncated to relevance by the data source.
type ClusterEdge struct {
	Source     int      `json:"source"`
	Target     int      `json:"target"`
	Strength   float64  `json:"strength"`
	TargetKPIs []string `json:"target_kpis"`
}

// KPIEdge is a directed KPI-to-KPI causal edge with risk in [0,1].
type KPIEdge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Risk   float64 `json:"risk"`
}

type graphFile struct {
	Clusters     []Cluster     `json:"clusters"`
	ClusterEdges []ClusterEdge `json:"cluster_edges"`
	KPIEdges     []KPIEdge     `json:"kpi_edges"`
}

// Graph holds the immutable causal graph. Safe for unsynchronized
// concurrent reads after construction.
type Graph struct {
	clusters      []Cluster
	clusterAlias  [][]string          // cluster KPI names slugified, same order
	edgesByClust  map[int][]ClusterEdge
	edgesBySource map[string][]KPIEdge
}

// Load reads a causal graph JSON file. A missing path yields an empty
// graph (every query returns nothing), not an error.
func Load(path string) (*Graph, error) {
	if path == "" {
		return newGraph(graphFile{}), nil
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return newGraph(graphFile{}), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read causal graph: %w", err)
	}
	var gf graphFile
	if err := json.Unmarshal(raw, &gf); err != nil {
		return nil, fmt.Errorf("parse causal graph: %w", err)
	}
	return newGraph(gf), nil
}

func newGraph(gf graphFile) *Graph {
	g := &Graph{
		clusters:      gf.Clusters,
		edgesByClust:  make(map[int][]ClusterEdge),
		edgesBySource: make(map[string][]KPIEdge),
	}
	for _, c := range gf.Clusters {
		aliases := make([]string, len(c.KPIs))
		for i, name := range c.KPIs {
			aliases[i] = kpi.Slugify(name)
		}
		g.clusterAlias = append(g.clusterAlias, aliases)
	}
	for _, e := range gf.ClusterEdges {
		g.edgesByClust[e.Source] = append(g.edgesByClust[e.Source], e)
	}
	for _, e := range gf.KPIEdges {
		g.edgesBySource[e.Source] = append(g.edgesBySource[e.Source], e)
	}
	return g
}

// ClusterOf returns the id of the first cluster (in load order) whose
// KPI list contains the alias. Upstream cluster data can in principle
// list a KPI in several clusters; first match wins, unresolved.
func (g *Graph) ClusterOf(alias string) (int, bool) {
	for i, aliases := range g.clusterAlias {
		for _, a := range aliases {
			if a == alias {
				return g.clusters[i].ID, true
			}
		}
	}
	return 0, false
}

// KPIRisks returns the target aliases of outgoing KPI-level edges with
// risk >= minRisk, ordered descending by risk (stable on ties),
// truncated to maxResults.
func (g *Graph) KPIRisks(alias string, minRisk float64, maxResults int) []string {
	edges := g.edgesBySource[alias]
	if len(edges) == 0 {
		return nil
	}

	kept := make([]KPIEdge, 0, len(edges))
	for _, e := range edges {
		if e.Risk >= minRisk {
			kept = append(kept, e)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Risk > kept[j].Risk })

	if maxResults > 0 && len(kept) > maxResults {
		kept = kept[:maxResults]
	}

	targets := make([]string, len(kept))
	for i, e := range kept {
		targets[i] = e.Target
	}
	return targets
}

// ClusterAtRisk resolves the alias's cluster and returns the target
// KPIs of its outgoing cluster edges with |strength| >= minStrength,
// each edge's list truncated to maxPerCluster, concatenated in edge
// order. Duplicates across edges are kept: a KPI downstream of two
// clusters is emphasized, not deduplicated.
func (g *Graph) ClusterAtRisk(alias string, minStrength float64, maxPerCluster int) []string {
	id, ok := g.ClusterOf(alias)
	if !ok {
		return nil
	}

	var out []string
	for _, e := range g.edgesByClust[id] {
		if math.Abs(e.Strength) < minStrength {
			continue
		}
		targets := e.TargetKPIs
		if maxPerCluster > 0 && len(targets) > maxPerCluster {
			targets = targets[:maxPerCluster]
		}
		out = append(out, targets...)
	}
	return out
}
