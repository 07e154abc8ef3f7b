package toolrouter

import "github.com/bobmcallan/lancet/internal/models"

type graphNode struct {
	NodeType string `json:"node_type"`
	ObjID    string `json:"obj_id"`
}

type graphEdge struct {
	Relation       string  `json:"relation"`
	From           string  `json:"from"`
	To             string  `json:"to"`
	EdgeID         *string `json:"edge_id,omitempty"`
	CitationSource *string `json:"citation_source,omitempty"`
}

// buildEvidenceGraph assembles the page/claim node set and the edge set
// (page cites edges plus claim-to-fragment supports/refutes edges) the
// get_materials evidence_graph output exposes.
func buildEvidenceGraph(pages []*models.Page, claims []*models.Claim, edges []*models.Edge) map[string]any {
	var nodes []graphNode
	for _, p := range pages {
		nodes = append(nodes, graphNode{NodeType: "page", ObjID: p.ID})
	}
	for _, c := range claims {
		nodes = append(nodes, graphNode{NodeType: "claim", ObjID: c.ID})
	}

	var gEdges []graphEdge
	for _, e := range edges {
		id := e.ID
		gEdges = append(gEdges, graphEdge{Relation: "cites", From: e.FromPageID, To: e.ToPageID, EdgeID: &id})
	}
	for _, c := range claims {
		relation := "neutral"
		if !c.Rejected {
			relation = "supports"
		} else {
			relation = "refutes"
		}
		gEdges = append(gEdges, graphEdge{Relation: relation, From: c.ID, To: c.FragmentID})
	}

	return map[string]any{
		"nodes": nodes,
		"edges": gEdges,
		"stats": map[string]any{
			"node_count": len(nodes),
			"edge_count": len(gEdges),
			"page_count": len(pages),
			"claim_count": len(claims),
		},
	}
}

// buildCitationNetwork projects the cites edges alone, for clients that only
// want the page-to-page reference graph without claim nodes.
func buildCitationNetwork(edges []*models.Edge) map[string]any {
	var citing []graphEdge
	for _, e := range edges {
		if e.Relationship != "cites" {
			continue
		}
		id := e.ID
		citing = append(citing, graphEdge{Relation: "cites", From: e.FromPageID, To: e.ToPageID, EdgeID: &id})
	}
	return map[string]any{"edges": citing, "stats": map[string]any{"edge_count": len(citing)}}
}
