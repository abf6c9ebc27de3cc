package plan

// Summary is the resolved plan as reported by the CLI and the HTTP API.
type Summary struct {
	Sizing       Sizing    `json:"sizing"`
	Bins         Bins      `json:"bins"`
	BlockBytes   int       `json:"block_bytes"`
	ResolutionHz float64   `json:"resolution_hz"`
	EdgesHz      []float64 `json:"edges_hz"`
}

func Summarize(s Sizing, b Bins) Summary {
	return Summary{
		Sizing:       s,
		Bins:         b,
		BlockBytes:   s.BlockBytes(),
		ResolutionHz: s.Resolution(),
		EdgesHz:      b.Edges(s),
	}
}
