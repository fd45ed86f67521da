package exttool

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"veritext/config"
	"veritext/types"
)

// parseComparisons reads the tool's exported comparison table. The
// similarity column is located by header name, falling back to the last
// column when no header matches.
func parseComparisons(path string) ([]types.ExternalToolPair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open comparison table: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read comparison table: %w", err)
	}
	if len(rows) < 2 {
		return []types.ExternalToolPair{}, nil
	}

	header := rows[0]
	simCol := len(header) - 1
	for i, name := range header {
		if strings.Contains(strings.ToLower(name), "similarity") {
			simCol = i
			break
		}
	}

	pairs := make([]types.ExternalToolPair, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) <= simCol || len(row) < 2 {
			continue
		}
		sim, err := strconv.ParseFloat(strings.TrimSpace(row[simCol]), 64)
		if err != nil {
			continue
		}
		pairs = append(pairs, types.ExternalToolPair{
			SubmissionA: strings.TrimSpace(row[0]),
			SubmissionB: strings.TrimSpace(row[1]),
			Similarity:  sim,
		})
	}
	return pairs, nil
}

// summarize condenses comparison rows into max, average, and the top
// pairs sorted by similarity descending.
func summarize(pairs []types.ExternalToolPair) types.ExternalToolSummary {
	if len(pairs) == 0 {
		return types.ExternalToolSummary{TopPairs: []types.ExternalToolPair{}}
	}

	sorted := make([]types.ExternalToolPair, len(pairs))
	copy(sorted, pairs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Similarity > sorted[j].Similarity
	})

	var sum float64
	for _, p := range sorted {
		sum += p.Similarity
	}

	top := sorted
	if len(top) > config.TopExternalPairs {
		top = top[:config.TopExternalPairs]
	}

	return types.ExternalToolSummary{
		MaxSimilarity: sorted[0].Similarity,
		AvgSimilarity: math.Round(sum/float64(len(sorted))*10000) / 10000,
		TopPairs:      top,
	}
}
