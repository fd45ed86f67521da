// Package aidetect estimates whether a block of text was machine
// generated from surface statistical signals: marker phrases, sentence
// length uniformity, and vocabulary repetition.
//
// The output is an advisory heuristic score, not a calibrated
// probability. Thresholds are empirically chosen and exposed on Config
// for tuning.
package aidetect

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"veritext/types"
)

// Config holds the tunable heuristic thresholds. Defaults reflect the
// original calibration; none of them have a documented derivation.
type Config struct {
	MinTextLen int // below this, analysis is skipped entirely

	MarkerPoints int // points per marker-phrase hit
	MarkerCap    int // maximum total marker contribution

	MinSentences int     // sentences required for the uniformity signal
	LowCV        float64 // coefficient of variation below this: strong signal
	MidCV        float64 // below this: weak signal
	LowCVPoints  int
	MidCVPoints  int

	MinWords     int     // words required for the repetition signal
	LowTTR       float64 // type-token ratio below this: strong signal
	MidTTR       float64 // below this (short texts only): weak signal
	MidTTRMaxLen int     // word count above which the weak TTR signal is ignored
	LowTTRPoints int
	MidTTRPoints int

	MaxScore     int
	HumanBelow   int // scores under this get the human-written verdict
	LikelyAIOver int // scores over this get the AI verdict
}

// DefaultConfig returns the standard calibration.
func DefaultConfig() Config {
	return Config{
		MinTextLen:   50,
		MarkerPoints: 6,
		MarkerCap:    70,
		MinSentences: 5,
		LowCV:        0.38,
		MidCV:        0.48,
		LowCVPoints:  40,
		MidCVPoints:  25,
		MinWords:     50,
		LowTTR:       0.30,
		MidTTR:       0.40,
		MidTTRMaxLen: 800,
		LowTTRPoints: 40,
		MidTTRPoints: 25,
		MaxScore:     99,
		HumanBelow:   25,
		LikelyAIOver: 65,
	}
}

// Detector is a stateless scorer over a fixed marker list and config.
type Detector struct {
	cfg     Config
	markers []string
}

// New returns a detector with the given config and the built-in
// marker-phrase list.
func New(cfg Config) *Detector {
	return &Detector{cfg: cfg, markers: markerPhrases}
}

// Detect scores the text. Texts shorter than MinTextLen are not
// analyzed and score zero.
func (d *Detector) Detect(text string) types.AIDetectionResult {
	if len(text) < d.cfg.MinTextLen {
		return types.AIDetectionResult{Score: 0, Details: []string{"Text too short for analysis"}}
	}

	score := 0
	details := []string{}

	if pts, hits := d.markerScore(text); pts > 0 {
		score += pts
		details = append(details, fmt.Sprintf("Found %d generic marker phrase(s) (+%d)", hits, pts))
	}

	if pts, cv, ok := d.uniformityScore(text); ok && pts > 0 {
		score += pts
		details = append(details, fmt.Sprintf("Unusually uniform sentence lengths (CV %.2f, +%d)", cv, pts))
	}

	if pts, ttr, ok := d.repetitionScore(text); ok && pts > 0 {
		score += pts
		details = append(details, fmt.Sprintf("Low vocabulary diversity (TTR %.2f, +%d)", ttr, pts))
	}

	if score > d.cfg.MaxScore {
		score = d.cfg.MaxScore
	}
	if score < 0 {
		score = 0
	}

	if score < d.cfg.HumanBelow {
		details = append(details, "Likely human-written")
	} else if score > d.cfg.LikelyAIOver {
		details = append(details, "High probability of AI generation")
	}

	return types.AIDetectionResult{Score: score, Details: details}
}

// markerScore counts case-insensitive marker-phrase occurrences, capped.
func (d *Detector) markerScore(text string) (points, hits int) {
	lower := strings.ToLower(text)
	for _, phrase := range d.markers {
		hits += strings.Count(lower, phrase)
	}
	points = hits * d.cfg.MarkerPoints
	if points > d.cfg.MarkerCap {
		points = d.cfg.MarkerCap
	}
	return points, hits
}

var sentenceSplitRe = regexp.MustCompile(`[.!?]+`)

// uniformityScore computes the coefficient of variation of per-sentence
// word counts. Human prose tends to vary; a low CV is suspicious.
func (d *Detector) uniformityScore(text string) (points int, cv float64, ok bool) {
	var lengths []float64
	for _, s := range sentenceSplitRe.Split(text, -1) {
		words := strings.Fields(s)
		if len(words) > 0 {
			lengths = append(lengths, float64(len(words)))
		}
	}
	if len(lengths) <= d.cfg.MinSentences {
		return 0, 0, false
	}

	var sum float64
	for _, l := range lengths {
		sum += l
	}
	mean := sum / float64(len(lengths))
	if mean == 0 {
		return 0, 0, false
	}

	var varSum float64
	for _, l := range lengths {
		varSum += (l - mean) * (l - mean)
	}
	cv = math.Sqrt(varSum/float64(len(lengths))) / mean

	switch {
	case cv < d.cfg.LowCV:
		return d.cfg.LowCVPoints, cv, true
	case cv < d.cfg.MidCV:
		return d.cfg.MidCVPoints, cv, true
	default:
		return 0, cv, true
	}
}

// repetitionScore computes the type-token ratio over lowercased words.
func (d *Detector) repetitionScore(text string) (points int, ttr float64, ok bool) {
	words := strings.Fields(strings.ToLower(text))
	if len(words) <= d.cfg.MinWords {
		return 0, 0, false
	}

	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		unique[w] = struct{}{}
	}
	ttr = float64(len(unique)) / float64(len(words))

	switch {
	case ttr < d.cfg.LowTTR:
		return d.cfg.LowTTRPoints, ttr, true
	case ttr < d.cfg.MidTTR && len(words) < d.cfg.MidTTRMaxLen:
		return d.cfg.MidTTRPoints, ttr, true
	default:
		return 0, ttr, true
	}
}
