package classify

import (
	"strings"

	"github.com/zhaobenny/mpvwatch/internal/model"
	"github.com/zhaobenny/mpvwatch/internal/policy"
)

// Classifier maps free-text activity titles to canonical restricted paths
type Classifier struct {
	paths []string
	norms []string
}

// New builds a classifier over the policy's restricted paths
func New(pol policy.Policy) *Classifier {
	paths := pol.RestrictedPaths()
	norms := make([]string, len(paths))
	for i, p := range paths {
		norms[i] = Normalize(p)
	}
	return &Classifier{paths: paths, norms: norms}
}

// Normalize lowercases s and drops spaces and underscores
func Normalize(s string) string {
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "_", "")
	return strings.ToLower(s)
}

// Classify returns the restricted path a title belongs to. An exact
// normalized match wins, then the longest configured name found inside
// the title, then the first configured name that contains the title.
func (c *Classifier) Classify(title string) (string, bool) {
	norm := Normalize(title)
	if norm == "" {
		return "", false
	}

	for i, pn := range c.norms {
		if pn == norm {
			return c.paths[i], true
		}
	}
	best := -1
	for i, pn := range c.norms {
		if strings.Contains(norm, pn) && (best < 0 || len(pn) > len(c.norms[best])) {
			best = i
		}
	}
	if best >= 0 {
		return c.paths[best], true
	}
	for i, pn := range c.norms {
		if strings.Contains(pn, norm) {
			return c.paths[i], true
		}
	}
	for _, p := range c.paths {
		if strings.Contains(title, p) {
			return p, true
		}
	}

	switch {
	case strings.Contains(norm, "waterspider"):
		if strings.Contains(norm, "whd") {
			return "WHD Waterspider", true
		}
		if strings.Contains(norm, "vreturn") {
			return "Vreturns WaterSpider", true
		}
		return "Water Spider", true
	case strings.Contains(norm, "endofline"), strings.Contains(norm, "eol"):
		return "C-Returns_EndofLine", true
	case strings.Contains(norm, "teammech"), strings.Contains(norm, "tmwsp"):
		return "Team_Mech_Wspider", true
	}
	return "", false
}

// PathTimes sums minutes per restricted path over sessions. Paths are
// returned in the order they were first seen; unclassified rows are skipped.
func (c *Classifier) PathTimes(sessions []model.ActivityRow) (map[string]float64, []string) {
	times := make(map[string]float64)
	var order []string
	for _, s := range sessions {
		p, ok := c.Classify(s.Title)
		if !ok {
			continue
		}
		if _, seen := times[p]; !seen {
			order = append(order, p)
		}
		times[p] += max(s.Minutes, 0)
	}
	return times, order
}
