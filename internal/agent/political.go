package agent

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// PoliticalRisk is one structured row extracted from a political risk
// analysis markdown table.
type PoliticalRisk struct {
	Country             string `json:"country"`
	PoliticalType       string `json:"political_type"`
	RiskInformation     string `json:"risk_information"`
	Likelihood          int    `json:"likelihood"`
	LikelihoodReasoning string `json:"likelihood_reasoning"`
	PublicationDate     string `json:"publication_date"`
	CitationTitle       string `json:"citation_title"`
	CitationName        string `json:"citation_name"`
	CitationURL         string `json:"citation_url"`
}

// PoliticalAnalysis is the normalized form of a political stage output.
type PoliticalAnalysis struct {
	PoliticalRisks  []PoliticalRisk `json:"political_risks"`
	Timestamp       string          `json:"timestamp"`
	SearchQuery     string          `json:"search_query,omitempty"`
	SearchResults   int             `json:"search_results_count,omitempty"`
	EquipmentImpact string          `json:"equipment_impact,omitempty"`
	Mitigation      string          `json:"mitigation_recommendations,omitempty"`
	Description     string          `json:"analysis_description,omitempty"`
}

// Citation is one source reference extracted from the analysis table.
type Citation struct {
	Title           string `json:"title"`
	Source          string `json:"source"`
	URL             string `json:"url"`
	PublicationDate string `json:"publication_date"`
	Country         string `json:"country"`
	RiskType        string `json:"risk_type"`
	RiskInfo        string `json:"risk_info"`
}

// The analysis output carries a nine-column markdown table; the likelihood
// column is the only purely numeric one and anchors the match.
var (
	tableRowRe   = regexp.MustCompile(`\|\s*([^|]+)\s*\|\s*([^|]+)\s*\|\s*([^|]+)\s*\|\s*(\d+)\s*\|\s*([^|]+)\s*\|\s*([^|]+)\s*\|\s*([^|]+)\s*\|\s*([^|]+)\s*\|\s*([^|]+)\s*\|`)
	queryRe      = regexp.MustCompile(`(?i)query:\s*"([^"]+)"`)
	queryAltRe   = regexp.MustCompile(`(?i)using the query:?\s*"([^"]+)"`)
	resultCntRe  = regexp.MustCompile(`A total of (\d+) search results`)
	impactRe     = regexp.MustCompile(`(?s)Equipment Impact Analysis.*?([\s\S]*?)(?:###|\z)`)
	mitigationRe = regexp.MustCompile(`(?s)Mitigation Recommendations.*?([\s\S]*?)(?:###|\z)`)
	descRe       = regexp.MustCompile(`(?s)Analysis Description.*?([\s\S]*?)(?:###|\z)`)
)

// ParsePoliticalAnalysis extracts structured risk rows and narrative sections
// from a free-text political risk analysis. Header rows are skipped; rows
// that fail to parse are dropped rather than failing the whole analysis.
func ParsePoliticalAnalysis(analysis string) *PoliticalAnalysis {
	out := &PoliticalAnalysis{
		PoliticalRisks: []PoliticalRisk{},
		Timestamp:      time.Now().Format(time.RFC3339),
	}

	for _, m := range tableRowRe.FindAllStringSubmatch(analysis, -1) {
		country := strings.TrimSpace(m[1])
		politicalType := strings.TrimSpace(m[2])
		if strings.EqualFold(country, "country") && strings.Contains(strings.ToLower(politicalType), "political type") {
			continue
		}
		likelihood, _ := strconv.Atoi(strings.TrimSpace(m[4]))
		out.PoliticalRisks = append(out.PoliticalRisks, PoliticalRisk{
			Country:             country,
			PoliticalType:       politicalType,
			RiskInformation:     strings.TrimSpace(m[3]),
			Likelihood:          likelihood,
			LikelihoodReasoning: strings.TrimSpace(m[5]),
			PublicationDate:     strings.TrimSpace(m[6]),
			CitationTitle:       strings.TrimSpace(m[7]),
			CitationName:        strings.TrimSpace(m[8]),
			CitationURL:         strings.TrimSpace(m[9]),
		})
	}

	if m := queryRe.FindStringSubmatch(analysis); m != nil {
		out.SearchQuery = m[1]
	} else if m := queryAltRe.FindStringSubmatch(analysis); m != nil {
		out.SearchQuery = m[1]
	}
	if m := resultCntRe.FindStringSubmatch(analysis); m != nil {
		out.SearchResults, _ = strconv.Atoi(m[1])
	}
	if m := impactRe.FindStringSubmatch(analysis); m != nil {
		out.EquipmentImpact = strings.TrimSpace(m[1])
	}
	if m := mitigationRe.FindStringSubmatch(analysis); m != nil {
		out.Mitigation = strings.TrimSpace(m[1])
	}
	if m := descRe.FindStringSubmatch(analysis); m != nil {
		out.Description = strings.TrimSpace(m[1])
	}
	return out
}

// MarshalPoliticalAnalysis serialises the analysis; marshal failures return a
// degraded payload with an error field instead of propagating.
func MarshalPoliticalAnalysis(a *PoliticalAnalysis) string {
	b, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		fallback, _ := json.Marshal(map[string]any{
			"error":           err.Error(),
			"political_risks": []PoliticalRisk{},
			"timestamp":       time.Now().Format(time.RFC3339),
		})
		return string(fallback)
	}
	return string(b)
}

// ExtractCitations pulls the unique citation set out of the analysis table.
func ExtractCitations(analysis string) []Citation {
	var citations []Citation
	seen := make(map[string]bool)
	for _, r := range ParsePoliticalAnalysis(analysis).PoliticalRisks {
		key := r.CitationURL + "\x00" + r.CitationTitle
		if seen[key] {
			continue
		}
		seen[key] = true
		citations = append(citations, Citation{
			Title:           r.CitationTitle,
			Source:          r.CitationName,
			URL:             r.CitationURL,
			PublicationDate: r.PublicationDate,
			Country:         r.Country,
			RiskType:        r.PoliticalType,
			RiskInfo:        r.RiskInformation,
		})
	}
	return citations
}
