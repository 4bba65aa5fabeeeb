package view

import (
	"sort"

	"github.com/jonathan/job-dashboard/internal/backend"
)

// Note types.
const (
	NoteGeneral              = "general"
	NoteAnalysisSummary      = "ai_analysis_summary"
	NoteStrengths            = "strengths"
	NoteTalkingPoints        = "talking_points"
	NoteCoachingNotes        = "coaching_notes"
	NoteStudyRecommendations = "study_recommendations"
	NoteWatchOuts            = "watch_outs"
	NoteRAGEvidence          = "rag_evidence"
)

// AnalysisNoteTypes lists the agent-produced note types.
var AnalysisNoteTypes = []string{
	NoteAnalysisSummary,
	NoteStrengths,
	NoteTalkingPoints,
	NoteCoachingNotes,
	NoteStudyRecommendations,
	NoteWatchOuts,
	NoteRAGEvidence,
}

// NoteTypeConfig describes how a note type is displayed.
type NoteTypeConfig struct {
	Type        string
	Label       string
	Icon        string
	Color       string
	Description string
	Order       int
}

var noteTypeConfigs = map[string]NoteTypeConfig{
	NoteAnalysisSummary:      {NoteAnalysisSummary, "Analysis Summary", "clipboard-check", "emerald", "Overall fit assessment and recommendation", 1},
	NoteStrengths:            {NoteStrengths, "Key Strengths", "thumbs-up", "green", "Strengths to highlight in application", 2},
	NoteTalkingPoints:        {NoteTalkingPoints, "Interview Talking Points", "message-square", "blue", "Points to discuss in interviews", 3},
	NoteCoachingNotes:        {NoteCoachingNotes, "Application Coaching", "lightbulb", "purple", "What to emphasize in applications", 4},
	NoteStudyRecommendations: {NoteStudyRecommendations, "Study Recommendations", "graduation-cap", "amber", "Skills and topics to review", 5},
	NoteWatchOuts:            {NoteWatchOuts, "Watch-Outs", "alert-triangle", "orange", "Potential concerns or red flags", 6},
	NoteRAGEvidence:          {NoteRAGEvidence, "Career Evidence", "file-search", "cyan", "Evidence from career documents", 7},
	NoteGeneral:              {NoteGeneral, "General Notes", "file-text", "gray", "General notes and comments", 99},
}

// NoteType returns the config for a note type, falling back to general.
func NoteType(noteType string) NoteTypeConfig {
	if cfg, ok := noteTypeConfigs[noteType]; ok {
		return cfg
	}
	return noteTypeConfigs[NoteGeneral]
}

// AnalysisNoteTypeConfigs returns the configs of every analysis type in display order.
func AnalysisNoteTypeConfigs() []NoteTypeConfig {
	out := make([]NoteTypeConfig, 0, len(AnalysisNoteTypes))
	for _, cfg := range noteTypeConfigs {
		if cfg.Type != NoteGeneral {
			out = append(out, cfg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func isAnalysisType(noteType string) bool {
	for _, t := range AnalysisNoteTypes {
		if t == noteType {
			return true
		}
	}
	return false
}

// IsAnalysisNote reports whether n is an agent note of an analysis type.
func IsAnalysisNote(n backend.NoteEntry) bool {
	return n.Source == backend.NoteSourceAgent &&
		n.NoteType != "" &&
		n.NoteType != NoteGeneral &&
		isAnalysisType(n.NoteType)
}

// IsUserNote reports whether n belongs in the user note feed.
func IsUserNote(n backend.NoteEntry) bool {
	return n.Source == backend.NoteSourceUser || n.NoteType == NoteGeneral || n.NoteType == ""
}

// GroupByType groups notes by type, newest first within each group. Notes
// without a type are grouped as general. The input is not modified.
func GroupByType(notes []backend.NoteEntry) map[string][]backend.NoteEntry {
	grouped := make(map[string][]backend.NoteEntry)
	for _, n := range notes {
		t := n.NoteType
		if t == "" {
			t = NoteGeneral
		}
		grouped[t] = append(grouped[t], n)
	}
	for _, group := range grouped {
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Timestamp.After(group[j].Timestamp)
		})
	}
	return grouped
}

// NoteSection is one rendered analysis section.
type NoteSection struct {
	Config NoteTypeConfig
	Notes  []backend.NoteEntry
}

// AnalysisSections returns the non-empty analysis sections in display order.
func AnalysisSections(notes []backend.NoteEntry) []NoteSection {
	var analysis []backend.NoteEntry
	for _, n := range notes {
		if IsAnalysisNote(n) {
			analysis = append(analysis, n)
		}
	}
	grouped := GroupByType(analysis)

	var sections []NoteSection
	for _, cfg := range AnalysisNoteTypeConfigs() {
		if group := grouped[cfg.Type]; len(group) > 0 {
			sections = append(sections, NoteSection{Config: cfg, Notes: group})
		}
	}
	return sections
}

// UserNotes returns the user note feed, newest first.
func UserNotes(notes []backend.NoteEntry) []backend.NoteEntry {
	var out []backend.NoteEntry
	for _, n := range notes {
		if IsUserNote(n) {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

// SummaryMeta is the structured metadata of an analysis summary note.
type SummaryMeta struct {
	PriorityScore  int
	HasScore       bool
	Recommendation string
	SuggestedRole  string
	AIForward      bool
}

// SummaryMetadata extracts the known fields of a summary note's metadata.
func SummaryMetadata(n backend.NoteEntry) SummaryMeta {
	var m SummaryMeta
	if v, ok := n.Metadata["priority_score"].(float64); ok {
		m.PriorityScore = int(v)
		m.HasScore = true
	}
	m.Recommendation, _ = n.Metadata["recommendation"].(string)
	m.SuggestedRole, _ = n.Metadata["suggested_role"].(string)
	m.AIForward, _ = n.Metadata["ai_forward"].(bool)
	return m
}
