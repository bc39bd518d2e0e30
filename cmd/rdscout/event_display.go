package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/steveyegge/rdscout/internal/events"
)

// displayActivityEvent prints one event in a two-line format
func displayActivityEvent(event *events.Event) {
	emoji := getEventEmoji(event)
	severityColor := getSeverityColor(event.Severity)
	timestamp := event.Timestamp.Format("01-02 15:04:05")

	subject := event.ProjectID
	if subject == "" {
		subject = event.DocumentID
	}
	if subject == "" {
		subject = event.RunID
	}
	subject = shortID(subject)

	maxMessageLen := 60 - len(subject) - len(string(event.Type))
	message := truncateString(event.Message, maxMessageLen)

	fmt.Printf("%s [%s] %s %s: %s\n",
		emoji,
		timestamp,
		color.New(color.FgGreen).Sprint(subject),
		color.New(color.FgMagenta).Sprint(event.Type),
		severityColor.Sprint(message),
	)

	if metadata := extractEventMetadata(event); metadata != "" {
		fmt.Printf("  %s\n", color.New(color.FgHiBlack).Sprint(metadata))
	} else {
		fmt.Println()
	}
}

func getEventEmoji(event *events.Event) string {
	switch event.Type {
	case events.EventTypeRunStarted:
		return "🚀"
	case events.EventTypeRunCompleted:
		return "✅"
	case events.EventTypeRunAbandoned:
		return "🛑"
	case events.EventTypeDocumentSkipped:
		return "⏭️"
	case events.EventTypeCollaboratorDegraded:
		return "🩹"
	case events.EventTypeCandidateCreated, events.EventTypeCandidateRevived:
		return "🧪"
	case events.EventTypeCandidateUpdated:
		return "🔁"
	case events.EventTypeCandidateStatusChanged:
		return "🎯"
	case events.EventTypeTagAdded, events.EventTypeTagSuperseded:
		return "🏷️"
	case events.EventTypeTagRemoved, events.EventTypeTagSuppressed:
		return "✂️"
	case events.EventTypeNarrativeImpact:
		return "⚠️"
	case events.EventTypeProposalResolved:
		return "📝"
	}

	switch event.Severity {
	case events.SeverityInfo:
		return "ℹ️"
	case events.SeverityWarning:
		return "⚠️"
	case events.SeverityError:
		return "❌"
	default:
		return "•"
	}
}

func getSeverityColor(severity events.EventSeverity) *color.Color {
	switch severity {
	case events.SeverityInfo:
		return color.New(color.FgCyan)
	case events.SeverityWarning:
		return color.New(color.FgYellow)
	case events.SeverityError:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgWhite)
	}
}

// extractEventMetadata picks a few key data fields per event type
func extractEventMetadata(event *events.Event) string {
	var fields []string

	switch event.Type {
	case events.EventTypeRunCompleted:
		// run_completed: mode | documents | created | tags | proposals | duration
		fields = []string{
			getStringField(event.Data, "mode", "unknown"),
			fmt.Sprintf("%d docs", getIntField(event.Data, "documents", 0)),
			fmt.Sprintf("%d new", getIntField(event.Data, "candidates_created", 0)),
			fmt.Sprintf("%d tags", getIntField(event.Data, "tags_applied", 0)),
			fmt.Sprintf("%d proposals", getIntField(event.Data, "proposals", 0)),
			formatDurationMs(getIntField(event.Data, "duration_ms", 0)),
		}
		if n := getIntField(event.Data, "fallback_documents", 0); n > 0 {
			fields = append(fields, fmt.Sprintf("%d fallback", n))
		}

	case events.EventTypeCollaboratorDegraded:
		// degraded: collaborator | documents | error
		docs := 0
		if list, ok := event.Data["documents"].([]interface{}); ok {
			docs = len(list)
		}
		fields = []string{
			getStringField(event.Data, "collaborator", "unknown"),
			fmt.Sprintf("%d docs", docs),
			truncateString(getStringField(event.Data, "error", ""), 30),
		}

	case events.EventTypeCandidateStatusChanged:
		// status: from → to | trigger | actor
		fields = []string{
			fmt.Sprintf("%s → %s", getStringField(event.Data, "from", "?"), getStringField(event.Data, "to", "?")),
			getStringField(event.Data, "trigger", ""),
			truncateString(event.Actor, 20),
		}

	default:
		if err, ok := event.Data["error"].(string); ok {
			fields = append(fields, truncateString(err, 50))
		}
		if event.Actor != "" && event.Actor != events.ActorSystem {
			fields = append(fields, "by "+truncateString(event.Actor, 20))
		}
	}

	// Free-text fields are capped above; counts are never cut
	return joinFields(fields)
}

func getStringField(data map[string]interface{}, key, defaultValue string) string {
	if val, ok := data[key].(string); ok {
		return val
	}
	return defaultValue
}

func getIntField(data map[string]interface{}, key string, defaultValue int) int {
	switch val := data[key].(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		return int(val)
	}
	return defaultValue
}

// formatDurationMs formats milliseconds into a human-readable duration
func formatDurationMs(ms int) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	if ms < 60000 {
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	}
	return fmt.Sprintf("%.1fm", float64(ms)/60000)
}

// joinFields joins non-empty fields with " | "
func joinFields(fields []string) string {
	nonEmpty := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			nonEmpty = append(nonEmpty, f)
		}
	}
	return strings.Join(nonEmpty, " | ")
}
