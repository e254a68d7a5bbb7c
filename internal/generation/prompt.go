package generation

import (
	"fmt"
	"strings"

	"github.com/issueops/backend/internal/storage/models"
)

// promptContentTruncation caps the length of each retrieved entry inside a
// backend prompt.
const promptContentTruncation = 800

const resolutionSystemPrompt = `You are an experienced IT operations engineer. Draft a concrete, step-by-step resolution for the reported issue.

Your response must:
1. Explain the likely root cause
2. List numbered, actionable remediation steps
3. Include specific commands or checks where applicable
4. Note how to verify the issue is resolved

Be concise, technical, and actionable.`

const sopSystemPrompt = `You are an experienced IT operations engineer writing standard operating procedures. Produce an SOP with exactly these sections: Title, Purpose, Scope, Preconditions, Procedure (numbered steps), Validation Checks, Rollback Plan.

Be precise and unambiguous; an on-call engineer unfamiliar with the incident must be able to follow it.`

func buildResolutionPrompt(issue models.Issue, retrieved []models.RetrievalResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Issue: %s\n", issue.Title)
	fmt.Fprintf(&b, "Category: %s\n", issue.Category)
	fmt.Fprintf(&b, "Severity: %s\n", issue.Severity)
	fmt.Fprintf(&b, "Environment: %s\n\n", issue.Environment)
	fmt.Fprintf(&b, "Description:\n%s\n", issue.Description)

	if len(retrieved) > 0 {
		b.WriteString("\nSimilar issues resolved previously (highest-rated first). Extract recurring patterns from them and apply what fits:\n")
		for i, result := range retrieved {
			fmt.Fprintf(&b, "\n[Similar issue %d] (avg rating %.1f/5)\n%s\n",
				i+1,
				result.Entry.AverageRating,
				truncate(result.Entry.Content, promptContentTruncation),
			)
		}
	}

	b.WriteString("\nDraft the resolution now.")
	return b.String()
}

func buildSOPPrompt(issue models.Issue, resolutionText string, retrieved []models.RetrievalResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Resolved issue: %s\n", issue.Title)
	fmt.Fprintf(&b, "Category: %s\n", issue.Category)
	fmt.Fprintf(&b, "Environment: %s\n\n", issue.Environment)
	fmt.Fprintf(&b, "The resolution that worked:\n%s\n", resolutionText)

	if len(retrieved) > 0 {
		b.WriteString("\nRelated SOPs already in use (highest-rated first). Extract patterns and keep the procedure consistent with them:\n")
		for i, result := range retrieved {
			fmt.Fprintf(&b, "\n[Related SOP %d] (avg rating %.1f/5)\n%s\n",
				i+1,
				result.Entry.AverageRating,
				truncate(result.Entry.Content, promptContentTruncation),
			)
		}
	}

	b.WriteString("\nWrite the SOP now.")
	return b.String()
}
