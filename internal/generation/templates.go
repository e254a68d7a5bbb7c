package generation

import (
	"fmt"
	"strings"

	"github.com/issueops/backend/internal/storage/models"
)

// Deterministic category-keyed templates used when the generation backend is
// unavailable. Fallback output must always be usable text; nothing in this
// file can fail.

const (
	fallbackContentTruncation = 500
	fallbackKeywordLimit      = 3
)

type fallbackTemplate struct {
	header string
	steps  []string
}

func templateFor(category models.IssueCategory) fallbackTemplate {
	switch category {
	case models.CategoryDatabase:
		return fallbackTemplate{
			header: "DATABASE ISSUE RESOLUTION",
			steps: []string{
				"Check database service status and recent restarts.",
				"Inspect connection pool utilization and active session counts.",
				"Review slow query logs for statements exceeding their usual latency.",
				"Verify replication lag and disk space on the primary and replicas.",
				"Restart the affected connection pools if sessions are exhausted.",
				"Confirm application connectivity and re-run the failing workload.",
			},
		}
	case models.CategoryNetwork:
		return fallbackTemplate{
			header: "NETWORK ISSUE RESOLUTION",
			steps: []string{
				"Verify link status and interface error counters on the affected path.",
				"Run connectivity checks (ping, traceroute) from both endpoints.",
				"Inspect firewall and security-group rules changed recently.",
				"Check DNS resolution for the affected hostnames.",
				"Review load balancer health checks and backend pool membership.",
				"Validate end-to-end connectivity after each change.",
			},
		}
	case models.CategoryApplication:
		return fallbackTemplate{
			header: "APPLICATION ISSUE RESOLUTION",
			steps: []string{
				"Collect application logs around the first occurrence of the issue.",
				"Check for recent deployments or configuration changes and correlate timing.",
				"Verify dependent service health and upstream error rates.",
				"Reproduce the issue in a non-production environment if possible.",
				"Roll back the most recent change if it correlates with the regression.",
				"Monitor error rates after remediation to confirm recovery.",
			},
		}
	case models.CategorySecurity:
		return fallbackTemplate{
			header: "SECURITY ISSUE RESOLUTION",
			steps: []string{
				"Contain the affected systems; isolate compromised accounts or hosts.",
				"Preserve logs and evidence before making changes.",
				"Rotate credentials and revoke active sessions for affected identities.",
				"Patch or disable the vulnerable component.",
				"Review audit trails for lateral movement or data access.",
				"File an incident report and schedule a post-incident review.",
			},
		}
	case models.CategoryPerformance:
		return fallbackTemplate{
			header: "PERFORMANCE ISSUE RESOLUTION",
			steps: []string{
				"Identify the bottleneck resource: CPU, memory, I/O, or network.",
				"Compare current load against the established baseline.",
				"Profile the slowest code paths or queries under load.",
				"Check for resource contention from co-located workloads.",
				"Scale the constrained resource or tune the hot path.",
				"Re-measure against the baseline to confirm the improvement.",
			},
		}
	case models.CategoryUI:
		return fallbackTemplate{
			header: "UI ISSUE RESOLUTION",
			steps: []string{
				"Reproduce the issue and note browser, device, and viewport details.",
				"Check the browser console for script errors and failed asset loads.",
				"Verify the backing API responses for the affected view.",
				"Clear cached assets and retest to rule out stale bundles.",
				"Roll back or fix the offending frontend change.",
				"Verify the fix across the supported browser matrix.",
			},
		}
	case models.CategoryAPI:
		return fallbackTemplate{
			header: "API ISSUE RESOLUTION",
			steps: []string{
				"Identify the failing endpoints and their error codes from access logs.",
				"Check recent API deployments and schema or contract changes.",
				"Verify authentication and rate-limit configurations.",
				"Test the failing endpoints directly with known-good payloads.",
				"Roll back breaking changes or ship a compatibility fix.",
				"Notify consumers and update the API changelog.",
			},
		}
	case models.CategoryOther:
		return fallbackTemplate{
			header: "GENERAL ISSUE RESOLUTION",
			steps: []string{
				"Gather a precise description of symptoms, timing, and scope.",
				"Identify which systems and users are affected.",
				"Review recent changes across the affected environment.",
				"Apply the most likely remediation in a controlled manner.",
				"Verify the issue is resolved from the reporter's perspective.",
				"Document the root cause and resolution for future reference.",
			},
		}
	case models.CategoryInfrastructure:
		fallthrough
	default:
		// Unknown categories deliberately land on the infrastructure
		// template.
		return fallbackTemplate{
			header: "INFRASTRUCTURE ISSUE RESOLUTION",
			steps: []string{
				"Check host health: CPU, memory, disk, and service status.",
				"Review system logs for hardware or kernel-level errors.",
				"Verify monitoring alerts and correlate with recent infrastructure changes.",
				"Restart failed services or reprovision the affected node.",
				"Confirm workloads have rescheduled and are serving traffic.",
				"Update runbooks with any new failure signatures observed.",
			},
		}
	}
}

// FallbackResolution renders a deterministic resolution for an issue. When
// retrieval produced results, their content and top matched keywords are
// echoed in a LEARNED FROM SIMILAR ISSUES section.
func FallbackResolution(issue models.Issue, retrieved []models.RetrievalResult) string {
	tpl := templateFor(issue.Category)

	var b strings.Builder
	fmt.Fprintf(&b, "=== %s ===\n\n", tpl.header)
	fmt.Fprintf(&b, "Issue: %s\n", issue.Title)
	fmt.Fprintf(&b, "Severity: %s | Environment: %s\n\n", issue.Severity, issue.Environment)
	b.WriteString("Recommended steps:\n")
	for i, step := range tpl.steps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}

	if len(retrieved) > 0 {
		b.WriteString("\nLEARNED FROM SIMILAR ISSUES:\n")
		for i, result := range retrieved {
			keywords := result.MatchedKeywords
			if len(keywords) > fallbackKeywordLimit {
				keywords = keywords[:fallbackKeywordLimit]
			}
			fmt.Fprintf(&b, "\n[%d] (avg rating %.1f, keywords: %s)\n%s\n",
				i+1,
				result.Entry.AverageRating,
				strings.Join(keywords, ", "),
				truncate(result.Entry.Content, fallbackContentTruncation),
			)
		}
	}

	fmt.Fprintf(&b, "\nEscalate to the on-call %s engineer if the issue persists.\n", issue.Category)
	return b.String()
}

// FallbackSOP renders a deterministic standard operating procedure seeded by
// the issue and its chosen resolution.
func FallbackSOP(issue models.Issue, resolutionText string) string {
	tpl := templateFor(issue.Category)

	var b strings.Builder
	fmt.Fprintf(&b, "=== STANDARD OPERATING PROCEDURE ===\n\n")
	fmt.Fprintf(&b, "Title: Handling %s: %s\n\n", strings.ToLower(string(issue.Category)), issue.Title)
	fmt.Fprintf(&b, "Purpose:\nProvide a repeatable procedure for resolving issues like \"%s\".\n\n", issue.Title)
	fmt.Fprintf(&b, "Scope:\n%s issues in the %s environment.\n\n", tpl.header, issue.Environment)
	b.WriteString("Preconditions:\n")
	b.WriteString("- Operator has access to the affected systems and their logs.\n")
	b.WriteString("- A maintenance window or change approval is in place if required.\n\n")
	b.WriteString("Procedure:\n")
	for i, step := range tpl.steps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}
	if resolutionText != "" {
		fmt.Fprintf(&b, "\nReference resolution:\n%s\n", truncate(resolutionText, fallbackContentTruncation))
	}
	b.WriteString("\nValidation Checks:\n")
	b.WriteString("- Affected service reports healthy and alerts have cleared.\n")
	b.WriteString("- The original reporter confirms the issue no longer occurs.\n")
	b.WriteString("\nRollback Plan:\n")
	b.WriteString("- Revert any configuration or deployment changes made during the procedure.\n")
	b.WriteString("- Escalate to the service owner if the rollback does not restore service.\n")
	return b.String()
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}
