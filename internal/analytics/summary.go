package analytics

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"idslab-dashboard/internal/models"
)

// DashboardStats computes the headline numbers of the dashboard page.
// AvgDetectionTime averages only results that carry a detection time.
func DashboardStats(tests []models.Test, results []models.TestResult) models.DashboardStats {
	rates := ComputeRates(tests)

	stats := models.DashboardStats{
		TotalTests:        len(tests),
		TotalAttacks:      rates.TotalAttacks,
		DetectedAttacks:   rates.DetectedAttacks,
		DetectionRate:     rates.TruePositiveRate,
		FalsePositiveRate: rates.FalsePositiveRate,
	}

	for _, t := range tests {
		if t.Status == models.TestRunning {
			stats.ActiveTests++
		}
	}

	var sum, n int
	for _, r := range results {
		if r.DetectionTime != nil {
			sum += *r.DetectionTime
			n++
		}
	}
	if n > 0 {
		stats.AvgDetectionTime = float64(sum) / float64(n)
	}

	return stats
}

// RecentTests returns up to limit tests, newest start time first.
// A non-positive limit returns all tests. The input slice is not reordered.
func RecentTests(tests []models.Test, limit int) []models.Test {
	sorted := make([]models.Test, len(tests))
	copy(sorted, tests)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartedAt.After(sorted[j].StartedAt)
	})

	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// ExploitBreakdown counts results per attack type, most frequent first
func ExploitBreakdown(results []models.TestResult) []models.ExploitCategory {
	counts := make(map[string]int)
	for _, r := range results {
		name := r.AttackType
		if name == "" {
			name = "Unknown"
		}
		counts[name]++
	}

	out := make([]models.ExploitCategory, 0, len(counts))
	for name, count := range counts {
		out = append(out, models.ExploitCategory{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// severityOrder ranks severities for tie-breaking, most severe first
var severityOrder = map[string]int{"critical": 0, "high": 1, "medium": 2, "low": 3}

// SeverityBreakdown counts results per severity, most frequent first
func SeverityBreakdown(results []models.TestResult) []models.SeverityCount {
	counts := make(map[string]int)
	for _, r := range results {
		counts[r.Severity]++
	}

	out := make([]models.SeverityCount, 0, len(counts))
	for sev, count := range counts {
		out = append(out, models.SeverityCount{Severity: sev, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		ri, iok := severityOrder[out[i].Severity]
		rj, jok := severityOrder[out[j].Severity]
		if iok && jok {
			return ri < rj
		}
		if iok != jok {
			return iok
		}
		return out[i].Severity < out[j].Severity
	})
	return out
}

// LiveFeed merges result detections and test lifecycle events into a single
// feed, newest first, truncated to limit entries.
func LiveFeed(tests []models.Test, results []models.TestResult, limit int) []models.FeedItem {
	feed := []models.FeedItem{}

	for _, r := range results {
		item := models.FeedItem{
			ID:        "result-" + r.ID,
			Severity:  r.Severity,
			Timestamp: r.Timestamp,
		}
		name := r.ExploitName
		if name == "" {
			name = r.AttackType
		}
		if r.IDSDetected {
			item.Type = models.FeedDetected
			item.Message = fmt.Sprintf("%s detected from %s", name, r.SourceIP)
		} else {
			item.Type = models.FeedMissed
			item.Message = fmt.Sprintf("%s missed", name)
		}
		feed = append(feed, item)
	}

	for _, t := range tests {
		feed = append(feed, models.FeedItem{
			ID:        "test-started-" + t.ID,
			Type:      models.FeedStarted,
			Message:   fmt.Sprintf("Test scenario %q started", t.ScenarioName),
			Timestamp: t.StartedAt,
		})
		if t.Status == models.TestCompleted && t.FinishedAt != nil {
			feed = append(feed, models.FeedItem{
				ID:        "test-completed-" + t.ID,
				Type:      models.FeedCompleted,
				Message:   fmt.Sprintf("Test scenario %q completed", t.ScenarioName),
				Timestamp: *t.FinishedAt,
			})
		}
	}

	sort.SliceStable(feed, func(i, j int) bool {
		return feed[i].Timestamp.After(feed[j].Timestamp)
	})

	if limit > 0 && len(feed) > limit {
		feed = feed[:limit]
	}
	return feed
}

// ParseDateRange converts a report date range ("7", "30", "90", "all") to a
// number of days. Zero means no limit.
func ParseDateRange(s string) (int, error) {
	if s == "" || s == "all" {
		return 0, nil
	}
	days, err := strconv.Atoi(s)
	if err != nil || days < 0 {
		return 0, fmt.Errorf("invalid date range: %q", s)
	}
	return days, nil
}

// FilterByDateRange keeps tests started within the last days days before now.
// A non-positive days keeps every test.
func FilterByDateRange(tests []models.Test, days int, now time.Time) []models.Test {
	if days <= 0 {
		out := make([]models.Test, len(tests))
		copy(out, tests)
		return out
	}

	cutoff := now.Add(-time.Duration(days) * 24 * time.Hour)
	var out []models.Test
	for _, t := range tests {
		if !t.StartedAt.Before(cutoff) {
			out = append(out, t)
		}
	}
	return out
}

// FilterScenarios returns scenarios with the given status; "" or "all" keeps every scenario
func FilterScenarios(scenarios []models.AttackScenario, status string) []models.AttackScenario {
	out := make([]models.AttackScenario, 0, len(scenarios))
	for _, s := range scenarios {
		if status == "" || status == "all" || s.Status == status {
			out = append(out, s)
		}
	}
	return out
}

// CountScenarios tallies scenarios per status
func CountScenarios(scenarios []models.AttackScenario) models.ScenarioCounts {
	counts := models.ScenarioCounts{All: len(scenarios)}
	for _, s := range scenarios {
		switch s.Status {
		case models.ScenarioDraft:
			counts.Draft++
		case models.ScenarioReady:
			counts.Ready++
		case models.ScenarioRunning:
			counts.Running++
		case models.ScenarioCompleted:
			counts.Completed++
		}
	}
	return counts
}

// SummarizeLab aggregates host status, resource gauges and detector state
func SummarizeLab(envs []models.LabEnvironment, configs []models.IDSConfiguration) models.LabSummary {
	summary := models.LabSummary{HostsByRole: make(map[string]int)}

	var cpu, mem, net int
	for _, e := range envs {
		switch e.Status {
		case "online":
			summary.Online++
		case "offline":
			summary.Offline++
		case "busy":
			summary.Busy++
		}
		summary.HostsByRole[e.Type]++
		cpu += e.CPU
		mem += e.Memory
		net += e.Network
	}
	if n := float64(len(envs)); n > 0 {
		summary.AvgCPU = float64(cpu) / n
		summary.AvgMemory = float64(mem) / n
		summary.AvgNetwork = float64(net) / n
	}

	for _, c := range configs {
		if c.Status == "active" {
			summary.ActiveIDS++
		}
		summary.TotalRules += c.Rules
	}

	return summary
}
