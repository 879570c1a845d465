// Package models defines the data structures used throughout the IDS lab dashboard.
// It contains the entities read from the testing backend (scenarios, tests, results,
// lab hosts, IDS configurations and reports) and the derived, chart-ready types the
// dashboard serves to its UI.
package models

import "time"

// Scenario statuses
const (
	ScenarioDraft     = "draft"
	ScenarioReady     = "ready"
	ScenarioRunning   = "running"
	ScenarioCompleted = "completed"
)

// Test statuses
const (
	TestRunning   = "running"
	TestCompleted = "completed"
	TestFailed    = "failed"
)

// AttackScenario is a configured attack definition that can be run as a Test
type AttackScenario struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ExploitType string    `json:"exploitType"`
	TargetIP    string    `json:"targetIP"`
	TargetOS    string    `json:"targetOS"`
	TargetPort  int       `json:"targetPort"`
	CreatedAt   time.Time `json:"createdAt"`
	Status      string    `json:"status"` // draft, ready, running, completed
}

// Test is one execution of a scenario
type Test struct {
	ID              string     `json:"id"`
	ScenarioID      string     `json:"scenarioId"`
	ScenarioName    string     `json:"scenarioName"`
	StartedAt       time.Time  `json:"startedAt"`
	FinishedAt      *time.Time `json:"finishedAt,omitempty"`
	Status          string     `json:"status"` // running, completed, failed
	TotalAttacks    int        `json:"totalAttacks"`
	DetectedAttacks int        `json:"detectedAttacks"`
	MissedAttacks   int        `json:"missedAttacks"`
	FalsePositives  int        `json:"falsePositives"`
}

// TestResult is one simulated attack event within a test
type TestResult struct {
	ID            string    `json:"id"`
	TestID        string    `json:"testId"`
	AttackType    string    `json:"attackType"`
	ExploitName   string    `json:"exploitName"`
	IDSDetected   bool      `json:"idsDetected"`
	DetectionTime *int      `json:"detectionTime,omitempty"` // milliseconds
	FalsePositive bool      `json:"falsePositive"`
	Severity      string    `json:"severity"` // low, medium, high, critical
	Timestamp     time.Time `json:"timestamp"`
	SourceIP      string    `json:"sourceIP"`
	TargetIP      string    `json:"targetIP"`
	Protocol      string    `json:"protocol"`
}

// IDSConfiguration is a named detector instance in the lab
type IDSConfiguration struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"` // snort, suricata
	Version     string `json:"version"`
	Rules       int    `json:"rules"`
	Sensitivity string `json:"sensitivity"` // low, medium, high
	Status      string `json:"status"`      // active, inactive
}

// LabEnvironment is a simulated host in the lab
type LabEnvironment struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"` // attacker, target, ids
	IP      string `json:"ip"`
	OS      string `json:"os"`
	Status  string `json:"status"`  // online, offline, busy
	CPU     int    `json:"cpu"`     // 0-100
	Memory  int    `json:"memory"`  // 0-100
	Network int    `json:"network"` // 0-100
}

// Report is a generated export record
type Report struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Type          string    `json:"type"`   // summary, detailed, comparative
	Format        string    `json:"format"` // pdf, csv, json
	DateRange     string    `json:"dateRange,omitempty"`
	DateGenerated time.Time `json:"dateGenerated"`
	TestsIncluded int       `json:"testsIncluded"`
	Size          string    `json:"size,omitempty"`
}

// ReportRequest holds the parameters for generating a report
type ReportRequest struct {
	Name           string `json:"name"`
	Type           string `json:"type"`
	Format         string `json:"format"`
	DateRange      string `json:"dateRange"` // 7, 30, 90 or all
	IncludeCharts  bool   `json:"includeCharts"`
	IncludeRawData bool   `json:"includeRawData"`
}

// HealthStatus is the backend health check response
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Rates holds the aggregate detection counters and the ratios derived from them.
// All ratios are percentages.
type Rates struct {
	TotalAttacks      int     `json:"totalAttacks"`
	DetectedAttacks   int     `json:"detectedAttacks"`
	MissedAttacks     int     `json:"missedAttacks"`
	FalsePositives    int     `json:"falsePositives"`
	TruePositiveRate  float64 `json:"truePositiveRate"`
	FalsePositiveRate float64 `json:"falsePositiveRate"`
	FalseNegativeRate float64 `json:"falseNegativeRate"`
	Precision         float64 `json:"precision"`
}

// HourlyBucket is one hour-of-day point of the detection-over-time chart
type HourlyBucket struct {
	Hour          int     `json:"hour"`
	Label         string  `json:"time"`
	Detected      float64 `json:"detected"`
	Missed        float64 `json:"missed"`
	FalsePositive float64 `json:"falsePositive"`
	Samples       int     `json:"samples"`
}

// ROCPoint is a single point of the ROC curve, in percent
type ROCPoint struct {
	Threshold float64 `json:"threshold"`
	FPR       float64 `json:"fpr"`
	TPR       float64 `json:"tpr"`
}

// ROCAnalysis is the ROC curve together with its AUC estimate
type ROCAnalysis struct {
	Points      []ROCPoint `json:"points"`
	AUC         float64    `json:"auc"`
	Theoretical bool       `json:"theoretical,omitempty"`
}

// DashboardStats represents the headline numbers of the dashboard page
type DashboardStats struct {
	TotalTests        int     `json:"totalTests"`
	ActiveTests       int     `json:"activeTests"`
	TotalAttacks      int     `json:"totalAttacks"`
	DetectedAttacks   int     `json:"detectedAttacks"`
	DetectionRate     float64 `json:"detectionRate"`
	FalsePositiveRate float64 `json:"falsePositiveRate"`
	AvgDetectionTime  float64 `json:"avgDetectionTime"` // milliseconds
}

// ExploitCategory counts results per attack type
type ExploitCategory struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// SeverityCount counts results per severity
type SeverityCount struct {
	Severity string `json:"severity"`
	Count    int    `json:"count"`
}

// Feed item types
const (
	FeedDetected  = "detected"
	FeedMissed    = "missed"
	FeedStarted   = "started"
	FeedCompleted = "completed"
)

// FeedItem is an entry of the live activity feed
type FeedItem struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"` // detected, missed, started, completed
	Message   string    `json:"message"`
	Severity  string    `json:"severity,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ScenarioCounts is the per-status scenario tally shown as filter tabs
type ScenarioCounts struct {
	All       int `json:"all"`
	Draft     int `json:"draft"`
	Ready     int `json:"ready"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
}

// LabSummary aggregates lab host and detector state
type LabSummary struct {
	Online      int            `json:"online"`
	Offline     int            `json:"offline"`
	Busy        int            `json:"busy"`
	AvgCPU      float64        `json:"avgCpu"`
	AvgMemory   float64        `json:"avgMemory"`
	AvgNetwork  float64        `json:"avgNetwork"`
	ActiveIDS   int            `json:"activeIds"`
	TotalRules  int            `json:"totalRules"`
	HostsByRole map[string]int `json:"hostsByRole"`
}

// DashboardView is the payload of the dashboard page
type DashboardView struct {
	Stats       DashboardStats `json:"stats"`
	RecentTests []Test         `json:"recentTests"`
	Feed        []FeedItem     `json:"feed"`
}

// AnalyticsView is the payload of the analytics page
type AnalyticsView struct {
	Rates      Rates             `json:"rates"`
	Hourly     []HourlyBucket    `json:"hourly"`
	ROC        ROCAnalysis       `json:"roc"`
	Exploits   []ExploitCategory `json:"exploits"`
	Severities []SeverityCount   `json:"severities"`
	TestCount  int               `json:"testCount"`
}

// ScenariosView is the payload of the scenarios page
type ScenariosView struct {
	Scenarios []AttackScenario `json:"scenarios"`
}

// LabView is the payload of the lab monitor page
type LabView struct {
	Environments []LabEnvironment   `json:"environments"`
	IDSConfigs   []IDSConfiguration `json:"idsConfigs"`
}

// ReportsView is the payload of the reports page
type ReportsView struct {
	Reports []Report `json:"reports"`
}

// PollLog is a persisted record of one view poll
type PollLog struct {
	ID        int64     `json:"id"`
	View      string    `json:"view"`
	Outcome   string    `json:"outcome"` // success, error, superseded
	Duration  int64     `json:"durationMs"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ValidScenarioStatus reports whether s is a known scenario status
func ValidScenarioStatus(s string) bool {
	switch s {
	case ScenarioDraft, ScenarioReady, ScenarioRunning, ScenarioCompleted:
		return true
	}
	return false
}

// ValidIDSStatus reports whether s is a known detector status
func ValidIDSStatus(s string) bool {
	return s == "active" || s == "inactive"
}

// ValidReportType reports whether t is a known report type
func ValidReportType(t string) bool {
	switch t {
	case "summary", "detailed", "comparative":
		return true
	}
	return false
}

// ValidReportFormat reports whether f is a supported export format
func ValidReportFormat(f string) bool {
	switch f {
	case "pdf", "csv", "json":
		return true
	}
	return false
}

// SnapshotRecord is the persisted form of a view snapshot
type SnapshotRecord struct {
	View       string    `json:"view"`
	Payload    []byte    `json:"-"`
	Generation uint64    `json:"generation"`
	FetchedAt  time.Time `json:"fetchedAt"`
	Error      string    `json:"error,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
