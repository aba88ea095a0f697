package reporter

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"focusmru/internal/config"
	"focusmru/internal/database"
	"focusmru/internal/models"
	"focusmru/pkg/utils"
)

// Reporter handles report generation
type Reporter struct {
	config *config.Config
	repo   *database.Repository
	now    func() time.Time
}

// New creates a new reporter
func New(cfg *config.Config, repo *database.Repository) *Reporter {
	return &Reporter{
		config: cfg,
		repo:   repo,
		now:    time.Now,
	}
}

// GenerateReport counts activations per application for the period
func (r *Reporter) GenerateReport(periodType string) (*models.Report, error) {
	period, err := r.Period(periodType)
	if err != nil {
		return nil, err
	}

	summaries, err := r.repo.GetActivationSummarySince(period.Start)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get activation summary")
	}

	total := 0
	for _, s := range summaries {
		total += s.Activations
	}
	if total > 0 {
		for i := range summaries {
			summaries[i].Percentage = float64(summaries[i].Activations) / float64(total) * 100.0
		}
	}

	return &models.Report{
		Period:           *period,
		Apps:             summaries,
		TotalActivations: total,
		GeneratedAt:      r.now(),
	}, nil
}

func (r *Reporter) location() *time.Location {
	tz := r.config.Report.TimeZone
	if tz == "" || tz == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Local
	}
	return loc
}

// Period calculates the time range of a day, week or month report
func (r *Reporter) Period(periodType string) (*models.ReportPeriod, error) {
	now := r.now().In(r.location())
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	var start, end time.Time

	switch periodType {
	case "day", "today":
		start = today
		end = start.AddDate(0, 0, 1)

	case "week":
		// Weeks start on Monday
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		start = today.AddDate(0, 0, -(weekday - 1))
		end = start.AddDate(0, 0, 7)

	case "month":
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 1, 0)

	default:
		return nil, errors.Errorf("invalid period type: %s (valid: day, week, month)", periodType)
	}

	return &models.ReportPeriod{
		Start: start,
		End:   end,
		Type:  periodType,
	}, nil
}

// FormatReportText formats the report as human-readable text
func (r *Reporter) FormatReportText(report *models.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Activation Report - %s\n", report.Period.Type)
	fmt.Fprintf(&b, "Period: %s to %s\n",
		report.Period.Start.Format("2006-01-02 15:04"),
		report.Period.End.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Total Activations: %d\n\n", report.TotalActivations)

	if len(report.Apps) == 0 {
		b.WriteString("No activations recorded for this period.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "%-30s %-30s %8s %8s %10s\n", "Application", "Bundle", "Count", "Percent", "Last seen")
	b.WriteString(strings.Repeat("-", 90) + "\n")

	for _, app := range report.Apps {
		lastSeen := "-"
		if !app.LastSeen.IsZero() {
			lastSeen = utils.FormatRoundedUnit(int64(report.GeneratedAt.Sub(app.LastSeen).Seconds())) + " ago"
		}
		fmt.Fprintf(&b, "%-30s %-30s %8d %7.1f%% %10s\n",
			utils.Truncate(app.AppName, 30),
			utils.Truncate(app.BundleID, 30),
			app.Activations,
			app.Percentage,
			lastSeen)
	}

	return b.String()
}

// FormatReportJSON formats the report as JSON
func (r *Reporter) FormatReportJSON(report *models.Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal JSON")
	}
	return string(data), nil
}
