package demand

import (
	"fmt"
	"math"
	"strings"

	"github.com/rezkam/demand/internal/domain"
	"github.com/rezkam/demand/internal/recurring"
)

// ExtractResult is the output of one extraction pass.
type ExtractResult struct {
	Entries []domain.TaskBreakdownEntry

	// Skipped holds the tasks dropped for malformed or dangling references.
	Skipped []*domain.ExtractionError

	// Issues are human-readable warnings, including every skipped task.
	Issues []string
}

// Extractor turns recurring task definitions into per-month breakdown entries.
type Extractor struct {
	strict bool
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithStrictExtraction makes Extract fail on the first ExtractionError
// instead of skipping the task.
func WithStrictExtraction(strict bool) ExtractorOption {
	return func(x *Extractor) {
		x.strict = strict
	}
}

// NewExtractor creates an Extractor. By default malformed tasks are skipped.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	x := &Extractor{}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Extract produces one entry per (task, month) the task is due in within window.
// Months without an occurrence produce no entry. Inactive tasks are ignored.
//
// In the default mode the returned error is always nil; strict mode returns the
// first *domain.ExtractionError encountered.
func (x *Extractor) Extract(tasks []domain.RecurringTask, catalog Catalog, window domain.MonthWindow) (ExtractResult, error) {
	var result ExtractResult
	months := window.Months()

	for _, task := range tasks {
		if !task.IsActive {
			continue
		}

		client, counts, err := x.resolve(task, catalog, window)
		if err != nil {
			if x.strict {
				return ExtractResult{}, err
			}
			result.Skipped = append(result.Skipped, err)
			result.Issues = append(result.Issues, err.Error())
			continue
		}

		staff, issue := resolvePreferredStaff(task, catalog)
		if issue != "" {
			result.Issues = append(result.Issues, issue)
		}

		for _, month := range months {
			n := counts[month.Key]
			if n == 0 {
				continue
			}
			result.Entries = append(result.Entries, domain.TaskBreakdownEntry{
				ClientID:          task.ClientID,
				ClientName:        client.Name,
				RecurringTaskID:   task.ID,
				TaskName:          task.Name,
				SkillType:         strings.TrimSpace(task.SkillType),
				EstimatedHours:    task.EstimatedHours,
				MonthlyHours:      task.EstimatedHours * float64(n),
				Month:             month.Key,
				RecurrencePattern: task.Recurrence.Pattern,
				PreferredStaff:    staff,
			})
		}
	}

	return result, nil
}

func (x *Extractor) resolve(task domain.RecurringTask, catalog Catalog, window domain.MonthWindow) (domain.Client, map[string]int, *domain.ExtractionError) {
	if !catalog.HasSkill(task.SkillType) {
		return domain.Client{}, nil, &domain.ExtractionError{TaskID: task.ID, Field: "skill_type", Reason: fmt.Sprintf("unknown skill %q", task.SkillType)}
	}

	client, ok := catalog.Client(task.ClientID)
	if !ok {
		return domain.Client{}, nil, &domain.ExtractionError{TaskID: task.ID, Field: "client_id", Reason: fmt.Sprintf("unknown client %q", task.ClientID)}
	}

	if task.EstimatedHours < 0 || math.IsNaN(task.EstimatedHours) || math.IsInf(task.EstimatedHours, 0) {
		return domain.Client{}, nil, &domain.ExtractionError{TaskID: task.ID, Field: "estimated_hours", Reason: fmt.Sprintf("invalid hours %v", task.EstimatedHours)}
	}

	counts, err := recurring.MonthlyOccurrences(task.Recurrence, window)
	if err != nil {
		return domain.Client{}, nil, &domain.ExtractionError{TaskID: task.ID, Field: "recurrence", Reason: err.Error()}
	}

	return client, counts, nil
}

// resolvePreferredStaff resolves the task's staff reference once so later stages
// only ever see the tagged variant.
func resolvePreferredStaff(task domain.RecurringTask, catalog Catalog) (domain.PreferredStaffRef, string) {
	if task.PreferredStaffID == nil || strings.TrimSpace(*task.PreferredStaffID) == "" {
		return domain.Unassigned(), ""
	}

	staff, ok := catalog.Staff(*task.PreferredStaffID)
	if !ok {
		return domain.Unassigned(), fmt.Sprintf("task %s: preferred staff %q not found, treated as unassigned", task.ID, *task.PreferredStaffID)
	}

	return domain.AssignedTo(staff.ID, staff.Name), ""
}
