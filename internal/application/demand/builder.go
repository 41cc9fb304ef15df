package demand

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/rezkam/demand/internal/domain"
)

// UnassignedBucket labels the cells of a staff-based matrix that hold work
// without a preferred staff member.
const UnassignedBucket = "Unassigned"

// BuildResult is a built matrix plus the non-fatal issues found while building it.
type BuildResult struct {
	Matrix           *domain.DemandMatrix `json:"matrix"`
	ValidationIssues []string             `json:"validationIssues"`
}

// MatrixBuilder builds matrices from breakdown entries.
type MatrixBuilder interface {
	Build(entries []domain.TaskBreakdownEntry, strategy domain.AggregationStrategy, window domain.MonthWindow) BuildResult
}

// Builder groups breakdown entries into matrix cells.
// The dimension picks the row bucket of skill-based builds.
type Builder struct {
	dimension domain.Dimension
}

// NewBuilder creates a Builder for dimension. An empty dimension means skill.
func NewBuilder(dimension domain.Dimension) *Builder {
	if dimension == "" {
		dimension = domain.DimensionSkill
	}
	return &Builder{dimension: dimension}
}

// Dimension returns the row dimension of skill-based builds.
func (b *Builder) Dimension() domain.Dimension {
	return b.dimension
}

// Build groups entries by (bucket, month) according to strategy.
// Building twice from the same input yields deep-equal results.
func (b *Builder) Build(entries []domain.TaskBreakdownEntry, strategy domain.AggregationStrategy, window domain.MonthWindow) BuildResult {
	months := window.Months()
	monthIndex := make(map[string]int, len(months))
	for i, m := range months {
		monthIndex[m.Key] = i
	}

	matrix := &domain.DemandMatrix{
		Months:    months,
		Strategy:  strategy,
		Dimension: b.dimension,
	}

	var issues []string
	inWindow := make([]domain.TaskBreakdownEntry, 0, len(entries))
	for _, e := range entries {
		if _, ok := monthIndex[e.Month]; !ok {
			issues = append(issues, fmt.Sprintf("task %s: month %q outside matrix window, entry dropped", e.RecurringTaskID, e.Month))
			continue
		}
		inWindow = append(inWindow, e)
	}

	if strategy == domain.StrategyStaffBased {
		b.buildStaffBased(matrix, inWindow, monthIndex)
	} else {
		matrix.Strategy = domain.StrategySkillBased
		b.buildSkillBased(matrix, inWindow, monthIndex)
	}

	matrix.RecomputeTotals()
	issues = append(issues, ValidateMatrix(matrix)...)

	return BuildResult{Matrix: matrix, ValidationIssues: issues}
}

func (b *Builder) buildSkillBased(matrix *domain.DemandMatrix, entries []domain.TaskBreakdownEntry, monthIndex map[string]int) {
	groups := make(map[string][][]domain.TaskBreakdownEntry)
	for _, e := range entries {
		bucket := e.SkillType
		if b.dimension == domain.DimensionClient {
			bucket = e.ClientName
		}
		addToGroup(groups, bucket, monthIndex[e.Month], len(monthIndex), e)
	}

	buckets := make([]string, 0, len(groups))
	for bucket := range groups {
		buckets = append(buckets, bucket)
	}
	slices.Sort(buckets)

	matrix.Skills = buckets
	for _, bucket := range buckets {
		matrix.DataPoints = append(matrix.DataPoints, cells(bucket, matrix.Months, groups[bucket], func(p *domain.DataPoint) {})...)
	}
}

type staffBucket struct {
	id    string
	name  string
	label string
}

func (b *Builder) buildStaffBased(matrix *domain.DemandMatrix, entries []domain.TaskBreakdownEntry, monthIndex map[string]int) {
	groups := make(map[string][][]domain.TaskBreakdownEntry)
	names := make(map[string]string)
	unassigned := make([][]domain.TaskBreakdownEntry, len(monthIndex))

	for _, e := range entries {
		if !e.PreferredStaff.IsAssigned() {
			unassigned[monthIndex[e.Month]] = append(unassigned[monthIndex[e.Month]], e)
			continue
		}
		id := e.PreferredStaff.StaffID
		addToGroup(groups, id, monthIndex[e.Month], len(monthIndex), e)
		if _, ok := names[id]; !ok {
			names[id] = cmp.Or(e.PreferredStaff.StaffName, id)
		}
	}

	buckets := make([]staffBucket, 0, len(groups))
	nameCount := make(map[string]int)
	for id, name := range names {
		buckets = append(buckets, staffBucket{id: id, name: name})
		nameCount[name]++
	}
	// Two staff members sharing a name must not merge into one row, and no
	// staff row may shadow the unassigned bucket.
	for i := range buckets {
		buckets[i].label = buckets[i].name
		if nameCount[buckets[i].name] > 1 || buckets[i].name == UnassignedBucket {
			buckets[i].label = fmt.Sprintf("%s (%s)", buckets[i].name, buckets[i].id)
		}
	}
	slices.SortFunc(buckets, func(x, y staffBucket) int {
		return cmp.Or(strings.Compare(x.name, y.name), strings.Compare(x.id, y.id))
	})

	for _, bucket := range buckets {
		matrix.Skills = append(matrix.Skills, bucket.label)
		name := bucket.name
		matrix.DataPoints = append(matrix.DataPoints, cells(bucket.label, matrix.Months, groups[bucket.id], func(p *domain.DataPoint) {
			p.IsStaffSpecific = true
			p.ActualStaffName = name
		})...)
	}

	matrix.Unassigned = cells(UnassignedBucket, matrix.Months, unassigned, func(p *domain.DataPoint) {})
}

func addToGroup(groups map[string][][]domain.TaskBreakdownEntry, bucket string, month, monthCount int, e domain.TaskBreakdownEntry) {
	g, ok := groups[bucket]
	if !ok {
		g = make([][]domain.TaskBreakdownEntry, monthCount)
		groups[bucket] = g
	}
	g[month] = append(g[month], e)
}

// cells turns per-month entry lists into data points, skipping empty months.
func cells(bucket string, months []domain.MonthColumn, perMonth [][]domain.TaskBreakdownEntry, decorate func(*domain.DataPoint)) []domain.DataPoint {
	var out []domain.DataPoint
	for i, entries := range perMonth {
		if len(entries) == 0 {
			continue
		}
		sortEntries(entries)
		p := domain.DataPoint{
			SkillType:     bucket,
			Month:         months[i].Key,
			MonthLabel:    months[i].Label,
			TaskBreakdown: entries,
		}
		decorate(&p)
		p.Recompute()
		out = append(out, p)
	}
	return out
}

func sortEntries(entries []domain.TaskBreakdownEntry) {
	slices.SortStableFunc(entries, func(a, b domain.TaskBreakdownEntry) int {
		return cmp.Or(
			strings.Compare(a.ClientName, b.ClientName),
			strings.Compare(a.TaskName, b.TaskName),
			strings.Compare(a.RecurringTaskID, b.RecurringTaskID),
		)
	})
}
