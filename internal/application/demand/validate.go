package demand

import (
	"fmt"
	"math"

	"github.com/rezkam/demand/internal/domain"
)

const hoursTolerance = 1e-9

// ValidateMatrix re-checks the structural invariants of m and returns one message
// per violation. It never fails; callers surface the messages as warnings.
func ValidateMatrix(m *domain.DemandMatrix) []string {
	var issues []string

	months := make(map[string]struct{}, len(m.Months))
	for _, mc := range m.Months {
		months[mc.Key] = struct{}{}
	}
	skills := make(map[string]struct{}, len(m.Skills))
	for _, s := range m.Skills {
		skills[s] = struct{}{}
	}

	var total float64
	check := func(p domain.DataPoint, inSkills bool) {
		cell := fmt.Sprintf("cell %s/%s", p.SkillType, p.Month)

		var sum float64
		clients := make(map[string]struct{}, len(p.TaskBreakdown))
		for _, e := range p.TaskBreakdown {
			if e.MonthlyHours < 0 {
				issues = append(issues, fmt.Sprintf("%s: task %s has negative monthly hours %v", cell, e.RecurringTaskID, e.MonthlyHours))
			}
			sum += e.MonthlyHours
			clients[e.ClientID] = struct{}{}
		}
		total += p.DemandHours

		if !withinTolerance(p.DemandHours, sum) {
			issues = append(issues, fmt.Sprintf("%s: demand hours %v != breakdown sum %v", cell, p.DemandHours, sum))
		}
		if p.TaskCount != len(p.TaskBreakdown) {
			issues = append(issues, fmt.Sprintf("%s: task count %d != breakdown length %d", cell, p.TaskCount, len(p.TaskBreakdown)))
		}
		if p.ClientCount != len(clients) {
			issues = append(issues, fmt.Sprintf("%s: client count %d != distinct clients %d", cell, p.ClientCount, len(clients)))
		}
		if _, ok := months[p.Month]; !ok {
			issues = append(issues, fmt.Sprintf("%s: month not in matrix months", cell))
		}
		if _, ok := skills[p.SkillType]; inSkills && !ok {
			issues = append(issues, fmt.Sprintf("%s: bucket not in matrix skills", cell))
		}
	}

	for _, p := range m.DataPoints {
		check(p, true)
	}
	for _, p := range m.Unassigned {
		check(p, false)
	}

	if !withinTolerance(m.TotalDemand, total) {
		issues = append(issues, fmt.Sprintf("total demand %v != sum of cells %v", m.TotalDemand, total))
	}

	return issues
}

func withinTolerance(a, b float64) bool {
	return math.Abs(a-b) <= hoursTolerance*math.Max(1, math.Abs(b))
}
