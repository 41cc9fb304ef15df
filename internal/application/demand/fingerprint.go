package demand

import (
	"encoding/hex"
	"fmt"
	"hash"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/rezkam/demand/internal/domain"
)

// Fingerprint returns a stable digest of everything a build depends on:
// the tasks, the catalog and the month window. Input order does not matter.
func Fingerprint(tasks []domain.RecurringTask, catalog Catalog, window domain.MonthWindow) string {
	h, err := blake2b.New256(nil)
	if err != nil {
		// Only reachable with an oversized key.
		panic(fmt.Sprintf("blake2b: %v", err))
	}

	field(h, "window", window.Start.Format(time.RFC3339), strconv.Itoa(window.Count))

	for _, s := range catalog.Skills() {
		field(h, "skill", s)
	}
	for _, c := range catalog.Clients() {
		field(h, "client", c.ID, c.Name)
	}
	for _, s := range catalog.StaffMembers() {
		field(h, "staff", s.ID, s.Name, s.RoleTitle)
	}

	sorted := slices.Clone(tasks)
	slices.SortFunc(sorted, func(a, b domain.RecurringTask) int { return strings.Compare(a.ID, b.ID) })
	for _, t := range sorted {
		r := t.Recurrence
		end := ""
		if r.EndDate != nil {
			end = r.EndDate.UTC().Format(time.RFC3339Nano)
		}
		staff := ""
		if t.PreferredStaffID != nil {
			staff = domain.NormalizeStaffID(*t.PreferredStaffID)
		}
		months := make([]string, len(r.Months))
		for i, m := range r.Months {
			months[i] = strconv.Itoa(int(m))
		}
		field(h, "task", t.ID, t.Name, t.ClientID, t.SkillType,
			strconv.FormatFloat(t.EstimatedHours, 'g', -1, 64),
			string(r.Pattern), strconv.Itoa(r.Interval),
			r.StartDate.UTC().Format(time.RFC3339Nano), end,
			strings.Join(months, ","), staff, strconv.FormatBool(t.IsActive))
	}

	return hex.EncodeToString(h.Sum(nil))
}

// field writes one record with unit separators so adjacent values cannot collide.
func field(h hash.Hash, kind string, values ...string) {
	h.Write([]byte(kind))
	for _, v := range values {
		h.Write([]byte{0x1f})
		h.Write([]byte(v))
	}
	h.Write([]byte{0x1e})
}
