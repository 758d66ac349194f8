package store

import (
	"fmt"
	"sort"
	"time"
)

type Band string

const (
	Elite      Band = "Elite User"
	Power      Band = "Power User"
	Active     Band = "Active User"
	Regular    Band = "Regular User"
	NoActivity Band = "No activity yet"
)

type Ranking struct {
	Position   int // 1-based, 0 when the user has no record
	Total      int
	Percentile float64
	Band       Band
}

func (r Ranking) String() string {
	switch r.Band {
	case NoActivity:
		return string(NoActivity)
	case Elite:
		return fmt.Sprintf("🏅 Top %d/%d (%s)", r.Position, r.Total, r.Band)
	case Power:
		return fmt.Sprintf("🥈 Top %d/%d (%s)", r.Position, r.Total, r.Band)
	case Active:
		return fmt.Sprintf("🥉 Top %d/%d (%s)", r.Position, r.Total, r.Band)
	default:
		return fmt.Sprintf("📊 #%d/%d (%s)", r.Position, r.Total, r.Band)
	}
}

func bandFor(pct float64) Band {
	switch {
	case pct <= 10:
		return Elite
	case pct <= 30:
		return Power
	case pct <= 60:
		return Active
	default:
		return Regular
	}
}

// byDownloads returns a copy sorted by downloads, descending. Ties keep the
// input order.
func byDownloads(records []UserRecord) []UserRecord {
	sorted := append([]UserRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Downloads > sorted[j].Downloads })
	return sorted
}

// Rank places userID among records. A missing user is not an error.
func Rank(records []UserRecord, userID int64) Ranking {
	sorted := byDownloads(records)
	for i, u := range sorted {
		if u.ID != userID {
			continue
		}
		pos := i + 1
		pct := float64(pos) * 100 / float64(len(sorted))
		return Ranking{Position: pos, Total: len(sorted), Percentile: pct, Band: bandFor(pct)}
	}
	return Ranking{Total: len(sorted), Band: NoActivity}
}

type Summary struct {
	TotalUsers     int
	ActiveToday    int
	NewToday       int
	TotalDownloads int
	AvgPerUser     float64
	Top            []UserRecord
}

// Summarize computes the admin overview. "Today" means the last 24 hours.
func Summarize(records []UserRecord, now time.Time) Summary {
	s := Summary{TotalUsers: len(records)}
	for _, u := range records {
		s.TotalDownloads += u.Downloads
		if now.Sub(u.LastSeen) < 24*time.Hour {
			s.ActiveToday++
		}
		if now.Sub(u.FirstSeen) < 24*time.Hour {
			s.NewToday++
		}
	}
	s.AvgPerUser = float64(s.TotalDownloads) / float64(max(s.TotalUsers, 1))
	top := byDownloads(records)
	if len(top) > 5 {
		top = top[:5]
	}
	s.Top = top
	return s
}
