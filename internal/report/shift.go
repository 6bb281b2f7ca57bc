package report

import (
	"time"

	"github.com/zhaobenny/mpvwatch/internal/model"
	"github.com/zhaobenny/mpvwatch/internal/policy"
)

const dateLayout = "2006/01/02"

// Shift returns the night shift window for now: the running shift in the
// evening and early morning, the one that just ended during the day
func Shift(now time.Time) model.ShiftWindow {
	var start, end time.Time
	switch h := now.Hour(); {
	case h >= policy.ShiftStartHour:
		start, end = now, now.AddDate(0, 0, 1)
	default:
		start, end = now.AddDate(0, 0, -1), now
	}
	return model.ShiftWindow{
		StartDate: start.Format(dateLayout),
		EndDate:   end.Format(dateLayout),
		StartHour: policy.ShiftStartHour,
		EndHour:   policy.ShiftEndHour,
	}
}
