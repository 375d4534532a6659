package scheduler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"tcgrabber/pkg/logger"
)

const defaultDailyExpr = "0 2 * * *"

var (
	everyUnitsRe = regexp.MustCompile(`^every (\d+) (hour|hours|minute|minutes)$`)
	dailyAtRe    = regexp.MustCompile(`^every day at (\d{1,2}):(\d{2})$`)
)

// ParseSpec compiles a human cadence into a cron schedule. Recognized
// forms are "hourly", "daily", "weekly", "every N hours", "every N
// minutes" and "every day at HH:MM". Anything else falls back to daily
// at 02:00 with a warning, so a typo in a config file degrades the
// cadence instead of killing the daemon.
func ParseSpec(spec string, loc *time.Location, log logger.Logger) cron.Schedule {
	normalized := strings.ToLower(strings.TrimSpace(spec))

	switch normalized {
	case "hourly":
		return cron.Every(time.Hour)
	case "daily":
		return mustStandard(defaultDailyExpr, loc)
	case "weekly":
		// Sunday at 02:00
		return mustStandard("0 2 * * 0", loc)
	}

	if m := everyUnitsRe.FindStringSubmatch(normalized); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n > 0 {
			unit := time.Hour
			if strings.HasPrefix(m[2], "minute") {
				unit = time.Minute
			}
			return cron.Every(time.Duration(n) * unit)
		}
	}

	if m := dailyAtRe.FindStringSubmatch(normalized); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour < 24 && minute < 60 {
			return mustStandard(fmt.Sprintf("%d %d * * *", minute, hour), loc)
		}
	}

	log.WarnWithFields("Unrecognized schedule, falling back to daily at 02:00", map[string]interface{}{
		"schedule": spec,
	})
	return mustStandard(defaultDailyExpr, loc)
}

// ParseCron compiles a standard 5-field cron expression, evaluated in
// the given timezone.
func ParseCron(expr string, loc *time.Location) (cron.Schedule, error) {
	schedule, err := cron.ParseStandard(withTimezone(expr, loc))
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return schedule, nil
}

// Resolve picks the schedule for a daemon: the cron expression when
// one is set and valid, otherwise the cadence spec. An invalid cron
// expression is logged and the cadence takes over.
func Resolve(spec, cronExpr string, loc *time.Location, log logger.Logger) cron.Schedule {
	if cronExpr != "" {
		schedule, err := ParseCron(cronExpr, loc)
		if err == nil {
			return schedule
		}
		log.ErrorWithFields("Invalid cron expression, falling back to schedule", map[string]interface{}{
			"cron_expression": cronExpr,
			"error":           err.Error(),
		})
	}
	return ParseSpec(spec, loc, log)
}

func withTimezone(expr string, loc *time.Location) string {
	if loc == nil || loc == time.Local {
		return expr
	}
	return "CRON_TZ=" + loc.String() + " " + expr
}

func mustStandard(expr string, loc *time.Location) cron.Schedule {
	schedule, err := cron.ParseStandard(withTimezone(expr, loc))
	if err != nil {
		// only reachable with a bad built-in expression
		panic(err)
	}
	return schedule
}
