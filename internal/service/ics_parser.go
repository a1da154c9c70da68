package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
	"unicode"

	ics "github.com/arran4/golang-ical"

	"github.com/krrishnaik/Markly/internal/model"
)

// ── ICS 解析器 ──────────────────────────────────────────────
//
// 职责：将 iCalendar (RFC 5545) 课表展开为按日期的 LectureSlot 列表。
//
//   - DTSTART/DTEND 确定首次上课日期与时间（换算到会议时区）
//   - RRULE 仅展开 FREQ=WEEKLY，支持 INTERVAL / COUNT / UNTIL；其他频率按单次处理
//   - EXDATE 排除停课日期
//   - 无 COUNT/UNTIL 的周重复最多展开 icsMaxWeeks 周
//   - SUMMARY 形如 "CS302 - Data Structures"，拆为课程代码与名称
//   - 同 (代码, 日期, 开始, 结束) 的重复事件合并
// ─────────────────────────────────────────────────────────────

const (
	icsMaxFileSize  = 5 * 1024 * 1024 // 5MB
	icsFetchTimeout = 30 * time.Second
	icsMaxWeeks     = 26
)

// FetchICSContent 从 URL 获取 ICS 内容
func FetchICSContent(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	// webcal:// → https://
	u := rawURL
	if strings.HasPrefix(u, "webcal://") {
		u = "https://" + strings.TrimPrefix(u, "webcal://")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("获取 ICS 失败: %w", err)
	}
	client := &http.Client{Timeout: icsFetchTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("获取 ICS 失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("获取 ICS 失败: HTTP %d", resp.StatusCode)
	}
	// 限制响应体大小，防止恶意 URL 返回超大内容导致 OOM
	return struct {
		io.Reader
		io.Closer
	}{
		Reader: io.LimitReader(resp.Body, icsMaxFileSize),
		Closer: resp.Body,
	}, nil
}

// ParseLectureICS 解析 ICS 内容并展开为课程时段
// branch / year 为该课表的适用专业与年级，写入每个时段
func ParseLectureICS(reader io.Reader, loc *time.Location, branch, year string) ([]model.LectureSlot, error) {
	cal, err := ics.ParseCalendar(reader)
	if err != nil {
		return nil, fmt.Errorf("ICS 格式解析失败: %w", err)
	}
	if loc == nil {
		loc = time.UTC
	}

	type slotKey struct {
		code, date, start, end string
	}
	seen := make(map[slotKey]bool)
	var result []model.LectureSlot

	for _, evt := range cal.Events() {
		code, name, ok := parseSummary(evt)
		if !ok {
			continue
		}
		dtStart, err := parseICSDateTime(evt, ics.ComponentPropertyDtStart, loc)
		if err != nil {
			continue
		}
		dtEnd, err := parseICSDateTime(evt, ics.ComponentPropertyDtEnd, loc)
		if err != nil {
			continue
		}
		start, end := dtStart.Format(model.ClockLayout), dtEnd.Format(model.ClockLayout)
		if start >= end {
			// 跨天或时长为零的事件不是课程
			continue
		}

		for _, day := range expandOccurrences(evt, dtStart, loc) {
			k := slotKey{code, day.Format(model.DateLayout), start, end}
			if seen[k] {
				continue
			}
			seen[k] = true
			result = append(result, model.LectureSlot{
				SubjectCode: code,
				SubjectName: name,
				Date:        k.date,
				StartTime:   start,
				EndTime:     end,
				Branch:      branch,
				Year:        year,
				Source:      "ics",
			})
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.SubjectCode < b.SubjectCode
	})
	return result, nil
}

// parseSummary 拆分 SUMMARY 为课程代码与名称
// "CS302 - Data Structures" → ("CS302", "Data Structures")；无代码时代码取整个标题
func parseSummary(evt *ics.VEvent) (code, name string, ok bool) {
	prop := evt.GetProperty(ics.ComponentPropertySummary)
	if prop == nil {
		return "", "", false
	}
	summary := strings.TrimSpace(prop.Value)
	if summary == "" {
		return "", "", false
	}

	first, rest, _ := strings.Cut(summary, " ")
	if looksLikeSubjectCode(first) {
		name = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(rest), "-:|"))
		if name == "" {
			name = first
		}
		return strings.ToUpper(first), name, true
	}

	code = summary
	if len(code) > 20 {
		code = code[:20]
	}
	return code, summary, true
}

// looksLikeSubjectCode 字母开头、同时包含字母与数字，如 CS302、MA201L
func looksLikeSubjectCode(s string) bool {
	if len(s) < 3 || len(s) > 20 || !unicode.IsLetter(rune(s[0])) {
		return false
	}
	hasDigit := false
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsLetter(r):
		default:
			return false
		}
	}
	return hasDigit
}

// expandOccurrences 根据 RRULE / EXDATE 展开上课日期
func expandOccurrences(evt *ics.VEvent, dtStart time.Time, loc *time.Location) []time.Time {
	rruleProp := evt.GetProperty(ics.ComponentPropertyRrule)
	if rruleProp == nil {
		return []time.Time{dtStart}
	}
	rule := parseRRule(rruleProp.Value)
	if rule.freq != "WEEKLY" {
		return []time.Time{dtStart}
	}

	exDates := parseExDates(evt, loc)
	interval := rule.interval
	if interval < 1 {
		interval = 1
	}

	var days []time.Time
	current := dtStart
	for n := 0; n < icsMaxWeeks*7; n++ {
		if rule.count > 0 && n >= rule.count {
			break
		}
		if !rule.until.IsZero() && current.After(rule.until) {
			break
		}
		if rule.count == 0 && rule.until.IsZero() && n >= icsMaxWeeks {
			break
		}
		if !exDates[current.Format("20060102")] {
			days = append(days, current)
		}
		current = current.AddDate(0, 0, 7*interval)
	}
	return days
}

// rruleParams RRULE 解析结果
type rruleParams struct {
	freq     string
	interval int
	count    int
	until    time.Time
}

// parseRRule 解析 RRULE 字符串（如 FREQ=WEEKLY;COUNT=16;INTERVAL=1）
func parseRRule(value string) rruleParams {
	r := rruleParams{interval: 1}
	for _, part := range strings.Split(value, ";") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToUpper(kv[0]) {
		case "FREQ":
			r.freq = strings.ToUpper(kv[1])
		case "INTERVAL":
			fmt.Sscanf(kv[1], "%d", &r.interval)
		case "COUNT":
			fmt.Sscanf(kv[1], "%d", &r.count)
		case "UNTIL":
			t, err := time.Parse("20060102T150405Z", kv[1])
			if err != nil {
				// 仅日期的 UNTIL 包含当天
				t, _ = time.Parse("20060102", kv[1])
				if !t.IsZero() {
					t = t.Add(24*time.Hour - time.Second)
				}
			}
			r.until = t
		}
	}
	return r
}

// parseExDates 解析事件中所有 EXDATE（支持逗号分隔的多个值）
func parseExDates(evt *ics.VEvent, loc *time.Location) map[string]bool {
	exDates := make(map[string]bool)
	for _, prop := range evt.Properties {
		if prop.IANAToken != string(ics.ComponentPropertyExdate) {
			continue
		}
		for _, v := range strings.Split(prop.Value, ",") {
			t, err := time.Parse("20060102T150405Z", v)
			if err == nil {
				exDates[t.In(loc).Format("20060102")] = true
				continue
			}
			if t, err = time.ParseInLocation("20060102T150405", v, loc); err == nil {
				exDates[t.Format("20060102")] = true
				continue
			}
			if t, err = time.ParseInLocation("20060102", v, loc); err == nil {
				exDates[t.Format("20060102")] = true
			}
		}
	}
	return exDates
}

// parseICSDateTime 从 VEVENT 中解析日期时间属性
func parseICSDateTime(evt *ics.VEvent, propName ics.ComponentProperty, loc *time.Location) (time.Time, error) {
	prop := evt.GetProperty(propName)
	if prop == nil {
		return time.Time{}, fmt.Errorf("missing property %s", propName)
	}
	val := prop.Value

	// 检查 TZID 参数
	tzid := ""
	for k, v := range prop.ICalParameters {
		if strings.ToUpper(k) == "TZID" && len(v) > 0 {
			tzid = v[0]
		}
	}

	for _, layout := range []string{"20060102T150405Z", "20060102T150405", "20060102"} {
		t, err := time.Parse(layout, val)
		if err != nil {
			continue
		}
		if strings.HasSuffix(layout, "Z") {
			return t.In(loc), nil
		}
		if tzid != "" {
			if tzLoc, err := time.LoadLocation(tzid); err == nil {
				return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, tzLoc).In(loc), nil
			}
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), nil
	}

	return time.Time{}, fmt.Errorf("无法解析日期: %s", val)
}
