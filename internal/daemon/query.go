package daemon

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"docflow/internal/document"
)

const dateOnlyLayout = "2006-01-02"

// parseIDList accepts repeated and comma separated ids values.
func parseIDList(values []string) ([]int64, error) {
	var ids []int64
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				return nil, fmt.Errorf("ids: %q is not a positive integer", part)
			}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("ids: at least one id is required")
	}
	return ids, nil
}

func parsePage(pageValue, sizeValue string) (document.PageRequest, error) {
	var req document.PageRequest
	if v := strings.TrimSpace(pageValue); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return req, fmt.Errorf("page: must be a non-negative integer")
		}
		req.Page = n
	}
	if v := strings.TrimSpace(sizeValue); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > document.MaxPageSize {
			return req, fmt.Errorf("size: must be between 1 and %d", document.MaxPageSize)
		}
		req.Size = n
	}
	return req.Normalize(), nil
}

func parseSearchFilter(status, author, from, to string) (document.SearchFilter, error) {
	var filter document.SearchFilter
	if v := strings.TrimSpace(status); v != "" {
		parsed, ok := document.ParseStatus(v)
		if !ok {
			return filter, fmt.Errorf("status: unknown value %q", v)
		}
		filter.Status = parsed
	}
	filter.Author = strings.TrimSpace(author)

	var err error
	if filter.CreatedFrom, err = parseTimeBound(from, false); err != nil {
		return filter, fmt.Errorf("dateFrom: %w", err)
	}
	if filter.CreatedTo, err = parseTimeBound(to, true); err != nil {
		return filter, fmt.Errorf("dateTo: %w", err)
	}
	return filter, nil
}

// parseTimeBound accepts RFC 3339 timestamps or plain dates. A plain date used
// as an upper bound covers the whole day.
func parseTimeBound(value string, upper bool) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		ts = ts.UTC()
		return &ts, nil
	}
	day, err := time.Parse(dateOnlyLayout, value)
	if err != nil {
		return nil, fmt.Errorf("expected RFC 3339 timestamp or YYYY-MM-DD, got %q", value)
	}
	if upper {
		day = day.Add(24*time.Hour - time.Nanosecond)
	}
	return &day, nil
}
