package transcript

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/grovetools/claudelogs/errors"
)

// SortField is a session metadata sort key.
type SortField string

const (
	SortByLastUpdate   SortField = "lastUpdate"
	SortByStartTime    SortField = "startTime"
	SortByMessageCount SortField = "messageCount"
	SortByFileSize     SortField = "fileSize"
)

// Valid reports whether f is a known sort key.
func (f SortField) Valid() bool {
	switch f {
	case SortByLastUpdate, SortByStartTime, SortByMessageCount, SortByFileSize:
		return true
	}
	return false
}

// SortOrder is ascending or descending.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Valid reports whether o is asc or desc.
func (o SortOrder) Valid() bool {
	return o == SortAsc || o == SortDesc
}

// DefaultPageLimit is used when a query does not set a limit.
const DefaultPageLimit = 50

// PageOptions selects one offset-based page of session metadata.
type PageOptions struct {
	Limit     int
	Offset    int
	SortBy    SortField
	SortOrder SortOrder
	Search    string
}

// Page is one offset-based page.
type Page struct {
	Sessions []SessionMetadata `json:"sessions"`
	Total    int               `json:"total"`
	HasMore  bool              `json:"hasMore"`
}

// CursorOptions selects one cursor-based page. StartDate and EndDate bound
// LastUpdate inclusively when set.
type CursorOptions struct {
	Cursor    string
	Limit     int
	SortBy    SortField
	SortOrder SortOrder
	Search    string
	StartDate time.Time
	EndDate   time.Time
}

// CursorPage is one cursor-based page. NextCursor is empty on the last
// page.
type CursorPage struct {
	Sessions   []SessionMetadata `json:"sessions"`
	NextCursor string            `json:"nextCursor,omitempty"`
	HasMore    bool              `json:"hasMore"`
}

func normalizeSort(by SortField, order SortOrder) (SortField, SortOrder, error) {
	if by == "" {
		by = SortByLastUpdate
	}
	if order == "" {
		order = SortDesc
	}
	if !by.Valid() {
		return by, order, errors.InvalidInput("sortBy", string(by), "must be lastUpdate, startTime, messageCount or fileSize")
	}
	if !order.Valid() {
		return by, order, errors.InvalidInput("sortOrder", string(order), "must be asc or desc")
	}
	return by, order, nil
}

func normalizeLimit(limit int) (int, error) {
	if limit < 0 {
		return 0, errors.InvalidInput("limit", limit, "must not be negative")
	}
	if limit == 0 {
		return DefaultPageLimit, nil
	}
	return limit, nil
}

// sortKey is the numeric representation of a metadata sort field, shared
// by sorting and cursors.
func sortKey(m SessionMetadata, by SortField) float64 {
	switch by {
	case SortByStartTime:
		return float64(m.StartTime.UnixMilli())
	case SortByMessageCount:
		return float64(m.MessageCount)
	case SortByFileSize:
		return float64(m.FileSize)
	default:
		return float64(m.LastUpdate.UnixMilli())
	}
}

// sortMetadata sorts in place. Ties are broken by session id so pages are
// stable across calls.
func sortMetadata(items []SessionMetadata, by SortField, order SortOrder) {
	sort.SliceStable(items, func(i, j int) bool {
		return before(sortKey(items[i], by), items[i].SessionID,
			sortKey(items[j], by), items[j].SessionID, order)
	})
}

// before reports whether (ka, ida) sorts ahead of (kb, idb).
func before(ka float64, ida string, kb float64, idb string, order SortOrder) bool {
	if ka == kb {
		return ida < idb
	}
	if order == SortAsc {
		return ka < kb
	}
	return ka > kb
}

// filterSearch keeps items whose id or previews contain term, ignoring case.
func filterSearch(items []SessionMetadata, term string) []SessionMetadata {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return items
	}
	out := make([]SessionMetadata, 0, len(items))
	for _, m := range items {
		if strings.Contains(strings.ToLower(m.SessionID), term) ||
			strings.Contains(strings.ToLower(m.FirstMessagePreview), term) ||
			strings.Contains(strings.ToLower(m.LastMessagePreview), term) {
			out = append(out, m)
		}
	}
	return out
}

func filterDates(items []SessionMetadata, start, end time.Time) []SessionMetadata {
	if start.IsZero() && end.IsZero() {
		return items
	}
	out := make([]SessionMetadata, 0, len(items))
	for _, m := range items {
		if !start.IsZero() && m.LastUpdate.Before(start) {
			continue
		}
		if !end.IsZero() && m.LastUpdate.After(end) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// paginate applies search, sort and offset/limit to items.
func paginate(items []SessionMetadata, opts PageOptions) (Page, error) {
	by, order, err := normalizeSort(opts.SortBy, opts.SortOrder)
	if err != nil {
		return Page{}, err
	}
	limit, err := normalizeLimit(opts.Limit)
	if err != nil {
		return Page{}, err
	}
	if opts.Offset < 0 {
		return Page{}, errors.InvalidInput("offset", opts.Offset, "must not be negative")
	}

	filtered := filterSearch(items, opts.Search)
	sortMetadata(filtered, by, order)

	total := len(filtered)
	start := min(opts.Offset, total)
	end := min(start+limit, total)

	page := make([]SessionMetadata, end-start)
	copy(page, filtered[start:end])
	return Page{
		Sessions: page,
		Total:    total,
		HasMore:  opts.Offset+limit < total,
	}, nil
}

// cursorPaginate applies search, date range, sort and cursor resume.
func cursorPaginate(items []SessionMetadata, opts CursorOptions) (CursorPage, error) {
	by, order, err := normalizeSort(opts.SortBy, opts.SortOrder)
	if err != nil {
		return CursorPage{}, err
	}
	limit, err := normalizeLimit(opts.Limit)
	if err != nil {
		return CursorPage{}, err
	}

	filtered := filterDates(filterSearch(items, opts.Search), opts.StartDate, opts.EndDate)
	sortMetadata(filtered, by, order)

	start := 0
	if opts.Cursor != "" {
		if c, err := DecodeCursor(opts.Cursor); err == nil && c.SortBy == by && c.SortOrder == order {
			start = resumeIndex(filtered, c)
		}
	}

	end := min(start+limit, len(filtered))
	page := make([]SessionMetadata, end-start)
	copy(page, filtered[start:end])

	result := CursorPage{Sessions: page, HasMore: end < len(filtered)}
	if result.HasMore && len(page) > 0 {
		result.NextCursor = EncodeCursor(Cursor{
			Value:     sortKey(page[len(page)-1], by),
			ID:        page[len(page)-1].SessionID,
			SortBy:    by,
			SortOrder: order,
		})
	}
	return result, nil
}

// resumeIndex is the first position strictly past (value, id) in the sort
// order, so a page that ends inside a run of equal keys resumes within it.
func resumeIndex(sorted []SessionMetadata, c Cursor) int {
	return sort.Search(len(sorted), func(i int) bool {
		return before(c.Value, c.ID, sortKey(sorted[i], c.SortBy), sorted[i].SessionID, c.SortOrder)
	})
}

// SessionsPaginated returns one offset-based page of the project's session
// metadata.
func (s *Service) SessionsPaginated(ctx context.Context, projectPath string, opts PageOptions) (Page, error) {
	items, err := s.SessionsMetadata(ctx, projectPath)
	if err != nil {
		return Page{}, err
	}
	return paginate(items, opts)
}

// SessionsCursor returns one cursor-based page of the project's session
// metadata. A cursor that cannot be decoded, or that was issued for another
// sort, restarts from the first item.
func (s *Service) SessionsCursor(ctx context.Context, projectPath string, opts CursorOptions) (CursorPage, error) {
	items, err := s.SessionsMetadata(ctx, projectPath)
	if err != nil {
		return CursorPage{}, err
	}
	return cursorPaginate(items, opts)
}
