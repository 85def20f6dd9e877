package utils

import (
	"strconv"
	"strings"
	"time"

	"github.com/gathrio/gathrio/internal/domain/event"
)

// BuildEventsListCacheKey derives a stable cache key from the listing
// filter. Every filter dimension must participate or two different result
// sets would collide under one key.
func BuildEventsListCacheKey(f event.ListEventsFilter) string {
	var b strings.Builder

	b.WriteString("limit=" + strconv.Itoa(f.Limit))
	b.WriteString(":offset=" + strconv.Itoa(f.Offset))
	b.WriteString(":status=" + strPart(f.Status))
	b.WriteString(":category=" + strPart(f.Category))
	b.WriteString(":type=" + strPart(f.EventType))
	b.WriteString(":search=" + strPart(f.Search))
	b.WriteString(":location=" + strPart(f.Location))
	b.WriteString(":from=" + timePart(f.StartDate))
	b.WriteString(":to=" + timePart(f.EndDate))
	b.WriteString(":featured=" + boolPart(f.IsFeatured))
	b.WriteString(":minp=" + floatPart(f.MinPrice))
	b.WriteString(":maxp=" + floatPart(f.MaxPrice))

	return b.String()
}

func strPart(p *string) string {
	if p == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(*p))
}

func timePart(p *time.Time) string {
	if p == nil {
		return ""
	}
	return p.UTC().Format(time.RFC3339Nano)
}

func boolPart(p *bool) string {
	if p == nil {
		return ""
	}
	return strconv.FormatBool(*p)
}

func floatPart(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}
