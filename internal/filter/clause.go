package filter

import (
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	tokenNot         = "not"
	tokenCurrentUser = "current-user"
	tokenNow         = "NOW"
)

// Scope is the value of an id-list or scope clause. "current-user" stays
// symbolic until Resolve is called with the caller's id.
type Scope struct {
	None        bool
	CurrentUser bool
	IDs         []int64
}

// Resolve returns the caller id followed by the explicit ids when the scope
// names the current user, otherwise the explicit ids.
func (s Scope) Resolve(currentID int64) []int64 {
	if !s.CurrentUser {
		return slices.Clone(s.IDs)
	}
	ids := make([]int64, 0, len(s.IDs)+1)
	ids = append(ids, currentID)
	for _, id := range s.IDs {
		if id != currentID {
			ids = append(ids, id)
		}
	}
	return ids
}

func (s Scope) String() string {
	if s.None {
		return tokenNot
	}
	parts := make([]string, 0, len(s.IDs)+1)
	if s.CurrentUser {
		parts = append(parts, tokenCurrentUser)
	}
	for _, id := range s.IDs {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return strings.Join(parts, ",")
}

func (s Scope) merge(other Scope) Scope {
	out := Scope{
		None:        s.None || other.None,
		CurrentUser: s.CurrentUser || other.CurrentUser,
		IDs:         slices.Clone(s.IDs),
	}
	for _, id := range other.IDs {
		if !slices.Contains(out.IDs, id) {
			out.IDs = append(out.IDs, id)
		}
	}
	return out
}

// DateRange bounds are inclusive. A nil bound is open; ToNow pins the upper
// bound to the evaluation time.
type DateRange struct {
	From  *time.Time
	To    *time.Time
	ToNow bool
}

func (d DateRange) Bounds(now time.Time) (from, to *time.Time) {
	from = d.From
	to = d.To
	if d.ToNow {
		n := now
		to = &n
	}
	return from, to
}

func (d DateRange) String() string {
	parts := make([]string, 0, 2)
	if d.From != nil {
		parts = append(parts, "FROM="+strconv.FormatInt(d.From.Unix(), 10))
	}
	if d.ToNow {
		parts = append(parts, "TO="+tokenNow)
	} else if d.To != nil {
		parts = append(parts, "TO="+strconv.FormatInt(d.To.Unix(), 10))
	}
	return strings.Join(parts, ",")
}

// AttributeValues matches tasks whose custom attribute holds any of Values.
type AttributeValues struct {
	AttributeID int64
	Values      []string
}

func (a AttributeValues) String() string {
	return strconv.FormatInt(a.AttributeID, 10) + "=" + strings.Join(a.Values, ",")
}

// ClauseSet is the typed form of one filter expression, keyed by registry
// attribute key.
type ClauseSet struct {
	Scopes     map[string]Scope
	Dates      map[string]DateRange
	Bools      map[string]bool
	Texts      map[string]string
	Attributes []AttributeValues
}

func (c ClauseSet) Empty() bool {
	return len(c.Scopes) == 0 && len(c.Dates) == 0 && len(c.Bools) == 0 &&
		len(c.Texts) == 0 && len(c.Attributes) == 0
}

func (c ClauseSet) Scope(key string) (Scope, bool) {
	s, ok := c.Scopes[key]
	return s, ok
}

func (c ClauseSet) Bool(key string) (value bool, ok bool) {
	value, ok = c.Bools[key]
	return value, ok
}

func (c *ClauseSet) setScope(key string, s Scope) {
	if c.Scopes == nil {
		c.Scopes = make(map[string]Scope)
	}
	if existing, ok := c.Scopes[key]; ok {
		s = existing.merge(s)
	}
	c.Scopes[key] = s
}

func (c *ClauseSet) setDate(key string, d DateRange) {
	if c.Dates == nil {
		c.Dates = make(map[string]DateRange)
	}
	c.Dates[key] = d
}

func (c *ClauseSet) setBool(key string, v bool) {
	if c.Bools == nil {
		c.Bools = make(map[string]bool)
	}
	c.Bools[key] = v
}

func (c *ClauseSet) setText(key, v string) {
	if c.Texts == nil {
		c.Texts = make(map[string]string)
	}
	c.Texts[key] = v
}

func (c *ClauseSet) addAttribute(av AttributeValues) {
	for i := range c.Attributes {
		if c.Attributes[i].AttributeID != av.AttributeID {
			continue
		}
		for _, v := range av.Values {
			if !slices.Contains(c.Attributes[i].Values, v) {
				c.Attributes[i].Values = append(c.Attributes[i].Values, v)
			}
		}
		return
	}
	c.Attributes = append(c.Attributes, av)
}

// Format serialises c in canonical form: registry order, one segment per
// key, custom attributes one segment each.
func (r *Registry) Format(c ClauseSet) string {
	parts := make([]string, 0, len(r.attributes))
	for _, attr := range r.attributes {
		switch attr.Kind {
		case KindIDs, KindScope:
			if s, ok := c.Scopes[attr.Key]; ok {
				parts = append(parts, attr.Key+"="+s.String())
			}
		case KindDateRange:
			if d, ok := c.Dates[attr.Key]; ok {
				parts = append(parts, attr.Key+"="+d.String())
			}
		case KindBool:
			if v, ok := c.Bools[attr.Key]; ok {
				parts = append(parts, attr.Key+"="+strings.ToUpper(strconv.FormatBool(v)))
			}
		case KindText:
			if v, ok := c.Texts[attr.Key]; ok {
				parts = append(parts, attr.Key+"="+v)
			}
		case KindAttributes:
			for _, av := range c.Attributes {
				parts = append(parts, attr.Key+"="+av.String())
			}
		}
	}
	return strings.Join(parts, "&")
}
