package filter

import (
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/Joseda-hg/lazydesk/internal/apperr"
)

// ParseExpression parses a stored task filter expression such as
// "status=3&creator=current-user,7&archived=TRUE".
func ParseExpression(raw string) (ClauseSet, error) {
	return Tasks.Parse(raw)
}

// Parse parses "key=value&key=value". Empty segments are skipped. Repeated
// id and scope keys merge; for the other kinds the last segment wins.
func (r *Registry) Parse(raw string) (ClauseSet, error) {
	var set ClauseSet
	for _, segment := range strings.Split(raw, "&") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		key, value, _ := strings.Cut(segment, "=")
		if err := r.apply(&set, strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
			return ClauseSet{}, err
		}
	}
	return set, nil
}

// ParseParams reads the same vocabulary from query parameters. RequestParams
// are skipped. For addedParameters the value itself is ampersand joined,
// "3=a,b&5=c".
func (r *Registry) ParseParams(values url.Values) (ClauseSet, error) {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if slices.Contains(RequestParams, key) {
			continue
		}
		if _, ok := r.Attribute(key); !ok {
			return ClauseSet{}, apperr.Invalid(key, values.Get(key), "unknown filter attribute")
		}
	}

	var set ClauseSet
	for _, attr := range r.attributes {
		if _, ok := values[attr.Key]; !ok {
			continue
		}
		for _, value := range values[attr.Key] {
			pieces := []string{value}
			if attr.Kind == KindAttributes {
				pieces = strings.Split(value, "&")
			}
			for _, piece := range pieces {
				piece = strings.TrimSpace(piece)
				if piece == "" && attr.Kind == KindAttributes {
					continue
				}
				if err := r.apply(&set, attr.Key, piece); err != nil {
					return ClauseSet{}, err
				}
			}
		}
	}
	return set, nil
}

func (r *Registry) apply(set *ClauseSet, key, value string) error {
	attr, ok := r.Attribute(key)
	if !ok {
		return apperr.Invalid(key, value, "unknown filter attribute")
	}

	switch attr.Kind {
	case KindIDs:
		ids, err := parseIDs(key, value)
		if err != nil {
			return err
		}
		set.setScope(key, Scope{IDs: ids})
	case KindScope:
		scope, err := parseScope(attr, value)
		if err != nil {
			return err
		}
		if existing, ok := set.Scopes[key]; ok {
			merged := existing.merge(scope)
			if merged.None && (merged.CurrentUser || len(merged.IDs) > 0) {
				return apperr.Invalid(key, value, "\"not\" cannot be combined with other values")
			}
		}
		set.setScope(key, scope)
	case KindDateRange:
		dates, err := parseDateRange(key, value)
		if err != nil {
			return err
		}
		set.setDate(key, dates)
	case KindBool:
		v, err := cast.ToBoolE(value)
		if err != nil || value == "" {
			return apperr.Invalid(key, value, "expected TRUE or FALSE")
		}
		set.setBool(key, v)
	case KindText:
		// "&" separates segments in a stored expression.
		if strings.Contains(value, "&") {
			return apperr.Invalid(key, value, "\"&\" is not allowed")
		}
		if value != "" {
			set.setText(key, value)
		}
	case KindAttributes:
		av, err := parseAttributeValues(key, value)
		if err != nil {
			return err
		}
		set.addAttribute(av)
	}
	return nil
}

func parseIDs(key, value string) ([]int64, error) {
	if value == "" {
		return nil, apperr.Invalid(key, value, "empty value")
	}
	var ids []int64
	for _, part := range strings.Split(value, ",") {
		id, err := parseID(key, part)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func parseID(key, raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Invalid(key, raw, "expected a positive id")
	}
	return id, nil
}

func parseScope(attr Attribute, value string) (Scope, error) {
	if value == "" {
		return Scope{}, apperr.Invalid(attr.Key, value, "empty value")
	}

	var scope Scope
	parts := strings.Split(value, ",")
	for _, part := range parts {
		part = strings.TrimSpace(part)
		switch strings.ToLower(part) {
		case tokenNot:
			if !attr.AllowNot {
				return Scope{}, apperr.Invalid(attr.Key, value, "\"not\" is not supported")
			}
			if len(parts) != 1 {
				return Scope{}, apperr.Invalid(attr.Key, value, "\"not\" cannot be combined with other values")
			}
			scope.None = true
		case tokenCurrentUser:
			if attr.CurrentUser == CurrentUserUnsupported {
				return Scope{}, apperr.Invalid(attr.Key, value, "\"current-user\" is not supported")
			}
			scope.CurrentUser = true
		default:
			id, err := parseID(attr.Key, part)
			if err != nil {
				return Scope{}, err
			}
			if !slices.Contains(scope.IDs, id) {
				scope.IDs = append(scope.IDs, id)
			}
		}
	}
	return scope, nil
}

func parseDateRange(key, value string) (DateRange, error) {
	if value == "" {
		return DateRange{}, apperr.Invalid(key, value, "empty date range")
	}

	var dates DateRange
	seen := map[string]bool{}
	for _, part := range strings.Split(value, ",") {
		bound, raw, ok := strings.Cut(strings.TrimSpace(part), "=")
		bound = strings.ToUpper(strings.TrimSpace(bound))
		raw = strings.TrimSpace(raw)
		if !ok || raw == "" || (bound != "FROM" && bound != "TO") {
			return DateRange{}, apperr.Invalid(key, value, "expected FROM=<time>,TO=<time|NOW>")
		}
		if seen[bound] {
			return DateRange{}, apperr.Invalid(key, value, "duplicate "+bound)
		}
		seen[bound] = true

		if bound == "TO" && strings.EqualFold(raw, tokenNow) {
			dates.ToNow = true
			continue
		}
		ts, err := parseTime(raw)
		if err != nil {
			return DateRange{}, apperr.Invalid(key, value, "unrecognised time "+raw)
		}
		if bound == "FROM" {
			dates.From = &ts
		} else {
			dates.To = &ts
		}
	}

	if dates.From != nil && dates.To != nil && dates.From.After(*dates.To) {
		return DateRange{}, apperr.Invalid(key, value, "FROM is after TO")
	}
	return dates, nil
}

// parseTime accepts unix seconds or an ISO date or datetime.
func parseTime(raw string) (time.Time, error) {
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	ts, err := cast.ToTimeE(raw)
	if err != nil {
		return time.Time{}, err
	}
	return ts.UTC().Truncate(time.Second), nil
}

func parseAttributeValues(key, value string) (AttributeValues, error) {
	rawID, rawValues, ok := strings.Cut(value, "=")
	if !ok {
		return AttributeValues{}, apperr.Invalid(key, value, "expected <taskAttributeId>=<value>")
	}
	id, err := parseID(key, rawID)
	if err != nil {
		return AttributeValues{}, err
	}
	av := AttributeValues{AttributeID: id}
	for _, v := range strings.Split(rawValues, ",") {
		v = strings.TrimSpace(v)
		if v == "" {
			return AttributeValues{}, apperr.Invalid(key, value, "empty attribute value")
		}
		if !slices.Contains(av.Values, v) {
			av.Values = append(av.Values, v)
		}
	}
	return av, nil
}
