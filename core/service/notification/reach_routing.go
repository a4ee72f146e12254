package notification

import (
	"net/url"
	"strconv"
	"strings"

	"reach_server/core/domain"
)

// routeRule maps notification types to a route template. Template holds at
// most one {key} placeholder filled from the notification data; when the key
// is absent the rule falls back to List, or does not match if List is empty.
type routeRule struct {
	Types    []string // exact type names
	Prefixes []string // type name prefixes
	Template string
	List     string
	Label    string
}

func (r routeRule) matches(typ string) bool {
	for _, t := range r.Types {
		if t == typ {
			return true
		}
	}
	for _, p := range r.Prefixes {
		if strings.HasPrefix(typ, p) {
			return true
		}
	}
	return false
}

func (r routeRule) resolve(data map[string]any) (string, bool) {
	open := strings.IndexByte(r.Template, '{')
	if open < 0 {
		return r.Template, r.Template != ""
	}
	end := strings.IndexByte(r.Template[open:], '}')
	if end < 0 {
		return "", false
	}
	key := r.Template[open+1 : open+end]
	if id, ok := identifier(data, key); ok {
		return r.Template[:open] + url.PathEscape(id) + r.Template[open+end+1:], true
	}
	return r.List, r.List != ""
}

// Role tables are checked top-down; the first matching rule wins. The
// creator table has no property-detail route of any kind.
var roleRules = map[domain.Role][]routeRule{
	domain.RoleCreator: {
		{Types: []string{"new_lead"}, Prefixes: []string{"lead_", "promotion_"},
			Template: "/dashboard/creator/my-promotions/{promotion_id}", List: "/dashboard/creator/my-promotions", Label: "View Promotion"},
		{Prefixes: []string{"commission_", "payment_", "wallet_", "withdrawal_", "payout_"},
			Template: "/dashboard/creator/wallet/transactions/{transaction_id}", List: "/dashboard/creator/wallet", Label: "View Wallet"},
		{Prefixes: []string{"inspection_"},
			Template: "/dashboard/creator/inspections/{inspection_id}", List: "/dashboard/creator/inspections", Label: "View Inspection"},
		{Types: []string{domain.NotificationTierUpdated}, Prefixes: []string{"verification_"},
			Template: "/dashboard/creator/profile/verification", Label: "View Tier"},
		{Types: []string{"new_property_available"},
			Template: "/dashboard/creator/browse-properties", Label: "Browse Properties"},
	},
	domain.RoleDeveloper: {
		{Types: []string{"new_lead"}, Prefixes: []string{"lead_"},
			Template: "/dashboard/developer/leads/{lead_id}", List: "/dashboard/developer/leads", Label: "View Lead"},
		{Prefixes: []string{"inspection_"},
			Template: "/dashboard/developer/inspections/{inspection_id}", List: "/dashboard/developer/inspections", Label: "View Inspection"},
		{Prefixes: []string{"promotion_"},
			Template: "/dashboard/developer/promotions/{promotion_id}", List: "/dashboard/developer/promotions", Label: "View Promotion"},
		{Prefixes: []string{"payment_", "transaction_", "wallet_", "withdrawal_"},
			Template: "/dashboard/developer/wallet/transactions/{transaction_id}", List: "/dashboard/developer/wallet", Label: "View Transaction"},
		{Prefixes: []string{"property_"},
			Template: "/dashboard/developer/properties/{property_id}", List: "/dashboard/developer/properties", Label: "View Listing"},
	},
	domain.RoleBuyer: {
		{Prefixes: []string{"inspection_"},
			Template: "/dashboard/buyer/inspections/{inspection_id}", List: "/dashboard/buyer/inspections", Label: "View Inspection"},
		{Prefixes: []string{"payment_", "transaction_"},
			Template: "/dashboard/buyer/transactions/{transaction_id}", List: "/dashboard/buyer/transactions", Label: "View Transaction"},
	},
	domain.RoleAdmin: {
		{Types: []string{"creator_verification_requested"}, Prefixes: []string{"verification_", "creator_"},
			Template: "/dashboard/admin/creators/{creator_id}", List: "/dashboard/admin/creators", Label: "Review Creator"},
		{Prefixes: []string{"property_"},
			Template: "/dashboard/admin/properties/{property_id}", List: "/dashboard/admin/properties", Label: "Review Listing"},
		{Prefixes: []string{"payment_", "transaction_", "withdrawal_", "payout_"},
			Template: "/dashboard/admin/transactions/{transaction_id}", List: "/dashboard/admin/transactions", Label: "Review Transaction"},
		{Prefixes: []string{"inspection_"},
			Template: "/dashboard/admin/inspections/{inspection_id}", List: "/dashboard/admin/inspections", Label: "View Inspection"},
	},
}

// publicPropertyRule applies to any type carrying a property_id, for the
// roles allowed onto public listing pages.
var publicPropertyRule = routeRule{Template: "/property/{property_id}", Label: "View Property"}

var publicPropertyRoles = map[domain.Role]bool{
	domain.RoleBuyer:     true,
	domain.RoleAnonymous: true,
}

// ResolveRoute maps a notification to a navigation target for the viewer.
// NoRoute means "mark as read, do not navigate". Never panics.
func ResolveRoute(notificationType string, data map[string]any, role domain.Role) domain.RouteDecision {
	if len(data) == 0 {
		return domain.NoRoute
	}
	typ := strings.ToLower(strings.TrimSpace(notificationType))

	for _, rule := range roleRules[role] {
		if !rule.matches(typ) {
			continue
		}
		if route, ok := rule.resolve(data); ok {
			return decision(route, rule.Label)
		}
		break
	}

	if publicPropertyRoles[role] {
		if route, ok := publicPropertyRule.resolve(data); ok {
			return decision(route, publicPropertyRule.Label)
		}
	}
	return domain.NoRoute
}

func decision(route, label string) domain.RouteDecision {
	return domain.RouteDecision{Route: &route, ActionLabel: &label}
}

// identifier reads data[key] as a non-empty string; JSON numbers are accepted.
func identifier(data map[string]any, key string) (string, bool) {
	switch v := data[key].(type) {
	case string:
		v = strings.TrimSpace(v)
		return v, v != ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case interface{ String() string }:
		s := v.String()
		return s, s != ""
	default:
		return "", false
	}
}
