package filter

import (
	"net/netip"
	"strings"
	"time"

	"uk.co.dudmesh.agora/internal/model"
)

type FilterKey string

const (
	KeyLocal          FilterKey = "local"
	KeyRemote         FilterKey = "remote"
	KeyByDomain       FilterKey = "by_domain"
	KeyActive         FilterKey = "active"
	KeyPending        FilterKey = "pending"
	KeySilenced       FilterKey = "silenced"
	KeySuspended      FilterKey = "suspended"
	KeyUsername       FilterKey = "username"
	KeyDisplayName    FilterKey = "display_name"
	KeyEmail          FilterKey = "email"
	KeyIP             FilterKey = "ip"
	KeyStaff          FilterKey = "staff"
	KeyNote           FilterKey = "note"
	KeyStatusCountGTE FilterKey = "status_count_gte"
	KeySignUpDateGTE  FilterKey = "sign_up_date_gte"
	KeySpam           FilterKey = "spam"
	KeyIsPro          FilterKey = "is_pro"
	KeyIsInvestor     FilterKey = "is_investor"
	KeyIsDonor        FilterKey = "is_donor"
	KeyIsVerified     FilterKey = "is_verified"
)

type scopeFunc func(value string) Scope

var scopes = map[FilterKey]scopeFunc{
	KeyLocal:          func(string) Scope { return Where("accounts.domain IS NULL") },
	KeyRemote:         func(string) Scope { return Where("accounts.domain IS NOT NULL") },
	KeyByDomain:       func(v string) Scope { return Where("accounts.domain = ?", v) },
	KeyActive:         func(string) Scope { return Where("accounts.suspended = ?", false) },
	KeyPending:        func(string) Scope { return withUsers().Where("users.confirmed = ? AND users.approved = ?", false, false) },
	KeySilenced:       func(string) Scope { return Where("accounts.silenced = ?", true) },
	KeySuspended:      func(string) Scope { return Where("accounts.suspended = ?", true) },
	KeyUsername:       func(v string) Scope { return matches("accounts.username", v, false) },
	KeyDisplayName:    func(v string) Scope { return matches("accounts.display_name", v, false) },
	KeyEmail:          func(v string) Scope { return withUsers().Merge(matches("users.email", v, false)) },
	KeyIP:             ipScope,
	KeyStaff:          func(string) Scope { return withUsers().Where("users.admin = ? OR users.moderator = ?", true, true) },
	KeyNote:           func(v string) Scope { return matches("accounts.note", v, true) },
	KeyStatusCountGTE: func(string) Scope { return Joins(JoinAccountStat) }, // TODO: compare account_stats.statuses_count with the value
	KeySignUpDateGTE:  signUpDateScope,
	KeySpam:           func(string) Scope { return Where("accounts.spam_flag = ?", model.SpamFlagSpam) },
	KeyIsPro:          func(string) Scope { return Where("accounts.is_pro = ?", true) },
	KeyIsInvestor:     func(string) Scope { return Where("accounts.is_investor = ?", true) },
	KeyIsDonor:        func(string) Scope { return Where("accounts.is_donor = ?", true) },
	KeyIsVerified:     func(string) Scope { return Where("accounts.is_verified = ?", true) },
}

// ParseFilterKey returns an *model.UnknownFilterKeyError for keys outside the
// known set.
func ParseFilterKey(key string) (FilterKey, error) {
	k := FilterKey(key)
	if _, ok := scopes[k]; !ok {
		return "", &model.UnknownFilterKeyError{Key: key}
	}
	return k, nil
}

// Keys lists every known filter key.
func Keys() []FilterKey {
	keys := make([]FilterKey, 0, len(scopes))
	for k := range scopes {
		keys = append(keys, k)
	}
	return keys
}

func (k FilterKey) Scope(value string) Scope {
	return scopes[k](value)
}

func withUsers() Scope {
	return Joins(JoinUser)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// matches is a case-insensitive prefix match, or a substring match when
// contains is set. Wildcards in value are matched literally.
func matches(column, value string, contains bool) Scope {
	pattern := likeEscaper.Replace(strings.ToLower(value)) + "%"
	if contains {
		pattern = "%" + pattern
	}
	return Where("lower("+column+`) LIKE ? ESCAPE '\'`, pattern)
}

func ipScope(value string) Scope {
	prefix, ok := parseIPFilter(value)
	if !ok {
		return None()
	}
	return withUsers().Where("inet_contains(?, users.current_sign_in_ip)", prefix.String())
}

// parseIPFilter accepts an address or a CIDR block. A bare address becomes a
// single host prefix.
func parseIPFilter(value string) (netip.Prefix, bool) {
	if strings.Contains(value, "/") {
		prefix, err := netip.ParsePrefix(value)
		if err != nil {
			return netip.Prefix{}, false
		}
		return prefix.Masked(), true
	}
	addr, err := netip.ParseAddr(value)
	if err != nil {
		return netip.Prefix{}, false
	}
	addr = addr.WithZone("")
	return netip.PrefixFrom(addr, addr.BitLen()), true
}

var signUpDateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

func signUpDateScope(value string) Scope {
	for _, layout := range signUpDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return Where("accounts.created_at >= ?", t.UTC())
		}
	}
	return Where("accounts.created_at >= ?", value)
}
