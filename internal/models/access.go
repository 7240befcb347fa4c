package models

import "slices"

// AccessRule names the lists that gate one role. Either may be empty.
type AccessRule struct {
	Whitelist string `json:"whitelist,omitempty"`
	Blacklist string `json:"blacklist,omitempty"`
}

func (r AccessRule) Empty() bool {
	return r.Whitelist == "" && r.Blacklist == ""
}

type AccessConfig struct {
	Name  string              `json:"name"`
	Owner string              `json:"owner"`
	Rules map[Role]AccessRule `json:"rules"`
}

func (c *AccessConfig) Rule(r Role) (AccessRule, bool) {
	rule, ok := c.Rules[r]
	return rule, ok
}

type AccessList struct {
	Name    string   `json:"name"`
	Owner   string   `json:"owner"`
	Players []string `json:"players"`
	Groups  []string `json:"groups"`
}

func (l *AccessList) HasPlayer(id string) bool {
	return slices.Contains(l.Players, id)
}

// HasAnyGroup reports whether any of groups is in the list.
func (l *AccessList) HasAnyGroup(groups []string) bool {
	for _, g := range groups {
		if slices.Contains(l.Groups, g) {
			return true
		}
	}
	return false
}

func (l *AccessList) AddPlayer(id string) bool {
	return addUnique(&l.Players, id)
}

func (l *AccessList) RemovePlayer(id string) bool {
	return removeValue(&l.Players, id)
}

func (l *AccessList) AddGroup(id string) bool {
	return addUnique(&l.Groups, id)
}

func (l *AccessList) RemoveGroup(id string) bool {
	return removeValue(&l.Groups, id)
}

// AccessConfigs and AccessLists are the per-owner values held in the
// preference store, keyed by name.
type (
	AccessConfigs map[string]AccessConfig
	AccessLists   map[string]AccessList
)

func addUnique(set *[]string, v string) bool {
	if slices.Contains(*set, v) {
		return false
	}
	*set = append(*set, v)
	slices.Sort(*set)
	return true
}

func removeValue(set *[]string, v string) bool {
	i := slices.Index(*set, v)
	if i < 0 {
		return false
	}
	*set = slices.Delete(*set, i, i+1)
	return true
}
