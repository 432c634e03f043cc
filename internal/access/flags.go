package access

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Capabilities is the closed set of role-level permissions.
type Capabilities uint32

const (
	CapAdmin Capabilities = 1 << iota
	CapLoginToSystem
	CapCreateTasks
	CapUpdateAllTasks
	CapReportFilters
	CapProjectSharedFilters
	CapShareFilters
	CapUserSettings
	CapCompanySettings
)

// ProjectACL is the closed set of per-project permissions a user can hold.
type ProjectACL uint32

const (
	ACLViewOwnTasks ProjectACL = 1 << iota
	ACLViewAllTasks
	ACLCreateTask
	ACLResolveTask
	ACLDeleteTask
	ACLEditProject
)

type flagName[T ~uint32] struct {
	flag T
	name string
}

var capabilityNames = []flagName[Capabilities]{
	{CapAdmin, "admin"},
	{CapLoginToSystem, "login_to_system"},
	{CapCreateTasks, "create_tasks"},
	{CapUpdateAllTasks, "update_all_tasks"},
	{CapReportFilters, "report_filters"},
	{CapProjectSharedFilters, "project_shared_filters"},
	{CapShareFilters, "share_filters"},
	{CapUserSettings, "user_settings"},
	{CapCompanySettings, "company_settings"},
}

var projectACLNames = []flagName[ProjectACL]{
	{ACLViewOwnTasks, "view_own_tasks"},
	{ACLViewAllTasks, "view_all_tasks"},
	{ACLCreateTask, "create_task"},
	{ACLResolveTask, "resolve_task"},
	{ACLDeleteTask, "delete_task"},
	{ACLEditProject, "edit_project"},
}

func (c Capabilities) Has(flag Capabilities) bool { return flag != 0 && c&flag == flag }

func (c Capabilities) Names() []string { return flagNames(capabilityNames, c) }

func (c Capabilities) String() string { return strings.Join(c.Names(), ",") }

func (c Capabilities) MarshalJSON() ([]byte, error) { return json.Marshal(c.Names()) }

func (c *Capabilities) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	parsed, err := ParseCapabilities(names)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCapabilities rejects any name outside the closed set.
func ParseCapabilities(names []string) (Capabilities, error) {
	return parseFlags(capabilityNames, "capability", names)
}

func (a ProjectACL) Has(flag ProjectACL) bool { return flag != 0 && a&flag == flag }

func (a ProjectACL) Names() []string { return flagNames(projectACLNames, a) }

func (a ProjectACL) String() string { return strings.Join(a.Names(), ",") }

func (a ProjectACL) MarshalJSON() ([]byte, error) { return json.Marshal(a.Names()) }

func (a *ProjectACL) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	parsed, err := ParseProjectACL(names)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func ParseProjectACL(names []string) (ProjectACL, error) {
	return parseFlags(projectACLNames, "project acl", names)
}

func parseFlags[T ~uint32](table []flagName[T], kind string, names []string) (T, error) {
	var set T
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		found := false
		for _, entry := range table {
			if entry.name == name {
				set |= entry.flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown %s %q", kind, raw)
		}
	}
	return set, nil
}

func flagNames[T ~uint32](table []flagName[T], set T) []string {
	names := make([]string, 0, len(table))
	for _, entry := range table {
		if set&entry.flag != 0 {
			names = append(names, entry.name)
		}
	}
	return names
}
