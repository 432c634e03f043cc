package model

import "time"

type Role struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	// ACL is the capability bitset; see access.Capabilities.
	ACL uint32 `json:"-"`
}

type Company struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	RoleID    int64     `json:"roleId"`
	CompanyID *int64    `json:"companyId"`
	Active    bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

type Project struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedBy int64     `json:"createdBy"`
	Active    bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

type Status struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Color string `json:"color"`
}

type Tag struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

type TaskAttribute struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

type AttributeValue struct {
	AttributeID int64  `json:"taskAttributeId"`
	Value       string `json:"value"`
}

type Task struct {
	ID          int64            `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	StatusID    int64            `json:"statusId"`
	ProjectID   *int64           `json:"projectId"`
	CreatedBy   int64            `json:"createdBy"`
	RequestedBy *int64           `json:"requestedBy"`
	CompanyID   *int64           `json:"companyId"`
	Important   bool             `json:"important"`
	Archived    bool             `json:"archived"`
	CreatedAt   time.Time        `json:"createdTime"`
	StartedAt   *time.Time       `json:"startedTime"`
	DeadlineAt  *time.Time       `json:"deadlineTime"`
	ClosedAt    *time.Time       `json:"closedTime"`
	UpdatedAt   time.Time        `json:"updatedTime"`
	TagIDs      []int64          `json:"tags"`
	FollowerIDs []int64          `json:"followers"`
	AssigneeIDs []int64          `json:"assigned"`
	Attributes  []AttributeValue `json:"taskData"`
}

type Comment struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"taskId"`
	CreatedBy int64     `json:"createdBy"`
	Body      string    `json:"body"`
	Internal  bool      `json:"internal"`
	CreatedAt time.Time `json:"createdAt"`
}

// Filter is a saved filter. Expression holds the raw filter string exactly as
// submitted; it is parsed on every use.
type Filter struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Expression string    `json:"filter"`
	Columns    []string  `json:"columns"`
	Public     bool      `json:"public"`
	Report     bool      `json:"report"`
	Active     bool      `json:"isActive"`
	Default    bool      `json:"default"`
	Remembered bool      `json:"usersRemembered"`
	CreatedBy  int64     `json:"createdBy"`
	ProjectID  *int64    `json:"projectId"`
	CreatedAt  time.Time `json:"createdTime"`
	UpdatedAt  time.Time `json:"updatedTime"`
}
