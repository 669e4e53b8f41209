package content

import (
	"context"
	"fmt"

	"github.com/classtrack/classtrack/internal/domain/shared"
)

// Operation names. The server dispatches on these.
const (
	OpHealth                  = "Health"
	OpListUsersByRole         = "ListUsersByRole"
	OpGetUser                 = "GetUser"
	OpListClasses             = "ListClasses"
	OpListClassesByTeacher    = "ListClassesByTeacher"
	OpGetClass                = "GetClass"
	OpListAttendanceByStudent = "ListAttendanceByStudent"
	OpListAttendanceByClass   = "ListAttendanceByClass"
	OpCreateUser              = "CreateUser"
	OpUpdateUser              = "UpdateUser"
	OpDeleteUser              = "DeleteUser"
	OpCreateClass             = "CreateClass"
	OpUpdateClass             = "UpdateClass"
	OpDeleteClass             = "DeleteClass"
	OpCreateAttendance        = "CreateAttendance"
	OpUpdateAttendance        = "UpdateAttendance"
	OpDeleteAttendance        = "DeleteAttendance"
	OpDeleteAttendances       = "DeleteAttendances"
)

type operation struct {
	name     string
	document string
}

const (
	userFields       = `id name email studentID role`
	classFields      = `id name description schedule teacher { id name }`
	attendanceFields = `id date recognized confidenceScore imageCapturedURL user { id name } class { id name }`
)

var (
	opHealth = operation{OpHealth, `query Health { __typename }`}

	opListUsersByRole = operation{OpListUsersByRole,
		`query ListUsersByRole($where: UserWhereInput!) { users(where: $where) { ` + userFields + ` } }`}
	opGetUser = operation{OpGetUser,
		`query GetUser($where: UserWhereInput!) { users(where: $where) { ` + userFields + ` } }`}

	opListClasses = operation{OpListClasses,
		`query ListClasses { classes { ` + classFields + ` } }`}
	opListClassesByTeacher = operation{OpListClassesByTeacher,
		`query ListClassesByTeacher($where: ClassWhereInput!) { classes(where: $where) { ` + classFields + ` } }`}
	opGetClass = operation{OpGetClass,
		`query GetClass($where: ClassWhereInput!) { classes(where: $where) { ` + classFields + ` } }`}

	opListAttendanceByStudent = operation{OpListAttendanceByStudent,
		`query ListAttendanceByStudent($where: AttendanceWhereInput!) { attendances(where: $where) { ` + attendanceFields + ` } }`}
	opListAttendanceByClass = operation{OpListAttendanceByClass,
		`query ListAttendanceByClass($where: AttendanceWhereInput!) { attendances(where: $where) { ` + attendanceFields + ` } }`}

	opCreateUser = operation{OpCreateUser,
		`mutation CreateUser($data: UserCreateInput!) { createUser(data: $data) { ` + userFields + ` } }`}
	opUpdateUser = operation{OpUpdateUser,
		`mutation UpdateUser($where: UserWhereUniqueInput!, $data: UserUpdateInput!) { updateUser(where: $where, data: $data) { ` + userFields + ` } }`}
	opDeleteUser = operation{OpDeleteUser,
		`mutation DeleteUser($where: UserWhereUniqueInput!) { deleteUser(where: $where) { id } }`}

	opCreateClass = operation{OpCreateClass,
		`mutation CreateClass($data: ClassCreateInput!) { createClass(data: $data) { ` + classFields + ` } }`}
	opUpdateClass = operation{OpUpdateClass,
		`mutation UpdateClass($where: ClassWhereUniqueInput!, $data: ClassUpdateInput!) { updateClass(where: $where, data: $data) { ` + classFields + ` } }`}
	opDeleteClass = operation{OpDeleteClass,
		`mutation DeleteClass($where: ClassWhereUniqueInput!) { deleteClass(where: $where) { id } }`}

	opCreateAttendance = operation{OpCreateAttendance,
		`mutation CreateAttendance($data: AttendanceCreateInput!) { createAttendance(data: $data) { ` + attendanceFields + ` } }`}
	opUpdateAttendance = operation{OpUpdateAttendance,
		`mutation UpdateAttendance($where: AttendanceWhereUniqueInput!, $data: AttendanceUpdateInput!) { updateAttendance(where: $where, data: $data) { ` + attendanceFields + ` } }`}
	opDeleteAttendance = operation{OpDeleteAttendance,
		`mutation DeleteAttendance($where: AttendanceWhereUniqueInput!) { deleteAttendance(where: $where) { id } }`}
	opDeleteAttendances = operation{OpDeleteAttendances,
		`mutation DeleteAttendances($where: [AttendanceWhereUniqueInput!]!) { deleteAttendances(where: $where) { id } }`}
)

// ══════════════════════════════════════════════════════════════════════════════
// USER OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// ListUsersByRole fetches every user with the given role.
func (c *Client) ListUsersByRole(ctx context.Context, role string) ([]UserDTO, error) {
	vars := WhereVars[UserWhere]{Where: UserWhere{Role: &StringFilter{Equals: role}}}

	var out struct {
		Users []UserDTO `json:"users"`
	}
	if err := c.execute(ctx, opListUsersByRole, vars, &out); err != nil {
		return nil, fmt.Errorf("list users by role %s: %w", role, err)
	}
	return out.Users, nil
}

// GetUser fetches a single user. Returns shared.ErrUserNotFound when the
// list comes back empty.
func (c *Client) GetUser(ctx context.Context, id string) (*UserDTO, error) {
	vars := WhereVars[UserWhere]{Where: UserWhere{ID: &StringFilter{Equals: id}}}

	var out struct {
		Users []UserDTO `json:"users"`
	}
	if err := c.execute(ctx, opGetUser, vars, &out); err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	if len(out.Users) == 0 {
		return nil, shared.ErrUserNotFound
	}
	return &out.Users[0], nil
}

// CreateUser creates a user and returns it.
func (c *Client) CreateUser(ctx context.Context, in UserCreateInput) (*UserDTO, error) {
	var out struct {
		CreateUser *UserDTO `json:"createUser"`
	}
	if err := c.execute(ctx, opCreateUser, DataVars[UserCreateInput]{Data: in}, &out); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	if out.CreateUser == nil {
		return nil, &shared.NetworkError{Op: OpCreateUser, Err: errEmptyPayload}
	}
	return out.CreateUser, nil
}

// UpdateUser updates a user and returns the new state.
func (c *Client) UpdateUser(ctx context.Context, id string, in UserUpdateInput) (*UserDTO, error) {
	vars := UpdateVars[UserUpdateInput]{Where: WhereUnique{ID: id}, Data: in}

	var out struct {
		UpdateUser *UserDTO `json:"updateUser"`
	}
	if err := c.execute(ctx, opUpdateUser, vars, &out); err != nil {
		return nil, fmt.Errorf("update user %s: %w", id, err)
	}
	if out.UpdateUser == nil {
		return nil, shared.ErrUserNotFound
	}
	return out.UpdateUser, nil
}

// DeleteUser deletes a user. The server refuses while attendance records
// still reference the user.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	var out struct {
		DeleteUser *DeletedDTO `json:"deleteUser"`
	}
	if err := c.execute(ctx, opDeleteUser, WhereVars[WhereUnique]{Where: WhereUnique{ID: id}}, &out); err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	if out.DeleteUser == nil {
		return shared.ErrUserNotFound
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CLASS OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// ListClasses fetches every class.
func (c *Client) ListClasses(ctx context.Context) ([]ClassDTO, error) {
	var out struct {
		Classes []ClassDTO `json:"classes"`
	}
	if err := c.execute(ctx, opListClasses, nil, &out); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return out.Classes, nil
}

// ListClassesByTeacher fetches the classes taught by a teacher.
func (c *Client) ListClassesByTeacher(ctx context.Context, teacherID string) ([]ClassDTO, error) {
	vars := WhereVars[ClassWhere]{Where: ClassWhere{Teacher: &IDFilter{ID: StringFilter{Equals: teacherID}}}}

	var out struct {
		Classes []ClassDTO `json:"classes"`
	}
	if err := c.execute(ctx, opListClassesByTeacher, vars, &out); err != nil {
		return nil, fmt.Errorf("list classes by teacher %s: %w", teacherID, err)
	}
	return out.Classes, nil
}

// GetClass fetches a single class.
func (c *Client) GetClass(ctx context.Context, id string) (*ClassDTO, error) {
	vars := WhereVars[ClassWhere]{Where: ClassWhere{ID: &StringFilter{Equals: id}}}

	var out struct {
		Classes []ClassDTO `json:"classes"`
	}
	if err := c.execute(ctx, opGetClass, vars, &out); err != nil {
		return nil, fmt.Errorf("get class %s: %w", id, err)
	}
	if len(out.Classes) == 0 {
		return nil, shared.ErrClassNotFound
	}
	return &out.Classes[0], nil
}

// CreateClass creates a class and returns it.
func (c *Client) CreateClass(ctx context.Context, in ClassCreateInput) (*ClassDTO, error) {
	var out struct {
		CreateClass *ClassDTO `json:"createClass"`
	}
	if err := c.execute(ctx, opCreateClass, DataVars[ClassCreateInput]{Data: in}, &out); err != nil {
		return nil, fmt.Errorf("create class: %w", err)
	}
	if out.CreateClass == nil {
		return nil, &shared.NetworkError{Op: OpCreateClass, Err: errEmptyPayload}
	}
	return out.CreateClass, nil
}

// UpdateClass updates a class and returns the new state.
func (c *Client) UpdateClass(ctx context.Context, id string, in ClassUpdateInput) (*ClassDTO, error) {
	vars := UpdateVars[ClassUpdateInput]{Where: WhereUnique{ID: id}, Data: in}

	var out struct {
		UpdateClass *ClassDTO `json:"updateClass"`
	}
	if err := c.execute(ctx, opUpdateClass, vars, &out); err != nil {
		return nil, fmt.Errorf("update class %s: %w", id, err)
	}
	if out.UpdateClass == nil {
		return nil, shared.ErrClassNotFound
	}
	return out.UpdateClass, nil
}

// DeleteClass deletes a class.
func (c *Client) DeleteClass(ctx context.Context, id string) error {
	var out struct {
		DeleteClass *DeletedDTO `json:"deleteClass"`
	}
	if err := c.execute(ctx, opDeleteClass, WhereVars[WhereUnique]{Where: WhereUnique{ID: id}}, &out); err != nil {
		return fmt.Errorf("delete class %s: %w", id, err)
	}
	if out.DeleteClass == nil {
		return shared.ErrClassNotFound
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// ListAttendanceByStudent fetches a student's attendance records.
func (c *Client) ListAttendanceByStudent(ctx context.Context, studentID string) ([]AttendanceDTO, error) {
	vars := WhereVars[AttendanceWhere]{Where: AttendanceWhere{User: &IDFilter{ID: StringFilter{Equals: studentID}}}}

	var out struct {
		Attendances []AttendanceDTO `json:"attendances"`
	}
	if err := c.execute(ctx, opListAttendanceByStudent, vars, &out); err != nil {
		return nil, fmt.Errorf("list attendance by student %s: %w", studentID, err)
	}
	return out.Attendances, nil
}

// ListAttendanceByClass fetches a class's attendance records.
func (c *Client) ListAttendanceByClass(ctx context.Context, classID string) ([]AttendanceDTO, error) {
	vars := WhereVars[AttendanceWhere]{Where: AttendanceWhere{Class: &IDFilter{ID: StringFilter{Equals: classID}}}}

	var out struct {
		Attendances []AttendanceDTO `json:"attendances"`
	}
	if err := c.execute(ctx, opListAttendanceByClass, vars, &out); err != nil {
		return nil, fmt.Errorf("list attendance by class %s: %w", classID, err)
	}
	return out.Attendances, nil
}

// CreateAttendance records an attendance event.
func (c *Client) CreateAttendance(ctx context.Context, in AttendanceCreateInput) (*AttendanceDTO, error) {
	var out struct {
		CreateAttendance *AttendanceDTO `json:"createAttendance"`
	}
	if err := c.execute(ctx, opCreateAttendance, DataVars[AttendanceCreateInput]{Data: in}, &out); err != nil {
		return nil, fmt.Errorf("create attendance: %w", err)
	}
	if out.CreateAttendance == nil {
		return nil, &shared.NetworkError{Op: OpCreateAttendance, Err: errEmptyPayload}
	}
	return out.CreateAttendance, nil
}

// UpdateAttendance corrects an attendance event.
func (c *Client) UpdateAttendance(ctx context.Context, id string, in AttendanceUpdateInput) (*AttendanceDTO, error) {
	var out struct {
		UpdateAttendance *AttendanceDTO `json:"updateAttendance"`
	}
	vars := UpdateVars[AttendanceUpdateInput]{Where: WhereUnique{ID: id}, Data: in}
	if err := c.execute(ctx, opUpdateAttendance, vars, &out); err != nil {
		return nil, fmt.Errorf("update attendance %s: %w", id, err)
	}
	if out.UpdateAttendance == nil {
		return nil, shared.ErrAttendanceNotFound
	}
	return out.UpdateAttendance, nil
}

// DeleteAttendance deletes one attendance event.
func (c *Client) DeleteAttendance(ctx context.Context, id string) error {
	var out struct {
		DeleteAttendance *DeletedDTO `json:"deleteAttendance"`
	}
	if err := c.execute(ctx, opDeleteAttendance, WhereVars[WhereUnique]{Where: WhereUnique{ID: id}}, &out); err != nil {
		return fmt.Errorf("delete attendance %s: %w", id, err)
	}
	if out.DeleteAttendance == nil {
		return shared.ErrAttendanceNotFound
	}
	return nil
}

// DeleteAttendances deletes several events in one request and returns the
// ids the server actually removed.
func (c *Client) DeleteAttendances(ctx context.Context, ids []string) ([]string, error) {
	where := make([]WhereUnique, 0, len(ids))
	for _, id := range ids {
		where = append(where, WhereUnique{ID: id})
	}

	var out struct {
		DeleteAttendances []*DeletedDTO `json:"deleteAttendances"`
	}
	if err := c.execute(ctx, opDeleteAttendances, WhereVars[[]WhereUnique]{Where: where}, &out); err != nil {
		return nil, fmt.Errorf("delete %d attendances: %w", len(ids), err)
	}

	deleted := make([]string, 0, len(out.DeleteAttendances))
	for _, d := range out.DeleteAttendances {
		if d != nil {
			deleted = append(deleted, d.ID)
		}
	}
	return deleted, nil
}
