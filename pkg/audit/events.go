package audit

import "fmt"

// CreateEvent records the creation of a catalog entity.
type CreateEvent struct {
	UserID       string
	ClientIP     string
	EntityType   string
	EntityID     string
	Name         string
	Success      bool
	ErrorMessage string
}

func (e CreateEvent) MessageID() string {
	return "create"
}

func (e CreateEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("%s created %s %s (%s)", e.UserID, e.EntityType, e.Name, e.EntityID)
	}
	msg := fmt.Sprintf("%s tried to create %s %s", e.UserID, e.EntityType, e.Name)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e CreateEvent) Severity() Severity {
	if e.Success {
		return SeverityInfo
	}
	return SeverityWarning
}

func (e CreateEvent) Facility() int {
	return FacilityUser
}

func (e CreateEvent) StructuredData() map[string]map[string]string {
	return entitySD(e.UserID, e.ClientIP, e.EntityType, e.EntityID, "create", e.Success)
}

// UpdateEvent records a mutation on a catalog entity: tags, attributes,
// description, artifacts and the rest.
type UpdateEvent struct {
	UserID       string
	ClientIP     string
	EntityType   string
	EntityID     string
	Operation    string
	Success      bool
	ErrorMessage string
}

func (e UpdateEvent) MessageID() string {
	return "update"
}

func (e UpdateEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("%s ran %s on %s %s", e.UserID, e.Operation, e.EntityType, e.EntityID)
	}
	msg := fmt.Sprintf("%s tried to run %s on %s %s", e.UserID, e.Operation, e.EntityType, e.EntityID)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e UpdateEvent) Severity() Severity {
	if e.Success {
		return SeverityInfo
	}
	return SeverityWarning
}

func (e UpdateEvent) Facility() int {
	return FacilityUser
}

func (e UpdateEvent) StructuredData() map[string]map[string]string {
	return entitySD(e.UserID, e.ClientIP, e.EntityType, e.EntityID, e.Operation, e.Success)
}

// DeleteEvent records a soft delete of one or more catalog entities.
type DeleteEvent struct {
	UserID       string
	ClientIP     string
	EntityType   string
	EntityIDs    []string
	Success      bool
	ErrorMessage string
}

func (e DeleteEvent) MessageID() string {
	return "delete"
}

func (e DeleteEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("%s deleted %d %s(s)", e.UserID, len(e.EntityIDs), e.EntityType)
	}
	msg := fmt.Sprintf("%s tried to delete %s(s)", e.UserID, e.EntityType)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e DeleteEvent) Severity() Severity {
	if e.Success {
		return SeverityNotice
	}
	return SeverityWarning
}

func (e DeleteEvent) Facility() int {
	return FacilityUser
}

func (e DeleteEvent) StructuredData() map[string]map[string]string {
	sd := entitySD(e.UserID, e.ClientIP, e.EntityType, "", "delete", e.Success)
	sd[SDIDSubject]["count"] = fmt.Sprintf("%d", len(e.EntityIDs))
	return sd
}

// FindEvent records a scoped find over the catalog.
type FindEvent struct {
	UserID       string
	ClientIP     string
	EntityType   string
	Workspace    string
	TotalRecords int64
	Success      bool
	ErrorMessage string
}

func (e FindEvent) MessageID() string {
	return "find"
}

func (e FindEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("%s listed %ss (%d matched)", e.UserID, e.EntityType, e.TotalRecords)
	}
	msg := fmt.Sprintf("%s tried to list %ss", e.UserID, e.EntityType)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e FindEvent) Severity() Severity {
	if e.Success {
		return SeverityInfo
	}
	return SeverityWarning
}

func (e FindEvent) Facility() int {
	return FacilityUser
}

func (e FindEvent) StructuredData() map[string]map[string]string {
	sd := entitySD(e.UserID, e.ClientIP, e.EntityType, "", "find", e.Success)
	if e.Workspace != "" {
		sd[SDIDSubject]["workspace"] = e.Workspace
	}
	return sd
}

// CopyEvent records a deep copy of a project tree.
type CopyEvent struct {
	UserID       string
	ClientIP     string
	SourceID     string
	CopyID       string
	Success      bool
	ErrorMessage string
}

func (e CopyEvent) MessageID() string {
	return "copy"
}

func (e CopyEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("%s copied project %s to %s", e.UserID, e.SourceID, e.CopyID)
	}
	msg := fmt.Sprintf("%s tried to copy project %s", e.UserID, e.SourceID)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e CopyEvent) Severity() Severity {
	if e.Success {
		return SeverityInfo
	}
	return SeverityWarning
}

func (e CopyEvent) Facility() int {
	return FacilityUser
}

func (e CopyEvent) StructuredData() map[string]map[string]string {
	sd := entitySD(e.UserID, e.ClientIP, "project", e.SourceID, "copy", e.Success)
	if e.CopyID != "" {
		sd[SDIDSubject]["copy"] = e.CopyID
	}
	return sd
}

// CheckEvent records an authorization decision on a single entity.
type CheckEvent struct {
	UserID     string
	ClientIP   string
	EntityType string
	EntityID   string
	Action     string
	Allowed    bool
}

func (e CheckEvent) MessageID() string {
	return "check"
}

func (e CheckEvent) Message() string {
	if e.Allowed {
		return fmt.Sprintf("%s checked %s on %s %s: allowed", e.UserID, e.Action, e.EntityType, e.EntityID)
	}
	return fmt.Sprintf("%s checked %s on %s %s: denied", e.UserID, e.Action, e.EntityType, e.EntityID)
}

func (e CheckEvent) Severity() Severity {
	return SeverityInfo
}

func (e CheckEvent) Facility() int {
	return FacilityAuthPriv
}

func (e CheckEvent) StructuredData() map[string]map[string]string {
	sd := entitySD(e.UserID, e.ClientIP, e.EntityType, e.EntityID, "check", e.Allowed)
	sd[SDIDAction]["privilege"] = e.Action
	return sd
}

func entitySD(userID, clientIP, entityType, entityID, operation string, success bool) map[string]map[string]string {
	result := "success"
	if !success {
		result = "failure"
	}
	sd := map[string]map[string]string{
		SDIDAuth: {
			"user": userID,
		},
		SDIDSubject: {
			"type": entityType,
		},
		SDIDClient: {
			"ip": clientIP,
		},
		SDIDAction: {
			"operation": operation,
			"result":    result,
		},
	}
	if entityID != "" {
		sd[SDIDSubject]["id"] = entityID
	}
	return sd
}
