package domain

// Node statuses shared by instance items and subitems.
const (
	StatusPending    = "PENDING"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
	StatusSkipped    = "SKIPPED"
	StatusFailed     = "FAILED"

	// Instance-only derived status.
	StatusCompletedWithExceptions = "COMPLETED_WITH_EXCEPTIONS"
)

// Notification severities.
const (
	SeverityNormal   = "NORMAL"
	SeverityCritical = "CRITICAL"
)

type Template struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Shift     string `json:"shift"`
	Version   int    `json:"version"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type TemplateItem struct {
	ID         string `json:"id"`
	TemplateID string `json:"template_id"`
	Title      string `json:"title"`
	ItemType   string `json:"item_type"`
	IsRequired bool   `json:"is_required"`
	Severity   string `json:"severity"`
	SortOrder  int    `json:"sort_order"`
}

type TemplateSubitem struct {
	ID             string `json:"id"`
	TemplateItemID string `json:"template_item_id"`
	Title          string `json:"title"`
	ItemType       string `json:"item_type"`
	IsRequired     bool   `json:"is_required"`
	Severity       string `json:"severity"`
	SortOrder      int    `json:"sort_order"`
}

type Instance struct {
	ID          string  `json:"id"`
	TemplateID  string  `json:"template_id"`
	Date        string  `json:"date" format:"date"`
	Shift       string  `json:"shift"`
	ShiftStart  string  `json:"shift_start" format:"date-time"`
	ShiftEnd    string  `json:"shift_end" format:"date-time"`
	Status      string  `json:"status" enum:"PENDING,IN_PROGRESS,COMPLETED,COMPLETED_WITH_EXCEPTIONS,FAILED"`
	CreatedBy   string  `json:"created_by"`
	CreatedAt   string  `json:"created_at" format:"date-time"`
	StartedAt   *string `json:"started_at,omitempty" format:"date-time"`
	CompletedAt *string `json:"completed_at,omitempty" format:"date-time"`
	CompletedBy *string `json:"completed_by,omitempty"`
}

type InstanceItem struct {
	ID             string  `json:"id"`
	InstanceID     string  `json:"instance_id"`
	TemplateItemID string  `json:"template_item_id"`
	Title          string  `json:"title"`
	ItemType       string  `json:"item_type"`
	IsRequired     bool    `json:"is_required"`
	Severity       string  `json:"severity"`
	SortOrder      int     `json:"sort_order"`
	Status         string  `json:"status" enum:"PENDING,IN_PROGRESS,COMPLETED,SKIPPED,FAILED"`
	CompletedBy    *string `json:"completed_by,omitempty"`
	CompletedAt    *string `json:"completed_at,omitempty" format:"date-time"`
	SkippedReason  *string `json:"skipped_reason,omitempty"`
	FailureReason  *string `json:"failure_reason,omitempty"`
}

type InstanceSubitem struct {
	ID            string  `json:"id"`
	ItemID        string  `json:"item_id"`
	Title         string  `json:"title"`
	ItemType      string  `json:"item_type"`
	IsRequired    bool    `json:"is_required"`
	Severity      string  `json:"severity"`
	SortOrder     int     `json:"sort_order"`
	Status        string  `json:"status" enum:"PENDING,IN_PROGRESS,COMPLETED,SKIPPED,FAILED"`
	CompletedBy   *string `json:"completed_by,omitempty"`
	CompletedAt   *string `json:"completed_at,omitempty" format:"date-time"`
	SkippedReason *string `json:"skipped_reason,omitempty"`
	FailureReason *string `json:"failure_reason,omitempty"`
}

type Participant struct {
	InstanceID string `json:"instance_id"`
	UserID     string `json:"user_id"`
	JoinedAt   string `json:"joined_at" format:"date-time"`
}

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type ScheduledShift struct {
	ID     string `json:"id"`
	Date   string `json:"date" format:"date"`
	Shift  string `json:"shift"`
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

type Notification struct {
	ID          string `json:"id"`
	RecipientID string `json:"recipient_id"`
	NodeID      string `json:"node_id"`
	NodeStatus  string `json:"node_status"`
	Severity    string `json:"severity" enum:"NORMAL,CRITICAL"`
	Title       string `json:"title"`
	Message     string `json:"message"`
	IsRead      bool   `json:"is_read"`
	CreatedAt   string `json:"created_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	InstanceID string `json:"instance_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// Reason returns the skip or failure reason recorded on the subitem, if any.
func (s InstanceSubitem) Reason() string {
	switch s.Status {
	case StatusSkipped:
		if s.SkippedReason != nil {
			return *s.SkippedReason
		}
	case StatusFailed:
		if s.FailureReason != nil {
			return *s.FailureReason
		}
	}
	return ""
}

// Reason returns the skip or failure reason recorded on the item, if any.
func (i InstanceItem) Reason() string {
	switch i.Status {
	case StatusSkipped:
		if i.SkippedReason != nil {
			return *i.SkippedReason
		}
	case StatusFailed:
		if i.FailureReason != nil {
			return *i.FailureReason
		}
	}
	return ""
}
