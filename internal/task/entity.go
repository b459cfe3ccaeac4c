package task

import "time"

type Urgency string

const (
	UrgencyNormal   Urgency = "Normal"
	UrgencyUrgent   Urgency = "Urgent"
	UrgencyCritical Urgency = "Critical"
)

// rank orders urgencies for sorting; lower is more pressing.
func (u Urgency) rank() int {
	switch u {
	case UrgencyCritical:
		return 0
	case UrgencyUrgent:
		return 1
	default:
		return 2
	}
}

func (u Urgency) Valid() bool {
	return u == UrgencyNormal || u == UrgencyUrgent || u == UrgencyCritical
}

type PrintingType string

const (
	PrintingOffset  PrintingType = "Offset"
	PrintingDigital PrintingType = "Digital"
)

type Task struct {
	ID           string           `yaml:"id" json:"id"`
	Title        string           `yaml:"title" json:"title"`
	Description  string           `yaml:"description" json:"description"`
	Urgency      Urgency          `yaml:"urgency" json:"urgency"`
	StatusID     string           `yaml:"status_id" json:"status"`
	ParentID     string           `yaml:"parent_id" json:"parentId,omitempty"`
	ClientID     string           `yaml:"client_id" json:"clientId,omitempty"`
	OrderIndex   int              `yaml:"order_index" json:"orderIndex"`
	PrintingType PrintingType     `yaml:"printing_type" json:"printingType,omitempty"`
	Size         string           `yaml:"size" json:"size,omitempty"`
	IsVIP        bool             `yaml:"is_vip" json:"isVip"`
	Deadline     *time.Time       `yaml:"deadline,omitempty" json:"deadline,omitempty"`
	Comments     []*Comment       `yaml:"comments" json:"comments"`
	Attachments  []*Attachment    `yaml:"attachments" json:"attachments"`
	ActivityLog  []*ActivityEntry `yaml:"activity_log" json:"activityLog"`
	CreatedAt    time.Time        `yaml:"created_at" json:"createdAt"`
	UpdatedAt    time.Time        `yaml:"updated_at" json:"updatedAt"`
}

func (t *Task) IsSubtask() bool {
	return t.ParentID != ""
}

// FindComment looks through top-level comments and their replies.
func (t *Task) FindComment(id string) *Comment {
	for _, c := range t.Comments {
		if c.ID == id {
			return c
		}
		for _, r := range c.Replies {
			if r.ID == id {
				return r
			}
		}
	}
	return nil
}

// CommentCount counts top-level comments and replies.
func (t *Task) CommentCount() int {
	n := len(t.Comments)
	for _, c := range t.Comments {
		n += len(c.Replies)
	}
	return n
}

type Comment struct {
	ID              string     `yaml:"id" json:"id"`
	Text            string     `yaml:"text" json:"text"`
	IsResolved      bool       `yaml:"is_resolved" json:"isResolved"`
	ParentCommentID string     `yaml:"parent_comment_id,omitempty" json:"parentCommentId,omitempty"`
	Replies         []*Comment `yaml:"replies,omitempty" json:"replies,omitempty"`
	CreatedAt       time.Time  `yaml:"created_at" json:"createdAt"`
}

type Attachment struct {
	ID          string    `yaml:"id" json:"id"`
	Name        string    `yaml:"name" json:"name"`
	ContentType string    `yaml:"content_type" json:"contentType"`
	Size        int64     `yaml:"size" json:"size"`
	Path        string    `yaml:"path" json:"path"`
	CreatedAt   time.Time `yaml:"created_at" json:"createdAt"`
}

type ActivityType string

const (
	ActivityStatusChange      ActivityType = "statusChange"
	ActivityCommentAdded      ActivityType = "commentAdded"
	ActivityReplyAdded        ActivityType = "replyAdded"
	ActivityCommentResolved   ActivityType = "commentResolved"
	ActivityAttachmentAdded   ActivityType = "attachmentAdded"
	ActivityAttachmentDeleted ActivityType = "attachmentDeleted"
	ActivityTaskUpdated       ActivityType = "taskUpdated"
)

type ActivityEntry struct {
	ID          string            `yaml:"id" json:"id"`
	Timestamp   time.Time         `yaml:"timestamp" json:"timestamp"`
	Type        ActivityType      `yaml:"type" json:"type"`
	Description string            `yaml:"description" json:"description"`
	Details     map[string]string `yaml:"details,omitempty" json:"details,omitempty"`
}

// Progress summarizes how many subtasks of a main task are finished.
type Progress struct {
	Completed  int `json:"completed"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}
