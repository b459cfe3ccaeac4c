package settings

import (
	"slices"
	"strings"
	"time"
)

type Group string

const (
	GroupManagement   Group = "management"
	GroupDesigner     Group = "designer"
	GroupPrintManager Group = "print_manager"
)

type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelTelegram Channel = "telegram"
)

// Recipient is one outbound notification target.
type Recipient struct {
	Name    string  `yaml:"name" json:"name"`
	Phone   string  `yaml:"phone,omitempty" json:"phone,omitempty"`
	APIKey  string  `yaml:"api_key,omitempty" json:"apiKey,omitempty"`
	ChatID  int64   `yaml:"chat_id,omitempty" json:"chatId,omitempty"`
	Group   Group   `yaml:"group" json:"group"`
	Channel Channel `yaml:"channel,omitempty" json:"channel,omitempty"`
	Enabled bool    `yaml:"enabled" json:"isActive"`
	// UserID links the recipient to a staff account.
	UserID string `yaml:"user_id,omitempty" json:"userId,omitempty"`
	// Preferences switches notification types off per recipient. Keys are
	// template types, or STATUS_<status id> for a single status change.
	// Missing keys mean enabled.
	Preferences map[string]bool `yaml:"preferences,omitempty" json:"preferences,omitempty"`
}

const statusChangeType = "STATUS_CHANGE"

// Wants reports whether r receives notifications of templateType. newStatus
// is the target status of a status change and is ignored otherwise.
func (r *Recipient) Wants(templateType, newStatus string) bool {
	if len(r.Preferences) == 0 {
		return true
	}
	if templateType == statusChangeType && newStatus != "" {
		if on, ok := r.Preferences["STATUS_"+newStatus]; ok {
			return on
		}
	}
	if on, ok := r.Preferences[templateType]; ok {
		return on
	}
	return true
}

// IsActor reports whether r is the account identified by userID or phone.
// Phones compare without spaces and a leading plus.
func (r *Recipient) IsActor(userID, phone string) bool {
	if userID != "" && r.UserID == userID {
		return true
	}
	return phone != "" && normalizePhone(r.Phone) == normalizePhone(phone)
}

func normalizePhone(p string) string {
	return strings.NewReplacer(" ", "", "+", "").Replace(p)
}

// EffectiveChannel treats an unset channel as WhatsApp.
func (r *Recipient) EffectiveChannel() Channel {
	if r.Channel == "" {
		return ChannelWhatsApp
	}
	return r.Channel
}

// Settings is the process-wide document. It is always read and written whole.
type Settings struct {
	NotificationsEnabled  bool              `yaml:"notifications_enabled" json:"notificationsEnabled"`
	NotificationTemplates map[string]string `yaml:"notification_templates" json:"notificationTemplates"`
	WhatsAppNumbers       []*Recipient      `yaml:"whatsapp_numbers" json:"whatsappNumbers"`
	UpdatedAt             time.Time         `yaml:"updated_at" json:"updatedAt"`
}

func Default() *Settings {
	return &Settings{
		NotificationsEnabled:  true,
		NotificationTemplates: map[string]string{},
	}
}

// RecipientsIn returns the enabled recipients whose group is one of groups.
func (s *Settings) RecipientsIn(groups ...Group) []*Recipient {
	var out []*Recipient
	for _, r := range s.WhatsAppNumbers {
		if r.Enabled && slices.Contains(groups, r.Group) {
			out = append(out, r)
		}
	}
	return out
}
