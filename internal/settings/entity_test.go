package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecipient_Wants(t *testing.T) {
	r := &Recipient{Preferences: map[string]bool{
		"STATUS_CHANGE":           false,
		"STATUS_design_completed": true,
		"COMMENT_ADDED":           false,
	}}
	assert.True(t, r.Wants("STATUS_CHANGE", "design_completed"))
	assert.False(t, r.Wants("STATUS_CHANGE", "montage_completed"))
	assert.False(t, r.Wants("COMMENT_ADDED", ""))
	assert.True(t, r.Wants("NEW_PROJECT", ""))
	assert.True(t, (&Recipient{}).Wants("COMMENT_ADDED", ""))
}

func TestRecipient_IsActor(t *testing.T) {
	r := &Recipient{Phone: "+20 100 000 0001", UserID: "u1"}
	assert.True(t, r.IsActor("u1", ""))
	assert.True(t, r.IsActor("", "201000000001"))
	assert.False(t, r.IsActor("u2", "201000000009"))
	assert.False(t, r.IsActor("", ""))
	assert.False(t, (&Recipient{}).IsActor("", ""))
}

func TestSettings_RecipientsIn(t *testing.T) {
	s := &Settings{WhatsAppNumbers: []*Recipient{
		{Name: "a", Group: GroupDesigner, Enabled: true},
		{Name: "b", Group: GroupDesigner},
		{Name: "c", Group: GroupManagement, Enabled: true},
	}}
	got := s.RecipientsIn(GroupDesigner)
	assert.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Name)
	assert.Len(t, s.RecipientsIn(GroupDesigner, GroupManagement), 2)
}
