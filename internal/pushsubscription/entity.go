package pushsubscription

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Subscription is a browser registered for web push. Group is the staff group
// (management, designer, print_manager) whose notifications it receives.
type Subscription struct {
	ID        string    `yaml:"id" json:"id"`
	Endpoint  string    `yaml:"endpoint" json:"endpoint"`
	P256dhKey string    `yaml:"p256dh_key" json:"p256dh"`
	AuthKey   string    `yaml:"auth_key" json:"auth"`
	Group     string    `yaml:"group" json:"group"`
	CreatedAt time.Time `yaml:"created_at" json:"createdAt"`
}

// IDFor derives the subscription id from its endpoint, so a browser that
// registers again replaces its previous subscription.
func IDFor(endpoint string) string {
	sum := sha256.Sum256([]byte(endpoint))
	return hex.EncodeToString(sum[:12])
}
